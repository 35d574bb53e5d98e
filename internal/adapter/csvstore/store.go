// Package csvstore persists region series as CSV artifacts and reads them
// back for verification.
package csvstore

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/couchcryptid/climate-grid-etl/internal/domain"
)

// Artifact columns. The value column is empty on a no-data gap.
var header = []string{"date", "value"}

// Store reads and writes per-region CSV artifacts under a base directory,
// one subdirectory per variable:
//
//	<dir>/<variable>/<variable>_<region>.csv
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir. The directory tree is created
// lazily on first write.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// SeriesPath returns the artifact path for one region's series.
func (s *Store) SeriesPath(variable, region string) string {
	return filepath.Join(s.dir, variable, fmt.Sprintf("%s_%s.csv", variable, region))
}

// WriteSeries writes one region's complete series as a CSV artifact,
// replacing any previous artifact for the same variable and region.
func (s *Store) WriteSeries(variable string, series *domain.RegionSeries) (string, error) {
	path := s.SeriesPath(variable, series.Region)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create artifact directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create artifact %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("write header: %w", err)
	}
	for _, row := range series.Rows {
		record := []string{row.Date.Format(domain.DateLayout), formatValue(row.Value)}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("write row %s: %w", record[0], err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush artifact %s: %w", path, err)
	}
	return path, f.Close()
}

// ReadSeries loads a previously written artifact back into a RegionSeries.
func (s *Store) ReadSeries(variable, region string) (*domain.RegionSeries, error) {
	path := s.SeriesPath(variable, region)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	first, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	if len(first) != len(header) || first[0] != header[0] || first[1] != header[1] {
		return nil, fmt.Errorf("artifact %s has header %v, want %v", path, first, header)
	}

	series := &domain.RegionSeries{Region: region}
	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s line %d: %w", path, line, err)
		}
		row, err := parseRow(region, record)
		if err != nil {
			return nil, fmt.Errorf("parse %s line %d: %w", path, line, err)
		}
		series.Append(row)
	}
	return series, nil
}

func parseRow(region string, record []string) (domain.OutputRow, error) {
	date, err := time.Parse(domain.DateLayout, record[0])
	if err != nil {
		return domain.OutputRow{}, fmt.Errorf("bad date %q: %w", record[0], err)
	}
	row := domain.OutputRow{Region: region, Date: date}
	if record[1] == "" {
		row.Value = domain.NoData()
		return row, nil
	}
	mean, err := strconv.ParseFloat(record[1], 64)
	if err != nil {
		return domain.OutputRow{}, fmt.Errorf("bad value %q: %w", record[1], err)
	}
	row.Value = domain.Value{Mean: mean}
	return row, nil
}

func formatValue(v domain.Value) string {
	if v.Gap {
		return ""
	}
	return strconv.FormatFloat(v.Mean, 'g', -1, 64)
}
