package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/climate-grid-etl/internal/domain"
	"github.com/couchcryptid/climate-grid-etl/internal/observability"
)

// SeriesProcessor iterates a directory of NetCDF files in filename order,
// threads one continuous date cursor across file boundaries, and appends each
// region's rows into that region's series. Filenames must sort into
// chronological order; that precondition belongs to the caller.
type SeriesProcessor struct {
	opener    DatasetOpener
	extractor *RegionExtractor
	sink      SeriesWriter
	logger    *slog.Logger
	metrics   *observability.Metrics

	// variable is the payload variable name; empty means auto-detect from
	// the first file.
	variable string
}

// NewSeriesProcessor creates a SeriesProcessor.
func NewSeriesProcessor(opener DatasetOpener, sink SeriesWriter, variable string,
	logger *slog.Logger, metrics *observability.Metrics) *SeriesProcessor {
	return &SeriesProcessor{
		opener:    opener,
		extractor: NewRegionExtractor(logger, metrics),
		sink:      sink,
		logger:    logger,
		metrics:   metrics,
		variable:  variable,
	}
}

// RunResult summarizes one extraction run.
type RunResult struct {
	Variable       string
	FilesProcessed int
	RowsWritten    int
	// Artifacts maps region name to the written artifact path.
	Artifacts map[string]string
	// DroppedRegions maps region names to the grid mismatch that excluded
	// them from the run.
	DroppedRegions map[string]error
	// NextDate is the date the cursor ended on: starting date plus the total
	// number of emitted time steps.
	NextDate time.Time
}

// Run processes every NetCDF file under dir and writes one CSV artifact per
// surviving region. A file that cannot be opened aborts the run with
// domain.ErrSequenceGap: its step count is unknowable, so skipping it would
// silently misdate every subsequent row.
func (p *SeriesProcessor) Run(ctx context.Context, dir string, regions []domain.Region, start time.Time) (*RunResult, error) {
	files, err := ListNetCDFFiles(dir)
	if err != nil {
		return nil, err
	}

	p.logger.Info("extraction run starting",
		"dir", dir, "files", len(files), "regions", len(regions),
		"start_date", start.Format(domain.DateLayout))
	p.metrics.RunActive.Set(1)
	defer p.metrics.RunActive.Set(0)

	result := &RunResult{
		Artifacts:      make(map[string]string),
		DroppedRegions: make(map[string]error),
	}
	series := make(map[string]*domain.RegionSeries, len(regions))
	active := append([]domain.Region(nil), regions...)
	cursor := domain.NewDateCursor(start)

	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run cancelled before %s: %w", path, err)
		}

		fileResult, err := p.processFile(path, active, cursor, i == 0)
		if err != nil {
			return nil, err
		}

		for name, failure := range fileResult.Failed {
			result.DroppedRegions[name] = failure
			active = removeRegion(active, name)
		}
		for _, r := range active {
			s, ok := series[r.Name]
			if !ok {
				s = &domain.RegionSeries{Region: r.Name}
				series[r.Name] = s
			}
			for _, row := range fileResult.Rows[r.Name] {
				s.Append(row)
				result.RowsWritten++
			}
		}

		cursor = cursor.Advance(fileResult.Steps)
		result.FilesProcessed++
	}

	for _, r := range active {
		s, ok := series[r.Name]
		if !ok {
			continue
		}
		path, err := p.sink.WriteSeries(p.variable, s)
		if err != nil {
			return nil, fmt.Errorf("write series for region %q: %w", r.Name, err)
		}
		p.logger.Info("series written", "region", r.Name, "rows", len(s.Rows), "artifact", path)
		result.Artifacts[r.Name] = path
	}

	result.Variable = p.variable
	result.NextDate = cursor.Current()
	p.logger.Info("extraction run complete",
		"files", result.FilesProcessed, "rows", result.RowsWritten,
		"dropped_regions", len(result.DroppedRegions))
	return result, nil
}

// processFile extracts one file with the dataset scoped to this call: the
// handle is released on every exit path before the next file is opened.
func (p *SeriesProcessor) processFile(path string, regions []domain.Region, cursor domain.DateCursor, first bool) (*FileResult, error) {
	start := time.Now()

	ds, err := p.opener.Open(path, p.variable)
	if err != nil {
		return nil, fmt.Errorf("abort at %s: %w: %w", path, err, domain.ErrSequenceGap)
	}
	defer ds.Close()

	if p.variable == "" {
		p.variable = ds.VariableName()
		p.logger.Info("payload variable detected", "variable", p.variable, "file", path)
	}

	skip, err := p.checkContinuity(ds, cursor, first)
	if err != nil {
		return nil, err
	}

	fileResult, err := p.extractor.ExtractFile(ds, regions, cursor, skip)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", path, err)
	}

	p.metrics.FilesProcessed.Inc()
	p.metrics.FileExtractDuration.Observe(time.Since(start).Seconds())
	p.metrics.RowsWritten.Add(float64(fileResult.Steps * (len(regions) - len(fileResult.Failed))))
	p.logger.Info("file processed", "file", path, "steps", fileResult.Steps,
		"skipped_steps", skip, "first_date", cursor.Current().Format(domain.DateLayout))
	return fileResult, nil
}

// checkContinuity reconciles the cursor with the file's own epoch when the
// time axis carries one. The first file may begin before the starting date;
// its leading steps are skipped. Any other disagreement means the filename
// ordering precondition is broken, which is fatal.
func (p *SeriesProcessor) checkContinuity(ds Dataset, cursor domain.DateCursor, first bool) (int, error) {
	fileDate, ok := ds.FirstDate()
	if !ok {
		return 0, nil
	}

	want := cursor.Current()
	if fileDate.Equal(want) {
		return 0, nil
	}
	if first && fileDate.Before(want) {
		return daysBetween(fileDate, want), nil
	}
	return 0, fmt.Errorf("%s begins %s but the date counter expects %s: %w",
		ds.Path(), fileDate.Format(domain.DateLayout), want.Format(domain.DateLayout),
		domain.ErrSequenceGap)
}

// ListNetCDFFiles returns the .nc files directly under dir, sorted
// lexicographically.
func ListNetCDFFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read netcdf directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".nc") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .nc files in %s", dir)
	}
	sort.Strings(files)
	return files, nil
}

func removeRegion(regions []domain.Region, name string) []domain.Region {
	out := regions[:0]
	for _, r := range regions {
		if r.Name != name {
			out = append(out, r)
		}
	}
	return out
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
