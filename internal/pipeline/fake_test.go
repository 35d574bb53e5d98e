package pipeline_test

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/climate-grid-etl/internal/domain"
	"github.com/couchcryptid/climate-grid-etl/internal/observability"
	"github.com/couchcryptid/climate-grid-etl/internal/pipeline"
)

// --- fakes ---

// fakeDataset is an in-memory Dataset. Frames are indexed (time, lat, lon);
// NaN cells count as missing.
type fakeDataset struct {
	path      string
	variable  string
	lats      []float64
	lons      []float64
	frames    [][][]float64
	firstDate time.Time
	hasEpoch  bool

	closed   bool
	sliceErr error
}

func (d *fakeDataset) Path() string                 { return d.path }
func (d *fakeDataset) VariableName() string         { return d.variable }
func (d *fakeDataset) Latitudes() []float64         { return d.lats }
func (d *fakeDataset) Longitudes() []float64        { return d.lons }
func (d *fakeDataset) TimeSteps() int               { return len(d.frames) }
func (d *fakeDataset) FirstDate() (time.Time, bool) { return d.firstDate, d.hasEpoch }
func (d *fakeDataset) Close() error                 { d.closed = true; return nil }

func (d *fakeDataset) SliceMean(step int, g domain.GridRanges) (domain.Value, error) {
	if d.sliceErr != nil {
		return domain.Value{}, d.sliceErr
	}
	frame := d.frames[step]
	var sum float64
	var n int
	for i := g.Lat.Start; i < g.Lat.End; i++ {
		for j := g.Lon.Start; j < g.Lon.End; j++ {
			if math.IsNaN(frame[i][j]) {
				continue
			}
			sum += frame[i][j]
			n++
		}
	}
	if n == 0 {
		return domain.NoData(), nil
	}
	return domain.Value{Mean: sum / float64(n)}, nil
}

// fakeOpener serves fakeDatasets by path and records every open so tests can
// assert deterministic handle release.
type fakeOpener struct {
	datasets map[string]*fakeDataset
	openErr  map[string]error
	opened   []*fakeDataset
}

// Open resolves by basename so tests can pair placeholder files in a temp
// directory with in-memory datasets.
func (o *fakeOpener) Open(path, variable string) (pipeline.Dataset, error) {
	name := filepath.Base(path)
	if err, ok := o.openErr[name]; ok {
		return nil, err
	}
	ds, ok := o.datasets[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrUnreadableFile)
	}
	if variable != "" && variable != ds.variable {
		return nil, fmt.Errorf("%s: no variable %q: %w", path, variable, domain.ErrUnreadableFile)
	}
	o.opened = append(o.opened, ds)
	return ds, nil
}

// fakeSink captures written series in memory.
type fakeSink struct {
	variable string
	series   map[string]*domain.RegionSeries
	writeErr error
}

func newFakeSink() *fakeSink {
	return &fakeSink{series: make(map[string]*domain.RegionSeries)}
}

func (s *fakeSink) WriteSeries(variable string, series *domain.RegionSeries) (string, error) {
	if s.writeErr != nil {
		return "", s.writeErr
	}
	s.variable = variable
	s.series[series.Region] = series
	return "fake://" + variable + "/" + series.Region, nil
}

// --- helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

// testGrid is a 0.25-degree grid that comfortably contains the Paris and
// Madrid boxes.
func testGrid() ([]float64, []float64) {
	lats := make([]float64, 100)
	for i := range lats {
		lats[i] = 35.0 + 0.25*float64(i)
	}
	lons := make([]float64, 120)
	for i := range lons {
		lons[i] = -10.0 + 0.25*float64(i)
	}
	return lats, lons
}

// uniformFrames builds frames where every cell of frame t holds values[t].
func uniformFrames(lats, lons []float64, values ...float64) [][][]float64 {
	frames := make([][][]float64, len(values))
	for t, v := range values {
		frame := make([][]float64, len(lats))
		for i := range frame {
			row := make([]float64, len(lons))
			for j := range row {
				row[j] = v
			}
			frame[i] = row
		}
		frames[t] = frame
	}
	return frames
}

func parisRegion() domain.Region {
	return domain.Region{
		Name: "Paris",
		Box:  domain.BoundingBox{NWLat: 49.1, NWLon: 1.8, SELat: 48.5, SELon: 3.0},
	}
}

func madridRegion() domain.Region {
	return domain.Region{
		Name: "Madrid",
		Box:  domain.BoundingBox{NWLat: 40.8, NWLon: -4.0, SELat: 40.0, SELon: -3.4},
	}
}

func day(d int) time.Time {
	return time.Date(2013, time.January, d, 0, 0, 0, 0, time.UTC)
}

// sourceDir creates a directory of empty placeholder .nc files; the fake
// opener serves the actual data for them by basename.
func sourceDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		require.NoError(t, touch(filepath.Join(dir, name)))
	}
	return dir
}

func touch(path string) error {
	return os.WriteFile(path, nil, 0o644)
}
