package pipeline_test

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/climate-grid-etl/internal/domain"
	"github.com/couchcryptid/climate-grid-etl/internal/pipeline"
)

func TestSeriesProcessor_SingleFile(t *testing.T) {
	lats, lons := testGrid()
	opener := &fakeOpener{datasets: map[string]*fakeDataset{
		"a.nc": {path: "a.nc", variable: "tg", lats: lats, lons: lons,
			frames: uniformFrames(lats, lons, 15.0, 16.0, 17.0)},
	}}
	sink := newFakeSink()
	p := pipeline.NewSeriesProcessor(opener, sink, "", testLogger(), newTestMetrics())

	result, err := p.Run(context.Background(), sourceDir(t, "a.nc"), []domain.Region{parisRegion()}, day(1))
	require.NoError(t, err)

	assert.Equal(t, "tg", result.Variable)
	assert.Equal(t, 1, result.FilesProcessed)
	assert.Equal(t, 3, result.RowsWritten)
	assert.Equal(t, day(4), result.NextDate)

	series := sink.series["Paris"]
	require.NotNil(t, series)
	require.Len(t, series.Rows, 3)
	assert.Equal(t, day(1), series.Rows[0].Date)
	assert.Equal(t, day(2), series.Rows[1].Date)
	assert.Equal(t, day(3), series.Rows[2].Date)
	assert.InDelta(t, 15.0, series.Rows[0].Value.Mean, 1e-12)
	assert.InDelta(t, 17.0, series.Rows[2].Value.Mean, 1e-12)
}

func TestSeriesProcessor_DateContinuityAcrossFiles(t *testing.T) {
	lats, lons := testGrid()
	opener := &fakeOpener{datasets: map[string]*fakeDataset{
		"2013-a.nc": {path: "2013-a.nc", variable: "tg", lats: lats, lons: lons,
			frames: uniformFrames(lats, lons, 1, 2, 3, 4, 5)},
		"2013-b.nc": {path: "2013-b.nc", variable: "tg", lats: lats, lons: lons,
			frames: uniformFrames(lats, lons, 6, 7, 8, 9, 10, 11, 12)},
	}}
	sink := newFakeSink()
	p := pipeline.NewSeriesProcessor(opener, sink, "tg", testLogger(), newTestMetrics())

	result, err := p.Run(context.Background(), sourceDir(t, "2013-a.nc", "2013-b.nc"),
		[]domain.Region{parisRegion()}, day(1))
	require.NoError(t, err)
	assert.Equal(t, 2, result.FilesProcessed)

	series := sink.series["Paris"]
	require.Len(t, series.Rows, 12)

	// The first row of file 2 carries starting_date + n_1 exactly.
	assert.Equal(t, day(6), series.Rows[5].Date)
	assert.InDelta(t, 6.0, series.Rows[5].Value.Mean, 1e-12)

	// No gaps, no overlaps anywhere.
	for i, row := range series.Rows {
		assert.Equal(t, day(1+i), row.Date)
	}
}

func TestSeriesProcessor_UnreadableFileAbortsRun(t *testing.T) {
	lats, lons := testGrid()
	opener := &fakeOpener{
		datasets: map[string]*fakeDataset{
			"a.nc": {path: "a.nc", variable: "tg", lats: lats, lons: lons,
				frames: uniformFrames(lats, lons, 1, 2)},
		},
		openErr: map[string]error{"b.nc": domain.ErrUnreadableFile},
	}
	sink := newFakeSink()
	p := pipeline.NewSeriesProcessor(opener, sink, "tg", testLogger(), newTestMetrics())

	_, err := p.Run(context.Background(), sourceDir(t, "a.nc", "b.nc"),
		[]domain.Region{parisRegion()}, day(1))
	require.ErrorIs(t, err, domain.ErrSequenceGap)
	require.ErrorIs(t, err, domain.ErrUnreadableFile)
	assert.Contains(t, err.Error(), "b.nc")

	// Nothing is written when the run aborts: a partial artifact with
	// silently wrong dates is worse than no artifact.
	assert.Empty(t, sink.series)
}

func TestSeriesProcessor_BadRegionIsolated(t *testing.T) {
	lats, lons := testGrid()
	opener := &fakeOpener{datasets: map[string]*fakeDataset{
		"a.nc": {path: "a.nc", variable: "tg", lats: lats, lons: lons,
			frames: uniformFrames(lats, lons, 20.0)},
	}}
	sink := newFakeSink()
	p := pipeline.NewSeriesProcessor(opener, sink, "tg", testLogger(), newTestMetrics())

	reykjavik := domain.Region{
		Name: "Reykjavik",
		Box:  domain.BoundingBox{NWLat: 64.4, NWLon: -22.4, SELat: 63.9, SELon: -21.5},
	}
	result, err := p.Run(context.Background(), sourceDir(t, "a.nc"),
		[]domain.Region{parisRegion(), reykjavik, madridRegion()}, day(1))
	require.NoError(t, err)

	require.Contains(t, result.DroppedRegions, "Reykjavik")
	assert.ErrorIs(t, result.DroppedRegions["Reykjavik"], domain.ErrOutOfBoundsRegion)
	assert.NotContains(t, result.Artifacts, "Reykjavik")

	// The other regions still produced full series.
	assert.Len(t, sink.series["Paris"].Rows, 1)
	assert.Len(t, sink.series["Madrid"].Rows, 1)
}

func TestSeriesProcessor_AllMissingStepEmitsGapRow(t *testing.T) {
	lats, lons := testGrid()
	frames := uniformFrames(lats, lons, 10.0, math.NaN(), 12.0)
	opener := &fakeOpener{datasets: map[string]*fakeDataset{
		"a.nc": {path: "a.nc", variable: "tg", lats: lats, lons: lons, frames: frames},
	}}
	sink := newFakeSink()
	p := pipeline.NewSeriesProcessor(opener, sink, "tg", testLogger(), newTestMetrics())

	_, err := p.Run(context.Background(), sourceDir(t, "a.nc"), []domain.Region{parisRegion()}, day(1))
	require.NoError(t, err)

	series := sink.series["Paris"]
	require.Len(t, series.Rows, 3)

	// The gap day is present, flagged, and dated; never zero, never dropped.
	assert.True(t, series.Rows[1].Value.Gap)
	assert.Equal(t, day(2), series.Rows[1].Date)
	assert.False(t, series.Rows[2].Value.Gap)
	assert.Equal(t, day(3), series.Rows[2].Date)
}

func TestSeriesProcessor_EpochContinuityMismatch(t *testing.T) {
	lats, lons := testGrid()
	opener := &fakeOpener{datasets: map[string]*fakeDataset{
		"a.nc": {path: "a.nc", variable: "tg", lats: lats, lons: lons,
			frames:    uniformFrames(lats, lons, 1, 2, 3),
			firstDate: day(1), hasEpoch: true},
		// Claims to start on Jan 7 but the counter expects Jan 4.
		"b.nc": {path: "b.nc", variable: "tg", lats: lats, lons: lons,
			frames:    uniformFrames(lats, lons, 4, 5),
			firstDate: day(7), hasEpoch: true},
	}}
	p := pipeline.NewSeriesProcessor(opener, newFakeSink(), "tg", testLogger(), newTestMetrics())

	_, err := p.Run(context.Background(), sourceDir(t, "a.nc", "b.nc"),
		[]domain.Region{parisRegion()}, day(1))
	require.ErrorIs(t, err, domain.ErrSequenceGap)
	assert.Contains(t, err.Error(), "b.nc")
	assert.Contains(t, err.Error(), "2013-01-07")
}

func TestSeriesProcessor_SkipsLeadingStepsBeforeStartDate(t *testing.T) {
	lats, lons := testGrid()
	// File starts 2012-12-30; run starts 2013-01-01: skip two steps.
	opener := &fakeOpener{datasets: map[string]*fakeDataset{
		"a.nc": {path: "a.nc", variable: "tg", lats: lats, lons: lons,
			frames:    uniformFrames(lats, lons, 98, 99, 100, 101),
			firstDate: day(1).AddDate(0, 0, -2), hasEpoch: true},
	}}
	sink := newFakeSink()
	p := pipeline.NewSeriesProcessor(opener, sink, "tg", testLogger(), newTestMetrics())

	result, err := p.Run(context.Background(), sourceDir(t, "a.nc"), []domain.Region{parisRegion()}, day(1))
	require.NoError(t, err)
	assert.Equal(t, 2, result.RowsWritten)

	series := sink.series["Paris"]
	require.Len(t, series.Rows, 2)
	assert.Equal(t, day(1), series.Rows[0].Date)
	assert.InDelta(t, 100.0, series.Rows[0].Value.Mean, 1e-12)
}

func TestSeriesProcessor_FirstFileAfterStartDateFails(t *testing.T) {
	lats, lons := testGrid()
	opener := &fakeOpener{datasets: map[string]*fakeDataset{
		"a.nc": {path: "a.nc", variable: "tg", lats: lats, lons: lons,
			frames:    uniformFrames(lats, lons, 1),
			firstDate: day(5), hasEpoch: true},
	}}
	p := pipeline.NewSeriesProcessor(opener, newFakeSink(), "tg", testLogger(), newTestMetrics())

	_, err := p.Run(context.Background(), sourceDir(t, "a.nc"), []domain.Region{parisRegion()}, day(1))
	require.ErrorIs(t, err, domain.ErrSequenceGap)
}

func TestSeriesProcessor_DatasetClosedOnEveryPath(t *testing.T) {
	lats, lons := testGrid()
	good := &fakeDataset{path: "a.nc", variable: "tg", lats: lats, lons: lons,
		frames: uniformFrames(lats, lons, 1)}
	failing := &fakeDataset{path: "b.nc", variable: "tg", lats: lats, lons: lons,
		frames: uniformFrames(lats, lons, 2), sliceErr: assert.AnError}
	opener := &fakeOpener{datasets: map[string]*fakeDataset{"a.nc": good, "b.nc": failing}}
	p := pipeline.NewSeriesProcessor(opener, newFakeSink(), "tg", testLogger(), newTestMetrics())

	_, err := p.Run(context.Background(), sourceDir(t, "a.nc", "b.nc"),
		[]domain.Region{parisRegion()}, day(1))
	require.Error(t, err)

	// Handles never accumulate: both files were closed, including the one
	// whose extraction failed.
	assert.True(t, good.closed)
	assert.True(t, failing.closed)
}

func TestSeriesProcessor_ContextCancelled(t *testing.T) {
	lats, lons := testGrid()
	opener := &fakeOpener{datasets: map[string]*fakeDataset{
		"a.nc": {path: "a.nc", variable: "tg", lats: lats, lons: lons,
			frames: uniformFrames(lats, lons, 1)},
	}}
	p := pipeline.NewSeriesProcessor(opener, newFakeSink(), "tg", testLogger(), newTestMetrics())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, sourceDir(t, "a.nc"), []domain.Region{parisRegion()}, day(1))
	require.ErrorIs(t, err, context.Canceled)
}

func TestListNetCDFFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"tg_2014.nc", "tg_2013.nc", "README.md", "notes.txt"} {
		require.NoError(t, touch(filepath.Join(dir, name)))
	}

	files, err := pipeline.ListNetCDFFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)

	// Lexicographic order is the chronological contract.
	assert.Equal(t, filepath.Join(dir, "tg_2013.nc"), files[0])
	assert.Equal(t, filepath.Join(dir, "tg_2014.nc"), files[1])
}

func TestListNetCDFFiles_EmptyDir(t *testing.T) {
	_, err := pipeline.ListNetCDFFiles(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no .nc files")
}
