package pipeline

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/climate-grid-etl/internal/domain"
	"github.com/couchcryptid/climate-grid-etl/internal/observability"
)

// RegionExtractor produces one row per (region, time step) from one open
// dataset. Index ranges are derived once per (region, dataset) pair and
// reused across all of the file's time steps.
type RegionExtractor struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewRegionExtractor creates a RegionExtractor.
func NewRegionExtractor(logger *slog.Logger, metrics *observability.Metrics) *RegionExtractor {
	return &RegionExtractor{logger: logger, metrics: metrics}
}

// FileResult holds one file's contribution to the run.
type FileResult struct {
	// Rows maps region name to that region's rows, in time-step order.
	Rows map[string][]domain.OutputRow
	// Steps is the number of time steps emitted (after any leading skip).
	Steps int
	// Failed maps region names to the grid mismatch that dropped them.
	Failed map[string]error
}

// ExtractFile extracts every region from one dataset. The first skip time
// steps are not emitted; the cursor dates the first emitted step.
//
// Region-level failures (out-of-bounds or empty boxes) are isolated: the
// failing region is recorded in FileResult.Failed and the remaining regions
// proceed. Any read failure is fatal for the whole file because continuing
// would leave the affected regions silently short of rows.
func (e *RegionExtractor) ExtractFile(ds Dataset, regions []domain.Region, cursor domain.DateCursor, skip int) (*FileResult, error) {
	result := &FileResult{
		Rows:   make(map[string][]domain.OutputRow, len(regions)),
		Failed: make(map[string]error),
	}

	type target struct {
		region domain.Region
		ranges domain.GridRanges
	}
	targets := make([]target, 0, len(regions))
	for _, r := range regions {
		ranges, err := domain.LocateRanges(r.Box, ds.Latitudes(), ds.Longitudes())
		if err != nil {
			if !errors.Is(err, domain.ErrOutOfBoundsRegion) && !errors.Is(err, domain.ErrEmptyRegion) {
				return nil, fmt.Errorf("region %q on %s: %w", r.Name, ds.Path(), err)
			}
			e.logger.Error("region does not fit grid, dropping from run",
				"region", r.Name, "file", ds.Path(), "error", err)
			e.metrics.RegionFailures.Inc()
			result.Failed[r.Name] = err
			continue
		}
		targets = append(targets, target{region: r, ranges: ranges})
	}

	steps := ds.TimeSteps()
	if skip < 0 || skip > steps {
		return nil, fmt.Errorf("skip %d outside file's %d time steps", skip, steps)
	}

	for step := skip; step < steps; step++ {
		date := cursor.At(step - skip)
		for _, t := range targets {
			value, err := ds.SliceMean(step, t.ranges)
			if err != nil {
				return nil, fmt.Errorf("region %q step %d (%s): %w",
					t.region.Name, step, date.Format(domain.DateLayout), err)
			}
			if value.Gap {
				e.logger.Debug("no data in range for step",
					"region", t.region.Name, "date", date.Format(domain.DateLayout))
				e.metrics.NoDataGaps.Inc()
			}
			result.Rows[t.region.Name] = append(result.Rows[t.region.Name], domain.OutputRow{
				Region: t.region.Name,
				Date:   date,
				Value:  value,
			})
		}
	}
	result.Steps = steps - skip
	return result, nil
}
