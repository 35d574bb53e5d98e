package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/climate-grid-etl/internal/domain"
	"github.com/couchcryptid/climate-grid-etl/internal/observability"
)

// Verifier recomputes every output row from the NetCDF sources and compares
// the stored CSV artifacts against them. It owns no long-lived state: each
// run re-derives index ranges, re-reads the files, and re-reads the
// artifacts. Mismatches are reported, never fatal; the pass always
// enumerates every row.
type Verifier struct {
	opener    DatasetOpener
	store     SeriesReader
	logger    *slog.Logger
	metrics   *observability.Metrics
	variable  string
	tolerance float64
}

// NewVerifier creates a Verifier. An empty variable auto-detects from the
// first file, exactly as extraction does.
func NewVerifier(opener DatasetOpener, store SeriesReader, variable string, tolerance float64,
	logger *slog.Logger, metrics *observability.Metrics) *Verifier {
	return &Verifier{
		opener:    opener,
		store:     store,
		logger:    logger,
		metrics:   metrics,
		variable:  variable,
		tolerance: tolerance,
	}
}

// Run verifies every region's artifact against the source directory and
// returns the full report. The error return covers environmental failures
// only (unreadable source directory or sequence gaps); value mismatches and
// missing counterparts land in the report.
func (v *Verifier) Run(ctx context.Context, dir string, regions []domain.Region, start time.Time) (*domain.VerificationReport, error) {
	// Recompute through the same pipeline the extraction used, into an
	// in-memory sink. This re-derives index ranges and re-reads every file
	// independently of whatever run produced the artifacts.
	sink := newMemorySink()
	recompute := NewSeriesProcessor(v.opener, sink, v.variable,
		v.logger.With("phase", "recompute"), v.metrics)
	runResult, err := recompute.Run(ctx, dir, regions, start)
	if err != nil {
		return nil, fmt.Errorf("recompute source series: %w", err)
	}

	report := domain.NewVerificationReport(v.tolerance)
	for _, r := range regions {
		v.verifyRegion(report, runResult.Variable, r.Name, sink.series[r.Name])
	}

	v.logger.Info("verification complete",
		"passes", report.Passes,
		"mismatches", report.Mismatches,
		"missing_counterparts", report.MissingCounterparts,
		"tolerance", report.Tolerance)
	return report, nil
}

// verifyRegion compares one region's stored artifact against its recomputed
// series, row by row, aligned on date.
func (v *Verifier) verifyRegion(report *domain.VerificationReport, variable, region string, recomputed *domain.RegionSeries) {
	stored, err := v.store.ReadSeries(variable, region)
	if err != nil {
		if recomputed == nil || len(recomputed.Rows) == 0 {
			// Region produced nothing and has no artifact: nothing to check.
			v.logger.Warn("region has no artifact and no source rows", "region", region)
			return
		}
		v.logger.Error("artifact unreadable, reporting source rows as unmatched",
			"region", region, "error", err)
		for _, row := range recomputed.Rows {
			v.addRecord(report, domain.VerificationRecord{
				Region:     region,
				Date:       row.Date,
				Recomputed: row.Value,
				Outcome:    domain.OutcomeMissingCounterpart,
			})
		}
		return
	}

	fresh := make(map[time.Time]domain.Value)
	if recomputed != nil {
		for _, row := range recomputed.Rows {
			fresh[row.Date] = row.Value
		}
	}

	for _, row := range stored.Rows {
		want, ok := fresh[row.Date]
		if !ok {
			v.addRecord(report, domain.VerificationRecord{
				Region:  region,
				Date:    row.Date,
				Stored:  row.Value,
				Outcome: domain.OutcomeMissingCounterpart,
			})
			continue
		}
		delete(fresh, row.Date)
		v.addRecord(report, domain.Compare(region, row.Date, row.Value, want, v.tolerance))
	}

	// Whatever is left was recomputed from source but never stored.
	if recomputed != nil {
		for _, row := range recomputed.Rows {
			if _, left := fresh[row.Date]; !left {
				continue
			}
			v.addRecord(report, domain.VerificationRecord{
				Region:     region,
				Date:       row.Date,
				Recomputed: row.Value,
				Outcome:    domain.OutcomeMissingCounterpart,
			})
		}
	}
}

func (v *Verifier) addRecord(report *domain.VerificationReport, rec domain.VerificationRecord) {
	report.Add(rec)
	v.metrics.RowsCompared.Inc()
	switch rec.Outcome {
	case domain.OutcomeMismatch:
		v.metrics.Mismatches.Inc()
		v.logger.Warn("row outside tolerance",
			"region", rec.Region, "date", rec.Date.Format(domain.DateLayout),
			"stored", rec.Stored.Mean, "recomputed", rec.Recomputed.Mean, "diff", rec.Diff)
	case domain.OutcomeMissingCounterpart:
		v.metrics.MissingCounterparts.Inc()
		v.logger.Warn("row missing counterpart",
			"region", rec.Region, "date", rec.Date.Format(domain.DateLayout))
	}
}

// memorySink captures recomputed series without touching disk.
type memorySink struct {
	series map[string]*domain.RegionSeries
}

func newMemorySink() *memorySink {
	return &memorySink{series: make(map[string]*domain.RegionSeries)}
}

func (m *memorySink) WriteSeries(variable string, series *domain.RegionSeries) (string, error) {
	m.series[series.Region] = series
	return "memory://" + variable + "/" + series.Region, nil
}
