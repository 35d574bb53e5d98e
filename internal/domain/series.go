package domain

import (
	"math"
	"time"
)

// DateLayout is the ISO calendar date format used in CSV artifacts and
// configuration.
const DateLayout = "2006-01-02"

// Value is a spatially aggregated measurement for one region and time step.
// Gap marks a legitimate no-data result (every cell in range carried the
// fill value); a gap row is emitted with an empty value column, never zero.
type Value struct {
	Mean float64
	Gap  bool
}

// NoData returns the sentinel gap value.
func NoData() Value { return Value{Mean: math.NaN(), Gap: true} }

// OutputRow is one dated aggregate for one region.
type OutputRow struct {
	Region string
	Date   time.Time
	Value  Value
}

// RegionSeries is the append-only, chronologically ordered output sequence
// for one region, written as one CSV artifact at the end of a run.
type RegionSeries struct {
	Region string
	Rows   []OutputRow
}

// Append adds a row. Rows arrive in time-step order, so append preserves
// chronology.
func (s *RegionSeries) Append(row OutputRow) {
	s.Rows = append(s.Rows, row)
}

// DateCursor is the run-wide day counter. It is an explicit value threaded
// through the file-processing loop rather than shared state, so independent
// runs and tests never interfere.
type DateCursor struct {
	date time.Time
}

// NewDateCursor seeds a cursor at the run's starting date (midnight UTC).
func NewDateCursor(start time.Time) DateCursor {
	return DateCursor{date: time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)}
}

// Current returns the date the next emitted row will carry.
func (c DateCursor) Current() time.Time { return c.date }

// Advance returns a cursor moved forward by n days.
func (c DateCursor) Advance(n int) DateCursor {
	return DateCursor{date: c.date.AddDate(0, 0, n)}
}

// At returns the date n steps ahead of the cursor without moving it.
func (c DateCursor) At(n int) time.Time { return c.date.AddDate(0, 0, n) }

// VerificationRecord is the outcome of comparing one stored CSV row against
// a freshly recomputed grid value. Ephemeral; it lives only in reports.
type VerificationRecord struct {
	Region     string
	Date       time.Time
	Stored     Value
	Recomputed Value
	Diff       float64
	Outcome    VerificationOutcome
}

// VerificationOutcome classifies one compared row.
type VerificationOutcome string

const (
	// OutcomePass means |stored - recomputed| <= tolerance, or both sides
	// agree the row is a no-data gap.
	OutcomePass VerificationOutcome = "pass"
	// OutcomeMismatch means the absolute difference exceeded tolerance, or
	// exactly one side is a gap.
	OutcomeMismatch VerificationOutcome = "mismatch"
	// OutcomeMissingCounterpart means a row exists in the CSV but not in the
	// source, or vice versa.
	OutcomeMissingCounterpart VerificationOutcome = "missing_counterpart"
)

// Compare evaluates a stored value against a recomputed one. Two gaps agree;
// one gap is a mismatch; otherwise the absolute difference is checked
// against tolerance.
func Compare(region string, date time.Time, stored, recomputed Value, tolerance float64) VerificationRecord {
	rec := VerificationRecord{
		Region:     region,
		Date:       date,
		Stored:     stored,
		Recomputed: recomputed,
	}
	switch {
	case stored.Gap && recomputed.Gap:
		rec.Outcome = OutcomePass
	case stored.Gap != recomputed.Gap:
		rec.Outcome = OutcomeMismatch
		rec.Diff = math.NaN()
	default:
		rec.Diff = math.Abs(stored.Mean - recomputed.Mean)
		if rec.Diff <= tolerance {
			rec.Outcome = OutcomePass
		} else {
			rec.Outcome = OutcomeMismatch
		}
	}
	return rec
}

// VerificationReport aggregates a full verification pass. The pass always
// enumerates every row; mismatches are counted, never fatal.
type VerificationReport struct {
	GeneratedAt time.Time
	Tolerance   float64
	Records     []VerificationRecord

	Passes              int
	Mismatches          int
	MissingCounterparts int
}

// NewVerificationReport creates an empty report stamped with the domain clock.
func NewVerificationReport(tolerance float64) *VerificationReport {
	return &VerificationReport{
		GeneratedAt: clock.Now().UTC(),
		Tolerance:   tolerance,
	}
}

// Add records one comparison outcome.
func (r *VerificationReport) Add(rec VerificationRecord) {
	r.Records = append(r.Records, rec)
	switch rec.Outcome {
	case OutcomePass:
		r.Passes++
	case OutcomeMismatch:
		r.Mismatches++
	case OutcomeMissingCounterpart:
		r.MissingCounterparts++
	}
}

// Failed reports whether any compared row fell outside tolerance or lacked
// a counterpart.
func (r *VerificationReport) Failed() bool {
	return r.Mismatches > 0 || r.MissingCounterparts > 0
}
