// Command verify re-derives every regional mean directly from the NetCDF
// sources and compares it against the CSV artifacts produced by extract.
// Every row in both directions is checked; rows present on only one side
// are reported as missing counterparts.
//
// Usage:
//
//	go run ./cmd/verify \
//	  -netcdf-dir data/netcdf \
//	  -csv-dir data/csv \
//	  -start-date 2013-01-01
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/couchcryptid/climate-grid-etl/internal/adapter/csvstore"
	netcdfadapter "github.com/couchcryptid/climate-grid-etl/internal/adapter/netcdf"
	"github.com/couchcryptid/climate-grid-etl/internal/domain"
	"github.com/couchcryptid/climate-grid-etl/internal/observability"
	"github.com/couchcryptid/climate-grid-etl/internal/pipeline"
)

func main() {
	netcdfDir := flag.String("netcdf-dir", "", "directory containing the NetCDF source files")
	csvDir := flag.String("csv-dir", "data/csv", "directory containing the CSV artifacts")
	startDate := flag.String("start-date", "2013-01-01", "date the extraction run started on (YYYY-MM-DD)")
	variable := flag.String("variable", "", "payload variable name (auto-detected when empty)")
	regionsFile := flag.String("regions-file", "", "JSON file with region bounding boxes (built-ins when empty)")
	tolerance := flag.Float64("tolerance", 1e-6, "maximum absolute difference treated as a match")
	verbose := flag.Bool("v", false, "log recompute progress to stderr")
	flag.Parse()

	if *netcdfDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*netcdfDir, *csvDir, *startDate, *variable, *regionsFile, *tolerance, *verbose); code != 0 {
		os.Exit(code)
	}
}

func run(netcdfDir, csvDir, startDate, variable, regionsFile string, tolerance float64, verbose bool) int {
	start, err := time.Parse(domain.DateLayout, startDate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: parse start date: %v\n", err)
		return 1
	}

	regions := domain.DefaultRegions()
	if regionsFile != "" {
		regions, err = domain.LoadRegions(regionsFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load regions: %v\n", err)
			return 1
		}
	}

	var logOut io.Writer = io.Discard
	if verbose {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(logOut, nil))
	metrics := observability.NewMetricsForTesting()

	opener := pipeline.OpenerFunc(func(path, v string) (pipeline.Dataset, error) {
		return netcdfadapter.Opener{}.Open(path, v)
	})
	store := csvstore.NewStore(csvDir)
	verifier := pipeline.NewVerifier(opener, store, variable, tolerance, logger, metrics)

	fmt.Println("=== Climate Grid Artifact Verification ===")
	fmt.Println()

	report, err := verifier.Run(context.Background(), netcdfDir, regions, start)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: recompute from sources: %v\n", err)
		return 1
	}

	printReport(report)

	if report.Failed() {
		fmt.Println("\nVerification FAILED.")
		return 1
	}
	fmt.Println("\nAll rows verified.")
	return 0
}

func printReport(report *domain.VerificationReport) {
	status := "\033[32mPASS\033[0m"
	if report.Failed() {
		status = fmt.Sprintf("\033[31mFAIL (%d mismatches, %d missing)\033[0m",
			report.Mismatches, report.MissingCounterparts)
	}
	fmt.Printf("  %-42s %s\n", "stored vs recomputed means", status)
	fmt.Println()
	fmt.Printf("Rows: %d compared, %d passed, %d mismatched, %d missing counterparts\n",
		len(report.Records), report.Passes, report.Mismatches, report.MissingCounterparts)

	for _, rec := range report.Records {
		if rec.Outcome == domain.OutcomePass {
			continue
		}
		switch rec.Outcome {
		case domain.OutcomeMismatch:
			if math.IsNaN(rec.Diff) {
				fmt.Printf("  MISMATCH %s %s: gap on one side only\n",
					rec.Region, rec.Date.Format(domain.DateLayout))
				continue
			}
			fmt.Printf("  MISMATCH %s %s: stored=%g recomputed=%g diff=%g\n",
				rec.Region, rec.Date.Format(domain.DateLayout),
				rec.Stored.Mean, rec.Recomputed.Mean, rec.Diff)
		case domain.OutcomeMissingCounterpart:
			fmt.Printf("  MISSING  %s %s: present on one side only\n",
				rec.Region, rec.Date.Format(domain.DateLayout))
		}
	}
}
