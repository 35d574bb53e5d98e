// Command extract walks a directory of NetCDF files in chronological
// filename order and writes one CSV time-series artifact per configured
// region. Configuration comes from the environment; see internal/config.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/climate-grid-etl/internal/adapter/csvstore"
	httpadapter "github.com/couchcryptid/climate-grid-etl/internal/adapter/http"
	netcdfadapter "github.com/couchcryptid/climate-grid-etl/internal/adapter/netcdf"
	"github.com/couchcryptid/climate-grid-etl/internal/config"
	"github.com/couchcryptid/climate-grid-etl/internal/domain"
	"github.com/couchcryptid/climate-grid-etl/internal/observability"
	"github.com/couchcryptid/climate-grid-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	regions, err := cfg.Regions()
	if err != nil {
		logger.Error("failed to load regions", "error", err)
		os.Exit(1)
	}

	opener := pipeline.OpenerFunc(func(path, variable string) (pipeline.Dataset, error) {
		return netcdfadapter.Opener{}.Open(path, variable)
	})
	store := csvstore.NewStore(cfg.CSVDir)
	processor := pipeline.NewSeriesProcessor(opener, store, cfg.Variable, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional metrics/health listener for long runs.
	if cfg.HTTPAddr != "" {
		srv := httpadapter.NewServer(cfg.HTTPAddr, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
		}()
	}

	result, err := processor.Run(ctx, cfg.NetCDFDir, regions, cfg.StartDate)
	if err != nil {
		logger.Error("extraction run failed", "error", err)
		os.Exit(1)
	}

	logger.Info("extraction finished",
		"variable", result.Variable,
		"files", result.FilesProcessed,
		"rows", result.RowsWritten,
		"artifacts", len(result.Artifacts),
		"next_date", result.NextDate.Format(domain.DateLayout))

	if len(result.DroppedRegions) > 0 {
		logger.Warn("some regions were dropped", "count", len(result.DroppedRegions))
		os.Exit(2)
	}
}
