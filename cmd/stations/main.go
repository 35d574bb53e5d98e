// Command stations queries the World Air Quality Index API for monitoring
// stations in each configured region's city and writes a flat text report.
// A WAQI_TOKEN is required; see https://aqicn.org/data-platform/token/.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/climate-grid-etl/internal/adapter/waqi"
	"github.com/couchcryptid/climate-grid-etl/internal/config"
	"github.com/couchcryptid/climate-grid-etl/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)

	if cfg.WAQIToken == "" {
		logger.Error("WAQI_TOKEN is required")
		os.Exit(1)
	}

	regions, err := cfg.Regions()
	if err != nil {
		logger.Error("failed to load regions", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := waqi.NewClient(cfg.WAQIToken, cfg.WAQITimeout, logger)

	out, err := os.Create(cfg.StationFile)
	if err != nil {
		logger.Error("failed to create station file", "error", err)
		os.Exit(1)
	}
	defer out.Close()

	for _, region := range regions {
		stations, err := client.SearchStations(ctx, region.Name)
		if err != nil {
			logger.Error("station search failed", "city", region.Name, "error", err)
			os.Exit(1)
		}
		if err := waqi.WriteStations(out, region.Name, stations); err != nil {
			logger.Error("failed to write stations", "city", region.Name, "error", err)
			os.Exit(1)
		}
		logger.Info("stations written", "city", region.Name, "count", len(stations))
	}

	logger.Info("station report complete", "file", cfg.StationFile, "cities", len(regions))
}
