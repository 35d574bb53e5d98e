package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/climate-grid-etl/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	NetCDFDir   string
	CSVDir      string
	RegionsFile string
	StartDate   time.Time
	Variable    string // payload variable name; empty means auto-detect
	Tolerance   float64

	HTTPAddr        string // metrics/health listener; empty disables it
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// WAQI station lookup configuration.
	WAQIToken   string
	WAQITimeout time.Duration
	StationFile string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	startDateStr := sharedcfg.EnvOrDefault("START_DATE", "2013-01-01")
	startDate, err := time.Parse(domain.DateLayout, startDateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid START_DATE %q: %w", startDateStr, err)
	}

	tolerance, err := parseTolerance()
	if err != nil {
		return nil, err
	}

	waqiTimeoutStr := sharedcfg.EnvOrDefault("WAQI_TIMEOUT", "5s")
	waqiTimeout, err2 := time.ParseDuration(waqiTimeoutStr)
	if err2 != nil || waqiTimeout <= 0 {
		return nil, errors.New("invalid WAQI_TIMEOUT")
	}

	cfg := &Config{
		NetCDFDir:   os.Getenv("NETCDF_DIR"),
		CSVDir:      sharedcfg.EnvOrDefault("CSV_DIR", "data/csv"),
		RegionsFile: os.Getenv("REGIONS_FILE"),
		StartDate:   startDate,
		Variable:    os.Getenv("VARIABLE"),
		Tolerance:   tolerance,

		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		WAQIToken:   os.Getenv("WAQI_TOKEN"),
		WAQITimeout: waqiTimeout,
		StationFile: sharedcfg.EnvOrDefault("STATION_FILE", "air_quality_stations.txt"),
	}

	if cfg.NetCDFDir == "" {
		return nil, errors.New("NETCDF_DIR is required")
	}

	return cfg, nil
}

// Regions loads the configured regions file, falling back to the built-in
// city set when REGIONS_FILE is unset.
func (c *Config) Regions() ([]domain.Region, error) {
	if c.RegionsFile == "" {
		return domain.DefaultRegions(), nil
	}
	return domain.LoadRegions(c.RegionsFile)
}

func parseTolerance() (float64, error) {
	s := sharedcfg.EnvOrDefault("TOLERANCE", "1e-6")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid TOLERANCE %q", s)
	}
	return v, nil
}
