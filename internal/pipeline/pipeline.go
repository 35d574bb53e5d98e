// Package pipeline orchestrates regional extraction from NetCDF file
// sequences and independent verification of the emitted CSV artifacts.
package pipeline

import (
	"time"

	"github.com/couchcryptid/climate-grid-etl/internal/domain"
)

// Dataset is one opened gridded file. Implementations own their axis buffers
// for the duration of one file's processing and release them on Close.
type Dataset interface {
	// Path returns the file path the dataset was opened from.
	Path() string
	// VariableName returns the payload variable being extracted.
	VariableName() string
	// Latitudes returns the latitude axis samples, ascending or descending.
	Latitudes() []float64
	// Longitudes returns the longitude axis samples.
	Longitudes() []float64
	// TimeSteps returns the length of the time axis.
	TimeSteps() int
	// FirstDate returns the calendar date of the first time step when the
	// file's time axis carries a decodable epoch.
	FirstDate() (time.Time, bool)
	// SliceMean aggregates one time step over the given index ranges,
	// excluding missing cells. An all-missing range yields the no-data
	// sentinel, never zero.
	SliceMean(step int, g domain.GridRanges) (domain.Value, error)
	// Close releases the file handle. It must be called on every exit path.
	Close() error
}

// DatasetOpener opens one dataset per file. An empty variable name asks the
// implementation to auto-detect the payload variable.
type DatasetOpener interface {
	Open(path, variable string) (Dataset, error)
}

// OpenerFunc adapts a function to the DatasetOpener interface.
type OpenerFunc func(path, variable string) (Dataset, error)

// Open calls f.
func (f OpenerFunc) Open(path, variable string) (Dataset, error) {
	return f(path, variable)
}

// SeriesWriter persists one region's complete series as an artifact.
// It is implemented by csvstore.Store.
type SeriesWriter interface {
	WriteSeries(variable string, series *domain.RegionSeries) (string, error)
}

// SeriesReader loads a previously written artifact.
// It is implemented by csvstore.Store.
type SeriesReader interface {
	ReadSeries(variable, region string) (*domain.RegionSeries, error)
}
