// Package netcdf adapts gridded NetCDF files to the pipeline's Dataset
// interface using the pure-Go go-native-netcdf reader.
package netcdf

import (
	"fmt"
	"strings"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"github.com/couchcryptid/climate-grid-etl/internal/domain"
)

// Fixed coordinate variable names the extraction convention depends on.
const (
	latVar  = "latitude"
	lonVar  = "longitude"
	timeVar = "time"
)

// Dataset is one opened NetCDF file. It owns its axis buffers and the payload
// variable getter for its own lifetime and must be closed after use.
type Dataset struct {
	path     string
	group    api.Group
	variable string
	getter   api.VarGetter

	lats      []float64
	lons      []float64
	timeSteps int
	epoch     time.Time
	hasEpoch  bool

	unpack unpacker
}

// Opener opens datasets from paths. It implements pipeline.DatasetOpener.
type Opener struct{}

// Open reads a NetCDF file's axes and locates its payload variable.
// Missing files, malformed files, and files lacking the expected variable or
// axis names all fail with an error matching domain.ErrUnreadableFile.
func (Opener) Open(path, variable string) (*Dataset, error) {
	group, err := netcdf.Open(path)
	if err != nil {
		return nil, unreadable(path, fmt.Sprintf("open: %s", err))
	}

	d := &Dataset{path: path, group: group}
	if err := d.init(variable); err != nil {
		group.Close()
		return nil, err
	}
	return d, nil
}

func (d *Dataset) init(variable string) error {
	var err error
	if d.lats, err = d.axisValues(latVar); err != nil {
		return err
	}
	if d.lons, err = d.axisValues(lonVar); err != nil {
		return err
	}
	if err = d.readTimeAxis(); err != nil {
		return err
	}

	if variable == "" {
		if variable = d.detectVariable(); variable == "" {
			return unreadable(d.path, "no payload variable besides the coordinate axes")
		}
	}
	d.variable = variable

	getter, err := d.group.GetVarGetter(variable)
	if err != nil {
		return unreadable(d.path, fmt.Sprintf("variable %q: %s", variable, err))
	}
	dims := getter.Dimensions()
	if len(dims) != 3 || dims[0] != timeVar || dims[1] != latVar || dims[2] != lonVar {
		return unreadable(d.path, fmt.Sprintf("variable %q has dimensions %v, want [%s %s %s]",
			variable, dims, timeVar, latVar, lonVar))
	}
	d.getter = getter
	d.unpack = unpackerFromAttrs(getter.Attributes())
	return nil
}

// detectVariable returns the first variable that is not a coordinate axis,
// mirroring the extraction convention: one payload variable per file.
func (d *Dataset) detectVariable() string {
	for _, name := range d.group.ListVariables() {
		if name != latVar && name != lonVar && name != timeVar {
			return name
		}
	}
	return ""
}

func (d *Dataset) axisValues(name string) ([]float64, error) {
	v, err := d.group.GetVariable(name)
	if err != nil {
		return nil, unreadable(d.path, fmt.Sprintf("axis %q: %s", name, err))
	}
	vals, err := toFloat64s(v.Values)
	if err != nil {
		return nil, unreadable(d.path, fmt.Sprintf("axis %q: %s", name, err))
	}
	if len(vals) == 0 {
		return nil, unreadable(d.path, fmt.Sprintf("axis %q is empty", name))
	}
	return vals, nil
}

// readTimeAxis records the number of time steps and, when the units attribute
// follows the "days since YYYY-MM-DD" convention, the calendar date of the
// file's first step.
func (d *Dataset) readTimeAxis() error {
	v, err := d.group.GetVariable(timeVar)
	if err != nil {
		return unreadable(d.path, fmt.Sprintf("axis %q: %s", timeVar, err))
	}
	offsets, err := toFloat64s(v.Values)
	if err != nil {
		return unreadable(d.path, fmt.Sprintf("axis %q: %s", timeVar, err))
	}
	if len(offsets) == 0 {
		return unreadable(d.path, "time axis is empty")
	}
	d.timeSteps = len(offsets)

	if units, ok := v.Attributes.Get("units"); ok {
		if epoch, ok := parseDaysSince(attrString(units)); ok {
			d.epoch = epoch.AddDate(0, 0, int(offsets[0]))
			d.hasEpoch = true
		}
	}
	return nil
}

// Path returns the file path the dataset was opened from.
func (d *Dataset) Path() string { return d.path }

// VariableName returns the payload variable being extracted.
func (d *Dataset) VariableName() string { return d.variable }

// Latitudes returns the latitude axis samples.
func (d *Dataset) Latitudes() []float64 { return d.lats }

// Longitudes returns the longitude axis samples.
func (d *Dataset) Longitudes() []float64 { return d.lons }

// TimeSteps returns the length of the time axis.
func (d *Dataset) TimeSteps() int { return d.timeSteps }

// FirstDate returns the calendar date of the file's first time step, when
// the time axis carried a decodable "days since" epoch.
func (d *Dataset) FirstDate() (time.Time, bool) { return d.epoch, d.hasEpoch }

// SliceMean reads one time step of the payload variable over the given index
// ranges and returns the spatial mean. Cells carrying the fill value are
// excluded from the aggregate; if every cell in range is missing the result
// is the no-data sentinel, not zero.
func (d *Dataset) SliceMean(step int, g domain.GridRanges) (domain.Value, error) {
	if step < 0 || step >= d.timeSteps {
		return domain.Value{}, fmt.Errorf("time step %d outside [0, %d)", step, d.timeSteps)
	}
	frame, err := d.getter.GetSlice(int64(step), int64(step)+1)
	if err != nil {
		return domain.Value{}, unreadable(d.path, fmt.Sprintf("read step %d: %s", step, err))
	}
	return frameMean(frame, g, d.unpack)
}

// Close releases the file handle.
func (d *Dataset) Close() error {
	d.group.Close()
	return nil
}

func unreadable(path, detail string) error {
	return fmt.Errorf("%s: %s: %w", path, detail, domain.ErrUnreadableFile)
}

// parseDaysSince decodes time axis units of the form
// "days since 1950-01-01" (an optional clock suffix is ignored).
func parseDaysSince(units string) (time.Time, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(units), "days since ")
	if !ok {
		return time.Time{}, false
	}
	datePart, _, _ := strings.Cut(strings.TrimSpace(rest), " ")
	epoch, err := time.Parse(domain.DateLayout, datePart)
	if err != nil {
		return time.Time{}, false
	}
	return epoch, true
}
