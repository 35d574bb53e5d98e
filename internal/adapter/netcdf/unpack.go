package netcdf

import (
	"fmt"

	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"github.com/couchcryptid/climate-grid-etl/internal/domain"
)

// unpacker applies the CF packing attributes the netCDF4 reference libraries
// apply implicitly: raw = stored, value = raw*scale + offset, with fill
// values masked out before scaling.
type unpacker struct {
	scale   float64
	offset  float64
	fill    float64
	hasFill bool
}

func unpackerFromAttrs(attrs api.AttributeMap) unpacker {
	u := unpacker{scale: 1}
	if v, ok := attrFloat(attrs, "scale_factor"); ok {
		u.scale = v
	}
	if v, ok := attrFloat(attrs, "add_offset"); ok {
		u.offset = v
	}
	if v, ok := attrFloat(attrs, "_FillValue"); ok {
		u.fill, u.hasFill = v, true
	} else if v, ok := attrFloat(attrs, "missing_value"); ok {
		u.fill, u.hasFill = v, true
	}
	return u
}

// value converts one stored cell, reporting false for fill cells.
func (u unpacker) value(raw float64) (float64, bool) {
	if u.hasFill && raw == u.fill {
		return 0, false
	}
	return raw*u.scale + u.offset, true
}

// frameMean averages the in-range, non-missing cells of one time-step frame.
// The frame is the GetSlice result for a single step: a 3-D nested slice
// with a leading length-1 time dimension.
func frameMean(frame interface{}, g domain.GridRanges, u unpacker) (domain.Value, error) {
	grid, err := toGrid(frame)
	if err != nil {
		return domain.Value{}, err
	}

	var sum float64
	var n int
	for _, latIdx := range indexes(g.Lat) {
		if latIdx >= len(grid) {
			return domain.Value{}, fmt.Errorf("latitude index %d outside grid of %d rows", latIdx, len(grid))
		}
		row := grid[latIdx]
		for _, lonIdx := range indexes(g.Lon) {
			if lonIdx >= len(row) {
				return domain.Value{}, fmt.Errorf("longitude index %d outside grid row of %d cells", lonIdx, len(row))
			}
			if v, ok := u.value(row[lonIdx]); ok {
				sum += v
				n++
			}
		}
	}
	if n == 0 {
		return domain.NoData(), nil
	}
	return domain.Value{Mean: sum / float64(n)}, nil
}

func indexes(r domain.IndexRange) []int {
	out := make([]int, 0, r.Len())
	for i := r.Start; i < r.End; i++ {
		out = append(out, i)
	}
	return out
}

// toGrid normalizes a single-step frame to [][]float64 regardless of the
// stored element type.
func toGrid(frame interface{}) ([][]float64, error) {
	switch f := frame.(type) {
	case [][][]float64:
		return firstStep(f, func(v float64) float64 { return v })
	case [][][]float32:
		return firstStep(f, func(v float32) float64 { return float64(v) })
	case [][][]int32:
		return firstStep(f, func(v int32) float64 { return float64(v) })
	case [][][]int16:
		return firstStep(f, func(v int16) float64 { return float64(v) })
	case [][][]int8:
		return firstStep(f, func(v int8) float64 { return float64(v) })
	default:
		return nil, fmt.Errorf("unsupported variable element type %T", frame)
	}
}

func firstStep[T any](f [][][]T, conv func(T) float64) ([][]float64, error) {
	if len(f) != 1 {
		return nil, fmt.Errorf("expected one time step per frame, got %d", len(f))
	}
	grid := make([][]float64, len(f[0]))
	for i, row := range f[0] {
		grid[i] = make([]float64, len(row))
		for j, v := range row {
			grid[i][j] = conv(v)
		}
	}
	return grid, nil
}

// toFloat64s converts a 1-D axis variable's values, whatever their stored type.
func toFloat64s(values interface{}) ([]float64, error) {
	switch v := values.(type) {
	case []float64:
		return v, nil
	case []float32:
		return convertSlice(v, func(x float32) float64 { return float64(x) }), nil
	case []int64:
		return convertSlice(v, func(x int64) float64 { return float64(x) }), nil
	case []int32:
		return convertSlice(v, func(x int32) float64 { return float64(x) }), nil
	case []int16:
		return convertSlice(v, func(x int16) float64 { return float64(x) }), nil
	default:
		return nil, fmt.Errorf("unsupported axis element type %T", values)
	}
}

func convertSlice[T any](in []T, conv func(T) float64) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = conv(v)
	}
	return out
}

// attrFloat reads a numeric attribute, tolerating both scalar and
// single-element slice encodings.
func attrFloat(attrs api.AttributeMap, key string) (float64, bool) {
	raw, ok := attrs.Get(key)
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case int16:
		return float64(v), true
	case int8:
		return float64(v), true
	case []float64:
		if len(v) == 1 {
			return v[0], true
		}
	case []float32:
		if len(v) == 1 {
			return float64(v[0]), true
		}
	case []int32:
		if len(v) == 1 {
			return float64(v[0]), true
		}
	case []int16:
		if len(v) == 1 {
			return float64(v[0]), true
		}
	}
	return 0, false
}

// attrString renders a string attribute, tolerating byte-slice encodings.
func attrString(raw interface{}) string {
	switch v := raw.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
