package domain

import (
	"fmt"
	"math"
)

// IndexRange is a half-open [Start, End) interval over an axis's sample
// indices. A valid range satisfies 0 <= Start < End <= axis length.
type IndexRange struct {
	Start int
	End   int
}

// Len returns the number of indices covered by the range.
func (r IndexRange) Len() int { return r.End - r.Start }

// GridRanges holds the latitude and longitude index ranges a bounding box
// maps to on one dataset's grid.
type GridRanges struct {
	Lat IndexRange
	Lon IndexRange
}

// Cells returns the number of grid cells covered.
func (g GridRanges) Cells() int { return g.Lat.Len() * g.Lon.Len() }

// LocateRanges maps a bounding box onto a dataset's axis arrays. Each corner
// coordinate snaps to its nearest axis sample; the two snapped indices per
// axis form a half-open range normalized so Start < End regardless of axis
// direction (descending-latitude grids are common).
//
// A corner outside the axis domain fails with ErrOutOfBoundsRegion. A box
// whose corners snap to fewer than one cell per axis fails with
// ErrEmptyRegion.
func LocateRanges(box BoundingBox, latitudes, longitudes []float64) (GridRanges, error) {
	nwLatIdx, err := nearestIndex(latitudes, box.NWLat, "latitude")
	if err != nil {
		return GridRanges{}, err
	}
	seLatIdx, err := nearestIndex(latitudes, box.SELat, "latitude")
	if err != nil {
		return GridRanges{}, err
	}
	nwLonIdx, err := nearestIndex(longitudes, box.NWLon, "longitude")
	if err != nil {
		return GridRanges{}, err
	}
	seLonIdx, err := nearestIndex(longitudes, box.SELon, "longitude")
	if err != nil {
		return GridRanges{}, err
	}

	g := GridRanges{
		Lat: normalizeRange(nwLatIdx, seLatIdx),
		Lon: normalizeRange(nwLonIdx, seLonIdx),
	}
	if !containsSample(latitudes, g.Lat, box.SELat, box.NWLat) ||
		!containsSample(longitudes, g.Lon, box.NWLon, box.SELon) {
		return GridRanges{}, fmt.Errorf("box (%.2f,%.2f)-(%.2f,%.2f) rounds to zero cells: %w",
			box.NWLat, box.NWLon, box.SELat, box.SELon, ErrEmptyRegion)
	}
	return g, nil
}

// containsSample reports whether any axis sample in the range lies inside
// [lo, hi]. A box narrower than one grid cell can snap both corners to a
// sample that sits outside the box itself; such a box covers zero cells.
func containsSample(axis []float64, r IndexRange, lo, hi float64) bool {
	for i := r.Start; i < r.End; i++ {
		if axis[i] >= lo && axis[i] <= hi {
			return true
		}
	}
	return false
}

// nearestIndex finds the index of the axis sample closest to coordinate.
// The axis may ascend or descend; it only needs to be monotonic.
func nearestIndex(axis []float64, coordinate float64, axisName string) (int, error) {
	if len(axis) == 0 {
		return 0, fmt.Errorf("%s axis is empty: %w", axisName, ErrOutOfBoundsRegion)
	}

	lo, hi := axis[0], axis[len(axis)-1]
	if lo > hi {
		lo, hi = hi, lo
	}
	if coordinate < lo || coordinate > hi {
		return 0, fmt.Errorf("%s %.4f outside axis domain [%.4f, %.4f]: %w",
			axisName, coordinate, lo, hi, ErrOutOfBoundsRegion)
	}

	best := 0
	bestDist := math.Abs(axis[0] - coordinate)
	for i := 1; i < len(axis); i++ {
		if d := math.Abs(axis[i] - coordinate); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, nil
}

// normalizeRange forms a half-open range from two snapped corner indices,
// inclusive of both corners, with Start < End whatever the axis direction.
func normalizeRange(a, b int) IndexRange {
	if a > b {
		a, b = b, a
	}
	return IndexRange{Start: a, End: b + 1}
}
