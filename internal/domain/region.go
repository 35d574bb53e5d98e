package domain

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// BoundingBox is a geographic rectangle given by its north-west and
// south-east corners, in degrees.
type BoundingBox struct {
	NWLat float64 `json:"nw_lat"`
	NWLon float64 `json:"nw_lon"`
	SELat float64 `json:"se_lat"`
	SELon float64 `json:"se_lon"`
}

// Validate checks the corner convention: north above south, west left of east.
func (b BoundingBox) Validate() error {
	if b.NWLat <= b.SELat {
		return fmt.Errorf("nw_lat %.4f must be north of se_lat %.4f", b.NWLat, b.SELat)
	}
	if b.NWLon >= b.SELon {
		return fmt.Errorf("nw_lon %.4f must be west of se_lon %.4f", b.NWLon, b.SELon)
	}
	return nil
}

// Region is a named bounding box. Name is the unique key and becomes part of
// the CSV artifact filename.
type Region struct {
	Name string
	Box  BoundingBox
}

// DefaultRegions returns the built-in European city boxes used when no
// regions file is configured.
func DefaultRegions() []Region {
	return []Region{
		{Name: "Istanbul", Box: BoundingBox{NWLat: 41.3, NWLon: 28.6, SELat: 40.8, SELon: 29.3}},
		{Name: "Paris", Box: BoundingBox{NWLat: 49.1, NWLon: 1.8, SELat: 48.5, SELon: 3.0}},
		{Name: "Madrid", Box: BoundingBox{NWLat: 40.8, NWLon: -4.0, SELat: 40.0, SELon: -3.4}},
		{Name: "London", Box: BoundingBox{NWLat: 51.7, NWLon: -0.6, SELat: 51.2, SELon: 0.4}},
		{Name: "Hamburg", Box: BoundingBox{NWLat: 53.8, NWLon: 9.6, SELat: 53.2, SELon: 10.5}},
	}
}

// LoadRegions reads a JSON regions file mapping region name to a
// [nwLat, nwLon, seLat, seLon] four-tuple and validates every box.
// Regions are returned sorted by name so run output is deterministic.
func LoadRegions(path string) ([]Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read regions file: %w", err)
	}

	var raw map[string][4]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse regions file %s: %w", path, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("regions file %s defines no regions", path)
	}

	regions := make([]Region, 0, len(raw))
	for name, t := range raw {
		r := Region{
			Name: name,
			Box:  BoundingBox{NWLat: t[0], NWLon: t[1], SELat: t[2], SELon: t[3]},
		}
		if err := r.Box.Validate(); err != nil {
			return nil, fmt.Errorf("region %q: %w", name, err)
		}
		regions = append(regions, r)
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i].Name < regions[j].Name })
	return regions, nil
}
