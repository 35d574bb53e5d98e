package waqi

import (
	"fmt"
	"io"
)

// WriteStations renders the per-city station listing as the flat text format
// downstream analysis scripts expect: a "City:" line, one indented line per
// station, and a blank line between cities.
func WriteStations(w io.Writer, city string, stations []Station) error {
	if _, err := fmt.Fprintf(w, "City: %s\n", city); err != nil {
		return fmt.Errorf("write city header: %w", err)
	}
	for _, s := range stations {
		_, err := fmt.Fprintf(w, " Station Name: %s, Latitude: %g, Longitude: %g\n", s.Name, s.Lat, s.Lon)
		if err != nil {
			return fmt.Errorf("write station %q: %w", s.Name, err)
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}
