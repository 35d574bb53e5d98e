// Package domain models gridded climate data extraction.
//
// # Data Source
//
// Input is a directory of daily-resolution NetCDF files, one gridded variable
// per file (surface temperature or similar). Each file carries three
// coordinate variables under fixed names:
//
//	latitude   1-D, monotonic (ascending or descending), degrees north
//	longitude  1-D, monotonic ascending, degrees east
//	time       1-D, integer day offsets from a file-specific epoch
//
// The payload variable is any variable that is not one of the three above;
// the first such variable found is extracted. Files missing any of these fail
// with [ErrUnreadableFile].
//
// # Regions
//
// A region is a named geographic bounding box given by its north-west and
// south-east corners. The dataset convention puts north above south
// (nwLat > seLat) and west left of east (nwLon < seLon); boxes violating
// this are rejected at load time rather than producing inverted index ranges.
//
// # Date Continuity
//
// Output rows are dated by a single day counter seeded with the run's
// starting date and advanced once per time step across the whole file
// sequence. Files must sort lexicographically into chronological order;
// that ordering precondition belongs to whoever names the files. A file that
// cannot be opened mid-sequence aborts the run with [ErrSequenceGap],
// because its step count is unknowable and closing the gap silently would
// misdate every subsequent row.
package domain
