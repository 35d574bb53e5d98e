package domain

import "errors"

var (
	// ErrOutOfBoundsRegion marks a bounding box with a corner outside the
	// coordinate domain of the file's grid.
	ErrOutOfBoundsRegion = errors.New("region outside grid bounds")

	// ErrEmptyRegion marks a bounding box that contains no grid sample on
	// at least one axis.
	ErrEmptyRegion = errors.New("region contains no grid cells")

	// ErrUnreadableFile marks a source file that could not be opened or
	// does not follow the expected layout.
	ErrUnreadableFile = errors.New("unreadable data file")

	// ErrSequenceGap marks a run aborted because the day counter can no
	// longer be advanced reliably across the file sequence.
	ErrSequenceGap = errors.New("gap in file sequence")
)
