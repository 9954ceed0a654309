package packfile

import "errors"

var (
	ErrInvalidDelta = errors.New("packfile: invalid delta")
	ErrDeltaCmd     = errors.New("packfile: invalid delta instruction")
)
