package grid

import (
	"errors"
	"fmt"
)

var (
	// ErrGridResolution is matched by every *GridResolutionError.
	ErrGridResolution = errors.New("grid: cell count exceeds safety ceiling")
	// ErrInvalidSpec indicates a malformed grid specification.
	ErrInvalidSpec = errors.New("grid: invalid grid spec")
	// ErrNoWavelength indicates an auto grid without a wavelength to resolve.
	ErrNoWavelength = errors.New("grid: auto grid needs a wavelength")
	// ErrInvalidBoundaries indicates boundary arrays that are not strictly increasing.
	ErrInvalidBoundaries = errors.New("grid: boundaries must be strictly increasing")
)

// GridResolutionError reports a grid whose cell count exceeds the configured limit.
type GridResolutionError struct {
	// Cells is the estimated or exact cell count.
	Cells int64
	Limit int64
	// Estimated is true when the grid was rejected before it was generated.
	Estimated bool
}

func (e *GridResolutionError) Error() string {
	kind := "grid has"
	if e.Estimated {
		kind = "grid would have about"
	}
	return fmt.Sprintf("%s %d cells, limit is %d", kind, e.Cells, e.Limit)
}

func (e *GridResolutionError) Is(target error) bool {
	return target == ErrGridResolution
}
