package simulation

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("simulation: validation failed")
	// ErrIncompatibleSchema indicates a wire document with a different major version.
	ErrIncompatibleSchema = errors.New("simulation: incompatible schema version")
	// ErrMalformedDocument indicates a wire document that cannot be decoded.
	ErrMalformedDocument = errors.New("simulation: malformed document")
)

// Issue is one violated invariant.
type Issue struct {
	// Field is the path of the offending value, e.g. "structures[2]" or "run_time".
	Field   string
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Field, i.Message)
}

// ValidationError lists every invariant a Simulation violates.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		parts[i] = is.String()
	}
	return fmt.Sprintf("simulation is invalid (%d issues): %s", len(e.Issues), strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Has reports whether any issue concerns field.
func (e *ValidationError) Has(field string) bool {
	for _, is := range e.Issues {
		if is.Field == field || strings.HasPrefix(is.Field, field+".") || strings.HasPrefix(is.Field, field+"[") {
			return true
		}
	}
	return false
}

type issues []Issue

func (l *issues) add(field, format string, args ...interface{}) {
	*l = append(*l, Issue{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (l issues) err() error {
	if len(l) == 0 {
		return nil
	}
	return &ValidationError{Issues: l}
}
