package models

import "errors"

// Construction errors. Constructors wrap these with details, match them with errors.Is.
var (
	// ErrInvalidGeometry indicates a negative, NaN or otherwise unusable shape parameter.
	ErrInvalidGeometry = errors.New("models: invalid geometry")
	// ErrInvalidFrequency indicates a missing, non-positive or non-finite frequency.
	ErrInvalidFrequency = errors.New("models: invalid frequency")
	// ErrInvalidSpatialExtent indicates a source or monitor footprint with negative size.
	ErrInvalidSpatialExtent = errors.New("models: invalid spatial extent")
	// ErrInvalidPermittivity indicates a non-passive medium that was not marked active.
	ErrInvalidPermittivity = errors.New("models: invalid permittivity")
	// ErrInvalidSourceTime indicates a temporal envelope that cannot be injected causally.
	ErrInvalidSourceTime = errors.New("models: invalid source time")
	// ErrInvalidPolarization indicates an unknown field component.
	ErrInvalidPolarization = errors.New("models: invalid polarization")
	// ErrInvalidName indicates an empty or malformed object name.
	ErrInvalidName = errors.New("models: invalid name")
	// ErrInvalidBoundary indicates an unknown boundary kind or negative layer count.
	ErrInvalidBoundary = errors.New("models: invalid boundary")
)
