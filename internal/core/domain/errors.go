package domain

import "errors"

var (
	// ErrInvalidCoordinate is returned for latitude/longitude outside WGS 84 ranges.
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	// ErrNegativeRadius is returned for a search radius below zero.
	ErrNegativeRadius = errors.New("negative radius")
	// ErrUnknownCategory is returned when a category is not in the catalog.
	ErrUnknownCategory = errors.New("unknown category")
)
