package grading

import "errors"

var (
	// ErrStructuralFormat is returned when a received payload matches neither
	// the explicit-grouping shape nor the flat answer-list shape.
	ErrStructuralFormat = errors.New("grading: received payload has an unrecognized format")

	// ErrTooManyGroups is returned when a keyword group list does not fit in
	// the matcher's used-group bitmask.
	ErrTooManyGroups = errors.New("grading: too many keyword groups")

	// ErrNilInput is returned when a required record is missing.
	ErrNilInput = errors.New("grading: nil input")
)
