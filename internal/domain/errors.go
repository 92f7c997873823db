package domain

import "errors"

var (
	// ErrInvalidContainerSelector is returned before any query when the
	// container code is empty or blank.
	ErrInvalidContainerSelector = errors.New("please provide a valid container code")

	// ErrInvalidQuery is returned when a filter key, field or option cannot be
	// translated into a store query.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrNotFound is returned by outer surfaces when a single element is absent.
	ErrNotFound = errors.New("element not found")
)
