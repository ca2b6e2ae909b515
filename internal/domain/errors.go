package domain

import "errors"

var (
	// ErrConnection indicates the upstream data store could not be reached.
	ErrConnection = errors.New("data store unreachable")
	// ErrSchemaDecode is returned when a stored record cannot be decoded into the data model.
	ErrSchemaDecode = errors.New("record decode failed")
	// ErrQuery indicates the aggregation query for a single person failed.
	ErrQuery = errors.New("aggregation query failed")
)
