package repository

import "errors"

var (
	// ErrUniqueViolation is returned when an insert or update trips a uniqueness constraint
	ErrUniqueViolation = errors.New("unique constraint violated")
	// ErrSerialization is returned when the store aborts a transaction over lock contention
	ErrSerialization = errors.New("transaction could not be serialized")
)
