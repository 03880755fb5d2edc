package storage

import "errors"

var (
	// ErrNotFound is returned for an unknown dataset, factor, registry entry or run.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a run's correlations are written twice.
	ErrDuplicateKey = errors.New("duplicate key: run already stored")

	// ErrInvalidInput is returned for empty names, nil records and similar caller errors.
	ErrInvalidInput = errors.New("invalid input")
)
