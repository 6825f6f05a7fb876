package main

import "errors"

// Validation failures surfaced to the invoking actor. Never retried.
var (
	ErrSameServer          = errors.New("cannot connect two channels of the same server")
	ErrQuotaExceeded       = errors.New("server reached its connection limit")
	ErrDuplicateConnection = errors.New("an active connection already links these channels")
)

// ErrNotFound covers lookups of missing or inactive records.
var ErrNotFound = errors.New("not found")

// IsValidationError reports whether err is caused by bad caller input, as
// opposed to an infrastructure failure.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrSameServer) ||
		errors.Is(err, ErrQuotaExceeded) ||
		errors.Is(err, ErrDuplicateConnection)
}
