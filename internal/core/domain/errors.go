package domain

import "errors"

var (
	// ErrInvalidPolicy indicates a programmer error in limiter construction:
	// non-positive window or quota, or an empty key prefix.
	ErrInvalidPolicy = errors.New("invalid rate limit policy")

	// ErrPoolUnavailable is returned by pool accessors when no connection is
	// available and the retry ceiling for the current episode is exhausted.
	// Callers must treat it as a normal, handleable outcome.
	ErrPoolUnavailable = errors.New("connection pool unavailable")
)
