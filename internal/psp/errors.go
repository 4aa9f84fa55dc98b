package psp

import "errors"

var (
	// ErrConnection is returned when the provider cannot be reached, times
	// out, rejects the credentials, or the circuit breaker is open.
	ErrConnection = errors.New("payment provider unavailable")

	// ErrSessionNotFound is returned when the provider does not know the session.
	ErrSessionNotFound = errors.New("checkout session not found")

	// ErrInvalidRequest is returned when the provider rejects the request parameters.
	ErrInvalidRequest = errors.New("payment provider rejected the request")
)
