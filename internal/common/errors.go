// Package common defines shared constants and sentinel errors used across
// the agent, the foreground CLI and the remote authority. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// ErrNotFound is returned on a lookup miss.
	ErrNotFound = errors.New("not found")

	// ErrStoreUnavailable means the local database could not be opened or a
	// transaction could not be run. It is fatal to the calling operation.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrConstraintViolation marks a malformed mutation: missing id or
	// secondary key, unknown collection, unroutable action.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrTransport is returned when a remote call failed or the remote
	// answered with a non-success status.
	ErrTransport = errors.New("transport error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
