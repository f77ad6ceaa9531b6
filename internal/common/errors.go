// Package common defines shared sentinel errors used across the pintask
// client layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Local/remote resource errors.
	ErrNotFound = errors.New("not found")

	// Remote call taxonomy.
	ErrUnauthorized = errors.New("unauthorized")
	ErrServer       = errors.New("server error")
	ErrTransient    = errors.New("transient network error")

	// Local input errors, rejected before anything touches the network.
	ErrValidation = errors.New("validation error")

	// Session lifecycle.
	ErrNoSession = errors.New("no active session")
)

// IsTransient reports whether err is (or wraps) a transient network fault,
// the only class of failure the bounded retry machinery replays.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
