// Package apperr defines the error taxonomy shared by every store.
// Handlers map these to HTTP status codes with Status.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAuth means the credential was rejected or the session is invalid.
	ErrAuth = errors.New("authentication failed")
	// ErrPermission means the caller's role or ownership does not authorize the mutation.
	ErrPermission = errors.New("permission denied")
	// ErrNotFound means the referenced document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrRemoteWrite is a transient failure persisting to the backing store.
	ErrRemoteWrite = errors.New("remote write failed")
	// ErrRemoteRead is a transient failure reading from the backing store.
	ErrRemoteRead = errors.New("remote read failed")
	// ErrCacheParse means a cached value failed to deserialize. Stores fall back
	// to an empty collection and never propagate this upward.
	ErrCacheParse = errors.New("cache parse failed")
	// ErrInvalid means a precondition on the request itself failed.
	ErrInvalid = errors.New("invalid request")
)

func Wrap(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), sentinel)
}

// Status maps a taxonomy error to an HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, ErrPermission):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, ErrRemoteWrite), errors.Is(err, ErrRemoteRead):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
