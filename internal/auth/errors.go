package auth

import "errors"

var (
	// ErrUnauthenticated covers every credential failure: missing token,
	// bad signature, malformed structure or expiry. Callers are not told
	// which sub-case occurred; the distinction is only logged internally.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden means the credential is valid but the user has no
	// access to the requested location.
	ErrForbidden = errors.New("forbidden")

	// ErrNotConfigured means the signing secret is absent or unusable.
	// It is fatal at startup and never returned per-request.
	ErrNotConfigured = errors.New("auth is not configured")
)
