package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a requested record does not exist.
	ErrNotFound = errors.New("domain: not found")

	// ErrCredentialMissing indicates no access token is available at all.
	// The caller must trigger re-authentication; retrying is pointless.
	ErrCredentialMissing = errors.New("domain: no credential available")

	// ErrNoRefreshToken indicates a refresh was requested but the stored
	// credential has no refresh token.
	ErrNoRefreshToken = errors.New("domain: no refresh token available")

	// ErrReauthRequired is the sentinel matched by AuthError; callers use
	// errors.Is(err, ErrReauthRequired) to decide between "re-authenticate"
	// and "degraded but succeeded".
	ErrReauthRequired = errors.New("domain: reauthentication required")

	// ErrNoSourceMaterial indicates the listener's saved library is empty,
	// so there is nothing to rank. Never silently returned as an empty mix.
	ErrNoSourceMaterial = errors.New("domain: no source material")
)

// APIError is a non-auth failure from the upstream catalog API. Status is 0
// for network-level failures, which wrap the transport error instead of
// carrying an upstream payload.
type APIError struct {
	Status  int
	Payload string
	Err     error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream request failed: %v", e.Err)
	}
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Payload)
}

func (e *APIError) Unwrap() error { return e.Err }

// AuthError is a 401/403 that survived the single refresh-and-retry cycle,
// or a refresh the upstream rejected outright. Err carries the refresh
// failure when one occurred.
type AuthError struct {
	Status  int
	Payload string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream auth failure: status %d: refresh failed: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("upstream auth failure: status %d: %s", e.Status, e.Payload)
}

func (e *AuthError) Unwrap() error { return e.Err }

func (e *AuthError) Is(target error) bool { return target == ErrReauthRequired }
