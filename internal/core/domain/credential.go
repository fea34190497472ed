package domain

import "time"

// Credential holds the upstream catalog access credential. The access token
// may be replaced mid-request after a refresh; lifecycle is owned by the
// token manager.
type Credential struct {
	AccessToken  string
	RefreshToken string    // optional
	ExpiresAt    time.Time // zero when unknown
}
