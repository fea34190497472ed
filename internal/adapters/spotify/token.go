package spotify

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2"

	"github.com/soundslike-labs/moodqueue/internal/core/domain"
	"github.com/soundslike-labs/moodqueue/internal/core/ports"
)

// PersistFunc receives refreshed credentials for durable storage. The token
// manager only owns the in-memory copy; where the credential ultimately
// lives (session store, cookie, database) is the caller's business.
type PersistFunc func(ctx context.Context, cred domain.Credential) error

// TokenManager holds the catalog credential and refreshes it through the
// OAuth refresh grant. Safe for concurrent use.
type TokenManager struct {
	mu      sync.Mutex
	cred    domain.Credential
	conf    *oauth2.Config
	persist PersistFunc
}

var _ ports.TokenManager = (*TokenManager)(nil)

// NewTokenManager constructs a TokenManager seeded with cred. persist may be
// nil when no durable store is wired.
func NewTokenManager(conf *oauth2.Config, cred domain.Credential, persist PersistFunc) *TokenManager {
	return &TokenManager{conf: conf, cred: cred, persist: persist}
}

// AccessToken returns the current access token.
func (m *TokenManager) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cred.AccessToken == "" {
		return "", domain.ErrCredentialMissing
	}
	return m.cred.AccessToken, nil
}

// CanRefresh reports whether a refresh token is on hand.
func (m *TokenManager) CanRefresh() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cred.RefreshToken != ""
}

// Refresh exchanges the refresh token for a new credential and replaces the
// in-memory state. The upstream may rotate the refresh token; when it does
// not, the old one is kept.
func (m *TokenManager) Refresh(ctx context.Context) (domain.Credential, error) {
	m.mu.Lock()
	refreshToken := m.cred.RefreshToken
	m.mu.Unlock()

	if refreshToken == "" {
		return domain.Credential{}, domain.ErrNoRefreshToken
	}

	src := m.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return domain.Credential{}, fmt.Errorf("spotify adapter: token refresh rejected: %w", err)
	}

	cred := domain.Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
	if cred.RefreshToken == "" {
		cred.RefreshToken = refreshToken
	}

	m.mu.Lock()
	m.cred = cred
	m.mu.Unlock()
	return cred, nil
}

// Persist stores cred in memory and hands it to the configured persist hook.
func (m *TokenManager) Persist(ctx context.Context, cred domain.Credential) error {
	m.mu.Lock()
	m.cred = cred
	m.mu.Unlock()
	if m.persist == nil {
		return nil
	}
	return m.persist(ctx, cred)
}
