// Package spotify is the adapter for the upstream catalog API. All outbound
// calls go through a resilient client that attaches the current bearer token
// and retries exactly once after refreshing an expired credential.
package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/soundslike-labs/moodqueue/internal/core/domain"
	"github.com/soundslike-labs/moodqueue/internal/core/ports"
)

const (
	defaultBaseURL = "https://api.spotify.com"
	requestTimeout = 10 * time.Second
	maxBatchIDs    = 50
)

// Client is the resilient HTTP client for the catalog API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     ports.TokenManager
	logger     *slog.Logger

	// The reference upstream overloads 403 for expired tokens; other
	// deployments use it strictly for insufficient scope, so the auth-retry
	// treatment of 403 is configurable.
	treatForbiddenAsAuth bool
}

var _ ports.CatalogProvider = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithForbiddenAsAuth controls whether a 403 triggers the refresh-and-retry
// path like a 401 does.
func WithForbiddenAsAuth(v bool) Option {
	return func(c *Client) { c.treatForbiddenAsAuth = v }
}

// NewClient constructs a catalog client using tokens for authentication.
func NewClient(baseURL string, tokens ports.TokenManager, logger *slog.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		httpClient:           &http.Client{Timeout: requestTimeout},
		baseURL:              strings.TrimRight(baseURL, "/"),
		tokens:               tokens,
		logger:               logger,
		treatForbiddenAsAuth: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// request issues one authenticated call. On a 401 (or, when configured, 403)
// it refreshes the credential, persists it, and retries exactly once; a
// second auth failure surfaces as a terminal AuthError. The token is fetched
// from the manager immediately before each attempt so a mid-flight refresh
// is never raced by a stale cached copy.
func (c *Client) request(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	for attempt := 0; attempt < 2; attempt++ {
		token, err := c.tokens.AccessToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("spotify adapter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader(body))
		if err != nil {
			return nil, fmt.Errorf("spotify adapter: build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("spotify adapter: %w", &domain.APIError{Err: err})
		}

		payload, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("spotify adapter: read response: %w", err)
		}

		if resp.StatusCode < http.StatusBadRequest {
			return payload, nil
		}

		if c.isAuthStatus(resp.StatusCode) {
			if attempt == 0 && c.tokens.CanRefresh() {
				c.logger.Info("spotify adapter: auth failure, refreshing token",
					"status", resp.StatusCode)
				cred, refreshErr := c.tokens.Refresh(ctx)
				if refreshErr != nil {
					// A refresh the upstream rejects (revoked grant, missing
					// token) leaves re-authentication as the only cure.
					return nil, fmt.Errorf("spotify adapter: %w", &domain.AuthError{
						Status:  resp.StatusCode,
						Payload: string(payload),
						Err:     refreshErr,
					})
				}
				if persistErr := c.tokens.Persist(ctx, cred); persistErr != nil {
					c.logger.Warn("spotify adapter: persisting refreshed token failed",
						"error", persistErr)
				}
				continue
			}
			return nil, fmt.Errorf("spotify adapter: %w",
				&domain.AuthError{Status: resp.StatusCode, Payload: string(payload)})
		}

		return nil, fmt.Errorf("spotify adapter: %w",
			&domain.APIError{Status: resp.StatusCode, Payload: string(payload)})
	}

	// Unreachable: the loop always returns or retries at most once.
	return nil, fmt.Errorf("spotify adapter: request exhausted retries")
}

func (c *Client) isAuthStatus(status int) bool {
	if status == http.StatusUnauthorized {
		return true
	}
	return status == http.StatusForbidden && c.treatForbiddenAsAuth
}

func bodyReader(body []byte) io.Reader {
	if body == nil {
		return nil
	}
	return bytes.NewReader(body)
}

// SavedTracks lists one page of the listener's saved library.
func (c *Client) SavedTracks(ctx context.Context, limit, offset int) (ports.SavedTracksPage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	payload, err := c.request(ctx, http.MethodGet, "/v1/me/tracks?"+q.Encode(), nil)
	if err != nil {
		return ports.SavedTracksPage{}, err
	}

	var page savedTracksPage
	if err := json.Unmarshal(payload, &page); err != nil {
		return ports.SavedTracksPage{}, fmt.Errorf("spotify adapter: decode saved tracks: %w", err)
	}

	tracks := make([]domain.Track, 0, len(page.Items))
	for _, item := range page.Items {
		tracks = append(tracks, mapTrackToDomain(item.Track))
	}
	return ports.SavedTracksPage{Tracks: tracks, Total: page.Total, Next: page.Next}, nil
}

// TracksByID fetches full track records in batches of 50 ids.
func (c *Client) TracksByID(ctx context.Context, ids []string) ([]domain.Track, error) {
	tracks := make([]domain.Track, 0, len(ids))
	for start := 0; start < len(ids); start += maxBatchIDs {
		end := start + maxBatchIDs
		if end > len(ids) {
			end = len(ids)
		}

		q := url.Values{}
		q.Set("ids", strings.Join(ids[start:end], ","))
		payload, err := c.request(ctx, http.MethodGet, "/v1/tracks?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}

		var batch tracksBatch
		if err := json.Unmarshal(payload, &batch); err != nil {
			return nil, fmt.Errorf("spotify adapter: decode tracks: %w", err)
		}
		for _, st := range batch.Tracks {
			if st.ID == "" {
				continue
			}
			tracks = append(tracks, mapTrackToDomain(st))
		}
	}
	return tracks, nil
}
