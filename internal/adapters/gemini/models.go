package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"
)

const modelCacheTTL = 5 * time.Minute

// fallbackModels keeps ranking operational even when model discovery fails.
var fallbackModels = []string{"gemini-2.0-flash", "gemini-1.5-flash", "gemini-1.5-pro"}

var stableModelPattern = regexp.MustCompile(`^gemini-\d`)

// experimental or special-purpose variants are excluded from the matrix.
var unstableMarkers = []string{
	"exp", "preview", "thinking", "embedding", "tts", "vision", "audio", "image", "live",
}

// ModelCache is the process-wide cache of discovered model names. Many
// requests read it concurrently; at most one in-flight discovery refreshes
// it while the rest reuse a slightly stale value rather than stampede the
// discovery endpoint.
type ModelCache struct {
	mu         sync.Mutex
	names      []string
	fetchedAt  time.Time
	ttl        time.Duration
	refreshing bool
}

// NewModelCache constructs an empty cache with the given TTL.
func NewModelCache(ttl time.Duration) *ModelCache {
	return &ModelCache{ttl: ttl}
}

// get returns the cached names and whether they are still fresh.
func (mc *ModelCache) get() ([]string, bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	fresh := len(mc.names) > 0 && time.Since(mc.fetchedAt) < mc.ttl
	return append([]string(nil), mc.names...), fresh
}

// tryBeginRefresh marks the cache as refreshing unless another refresh is
// already in flight.
func (mc *ModelCache) tryBeginRefresh() bool {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if mc.refreshing {
		return false
	}
	mc.refreshing = true
	return true
}

func (mc *ModelCache) endRefresh(names []string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.refreshing = false
	if names != nil {
		mc.names = names
		mc.fetchedAt = time.Now()
	}
}

type listModelsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// CandidateModels returns the models the ranking matrix should try, in
// order: discovered stable models (cached ~5 minutes) unioned with the
// fixed fallback list, so operation continues even if discovery fails.
func (c *Client) CandidateModels(ctx context.Context) []string {
	names, fresh := c.models.get()
	if !fresh && c.models.tryBeginRefresh() {
		discovered, err := c.discoverModels(ctx)
		if err != nil {
			c.logger.Warn("gemini: model discovery failed", "error", err)
			c.models.endRefresh(nil)
		} else {
			c.models.endRefresh(discovered)
			names = discovered
		}
	}
	return unionModels(names, fallbackModels)
}

func (c *Client) discoverModels(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/v1beta/models?key=%s", c.baseURL, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini: build discovery request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini: discovery request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini: discovery status %d", resp.StatusCode)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gemini: read discovery response: %w", err)
	}

	var parsed listModelsResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("gemini: decode discovery response: %w", err)
	}

	var names []string
	for _, m := range parsed.Models {
		name := strings.TrimPrefix(m.Name, "models/")
		if isStableModel(name) {
			names = append(names, name)
		}
	}
	return names, nil
}

func isStableModel(name string) bool {
	if !stableModelPattern.MatchString(name) {
		return false
	}
	for _, marker := range unstableMarkers {
		if strings.Contains(name, marker) {
			return false
		}
	}
	return true
}

func unionModels(discovered, fallbacks []string) []string {
	seen := make(map[string]struct{}, len(discovered)+len(fallbacks))
	out := make([]string, 0, len(discovered)+len(fallbacks))
	for _, lists := range [][]string{discovered, fallbacks} {
		for _, name := range lists {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}
