package middleware

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/NomadCrew/formflow-backend/logger"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// minRefreshInterval stops unknown key ids from forcing a fetch per request.
const minRefreshInterval = 30 * time.Second

// JWKSCache holds the Supabase signing keys for asymmetric JWTs.
type JWKSCache struct {
	mu          sync.RWMutex
	set         jwk.Set
	fetchedAt   time.Time
	refreshLock sync.Mutex

	url        string
	anonKey    string
	ttl        time.Duration
	httpClient *http.Client
}

func NewJWKSCache(jwksURL, anonKey string, ttl time.Duration) *JWKSCache {
	return &JWKSCache{
		url:        jwksURL,
		anonKey:    anonKey,
		ttl:        ttl,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// GetKey returns the key with id kid, refreshing the set when it is stale or
// the key is unknown.
func (c *JWKSCache) GetKey(ctx context.Context, kid string) (jwk.Key, error) {
	c.mu.RLock()
	set, fetchedAt := c.set, c.fetchedAt
	c.mu.RUnlock()

	fresh := set != nil && time.Since(fetchedAt) < c.ttl
	if fresh {
		if key, ok := set.LookupKeyID(kid); ok {
			return key, nil
		}
		if time.Since(fetchedAt) < minRefreshInterval {
			return nil, fmt.Errorf("%w: %s", ErrJWKSKeyNotFound, kid)
		}
	}

	set, err := c.refresh(ctx, fetchedAt)
	if err != nil {
		return nil, err
	}
	if key, ok := set.LookupKeyID(kid); ok {
		return key, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrJWKSKeyNotFound, kid)
}

// refresh fetches the key set unless another caller already replaced the set
// observed at seen.
func (c *JWKSCache) refresh(ctx context.Context, seen time.Time) (jwk.Set, error) {
	c.refreshLock.Lock()
	defer c.refreshLock.Unlock()

	c.mu.RLock()
	if c.set != nil && c.fetchedAt.After(seen) {
		set := c.set
		c.mu.RUnlock()
		return set, nil
	}
	c.mu.RUnlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create JWKS request: %w", err)
	}
	if c.anonKey != "" {
		req.Header.Set("apikey", c.anonKey)
		req.Header.Set("Authorization", "Bearer "+c.anonKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read JWKS: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	set, err := jwk.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse JWKS: %w", err)
	}

	c.mu.Lock()
	c.set = set
	c.fetchedAt = time.Now()
	c.mu.Unlock()

	logger.GetLogger().Infow("Refreshed JWKS", "url", c.url, "keys", set.Len())
	return set, nil
}
