package pesapal

import (
	"context"
	"sync"
	"time"
)

// expirySkew is subtracted from the provider's stated expiry so a token is
// refreshed slightly before it actually lapses mid-request.
const expirySkew = 30 * time.Second

// TokenCache holds the process-wide bearer token. It is constructed once and
// injected into the client rather than living as package state, so tests can
// scope it and a second client never shares a stale credential by accident.
type TokenCache struct {
	mu     sync.Mutex
	token  string
	expiry time.Time
	now    func() time.Time
}

// NewTokenCache creates an empty token cache.
func NewTokenCache() *TokenCache {
	return &TokenCache{now: time.Now}
}

// Get returns the cached token while valid, otherwise invokes refresh and
// caches its result. Two invocations racing a refresh is benign: the second
// overwrite is idempotent.
func (c *TokenCache) Get(ctx context.Context, refresh func(ctx context.Context) (string, time.Time, error)) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expiry) {
		return c.token, nil
	}

	token, expiry, err := refresh(ctx)
	if err != nil {
		return "", err
	}

	c.token = token
	c.expiry = expiry.Add(-expirySkew)
	return token, nil
}

// Invalidate drops the cached token, forcing the next Get to re-authenticate.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.expiry = time.Time{}
}
