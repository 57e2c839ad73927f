package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Girls-Girls-Inc/wits-quest-sub001/utils"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"
)

// Principal is the authenticated caller.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// IdentityResolver turns a bearer token into a principal.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (*Principal, error)
}

// HTTPDoer is the subset of *http.Client used by outbound clients.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

const authLookupTimeout = 10 * time.Second

type cachedPrincipal struct {
	principal Principal
	expires   time.Time
}

// AuthServiceClient validates access tokens against the auth backend's /auth/v1/user.
type AuthServiceClient struct {
	BaseURL string
	APIKey  string
	Client  HTTPDoer

	ttl   time.Duration
	cache *lru.Cache
	group singleflight.Group
	now   func() time.Time
}

func NewAuthServiceClient(baseURL, apiKey string, cacheTTL time.Duration) (*AuthServiceClient, error) {
	cache, err := lru.New(4096)
	if err != nil {
		return nil, fmt.Errorf("failed to create principal cache: %w", err)
	}
	return &AuthServiceClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  utils.NewHTTPClient(authLookupTimeout),
		ttl:     cacheTTL,
		cache:   cache,
		now:     time.Now,
	}, nil
}

func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Resolve validates token, serving repeated lookups from cache and collapsing
// concurrent lookups of the same token into one backend call.
func (c *AuthServiceClient) Resolve(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, Unauthenticated("missing bearer token")
	}
	key := tokenKey(token)

	if v, ok := c.cache.Get(key); ok {
		entry := v.(cachedPrincipal)
		if c.now().Before(entry.expires) {
			p := entry.principal
			return &p, nil
		}
		c.cache.Remove(key)
	}

	// The shared lookup outlives any single waiter, so one cancelled request
	// does not fail the others queued on the same token.
	ch := c.group.DoChan(key, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), authLookupTimeout)
		defer cancel()
		p, err := c.fetchUser(fetchCtx, token)
		if err != nil {
			return nil, err
		}
		if c.ttl > 0 {
			c.cache.Add(key, cachedPrincipal{principal: *p, expires: c.now().Add(c.ttl)})
		}
		return p, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		p := *res.Val.(*Principal)
		return &p, nil
	}
}

func (c *AuthServiceClient) fetchUser(ctx context.Context, token string) (*Principal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build auth request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if c.APIKey != "" {
		req.Header.Set("apikey", c.APIKey)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth backend unreachable: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		slog.Warn("[AUTH] token rejected", "status", resp.StatusCode, "body", string(body))
		return nil, Unauthenticated("invalid or expired token")
	}

	var p Principal
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to decode auth user: %w", err)
	}
	if p.ID == "" {
		return nil, Unauthenticated("invalid or expired token")
	}
	return &p, nil
}
