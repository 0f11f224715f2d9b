package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"ingest-gateway/internal/shared/metrics"
	"ingest-gateway/internal/shared/ratelimit"
	"ingest-gateway/internal/shared/telemetry"
)

const (
	defaultKeySetTTL           = 10 * time.Minute
	defaultMaxRefreshPerMinute = 5
	refreshBucketKey           = "jwks"
)

// Fetcher retrieves the raw JWKS document from the issuer.
type Fetcher interface {
	Fetch(ctx context.Context) (json.RawMessage, error)
}

// HTTPFetcher fetches a JWKS document over HTTP.
type HTTPFetcher struct {
	client *resty.Client
	url    string
}

// NewHTTPFetcher builds a fetcher for url with a bounded request timeout.
func NewHTTPFetcher(url string, timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &HTTPFetcher{client: client, url: url}
}

// Fetch downloads the key set.
func (f *HTTPFetcher) Fetch(ctx context.Context) (json.RawMessage, error) {
	resp, err := f.client.R().SetContext(ctx).Get(f.url)
	if err != nil {
		return nil, fmt.Errorf("fetch jwks url=%s: %w", f.url, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch jwks url=%s: unexpected status %d", f.url, resp.StatusCode())
	}
	return json.RawMessage(resp.Body()), nil
}

// KeySetOptions tunes a KeySetCache.
type KeySetOptions struct {
	// TTL is how long a fetched set is used before a refresh is attempted.
	TTL time.Duration
	// MaxRefreshesPerMinute caps fetches in any sliding minute, including
	// those triggered by unknown kids.
	MaxRefreshesPerMinute int
	Now                   func() time.Time
}

// KeySetCache holds the issuer's last fetched key set and refreshes it under a
// fetch budget. When the budget is spent it fails closed instead of fetching.
type KeySetCache struct {
	fetcher Fetcher
	ttl     time.Duration
	budget  *ratelimit.Window
	now     func() time.Time
	group   singleflight.Group

	mu        sync.RWMutex
	jwks      *keyfunc.JWKS
	fetchedAt time.Time
}

// NewKeySetCache constructs an empty cache; the first lookup triggers a fetch.
func NewKeySetCache(fetcher Fetcher, opts KeySetOptions) *KeySetCache {
	if opts.TTL <= 0 {
		opts.TTL = defaultKeySetTTL
	}
	if opts.MaxRefreshesPerMinute <= 0 {
		opts.MaxRefreshesPerMinute = defaultMaxRefreshPerMinute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &KeySetCache{
		fetcher: fetcher,
		ttl:     opts.TTL,
		budget:  ratelimit.NewWindow(opts.Now, opts.MaxRefreshesPerMinute, time.Minute),
		now:     opts.Now,
	}
}

// Lookup returns the verification key for token's kid, refreshing the set if
// it is stale or the kid is unknown.
func (k *KeySetCache) Lookup(ctx context.Context, token *jwt.Token) (interface{}, error) {
	kid, _ := token.Header["kid"].(string)
	if kid == "" {
		return nil, ErrMissingKID
	}

	current, fresh := k.snapshot()
	if current != nil && fresh && hasKID(current, kid) {
		return current.Keyfunc(token)
	}

	refreshed, err := k.Refresh(ctx)
	if err != nil {
		// A stale set that still knows the kid is better than rejecting.
		if current != nil && hasKID(current, kid) {
			return current.Keyfunc(token)
		}
		return nil, err
	}
	if !hasKID(refreshed, kid) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKID, kid)
	}
	return refreshed.Keyfunc(token)
}

// Refresh fetches the key set if the refresh budget allows. Concurrent callers
// share one fetch.
func (k *KeySetCache) Refresh(ctx context.Context) (*keyfunc.JWKS, error) {
	v, err, _ := k.group.Do(refreshBucketKey, func() (interface{}, error) {
		if ok, retryAfter := k.budget.Allow(refreshBucketKey); !ok {
			metrics.RecordJWKSRefresh("limited")
			telemetry.Warn("jwks.refresh_limited", map[string]any{
				"retry_after_ms": retryAfter.Milliseconds(),
			})
			return nil, ErrRefreshLimited
		}

		raw, err := k.fetcher.Fetch(ctx)
		if err != nil {
			metrics.RecordJWKSRefresh("error")
			telemetry.Error("jwks.refresh_failed", map[string]any{"error": err.Error()})
			return nil, err
		}
		jwks, err := keyfunc.NewJSON(raw)
		if err != nil {
			metrics.RecordJWKSRefresh("error")
			telemetry.Error("jwks.parse_failed", map[string]any{"error": err.Error()})
			return nil, fmt.Errorf("parse jwks: %w", err)
		}

		k.mu.Lock()
		k.jwks = jwks
		k.fetchedAt = k.now()
		k.mu.Unlock()

		metrics.RecordJWKSRefresh("ok")
		telemetry.Info("jwks.refreshed", map[string]any{"keys": jwks.Len()})
		return jwks, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*keyfunc.JWKS), nil
}

// KIDs lists the key ids currently cached.
func (k *KeySetCache) KIDs() []string {
	current, _ := k.snapshot()
	if current == nil {
		return nil
	}
	return current.KIDs()
}

func (k *KeySetCache) snapshot() (*keyfunc.JWKS, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.jwks == nil {
		return nil, false
	}
	return k.jwks, k.now().Sub(k.fetchedAt) < k.ttl
}

func hasKID(jwks *keyfunc.JWKS, kid string) bool {
	return slices.Contains(jwks.KIDs(), kid)
}
