package gallery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dvloznov/photo-gallery/internal/objstore"
)

// DefaultPublicBaseURL is the public endpoint of Google Cloud Storage.
const DefaultPublicBaseURL = "https://storage.googleapis.com"

// PublicURLResolver builds deterministic public URLs of the form
// <base>/<bucket>/<processed prefix><filename>.
type PublicURLResolver struct {
	baseURL         string
	bucket          string
	processedPrefix string
}

// NewPublicURLResolver creates a resolver for a publicly readable bucket.
func NewPublicURLResolver(baseURL, bucket, processedPrefix string) *PublicURLResolver {
	if baseURL == "" {
		baseURL = DefaultPublicBaseURL
	}
	return &PublicURLResolver{
		baseURL:         strings.TrimRight(baseURL, "/"),
		bucket:          bucket,
		processedPrefix: processedPrefix,
	}
}

// Resolve implements URLResolver.
func (r *PublicURLResolver) Resolve(_ context.Context, _, filename string) (string, error) {
	return fmt.Sprintf("%s/%s/%s%s", r.baseURL, r.bucket, r.processedPrefix, filename), nil
}

type cachedURL struct {
	url     string
	expires time.Time
}

// SignedURLResolver mints time-limited URLs through a Signer and caches them,
// so repeated listings hand the browser a stable URL instead of a fresh one.
// It is safe for concurrent use.
type SignedURLResolver struct {
	signer   objstore.Signer
	urlTTL   time.Duration
	cacheTTL time.Duration
	now      func() time.Time

	mu      sync.RWMutex
	entries map[string]cachedURL
}

// NewSignedURLResolver creates a resolver. cacheTTL must be shorter than urlTTL,
// otherwise cached URLs could be served after they expire.
func NewSignedURLResolver(signer objstore.Signer, urlTTL, cacheTTL time.Duration) (*SignedURLResolver, error) {
	if urlTTL <= 0 || cacheTTL <= 0 {
		return nil, fmt.Errorf("signed url ttl and cache ttl must be positive")
	}
	if cacheTTL >= urlTTL {
		return nil, fmt.Errorf("cache ttl %s must be shorter than signed url ttl %s", cacheTTL, urlTTL)
	}
	return &SignedURLResolver{
		signer:   signer,
		urlTTL:   urlTTL,
		cacheTTL: cacheTTL,
		now:      time.Now,
		entries:  make(map[string]cachedURL),
	}, nil
}

// Resolve implements URLResolver.
func (r *SignedURLResolver) Resolve(ctx context.Context, key, _ string) (string, error) {
	now := r.now()

	r.mu.RLock()
	cached, ok := r.entries[key]
	r.mu.RUnlock()
	if ok && now.Before(cached.expires) {
		return cached.url, nil
	}

	signed, err := r.signer.SignedURL(ctx, key, r.urlTTL)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	r.entries[key] = cachedURL{url: signed, expires: now.Add(r.cacheTTL)}
	r.mu.Unlock()

	return signed, nil
}

// Prune drops expired cache entries and reports how many were removed.
func (r *SignedURLResolver) Prune() int {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for key, entry := range r.entries {
		if !now.Before(entry.expires) {
			delete(r.entries, key)
			removed++
		}
	}
	return removed
}

var (
	_ URLResolver = (*PublicURLResolver)(nil)
	_ URLResolver = (*SignedURLResolver)(nil)
)
