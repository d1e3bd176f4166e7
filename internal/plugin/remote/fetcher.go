package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/autoupdate/internal/cache"
	httputil "github.com/jmylchreest/autoupdate/internal/util/http"
)

const (
	// DefaultTimeout bounds each metadata request.
	DefaultTimeout = 10 * time.Second

	// DefaultTTL is how long a fetched document is reused.
	DefaultTTL = 150 * time.Second

	// CacheKeyPrefix prefixes the slug to form the cache key.
	CacheKeyPrefix = "cau_"
)

// ErrFetchFailed is returned for every failure to obtain metadata:
// transport errors, non-200 responses, empty bodies and malformed JSON.
var ErrFetchFailed = errors.New("failed to fetch remote plugin metadata")

// CacheKey returns the cache key for slug.
func CacheKey(slug string) string {
	return CacheKeyPrefix + slug
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithTTL sets how long fetched documents are cached.
func WithTTL(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.ttl = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l hclog.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithHTTPClient overrides the HTTP client (transport, proxies).
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// Fetcher retrieves metadata documents through a cache.
type Fetcher struct {
	baseURL string
	store   cache.Store
	client  *http.Client
	timeout time.Duration
	ttl     time.Duration
	logger  hclog.Logger
}

// NewFetcher creates a Fetcher for the server at baseURL. A nil store
// gets a private in-memory cache.
func NewFetcher(baseURL string, store cache.Store, opts ...Option) *Fetcher {
	if store == nil {
		store = cache.NewMemory(nil)
	}

	f := &Fetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		store:   store,
		timeout: DefaultTimeout,
		ttl:     DefaultTTL,
		logger:  hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Endpoint returns the metadata URL for slug.
func (f *Fetcher) Endpoint(slug string) string {
	return fmt.Sprintf("%s/api/plugin/%s", f.baseURL, url.PathEscape(slug))
}

// Fetch returns the metadata for slug, from cache when present and unexpired.
// All failures wrap ErrFetchFailed.
func (f *Fetcher) Fetch(ctx context.Context, slug string) (*Metadata, error) {
	key := CacheKey(slug)
	logger := f.logger.With("slug", slug)

	cached, ok, err := f.store.Get(ctx, key)
	if err != nil {
		logger.Warn("cache read failed, fetching", "error", err)
	}
	if ok {
		if md, err := decode(cached); err == nil {
			logger.Trace("cache hit")
			return md, nil
		}
		logger.Warn("discarding unreadable cache entry")
	}

	endpoint := f.Endpoint(slug)
	logger.Debug("fetching remote metadata", "url", endpoint)

	body, err := httputil.Fetch(ctx, endpoint, httputil.FetchOptions{
		Timeout: f.timeout,
		Headers: map[string]string{"Accept": "application/json"},
		Client:  f.client,
	})
	if err != nil {
		logger.Debug("remote metadata unavailable", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	md, err := decode(body)
	if err != nil {
		logger.Debug("remote metadata malformed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	if err := f.store.Set(ctx, key, body, f.ttl); err != nil {
		logger.Warn("cache write failed", "error", err)
	}

	return md, nil
}

// decode parses a metadata document. A JSON null or non-object is rejected.
func decode(data []byte) (*Metadata, error) {
	var md *Metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	if md == nil {
		return nil, errors.New("metadata document is null")
	}
	return md, nil
}
