package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/calavorn/realmmap/pkg/cache"
	"github.com/calavorn/realmmap/pkg/observability"
)

const httpTimeout = 10 * time.Second

var (
	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, bad statuses).
	ErrNetwork = errors.New("network error")
)

// NewHTTPClient returns an http.Client with the default request timeout.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// Client fetches resources from one backend with caching and retries.
type Client struct {
	http      *http.Client
	cache     cache.Cache
	keyer     cache.Keyer
	namespace string
	ttl       time.Duration
	headers   map[string]string
	retry     func(ctx context.Context, fn func() error) error
}

// NewClient creates a Client. A nil cache disables caching. Headers are
// applied to every request.
func NewClient(c cache.Cache, namespace string, ttl time.Duration, headers map[string]string) *Client {
	if c == nil {
		c = cache.NewNullCache()
	}
	return &Client{
		http:      NewHTTPClient(),
		cache:     c,
		keyer:     cache.NewDefaultKeyer(),
		namespace: namespace,
		ttl:       ttl,
		headers:   headers,
		retry:     RetryWithBackoff,
	}
}

// WithHTTPClient replaces the underlying http.Client.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

// WithKeyer replaces the cache keyer.
func (c *Client) WithKeyer(k cache.Keyer) *Client {
	c.keyer = k
	return c
}

// WithRetry replaces the retry policy, [RetryWithBackoff] by default.
func (c *Client) WithRetry(retry func(ctx context.Context, fn func() error) error) *Client {
	c.retry = retry
	return c
}

// Keyer returns the keyer used for cache keys.
func (c *Client) Keyer() cache.Keyer { return c.keyer }

// Cached returns the cached payload for key, or runs fetch with retries and
// caches its result. refresh skips the cache lookup but still stores the
// fresh payload. A non-nil validate vets every payload: a cached one that
// fails is refetched, and a fetched one that fails is returned as an error
// without being cached.
func (c *Client) Cached(ctx context.Context, key string, refresh bool, fetch func(ctx context.Context) ([]byte, error), validate func([]byte) error) ([]byte, error) {
	if validate == nil {
		validate = func([]byte) error { return nil }
	}
	if !refresh {
		if data, ok, err := c.cache.Get(ctx, key); err == nil && ok {
			if validate(data) == nil {
				return data, nil
			}
			_ = c.cache.Delete(ctx, key)
		}
	}
	var data []byte
	err := c.retry(ctx, func() error {
		var err error
		data, err = fetch(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := validate(data); err != nil {
		return nil, err
	}
	_ = c.cache.Set(ctx, key, data, c.ttl)
	return data, nil
}

// GetBytes performs a GET and returns the whole body, going through the
// response cache.
func (c *Client) GetBytes(ctx context.Context, rawURL string, refresh bool) ([]byte, error) {
	key := c.keyer.HTTPKey(c.namespace, rawURL)
	return c.Cached(ctx, key, refresh, func(ctx context.Context) ([]byte, error) {
		return c.Fetch(ctx, rawURL)
	}, nil)
}

// Fetch performs a single uncached GET and returns the whole body. It is
// meant as the fetch function of [Client.Cached] when the caller picks its
// own cache key.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	body, err := c.doRequest(ctx, rawURL, nil)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, &RetryableError{Err: fmt.Errorf("%w: read body: %w", ErrNetwork, err)}
	}
	return data, nil
}

// Get performs an uncached GET and JSON-decodes the response into v.
func (c *Client) Get(ctx context.Context, rawURL string, v any) error {
	return c.retry(ctx, func() error {
		body, err := c.doRequest(ctx, rawURL, nil)
		if err != nil {
			return err
		}
		defer body.Close()
		return json.NewDecoder(body).Decode(v)
	})
}

func (c *Client) doRequest(ctx context.Context, rawURL string, headers map[string]string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	host, path := req.URL.Host, req.URL.Path
	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		return nil, &RetryableError{Err: fmt.Errorf("%w: %w", ErrNetwork, err)}
	}
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

func checkStatus(resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusTooManyRequests || code >= 500:
		return &RetryableError{
			Err:   fmt.Errorf("%w: status %d", ErrNetwork, code),
			After: retryAfter(resp.Header.Get("Retry-After")),
		}
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}

// retryAfter reads a Retry-After header given in seconds. HTTP dates are
// ignored.
func retryAfter(v string) time.Duration {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}
