package source

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/calavorn/realmmap/pkg/cache"
	errs "github.com/calavorn/realmmap/pkg/errors"
	"github.com/calavorn/realmmap/pkg/httputil"
	"github.com/calavorn/realmmap/pkg/raster"
	"github.com/calavorn/realmmap/pkg/region"
)

// HTTPOptions tunes an HTTPSource.
type HTTPOptions struct {
	Timeout time.Duration
	Refresh bool
	Headers map[string]string
}

// HTTPSource fetches tiers from a map backend.
type HTTPSource struct {
	base    string
	client  *httputil.Client
	refresh bool
}

// NewHTTPSource creates a source for the backend at baseURL. Responses are
// cached in c for ttl; a nil cache disables caching.
func NewHTTPSource(baseURL string, c cache.Cache, ttl time.Duration, o HTTPOptions) (*HTTPSource, error) {
	if err := errs.ValidateURL(baseURL); err != nil {
		return nil, err
	}
	headers := map[string]string{"Accept": "application/json, image/*"}
	for k, v := range o.Headers {
		headers[k] = v
	}
	client := httputil.NewClient(c, "source", ttl, headers)
	if o.Timeout > 0 {
		h := httputil.NewHTTPClient()
		h.Timeout = o.Timeout
		client.WithHTTPClient(h)
	}
	return &HTTPSource{
		base:    strings.TrimRight(baseURL, "/"),
		client:  client,
		refresh: o.Refresh,
	}, nil
}

// WithRetry replaces the retry policy of the underlying client.
func (s *HTTPSource) WithRetry(retry func(ctx context.Context, fn func() error) error) *HTTPSource {
	s.client.WithRetry(retry)
	return s
}

func (s *HTTPSource) Location() string { return describe(KindHTTP, s.base) }

func (s *HTTPSource) Dataset(ctx context.Context, tier region.Tier) (region.Dataset, error) {
	key := s.client.Keyer().DatasetKey(s.base, string(tier))
	var ds region.Dataset
	err := s.fetch(ctx, key, s.base+"/data/"+url.PathEscape(string(tier)), func(data []byte) error {
		var err error
		ds, err = region.ParseDataset(data)
		return err
	})
	if err != nil {
		return nil, s.classify(err, tier, "fetch dataset")
	}
	return ds, nil
}

func (s *HTTPSource) BaseMap(ctx context.Context, tier region.Tier) (*raster.Map, error) {
	key := s.client.Keyer().BaseMapKey(s.base, string(tier))
	var m *raster.Map
	err := s.fetch(ctx, key, s.base+"/map/"+url.PathEscape(string(tier)), func(data []byte) error {
		var err error
		if m, err = raster.DecodeBytes(data); err != nil {
			return unavailable(err, tier, "decode base map")
		}
		return nil
	})
	if err != nil {
		return nil, s.classify(err, tier, "fetch base map")
	}
	return m, nil
}

func (s *HTTPSource) Close() error { return nil }

// fetch loads rawURL through the response cache. parse runs on every
// payload; one it rejects is never kept.
func (s *HTTPSource) fetch(ctx context.Context, key, rawURL string, parse func([]byte) error) error {
	_, err := s.client.Cached(ctx, key, s.refresh || refreshing(ctx), func(ctx context.Context) ([]byte, error) {
		return s.client.Fetch(ctx, rawURL)
	}, parse)
	return err
}

func (s *HTTPSource) classify(err error, tier region.Tier, what string) error {
	switch {
	case errs.GetCode(err) != "":
		return err
	case errors.Is(err, httputil.ErrNotFound):
		return tierNotFound(tier, s.base)
	case errors.Is(err, context.DeadlineExceeded):
		return errs.Wrap(errs.ErrCodeTimeout, err, "%s for tier %s", what, tier)
	default:
		return unavailable(err, tier, what)
	}
}

var _ Source = (*HTTPSource)(nil)
