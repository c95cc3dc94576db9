// Package source loads tier datasets and base maps.
//
// A [Source] answers two questions per tier: which regions exist (the
// dataset) and what the base map looks like. Three implementations are
// provided:
//
//   - [HTTPSource]: a remote map backend serving /data/{tier} and
//     /map/{tier}, with response caching and retries
//   - [DirSource]: {tier}.json datasets and {tier}_map.png base maps on
//     disk
//   - [MongoSource]: datasets stored as one document per tier, base maps
//     on disk
//
// Sources report failures as coded errors from the errors package:
// TIER_NOT_FOUND when the tier does not exist at the source and
// DATA_UNAVAILABLE for every other failure.
package source

import (
	"context"
	"fmt"
	"time"

	"github.com/calavorn/realmmap/pkg/cache"
	errs "github.com/calavorn/realmmap/pkg/errors"
	"github.com/calavorn/realmmap/pkg/raster"
	"github.com/calavorn/realmmap/pkg/region"
)

// Source provides tier data.
type Source interface {
	// Location identifies the source in logs and cache keys.
	Location() string
	Dataset(ctx context.Context, tier region.Tier) (region.Dataset, error)
	BaseMap(ctx context.Context, tier region.Tier) (*raster.Map, error)
	Close() error
}

// Kinds accepted by [Open].
const (
	KindHTTP  = "http"
	KindDir   = "dir"
	KindMongo = "mongo"
)

// Options configures [Open].
type Options struct {
	Kind string

	URL     string        // http
	Timeout time.Duration // http
	Refresh bool          // http: bypass cached responses
	Cache   cache.Cache   // http
	TTL     time.Duration // http

	Dir    string // dir: datasets
	MapDir string // dir, mongo: base maps; defaults to Dir

	MongoURI        string
	MongoDatabase   string
	MongoCollection string
}

// Open creates the configured source.
func Open(ctx context.Context, o Options) (Source, error) {
	switch o.Kind {
	case KindHTTP, "":
		return NewHTTPSource(o.URL, o.Cache, o.TTL, HTTPOptions{Timeout: o.Timeout, Refresh: o.Refresh})
	case KindDir:
		return NewDirSource(o.Dir, o.MapDir)
	case KindMongo:
		return OpenMongo(ctx, MongoOptions{
			URI:        o.MongoURI,
			Database:   o.MongoDatabase,
			Collection: o.MongoCollection,
			MapDir:     o.MapDir,
		})
	}
	return nil, errs.New(errs.ErrCodeUnsupported, "unknown source kind %q", o.Kind)
}

type refreshKey struct{}

// WithRefresh returns a context under which HTTP sources skip their
// response cache and store what they fetch.
func WithRefresh(ctx context.Context) context.Context {
	return context.WithValue(ctx, refreshKey{}, true)
}

func refreshing(ctx context.Context) bool {
	v, _ := ctx.Value(refreshKey{}).(bool)
	return v
}

func unavailable(err error, tier region.Tier, what string) error {
	return errs.Wrap(errs.ErrCodeDataUnavailable, err, "%s for tier %s", what, tier)
}

func tierNotFound(tier region.Tier, where string) error {
	return errs.New(errs.ErrCodeTierNotFound, "tier %s not found at %s", tier, where)
}

func describe(kind, loc string) string {
	return fmt.Sprintf("%s:%s", kind, loc)
}
