// Package config loads realmmap settings.
//
// Settings come from three layers, later ones winning: built-in defaults,
// a TOML file (realmmap.toml), and REALMMAP_* environment variables. A
// .env file in the working directory is loaded into the environment first
// without overriding variables that are already set. Command-line flags
// are applied on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/calavorn/realmmap/pkg/cache"
	"github.com/calavorn/realmmap/pkg/drill"
	errs "github.com/calavorn/realmmap/pkg/errors"
	"github.com/calavorn/realmmap/pkg/explorer"
	"github.com/calavorn/realmmap/pkg/hover"
	"github.com/calavorn/realmmap/pkg/layers"
	"github.com/calavorn/realmmap/pkg/source"
)

// DefaultFile is the config file looked up in the working directory.
const DefaultFile = "realmmap.toml"

// Duration is a time.Duration read from TOML strings like "30s".
type Duration struct{ time.Duration }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

type Source struct {
	Kind            string   `toml:"kind"`
	URL             string   `toml:"url"`
	Dir             string   `toml:"dir"`
	MongoURI        string   `toml:"mongo_uri"`
	MongoDatabase   string   `toml:"mongo_database"`
	MongoCollection string   `toml:"mongo_collection"`
	Timeout         Duration `toml:"timeout"`
}

type Assets struct {
	OverlayBase string `toml:"overlay_base"`
	MapBase     string `toml:"map_base"`
	BannerBase  string `toml:"banner_base"`
	Ext         string `toml:"ext"`
	MapDir      string `toml:"map_dir"`
	// Dir, when set, is served by the API under OverlayBase.
	Dir string `toml:"dir"`
}

type Cache struct {
	Backend       string   `toml:"backend"`
	Dir           string   `toml:"dir"`
	TTL           Duration `toml:"ttl"`
	RedisAddr     string   `toml:"redis_addr"`
	RedisPassword string   `toml:"redis_password"`
	RedisDB       int      `toml:"redis_db"`
}

type Drill struct {
	StackKey string `toml:"stack_key"`
}

type Server struct {
	Addr         string   `toml:"addr"`
	RateLimitRPM int      `toml:"rate_limit_rpm"`
	SessionTTL   Duration `toml:"session_ttl"`
	SessionStore string   `toml:"session_store"`
}

type Display struct {
	World string `toml:"world"`
}

// Config is the full configuration.
type Config struct {
	Source  Source  `toml:"source"`
	Assets  Assets  `toml:"assets"`
	Cache   Cache   `toml:"cache"`
	Drill   Drill   `toml:"drill"`
	Server  Server  `toml:"server"`
	Display Display `toml:"display"`
}

// Default returns the built-in configuration.
func Default() Config {
	a := layers.DefaultAssets()
	return Config{
		Source: Source{
			Kind:            source.KindHTTP,
			URL:             "http://localhost:8000",
			MongoDatabase:   "realmmap",
			MongoCollection: "tiers",
			Timeout:         Duration{10 * time.Second},
		},
		Assets: Assets{
			OverlayBase: a.OverlayBase,
			MapBase:     a.MapBase,
			BannerBase:  a.BannerBase,
			Ext:         a.Ext,
		},
		Cache: Cache{
			Backend: cache.BackendFile,
			TTL:     Duration{24 * time.Hour},
		},
		Drill: Drill{StackKey: "id"},
		Server: Server{
			Addr:         ":8080",
			RateLimitRPM: 600,
			SessionTTL:   Duration{2 * time.Hour},
			SessionStore: "memory",
		},
		Display: Display{World: hover.DefaultWorld},
	}
}

// Load builds the configuration. path names the TOML file; when empty,
// DefaultFile is used if it exists. An explicitly named file must exist.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, errs.Wrap(errs.ErrCodeInvalidInput, err, "load config %s", path)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Parse decodes TOML text over the defaults.
func Parse(data string) (Config, error) {
	cfg := Default()
	if _, err := toml.Decode(data, &cfg); err != nil {
		return Config{}, errs.Wrap(errs.ErrCodeInvalidInput, err, "parse config")
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"REALMMAP_SOURCE_KIND":      &c.Source.Kind,
		"REALMMAP_SOURCE_URL":       &c.Source.URL,
		"REALMMAP_SOURCE_DIR":       &c.Source.Dir,
		"REALMMAP_MONGO_URI":        &c.Source.MongoURI,
		"REALMMAP_MONGO_DATABASE":   &c.Source.MongoDatabase,
		"REALMMAP_MONGO_COLLECTION": &c.Source.MongoCollection,
		"REALMMAP_OVERLAY_BASE":     &c.Assets.OverlayBase,
		"REALMMAP_ASSETS_EXT":       &c.Assets.Ext,
		"REALMMAP_MAP_DIR":          &c.Assets.MapDir,
		"REALMMAP_ASSETS_DIR":       &c.Assets.Dir,
		"REALMMAP_CACHE_BACKEND":    &c.Cache.Backend,
		"REALMMAP_CACHE_DIR":        &c.Cache.Dir,
		"REALMMAP_REDIS_ADDR":       &c.Cache.RedisAddr,
		"REALMMAP_REDIS_PASSWORD":   &c.Cache.RedisPassword,
		"REALMMAP_STACK_KEY":        &c.Drill.StackKey,
		"REALMMAP_ADDR":             &c.Server.Addr,
		"REALMMAP_SESSION_STORE":    &c.Server.SessionStore,
		"REALMMAP_WORLD":            &c.Display.World,
	}
	for k, p := range str {
		if v, ok := lookup(k); ok {
			*p = v
		}
	}

	ints := map[string]*int{
		"REALMMAP_REDIS_DB":       &c.Cache.RedisDB,
		"REALMMAP_RATE_LIMIT_RPM": &c.Server.RateLimitRPM,
	}
	for k, p := range ints {
		if v, ok := lookup(k); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return errs.Wrap(errs.ErrCodeInvalidInput, err, "%s", k)
			}
			*p = n
		}
	}

	durs := map[string]*Duration{
		"REALMMAP_SOURCE_TIMEOUT": &c.Source.Timeout,
		"REALMMAP_CACHE_TTL":      &c.Cache.TTL,
		"REALMMAP_SESSION_TTL":    &c.Server.SessionTTL,
	}
	for k, p := range durs {
		if v, ok := lookup(k); ok {
			if err := p.UnmarshalText([]byte(v)); err != nil {
				return errs.Wrap(errs.ErrCodeInvalidInput, err, "%s", k)
			}
		}
	}
	return nil
}

// Validate checks enumerated values.
func (c Config) Validate() error {
	switch c.Source.Kind {
	case source.KindHTTP, source.KindDir, source.KindMongo:
	default:
		return errs.New(errs.ErrCodeInvalidInput, "source.kind must be http, dir or mongo, got %q", c.Source.Kind)
	}
	switch c.Cache.Backend {
	case cache.BackendFile, cache.BackendBadger, cache.BackendRedis, cache.BackendNone:
	default:
		return errs.New(errs.ErrCodeInvalidInput, "cache.backend must be file, badger, redis or none, got %q", c.Cache.Backend)
	}
	switch c.Server.SessionStore {
	case "memory", "redis":
	default:
		return errs.New(errs.ErrCodeInvalidInput, "server.session_store must be memory or redis, got %q", c.Server.SessionStore)
	}
	if _, err := drill.ParseStackKey(c.Drill.StackKey); err != nil {
		return errs.Wrap(errs.ErrCodeInvalidInput, err, "drill.stack_key")
	}
	if c.Server.RateLimitRPM < 0 {
		return errs.New(errs.ErrCodeInvalidInput, "server.rate_limit_rpm must not be negative")
	}
	return nil
}

// LayerAssets returns the overlay path layout.
func (c Config) LayerAssets() layers.Assets {
	return layers.Assets{
		OverlayBase: c.Assets.OverlayBase,
		MapBase:     c.Assets.MapBase,
		BannerBase:  c.Assets.BannerBase,
		Ext:         c.Assets.Ext,
	}
}

// ExplorerSettings returns the settings shared by every tier bundle.
func (c Config) ExplorerSettings() explorer.Settings {
	key, _ := drill.ParseStackKey(c.Drill.StackKey)
	return explorer.Settings{Assets: c.LayerAssets(), World: c.Display.World, StackKey: key}
}

// SourceOptions returns the options for source.Open. The cache is set by
// the caller.
func (c Config) SourceOptions() source.Options {
	return source.Options{
		Kind:            c.Source.Kind,
		URL:             c.Source.URL,
		Timeout:         c.Source.Timeout.Duration,
		TTL:             c.Cache.TTL.Duration,
		Dir:             c.Source.Dir,
		MapDir:          c.Assets.MapDir,
		MongoURI:        c.Source.MongoURI,
		MongoDatabase:   c.Source.MongoDatabase,
		MongoCollection: c.Source.MongoCollection,
	}
}

// CacheOptions returns the options for cache.Open. dir is the fallback
// directory when cache.dir is unset.
func (c Config) CacheOptions(dir string) cache.Options {
	if c.Cache.Dir != "" {
		dir = c.Cache.Dir
	}
	return cache.Options{
		Backend: c.Cache.Backend,
		Dir:     dir,
		Redis: cache.RedisOptions{
			Addr:     c.Cache.RedisAddr,
			Password: c.Cache.RedisPassword,
			DB:       c.Cache.RedisDB,
		},
		Prefix: "realmmap:",
	}
}

// String renders the configuration as TOML with secrets masked.
func (c Config) String() string {
	masked := c
	if masked.Cache.RedisPassword != "" {
		masked.Cache.RedisPassword = "***"
	}
	if masked.Source.MongoURI != "" {
		masked.Source.MongoURI = "***"
	}
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(masked); err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return b.String()
}
