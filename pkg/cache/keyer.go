package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Keyer builds cache keys for the payloads realmmap caches.
type Keyer interface {
	// DatasetKey is the key of a tier's region dataset from source.
	DatasetKey(source, tier string) string
	// BaseMapKey is the key of a tier's base map image from source.
	BaseMapKey(source, tier string) string
	// HTTPKey is the key of a raw HTTP response.
	HTTPKey(namespace, key string) string
}

// DefaultKeyer produces readable keys for tier payloads and hashed keys
// for HTTP responses, whose URLs can be arbitrarily long.
type DefaultKeyer struct{}

func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

func (DefaultKeyer) DatasetKey(source, tier string) string {
	return "dataset:" + sourceTag(source) + ":" + tier
}

func (DefaultKeyer) BaseMapKey(source, tier string) string {
	return "basemap:" + sourceTag(source) + ":" + tier
}

func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return hashKey("http:"+namespace, key)
}

// sourceTag shortens a source location to a stable 12-character tag.
func sourceTag(source string) string {
	return Hash([]byte(strings.TrimRight(source, "/")))[:12]
}

// ScopedKeyer prefixes every key of an inner Keyer, giving several
// deployments sharing one Redis instance separate namespaces.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner uses the
// default keyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) DatasetKey(source, tier string) string {
	return k.prefix + k.inner.DatasetKey(source, tier)
}

func (k *ScopedKeyer) BaseMapKey(source, tier string) string {
	return k.prefix + k.inner.BaseMapKey(source, tier)
}

func (k *ScopedKeyer) HTTPKey(namespace, key string) string {
	return k.prefix + k.inner.HTTPKey(namespace, key)
}

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// hashKey keeps keys short when the raw key is a long URL.
func hashKey(prefix string, parts ...string) string {
	return prefix + ":" + Hash([]byte(strings.Join(parts, "\x00")))
}
