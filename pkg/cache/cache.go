// Package cache stores raw backend responses under content-addressed keys
// for a limited time.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Store is the narrow interface the gateway caches through. A missing or
// expired key is reported as ok=false with a nil error. A non-positive ttl
// stores nothing.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Purger is implemented by stores that can drop expired entries eagerly.
type Purger interface {
	Purge(ctx context.Context) (int, error)
}

// Stats summarizes the contents of a store.
type Stats struct {
	Entries int   `json:"entries"`
	Expired int   `json:"expired"`
	Bytes   int64 `json:"bytes"`
	Hits    int64 `json:"hits"`
}

// Clearer is implemented by stores that can drop every entry.
type Clearer interface {
	Clear(ctx context.Context) error
}

// StatsReporter is implemented by stores that can describe their contents.
type StatsReporter interface {
	Stats(ctx context.Context) (Stats, error)
}

type keyMaterial struct {
	URL     string            `json:"url"`
	Params  map[string]string `json:"params"`
	Headers map[string]string `json:"headers"`
}

// Key returns the SHA-256 hex digest of the canonical JSON encoding of
// {url, params, headers}. Map keys are encoded in sorted order and nil maps
// encode like empty ones, so equal requests always share a key.
func Key(url string, params, headers map[string]string) string {
	if params == nil {
		params = map[string]string{}
	}
	if headers == nil {
		headers = map[string]string{}
	}
	// string maps always marshal
	data, _ := json.Marshal(keyMaterial{URL: url, Params: params, Headers: headers})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Open builds the store named by kind: "memory", "sqlite" or "none".
func Open(ctx context.Context, kind, path string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		if path == "" {
			return nil, fmt.Errorf("sqlite cache requires a path")
		}
		store, err := OpenSQLite(ctx, path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "none":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown cache type %q", kind)
	}
}

// Close releases the resources held by s when it has any.
func Close(s Store) error {
	if c, ok := s.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
