// Package cache provides the namespaced TTL key-value layer in front of the
// upstream indicator API. The Redis backend degrades to a no-op on connection
// failure so an unreachable store never breaks a turn; the in-memory backend
// serves tests and cache-less runs.
package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Namespace partitions the key space. Full keys are laid out as
// {prefix}{namespace}:{key}.
type Namespace string

const (
	// NamespaceUpstream holds normalized upstream responses keyed by
	// strategy and question digest.
	NamespaceUpstream Namespace = "upstream"

	// NamespaceSession holds session history snapshots keyed by session id.
	NamespaceSession Namespace = "session"
)

// Entry describes one cached value for the administrative listing.
type Entry struct {
	Key     string        `json:"key"`
	Scope   string        `json:"scope"`
	TTL     time.Duration `json:"ttl"`
	Preview string        `json:"preview"`
}

// Stats is the aggregate view surfaced on the admin and health endpoints.
type Stats struct {
	Connected  bool              `json:"connected"`
	UsedMemory string            `json:"used_memory,omitempty"`
	Keys       map[Namespace]int `json:"keys,omitempty"`
	TotalKeys  int               `json:"total_keys"`
	Error      string            `json:"error,omitempty"`
}

// Store is the cache contract. No operation fails hard: an unavailable
// backend reads as a miss and writes as a false return, and the caller
// proceeds uncached.
type Store interface {
	// Get returns the cached value and whether it was present and unexpired.
	Get(ctx context.Context, ns Namespace, key string) ([]byte, bool)

	// Set stores value under (ns, key) for ttl. Returns false when the store
	// is unavailable or rejects the write.
	Set(ctx context.Context, ns Namespace, key string, value []byte, ttl time.Duration) bool

	// Delete removes one key; false when it did not exist or the store is down.
	Delete(ctx context.Context, ns Namespace, key string) bool

	// DeleteNamespace removes every key under ns and returns how many went away.
	DeleteNamespace(ctx context.Context, ns Namespace) int

	// Entries lists up to limit entries under ns with remaining TTL and a
	// short value preview. Expired entries may or may not appear.
	Entries(ctx context.Context, ns Namespace, limit int) []Entry

	// Stats reports connectivity, per-namespace key counts and memory usage.
	Stats(ctx context.Context) Stats
}

const previewLength = 100

// preview renders the first glimpse of a cached value for listings: the
// answer field, else the first row, else the raw value, truncated.
func preview(value []byte) string {
	var obj map[string]any
	if err := json.Unmarshal(value, &obj); err == nil {
		if v, ok := obj["answer"]; ok {
			return truncate(stringify(v))
		}
		if rows, ok := obj["datos"].([]any); ok && len(rows) > 0 {
			return truncate(stringify(rows[0]))
		}
	}
	return truncate(string(value))
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func truncate(s string) string {
	if len(s) > previewLength {
		return s[:previewLength]
	}
	return s
}
