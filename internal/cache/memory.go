package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used by tests and cache-less runs.
// Expiry is passive: entries past their deadline read as misses and are
// dropped on access.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) fullKey(ns Namespace, key string) string {
	return string(ns) + ":" + key
}

func (s *MemoryStore) Get(_ context.Context, ns Namespace, key string) ([]byte, bool) {
	full := s.fullKey(ns, key)

	s.mu.RLock()
	entry, ok := s.entries[full]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if !entry.expiresAt.IsZero() && s.now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, full)
		s.mu.Unlock()
		return nil, false
	}
	return entry.value, true
}

func (s *MemoryStore) Set(_ context.Context, ns Namespace, key string, value []byte, ttl time.Duration) bool {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = s.now().Add(ttl)
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	s.mu.Lock()
	s.entries[s.fullKey(ns, key)] = memoryEntry{value: stored, expiresAt: expiresAt}
	s.mu.Unlock()
	return true
}

func (s *MemoryStore) Delete(_ context.Context, ns Namespace, key string) bool {
	full := s.fullKey(ns, key)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[full]; !ok {
		return false
	}
	delete(s.entries, full)
	return true
}

func (s *MemoryStore) DeleteNamespace(_ context.Context, ns Namespace) int {
	prefix := string(ns) + ":"

	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
			deleted++
		}
	}
	return deleted
}

func (s *MemoryStore) Entries(_ context.Context, ns Namespace, limit int) []Entry {
	prefix := string(ns) + ":"
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for key, entry := range s.entries {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			continue
		}
		short := strings.TrimPrefix(key, prefix)
		scope, _, _ := strings.Cut(short, ":")
		var ttl time.Duration
		if !entry.expiresAt.IsZero() {
			ttl = entry.expiresAt.Sub(now)
		}
		out = append(out, Entry{Key: short, Scope: scope, TTL: ttl, Preview: preview(entry.value)})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

func (s *MemoryStore) Stats(_ context.Context) Stats {
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := Stats{Connected: true, Keys: map[Namespace]int{}}
	for key, entry := range s.entries {
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			continue
		}
		ns, _, _ := strings.Cut(key, ":")
		stats.Keys[Namespace(ns)]++
		stats.TotalKeys++
	}
	return stats
}
