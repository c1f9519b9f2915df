package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	assert.True(t, s.Set(ctx, NamespaceUpstream, "runsql:abc", []byte(`{"datos":[]}`), time.Minute))

	value, ok := s.Get(ctx, NamespaceUpstream, "runsql:abc")
	require.True(t, ok)
	assert.Equal(t, `{"datos":[]}`, string(value))

	_, ok = s.Get(ctx, NamespaceSession, "runsql:abc")
	assert.False(t, ok, "namespaces are disjoint")
}

func TestMemoryStore_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	current := time.Now()
	s.now = func() time.Time { return current }

	s.Set(ctx, NamespaceUpstream, "k", []byte("v"), 30*time.Minute)

	_, ok := s.Get(ctx, NamespaceUpstream, "k")
	assert.True(t, ok)

	current = current.Add(31 * time.Minute)
	_, ok = s.Get(ctx, NamespaceUpstream, "k")
	assert.False(t, ok, "entry past TTL reads as a miss")
}

func TestMemoryStore_ZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	current := time.Now()
	s.now = func() time.Time { return current }

	s.Set(ctx, NamespaceSession, "s1", []byte("v"), 0)
	current = current.Add(24 * time.Hour)

	_, ok := s.Get(ctx, NamespaceSession, "s1")
	assert.True(t, ok)
}

func TestMemoryStore_DeleteNamespace(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	s.Set(ctx, NamespaceUpstream, "a", []byte("1"), time.Minute)
	s.Set(ctx, NamespaceUpstream, "b", []byte("2"), time.Minute)
	s.Set(ctx, NamespaceSession, "c", []byte("3"), time.Minute)

	assert.Equal(t, 2, s.DeleteNamespace(ctx, NamespaceUpstream))

	_, ok := s.Get(ctx, NamespaceSession, "c")
	assert.True(t, ok, "other namespace untouched")
}

func TestMemoryStore_EntriesAndStats(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	s.Set(ctx, NamespaceUpstream, "runsql:abc", []byte(`{"answer":"la TRM es 4100"}`), time.Minute)

	entries := s.Entries(ctx, NamespaceUpstream, 10)
	require.Len(t, entries, 1)
	assert.Equal(t, "runsql:abc", entries[0].Key)
	assert.Equal(t, "runsql", entries[0].Scope)
	assert.Equal(t, "la TRM es 4100", entries[0].Preview)
	assert.Greater(t, entries[0].TTL, time.Duration(0))

	stats := s.Stats(ctx)
	assert.True(t, stats.Connected)
	assert.Equal(t, 1, stats.TotalKeys)
	assert.Equal(t, 1, stats.Keys[NamespaceUpstream])
}

func TestPreview_FirstRowFallback(t *testing.T) {
	p := preview([]byte(`{"datos":[{"fecha":"2025-08-01","valor":4100.5}]}`))
	assert.Contains(t, p, "2025-08-01")

	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}
	assert.Len(t, preview(long), previewLength)
}
