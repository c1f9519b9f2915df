package memory

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"time"

	"github.com/lcastrov/andino/internal/cache"
)

// SnapshotManager mirrors session history into the cache store under the
// session namespace, so conversations survive restarts and expire after the
// idle TTL. The TTL is refreshed on every append. The in-process map stays
// the source of truth within one process; the snapshot is only read to
// restore a session the process has not seen yet.
type SnapshotManager struct {
	inner *InProcessManager
	store cache.Store
	ttl   time.Duration
}

func NewSnapshotManager(store cache.Store, ttl time.Duration) *SnapshotManager {
	return &SnapshotManager{
		inner: NewInProcessManager(),
		store: store,
		ttl:   ttl,
	}
}

func (m *SnapshotManager) Get(ctx context.Context, sessionID string) Record {
	record := m.inner.Get(ctx, sessionID)
	if len(record.Messages) > 0 {
		return record
	}

	value, ok := m.store.Get(ctx, cache.NamespaceSession, sessionID)
	if !ok {
		return record
	}

	var restored Record
	if err := json.Unmarshal(value, &restored); err != nil {
		slog.Warn("Discarding unreadable session snapshot", "session_id", sessionID, "error", err)
		return record
	}
	restored.SessionID = sessionID
	m.inner.seed(restored)
	return m.inner.Get(ctx, sessionID)
}

func (m *SnapshotManager) Append(ctx context.Context, sessionID, role, content string) {
	// Restore before appending so a resumed session keeps its history.
	m.Get(ctx, sessionID)
	m.inner.Append(ctx, sessionID, role, content)

	record := m.inner.Get(ctx, sessionID)
	value, err := json.Marshal(record)
	if err != nil {
		slog.Warn("Session snapshot marshal failed", "session_id", sessionID, "error", err)
		return
	}
	m.store.Set(ctx, cache.NamespaceSession, sessionID, value, m.ttl)
}

func (m *SnapshotManager) Clear(ctx context.Context, sessionID string) bool {
	cleared := m.inner.Clear(ctx, sessionID)
	if m.store.Delete(ctx, cache.NamespaceSession, sessionID) {
		cleared = true
	}
	return cleared
}

func (m *SnapshotManager) SessionIDs(ctx context.Context) []string {
	seen := map[string]bool{}
	for _, id := range m.inner.SessionIDs(ctx) {
		seen[id] = true
	}
	for _, entry := range m.store.Entries(ctx, cache.NamespaceSession, 0) {
		seen[entry.Key] = true
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
