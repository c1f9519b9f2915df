package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcastrov/andino/internal/cache"
)

func TestSnapshotManager_RestoresAcrossInstances(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()

	first := NewSnapshotManager(store, time.Hour)
	first.Append(ctx, "s1", RoleUser, "¿Cuál es la TRM hoy?")
	first.Append(ctx, "s1", RoleAssistant, "La TRM es 4100.5")

	// A fresh manager over the same store simulates a process restart.
	second := NewSnapshotManager(store, time.Hour)
	record := second.Get(ctx, "s1")
	require.Len(t, record.Messages, 2)
	assert.Equal(t, "¿Cuál es la TRM hoy?", record.Messages[0].Content)
}

func TestSnapshotManager_AppendAfterRestoreKeepsHistory(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()

	first := NewSnapshotManager(store, time.Hour)
	first.Append(ctx, "s1", RoleUser, "pregunta uno")

	second := NewSnapshotManager(store, time.Hour)
	second.Append(ctx, "s1", RoleUser, "pregunta dos")

	record := second.Get(ctx, "s1")
	require.Len(t, record.Messages, 2)
	assert.Equal(t, "pregunta uno", record.Messages[0].Content)
	assert.Equal(t, "pregunta dos", record.Messages[1].Content)
}

func TestSnapshotManager_ClearRemovesSnapshot(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()

	m := NewSnapshotManager(store, time.Hour)
	m.Append(ctx, "s1", RoleUser, "hola")

	assert.True(t, m.Clear(ctx, "s1"))

	fresh := NewSnapshotManager(store, time.Hour)
	assert.Empty(t, fresh.Get(ctx, "s1").Messages)
}

func TestSnapshotManager_SessionIDsUnion(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()

	old := NewSnapshotManager(store, time.Hour)
	old.Append(ctx, "persisted", RoleUser, "a")

	m := NewSnapshotManager(store, time.Hour)
	m.Append(ctx, "live", RoleUser, "b")

	assert.Equal(t, []string{"live", "persisted"}, m.SessionIDs(ctx))
}
