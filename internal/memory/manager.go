// Package memory keeps per-session conversation history: an ordered,
// append-only message log created lazily on first access. The in-process
// manager is the minimal form; SnapshotManager layers cache persistence on
// top for restarts and idle expiry.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one recorded turn half. Messages are never mutated after append.
type Message struct {
	ID      string    `json:"id"`
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Record is the ordered message log of one session.
type Record struct {
	SessionID string    `json:"session_id"`
	Messages  []Message `json:"messages"`
}

// Manager is the session memory contract. Get never fails: an unknown
// session id yields an empty record.
type Manager interface {
	Get(ctx context.Context, sessionID string) Record
	Append(ctx context.Context, sessionID, role, content string)
	Clear(ctx context.Context, sessionID string) bool
	SessionIDs(ctx context.Context) []string
}

// InProcessManager holds session records in a process-local map.
type InProcessManager struct {
	mu       sync.RWMutex
	sessions map[string]*Record
}

func NewInProcessManager() *InProcessManager {
	return &InProcessManager{sessions: make(map[string]*Record)}
}

// Get materializes the session on first access, so a bare Get makes the
// session enumerable and clearable.
func (m *InProcessManager) Get(_ context.Context, sessionID string) Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.sessions[sessionID]
	if !ok {
		record = &Record{SessionID: sessionID}
		m.sessions[sessionID] = record
	}

	// Copy so callers cannot mutate the log.
	messages := make([]Message, len(record.Messages))
	copy(messages, record.Messages)
	return Record{SessionID: sessionID, Messages: messages}
}

func (m *InProcessManager) Append(_ context.Context, sessionID, role, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.sessions[sessionID]
	if !ok {
		record = &Record{SessionID: sessionID}
		m.sessions[sessionID] = record
	}
	record.Messages = append(record.Messages, Message{
		ID:      ulid.Make().String(),
		Role:    role,
		Content: content,
		At:      time.Now(),
	})
}

func (m *InProcessManager) Clear(_ context.Context, sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[sessionID]; !ok {
		return false
	}
	delete(m.sessions, sessionID)
	return true
}

func (m *InProcessManager) SessionIDs(_ context.Context) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// seed installs a restored record unless the session already holds messages.
func (m *InProcessManager) seed(record Record) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.sessions[record.SessionID]; ok && len(existing.Messages) > 0 {
		return
	}
	messages := make([]Message, len(record.Messages))
	copy(messages, record.Messages)
	m.sessions[record.SessionID] = &Record{SessionID: record.SessionID, Messages: messages}
}
