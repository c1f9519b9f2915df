package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcastrov/andino/internal/cache"
	"github.com/lcastrov/andino/internal/canonical"
	"github.com/lcastrov/andino/internal/config"
	"github.com/lcastrov/andino/internal/memory"
	"github.com/lcastrov/andino/internal/model/contract"
	"github.com/lcastrov/andino/internal/router"
)

type providerStub struct{}

func (p *providerStub) Generate(_ context.Context, _ contract.CompletionRequest) (*contract.CompletionResponse, error) {
	return &contract.CompletionResponse{
		Content: `{"endpoint": "runsql", "needs_new_data": true, "reasoning": "indicador"}`,
	}, nil
}

func (p *providerStub) Name() string { return "stub" }

type upstreamStub struct{ calls int }

func (u *upstreamStub) Query(_ context.Context, _, _ string) canonical.Response {
	u.calls++
	return canonical.Response{
		Rows:  []any{map[string]any{"fecha": "2025-08-01", "valor": 4100.5}},
		Extra: map[string]any{},
	}
}

func newTestServer(t *testing.T) (*Server, *upstreamStub, cache.Store) {
	t.Helper()

	store := cache.NewMemoryStore()
	sessions := memory.NewInProcessManager()
	up := &upstreamStub{}
	rt := router.New(&providerStub{}, up, store, sessions, router.Config{
		ModelName:    "test-model",
		ModelTimeout: time.Second,
		UpstreamTTL:  time.Minute,
		HistoryLimit: 50,
	})

	srv, err := New(config.ServerConfig{Port: 0}, rt, store, sessions)
	require.NoError(t, err)
	return srv, up, store
}

func doJSON(t *testing.T, handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestChat_HappyPath(t *testing.T) {
	srv, up, _ := newTestServer(t)
	handler := srv.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/chat",
		`{"question": "¿Cuál es la TRM hoy?", "session_id": "s1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var turn struct {
		SessionID string `json:"session_id"`
		FromCache bool   `json:"from_cache"`
		Decision  struct {
			Endpoint string `json:"endpoint"`
		} `json:"decision"`
		Result map[string]any `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &turn))
	assert.Equal(t, "s1", turn.SessionID)
	assert.Equal(t, "runsql", turn.Decision.Endpoint)
	assert.False(t, turn.FromCache)
	assert.Contains(t, turn.Result, "datos")
	assert.Equal(t, 1, up.calls)
}

func TestChat_MissingQuestion(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/chat", `{"session_id": "s1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "question")
}

func TestChat_InvalidBody(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/chat", `{broken`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReset_UnknownSession(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/reset", `{"session_id": "ghost"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["cleared"])
}

func TestReset_ClearsSession(t *testing.T) {
	srv, _, _ := newTestServer(t)
	handler := srv.Handler()

	doJSON(t, handler, http.MethodPost, "/api/chat", `{"question": "hola", "session_id": "s1"}`)

	rec := doJSON(t, handler, http.MethodPost, "/api/reset", `{"session_id": "s1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["cleared"])
}

func TestCacheEndpoints(t *testing.T) {
	srv, _, _ := newTestServer(t)
	handler := srv.Handler()

	// Populate the cache through a chat turn.
	doJSON(t, handler, http.MethodPost, "/api/chat", `{"question": "¿Cuál es la TRM hoy?"}`)

	rec := doJSON(t, handler, http.MethodGet, "/api/cache/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats cache.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.True(t, stats.Connected)
	assert.Equal(t, 1, stats.TotalKeys)

	rec = doJSON(t, handler, http.MethodGet, "/api/cache/entries?limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []cache.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Key, "runsql:"))

	rec = doJSON(t, handler, http.MethodPost, "/api/cache/clear", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var cleared map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cleared))
	assert.Equal(t, 1.0, cleared["cleared_keys"])

	rec = doJSON(t, handler, http.MethodGet, "/api/cache/entries", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestCacheEntries_InvalidLimit(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/cache/entries?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessions_ListsActive(t *testing.T) {
	srv, _, _ := newTestServer(t)
	handler := srv.Handler()

	doJSON(t, handler, http.MethodPost, "/api/chat", `{"question": "hola", "session_id": "beta"}`)
	doJSON(t, handler, http.MethodPost, "/api/chat", `{"question": "hola", "session_id": "alfa"}`)

	rec := doJSON(t, handler, http.MethodGet, "/api/sessions", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Sessions []string `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"alfa", "beta"}, body.Sessions)
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "andino", body["service"])
	assert.Contains(t, body, "cache")
}
