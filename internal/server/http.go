// Package server exposes the chat and cache-administration HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lcastrov/andino/internal/cache"
	"github.com/lcastrov/andino/internal/config"
	"github.com/lcastrov/andino/internal/memory"
	"github.com/lcastrov/andino/internal/router"
)

type Server struct {
	router   *router.Router
	store    cache.Store
	sessions memory.Manager
	server   *http.Server
	shutdown time.Duration
}

func New(cfg config.ServerConfig, rt *router.Router, store cache.Store, sessions memory.Manager) (*Server, error) {
	readTimeout, err := config.DurationOrDefault(cfg.ReadTimeout, config.DefaultServerReadTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse server read timeout: %w", err)
	}
	writeTimeout, err := config.DurationOrDefault(cfg.WriteTimeout, config.DefaultServerWriteTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse server write timeout: %w", err)
	}
	idleTimeout, err := config.DurationOrDefault(cfg.IdleTimeout, config.DefaultServerIdleTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse server idle timeout: %w", err)
	}
	shutdownTimeout, err := config.DurationOrDefault(cfg.ShutdownTimeout, config.DefaultServerShutdownTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse server shutdown timeout: %w", err)
	}

	s := &Server{
		router:   rt,
		store:    store,
		sessions: sessions,
		shutdown: shutdownTimeout,
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	return s, nil
}

// Handler builds the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /api/reset", s.handleReset)
	mux.HandleFunc("GET /api/sessions", s.handleSessions)
	mux.HandleFunc("GET /api/cache/stats", s.handleCacheStats)
	mux.HandleFunc("POST /api/cache/clear", s.handleCacheClear)
	mux.HandleFunc("GET /api/cache/entries", s.handleCacheEntries)
	mux.HandleFunc("GET /health", s.handleHealth)
	return mux
}

// Start runs the listener in a goroutine.
func (s *Server) Start() {
	go func() {
		slog.Info("HTTP server listening", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "error", err)
		}
	}()
}

// Stop shuts the listener down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, s.shutdown)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

type chatRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "cuerpo JSON inválido")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "falta el campo 'question' en el body")
		return
	}
	if req.SessionID == "" {
		req.SessionID = "default"
	}

	turn := s.router.Process(r.Context(), req.Question, req.SessionID)
	writeJSON(w, http.StatusOK, turn)
}

type resetRequest struct {
	SessionID string `json:"session_id"`
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	// An empty body resets the default session.
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.SessionID == "" {
		req.SessionID = "default"
	}

	cleared := s.router.ClearSession(r.Context(), req.SessionID)
	message := "memoria limpiada exitosamente"
	if !cleared {
		message = "sesión no encontrada"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": req.SessionID,
		"cleared":    cleared,
		"message":    message,
	})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": s.sessions.SessionIDs(r.Context()),
	})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Stats(r.Context()))
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	count := s.store.DeleteNamespace(r.Context(), cache.NamespaceUpstream)
	writeJSON(w, http.StatusOK, map[string]any{
		"cleared_keys": count,
		"message":      fmt.Sprintf("se eliminaron %d entradas del caché", count),
	})
}

func (s *Server) handleCacheEntries(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "parámetro 'limit' inválido")
			return
		}
		limit = parsed
	}

	entries := s.store.Entries(r.Context(), cache.NamespaceUpstream, limit)
	if entries == nil {
		entries = []cache.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"service":  "andino",
		"features": []string{"conversation_memory", "session_management", "response_cache"},
		"cache":    s.store.Stats(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
