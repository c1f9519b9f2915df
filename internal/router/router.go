// Package router decides, per conversational turn, whether to reuse session
// context or fetch fresh data, and which upstream strategy serves the
// question. It orchestrates the cache store, key deriver, normalizer and
// session memory; every turn runs the same state sequence:
// contextualize, decide, fetch or reuse, record.
package router

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/lcastrov/andino/internal/cache"
	"github.com/lcastrov/andino/internal/canonical"
	"github.com/lcastrov/andino/internal/concurrency"
	"github.com/lcastrov/andino/internal/memory"
	"github.com/lcastrov/andino/internal/model"
	"github.com/lcastrov/andino/internal/model/contract"
	"github.com/lcastrov/andino/internal/upstream"
)

// Config carries the tunables of the turn pipeline.
type Config struct {
	// ModelName is passed through to the model collaborator.
	ModelName string
	// ModelTimeout bounds each model call; on expiry the turn continues
	// with the raw question or the fallback decision.
	ModelTimeout time.Duration
	// UpstreamTTL is the default lifetime of cached upstream responses.
	UpstreamTTL time.Duration
	// HistoryLimit caps how many messages feed contextualization.
	HistoryLimit int
	// ContextMessages is how many trailing messages summarize the session
	// for the routing decision.
	ContextMessages int
	// ReuseMessages is how many trailing messages are embedded verbatim in
	// the context-only prompt.
	ReuseMessages int
}

// Turn is the terminal output of one processed question.
type Turn struct {
	Question           string             `json:"question"`
	StandaloneQuestion string             `json:"standalone_question"`
	Decision           Decision           `json:"decision"`
	Result             canonical.Response `json:"result"`
	FromCache          bool               `json:"from_cache"`
	SessionID          string             `json:"session_id"`
	Elapsed            time.Duration      `json:"-"`
}

type Router struct {
	provider model.Provider
	upstream upstream.Client
	store    cache.Store
	sessions memory.Manager
	locks    *concurrency.SessionLocks
	cfg      Config
}

func New(provider model.Provider, up upstream.Client, store cache.Store, sessions memory.Manager, cfg Config) *Router {
	if cfg.ContextMessages <= 0 {
		cfg.ContextMessages = 4
	}
	if cfg.ReuseMessages <= 0 {
		cfg.ReuseMessages = 6
	}
	return &Router{
		provider: provider,
		upstream: up,
		store:    store,
		sessions: sessions,
		locks:    concurrency.NewSessionLocks(),
		cfg:      cfg,
	}
}

// Process runs one full turn. It never returns an error: every failure is
// folded into the result, and the turn is always recorded in session memory.
// Turns within a session are serialized; the session lock is held until the
// turn is recorded.
func (r *Router) Process(ctx context.Context, question, sessionID string) Turn {
	start := time.Now()

	r.locks.Lock(sessionID)
	defer r.locks.Unlock(sessionID)

	history := r.sessions.Get(ctx, sessionID)
	historyMessages := lastMessages(history.Messages, r.cfg.HistoryLimit)
	hasHistory := len(historyMessages) > 0

	// CONTEXTUALIZE: rewrite into a standalone question. Skipped (and no
	// model call made) on the first turn of a session.
	standalone := question
	if hasHistory {
		standalone = r.contextualize(ctx, historyMessages, question)
	}

	// DECIDE: structured strategy decision. A session with no history has
	// no context to reuse, so fresh data is forced and the context-only
	// strategy is overridden regardless of the model's verdict.
	decision := r.decide(ctx, historyMessages, question)
	if !hasHistory {
		decision.NeedsNewData = true
		if decision.Strategy == StrategyGenAI {
			decision.Strategy = DefaultStrategy
		}
	}

	// FETCH_FRESH or REUSE_CONTEXT: both routes share the cache-backed
	// fetch path, so repeated context questions are equally cache-eligible.
	var result canonical.Response
	var fromCache bool
	if !decision.NeedsNewData && hasHistory {
		decision.Strategy = StrategyGenAI
		prompt := contextPrompt(historyMessages, r.cfg.ReuseMessages, question)
		result, fromCache = r.fetch(ctx, StrategyGenAI, prompt)
	} else {
		result, fromCache = r.fetch(ctx, decision.Strategy, standalone)
	}

	// RECORD: append both turn halves unconditionally, error results too.
	r.sessions.Append(ctx, sessionID, memory.RoleUser, question)
	r.sessions.Append(ctx, sessionID, memory.RoleAssistant, result.AnswerText())

	slog.Info("Turn processed",
		"session_id", sessionID,
		"strategy", decision.Strategy,
		"from_cache", fromCache,
		"elapsed", time.Since(start))

	return Turn{
		Question:           question,
		StandaloneQuestion: standalone,
		Decision:           decision,
		Result:             result,
		FromCache:          fromCache,
		SessionID:          sessionID,
		Elapsed:            time.Since(start),
	}
}

// contextualize asks the model to rewrite the question using the session
// history. Any failure falls back to the raw question; this never aborts
// the turn.
func (r *Router) contextualize(ctx context.Context, history []memory.Message, question string) string {
	messages := make([]contract.Message, 0, len(history)+2)
	messages = append(messages, contract.Message{Role: "system", Content: contextualizeSystemPrompt})
	for _, msg := range history {
		messages = append(messages, contract.Message{Role: msg.Role, Content: msg.Content})
	}
	messages = append(messages, contract.Message{Role: "user", Content: question})

	resp, err := r.generate(ctx, messages)
	if err != nil {
		slog.Warn("Contextualization failed, using raw question", "error", err)
		return question
	}

	standalone := strings.TrimSpace(resp.Content)
	if standalone == "" {
		return question
	}
	return standalone
}

// decide asks the model for a structured route decision and falls back to
// the deterministic default on any failure.
func (r *Router) decide(ctx context.Context, history []memory.Message, question string) Decision {
	messages := []contract.Message{
		{Role: "system", Content: routerSystemPrompt},
		{Role: "user", Content: routingQuestion(question, history, r.cfg.ContextMessages)},
	}

	resp, err := r.generate(ctx, messages)
	if err != nil {
		slog.Warn("Route decision call failed", "error", err)
		return FallbackDecision("el modelo de enrutamiento no respondió")
	}

	decision, err := parseDecision(resp.Content)
	if err != nil {
		slog.Warn("Route decision unparseable", "error", err)
		return FallbackDecision("respuesta de enrutamiento inválida")
	}
	return decision
}

func (r *Router) generate(ctx context.Context, messages []contract.Message) (*contract.CompletionResponse, error) {
	if r.cfg.ModelTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.ModelTimeout)
		defer cancel()
	}
	return r.provider.Generate(ctx, contract.CompletionRequest{
		Model:    r.cfg.ModelName,
		Messages: messages,
	})
}

// fetch resolves (strategy, question) through the cache: a hit skips the
// upstream call entirely; a miss queries upstream, and the normalized result
// is written back only when it carries no error or warning marker.
func (r *Router) fetch(ctx context.Context, strategy Strategy, question string) (canonical.Response, bool) {
	key := cache.DeriveKey(string(strategy), question)

	if value, ok := r.store.Get(ctx, cache.NamespaceUpstream, key); ok {
		var cached canonical.Response
		if err := json.Unmarshal(value, &cached); err == nil {
			return cached, true
		}
		slog.Warn("Discarding unreadable cache entry", "key", key)
	}

	result := r.upstream.Query(ctx, string(strategy), question)

	if !result.IsError() && !result.HasWarning() {
		if value, err := json.Marshal(result); err == nil {
			r.store.Set(ctx, cache.NamespaceUpstream, key, value, r.cfg.UpstreamTTL)
		}
	}
	return result, false
}

// ClearSession wipes one session's memory and its cache snapshot.
func (r *Router) ClearSession(ctx context.Context, sessionID string) bool {
	r.locks.Lock(sessionID)
	defer r.locks.Unlock(sessionID)
	return r.sessions.Clear(ctx, sessionID)
}
