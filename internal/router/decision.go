package router

import (
	"encoding/json"
	"fmt"
	"strings"

	andinoErrors "github.com/lcastrov/andino/internal/errors"
)

// Strategy is one of the fixed upstream query modes.
type Strategy string

const (
	// StrategyRunSQL fetches raw indicator data.
	StrategyRunSQL Strategy = "runsql"
	// StrategyNarrate fetches a narrated explanation built on fresh data.
	StrategyNarrate Strategy = "narrate"
	// StrategyAgent fetches a multi-indicator analysis.
	StrategyAgent Strategy = "agent"
	// StrategyGenAI answers from conversation context only.
	StrategyGenAI Strategy = "genai"
)

// DefaultStrategy is the deterministic fallback when the model's decision
// cannot be used. Raw data with a fresh fetch is always a safe route.
const DefaultStrategy = StrategyRunSQL

func (s Strategy) Valid() bool {
	switch s {
	case StrategyRunSQL, StrategyNarrate, StrategyAgent, StrategyGenAI:
		return true
	}
	return false
}

// Decision is the structured routing verdict for one turn. Transient: it is
// produced once per turn and never persisted.
type Decision struct {
	Strategy     Strategy `json:"endpoint"`
	NeedsNewData bool     `json:"needs_new_data"`
	Reasoning    string   `json:"reasoning"`
}

// FallbackDecision is used whenever the decision call fails or returns an
// unusable value, so the state machine never sees an unknown strategy.
func FallbackDecision(reason string) Decision {
	return Decision{
		Strategy:     DefaultStrategy,
		NeedsNewData: true,
		Reasoning:    "decisión por defecto: " + reason,
	}
}

// parseDecision extracts a Decision from the model's reply: direct JSON
// first, then the first balanced JSON object found in surrounding prose.
func parseDecision(raw string) (Decision, error) {
	normalized := cleanModelJSON(raw)

	if d, ok := decodeDecision(normalized); ok {
		return d, nil
	}
	if extracted := extractFirstBalancedJSON(normalized, '{', '}'); extracted != "" {
		if d, ok := decodeDecision(extracted); ok {
			return d, nil
		}
	}
	return Decision{}, fmt.Errorf("%w: unparseable decision %q", andinoErrors.ErrDecision, truncateForLog(raw))
}

func decodeDecision(raw string) (Decision, bool) {
	if strings.TrimSpace(raw) == "" {
		return Decision{}, false
	}
	var d Decision
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return Decision{}, false
	}
	d.Strategy = Strategy(strings.ToLower(strings.TrimSpace(string(d.Strategy))))
	if !d.Strategy.Valid() {
		return Decision{}, false
	}
	return d, true
}

func cleanModelJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func extractFirstBalancedJSON(input string, open, close byte) string {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(input); i++ {
		ch := input[i]
		if inString {
			if escaped {
				escaped = false
				continue
			}
			if ch == '\\' {
				escaped = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case open:
			if depth == 0 {
				start = i
			}
			depth++
		case close:
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				return strings.TrimSpace(input[start : i+1])
			}
		}
	}
	return ""
}

func truncateForLog(s string) string {
	if len(s) > 120 {
		return s[:120] + "..."
	}
	return s
}
