package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecision_DirectJSON(t *testing.T) {
	d, err := parseDecision(`{"endpoint": "narrate", "needs_new_data": true, "reasoning": "pide una narración"}`)
	require.NoError(t, err)
	assert.Equal(t, StrategyNarrate, d.Strategy)
	assert.True(t, d.NeedsNewData)
	assert.Equal(t, "pide una narración", d.Reasoning)
}

func TestParseDecision_FencedJSON(t *testing.T) {
	raw := "```json\n{\"endpoint\": \"genai\", \"needs_new_data\": false, \"reasoning\": \"hay contexto\"}\n```"
	d, err := parseDecision(raw)
	require.NoError(t, err)
	assert.Equal(t, StrategyGenAI, d.Strategy)
	assert.False(t, d.NeedsNewData)
}

func TestParseDecision_EmbeddedInProse(t *testing.T) {
	raw := `Según las reglas, la respuesta es {"endpoint": "agent", "needs_new_data": true, "reasoning": "comparación"} y nada más.`
	d, err := parseDecision(raw)
	require.NoError(t, err)
	assert.Equal(t, StrategyAgent, d.Strategy)
}

func TestParseDecision_UppercaseStrategyNormalized(t *testing.T) {
	d, err := parseDecision(`{"endpoint": "RunSQL", "needs_new_data": true, "reasoning": "x"}`)
	require.NoError(t, err)
	assert.Equal(t, StrategyRunSQL, d.Strategy)
}

func TestParseDecision_UnknownStrategyFails(t *testing.T) {
	_, err := parseDecision(`{"endpoint": "graphql", "needs_new_data": true, "reasoning": "x"}`)
	assert.Error(t, err)
}

func TestParseDecision_NoJSONFails(t *testing.T) {
	_, err := parseDecision("usa runsql porque es lo más seguro")
	assert.Error(t, err)
}

func TestFallbackDecision(t *testing.T) {
	d := FallbackDecision("el modelo no respondió")
	assert.Equal(t, DefaultStrategy, d.Strategy)
	assert.True(t, d.NeedsNewData)
	assert.Contains(t, d.Reasoning, "el modelo no respondió")
}

func TestExtractFirstBalancedJSON_IgnoresBracesInStrings(t *testing.T) {
	raw := `ruido {"reasoning": "usa {llaves} internas", "endpoint": "runsql", "needs_new_data": true} cola`
	extracted := extractFirstBalancedJSON(raw, '{', '}')
	d, ok := decodeDecision(extracted)
	require.True(t, ok)
	assert.Equal(t, StrategyRunSQL, d.Strategy)
}
