package cache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveKey_Deterministic(t *testing.T) {
	a := DeriveKey("runsql", "¿Cuál es la TRM hoy?")
	b := DeriveKey("runsql", "¿Cuál es la TRM hoy?")
	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "runsql:"))
	assert.Len(t, strings.TrimPrefix(a, "runsql:"), 16)
}

func TestDeriveKey_NormalizesCaseAndWhitespace(t *testing.T) {
	a := DeriveKey("runsql", "  ¿Cuál es la TRM hoy?  ")
	b := DeriveKey("runsql", "¿cuál es la trm hoy?")
	assert.Equal(t, a, b)
}

func TestDeriveKey_ScopesDisjoint(t *testing.T) {
	a := DeriveKey("runsql", "¿Cuál es la TRM hoy?")
	b := DeriveKey("narrate", "¿Cuál es la TRM hoy?")
	assert.NotEqual(t, a, b)
}

func TestDeriveKey_ExtractsEmbeddedQuestion(t *testing.T) {
	promptA := "Basándote en el siguiente contexto responde.\n\ncontexto A\n\n" +
		EmbeddedQuestionStart + " ¿qué significa ese valor? " + EmbeddedQuestionEnd + " clara y útil."
	promptB := "Otro envoltorio distinto.\n\n" +
		EmbeddedQuestionStart + " ¿Qué significa ese valor? " + EmbeddedQuestionEnd + " breve."

	assert.Equal(t, DeriveKey("genai", promptA), DeriveKey("genai", promptB),
		"same embedded question should share a key across wrappers")
}

func TestDeriveKey_NoMarkersFallsBackToWholeText(t *testing.T) {
	a := DeriveKey("genai", "pregunta sin marcadores")
	b := DeriveKey("genai", "Pregunta sin marcadores")
	assert.Equal(t, a, b)
}
