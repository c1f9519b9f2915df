package canonical

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponse_ErrorAndWarningMarkers(t *testing.T) {
	r := NewError("timeout", "la API no respondió")
	assert.True(t, r.IsError())
	assert.False(t, r.HasWarning())

	var clean Response
	assert.False(t, clean.IsError())
	clean.SetWarning("datos parciales")
	assert.True(t, clean.HasWarning())
}

func TestResponse_AnswerTextPrecedence(t *testing.T) {
	r := Response{Extra: map[string]any{KeyAnswer: "respuesta directa", KeyResponse: "secundaria"}}
	assert.Equal(t, "respuesta directa", r.AnswerText())

	r = Response{Extra: map[string]any{KeyResponse: "solo response"}}
	assert.Equal(t, "solo response", r.AnswerText())

	r = Response{Rows: []any{map[string]any{"valor": 1.0}}}
	text := r.AnswerText()
	assert.Contains(t, text, "datos")
	assert.Contains(t, text, "valor")
}

func TestResponse_RoundTripKeepsWarning(t *testing.T) {
	r := Response{
		Rows:      []any{map[string]any{"fecha": "2025-08-01", "valor": 4100.5}},
		Narrative: "resumen",
	}
	r.SetWarning("datos extraídos de un mensaje de error")

	encoded, err := json.Marshal(r)
	require.NoError(t, err)

	var back Response
	require.NoError(t, json.Unmarshal(encoded, &back))
	assert.True(t, back.HasWarning())
	assert.Equal(t, "resumen", back.Narrative)
	require.Len(t, back.Rows, 1)
}

func TestResponse_UnmarshalBareList(t *testing.T) {
	var r Response
	require.NoError(t, json.Unmarshal([]byte(`[{"valor": 2.0}]`), &r))
	require.Len(t, r.Rows, 1)
}
