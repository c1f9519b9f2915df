package router

import (
	"fmt"
	"strings"

	"github.com/lcastrov/andino/internal/cache"
	"github.com/lcastrov/andino/internal/memory"
)

// Prompt text is routing policy owned by the model collaborator: the exact
// wording guides strategy selection but the core never enforces it — the
// only hard constraints live in the state machine (first-turn fresh fetch,
// enum validation, deterministic fallback).

const contextualizeSystemPrompt = `Eres un asistente de indicadores económicos del Banco República. Tu tarea es reformular la pregunta del usuario considerando el historial de la conversación para que sea una pregunta independiente y clara.

Si la pregunta hace referencia a algo mencionado antes (como "eso", "lo anterior", "comparalo con", etc.), debes reformularla incluyendo el contexto necesario.

Si la pregunta ya es clara y no depende del contexto, devuélvela tal cual.

Solo responde con la pregunta reformulada, sin explicaciones adicionales.`

const routerSystemPrompt = `Eres un sistema de enrutamiento inteligente para un asistente de indicadores económicos del Banco República (Colombia).

Tienes acceso a 4 endpoints. DEBES elegir el más apropiado según estas reglas:

1. **runsql**: Para obtener datos crudos o realizar consultas específicas sobre indicadores.
   - REGLA CRÍTICA: Siempre que se pida un indicador económico (TRM, Inflación, UVR, etc.), usa este endpoint para obtener la integridad de los datos.
   - Para INFLACIÓN: Pide siempre que se incluyan los conceptos o divisiones de gasto para evitar ambigüedad.
   - Ejemplos: "¿Cuál es la TRM hoy?", "¿Inflación de enero 2025?", "Valores de la UVR"
   - needs_new_data: SIEMPRE true

2. **narrate**: Para explicaciones detalladas que requieren nuevos datos de la base.
   - Úsalo cuando el usuario pida "explicar", "narrar" o "contar la historia" de un dato.
   - Ejemplo: "Nárrate la evolución de la inflación este año"
   - needs_new_data: true

3. **agent**: Para comparaciones o análisis complejos entre múltiples indicadores.
   - Ejemplo: "Compara la TRM contra la inflación de los últimos 6 meses"
   - needs_new_data: true

4. **genai**: Para responder basándose ÚNICAMENTE en la información que ya aparece en el historial.
   - Ejemplo: "Resume los datos anteriores", "¿Qué opinas de esos números?", "Explícame ese resultado"
   - needs_new_data: false

NOTAS IMPORTANTES:
- Si el usuario pide un valor de "Enero", asume que quiere el detalle diario/mensual disponible.
- No omitas información descriptiva. Los datos deben ser íntegros (incluyendo conceptos, series y metadatos).
- Si hay datos en contexto, usa genai. Si faltan datos, usa runsql/narrate/agent.

Responde ÚNICAMENTE con un objeto JSON con esta forma exacta:
{"endpoint": "runsql|narrate|agent|genai", "needs_new_data": true, "reasoning": "breve justificación"}`

// contextSummary renders the tail of the history for the routing question,
// one truncated line per message.
func contextSummary(messages []memory.Message, limit int) string {
	tail := lastMessages(messages, limit)
	lines := make([]string, 0, len(tail))
	for _, msg := range tail {
		content := msg.Content
		if len(content) > 200 {
			content = content[:200] + "..."
		}
		lines = append(lines, "- "+content)
	}
	return strings.Join(lines, "\n")
}

func routingQuestion(question string, messages []memory.Message, limit int) string {
	if len(messages) == 0 {
		return question + "\n\n[SIN CONTEXTO PREVIO - Primera pregunta de la sesión]"
	}
	return question + "\n\n[CONTEXTO DISPONIBLE EN MEMORIA]:\n" + contextSummary(messages, limit)
}

// contextPrompt builds the synthetic prompt for the context-only strategy:
// the last few messages verbatim plus the raw question. The delimiters must
// stay in sync with the key deriver's extraction markers so repeated
// context questions hash to the same cache key.
func contextPrompt(messages []memory.Message, limit int, question string) string {
	tail := lastMessages(messages, limit)
	contents := make([]string, 0, len(tail))
	for _, msg := range tail {
		contents = append(contents, msg.Content)
	}

	return fmt.Sprintf(`Basándote en el siguiente contexto de la conversación, responde la pregunta del usuario.

CONTEXTO DE LA CONVERSACIÓN:
%s

%s %s

%s clara y útil basándote ÚNICAMENTE en el contexto proporcionado.`,
		strings.Join(contents, "\n"),
		cache.EmbeddedQuestionStart, question,
		cache.EmbeddedQuestionEnd)
}

func lastMessages(messages []memory.Message, limit int) []memory.Message {
	if limit > 0 && len(messages) > limit {
		return messages[len(messages)-limit:]
	}
	return messages
}
