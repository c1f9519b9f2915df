package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// The context-only strategy sends a large composed prompt; only the user
// question embedded between these markers identifies the entry, so the same
// question keeps hitting the same key across differently-worded wrappers.
const (
	EmbeddedQuestionStart = "PREGUNTA DEL USUARIO:"
	EmbeddedQuestionEnd   = "Proporciona una respuesta"
)

// embeddedQuestionScopes are the scopes whose raw text is a composed prompt
// rather than the bare user question.
var embeddedQuestionScopes = map[string]bool{"genai": true}

// DeriveKey maps (scope, raw question text) to a stable short key of the form
// "{scope}:{digest}". It is pure: equal inputs always produce equal keys, and
// texts that normalize to the same trimmed lowercase form share a key.
// The digest is a truncated sha256; this is a performance cache, not a
// security boundary.
func DeriveKey(scope, rawText string) string {
	text := rawText
	if embeddedQuestionScopes[scope] {
		if start := strings.Index(text, EmbeddedQuestionStart); start >= 0 {
			rest := text[start+len(EmbeddedQuestionStart):]
			if end := strings.Index(rest, EmbeddedQuestionEnd); end >= 0 {
				rest = rest[:end]
			}
			text = rest
		}
	}
	normalized := strings.ToLower(strings.TrimSpace(text))

	sum := sha256.Sum256([]byte(normalized))
	return scope + ":" + hex.EncodeToString(sum[:])[:16]
}
