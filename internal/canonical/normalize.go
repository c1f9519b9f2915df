// Package canonical reduces the heterogeneous JSON shapes returned by the
// upstream indicator API to one canonical form: an ordered row list plus an
// optional narrative. Rows keep every original column; recognized columns
// gain standardized aliases (fecha, valor, serie) alongside the originals.
package canonical

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Reserved top-level key names in the canonical JSON form.
const (
	KeyRows      = "datos"
	KeyNarrative = "narrative"
	KeyAnswer    = "answer"
	KeyResponse  = "response"
	KeyError     = "error"
	KeyDetails   = "details"
	KeyWarning   = "_warning"
	KeyFromCache = "_from_cache"
)

// maxUnwrapDepth bounds wrapper descent so cyclic-looking payloads terminate.
const maxUnwrapDepth = 3

// wrapperFields are envelope names the upstream wraps payloads in,
// matched case-insensitively.
var wrapperFields = []string{"RESULTADO", "JSONRESPONSE", "RESPUESTA"}

// rowsFields name the row list inside an object, in priority order.
var rowsFields = []string{"datos", "data", "items"}

// dataPointVocab marks an object as a single data point when any of its key
// names contains one of these terms.
var dataPointVocab = []string{"fecha", "valor", "serie", "trm", "uvr", "ipc"}

// Alias synonym groups. The reserved name is added to a row only when absent;
// the original column always stays.
var (
	dateSynonyms   = map[string]bool{"fecha": true, "date": true, "periodo": true, "time": true}
	valueSynonyms  = map[string]bool{"valor": true, "value": true, "amount": true, "precio": true}
	seriesSynonyms = map[string]bool{"serie": true, "series": true, "concepto": true, "concept": true, "name": true}
)

// Response is the canonical result shape. Rows and Narrative are the reserved
// parts; Extra carries every other field verbatim (answers, error markers,
// provenance flags).
type Response struct {
	Rows      []any
	Narrative string
	Extra     map[string]any
}

// Normalize maps an arbitrary decoded JSON value into a canonical Response.
// It is total: malformed or scalar input degrades to an opaque wrapper, and
// re-normalizing an already canonical value yields the same result.
func Normalize(raw any) Response {
	switch raw.(type) {
	case map[string]any, []any:
	default:
		return Response{Extra: map[string]any{KeyResponse: fmt.Sprint(raw)}}
	}

	content := unwrap(raw)

	var out Response
	switch v := content.(type) {
	case []any:
		out = Response{Rows: v, Extra: map[string]any{}}
	case map[string]any:
		out = classify(v)
	default:
		return Response{Extra: map[string]any{KeyResponse: fmt.Sprint(content)}}
	}

	out.Rows = aliasRows(out.Rows)
	return out
}

// unwrap descends through known envelope fields, at most maxUnwrapDepth deep.
func unwrap(raw any) any {
	content := raw
	for i := 0; i < maxUnwrapDepth; i++ {
		obj, ok := content.(map[string]any)
		if !ok {
			break
		}
		byUpper := make(map[string]string, len(obj))
		for k := range obj {
			byUpper[strings.ToUpper(k)] = k
		}
		found := false
		for _, w := range wrapperFields {
			if orig, ok := byUpper[w]; ok {
				// A scalar under a wrapper name is a payload, not an envelope.
				switch obj[orig].(type) {
				case map[string]any, []any:
					content = obj[orig]
					found = true
				}
				break
			}
		}
		if !found {
			break
		}
	}
	return content
}

// classify splits an unwrapped object into narrative, rows and passthrough.
// When a narrative or rows field is recognized, the remaining sibling fields
// are envelope noise and are dropped; otherwise the object either becomes a
// single row (data-point vocabulary match) or passes through verbatim.
func classify(obj map[string]any) Response {
	out := Response{Extra: map[string]any{}}

	narrativeFound := false
	for _, k := range sortedKeys(obj) {
		lower := strings.ToLower(k)
		if strings.Contains(lower, "narrative") || strings.Contains(lower, "narrativa") {
			out.Narrative = stringValue(obj[k])
			narrativeFound = true
			break
		}
	}

	rowsFound := false
	for _, k := range rowsFields {
		if v, ok := obj[k]; ok {
			if list, isList := v.([]any); isList {
				out.Rows = list
			} else {
				out.Extra[KeyRows] = v
			}
			rowsFound = true
			break
		}
	}

	if !narrativeFound && !rowsFound {
		if looksLikeDataPoint(obj) {
			out.Rows = []any{obj}
		} else {
			out.Extra = obj
		}
	}
	return out
}

func looksLikeDataPoint(obj map[string]any) bool {
	for k := range obj {
		lower := strings.ToLower(k)
		for _, term := range dataPointVocab {
			if strings.Contains(lower, term) {
				return true
			}
		}
	}
	return false
}

// aliasRows adds the reserved fecha/valor/serie aliases to each object row.
// Rows are copied before mutation; existing reserved fields block re-aliasing,
// which is what makes normalization idempotent.
func aliasRows(rows []any) []any {
	if rows == nil {
		return nil
	}
	out := make([]any, 0, len(rows))
	for _, row := range rows {
		obj, ok := row.(map[string]any)
		if !ok {
			out = append(out, row)
			continue
		}
		next := make(map[string]any, len(obj)+3)
		for k, v := range obj {
			next[k] = v
		}
		for k, v := range obj {
			clean := strings.ToLower(strings.TrimSpace(k))
			switch {
			case dateSynonyms[clean]:
				if _, exists := next["fecha"]; !exists {
					next["fecha"] = v
				}
			case valueSynonyms[clean]:
				if _, exists := next["valor"]; !exists {
					next["valor"] = v
				}
			case seriesSynonyms[clean]:
				if _, exists := next["serie"]; !exists {
					next["serie"] = v
				}
			}
		}
		out = append(out, next)
	}
	return out
}

func sortedKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func stringValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
