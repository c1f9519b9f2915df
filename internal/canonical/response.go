package canonical

import (
	"encoding/json"
	"fmt"
)

// NewError builds a canonical error result. kind is one of the taxonomy names
// from internal/errors; details is a human-readable message with no internal
// stack detail.
func NewError(kind, details string) Response {
	return Response{Extra: map[string]any{
		KeyError:   kind,
		KeyDetails: details,
	}}
}

// IsError reports whether the response carries an error marker. Error results
// are returned to the caller but never cached.
func (r Response) IsError() bool {
	if r.Extra == nil {
		return false
	}
	_, ok := r.Extra[KeyError]
	return ok
}

// HasWarning reports whether the response carries a warning marker. Warned
// results were recovered from error bodies and are not cache-eligible.
func (r Response) HasWarning() bool {
	if r.Extra == nil {
		return false
	}
	_, ok := r.Extra[KeyWarning]
	return ok
}

// SetWarning attaches a caller-visible warning marker, e.g. when data was
// recovered out of an upstream error body.
func (r *Response) SetWarning(message string) {
	if r.Extra == nil {
		r.Extra = map[string]any{}
	}
	r.Extra[KeyWarning] = message
}

// Set stores a passthrough field on the response.
func (r *Response) Set(key string, value any) {
	if r.Extra == nil {
		r.Extra = map[string]any{}
	}
	r.Extra[key] = value
}

// AnswerText derives the text recorded as the assistant turn: the designated
// answer field, then the response field, then the whole result stringified.
func (r Response) AnswerText() string {
	if r.Extra != nil {
		if v, ok := r.Extra[KeyAnswer]; ok {
			return stringValue(v)
		}
		if v, ok := r.Extra[KeyResponse]; ok {
			return stringValue(v)
		}
	}
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprint(r.Extra)
	}
	return string(b)
}

// MarshalJSON flattens the response into a single object: passthrough fields
// first, then the reserved rows and narrative keys.
func (r Response) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, len(r.Extra)+2)
	for k, v := range r.Extra {
		obj[k] = v
	}
	if r.Rows != nil {
		obj[KeyRows] = r.Rows
	}
	if r.Narrative != "" {
		obj[KeyNarrative] = r.Narrative
	}
	return json.Marshal(obj)
}

// UnmarshalJSON reads an already-canonical value back without reclassifying,
// so cached entries round-trip byte-for-byte in meaning. A bare JSON list is
// accepted and treated as the row sequence.
func (r *Response) UnmarshalJSON(b []byte) error {
	var obj map[string]any
	if err := json.Unmarshal(b, &obj); err != nil {
		var list []any
		if listErr := json.Unmarshal(b, &list); listErr == nil {
			*r = Response{Rows: list, Extra: map[string]any{}}
			return nil
		}
		return err
	}

	out := Response{Extra: map[string]any{}}
	for k, v := range obj {
		switch k {
		case KeyRows:
			if list, ok := v.([]any); ok {
				out.Rows = list
			} else {
				out.Extra[k] = v
			}
		case KeyNarrative:
			out.Narrative = stringValue(v)
		default:
			out.Extra[k] = v
		}
	}
	*r = out
	return nil
}
