// Package upstream calls the indicator data API: one POST per query
// strategy with a {"question": ...} body. The API is treated as a black box
// that may answer with structured data, narrative text, or an error body
// with a JSON payload buried inside free text; this package recovers what it
// can and always hands back a canonical response.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/lcastrov/andino/internal/canonical"
	andinoErrors "github.com/lcastrov/andino/internal/errors"
)

// Client issues one upstream query. Implementations never return an error:
// every failure mode is folded into a canonical error result.
type Client interface {
	Query(ctx context.Context, strategy, question string) canonical.Response
}

type HTTPClient struct {
	rc *resty.Client
}

func New(baseURL string, timeout time.Duration) *HTTPClient {
	rc := resty.New()
	rc.SetBaseURL(strings.TrimSuffix(baseURL, "/"))
	rc.SetTimeout(timeout)
	rc.SetHeader("Content-Type", "application/json")
	return &HTTPClient{rc: rc}
}

func (c *HTTPClient) Query(ctx context.Context, strategy, question string) canonical.Response {
	resp, err := c.rc.R().
		SetContext(ctx).
		SetBody(map[string]string{"question": question}).
		Post("/" + strategy)
	if err != nil {
		kind := andinoErrors.Kind(andinoErrors.ErrConnectivity)
		if isTimeout(err) {
			kind = andinoErrors.Kind(andinoErrors.ErrTimeout)
		}
		return canonical.NewError(kind, "error de conexión con la API de indicadores")
	}

	body := resp.Body()
	if resp.StatusCode() != 200 {
		// Oracle buffer errors arrive as 5xx with the payload inline in the
		// error text. Recover it when possible; recovered data is returned
		// with a warning and never cached.
		if embedded, ok := ExtractEmbeddedJSON(string(body)); ok {
			result := canonical.Normalize(embedded)
			result.SetWarning("datos extraídos de un mensaje de error")
			return result
		}
		return canonical.NewError(fmt.Sprintf("HTTP %d", resp.StatusCode()), string(body))
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		// Non-JSON 200 bodies are long-form narrative answers.
		return canonical.Response{Extra: map[string]any{canonical.KeyAnswer: string(body)}}
	}

	result := canonical.Normalize(raw)

	// A 200 body can still describe a database error with the real payload
	// embedded in its details text.
	if details, ok := errorDetails(result); ok {
		if embedded, found := ExtractEmbeddedJSON(details); found {
			result = canonical.Normalize(embedded)
			result.SetWarning("datos extraídos de un mensaje de error")
		}
	}
	return result
}

// ExtractEmbeddedJSON locates the substring between the first '{' and the
// last '}' of text and tries to parse it. Returns false when there is no
// such substring or it is not valid JSON.
func ExtractEmbeddedJSON(text string) (any, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, false
	}

	var embedded any
	if err := json.Unmarshal([]byte(text[start:end+1]), &embedded); err != nil {
		return nil, false
	}
	return embedded, true
}

func errorDetails(result canonical.Response) (string, bool) {
	if result.Extra == nil {
		return "", false
	}
	for _, key := range []string{canonical.KeyDetails, canonical.KeyError} {
		if v, ok := result.Extra[key]; ok {
			if s, isString := v.(string); isString && s != "" {
				return s, true
			}
		}
	}
	return "", false
}

func isTimeout(err error) bool {
	if uerr, ok := err.(*url.Error); ok && uerr.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), context.DeadlineExceeded.Error())
}
