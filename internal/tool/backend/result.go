// Package backend implements the transports that reach the tool server.
package backend

import (
	"encoding/json"
	"fmt"
	"strings"

	sylvaErrors "github.com/harunnryd/sylva/internal/errors"
)

// Content is one block of a tool response, independent of the transport.
type Content struct {
	Type string
	Text string
	// Raw holds non-text blocks as decoded JSON.
	Raw any
}

// DecodeContents turns response blocks into a single value: text blocks are
// decoded as JSON when possible, one block yields its value, several yield a
// list, none yields nil.
func DecodeContents(blocks []Content) any {
	payload := make([]any, 0, len(blocks))
	for _, b := range blocks {
		if b.Type != "text" {
			payload = append(payload, b.Raw)
			continue
		}
		var v any
		if err := json.Unmarshal([]byte(b.Text), &v); err != nil {
			payload = append(payload, b.Text)
			continue
		}
		payload = append(payload, v)
	}

	switch len(payload) {
	case 0:
		return nil
	case 1:
		return Unwrap(payload[0])
	default:
		return payload
	}
}

// Unwrap strips a {"result": X} envelope.
func Unwrap(v any) any {
	if obj, ok := v.(map[string]any); ok && len(obj) == 1 {
		if inner, ok := obj["result"]; ok {
			return inner
		}
	}
	return v
}

// ErrorFromContents builds the error reported when the server flags a call as failed.
func ErrorFromContents(tool string, blocks []Content) error {
	var texts []string
	for _, b := range blocks {
		if b.Type == "text" && b.Text != "" {
			texts = append(texts, b.Text)
		}
	}
	details := "réponse serveur inconnue"
	if len(texts) > 0 {
		details = strings.Join(texts, "; ")
	}
	return sylvaErrors.ToolExecution(fmt.Sprintf("tool %s returned an error: %s", tool, details))
}

// Headers builds the authentication headers sent to the tool server.
func Headers(serviceToken, identity string) map[string]string {
	headers := map[string]string{}
	if serviceToken != "" {
		headers["Authorization"] = "Bearer " + serviceToken
	}
	if identity != "" {
		headers[UserTokenHeader] = identity
	}
	return headers
}

const UserTokenHeader = "X-GeoNature-User-Token"
