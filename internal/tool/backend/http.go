package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	sylvaErrors "github.com/harunnryd/sylva/internal/errors"
)

const maxResponseBytes = 8 << 20

// HTTP reaches a tool server exposing plain JSON endpoints:
// POST {base}/tools/{name} and GET {base}/resources?uri=...
type HTTP struct {
	Client       *http.Client
	BaseURL      string
	ServiceToken string
}

func NewHTTP(baseURL, serviceToken string) *HTTP {
	return &HTTP{
		Client:       &http.Client{},
		BaseURL:      strings.TrimRight(baseURL, "/"),
		ServiceToken: serviceToken,
	}
}

func (h *HTTP) CallTool(ctx context.Context, name string, args map[string]any, identity string) (any, error) {
	if args == nil {
		args = map[string]any{}
	}
	body, err := json.Marshal(args)
	if err != nil {
		return nil, sylvaErrors.ToolExecution(fmt.Sprintf("encode arguments: %v", err))
	}

	endpoint := h.BaseURL + "/tools/" + url.PathEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	h.setHeaders(req, identity)

	data, status, err := h.do(req)
	if err != nil {
		return nil, err
	}

	var v any
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &v); err != nil {
			v = string(data)
		}
	}

	if status < 200 || status > 299 {
		return nil, sylvaErrors.ToolExecution(fmt.Sprintf("tool %s returned status %d: %s", name, status, errorDetail(v)))
	}
	return Unwrap(v), nil
}

func (h *HTTP) ReadResource(ctx context.Context, uri string) (string, error) {
	endpoint := h.BaseURL + "/resources?uri=" + url.QueryEscape(uri)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	h.setHeaders(req, "")

	data, status, err := h.do(req)
	if err != nil {
		return "", err
	}
	if status == http.StatusNotFound {
		return "", sylvaErrors.NotFound(fmt.Sprintf("resource %s not found", uri))
	}
	if status < 200 || status > 299 {
		return "", sylvaErrors.ToolExecution(fmt.Sprintf("resource %s returned status %d", uri, status))
	}
	return string(data), nil
}

func (h *HTTP) setHeaders(req *http.Request, identity string) {
	for k, v := range Headers(h.ServiceToken, identity) {
		req.Header.Set(k, v)
	}
}

func (h *HTTP) do(req *http.Request) ([]byte, int, error) {
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return data, resp.StatusCode, nil
}

func errorDetail(v any) string {
	switch e := v.(type) {
	case map[string]any:
		if msg, ok := e["error"].(string); ok {
			return msg
		}
		if msg, ok := e["detail"].(string); ok {
			return msg
		}
		b, _ := json.Marshal(e)
		return string(b)
	case string:
		return strings.TrimSpace(e)
	case nil:
		return "empty response"
	default:
		b, _ := json.Marshal(e)
		return string(b)
	}
}
