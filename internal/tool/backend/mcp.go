package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	sylvaErrors "github.com/harunnryd/sylva/internal/errors"
	"github.com/harunnryd/sylva/internal/logger"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

type MCPConfig struct {
	SSEURL        string
	ServiceToken  string
	ClientName    string
	ClientVersion string
}

// MCP reaches the tool server over MCP/SSE. Each call opens its own session
// because the caller identity travels in the session headers.
type MCP struct {
	cfg MCPConfig
}

func NewMCP(cfg MCPConfig) *MCP {
	return &MCP{cfg: cfg}
}

func (m *MCP) CallTool(ctx context.Context, name string, args map[string]any, identity string) (any, error) {
	var value any
	err := m.withSession(ctx, identity, func(c *client.Client) error {
		req := mcp.CallToolRequest{}
		req.Params.Name = name
		if len(args) > 0 {
			req.Params.Arguments = args
		}

		res, err := c.CallTool(ctx, req)
		if err != nil {
			return sylvaErrors.WrapWithCategory(err, fmt.Sprintf("call tool %s", name), sylvaErrors.ErrToolExecution)
		}

		blocks := toolContents(res.Content)
		if res.IsError {
			return ErrorFromContents(name, blocks)
		}
		value = DecodeContents(blocks)
		return nil
	})
	return value, err
}

func (m *MCP) ReadResource(ctx context.Context, uri string) (string, error) {
	var text string
	err := m.withSession(ctx, "", func(c *client.Client) error {
		req := mcp.ReadResourceRequest{}
		req.Params.URI = uri

		res, err := c.ReadResource(ctx, req)
		if err != nil {
			return sylvaErrors.WrapWithCategory(err, fmt.Sprintf("read resource %s", uri), sylvaErrors.ErrToolExecution)
		}

		for _, item := range res.Contents {
			switch rc := item.(type) {
			case mcp.TextResourceContents:
				text = rc.Text
				return nil
			case *mcp.TextResourceContents:
				text = rc.Text
				return nil
			}
		}
		return sylvaErrors.NotFound(fmt.Sprintf("resource %s has no text content", uri))
	})
	return text, err
}

func (m *MCP) withSession(ctx context.Context, identity string, fn func(c *client.Client) error) error {
	c, err := client.NewSSEMCPClient(m.cfg.SSEURL, client.WithHeaders(Headers(m.cfg.ServiceToken, identity)))
	if err != nil {
		return sylvaErrors.WrapWithCategory(err, "create mcp client", sylvaErrors.ErrInternal)
	}
	defer func() {
		if err := c.Close(); err != nil {
			slog.Debug("Closing mcp session failed", "error", err, "trace_id", logger.GetTraceID(ctx))
		}
	}()

	if err := c.Start(ctx); err != nil {
		return sylvaErrors.WrapWithCategory(err, fmt.Sprintf("connect to mcp server %s", m.cfg.SSEURL), sylvaErrors.ErrTransient)
	}

	init := mcp.InitializeRequest{}
	init.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	init.Params.ClientInfo = mcp.Implementation{Name: m.cfg.ClientName, Version: m.cfg.ClientVersion}
	if _, err := c.Initialize(ctx, init); err != nil {
		return sylvaErrors.WrapWithCategory(err, "initialize mcp session", sylvaErrors.ErrTransient)
	}

	return fn(c)
}

func toolContents(items []mcp.Content) []Content {
	blocks := make([]Content, 0, len(items))
	for _, item := range items {
		switch c := item.(type) {
		case mcp.TextContent:
			blocks = append(blocks, Content{Type: "text", Text: c.Text})
		case *mcp.TextContent:
			blocks = append(blocks, Content{Type: "text", Text: c.Text})
		default:
			blocks = append(blocks, Content{Type: "other", Raw: rawContent(item)})
		}
	}
	return blocks
}

func rawContent(item mcp.Content) any {
	b, err := json.Marshal(item)
	if err != nil {
		return nil
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	return v
}
