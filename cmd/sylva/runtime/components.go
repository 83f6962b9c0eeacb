package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/harunnryd/sylva/internal/agent"
	"github.com/harunnryd/sylva/internal/config"
	"github.com/harunnryd/sylva/internal/docs"
	"github.com/harunnryd/sylva/internal/model"
	"github.com/harunnryd/sylva/internal/tool"
	"github.com/harunnryd/sylva/internal/tool/backend"
)

type RuntimeComponents struct {
	Ctx    context.Context
	Cancel context.CancelFunc

	Config *config.Config

	Gateway    *model.Gateway
	Catalog    *tool.Catalog
	Backend    tool.Backend
	Docs       *docs.Cache
	Dispatcher *tool.Dispatcher
	Agent      *agent.Agent
}

// NewRuntimeComponents wires the agent from configuration. A nil backend
// selects one from tools.transport.
func NewRuntimeComponents(ctx context.Context, cfg *config.Config, toolBackend tool.Backend) (*RuntimeComponents, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)

	components := &RuntimeComponents{
		Ctx:    ctx,
		Cancel: cancel,
		Config: cfg,
	}

	toolTimeout, err := config.DurationOrDefault(cfg.Tools.Timeout, config.DefaultToolsTimeout)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("parse tools timeout: %w", err)
	}

	if toolBackend == nil {
		toolBackend, err = NewBackend(cfg.Tools)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("init tool backend: %w", err)
		}
	}
	components.Backend = toolBackend

	components.Gateway = model.NewGateway(cfg.LLM)
	components.Catalog = tool.DefaultCatalog()
	components.Docs = docs.NewCache()
	components.Dispatcher = tool.NewDispatcher(components.Catalog, components.Backend, tool.DispatcherOptions{
		Timeout:          toolTimeout,
		LayoutExtraction: cfg.Agent.LayoutExtraction,
		Docs:             components.Docs,
	})
	components.Agent = agent.New(components.Gateway, components.Dispatcher, components.Catalog, cfg.Agent)

	slog.Info("Runtime components initialized", "provider", cfg.LLM.Provider, "transport", cfg.Tools.Transport, "tools", len(components.Catalog.Descriptors()))
	return components, nil
}

// NewBackend builds the tool backend named by cfg.Transport.
func NewBackend(cfg config.ToolsConfig) (tool.Backend, error) {
	switch cfg.Transport {
	case config.TransportMCP, "":
		url := cfg.MCPSSEURL
		if url == "" {
			url = config.DefaultToolsMCPSSEURL
		}
		return backend.NewMCP(backend.MCPConfig{
			SSEURL:        url,
			ServiceToken:  cfg.AuthToken,
			ClientName:    cfg.ClientName,
			ClientVersion: cfg.ClientVersion,
		}), nil
	case config.TransportHTTP:
		base := cfg.HTTPBaseURL
		if base == "" {
			base = config.DefaultToolsHTTPBaseURL
		}
		return backend.NewHTTP(base, cfg.AuthToken), nil
	default:
		return nil, fmt.Errorf("unknown tools transport %q (expected %s or %s)", cfg.Transport, config.TransportMCP, config.TransportHTTP)
	}
}

func (r *RuntimeComponents) Stop() {
	if r.Cancel != nil {
		r.Cancel()
	}
	slog.Debug("Runtime components stopped", "docs_cached", r.Docs.Len())
}
