package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/harunnryd/sylva/internal/config"
	sylvaErrors "github.com/harunnryd/sylva/internal/errors"
	"github.com/harunnryd/sylva/internal/logger"
	"github.com/harunnryd/sylva/internal/model/contract"
	anthropicProvider "github.com/harunnryd/sylva/internal/model/providers/anthropic"
	geminiProvider "github.com/harunnryd/sylva/internal/model/providers/gemini"
	openaiProvider "github.com/harunnryd/sylva/internal/model/providers/openai"
)

// Gateway sends one completion request to the configured backend.
// It never retries and never falls back to another backend.
type Gateway struct {
	provider   Provider
	model      string
	timeout    time.Duration
	resolveErr error
}

// NewGateway resolves the active backend from configuration. A resolution
// failure is not returned here; it is reported by every Complete call so the
// agent can answer with its unavailable message.
func NewGateway(cfg config.LLMConfig) *Gateway {
	timeout, err := config.DurationOrDefault(cfg.Timeout, config.DefaultLLMTimeout)
	if err != nil {
		return &Gateway{resolveErr: sylvaErrors.Configuration("", fmt.Sprintf("invalid llm timeout: %v", err))}
	}

	provider, model, err := createProvider(cfg)
	if err != nil {
		slog.Warn("Completion backend unavailable", "backend", cfg.Provider, "error", err)
		return &Gateway{resolveErr: err, timeout: timeout}
	}

	slog.Info("Completion backend initialized", "backend", provider.Name(), "model", model)
	return &Gateway{provider: provider, model: model, timeout: timeout}
}

// NewGatewayWithProvider wires an already built provider.
func NewGatewayWithProvider(provider Provider, model string, timeout time.Duration) *Gateway {
	return &Gateway{provider: provider, model: model, timeout: timeout}
}

func (g *Gateway) Complete(ctx context.Context, messages []contract.Message, tools []contract.ToolDef, temperature float64) (*contract.CompletionResponse, error) {
	if g.resolveErr != nil {
		return nil, g.resolveErr
	}

	traceID := logger.GetTraceID(ctx)

	req := contract.CompletionRequest{
		Model:       g.model,
		Messages:    messages,
		Tools:       tools,
		Temperature: float32(temperature),
	}
	if len(tools) > 0 {
		req.ToolChoice = contract.ToolChoiceAuto
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := g.provider.Generate(ctx, req)
	duration := time.Since(start)
	if err != nil {
		err = normalize(g.provider.Name(), err)
		slog.Error("Completion request failed", "backend", g.provider.Name(), "model", g.model, "status", sylvaErrors.StatusOf(err), "duration", duration, "error", err, "trace_id", traceID)
		return nil, err
	}
	if resp == nil {
		resp = &contract.CompletionResponse{}
	}

	slog.Info("Completion request completed", "backend", g.provider.Name(), "model", g.model, "choices", len(resp.Choices), "duration", duration, "trace_id", traceID)
	return resp, nil
}

func normalize(backend string, err error) error {
	if errors.Is(err, sylvaErrors.ErrConfiguration) {
		return err
	}
	return sylvaErrors.Configuration(backend, err.Error())
}

func createProvider(cfg config.LLMConfig) (Provider, string, error) {
	selector := strings.ToLower(strings.TrimSpace(cfg.Provider))
	backend, ok := cfg.Backend(selector)
	if !ok {
		return nil, "", sylvaErrors.Configuration(selector, fmt.Sprintf("unknown llm provider %q", cfg.Provider))
	}
	if backend.Model == "" {
		return nil, "", sylvaErrors.Configuration(selector, "model is not configured")
	}

	switch selector {
	case config.ProviderOpenAI:
		if backend.APIKey == "" {
			return nil, "", sylvaErrors.Configuration(selector, "API key required for OpenAI provider")
		}
		baseURL := backend.BaseURL
		if baseURL == "" {
			baseURL = config.DefaultOpenAIBaseURL
		}
		return openaiProvider.New(selector, backend.APIKey, baseURL), backend.Model, nil

	case config.ProviderOllama:
		baseURL := backend.BaseURL
		if baseURL == "" {
			baseURL = config.DefaultOllamaBaseURL
		}
		apiKey := backend.APIKey
		if apiKey == "" {
			apiKey = config.DefaultOllamaAPIKey
		}
		return openaiProvider.New(selector, apiKey, baseURL), backend.Model, nil

	case config.ProviderAnthropic:
		if backend.APIKey == "" {
			return nil, "", sylvaErrors.Configuration(selector, "API key required for Anthropic provider")
		}
		return anthropicProvider.New(backend.APIKey, backend.BaseURL, cfg.MaxTokens), backend.Model, nil

	case config.ProviderGemini:
		if backend.APIKey == "" {
			return nil, "", sylvaErrors.Configuration(selector, "API key required for Gemini provider")
		}
		provider, err := geminiProvider.New(context.Background(), backend.APIKey, backend.BaseURL, cfg.MaxTokens)
		if err != nil {
			return nil, "", err
		}
		return provider, backend.Model, nil
	}

	return nil, "", sylvaErrors.Configuration(selector, fmt.Sprintf("unknown llm provider %q", cfg.Provider))
}
