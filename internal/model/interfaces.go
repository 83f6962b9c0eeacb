package model

import (
	"context"

	"github.com/harunnryd/sylva/internal/model/contract"
)

// Completer is what the agent loop needs from a completion backend.
type Completer interface {
	Complete(ctx context.Context, messages []contract.Message, tools []contract.ToolDef, temperature float64) (*contract.CompletionResponse, error)
}

type Provider interface {
	Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error)
	Name() string
}
