package runtime

import (
	"context"
	"fmt"

	"github.com/harunnryd/sylva/internal/config"
	"github.com/harunnryd/sylva/internal/tool"
)

type RuntimeBuilder interface {
	WithContext(ctx context.Context) RuntimeBuilder
	WithConfig(cfg *config.Config) RuntimeBuilder
	WithBackend(backend tool.Backend) RuntimeBuilder
	Build() (*RuntimeComponents, error)
}

type DefaultRuntimeBuilder struct {
	ctx     context.Context
	cfg     *config.Config
	backend tool.Backend
}

func NewRuntimeBuilder() RuntimeBuilder {
	return &DefaultRuntimeBuilder{}
}

func (b *DefaultRuntimeBuilder) WithContext(ctx context.Context) RuntimeBuilder {
	b.ctx = ctx
	return b
}

func (b *DefaultRuntimeBuilder) WithConfig(cfg *config.Config) RuntimeBuilder {
	b.cfg = cfg
	return b
}

// WithBackend overrides the tool backend selected by tools.transport.
func (b *DefaultRuntimeBuilder) WithBackend(backend tool.Backend) RuntimeBuilder {
	b.backend = backend
	return b
}

func (b *DefaultRuntimeBuilder) Build() (*RuntimeComponents, error) {
	if b.ctx == nil {
		b.ctx = context.Background()
	}

	if b.cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	return NewRuntimeComponents(b.ctx, b.cfg, b.backend)
}
