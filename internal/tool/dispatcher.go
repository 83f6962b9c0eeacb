package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/harunnryd/sylva/internal/docs"
	sylvaErrors "github.com/harunnryd/sylva/internal/errors"
	"github.com/harunnryd/sylva/internal/layout"
	"github.com/harunnryd/sylva/internal/logger"
)

// Outcome is the result of one dispatch: Value on success, Err otherwise.
type Outcome struct {
	Value any
	Err   error
}

func (o Outcome) Failed() bool {
	return o.Err != nil
}

type DispatcherOptions struct {
	Timeout          time.Duration
	LayoutExtraction bool
	Docs             *docs.Cache
}

// Dispatcher routes a tool call to the backend. Every failure is returned as
// an Outcome so one bad call never aborts the others of the same turn.
type Dispatcher struct {
	catalog *Catalog
	backend Backend
	docs    *docs.Cache
	opts    DispatcherOptions
}

func NewDispatcher(catalog *Catalog, backend Backend, opts DispatcherOptions) *Dispatcher {
	cache := opts.Docs
	if cache == nil {
		cache = docs.NewCache()
	}
	return &Dispatcher{
		catalog: catalog,
		backend: backend,
		docs:    cache,
		opts:    opts,
	}
}

func (d *Dispatcher) Catalog() *Catalog {
	return d.catalog
}

func (d *Dispatcher) Dispatch(ctx context.Context, name string, args map[string]any, identity string) Outcome {
	traceID := logger.GetTraceID(ctx)

	kind, ok := ParseKind(name)
	if !ok {
		slog.Warn("Unknown tool requested", "tool", name, "trace_id", traceID)
		return Outcome{Err: sylvaErrors.UnknownTool(name)}
	}
	desc, ok := d.catalog.Lookup(kind)
	if !ok {
		slog.Warn("Tool not in catalog", "tool", name, "trace_id", traceID)
		return Outcome{Err: sylvaErrors.UnknownTool(name)}
	}

	slog.Info("Dispatching tool", "tool", name, "args", previewArgs(args), "trace_id", traceID)

	start := time.Now()
	value, err := d.invoke(ctx, desc, args, identity)
	duration := time.Since(start)

	if err != nil {
		err = sylvaErrors.MapError(err)
		slog.Error("Tool dispatch failed", "tool", name, "outcome", "error", "category", sylvaErrors.Category(err), "error", err, "duration", duration, "trace_id", traceID)
		return Outcome{Err: err}
	}

	slog.Info("Tool dispatch success", "tool", name, "outcome", "success", "duration", duration, "trace_id", traceID)
	return Outcome{Value: value}
}

func (d *Dispatcher) invoke(ctx context.Context, desc Descriptor, args map[string]any, identity string) (any, error) {
	rest := make(map[string]any, len(args))
	for k, v := range args {
		rest[k] = v
	}

	var layoutText string
	if desc.Kind == KindReport {
		layoutText = d.shapeLayout(ctx, rest)
	}

	if err := DecodeObjectStrings(desc.Fields, rest); err != nil {
		return nil, sylvaErrors.ToolExecution(fmt.Sprintf("invalid arguments for %s: %v", desc.Name(), err))
	}
	if err := ValidateArgs(desc.Parameters(), rest); err != nil {
		return nil, sylvaErrors.ToolExecution(fmt.Sprintf("invalid arguments for %s: %v", desc.Name(), err))
	}

	typed, err := DecodeArgs(desc.Kind, rest)
	if err != nil {
		return nil, sylvaErrors.ToolExecution(fmt.Sprintf("invalid arguments for %s: %v", desc.Name(), err))
	}

	if d.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.Timeout)
		defer cancel()
	}

	switch a := typed.(type) {
	case ObservationsArgs:
		return d.call(ctx, desc, a, identity)
	case GeoInfoArgs:
		return d.call(ctx, desc, a, identity)
	case ReportArgs:
		a.Layout = layoutText
		return d.call(ctx, desc, a, identity)
	case ListDocsArgs:
		return d.call(ctx, desc, a, "")
	case ReadDocArgs:
		return d.readDoc(ctx, desc, a)
	default:
		return nil, sylvaErrors.Internal(fmt.Sprintf("no handler for %s", desc.Name()))
	}
}

func (d *Dispatcher) call(ctx context.Context, desc Descriptor, args Args, identity string) (any, error) {
	if !desc.Kind.UserScoped() {
		identity = ""
	}
	wire, err := args.Wire(identity)
	if err != nil {
		return nil, sylvaErrors.ToolExecution(err.Error())
	}

	value, err := d.backend.CallTool(ctx, desc.Name(), wire, identity)
	if err != nil {
		return nil, err
	}
	value = desc.Metadata.Result.Normalize(value)
	if !desc.Metadata.Result.Matches(value) {
		return nil, sylvaErrors.ToolExecution(fmt.Sprintf("unexpected response from %s: expected %s, got %T", desc.Name(), desc.Metadata.Result, value))
	}
	return value, nil
}

// readDoc serves documentation reads through the process-wide cache. Targets
// that look like resource URIs are read directly as resources.
func (d *Dispatcher) readDoc(ctx context.Context, desc Descriptor, args ReadDocArgs) (any, error) {
	target := strings.TrimSpace(args.Target)
	if target == "" {
		return nil, sylvaErrors.ToolExecution("target must not be empty")
	}

	if strings.Contains(target, "://") {
		return d.docs.Get(ctx, "resource:"+target, func(ctx context.Context) (any, error) {
			text, err := d.backend.ReadResource(ctx, target)
			if err != nil {
				return nil, err
			}
			return map[string]any{"target": target, "content": text}, nil
		})
	}

	key := fmt.Sprintf("tool:%s|as_text=%t", target, args.Text())
	return d.docs.Get(ctx, key, func(ctx context.Context) (any, error) {
		return d.call(ctx, desc, ReadDocArgs{Target: target, AsText: args.AsText}, "")
	})
}

// shapeLayout removes the layout argument from args and returns it as
// canonical JSON text. Without an explicit layout the most recent user text
// is scanned for one.
func (d *Dispatcher) shapeLayout(ctx context.Context, args map[string]any) string {
	raw, present := args["layout"]
	delete(args, "layout")

	if present && raw != nil {
		switch v := raw.(type) {
		case string:
			return v
		case map[string]any:
			text, err := layout.Canonical(v)
			if err != nil {
				slog.Warn("Dropping unserializable layout", "error", err, "trace_id", logger.GetTraceID(ctx))
				return ""
			}
			return text
		default:
			slog.Warn("Dropping layout that is not an object", "type", fmt.Sprintf("%T", raw), "trace_id", logger.GetTraceID(ctx))
			return ""
		}
	}

	if !d.opts.LayoutExtraction {
		return ""
	}
	obj, ok := layout.Extract(UserText(ctx))
	if !ok {
		return ""
	}
	text, err := layout.Canonical(obj)
	if err != nil {
		slog.Warn("Dropping unserializable extracted layout", "error", err, "trace_id", logger.GetTraceID(ctx))
		return ""
	}
	slog.Debug("Layout extracted from user text", "layout", logger.Preview(text, logger.DefaultPreviewLen), "trace_id", logger.GetTraceID(ctx))
	return text
}

func previewArgs(args map[string]any) string {
	b, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("<%d args>", len(args))
	}
	return logger.Preview(string(b), logger.DefaultPreviewLen)
}
