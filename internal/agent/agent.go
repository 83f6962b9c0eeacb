package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/harunnryd/sylva/internal/config"
	sylvaErrors "github.com/harunnryd/sylva/internal/errors"
	"github.com/harunnryd/sylva/internal/logger"
	"github.com/harunnryd/sylva/internal/model"
	"github.com/harunnryd/sylva/internal/model/contract"
	"github.com/harunnryd/sylva/internal/tool"
)

// ToolEvent records the outcome of one dispatched tool call. Exactly one of
// Result and Error is meaningful.
type ToolEvent struct {
	Name   string `json:"name"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Result is the single value returned for one user turn.
type Result struct {
	Answer    string      `json:"answer"`
	ToolCalls []ToolEvent `json:"tool_calls"`
	Error     string      `json:"error,omitempty"`
}

type Dispatcher interface {
	Dispatch(ctx context.Context, name string, args map[string]any, identity string) tool.Outcome
}

type state string

const (
	stateRequestCompletion state = "request_completion"
	stateDirect            state = "direct"
	stateTools             state = "tools"
	stateCompose           state = "compose"
	stateDone              state = "done"
)

// Agent runs one bounded exchange per user turn: a single completion, at
// most one round of tool calls, then a composition call. It holds no state
// between turns.
type Agent struct {
	gateway    model.Completer
	dispatcher Dispatcher
	tools      []contract.ToolDef
	cfg        config.AgentConfig
}

func New(gateway model.Completer, dispatcher Dispatcher, catalog *tool.Catalog, cfg config.AgentConfig) *Agent {
	if cfg.Prompts.System == "" {
		cfg.Prompts.System = config.DefaultSystemPrompt
	}
	if cfg.Prompts.Compose == "" {
		cfg.Prompts.Compose = config.DefaultComposePrompt
	}
	if cfg.Messages.Unavailable == "" {
		cfg.Messages.Unavailable = config.DefaultUnavailableMessage
	}
	if cfg.Messages.NotUnderstood == "" {
		cfg.Messages.NotUnderstood = config.DefaultNotUnderstoodMessage
	}
	if cfg.Messages.CouldNotFinalize == "" {
		cfg.Messages.CouldNotFinalize = config.DefaultCouldNotFinalizeMessage
	}

	var tools []contract.ToolDef
	if catalog != nil {
		tools = catalog.Definitions()
	}

	return &Agent{
		gateway:    gateway,
		dispatcher: dispatcher,
		tools:      tools,
		cfg:        cfg,
	}
}

// Run answers the last user turn of history. It always returns a Result;
// failures are reported in Result.Error.
func (a *Agent) Run(ctx context.Context, history []contract.Message, identity string) Result {
	ctx, traceID := logger.EnsureTraceID(ctx)
	ctx = tool.WithUserText(ctx, lastUserText(history))
	start := time.Now()

	messages := BuildHistory(a.cfg.Prompts.System, history)
	slog.Info("Agent turn started", "state", stateRequestCompletion, "messages", len(messages), "trace_id", traceID)

	resp, err := a.gateway.Complete(ctx, messages, a.tools, a.cfg.ExplorationTemperature)
	if err != nil {
		slog.Warn("Completion backend unavailable", "category", sylvaErrors.Category(err), "error", err, "trace_id", traceID)
		return a.done(traceID, start, Result{Answer: a.cfg.Messages.Unavailable, ToolCalls: []ToolEvent{}, Error: err.Error()})
	}

	choice, ok := resp.First()
	if !ok {
		slog.Warn("Completion returned no choices", "trace_id", traceID)
		return a.done(traceID, start, Result{Answer: a.cfg.Messages.NotUnderstood, ToolCalls: []ToolEvent{}})
	}

	if len(choice.Message.ToolCalls) > 0 {
		return a.done(traceID, start, a.runTools(ctx, messages, choice.Message, identity))
	}
	return a.done(traceID, start, a.runDirect(ctx, messages, choice.Message.Content))
}

func (a *Agent) runTools(ctx context.Context, messages []contract.Message, reply contract.Message, identity string) Result {
	traceID := logger.GetTraceID(ctx)
	slog.Info("Dispatching tool calls", "state", stateTools, "count", len(reply.ToolCalls), "trace_id", traceID)

	type pending struct {
		call *contract.ToolCall
		args map[string]any
	}

	var calls []pending
	for _, call := range reply.ToolCalls {
		args, err := decodeArguments(call.Input)
		if err != nil {
			slog.Error("Skipping tool call with invalid arguments", "tool", call.Name, "call_id", call.ID, "args", logger.Preview(call.Input, logger.DefaultPreviewLen), "error", err, "trace_id", traceID)
			continue
		}
		calls = append(calls, pending{call: call, args: args})
	}

	// skipped calls get no tool message, so they are left out of the assistant turn too
	assistant := contract.Message{Role: contract.RoleAssistant, Content: reply.Content}
	for _, p := range calls {
		assistant.ToolCalls = append(assistant.ToolCalls, p.call)
	}
	if len(assistant.ToolCalls) > 0 {
		messages = append(messages, assistant)
	}

	events := make([]ToolEvent, 0, len(calls))
	for _, p := range calls {
		outcome := a.dispatcher.Dispatch(ctx, p.call.Name, p.args, identity)

		event := ToolEvent{Name: p.call.Name}
		var content string
		if outcome.Failed() {
			event.Error = outcome.Err.Error()
			content = errorContent(event.Error)
		} else {
			event.Result = outcome.Value
			b, err := json.Marshal(outcome.Value)
			if err != nil {
				content = errorContent(fmt.Sprintf("encode result: %v", err))
			} else {
				content = string(b)
			}
		}

		messages = append(messages, contract.Message{
			Role:       contract.RoleTool,
			Name:       p.call.Name,
			ToolCallID: p.call.ID,
			Content:    content,
		})
		events = append(events, event)
	}

	answer, err := a.compose(ctx, messages)
	if err != nil {
		slog.Warn("Composition after tool calls failed", "error", err, "trace_id", traceID)
		return Result{Answer: a.cfg.Messages.CouldNotFinalize, ToolCalls: events, Error: err.Error()}
	}
	return Result{Answer: answer, ToolCalls: events}
}

func (a *Agent) runDirect(ctx context.Context, messages []contract.Message, raw string) Result {
	traceID := logger.GetTraceID(ctx)
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
		slog.Debug("Direct answer", "state", stateDirect, "trace_id", traceID)
		return Result{Answer: raw, ToolCalls: []ToolEvent{}}
	}

	messages = append(messages, contract.Message{Role: contract.RoleAssistant, Content: raw})
	answer, err := a.compose(ctx, messages)
	if err != nil {
		slog.Warn("Composition of structured answer failed, returning raw answer", "error", err, "trace_id", traceID)
		return Result{Answer: raw, ToolCalls: []ToolEvent{}}
	}
	if strings.TrimSpace(answer) == "" {
		slog.Warn("Composition returned empty prose, returning raw answer", "trace_id", traceID)
		return Result{Answer: raw, ToolCalls: []ToolEvent{}}
	}
	return Result{Answer: answer, ToolCalls: []ToolEvent{}}
}

// compose asks for prose without tools. Tool calls in the reply are ignored.
func (a *Agent) compose(ctx context.Context, messages []contract.Message) (string, error) {
	slog.Debug("Requesting composition", "state", stateCompose, "trace_id", logger.GetTraceID(ctx))

	messages = append(messages, contract.Message{Role: contract.RoleSystem, Content: a.cfg.Prompts.Compose})
	resp, err := a.gateway.Complete(ctx, messages, nil, a.cfg.CompositionTemperature)
	if err != nil {
		return "", sylvaErrors.WrapWithCategory(err, "composition failed", sylvaErrors.ErrComposition)
	}

	choice, ok := resp.First()
	if !ok {
		return "", fmt.Errorf("composition returned no choices: %w", sylvaErrors.ErrComposition)
	}
	if len(choice.Message.ToolCalls) > 0 {
		slog.Warn("Ignoring tool calls requested during composition", "count", len(choice.Message.ToolCalls), "trace_id", logger.GetTraceID(ctx))
	}
	return choice.Message.Content, nil
}

func (a *Agent) done(traceID string, start time.Time, res Result) Result {
	slog.Info("Agent turn finished", "state", stateDone, "tool_calls", len(res.ToolCalls), "failed", res.Error != "", "duration", time.Since(start), "trace_id", traceID)
	return res
}

// decodeArguments parses the raw arguments of a tool call. Empty input means
// no arguments; anything but a JSON object is rejected.
func decodeArguments(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, sylvaErrors.ArgumentDecode(err.Error())
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

func errorContent(msg string) string {
	b, _ := json.Marshal(map[string]string{"error": msg})
	return string(b)
}
