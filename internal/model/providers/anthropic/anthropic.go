package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sylvaErrors "github.com/harunnryd/sylva/internal/errors"
	"github.com/harunnryd/sylva/internal/model/contract"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultMaxTokens = 1024

type Provider struct {
	client    anthropic.Client
	maxTokens int64
}

func New(apiKey, baseURL string, maxTokens int) *Provider {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// the gateway never retries
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Provider{client: anthropic.NewClient(opts...), maxTokens: int64(maxTokens)}
}

func (p *Provider) Name() string {
	return "anthropic"
}

func (p *Provider) Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	var system []anthropic.TextBlockParam
	var messages []anthropic.MessageParam
	// consecutive user-side blocks (tool results, user text, late instructions)
	// are merged into one user turn
	var pendingUser []anthropic.ContentBlockParamUnion
	started := false

	flushUser := func() {
		if len(pendingUser) > 0 {
			messages = append(messages, anthropic.NewUserMessage(pendingUser...))
			pendingUser = nil
		}
	}

	for _, m := range req.Messages {
		switch m.Role {
		case contract.RoleTool:
			pendingUser = append(pendingUser, anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false))
		case contract.RoleSystem:
			if !started {
				system = append(system, anthropic.TextBlockParam{Text: m.Content})
				continue
			}
			// A system message after the conversation started is an instruction
			// for the next reply. Hoisting it would leave the assistant turn last.
			pendingUser = append(pendingUser, anthropic.NewTextBlock(m.Content))
		case contract.RoleAssistant:
			started = true
			var blocks []anthropic.ContentBlockParamUnion
			if strings.TrimSpace(m.Content) != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				var input map[string]interface{}
				if err := json.Unmarshal([]byte(tc.Input), &input); err != nil || input == nil {
					input = map[string]interface{}{}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
			}
			if len(blocks) == 0 {
				continue
			}
			flushUser()
			messages = append(messages, anthropic.NewAssistantMessage(blocks...))
		default:
			started = true
			pendingUser = append(pendingUser, anthropic.NewTextBlock(m.Content))
		}
	}
	flushUser()

	var tools []anthropic.ToolUnionParam
	for _, t := range req.Tools {
		tool := anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: anthropic.ToolInputSchemaParam{Properties: map[string]interface{}{}},
		}
		if t.Parameters != nil {
			if props, ok := t.Parameters["properties"].(map[string]interface{}); ok {
				tool.InputSchema.Properties = props
			}
			if required, ok := t.Parameters["required"].([]string); ok {
				tool.InputSchema.Required = required
			}
		}
		tools = append(tools, anthropic.ToolUnionParam{OfTool: &tool})
	}

	modelName := req.Model
	if modelName == "" {
		modelName = string(anthropic.ModelClaude3_5HaikuLatest)
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(modelName),
		MaxTokens:   p.maxTokens,
		Messages:    messages,
		System:      system,
		Tools:       tools,
		Temperature: anthropic.Float(float64(req.Temperature)),
	}
	if len(tools) > 0 && req.ToolChoice == contract.ToolChoiceAuto {
		params.ToolChoice = anthropic.ToolChoiceUnionParam{OfAuto: &anthropic.ToolChoiceAutoParam{}}
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return nil, sylvaErrors.Upstream(p.Name(), apiErr.StatusCode, "request failed")
		}
		return nil, sylvaErrors.Configuration(p.Name(), fmt.Sprintf("request failed: %v", err))
	}

	out := contract.Choice{
		Message:      contract.Message{Role: contract.RoleAssistant},
		FinishReason: contract.FinishReasonStop,
	}
	for _, block := range msg.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			out.Message.Content += b.Text
		case anthropic.ToolUseBlock:
			inputJSON, _ := json.Marshal(b.Input)
			out.Message.ToolCalls = append(out.Message.ToolCalls, &contract.ToolCall{
				ID:    b.ID,
				Name:  b.Name,
				Input: string(inputJSON),
			})
		}
	}

	switch {
	case len(out.Message.ToolCalls) > 0:
		out.FinishReason = contract.FinishReasonToolCalls
	case msg.StopReason == anthropic.StopReasonMaxTokens:
		out.FinishReason = contract.FinishReasonLength
	}

	return &contract.CompletionResponse{Choices: []contract.Choice{out}}, nil
}
