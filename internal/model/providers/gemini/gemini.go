package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sylvaErrors "github.com/harunnryd/sylva/internal/errors"
	"github.com/harunnryd/sylva/internal/model/contract"

	"google.golang.org/genai"
)

type Provider struct {
	client    *genai.Client
	maxTokens int32
}

func New(ctx context.Context, apiKey, baseURL string, maxTokens int) (*Provider, error) {
	cfg := &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, sylvaErrors.Configuration("gemini", fmt.Sprintf("client init failed: %v", err))
	}
	return &Provider{client: client, maxTokens: int32(maxTokens)}, nil
}

func (p *Provider) Name() string {
	return "gemini"
}

func (p *Provider) Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	var system *genai.Content
	var contents []*genai.Content

	// function responses are keyed by tool name, so remember which call id belongs to which tool
	callNames := map[string]string{}

	for _, m := range req.Messages {
		switch m.Role {
		case contract.RoleSystem:
			if len(contents) > 0 {
				// a late instruction stays in place as user text so the model
				// answers it instead of continuing its own turn
				if last := contents[len(contents)-1]; last.Role == genai.RoleUser {
					last.Parts = append(last.Parts, &genai.Part{Text: m.Content})
				} else {
					contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{Text: m.Content}}})
				}
				continue
			}
			if system == nil {
				system = &genai.Content{}
			}
			system.Parts = append(system.Parts, &genai.Part{Text: m.Content})
		case contract.RoleTool:
			name := callNames[m.ToolCallID]
			if name == "" {
				name = m.Name
			}
			contents = append(contents, &genai.Content{
				Role: genai.RoleUser,
				Parts: []*genai.Part{{FunctionResponse: &genai.FunctionResponse{
					ID:       m.ToolCallID,
					Name:     name,
					Response: functionResponse(m.Content),
				}}},
			})
		case contract.RoleAssistant:
			content := &genai.Content{Role: genai.RoleModel}
			if m.Content != "" {
				content.Parts = append(content.Parts, &genai.Part{Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				callNames[tc.ID] = tc.Name
				var args map[string]any
				_ = json.Unmarshal([]byte(tc.Input), &args)
				content.Parts = append(content.Parts, &genai.Part{FunctionCall: &genai.FunctionCall{ID: tc.ID, Name: tc.Name, Args: args}})
			}
			if len(content.Parts) > 0 {
				contents = append(contents, content)
			}
		default:
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{Text: m.Content}}})
		}
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: system,
		Temperature:       genai.Ptr(req.Temperature),
	}
	if p.maxTokens > 0 {
		config.MaxOutputTokens = p.maxTokens
	}

	if len(req.Tools) > 0 {
		var decls []*genai.FunctionDeclaration
		for _, t := range req.Tools {
			decl := &genai.FunctionDeclaration{Name: t.Name, Description: t.Description}
			if props, _ := t.Parameters["properties"].(map[string]any); len(props) > 0 {
				decl.Parameters = toSchema(t.Parameters)
			}
			decls = append(decls, decl)
		}
		config.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
		if req.ToolChoice == contract.ToolChoiceAuto {
			config.ToolConfig = &genai.ToolConfig{
				FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingConfigModeAuto},
			}
		}
	}

	resp, err := p.client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return nil, sylvaErrors.Upstream(p.Name(), apiErr.Code, apiErr.Message)
		}
		return nil, sylvaErrors.Configuration(p.Name(), fmt.Sprintf("request failed: %v", err))
	}

	out := &contract.CompletionResponse{}
	if resp == nil || len(resp.Candidates) == 0 {
		return out, nil
	}

	choice := contract.Choice{
		Message:      contract.Message{Role: contract.RoleAssistant},
		FinishReason: contract.FinishReasonStop,
	}

	for i, fc := range resp.FunctionCalls() {
		argsJSON, _ := json.Marshal(fc.Args)
		id := fc.ID
		if id == "" {
			id = fmt.Sprintf("call_%d", i+1)
		}
		choice.Message.ToolCalls = append(choice.Message.ToolCalls, &contract.ToolCall{ID: id, Name: fc.Name, Input: string(argsJSON)})
	}

	candidate := resp.Candidates[0]
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				choice.Message.Content += part.Text
			}
		}
	}

	switch {
	case len(choice.Message.ToolCalls) > 0:
		choice.FinishReason = contract.FinishReasonToolCalls
	case candidate.FinishReason == genai.FinishReasonMaxTokens:
		choice.FinishReason = contract.FinishReasonLength
	}

	out.Choices = append(out.Choices, choice)
	return out, nil
}

// toSchema converts a JSON-schema fragment into the Gemini schema subset.
// Unsupported keywords such as additionalProperties are dropped.
func toSchema(params map[string]any) *genai.Schema {
	if params == nil {
		return nil
	}
	schema := &genai.Schema{}
	if t, ok := params["type"].(string); ok {
		schema.Type = genai.Type(strings.ToUpper(t))
	}
	if d, ok := params["description"].(string); ok {
		schema.Description = d
	}
	// Gemini rejects OBJECT schemas without properties; free-form objects
	// travel as JSON-encoded strings instead.
	if schema.Type == genai.TypeObject {
		if props, _ := params["properties"].(map[string]any); len(props) == 0 {
			schema.Type = genai.TypeString
			schema.Description = strings.TrimSpace(schema.Description + " (JSON encodé)")
			return schema
		}
	}
	switch enum := params["enum"].(type) {
	case []string:
		schema.Enum = enum
	case []any:
		for _, v := range enum {
			if s, ok := v.(string); ok {
				schema.Enum = append(schema.Enum, s)
			}
		}
	}
	switch required := params["required"].(type) {
	case []string:
		schema.Required = required
	case []any:
		for _, v := range required {
			if s, ok := v.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	}
	if props, ok := params["properties"].(map[string]any); ok {
		schema.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if prop, ok := raw.(map[string]any); ok {
				schema.Properties[name] = toSchema(prop)
			}
		}
	}
	return schema
}

// functionResponse wraps a tool result so it always decodes into an object.
func functionResponse(content string) map[string]any {
	var v any
	if err := json.Unmarshal([]byte(content), &v); err != nil {
		return map[string]any{"result": content}
	}
	if obj, ok := v.(map[string]any); ok {
		return obj
	}
	return map[string]any{"result": v}
}
