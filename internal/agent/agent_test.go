package agent

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/harunnryd/sylva/internal/config"
	sylvaErrors "github.com/harunnryd/sylva/internal/errors"
	"github.com/harunnryd/sylva/internal/model/contract"
	"github.com/harunnryd/sylva/internal/tool"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Complete(ctx context.Context, messages []contract.Message, tools []contract.ToolDef, temperature float64) (*contract.CompletionResponse, error) {
	args := m.Called(ctx, messages, tools, temperature)
	resp, _ := args.Get(0).(*contract.CompletionResponse)
	return resp, args.Error(1)
}

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) Dispatch(ctx context.Context, name string, args map[string]any, identity string) tool.Outcome {
	ret := m.Called(ctx, name, args, identity)
	return ret.Get(0).(tool.Outcome)
}

func testConfig() config.AgentConfig {
	return config.AgentConfig{
		ExplorationTemperature: config.DefaultAgentExplorationTemperature,
		CompositionTemperature: config.DefaultAgentCompositionTemperature,
		LayoutExtraction:       true,
	}
}

func reply(content string, calls ...*contract.ToolCall) *contract.CompletionResponse {
	finish := contract.FinishReasonStop
	if len(calls) > 0 {
		finish = contract.FinishReasonToolCalls
	}
	return &contract.CompletionResponse{Choices: []contract.Choice{{
		Message:      contract.Message{Role: contract.RoleAssistant, Content: content, ToolCalls: calls},
		FinishReason: finish,
	}}}
}

func user(text string) []contract.Message {
	return []contract.Message{{Role: contract.RoleUser, Content: text}}
}

func TestRun_DirectAnswer(t *testing.T) {
	gw := &mockCompleter{}
	gw.On("Complete", mock.Anything, mock.Anything, mock.Anything, 0.2).
		Return(reply("Bonjour, comment puis-je aider ?"), nil).Once()

	a := New(gw, &mockDispatcher{}, tool.DefaultCatalog(), testConfig())
	res := a.Run(context.Background(), user("Bonjour"), "")

	assert.Equal(t, "Bonjour, comment puis-je aider ?", res.Answer)
	assert.Empty(t, res.ToolCalls)
	assert.NotNil(t, res.ToolCalls)
	assert.Empty(t, res.Error)
	gw.AssertExpectations(t)
}

func TestRun_FirstCallSendsSystemPromptAndCatalog(t *testing.T) {
	gw := &mockCompleter{}
	gw.On("Complete", mock.Anything, mock.MatchedBy(func(msgs []contract.Message) bool {
		return len(msgs) == 2 &&
			msgs[0].Role == contract.RoleSystem && msgs[0].Content == config.DefaultSystemPrompt &&
			msgs[1].Role == contract.RoleUser
	}), mock.MatchedBy(func(tools []contract.ToolDef) bool {
		return len(tools) == 5 && tools[0].Name == tool.NameObservations
	}), 0.2).Return(reply("ok"), nil).Once()

	history := []contract.Message{
		{Role: contract.RoleTool, Content: "stale"},
		{Role: contract.RoleUser, Content: "Bonjour"},
	}
	res := New(gw, &mockDispatcher{}, tool.DefaultCatalog(), testConfig()).Run(context.Background(), history, "")

	assert.Equal(t, "ok", res.Answer)
	gw.AssertExpectations(t)
}

func TestRun_ToolCallsThenCompose(t *testing.T) {
	docs := []any{map[string]any{"path": "oiseaux/suivi.md"}, map[string]any{"path": "oiseaux/stoc.md"}}

	gw := &mockCompleter{}
	gw.On("Complete", mock.Anything, mock.Anything, mock.Anything, 0.2).
		Return(reply("", &contract.ToolCall{ID: "call_1", Name: tool.NameListDocs, Input: `{"query":"oiseaux"}`}), nil).Once()
	gw.On("Complete", mock.Anything, mock.MatchedBy(func(msgs []contract.Message) bool {
		n := len(msgs)
		if n != 5 {
			return false
		}
		assistant, toolMsg, compose := msgs[2], msgs[3], msgs[4]
		return assistant.Role == contract.RoleAssistant && len(assistant.ToolCalls) == 1 &&
			toolMsg.Role == contract.RoleTool && toolMsg.ToolCallID == "call_1" &&
			compose.Role == contract.RoleSystem && compose.Content == config.DefaultComposePrompt
	}), []contract.ToolDef(nil), 0.7).
		Return(reply("J'ai trouvé deux pages sur les oiseaux : le suivi et le STOC."), nil).Once()

	d := &mockDispatcher{}
	d.On("Dispatch", mock.Anything, tool.NameListDocs, map[string]any{"query": "oiseaux"}, "user-token").
		Return(tool.Outcome{Value: docs}).Once()

	res := New(gw, d, tool.DefaultCatalog(), testConfig()).Run(context.Background(), user("Liste les docs sur les oiseaux"), "user-token")

	require.Len(t, res.ToolCalls, 1)
	assert.Equal(t, tool.NameListDocs, res.ToolCalls[0].Name)
	assert.Equal(t, docs, res.ToolCalls[0].Result)
	assert.NotEmpty(t, res.Answer)
	assert.Empty(t, res.Error)
	gw.AssertExpectations(t)
	d.AssertExpectations(t)
}

func TestRun_ToolMessageEchoesCallIDAndCarriesErrors(t *testing.T) {
	gw := &mockCompleter{}
	gw.On("Complete", mock.Anything, mock.Anything, mock.Anything, 0.2).
		Return(reply("",
			&contract.ToolCall{ID: "call_a", Name: tool.NameGeoInfo, Input: `{"geometry":{"type":"Point"}}`},
			&contract.ToolCall{ID: "call_b", Name: "unknown_tool", Input: `{}`},
		), nil).Once()

	var composed []contract.Message
	gw.On("Complete", mock.Anything, mock.Anything, mock.Anything, 0.7).
		Run(func(args mock.Arguments) { composed = args.Get(1).([]contract.Message) }).
		Return(reply("Voici le résultat."), nil).Once()

	d := &mockDispatcher{}
	d.On("Dispatch", mock.Anything, tool.NameGeoInfo, mock.Anything, "").
		Return(tool.Outcome{Value: map[string]any{"altitude": map[string]any{"min": 200.0}}})
	d.On("Dispatch", mock.Anything, "unknown_tool", mock.Anything, "").
		Return(tool.Outcome{Err: sylvaErrors.UnknownTool("unknown_tool")})

	res := New(gw, d, tool.DefaultCatalog(), testConfig()).Run(context.Background(), user("Altitude ?"), "")

	require.Len(t, res.ToolCalls, 2)
	assert.Empty(t, res.ToolCalls[0].Error)
	assert.Contains(t, res.ToolCalls[1].Error, "unknown_tool")
	assert.Nil(t, res.ToolCalls[1].Result)

	var toolMsgs []contract.Message
	for _, m := range composed {
		if m.Role == contract.RoleTool {
			toolMsgs = append(toolMsgs, m)
		}
	}
	require.Len(t, toolMsgs, 2)
	assert.Equal(t, "call_a", toolMsgs[0].ToolCallID)
	assert.Equal(t, "call_b", toolMsgs[1].ToolCallID)

	var errPayload map[string]string
	require.NoError(t, json.Unmarshal([]byte(toolMsgs[1].Content), &errPayload))
	assert.Contains(t, errPayload["error"], "unknown_tool")
}

func TestRun_BackendNotConfigured(t *testing.T) {
	gw := &mockCompleter{}
	gw.On("Complete", mock.Anything, mock.Anything, mock.Anything, 0.2).
		Return(nil, sylvaErrors.Configuration("openai", "API key required for OpenAI provider")).Once()

	d := &mockDispatcher{}
	res := New(gw, d, tool.DefaultCatalog(), testConfig()).Run(context.Background(), user("Bonjour"), "")

	assert.Equal(t, config.DefaultUnavailableMessage, res.Answer)
	assert.Contains(t, res.Error, "API key required")
	assert.Empty(t, res.ToolCalls)
	d.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	gw.AssertNumberOfCalls(t, "Complete", 1)
}

func TestRun_NoChoices(t *testing.T) {
	gw := &mockCompleter{}
	gw.On("Complete", mock.Anything, mock.Anything, mock.Anything, 0.2).
		Return(&contract.CompletionResponse{}, nil).Once()

	res := New(gw, &mockDispatcher{}, tool.DefaultCatalog(), testConfig()).Run(context.Background(), user("???"), "")

	assert.Equal(t, config.DefaultNotUnderstoodMessage, res.Answer)
	assert.Empty(t, res.Error)
}

func TestRun_InvalidArgumentsSkipOnlyThatCall(t *testing.T) {
	gw := &mockCompleter{}
	gw.On("Complete", mock.Anything, mock.Anything, mock.Anything, 0.2).
		Return(reply("",
			&contract.ToolCall{ID: "call_1", Name: tool.NameListDocs, Input: `{"query":"flore"}`},
			&contract.ToolCall{ID: "call_2", Name: tool.NameReadDoc, Input: `{"target": "install.md"`},
		), nil).Once()
	gw.On("Complete", mock.Anything, mock.MatchedBy(func(msgs []contract.Message) bool {
		for _, m := range msgs {
			if m.Role == contract.RoleAssistant && len(m.ToolCalls) != 1 {
				return false
			}
			if m.ToolCallID == "call_2" {
				return false
			}
		}
		return true
	}), mock.Anything, 0.7).Return(reply("Un document sur la flore."), nil).Once()

	d := &mockDispatcher{}
	d.On("Dispatch", mock.Anything, tool.NameListDocs, mock.Anything, "").
		Return(tool.Outcome{Value: []any{"flore.md"}}).Once()

	res := New(gw, d, tool.DefaultCatalog(), testConfig()).Run(context.Background(), user("Docs flore"), "")

	require.Len(t, res.ToolCalls, 1)
	assert.Equal(t, tool.NameListDocs, res.ToolCalls[0].Name)
	assert.Equal(t, "Un document sur la flore.", res.Answer)
	d.AssertNumberOfCalls(t, "Dispatch", 1)
	gw.AssertExpectations(t)
}

func TestRun_ComposeFailureAfterTools(t *testing.T) {
	gw := &mockCompleter{}
	gw.On("Complete", mock.Anything, mock.Anything, mock.Anything, 0.2).
		Return(reply("", &contract.ToolCall{ID: "call_1", Name: tool.NameReport, Input: `{"format":"pdf"}`}), nil).Once()
	gw.On("Complete", mock.Anything, mock.Anything, mock.Anything, 0.7).
		Return(nil, sylvaErrors.Upstream("openai", 503, "overloaded")).Once()

	d := &mockDispatcher{}
	d.On("Dispatch", mock.Anything, tool.NameReport, mock.Anything, "tok").
		Return(tool.Outcome{Value: map[string]any{"url": "https://minio.example/r.pdf"}})

	res := New(gw, d, tool.DefaultCatalog(), testConfig()).Run(context.Background(), user("Rapport PDF"), "tok")

	assert.Equal(t, config.DefaultCouldNotFinalizeMessage, res.Answer)
	require.Len(t, res.ToolCalls, 1)
	assert.Contains(t, res.Error, "503")
}

func TestRun_StructuredDirectAnswerComposeFailureKeepsRaw(t *testing.T) {
	gw := &mockCompleter{}
	gw.On("Complete", mock.Anything, mock.Anything, mock.Anything, 0.2).
		Return(reply(`{"x":1}`), nil).Once()
	gw.On("Complete", mock.Anything, mock.Anything, mock.Anything, 0.7).
		Return(nil, sylvaErrors.Configuration("openai", "timeout")).Once()

	res := New(gw, &mockDispatcher{}, tool.DefaultCatalog(), testConfig()).Run(context.Background(), user("Donne un JSON"), "")

	assert.Equal(t, `{"x":1}`, res.Answer)
	assert.Empty(t, res.ToolCalls)
	assert.Empty(t, res.Error)
	gw.AssertNumberOfCalls(t, "Complete", 2)
}

func TestRun_StructuredDirectAnswerIsComposed(t *testing.T) {
	raw := "  [{\"nom\": \"Lynx\"}]"

	gw := &mockCompleter{}
	gw.On("Complete", mock.Anything, mock.Anything, mock.Anything, 0.2).
		Return(reply(raw), nil).Once()
	gw.On("Complete", mock.Anything, mock.MatchedBy(func(msgs []contract.Message) bool {
		n := len(msgs)
		return n >= 2 && msgs[n-2].Role == contract.RoleAssistant && msgs[n-2].Content == raw &&
			msgs[n-1].Role == contract.RoleSystem
	}), []contract.ToolDef(nil), 0.7).Return(reply("Une observation de Lynx."), nil).Once()

	res := New(gw, &mockDispatcher{}, tool.DefaultCatalog(), testConfig()).Run(context.Background(), user("Observations ?"), "")

	assert.Equal(t, "Une observation de Lynx.", res.Answer)
	gw.AssertExpectations(t)
}

func TestRun_StructuredDirectAnswerEmptyProseKeepsRaw(t *testing.T) {
	gw := &mockCompleter{}
	gw.On("Complete", mock.Anything, mock.Anything, mock.Anything, 0.2).Return(reply(`[1,2]`), nil).Once()
	gw.On("Complete", mock.Anything, mock.Anything, mock.Anything, 0.7).Return(reply("   "), nil).Once()

	res := New(gw, &mockDispatcher{}, tool.DefaultCatalog(), testConfig()).Run(context.Background(), user("x"), "")

	assert.Equal(t, `[1,2]`, res.Answer)
}

func TestRun_ComposeToolCallsAreNotExecuted(t *testing.T) {
	gw := &mockCompleter{}
	gw.On("Complete", mock.Anything, mock.Anything, mock.Anything, 0.2).
		Return(reply("", &contract.ToolCall{ID: "c1", Name: tool.NameListDocs, Input: ``}), nil).Once()
	gw.On("Complete", mock.Anything, mock.Anything, mock.Anything, 0.7).
		Return(reply("Réponse finale.", &contract.ToolCall{ID: "c2", Name: tool.NameListDocs, Input: `{}`}), nil).Once()

	d := &mockDispatcher{}
	d.On("Dispatch", mock.Anything, tool.NameListDocs, map[string]any{}, "").Return(tool.Outcome{Value: []any{}}).Once()

	res := New(gw, d, tool.DefaultCatalog(), testConfig()).Run(context.Background(), user("docs"), "")

	assert.Equal(t, "Réponse finale.", res.Answer)
	d.AssertNumberOfCalls(t, "Dispatch", 1)
}

func TestRun_UserTextReachesDispatcher(t *testing.T) {
	gw := &mockCompleter{}
	gw.On("Complete", mock.Anything, mock.Anything, mock.Anything, 0.2).
		Return(reply("", &contract.ToolCall{ID: "c1", Name: tool.NameReport, Input: `{}`}), nil).Once()
	gw.On("Complete", mock.Anything, mock.Anything, mock.Anything, 0.7).Return(reply("ok"), nil).Once()

	text := `Rapport avec {"header": "Bilan"}`
	d := &mockDispatcher{}
	d.On("Dispatch", mock.MatchedBy(func(ctx context.Context) bool {
		return tool.UserText(ctx) == text
	}), tool.NameReport, mock.Anything, "").Return(tool.Outcome{Value: map[string]any{}}).Once()

	New(gw, d, tool.DefaultCatalog(), testConfig()).Run(context.Background(), user(text), "")
	d.AssertExpectations(t)
}

func TestResultJSON(t *testing.T) {
	res := Result{Answer: "ok", ToolCalls: []ToolEvent{{Name: "x", Error: "boom"}}}
	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"answer":"ok","tool_calls":[{"name":"x","error":"boom"}]}`, string(b))
}
