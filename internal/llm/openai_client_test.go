package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/mimilabs/mimi/internal/tools"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOpenAIClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewOpenAIClient("test-key", srv.URL, "gpt-test")
	require.NoError(t, err)
	return client
}

func TestNewOpenAIClientRequiresKey(t *testing.T) {
	_, err := NewOpenAIClient("", "", "gpt-test")
	assert.Error(t, err)
}

func TestOpenAIGenerateText(t *testing.T) {
	var gotReq openAIRequest
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(`{
			"choices":[{"message":{"role":"assistant","content":"Paris."}}],
			"usage":{"prompt_tokens":12,"completion_tokens":3,"total_tokens":15}
		}`))
	})

	config := &GenerationConfig{Model: "gpt-test", System: "You are terse.", MaxTokens: 64}
	result, err := client.Generate(context.Background(), []Message{
		{Role: RoleUser, Content: "Capital of France?"},
	}, config, nil)
	require.NoError(t, err)

	assert.Equal(t, "Paris.", result.Content)
	assert.Empty(t, result.ToolCalls)
	assert.Equal(t, 15, result.Usage.TotalTokens)

	// The system instruction is prepended as the first wire message.
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "You are terse.", gotReq.Messages[0].Content)
	assert.Equal(t, 64, gotReq.MaxTokens)
	assert.Empty(t, gotReq.ToolChoice)
}

func TestOpenAIGenerateToolCalls(t *testing.T) {
	var gotReq openAIRequest
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(`{
			"choices":[{"message":{"role":"assistant","content":"","tool_calls":[
				{"id":"call_1","type":"function","function":{"name":"search_web","arguments":"{\"query\":\"lakers score\"}"}}
			]}}],
			"usage":{"prompt_tokens":40,"completion_tokens":12,"total_tokens":52}
		}`))
	})

	toolDefs := []tools.Tool{tools.NewFunctionTool("search_web", "search", tools.JSONSchema{
		Type:       "object",
		Properties: map[string]*tools.JSONSchema{"query": {Type: "string"}},
		Required:   []string{"query"},
	})}

	result, err := client.Generate(context.Background(), []Message{
		{Role: RoleUser, Content: "lakers score?"},
	}, &GenerationConfig{Model: "gpt-test"}, toolDefs)
	require.NoError(t, err)

	require.Len(t, result.ToolCalls, 1)
	assert.Equal(t, "call_1", result.ToolCalls[0].ID)
	assert.Equal(t, "search_web", result.ToolCalls[0].Function.Name)
	assert.JSONEq(t, `{"query":"lakers score"}`, result.ToolCalls[0].Function.Arguments)

	// Offering tools switches tool_choice to auto.
	require.Len(t, gotReq.Tools, 1)
	assert.Equal(t, "search_web", gotReq.Tools[0].Function.Name)
	assert.Equal(t, "auto", gotReq.ToolChoice)
}

func TestOpenAIGenerateSendsToolTranscript(t *testing.T) {
	var gotReq openAIRequest
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Done."}}]}`))
	})

	messages := []Message{
		{Role: RoleUser, Content: "delete my dentist appointment"},
		{Role: RoleAssistant, ToolCalls: []*tools.ToolCall{{
			ID:   "call_9",
			Type: tools.ToolTypeFunction,
			Function: tools.ToolCallFunction{Name: "delete_calendar_event", Arguments: `{"event_id":"ev1"}`},
		}}},
		{Role: RoleTool, Name: "delete_calendar_event", ToolCallID: "call_9", Content: "Event deleted successfully."},
	}

	_, err := client.Generate(context.Background(), messages, &GenerationConfig{Model: "gpt-test"}, nil)
	require.NoError(t, err)

	require.Len(t, gotReq.Messages, 3)
	assert.Equal(t, "assistant", gotReq.Messages[1].Role)
	require.Len(t, gotReq.Messages[1].ToolCalls, 1)
	assert.Equal(t, "call_9", gotReq.Messages[1].ToolCalls[0].ID)
	assert.Equal(t, "tool", gotReq.Messages[2].Role)
	assert.Equal(t, "call_9", gotReq.Messages[2].ToolCallID)
}

func TestOpenAIClientErrorsAreTerminal(t *testing.T) {
	var calls atomic.Int32
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key"}}`))
	})

	_, err := client.Generate(context.Background(), []Message{
		{Role: RoleUser, Content: "hi"},
	}, &GenerationConfig{Model: "gpt-test"}, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	// 4xx must not be retried.
	assert.Equal(t, int32(1), calls.Load())
}

func TestParseOpenAIResponseNoChoices(t *testing.T) {
	_, err := parseOpenAIResponse([]byte(`{"choices":[]}`))
	assert.Error(t, err)
}
