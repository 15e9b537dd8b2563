package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mimilabs/mimi/internal/api"
	"github.com/mimilabs/mimi/internal/llm"
	"github.com/mimilabs/mimi/internal/session"
	"github.com/mimilabs/mimi/internal/tools"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClient returns canned generation results in order and records the
// message transcript it was handed on each call.
type scriptedClient struct {
	results   []*llm.GenerationResult
	seen      [][]llm.Message
	seenTools [][]tools.Tool
	err       error
}

func (c *scriptedClient) Generate(_ context.Context, messages []llm.Message, _ *llm.GenerationConfig, availableTools []tools.Tool) (*llm.GenerationResult, error) {
	c.seen = append(c.seen, append([]llm.Message(nil), messages...))
	c.seenTools = append(c.seenTools, availableTools)
	if c.err != nil {
		return nil, c.err
	}
	call := len(c.seen) - 1
	if call >= len(c.results) {
		call = len(c.results) - 1
	}
	return c.results[call], nil
}

type fixedSelector struct {
	modelID  string
	failover *api.FailoverInfo
}

func (s *fixedSelector) SelectForConversation(context.Context, string) (string, *api.FailoverInfo, error) {
	return s.modelID, s.failover, nil
}

type recordingReporter struct {
	successes []string
	failures  []string
}

func (r *recordingReporter) UpdateOnSuccess(_ context.Context, modelID string, _ time.Duration, _ api.Usage) {
	r.successes = append(r.successes, modelID)
}

func (r *recordingReporter) UpdateOnFailure(_ context.Context, modelID string) {
	r.failures = append(r.failures, modelID)
}

// stubTool answers with a fixed result or error.
type stubTool struct {
	name   string
	result string
	err    error
}

func (s *stubTool) Definition() tools.Tool {
	return tools.NewFunctionTool(s.name, "test tool", tools.JSONSchema{Type: "object"})
}

func (s *stubTool) Execute(context.Context, string) (string, error) {
	return s.result, s.err
}

func newTestAgent(client llm.LLMClient, manager *tools.ToolManager, reporter *recordingReporter) (*Agent, session.Store) {
	store := session.NewMemoryStore(20)
	a := New(
		map[string]llm.LLMClient{"test-model": client},
		&fixedSelector{modelID: "test-model"},
		reporter,
		manager,
		store,
		Config{Persona: "Test persona.", Nickname: "boss", MaxTokens: 256},
	)
	a.now = func() time.Time { return time.Date(2025, time.March, 14, 12, 0, 0, 0, time.UTC) }
	return a, store
}

func toolCall(id, name, args string) *tools.ToolCall {
	return &tools.ToolCall{
		ID:   id,
		Type: tools.ToolTypeFunction,
		Function: tools.ToolCallFunction{Name: name, Arguments: args},
	}
}

func TestChatPlainReply(t *testing.T) {
	client := &scriptedClient{results: []*llm.GenerationResult{
		{Content: "Hello there!", Usage: api.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}},
	}}
	reporter := &recordingReporter{}
	a, store := newTestAgent(client, tools.NewToolManager(), reporter)

	result, err := a.Chat(context.Background(), "conv-1", "write me a haiku about rain")
	require.NoError(t, err)

	assert.Equal(t, "Hello there!", result.Reply)
	assert.Equal(t, "test-model", result.ModelUsed)
	assert.Equal(t, IntentGeneral, result.Intent)
	assert.Equal(t, 15, result.Usage.TotalTokens)
	assert.Empty(t, result.ToolEvents)
	assert.Equal(t, []string{"test-model"}, reporter.successes)

	// Only the user and assistant text turns are persisted.
	history, err := store.History(context.Background(), "conv-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, llm.RoleUser, history[0].Role)
	assert.Equal(t, "write me a haiku about rain", history[0].Content)
	assert.Equal(t, llm.RoleAssistant, history[1].Role)
	assert.Equal(t, "Hello there!", history[1].Content)
}

func TestChatToolRound(t *testing.T) {
	client := &scriptedClient{results: []*llm.GenerationResult{
		{
			ToolCalls: []*tools.ToolCall{toolCall("call-1", "stub_search", `{}`)},
			Usage:     api.Usage{TotalTokens: 20},
		},
		{Content: "The answer is 42.", Usage: api.Usage{TotalTokens: 10}},
	}}
	manager := tools.NewToolManager()
	manager.Register(&stubTool{name: "stub_search", result: "Title: Answer\nURL: x\nSnippet: 42"})
	reporter := &recordingReporter{}
	a, _ := newTestAgent(client, manager, reporter)

	result, err := a.Chat(context.Background(), "conv-2", "look up the answer")
	require.NoError(t, err)

	assert.Equal(t, "The answer is 42.", result.Reply)
	assert.Equal(t, 30, result.Usage.TotalTokens)
	require.Len(t, result.ToolEvents, 1)
	assert.Equal(t, "stub_search", result.ToolEvents[0].Name)
	assert.Equal(t, "ok", result.ToolEvents[0].Status)

	// The second model call must see the assistant's tool request and the
	// tool's answer.
	require.Len(t, client.seen, 2)
	secondTranscript := client.seen[1]
	require.Len(t, secondTranscript, 3)
	assert.Equal(t, llm.RoleAssistant, secondTranscript[1].Role)
	require.Len(t, secondTranscript[1].ToolCalls, 1)
	assert.Equal(t, llm.RoleTool, secondTranscript[2].Role)
	assert.Equal(t, "call-1", secondTranscript[2].ToolCallID)
	assert.Contains(t, secondTranscript[2].Content, "42")
}

func TestChatToolFailureIsFoldedIntoTranscript(t *testing.T) {
	client := &scriptedClient{results: []*llm.GenerationResult{
		{ToolCalls: []*tools.ToolCall{toolCall("call-1", "stub_broken", `{}`)}},
		{Content: "Sorry, that tool is not working right now."},
	}}
	manager := tools.NewToolManager()
	manager.Register(&stubTool{name: "stub_broken", err: errors.New("upstream timeout")})
	reporter := &recordingReporter{}
	a, _ := newTestAgent(client, manager, reporter)

	result, err := a.Chat(context.Background(), "conv-3", "search for something")
	require.NoError(t, err)

	assert.Equal(t, "Sorry, that tool is not working right now.", result.Reply)
	require.Len(t, result.ToolEvents, 1)
	assert.Equal(t, "error", result.ToolEvents[0].Status)
	assert.Contains(t, result.ToolEvents[0].Error, "upstream timeout")

	// The failure goes back to the model as a readable tool result.
	secondTranscript := client.seen[1]
	toolMsg := secondTranscript[len(secondTranscript)-1]
	assert.Equal(t, llm.RoleTool, toolMsg.Role)
	assert.Contains(t, toolMsg.Content, "Error executing tool stub_broken")

	// A tool failure the model recovered from is still a successful turn.
	assert.Equal(t, []string{"test-model"}, reporter.successes)
	assert.Empty(t, reporter.failures)
}

func TestChatToolLoopExhaustion(t *testing.T) {
	// Every round asks for another tool call; the loop must give up.
	client := &scriptedClient{results: []*llm.GenerationResult{
		{ToolCalls: []*tools.ToolCall{toolCall("call-x", "stub_search", `{}`)}},
	}}
	manager := tools.NewToolManager()
	manager.Register(&stubTool{name: "stub_search", result: "nothing"})
	reporter := &recordingReporter{}
	a, store := newTestAgent(client, manager, reporter)

	_, err := a.Chat(context.Background(), "conv-4", "look up something")
	require.Error(t, err)
	assert.ErrorIs(t, err, errToolRoundsExceeded)
	assert.Len(t, client.seen, maxToolRounds)

	// The model answered every round; exhaustion is its behavior, not a
	// provider fault, so the profile stays clean.
	assert.Empty(t, reporter.failures)

	// Failed turns leave no trace in the transcript.
	history, err := store.History(context.Background(), "conv-4")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestChatSmalltalkSkipsTools(t *testing.T) {
	client := &scriptedClient{results: []*llm.GenerationResult{
		{Content: "Good morning to you too!"},
	}}
	manager := tools.NewToolManager()
	manager.Register(&stubTool{name: "stub_search", result: "unused"})
	reporter := &recordingReporter{}
	a, _ := newTestAgent(client, manager, reporter)

	result, err := a.Chat(context.Background(), "conv-5", "good morning")
	require.NoError(t, err)

	assert.Equal(t, IntentSmalltalk, result.Intent)
	require.Len(t, client.seenTools, 1)
	assert.Empty(t, client.seenTools[0])
}

func TestChatSearchIntentNarrowsToolExposure(t *testing.T) {
	client := &scriptedClient{results: []*llm.GenerationResult{
		{Content: "Here is the latest."},
	}}
	manager := tools.NewToolManager()
	manager.Register(&stubTool{name: "list_upcoming_events", result: "unused"})
	manager.Register(&stubTool{name: "search_web", result: "unused"})
	reporter := &recordingReporter{}
	a, _ := newTestAgent(client, manager, reporter)

	result, err := a.Chat(context.Background(), "conv-8", "look up the election results")
	require.NoError(t, err)
	assert.Equal(t, IntentSearch, result.Intent)

	// A search turn offers the model only the search schema.
	require.Len(t, client.seenTools, 1)
	require.Len(t, client.seenTools[0], 1)
	assert.Equal(t, "search_web", client.seenTools[0][0].Function.Name)
}

func TestChatCalendarIntentExposesAllTools(t *testing.T) {
	client := &scriptedClient{results: []*llm.GenerationResult{
		{Content: "You are free all day."},
	}}
	manager := tools.NewToolManager()
	manager.Register(&stubTool{name: "list_upcoming_events", result: "unused"})
	manager.Register(&stubTool{name: "search_web", result: "unused"})
	reporter := &recordingReporter{}
	a, _ := newTestAgent(client, manager, reporter)

	result, err := a.Chat(context.Background(), "conv-9", "am I free Thursday afternoon?")
	require.NoError(t, err)
	assert.Equal(t, IntentCalendar, result.Intent)

	require.Len(t, client.seenTools, 1)
	assert.Len(t, client.seenTools[0], 2)
}

func TestChatGenerationFailure(t *testing.T) {
	client := &scriptedClient{err: errors.New("provider is down")}
	reporter := &recordingReporter{}
	a, _ := newTestAgent(client, tools.NewToolManager(), reporter)

	_, err := a.Chat(context.Background(), "conv-6", "explain how mortgages work")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider is down")
	assert.Equal(t, []string{"test-model"}, reporter.failures)
}

func TestChatUnknownModel(t *testing.T) {
	a := New(
		map[string]llm.LLMClient{},
		&fixedSelector{modelID: "missing-model"},
		&recordingReporter{},
		tools.NewToolManager(),
		session.NewMemoryStore(20),
		Config{},
	)

	_, err := a.Chat(context.Background(), "conv-7", "hello there, how do I cook rice?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing-model")
}
