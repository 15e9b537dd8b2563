// Package agent implements the assistant's core: the bounded tool-calling
// loop that turns a user message plus conversation history into a final
// reply, executing whatever tools the model requests along the way.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mimilabs/mimi/internal/api"
	"github.com/mimilabs/mimi/internal/llm"
	"github.com/mimilabs/mimi/internal/session"
	"github.com/mimilabs/mimi/internal/tools"
)

// maxToolRounds caps how many times a single turn may go back to the model
// with tool results. The model normally stops on its own well before this;
// the cap exists so a confused model cannot loop forever.
const maxToolRounds = 5

// errToolRoundsExceeded marks a turn that hit the round cap. The model was
// responsive the whole time, so this never counts against its health.
var errToolRoundsExceeded = errors.New("exceeded maximum number of tool rounds")

// intentToolNames narrows which tool schemas an intent exposes. Intents
// missing here get every registered tool. Search asks a single question of
// the world; sending it the calendar schemas just burns tokens.
var intentToolNames = map[Intent][]string{
	IntentSearch: {"search_web"},
}

// Config carries the per-deployment knobs of the assistant.
type Config struct {
	Persona     string
	Nickname    string
	MaxTokens   int
	Temperature *float32
	TopP        *float32
}

// Result is the outcome of one completed turn.
type Result struct {
	Reply      string
	ModelUsed  string
	Intent     Intent
	Usage      api.Usage
	ToolEvents []api.ToolEvent
	Failover   *api.FailoverInfo
}

// ModelSelector picks which model serves a conversation's next turn.
// *llm.Selector is the production implementation.
type ModelSelector interface {
	SelectForConversation(ctx context.Context, conversationID string) (string, *api.FailoverInfo, error)
}

// ModelReporter receives the outcome of each turn for health tracking.
// *llm.Profiler is the production implementation.
type ModelReporter interface {
	UpdateOnSuccess(ctx context.Context, modelID string, latency time.Duration, usage api.Usage)
	UpdateOnFailure(ctx context.Context, modelID string)
}

// Agent wires the LLM clients, the tool registry, the conversation store,
// and the model selector into the tool-calling loop.
type Agent struct {
	clients  map[string]llm.LLMClient
	selector ModelSelector
	reporter ModelReporter
	manager  *tools.ToolManager
	store    session.Store
	config   Config
	now      func() time.Time
}

func New(clients map[string]llm.LLMClient, selector ModelSelector, reporter ModelReporter, manager *tools.ToolManager, store session.Store, config Config) *Agent {
	return &Agent{
		clients:  clients,
		selector: selector,
		reporter: reporter,
		manager:  manager,
		store:    store,
		config:   config,
		now:      time.Now,
	}
}

// Chat runs one full turn: classify the message, pick a model, loop through
// tool rounds until the model produces text, and persist both sides of the
// exchange. Only the user and assistant text turns are stored; tool rounds
// are scoped to the turn that produced them.
func (a *Agent) Chat(ctx context.Context, conversationID, userMessage string) (*Result, error) {
	history, err := a.store.History(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	intent := ClassifyIntent(userMessage)
	log.Printf("🔍 Intent detected: %s", intent)

	modelID, failover, err := a.selector.SelectForConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	client, ok := a.clients[modelID]
	if !ok {
		return nil, fmt.Errorf("no client available for model %s", modelID)
	}

	genConfig := &llm.GenerationConfig{
		Model:       modelID,
		System:      BuildSystemInstruction(a.config.Persona, a.config.Nickname, a.now(), intent),
		MaxTokens:   a.config.MaxTokens,
		Temperature: a.config.Temperature,
		TopP:        a.config.TopP,
	}

	var toolDefs []tools.Tool
	if intent.wantsTools() {
		if names, ok := intentToolNames[intent]; ok {
			toolDefs = a.manager.DefinitionsFor(names)
		} else {
			toolDefs = a.manager.Definitions()
		}
	}

	userMsg := llm.Message{Role: llm.RoleUser, Content: userMessage}
	messages := append(history, userMsg)

	result := &Result{ModelUsed: modelID, Intent: intent, Failover: failover}
	start := a.now()

	reply, err := a.runToolLoop(ctx, client, messages, genConfig, toolDefs, result)
	if err != nil {
		if !errors.Is(err, errToolRoundsExceeded) {
			a.reporter.UpdateOnFailure(ctx, modelID)
		}
		return nil, err
	}
	result.Reply = reply

	if err := a.store.Append(ctx, conversationID, userMsg, llm.Message{Role: llm.RoleAssistant, Content: reply}); err != nil {
		// The user already has their answer; a persistence hiccup should not
		// turn the turn into an error.
		log.Printf("WARNING: Failed to persist conversation %s: %v", conversationID, err)
	}

	a.reporter.UpdateOnSuccess(ctx, modelID, a.now().Sub(start), result.Usage)
	return result, nil
}

// runToolLoop is the heart of the assistant. Each round sends the transcript
// to the model; if the model answers with text the loop is done, otherwise
// every requested tool call is executed concurrently, the aggregated results
// are appended, and the loop goes around again.
func (a *Agent) runToolLoop(ctx context.Context, client llm.LLMClient, messages []llm.Message, genConfig *llm.GenerationConfig, toolDefs []tools.Tool, result *Result) (string, error) {
	for round := 0; round < maxToolRounds; round++ {
		generation, err := client.Generate(ctx, messages, genConfig, toolDefs)
		if err != nil {
			return "", fmt.Errorf("LLM generation failed during tool loop: %w", err)
		}
		result.Usage.Add(generation.Usage)

		if len(generation.ToolCalls) == 0 {
			return generation.Content, nil
		}

		assistantMsg := llm.Message{
			Role:      llm.RoleAssistant,
			Content:   generation.Content,
			ToolCalls: generation.ToolCalls,
		}
		messages = append(messages, assistantMsg)

		calls := make([]tools.ToolCall, len(generation.ToolCalls))
		for i, call := range generation.ToolCalls {
			calls[i] = *call
			log.Printf("🛠️ Executing tool: %s (ID: %s) with args: %s", call.Function.Name, call.ID, call.Function.Arguments)
		}

		// All calls of a round run concurrently; results come back in
		// request order and failures are folded into the transcript so the
		// model can recover instead of the turn aborting.
		for _, toolResult := range a.manager.ExecuteCalls(ctx, calls) {
			content := toolResult.Content
			status := "ok"
			errMsg := ""
			if toolResult.Err != nil {
				content = fmt.Sprintf("Error executing tool %s: %v", toolResult.Call.Function.Name, toolResult.Err)
				status = "error"
				errMsg = toolResult.Err.Error()
			}

			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				Name:       toolResult.Call.Function.Name,
				ToolCallID: toolResult.Call.ID,
				Content:    content,
			})
			result.ToolEvents = append(result.ToolEvents, api.ToolEvent{
				Name:       toolResult.Call.Function.Name,
				Arguments:  toolResult.Call.Function.Arguments,
				Status:     status,
				Error:      errMsg,
				DurationMS: toolResult.Duration.Milliseconds(),
			})
		}
	}

	return "", fmt.Errorf("%w (%d)", errToolRoundsExceeded, maxToolRounds)
}
