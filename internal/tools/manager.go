package tools

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// ToolManager holds the registry of all available tools and dispatches the
// calls the model asks for.
type ToolManager struct {
	tools map[string]ToolExecutor
	order []string
}

func NewToolManager() *ToolManager {
	return &ToolManager{
		tools: make(map[string]ToolExecutor),
	}
}

// Register adds a tool to the registry, replacing any previous tool with the
// same name.
func (tm *ToolManager) Register(tool ToolExecutor) {
	name := tool.Definition().Function.Name
	if _, exists := tm.tools[name]; !exists {
		tm.order = append(tm.order, name)
	}
	tm.tools[name] = tool
}

// Definitions returns all registered tool schemas in registration order, so
// the tool list sent to the model is stable across requests.
func (tm *ToolManager) Definitions() []Tool {
	defs := make([]Tool, 0, len(tm.order))
	for _, name := range tm.order {
		defs = append(defs, tm.tools[name].Definition())
	}
	return defs
}

// DefinitionsFor returns the schemas of the named tools, skipping unknown
// names. The agent uses this to expose only an intent's tool subset.
func (tm *ToolManager) DefinitionsFor(names []string) []Tool {
	defs := make([]Tool, 0, len(names))
	for _, name := range names {
		if tool, ok := tm.tools[name]; ok {
			defs = append(defs, tool.Definition())
		}
	}
	return defs
}

// ToolCount returns the number of registered tools.
func (tm *ToolManager) ToolCount() int {
	return len(tm.tools)
}

// Execute validates the arguments against the tool's declared schema and runs
// the tool. Unknown tool names and schema violations come back as errors; the
// agent turns them into tool results so the model can correct itself.
func (tm *ToolManager) Execute(ctx context.Context, name, arguments string) (string, error) {
	tool, ok := tm.tools[name]
	if !ok {
		return "", fmt.Errorf("tool %q not found", name)
	}
	if err := tool.Definition().Function.Parameters.ValidateArguments(arguments); err != nil {
		return "", fmt.Errorf("invalid arguments for tool %q: %w", name, err)
	}
	return tool.Execute(ctx, arguments)
}

// ToolResult is the outcome of one dispatched tool call.
type ToolResult struct {
	Call     ToolCall
	Content  string
	Err      error
	Duration time.Duration
}

// ExecuteCalls dispatches a batch of tool calls concurrently and returns one
// result per call, in the order the model requested them. A failing call
// never suppresses its siblings: its result carries the error and the batch
// completes regardless.
func (tm *ToolManager) ExecuteCalls(ctx context.Context, calls []ToolCall) []ToolResult {
	results := make([]ToolResult, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call ToolCall) {
			defer wg.Done()
			start := time.Now()
			content, err := tm.Execute(ctx, call.Function.Name, call.Function.Arguments)
			results[i] = ToolResult{
				Call:     call,
				Content:  content,
				Err:      err,
				Duration: time.Since(start),
			}
			if err != nil {
				log.Printf("🛠️ Tool %s failed after %s: %v", call.Function.Name, results[i].Duration.Round(time.Millisecond), err)
			} else {
				log.Printf("🛠️ Tool %s completed in %s", call.Function.Name, results[i].Duration.Round(time.Millisecond))
			}
		}(i, call)
	}
	wg.Wait()

	return results
}
