// Package llm contains the model-facing half of the assistant: the universal
// client interface, the provider implementations (Gemini, OpenAI-compatible),
// and the Redis-backed health profiles used for model failover.
package llm

import (
	"context"

	"github.com/mimilabs/mimi/internal/api"
	"github.com/mimilabs/mimi/internal/tools"
)

// Role represents the originator of a message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is a single entry in the conversation sent to a model.
//
// Assistant messages may carry ToolCalls; tool messages carry the matching
// ToolCallID and Name plus the execution result in Content. Both directions
// are needed to replay a tool round to the model on the next iteration.
type Message struct {
	Role       Role              `json:"role"`
	Content    string            `json:"content"`
	Name       string            `json:"name,omitempty"`
	ToolCallID string            `json:"tool_call_id,omitempty"`
	ToolCalls  []*tools.ToolCall `json:"tool_calls,omitempty"`
}

// GenerationConfig controls one model invocation.
type GenerationConfig struct {
	Model string
	// System is the system instruction prepended to the conversation. Each
	// provider attaches it in its own way.
	System string
	// MaxTokens bounds the response length. Zero means provider default.
	MaxTokens int
	// Temperature and TopP are pointers so an unset value is distinguishable
	// from an explicit zero.
	Temperature *float32
	TopP        *float32
}

// GenerationResult is the complete output of one model call.
type GenerationResult struct {
	// Content is the model's text. May be empty when the model only
	// requested tool calls.
	Content string
	// ToolCalls lists the tools the model wants executed before it can
	// answer. Modern models request several in parallel, so this is a slice.
	ToolCalls []*tools.ToolCall
	// Usage is the token accounting for this single call.
	Usage api.Usage
}

// LLMClient is the universal interface every model provider implements.
type LLMClient interface {
	Generate(
		ctx context.Context,
		messages []Message,
		config *GenerationConfig,
		availableTools []tools.Tool,
	) (*GenerationResult, error)
}
