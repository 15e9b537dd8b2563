// Package api defines the public request/response types for the assistant's
// HTTP interface, plus the small shared types (Usage, ToolEvent) that cross
// package boundaries between the handler, the agent, and the LLM clients.
package api

// ChatRequest is the body of POST /api/v1/chat.
type ChatRequest struct {
	// ConversationID groups turns into a single running transcript. If empty,
	// the server starts a new conversation and returns its ID in the response.
	ConversationID string `json:"conversation_id"`
	// Message is the user's free-text turn.
	Message string `json:"message" binding:"required"`
}

// ChatResponse is the body returned for a completed chat turn.
type ChatResponse struct {
	ConversationID string      `json:"conversation_id"`
	Reply          string      `json:"reply"`
	ModelUsed      string      `json:"model_used"`
	Intent         string      `json:"intent"`
	Usage          Usage       `json:"usage"`
	LatencyMS      int64       `json:"latency_ms"`
	ToolEvents     []ToolEvent `json:"tool_events,omitempty"`
	// FailoverInfo is set when the conversation's pinned model was offline
	// and the turn was served by another model.
	FailoverInfo *FailoverInfo `json:"failover_info,omitempty"`
}

// Message is a single transcript entry as exposed over the API.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ConversationResponse is the body of GET /api/v1/conversations/:id.
type ConversationResponse struct {
	ConversationID string    `json:"conversation_id"`
	Messages       []Message `json:"messages"`
}

// Usage holds token accounting for one or more model calls.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates another Usage into this one. The tool loop calls the model
// several times per turn, so per-turn usage is a running sum.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// ToolEvent records one tool invocation performed during a turn, so the UI
// can show what the assistant did on the user's behalf.
type ToolEvent struct {
	Name       string `json:"name"`
	Arguments  string `json:"arguments,omitempty"`
	Status     string `json:"status"` // "ok" or "error"
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// FailoverInfo explains a mid-conversation model switch to the client.
type FailoverInfo struct {
	OriginalModel string `json:"original_model"`
	NewModel      string `json:"new_model"`
	Reason        string `json:"reason"`
}
