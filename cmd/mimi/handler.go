// In file: cmd/mimi/handler.go
package main

import (
	"log"
	"net/http"
	"time"

	"github.com/mimilabs/mimi/internal/agent"
	"github.com/mimilabs/mimi/internal/api"
	"github.com/mimilabs/mimi/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ChatHandler exposes the assistant over HTTP. The agent does the real work;
// the handler owns conversation IDs, transcript access, and status codes.
type ChatHandler struct {
	agent *agent.Agent
	store session.Store
}

func NewChatHandler(assistant *agent.Agent, store session.Store) *ChatHandler {
	return &ChatHandler{agent: assistant, store: store}
}

// HandleChat processes one conversational turn.
func (h *ChatHandler) HandleChat(c *gin.Context) {
	startTime := time.Now()
	var req api.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
		log.Printf("🆕 Starting new conversation: %s", conversationID)
	}

	log.Printf("--- New Turn (Convo: %s, Message: '%.40s...') ---", conversationID, req.Message)

	result, err := h.agent.Chat(c.Request.Context(), conversationID, req.Message)
	if err != nil {
		log.Printf("❌ Turn failed for conversation %s: %v", conversationID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, api.ChatResponse{
		ConversationID: conversationID,
		Reply:          result.Reply,
		ModelUsed:      result.ModelUsed,
		Intent:         string(result.Intent),
		Usage:          result.Usage,
		LatencyMS:      time.Since(startTime).Milliseconds(),
		ToolEvents:     result.ToolEvents,
		FailoverInfo:   result.Failover,
	})
}

// HandleGetConversation returns the stored transcript for a conversation.
func (h *ChatHandler) HandleGetConversation(c *gin.Context) {
	conversationID := c.Param("id")
	history, err := h.store.History(c.Request.Context(), conversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	messages := make([]api.Message, 0, len(history))
	for _, msg := range history {
		messages = append(messages, api.Message{Role: string(msg.Role), Content: msg.Content})
	}
	c.JSON(http.StatusOK, api.ConversationResponse{
		ConversationID: conversationID,
		Messages:       messages,
	})
}

// HandleResetConversation wipes a conversation's history.
func (h *ChatHandler) HandleResetConversation(c *gin.Context) {
	conversationID := c.Param("id")
	if err := h.store.Reset(c.Request.Context(), conversationID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	log.Printf("🗑️ Conversation %s reset.", conversationID)
	c.JSON(http.StatusOK, gin.H{"status": "reset", "conversation_id": conversationID})
}
