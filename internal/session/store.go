// Package session implements the durable conversation store. Transcripts are
// kept per conversation, trimmed to a maximum length, and expire after a
// period of inactivity. This is the assistant's working memory, not an
// archive.
package session

import (
	"context"

	"github.com/mimilabs/mimi/internal/llm"
)

// Store is the conversation persistence contract. RedisStore is the real
// implementation; MemoryStore backs tests and Redis-less development runs.
type Store interface {
	// History returns the conversation's transcript, oldest first. A missing
	// conversation yields an empty history, not an error.
	History(ctx context.Context, conversationID string) ([]llm.Message, error)
	// Append adds messages to the transcript, trims it to the configured
	// maximum, and refreshes the conversation's TTL.
	Append(ctx context.Context, conversationID string, messages ...llm.Message) error
	// Reset deletes the conversation's transcript.
	Reset(ctx context.Context, conversationID string) error
}
