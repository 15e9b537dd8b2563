// In file: cmd/mimi/main_test.go
package main

import (
	"testing"

	"github.com/mimilabs/mimi/internal/llm"

	"github.com/stretchr/testify/assert"
)

func TestModelsWithClients(t *testing.T) {
	clients := map[string]llm.LLMClient{
		"gemini-2.0-flash": &cannedClient{},
	}

	t.Run("drops models without a client", func(t *testing.T) {
		// A model whose API key was missing gets no client; failover must
		// never target it.
		got := modelsWithClients([]string{"gemini-2.0-flash", "gpt-4o-mini"}, clients)
		assert.Equal(t, []string{"gemini-2.0-flash"}, got)
	})

	t.Run("preserves configured order", func(t *testing.T) {
		both := map[string]llm.LLMClient{
			"gemini-2.0-flash": &cannedClient{},
			"gpt-4o-mini":      &cannedClient{},
		}
		got := modelsWithClients([]string{"gpt-4o-mini", "gemini-2.0-flash"}, both)
		assert.Equal(t, []string{"gpt-4o-mini", "gemini-2.0-flash"}, got)
	})

	t.Run("no clients yields empty list", func(t *testing.T) {
		got := modelsWithClients([]string{"gemini-2.0-flash"}, map[string]llm.LLMClient{})
		assert.Empty(t, got)
	})
}
