package llm

import "time"

// Shared timeouts and retry policy for the provider clients.
const (
	defaultTimeout    = 120 * time.Second
	defaultMaxTokens  = 4096
	maxRetries        = 3
	initialRetryDelay = 2 * time.Second
)
