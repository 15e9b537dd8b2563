package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mimilabs/mimi/internal/api"
	"github.com/mimilabs/mimi/internal/tools"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// --- Wire Structures ---

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Tools       []openAITool    `json:"tools,omitempty"`
	ToolChoice  string          `json:"tool_choice,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature *float32        `json:"temperature,omitempty"`
	TopP        *float32        `json:"top_p,omitempty"`
}

type openAIMessage struct {
	Role       string           `json:"role"`
	Content    string           `json:"content"`
	Name       string           `json:"name,omitempty"`
	ToolCalls  []tools.ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
}

type openAITool struct {
	Type     string         `json:"type"`
	Function tools.Function `json:"function"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
	Usage api.Usage `json:"usage"`
}

// OpenAIClient talks the OpenAI chat-completions wire protocol. It is the
// assistant's failover provider, and because the protocol is the de facto
// standard it also covers any OpenAI-compatible endpoint via a custom base
// URL.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	modelID    string
	httpClient *http.Client
}

var _ LLMClient = (*OpenAIClient)(nil)

// NewOpenAIClient creates a configured client. baseURL may be empty to use
// the official API.
func NewOpenAIClient(apiKey, baseURL, modelID string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key cannot be empty")
	}
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &OpenAIClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		modelID: modelID,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}, nil
}

// Generate performs a blocking chat-completions request.
func (c *OpenAIClient) Generate(
	ctx context.Context,
	messages []Message,
	config *GenerationConfig,
	availableTools []tools.Tool,
) (*GenerationResult, error) {
	payload, err := c.buildRequestPayload(messages, config, availableTools)
	if err != nil {
		return nil, fmt.Errorf("failed to build openai request payload: %w", err)
	}

	respBody, err := c.doRequest(ctx, payload)
	if err != nil {
		return nil, err
	}
	return parseOpenAIResponse(respBody)
}

func (c *OpenAIClient) buildRequestPayload(messages []Message, config *GenerationConfig, availableTools []tools.Tool) ([]byte, error) {
	req := openAIRequest{
		Model:    c.modelID,
		Messages: toOpenAIMessages(messages, config),
		Tools:    toOpenAITools(availableTools),
	}
	if config != nil {
		if config.MaxTokens > 0 {
			req.MaxTokens = config.MaxTokens
		}
		req.Temperature = config.Temperature
		req.TopP = config.TopP
	}
	if len(req.Tools) > 0 {
		req.ToolChoice = "auto"
	}
	return json.Marshal(req)
}

// toOpenAIMessages converts the transcript, prepending the system instruction
// as a system message the way this protocol expects.
func toOpenAIMessages(messages []Message, config *GenerationConfig) []openAIMessage {
	converted := make([]openAIMessage, 0, len(messages)+1)
	if config != nil && config.System != "" {
		converted = append(converted, openAIMessage{Role: string(RoleSystem), Content: config.System})
	}
	for _, msg := range messages {
		out := openAIMessage{
			Role:       string(msg.Role),
			Content:    msg.Content,
			Name:       msg.Name,
			ToolCallID: msg.ToolCallID,
		}
		for _, call := range msg.ToolCalls {
			out.ToolCalls = append(out.ToolCalls, *call)
		}
		converted = append(converted, out)
	}
	return converted
}

func toOpenAITools(availableTools []tools.Tool) []openAITool {
	converted := make([]openAITool, 0, len(availableTools))
	for _, t := range availableTools {
		converted = append(converted, openAITool{Type: t.Type, Function: t.Function})
	}
	return converted
}

// doRequest performs the HTTP call with retries and exponential backoff.
// Client errors (4xx) are terminal and never retried.
func (c *OpenAIClient) doRequest(ctx context.Context, payload []byte) ([]byte, error) {
	var lastErr error
	delay := initialRetryDelay

	for attempt := 1; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to create openai request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("openai request failed (attempt %d/%d): %w", attempt, maxRetries, err)
			if ctx.Err() != nil {
				return nil, lastErr
			}
			time.Sleep(delay)
			delay *= 2
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("failed to read openai response body: %w", readErr)
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return body, nil
		}
		lastErr = fmt.Errorf("openai API error (attempt %d/%d): status %d, body: %s", attempt, maxRetries, resp.StatusCode, string(body))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, lastErr
		}
		time.Sleep(delay)
		delay *= 2
	}
	return nil, lastErr
}

func parseOpenAIResponse(body []byte) (*GenerationResult, error) {
	var resp openAIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal openai response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no choices returned from openai")
	}

	message := resp.Choices[0].Message
	result := &GenerationResult{
		Content: message.Content,
		Usage:   resp.Usage,
	}
	for i := range message.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, &message.ToolCalls[i])
	}
	return result, nil
}
