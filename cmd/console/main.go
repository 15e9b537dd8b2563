// Command console is a small terminal client for the assistant's HTTP API.
// It keeps one conversation going for the whole session and renders tool
// activity alongside the assistant's replies.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mimilabs/mimi/internal/api"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
)

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "base URL of the assistant server")
	flag.Parse()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            color.GreenString("you ➤ "),
		HistoryFile:       defaultHistoryFile(),
		HistorySearchFold: true,
		InterruptPrompt:   "^C",
		EOFPrompt:         "bye",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create readline instance: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	client := &consoleClient{
		serverURL:  strings.TrimRight(*serverURL, "/"),
		httpClient: &http.Client{Timeout: 3 * time.Minute},
	}

	color.Cyan("mimi console. Type /reset to start over, /quit to exit.")

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch line {
		case "/quit", "/exit":
			return
		case "/reset":
			if err := client.reset(); err != nil {
				color.Red("reset failed: %v", err)
			} else {
				color.Yellow("Conversation reset.")
			}
			continue
		}

		resp, err := client.send(line)
		if err != nil {
			color.Red("error: %v", err)
			continue
		}

		for _, event := range resp.ToolEvents {
			if event.Status == "ok" {
				color.New(color.Faint).Printf("  🛠️ %s (%dms)\n", event.Name, event.DurationMS)
			} else {
				color.New(color.Faint).Printf("  🛠️ %s failed: %s\n", event.Name, event.Error)
			}
		}
		if resp.FailoverInfo != nil {
			color.Yellow("  ⚠️ switched from %s to %s: %s", resp.FailoverInfo.OriginalModel, resp.FailoverInfo.NewModel, resp.FailoverInfo.Reason)
		}
		fmt.Printf("%s %s\n", color.MagentaString("mimi ➤"), resp.Reply)
	}
}

type consoleClient struct {
	serverURL      string
	httpClient     *http.Client
	conversationID string
}

// send posts one turn and remembers the conversation ID the server assigns.
func (cc *consoleClient) send(message string) (*api.ChatResponse, error) {
	body, err := json.Marshal(api.ChatRequest{
		ConversationID: cc.conversationID,
		Message:        message,
	})
	if err != nil {
		return nil, err
	}

	httpResp, err := cc.httpClient.Post(cc.serverURL+"/api/v1/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %s: %s", httpResp.Status, strings.TrimSpace(string(respBody)))
	}

	var chatResp api.ChatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	cc.conversationID = chatResp.ConversationID
	return &chatResp, nil
}

// reset wipes the server-side transcript and starts a fresh conversation.
func (cc *consoleClient) reset() error {
	if cc.conversationID == "" {
		return nil
	}
	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/api/v1/conversations/%s", cc.serverURL, cc.conversationID), nil)
	if err != nil {
		return err
	}
	httpResp, err := cc.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s", httpResp.Status)
	}
	cc.conversationID = ""
	return nil
}

func defaultHistoryFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".mimi_history")
}
