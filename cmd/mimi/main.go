// In file: cmd/mimi/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mimilabs/mimi/internal/agent"
	"github.com/mimilabs/mimi/internal/cache"
	"github.com/mimilabs/mimi/internal/calendar"
	"github.com/mimilabs/mimi/internal/llm"
	"github.com/mimilabs/mimi/internal/session"
	"github.com/mimilabs/mimi/internal/tools"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// main is the entry point for the application.
// Its primary role is the "Composition Root": it loads configuration,
// initializes all services, injects dependencies, and starts the server.
func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	buildInfo := GetBuildInfo()
	log.Printf("🚀 Starting mimi assistant | Version: %s | Commit: %s", buildInfo.Version, buildInfo.GitCommit)

	// 1. LOAD CONFIGURATION
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("❌ FATAL: Configuration Error: %v", err)
	}
	log.Println("✅ Configuration loaded.")

	// 2. INITIALIZE SERVICES
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("❌ FATAL: Could not connect to Redis: %v", err)
	}

	ctx := context.Background()
	llmClients, err := initializeLLMClients(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ FATAL: %v", err)
	}

	// The selector and health checker must only ever see models a client
	// exists for; a model whose API key is missing can never serve a turn.
	servableModels := modelsWithClients(cfg.EnabledModels, llmClients)

	profiler := llm.NewProfiler(rdb)
	selector := llm.NewSelector(profiler, rdb, servableModels)
	store := session.NewRedisStore(rdb, cfg.Session.MaxHistory, cfg.Session.TTL)

	toolManager, err := initializeToolManager(ctx, cfg, rdb)
	if err != nil {
		log.Fatalf("❌ FATAL: %v", err)
	}

	assistant := agent.New(llmClients, selector, profiler, toolManager, store, agent.Config{
		Persona:     cfg.Assistant.Persona,
		Nickname:    cfg.Assistant.Nickname,
		MaxTokens:   cfg.Assistant.MaxTokens,
		Temperature: cfg.Assistant.Temperature,
		TopP:        cfg.Assistant.TopP,
	})

	chatHandler := NewChatHandler(assistant, store)
	log.Println("✅ All services initialized.")

	// 3. START BACKGROUND PROCESSES
	go startHealthChecker(servableModels, llmClients, profiler)

	// 4. SETUP AND RUN THE WEB SERVER
	gin.SetMode(os.Getenv("GIN_MODE"))
	engine := gin.Default()
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": buildInfo.Version})
	})
	v1 := engine.Group("/api/v1")
	{
		v1.POST("/chat", chatHandler.HandleChat)
		v1.GET("/conversations/:id", chatHandler.HandleGetConversation)
		v1.DELETE("/conversations/:id", chatHandler.HandleResetConversation)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{Addr: fmt.Sprintf(":%s", port), Handler: engine}
	runServerWithGracefulShutdown(srv)
}

// initializeLLMClients creates instances of the LLM clients based on config.
func initializeLLMClients(ctx context.Context, cfg *AppConfig) (map[string]llm.LLMClient, error) {
	clients := make(map[string]llm.LLMClient)
	for modelID, apiKey := range cfg.APIKeys {
		var client llm.LLMClient
		var err error
		switch {
		case strings.HasPrefix(modelID, "gemini"):
			client, err = llm.NewGeminiClient(ctx, apiKey, modelID)
		case strings.HasPrefix(modelID, "gpt"):
			client, err = llm.NewOpenAIClient(apiKey, cfg.OpenAIBaseURL, modelID)
		default:
			log.Printf("WARNING: Unknown model provider for %s, skipping.", modelID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create client for %s: %w", modelID, err)
		}
		clients[modelID] = client
	}
	if len(clients) == 0 {
		return nil, fmt.Errorf("no LLM clients could be initialized")
	}
	log.Printf("✅ %d LLM clients initialized.", len(clients))
	return clients, nil
}

// modelsWithClients filters the configured model list down to the models a
// client was actually built for, preserving the configured failover order.
func modelsWithClients(models []string, clients map[string]llm.LLMClient) []string {
	servable := make([]string, 0, len(models))
	for _, modelID := range models {
		if _, ok := clients[modelID]; ok {
			servable = append(servable, modelID)
		}
	}
	return servable
}

// initializeToolManager creates and registers all available tools.
func initializeToolManager(ctx context.Context, cfg *AppConfig, rdb *redis.Client) (*tools.ToolManager, error) {
	manager := tools.NewToolManager()

	manager.Register(tools.NewSearchTool(cache.NewSearchCache(rdb)))

	if cfg.GoogleCredentialsFile != "" {
		credentialsJSON, err := os.ReadFile(cfg.GoogleCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read Google credentials file: %w", err)
		}
		calendarClient, err := calendar.NewClient(ctx, credentialsJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to create calendar client: %w", err)
		}
		manager.Register(tools.NewCalendarListTool(calendarClient))
		manager.Register(tools.NewCalendarCreateTool(calendarClient))
		manager.Register(tools.NewCalendarDeleteTool(calendarClient))
	} else {
		log.Println("WARNING: GOOGLE_CREDENTIALS_FILE not set; calendar tools disabled.")
	}

	log.Printf("✅ Tool Manager initialized with %d tools.", manager.ToolCount())
	return manager, nil
}

// startHealthChecker runs a background goroutine to proactively check model health.
func startHealthChecker(models []string, clients map[string]llm.LLMClient, profiler *llm.Profiler) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	log.Println("🩺 Health checker started.")

	runChecks := func() {
		log.Println("🩺 Running proactive health checks...")
		for _, modelID := range models {
			client, ok := clients[modelID]
			if !ok {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			config := &llm.GenerationConfig{Model: modelID, MaxTokens: 5}
			healthCheckPrompt := []llm.Message{{Role: llm.RoleUser, Content: "Reply with the single word: ok"}}

			_, err := client.Generate(ctx, healthCheckPrompt, config, nil)
			cancel()

			isHealthy := err == nil
			profiler.UpdateOnHealthCheck(context.Background(), modelID, isHealthy)
			log.Printf("Health check for %s: Healthy = %v", modelID, isHealthy)
		}
	}

	go runChecks()
	for range ticker.C {
		runChecks()
	}
}

// runServerWithGracefulShutdown handles the server lifecycle.
func runServerWithGracefulShutdown(srv *http.Server) {
	go func() {
		log.Printf("👂 Assistant is listening on http://localhost%s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Listen error: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("❌ Server shutdown failed:", err)
	}

	log.Println("👋 Server exited gracefully.")
}
