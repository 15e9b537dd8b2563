package llm

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mimilabs/mimi/internal/api"
)

// ModelProfile tracks health and performance metrics for one model. Profiles
// live in Redis so every instance of the assistant shares the same view of
// which models are usable.
type ModelProfile struct {
	ModelID           string    `json:"model_id"`
	AvgLatencyMS      int64     `json:"avg_latency_ms"`
	Status            string    `json:"status"` // online, degraded, offline
	ErrorRate         float64   `json:"error_rate"`
	TotalSuccesses    int64     `json:"total_successes"`
	TotalFailures     int64     `json:"total_failures"`
	TotalInputTokens  int64     `json:"total_input_tokens"`
	TotalOutputTokens int64     `json:"total_output_tokens"`
	LastHealthCheck   time.Time `json:"last_health_check"`
}

// Healthy reports whether the model should receive traffic.
func (p *ModelProfile) Healthy() bool {
	return p.Status == "online"
}

// Profiler reads and updates model profiles in Redis.
type Profiler struct {
	rdb *redis.Client
}

func NewProfiler(rdb *redis.Client) *Profiler {
	return &Profiler{rdb: rdb}
}

func (p *Profiler) profileKey(modelID string) string {
	return fmt.Sprintf("profile:%s", modelID)
}

// GetProfile retrieves a model's profile, creating a default one on first
// sight so a fresh deployment starts with every configured model eligible.
func (p *Profiler) GetProfile(ctx context.Context, modelID string) (*ModelProfile, error) {
	key := p.profileKey(modelID)
	data, err := p.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return p.createDefaultProfile(ctx, modelID)
	}

	profile := &ModelProfile{ModelID: modelID}
	profile.AvgLatencyMS, _ = strconv.ParseInt(data["avg_latency_ms"], 10, 64)
	profile.Status = data["status"]
	profile.ErrorRate, _ = strconv.ParseFloat(data["error_rate"], 64)
	profile.TotalSuccesses, _ = strconv.ParseInt(data["total_successes"], 10, 64)
	profile.TotalFailures, _ = strconv.ParseInt(data["total_failures"], 10, 64)
	profile.TotalInputTokens, _ = strconv.ParseInt(data["total_input_tokens"], 10, 64)
	profile.TotalOutputTokens, _ = strconv.ParseInt(data["total_output_tokens"], 10, 64)
	profile.LastHealthCheck, _ = time.Parse(time.RFC3339Nano, data["last_health_check"])
	return profile, nil
}

func (p *Profiler) createDefaultProfile(ctx context.Context, modelID string) (*ModelProfile, error) {
	profile := &ModelProfile{
		ModelID:         modelID,
		AvgLatencyMS:    2000, // Reasonable starting point before real data arrives.
		Status:          "online",
		LastHealthCheck: time.Now(),
	}

	key := p.profileKey(modelID)
	pipe := p.rdb.Pipeline()
	pipe.HSet(ctx, key, "model_id", profile.ModelID)
	pipe.HSet(ctx, key, "avg_latency_ms", profile.AvgLatencyMS)
	pipe.HSet(ctx, key, "status", profile.Status)
	pipe.HSet(ctx, key, "total_successes", 0)
	pipe.HSet(ctx, key, "total_failures", 0)
	pipe.HSet(ctx, key, "error_rate", 0.0)
	pipe.HSet(ctx, key, "last_health_check", profile.LastHealthCheck.Format(time.RFC3339Nano))
	_, err := pipe.Exec(ctx)

	log.Printf("Created default profile for model %s", modelID)
	return profile, err
}

// UpdateOnSuccess records a successful turn: EWMA latency, counters, token
// totals, and an online status.
func (p *Profiler) UpdateOnSuccess(ctx context.Context, modelID string, latency time.Duration, usage api.Usage) {
	key := p.profileKey(modelID)
	const alpha = 0.1

	err := p.rdb.Watch(ctx, func(tx *redis.Tx) error {
		currentStr, err := tx.HGet(ctx, key, "avg_latency_ms").Result()
		if err != nil && err != redis.Nil {
			return err
		}
		current, _ := strconv.ParseInt(currentStr, 10, 64)
		updated := int64((alpha * float64(latency.Milliseconds())) + ((1.0 - alpha) * float64(current)))
		_, err = tx.Pipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, "avg_latency_ms", updated)
			return nil
		})
		return err
	}, key)
	if err != nil {
		log.Printf("Error updating latency for %s: %v", modelID, err)
	}

	pipe := p.rdb.Pipeline()
	successes := pipe.HIncrBy(ctx, key, "total_successes", 1)
	failures := pipe.HGet(ctx, key, "total_failures")
	pipe.HIncrBy(ctx, key, "total_input_tokens", int64(usage.PromptTokens))
	pipe.HIncrBy(ctx, key, "total_output_tokens", int64(usage.CompletionTokens))
	pipe.HSet(ctx, key, "status", "online")
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("Error in success update pipeline for %s: %v", modelID, err)
		return
	}

	totalFailures, _ := strconv.ParseInt(failures.Val(), 10, 64)
	p.recalculateErrorRate(ctx, key, successes.Val(), totalFailures)
}

// UpdateOnFailure records a failed turn and marks the model degraded so the
// selector prefers an alternative until a health check clears it.
func (p *Profiler) UpdateOnFailure(ctx context.Context, modelID string) {
	key := p.profileKey(modelID)
	pipe := p.rdb.Pipeline()
	failures := pipe.HIncrBy(ctx, key, "total_failures", 1)
	successes := pipe.HGet(ctx, key, "total_successes")
	pipe.HSet(ctx, key, "status", "degraded")
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("Error in failure update pipeline for %s: %v", modelID, err)
		return
	}

	totalSuccesses, _ := strconv.ParseInt(successes.Val(), 10, 64)
	p.recalculateErrorRate(ctx, key, totalSuccesses, failures.Val())
}

// UpdateOnHealthCheck sets the model's status from a proactive probe. The
// profile is materialized first so probes never write partial hashes.
func (p *Profiler) UpdateOnHealthCheck(ctx context.Context, modelID string, isHealthy bool) {
	if _, err := p.GetProfile(ctx, modelID); err != nil {
		log.Printf("Error ensuring profile exists during health check for %s: %v", modelID, err)
	}

	status := "offline"
	if isHealthy {
		status = "online"
	}

	key := p.profileKey(modelID)
	pipe := p.rdb.Pipeline()
	pipe.HSet(ctx, key, "status", status)
	pipe.HSet(ctx, key, "last_health_check", time.Now().Format(time.RFC3339Nano))
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("Error updating health check for %s: %v", modelID, err)
	}
}

func (p *Profiler) recalculateErrorRate(ctx context.Context, key string, successes, failures int64) {
	total := successes + failures
	if total == 0 {
		return
	}
	errorRate := float64(failures) / float64(total)
	if err := p.rdb.HSet(ctx, key, "error_rate", errorRate).Err(); err != nil {
		log.Printf("Error updating error rate: %v", err)
	}
}
