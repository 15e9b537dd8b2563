package llm

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mimilabs/mimi/internal/api"
)

// pinTTL matches how long an idle conversation is worth keeping a model
// choice for.
const pinTTL = time.Hour

// Selector picks the model that serves a conversation.
//
// A conversation pins its model in Redis so consecutive turns sound like the
// same assistant. Selection is an ordered failover down the configured model
// list, gated by profiler health: no weighted scoring, because a personal
// assistant pins one conversational model and only moves when it has to.
type Selector struct {
	profiler *Profiler
	rdb      *redis.Client
	models   []string
}

func NewSelector(profiler *Profiler, rdb *redis.Client, models []string) *Selector {
	return &Selector{profiler: profiler, rdb: rdb, models: models}
}

func (s *Selector) pinKey(conversationID string) string {
	return fmt.Sprintf("modelpin:%s", conversationID)
}

// SelectForConversation returns the model to use for this turn. When the
// pinned model has gone offline the conversation fails over to the next
// healthy model and the returned FailoverInfo explains the switch.
func (s *Selector) SelectForConversation(ctx context.Context, conversationID string) (string, *api.FailoverInfo, error) {
	var failover *api.FailoverInfo

	pinned, err := s.rdb.Get(ctx, s.pinKey(conversationID)).Result()
	if err == nil && pinned != "" {
		profile, profErr := s.profiler.GetProfile(ctx, pinned)
		if profErr == nil && profile.Healthy() {
			s.refreshPin(ctx, conversationID)
			return pinned, nil, nil
		}
		log.Printf("🚨 Pinned model %q is unavailable for conversation %s. Failing over...", pinned, conversationID)
		failover = &api.FailoverInfo{
			OriginalModel: pinned,
			Reason:        fmt.Sprintf("Model %q was offline.", pinned),
		}
	} else if err != nil && err != redis.Nil {
		log.Printf("Redis GET error for model pin: %v", err)
	}

	selected, err := s.firstHealthy(ctx)
	if err != nil {
		return "", nil, err
	}
	if failover != nil {
		failover.NewModel = selected
	}

	s.pin(ctx, conversationID, selected)
	return selected, failover, nil
}

// firstHealthy walks the configured model list in priority order and returns
// the first model whose profile allows traffic. If every profile looks bad,
// the primary model is returned anyway: a guess at a degraded model beats a
// guaranteed refusal.
func (s *Selector) firstHealthy(ctx context.Context) (string, error) {
	if len(s.models) == 0 {
		return "", fmt.Errorf("no models configured")
	}
	for _, modelID := range s.models {
		profile, err := s.profiler.GetProfile(ctx, modelID)
		if err != nil {
			log.Printf("Could not get profile for model %s, skipping: %v", modelID, err)
			continue
		}
		if profile.Healthy() {
			return modelID, nil
		}
		log.Printf("- Skipping model %s (status: %s)", modelID, profile.Status)
	}
	log.Printf("⚠️ No healthy model found; falling back to primary %s", s.models[0])
	return s.models[0], nil
}

func (s *Selector) pin(ctx context.Context, conversationID, modelID string) {
	if err := s.rdb.Set(ctx, s.pinKey(conversationID), modelID, pinTTL).Err(); err != nil {
		log.Printf("WARNING: Failed to pin model for conversation %s: %v", conversationID, err)
		return
	}
	log.Printf("📌 Pinned model %s to conversation %s", modelID, conversationID)
}

func (s *Selector) refreshPin(ctx context.Context, conversationID string) {
	if err := s.rdb.Expire(ctx, s.pinKey(conversationID), pinTTL).Err(); err != nil {
		log.Printf("WARNING: Failed to refresh model pin for conversation %s: %v", conversationID, err)
	}
}
