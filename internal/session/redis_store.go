package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mimilabs/mimi/internal/llm"
)

// RedisStore keeps each transcript as a Redis list of JSON-encoded messages
// under conv:<id>. RPUSH + LTRIM keeps the newest MaxHistory entries and
// EXPIRE clears conversations nobody comes back to.
type RedisStore struct {
	rdb        *redis.Client
	maxHistory int64
	ttl        time.Duration
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(rdb *redis.Client, maxHistory int, ttl time.Duration) *RedisStore {
	return &RedisStore{
		rdb:        rdb,
		maxHistory: int64(maxHistory),
		ttl:        ttl,
	}
}

func (s *RedisStore) conversationKey(conversationID string) string {
	return fmt.Sprintf("conv:%s", conversationID)
}

func (s *RedisStore) History(ctx context.Context, conversationID string) ([]llm.Message, error) {
	raw, err := s.rdb.LRange(ctx, s.conversationKey(conversationID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation %s: %w", conversationID, err)
	}

	messages := make([]llm.Message, 0, len(raw))
	for _, entry := range raw {
		var msg llm.Message
		if err := json.Unmarshal([]byte(entry), &msg); err != nil {
			// A corrupt entry should not take the whole conversation down.
			log.Printf("WARNING: Skipping corrupt message in conversation %s: %v", conversationID, err)
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (s *RedisStore) Append(ctx context.Context, conversationID string, messages ...llm.Message) error {
	if len(messages) == 0 {
		return nil
	}

	encoded := make([]interface{}, 0, len(messages))
	for _, msg := range messages {
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to encode message: %w", err)
		}
		encoded = append(encoded, data)
	}

	key := s.conversationKey(conversationID)
	pipe := s.rdb.Pipeline()
	pipe.RPush(ctx, key, encoded...)
	if s.maxHistory > 0 {
		pipe.LTrim(ctx, key, -s.maxHistory, -1)
	}
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append to conversation %s: %w", conversationID, err)
	}
	return nil
}

func (s *RedisStore) Reset(ctx context.Context, conversationID string) error {
	if err := s.rdb.Del(ctx, s.conversationKey(conversationID)).Err(); err != nil {
		return fmt.Errorf("failed to reset conversation %s: %w", conversationID, err)
	}
	return nil
}
