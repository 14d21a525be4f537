package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/model"
)

// MaxHistoryPerSession bounds what a session keeps; older turns are trimmed.
const MaxHistoryPerSession = 200

// HistoryCache keeps tutor turns in a redis list per session.
type HistoryCache struct {
	client     *redisv9.Client
	historyTTL time.Duration
}

func NewHistoryCache(client *redisv9.Client, historyTTL time.Duration) *HistoryCache {
	if historyTTL <= 0 {
		historyTTL = time.Hour
	}
	return &HistoryCache{client: client, historyTTL: historyTTL}
}

func (c *HistoryCache) Append(ctx context.Context, sessionID string, messages ...model.TutorMessage) error {
	if len(messages) == 0 {
		return nil
	}
	values := make([]any, 0, len(messages))
	for _, m := range messages {
		payload, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal history message failed: %w", err)
		}
		values = append(values, payload)
	}

	key := historyKey(sessionID)
	_, err := c.client.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		pipe.LTrim(ctx, key, -MaxHistoryPerSession, -1)
		pipe.Expire(ctx, key, c.historyTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis append history failed: %w", err)
	}
	return nil
}

// Recent returns up to limit most recent turns, oldest first. limit <= 0 returns all.
func (c *HistoryCache) Recent(ctx context.Context, sessionID string, limit int) ([]model.TutorMessage, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	raws, err := c.client.LRange(ctx, historyKey(sessionID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get history failed: %w", err)
	}

	messages := make([]model.TutorMessage, 0, len(raws))
	for _, raw := range raws {
		var m model.TutorMessage
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("unmarshal cached history failed: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, nil
}

func (c *HistoryCache) Clear(ctx context.Context, sessionID string) error {
	if err := c.client.Del(ctx, historyKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete history failed: %w", err)
	}
	return nil
}

func historyKey(sessionID string) string {
	return fmt.Sprintf("tutor:history:%s", sessionID)
}
