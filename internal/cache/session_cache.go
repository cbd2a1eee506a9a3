package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionSnapshot is the periodically saved view of an in-progress attempt,
// used to restore answers when a student reopens the task.
type SessionSnapshot struct {
	AttemptID        string                 `json:"attempt_id"`
	Answers          map[string]interface{} `json:"answers"`
	RemainingSeconds *int                   `json:"remaining_seconds,omitempty"`
	SavedAt          time.Time              `json:"saved_at"`
}

// SessionCache stores in-progress session snapshots keyed by attempt id.
type SessionCache interface {
	Save(ctx context.Context, snapshot *SessionSnapshot, ttl time.Duration) error
	Load(ctx context.Context, attemptID string) (*SessionSnapshot, error)
	Delete(ctx context.Context, attemptID string) error
}

type redisSessionCache struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisSessionCache(client *redis.Client, logger *slog.Logger) SessionCache {
	return &redisSessionCache{
		client: client,
		logger: logger,
	}
}

func sessionKey(attemptID string) string {
	return "exam:session:" + attemptID
}

func (c *redisSessionCache) Save(ctx context.Context, snapshot *SessionSnapshot, ttl time.Duration) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal session snapshot: %w", err)
	}

	if err := c.client.Set(ctx, sessionKey(snapshot.AttemptID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session snapshot: %w", err)
	}

	c.logger.Debug("Saved session snapshot",
		"attempt_id", snapshot.AttemptID,
		"answers_count", len(snapshot.Answers))
	return nil
}

func (c *redisSessionCache) Load(ctx context.Context, attemptID string) (*SessionSnapshot, error) {
	payload, err := c.client.Get(ctx, sessionKey(attemptID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session snapshot: %w", err)
	}

	var snapshot SessionSnapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		// A corrupt snapshot is treated as absent; the student restarts with
		// an empty answer set rather than a hard failure.
		c.logger.Warn("Discarding corrupt session snapshot", "attempt_id", attemptID, "error", err)
		return nil, nil
	}

	return &snapshot, nil
}

func (c *redisSessionCache) Delete(ctx context.Context, attemptID string) error {
	if err := c.client.Del(ctx, sessionKey(attemptID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session snapshot: %w", err)
	}
	return nil
}
