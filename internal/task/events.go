package task

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const taskEventChannel = "scraper:task-events"

// RedisPublisher announces task completion on a Redis pub/sub channel so the
// API service can push updates without polling.
type RedisPublisher struct {
	rdb *redis.Client
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) TaskCompleted(ctx context.Context, taskID string, status Status) error {
	payload, err := json.Marshal(map[string]string{
		"event":  "TASK_COMPLETED",
		"taskId": taskID,
		"status": string(status),
	})
	if err != nil {
		return fmt.Errorf("encode task event: %w", err)
	}
	if err := p.rdb.Publish(ctx, taskEventChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish task event: %w", err)
	}
	return nil
}
