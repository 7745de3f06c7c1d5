// Package redisq implements the task queue on a Redis list.
// Submitters LPUSH task ids; workers BRPOP them, giving approximate FIFO
// with at-least-once hand-off (a crash between pop and completion loses the
// delivery, so the store's claim write is the real mutual-exclusion point).
package redisq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKey is the Redis list all task ids flow through.
const DefaultKey = "trendscout:tasks"

// Queue is a Redis-list task queue. Implements domain.TaskQueue.
type Queue struct {
	rdb *redis.Client
	key string
}

// New connects to Redis at addr and uses the given list key.
func New(addr string, db int, key string) *Queue {
	if key == "" {
		key = DefaultKey
	}
	return &Queue{
		rdb: redis.NewClient(&redis.Options{Addr: addr, DB: db}),
		key: key,
	}
}

// Push enqueues a task id.
func (q *Queue) Push(ctx context.Context, id string) error {
	if err := q.rdb.LPush(ctx, q.key, id).Err(); err != nil {
		return fmt.Errorf("queue push: %w", err)
	}
	return nil
}

// Pop blocks up to timeout for the next task id.
// Returns "" on an idle timeout, which is not an error.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (string, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil // Idle poll
	}
	if err != nil {
		return "", fmt.Errorf("queue pop: %w", err)
	}
	// BRPOP returns [key, value].
	if len(res) != 2 {
		return "", fmt.Errorf("queue pop: unexpected reply %v", res)
	}
	return res[1], nil
}

// Depth returns the number of ids currently queued.
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.key).Result()
}

// Ping checks broker connectivity.
func (q *Queue) Ping(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}

// Close releases the Redis connection.
func (q *Queue) Close() error {
	return q.rdb.Close()
}
