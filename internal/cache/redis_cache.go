package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"medipos/internal/domain"
)

// Redis caches daily summaries as JSON under "report:daily:<day>".
type Redis struct {
	client *redis.Client
}

func NewRedis(addr, password string, db int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("cache: redis ping: %w", err)
	}
	return &Redis{client: client}, nil
}

func dailyKey(day string) string {
	return "report:daily:" + day
}

func (c *Redis) GetDailySummary(ctx context.Context, day string) (*domain.DailySummary, bool, error) {
	data, err := c.client.Get(ctx, dailyKey(day)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache: get daily summary: %w", err)
	}
	var summary domain.DailySummary
	if err := json.Unmarshal(data, &summary); err != nil {
		// A stale or corrupt entry is just a miss; the caller recomputes.
		return nil, false, nil
	}
	return &summary, true, nil
}

func (c *Redis) SetDailySummary(ctx context.Context, day string, summary *domain.DailySummary, ttl time.Duration) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("cache: encode daily summary: %w", err)
	}
	if err := c.client.Set(ctx, dailyKey(day), data, ttl).Err(); err != nil {
		return fmt.Errorf("cache: set daily summary: %w", err)
	}
	return nil
}

func (c *Redis) DeleteDailySummary(ctx context.Context, day string) error {
	if err := c.client.Del(ctx, dailyKey(day)).Err(); err != nil {
		return fmt.Errorf("cache: delete daily summary: %w", err)
	}
	return nil
}

func (c *Redis) Close() error {
	return c.client.Close()
}
