package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rajeshk/taskhub/internal/domain/task"
	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Redis backs the task-list cache with a shared store so invalidation
// works across replicas.
type Redis struct {
	redisdb *redis.Client
	ttl     time.Duration
}

func NewRedis(cfg RedisConfig, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	redisdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return &Redis{redisdb: redisdb, ttl: ttl}
}

// Ping checks redis connectivity at startup.
func (c *Redis) Ping(ctx context.Context) error {
	return c.redisdb.Ping(ctx).Err()
}

func (c *Redis) Close() error {
	return c.redisdb.Close()
}

func key(ownerID string) string {
	return "taskhub:tasks:" + ownerID
}

func (c *Redis) Get(ctx context.Context, ownerID string) ([]task.Task, bool) {
	raw, err := c.redisdb.Get(ctx, key(ownerID)).Bytes()

	if err != nil {
		// redis.Nil and transport errors are both a miss
		return nil, false
	}

	var tasks []task.Task

	if err := json.Unmarshal(raw, &tasks); err != nil {
		return nil, false
	}

	return tasks, true
}

func (c *Redis) Set(ctx context.Context, ownerID string, tasks []task.Task) {
	raw, err := json.Marshal(tasks)

	if err != nil {
		return
	}

	_ = c.redisdb.Set(ctx, key(ownerID), raw, c.ttl).Err()
}

func (c *Redis) Invalidate(ctx context.Context, ownerID string) {
	_ = c.redisdb.Del(ctx, key(ownerID)).Err()
}
