package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rajeshk/taskhub/internal/domain/task"
)

// TaskLists is a best-effort cache for per-owner task lists. A miss (or
// any backend error) simply falls through to the store; mutations
// invalidate the owner's entry.
type TaskLists interface {
	Get(ctx context.Context, ownerID string) ([]task.Task, bool)
	Set(ctx context.Context, ownerID string, tasks []task.Task)
	Invalidate(ctx context.Context, ownerID string)
}

type entry struct {
	tasks []task.Task
	exp   time.Time
}

// Memory is the in-process fallback used when Redis is not configured.
type Memory struct {
	mu  sync.RWMutex
	ttl time.Duration
	m   map[string]entry
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	return &Memory{
		ttl: ttl,
		m:   make(map[string]entry),
	}
}

func (c *Memory) Get(_ context.Context, ownerID string) ([]task.Task, bool) {
	now := time.Now()
	c.mu.RLock()
	e, ok := c.m[ownerID]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if now.After(e.exp) {
		c.mu.Lock()
		delete(c.m, ownerID)
		c.mu.Unlock()
		return nil, false
	}

	return e.tasks, true
}

func (c *Memory) Set(_ context.Context, ownerID string, tasks []task.Task) {
	c.mu.Lock()
	c.m[ownerID] = entry{tasks: tasks, exp: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *Memory) Invalidate(_ context.Context, ownerID string) {
	c.mu.Lock()
	delete(c.m, ownerID)
	c.mu.Unlock()
}
