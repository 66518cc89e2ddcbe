package cache

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrMiss = errors.New("cache miss")

// Cache stores short-lived string values such as assistant replies.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

type entry struct {
	value string
	exp   time.Time
}

// Memory is an in-process TTL cache used when no redis is configured.
type Memory struct {
	mu    sync.Mutex
	store map[string]entry
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{store: map[string]entry{}, now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.store[key]; ok {
		if m.now().Before(e.exp) {
			return e.value, nil
		}
		delete(m.store, key)
	}
	return "", ErrMiss
}

func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[key] = entry{value: value, exp: m.now().Add(ttl)}
	return nil
}
