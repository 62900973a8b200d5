package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisStore хранит активные позиции в хэше <prefix>:positions (symbol -> "1").
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, key: prefix + ":positions"}
}

func (s *RedisStore) SetActive(ctx context.Context, symbol string, active bool) error {
	var err error
	if active {
		err = s.client.HSet(ctx, s.key, symbol, "1").Err()
	} else {
		err = s.client.HDel(ctx, s.key, symbol).Err()
	}
	if err != nil {
		return fmt.Errorf("RedisStore.SetActive %s: %w", symbol, err)
	}
	return nil
}

func (s *RedisStore) IsActive(ctx context.Context, symbol string) (bool, error) {
	ok, err := s.client.HExists(ctx, s.key, symbol).Result()
	if err != nil {
		return false, fmt.Errorf("RedisStore.IsActive %s: %w", symbol, err)
	}
	return ok, nil
}

// Active: все символы с открытой позицией.
func (s *RedisStore) Active(ctx context.Context) ([]string, error) {
	syms, err := s.client.HKeys(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("RedisStore.Active: %w", err)
	}
	return syms, nil
}

// MemoryStore: флаги в памяти процесса, когда Redis не настроен.
type MemoryStore struct {
	mu     sync.RWMutex
	active map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{active: make(map[string]struct{})}
}

func (s *MemoryStore) SetActive(_ context.Context, symbol string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if active {
		s.active[symbol] = struct{}{}
	} else {
		delete(s.active, symbol)
	}
	return nil
}

func (s *MemoryStore) Active(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.active))
	for sym := range s.active {
		out = append(out, sym)
	}
	return out, nil
}

func (s *MemoryStore) IsActive(_ context.Context, symbol string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.active[symbol]
	return ok, nil
}
