package cache

import (
	"context"
	"time"

	goCache "github.com/patrickmn/go-cache"
)

// DefaultCleanupInterval is how often expired items are removed from the memory store.
const DefaultCleanupInterval = 10 * time.Minute

// MemoryStore keeps encoded values in process, so every Get returns a fresh copy.
type MemoryStore struct {
	cache *goCache.Cache
}

func NewMemoryStore(defaultTTL time.Duration) *MemoryStore {
	return &MemoryStore{cache: goCache.New(defaultTTL, DefaultCleanupInterval)}
}

func (s *MemoryStore) Get(_ context.Context, key string, dest any) (bool, error) {
	value, ok := s.cache.Get(key)
	if !ok {
		return false, nil
	}
	data, ok := value.([]byte)
	if !ok {
		s.cache.Delete(key)
		return false, nil
	}
	if err := decode(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = goCache.DefaultExpiration
	}
	s.cache.Set(key, data, ttl)
	return nil
}

func (s *MemoryStore) Name() string { return "memory" }

// Flush drops every entry.
func (s *MemoryStore) Flush() {
	s.cache.Flush()
}
