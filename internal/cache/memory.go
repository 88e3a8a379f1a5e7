package cache

import (
	"context"
	"encoding/json"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore is an in-process Store used in development and tests. Entries
// go through the same JSON codec as the redis store so decode behavior is
// identical across backends.
type MemoryStore struct {
	cache *gocache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache: gocache.New(gocache.NoExpiration, 10*time.Minute),
	}
}

func (s *MemoryStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}

	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}

	s.cache.Set(key, payload, ttl)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, key string, dest any) (bool, error) {
	value, found := s.cache.Get(key)
	if !found {
		return false, nil
	}

	payload, ok := value.([]byte)
	if !ok {
		return false, nil
	}

	if err := json.Unmarshal(payload, dest); err != nil {
		return false, nil
	}

	return true, nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}
