package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Store keeps JSON-encoded values under string keys for a bounded time.
type Store interface {
	// Get decodes the value stored at key into dest and reports whether it was present.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Name() string
}

type noopStore struct{}

// NewNoopStore returns a Store that never holds anything.
func NewNoopStore() Store { return noopStore{} }

func (noopStore) Get(context.Context, string, any) (bool, error)        { return false, nil }
func (noopStore) Set(context.Context, string, any, time.Duration) error { return nil }
func (noopStore) Name() string                                          { return "none" }

func encode(value any) ([]byte, error) {
	return json.Marshal(value)
}

func decode(data []byte, dest any) error {
	return json.Unmarshal(data, dest)
}
