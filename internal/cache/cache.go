package cache

import (
	"context"
	"time"
)

// Cache is a small byte-payload cache for catalog and settings reads. The
// billing tier works fine without one, so every caller must tolerate misses
// and errors by falling through to the backend.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}

// Noop is used when no Redis address is configured.
type Noop struct{}

func (Noop) Get(_ context.Context, _ string) ([]byte, bool, error) {
	return nil, false, nil
}

func (Noop) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error {
	return nil
}
