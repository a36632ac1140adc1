package recordstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/venom-hub/internal/config"
)

// Backend persists raw serialized values by key. Set fully replaces the
// previous value for the key.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// NewBackend opens the backend selected by the local store configuration
func NewBackend(local *config.LocalConfig, redisCfg *config.RedisConfig, logger *slog.Logger) (Backend, error) {
	switch local.Driver {
	case "memory":
		return NewMemoryBackend(), nil
	case "file":
		return NewFileBackend(local.Path)
	case "sqlite":
		return NewSQLiteBackend(local.Path)
	case "redis":
		return NewRedisBackend(redisCfg, logger)
	default:
		return nil, fmt.Errorf("unknown local store driver %q", local.Driver)
	}
}

// MemoryBackend keeps values in process memory
type MemoryBackend struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: make(map[string][]byte)}
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MemoryBackend) Close() error { return nil }
