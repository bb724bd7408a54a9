package cache

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
)

// Memory is an in-process cache backed by ristretto.
type Memory struct {
	client *ristretto.Cache
	// ristretto cannot enumerate keys, so they are tracked for DeletePrefix
	keys sync.Map
}

// NewMemory creates a ristretto cache limited to maxCost bytes (64 MiB when zero).
func NewMemory(maxCost int64) (*Memory, error) {
	if maxCost <= 0 {
		maxCost = 64 << 20
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Memory{client: c}, nil
}

// Set stores value encoded as JSON.
func (m *Memory) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if m.client.SetWithTTL(key, data, int64(len(data)), ttl) {
		// Wait for the value to pass through the buffers
		m.client.Wait()
		m.keys.Store(key, struct{}{})
	}
	return nil
}

// Get decodes the stored value into dest.
func (m *Memory) Get(_ context.Context, key string, dest interface{}) error {
	value, found := m.client.Get(key)
	if !found {
		m.keys.Delete(key)
		return ErrCacheMiss
	}
	data, ok := value.([]byte)
	if !ok {
		return ErrCacheMiss
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return ErrCacheMiss
	}
	return nil
}

// Delete removes key.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.client.Del(key)
	m.keys.Delete(key)
	return nil
}

// DeletePrefix removes every tracked key starting with prefix.
func (m *Memory) DeletePrefix(_ context.Context, prefix string) error {
	m.keys.Range(func(k, _ interface{}) bool {
		key := k.(string)
		if strings.HasPrefix(key, prefix) {
			m.client.Del(key)
			m.keys.Delete(key)
		}
		return true
	})
	return nil
}

// Close stops ristretto's goroutines.
func (m *Memory) Close() error {
	m.client.Close()
	return nil
}
