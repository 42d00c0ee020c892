// Package memory provides an in-process key/value store for ephemeral carts.
package memory

import (
	"slices"
	"sync"

	"github.com/xenking/unseelie-shop/internal/domain/cart"
)

// Compile-time check ensuring KV satisfies cart.Storage.
var _ cart.Storage = (*KV)(nil)

// KV is a concurrency-safe map of copied values.
type KV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewKV returns an empty store.
func NewKV() *KV {
	return &KV{data: make(map[string][]byte)}
}

func (s *KV) Get(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return slices.Clone(v), ok, nil
}

func (s *KV) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = slices.Clone(value)
	return nil
}
