package store

import (
	"context"
	"sync"
)

type MemBackend struct {
	mu sync.RWMutex
	m  map[string][]byte
}

func NewMemBackend() *MemBackend {
	return &MemBackend{m: map[string][]byte{}}
}

func (b *MemBackend) Ping(ctx context.Context) error { return nil }

func (b *MemBackend) Load(ctx context.Context, key string) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	v, ok := b.m[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (b *MemBackend) Apply(ctx context.Context, writes []Write) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, w := range writes {
		if w.Value == nil {
			delete(b.m, w.Key)
			continue
		}
		b.m[w.Key] = append([]byte(nil), w.Value...)
	}
	return nil
}
