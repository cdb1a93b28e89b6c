package repository

import (
	"context"
	"sync"
	"time"
)

type memoryItem[T any] struct {
	value     T
	expiresAt time.Time
}

func (i memoryItem[T]) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && !now.Before(i.expiresAt)
}

type MemoryRepository[T any] struct {
	mu    sync.RWMutex
	items map[string]memoryItem[T]
	idFn  IDExtractor[T]
	ttl   time.Duration
	now   func() time.Time
}

func NewMemoryRepo[T any](idFn IDExtractor[T], ttl time.Duration) *MemoryRepository[T] {
	return &MemoryRepository[T]{
		items: make(map[string]memoryItem[T]),
		idFn:  idFn,
		ttl:   ttl,
		now:   time.Now,
	}
}

func (r *MemoryRepository[T]) wrap(entity T) memoryItem[T] {
	item := memoryItem[T]{value: entity}
	if r.ttl > 0 {
		item.expiresAt = r.now().Add(r.ttl)
	}
	return item
}

func (r *MemoryRepository[T]) Load(ctx context.Context, id string) (T, error) {
	var zero T
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok || item.expired(r.now()) {
		return zero, notFound("Repository.Memory.Load", id)
	}
	return item.value, nil
}

func (r *MemoryRepository[T]) Save(ctx context.Context, entity T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[r.idFn(entity)] = r.wrap(entity)
	return nil
}

func (r *MemoryRepository[T]) Update(ctx context.Context, entity T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.idFn(entity)
	if item, ok := r.items[id]; !ok || item.expired(r.now()) {
		return notFound("Repository.Memory.Update", id)
	}
	r.items[id] = r.wrap(entity)
	return nil
}

func (r *MemoryRepository[T]) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return notFound("Repository.Memory.Delete", id)
	}
	delete(r.items, id)
	return nil
}

// List returns live entries and drops expired ones.
func (r *MemoryRepository[T]) List(ctx context.Context) ([]T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	out := make([]T, 0, len(r.items))
	for id, item := range r.items {
		if item.expired(now) {
			delete(r.items, id)
			continue
		}
		out = append(out, item.value)
	}
	return out, nil
}
