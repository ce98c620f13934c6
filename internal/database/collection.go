package database

import (
	"context"
	"sync"
)

// Collection persists a whole sequence at once. There is no partial or
// append API: every write replaces the stored snapshot.
type Collection[T any] interface {
	LoadAll(ctx context.Context) ([]T, error)
	ReplaceAll(ctx context.Context, items []T) error
}

// mapped adapts a Collection of storage rows to a Collection of domain values.
type mapped[T, R any] struct {
	inner Collection[R]
	to    func(T) R
	from  func(R) T
}

func (m mapped[T, R]) LoadAll(ctx context.Context) ([]T, error) {
	rows, err := m.inner.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		out = append(out, m.from(r))
	}
	return out, nil
}

func (m mapped[T, R]) ReplaceAll(ctx context.Context, items []T) error {
	rows := make([]R, 0, len(items))
	for _, it := range items {
		rows = append(rows, m.to(it))
	}
	return m.inner.ReplaceAll(ctx, rows)
}

// Memory keeps the snapshot in process. Used by tests and the memory backend.
type Memory[T any] struct {
	mu    sync.Mutex
	items []T
	err   error
}

func NewMemory[T any](items ...T) *Memory[T] {
	return &Memory[T]{items: append([]T(nil), items...)}
}

func (m *Memory[T]) LoadAll(ctx context.Context) ([]T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]T(nil), m.items...), nil
}

func (m *Memory[T]) ReplaceAll(ctx context.Context, items []T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.items = append([]T(nil), items...)
	return nil
}

// SetErr makes every following call fail with err (nil clears it).
func (m *Memory[T]) SetErr(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}
