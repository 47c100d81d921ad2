package sequence

import (
	"context"
	"sync"
)

// MemoryRepository is an in-memory counter store with the same atomicity
// guarantee as the Postgres implementation.
type MemoryRepository struct {
	mu     sync.Mutex
	counts map[Domain]int64
}

// NewMemoryRepository creates an empty in-memory counter repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{counts: make(map[Domain]int64)}
}

func (r *MemoryRepository) Next(ctx context.Context, domain Domain, year int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[domain]++
	return r.counts[domain], nil
}
