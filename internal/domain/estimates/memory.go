package estimates

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo сметы в памяти процесса.
type MemoryRepo struct {
	mu     sync.Mutex
	nextID int64
	items  []Estimate
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Create(_ context.Context, e Estimate) (Estimate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	e.ID = r.nextID
	e.Items = e.Items.Clone()
	r.items = append(r.items, e)
	return e, nil
}

func (r *MemoryRepo) List(_ context.Context, from, to time.Time) ([]Estimate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Estimate
	for _, e := range r.items {
		if !e.CreatedAt.Before(from) && e.CreatedAt.Before(to) {
			c := e
			c.Items = e.Items.Clone()
			out = append(out, c)
		}
	}
	return out, nil
}
