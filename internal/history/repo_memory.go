package history

import (
	"context"
	"strings"
	"sync"
)

// MemoryRepo is an in-memory append-only history for tests and local runs.
type MemoryRepo struct {
	mu      sync.Mutex
	records []CallRecord
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(ctx context.Context, rec CallRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func (r *MemoryRepo) List(ctx context.Context, f Filter) ([]CallRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]CallRecord, 0)
	for _, rec := range r.records {
		if !f.From.IsZero() && rec.StartedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !rec.StartedAt.Before(f.To) {
			continue
		}
		if f.Status != "" && rec.Status != f.Status {
			continue
		}
		if f.StudentName != "" && !strings.EqualFold(rec.StudentName, f.StudentName) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *MemoryRepo) Clear(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.records)
	r.records = nil
	return n, nil
}
