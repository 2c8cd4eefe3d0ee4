package directory

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory roster repository for tests and local runs.
type MemoryRepo struct {
	mu sync.Mutex

	students map[string]Student
	staff    map[string]Staff
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		students: map[string]Student{},
		staff:    map[string]Staff{},
	}
}

func (r *MemoryRepo) CreateStudent(ctx context.Context, s Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.students[s.ID] = s
	return nil
}

func (r *MemoryRepo) UpdateStudent(ctx context.Context, s Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.students[s.ID]; !ok {
		return ErrNotFound
	}
	r.students[s.ID] = s
	return nil
}

func (r *MemoryRepo) DeleteStudent(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.students[id]; !ok {
		return ErrNotFound
	}
	delete(r.students, id)
	return nil
}

func (r *MemoryRepo) GetStudent(ctx context.Context, id string) (Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.students[id]
	if !ok {
		return Student{}, ErrNotFound
	}
	return s, nil
}

func (r *MemoryRepo) ListStudents(ctx context.Context) ([]Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Student, 0, len(r.students))
	for _, s := range r.students {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AddedAt.Before(out[j].AddedAt) })
	return out, nil
}

func (r *MemoryRepo) CreateStaff(ctx context.Context, s Staff) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.staff[s.ID] = s
	return nil
}

func (r *MemoryRepo) UpdateStaff(ctx context.Context, s Staff) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.staff[s.ID]; !ok {
		return ErrNotFound
	}
	r.staff[s.ID] = s
	return nil
}

func (r *MemoryRepo) DeleteStaff(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.staff[id]; !ok {
		return ErrNotFound
	}
	delete(r.staff, id)
	return nil
}

func (r *MemoryRepo) GetStaff(ctx context.Context, id string) (Staff, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.staff[id]
	if !ok {
		return Staff{}, ErrNotFound
	}
	return s, nil
}

func (r *MemoryRepo) GetStaffByEmail(ctx context.Context, email string) (Staff, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.staff {
		if s.Email == email {
			return s, nil
		}
	}
	return Staff{}, ErrNotFound
}

func (r *MemoryRepo) ListStaff(ctx context.Context) ([]Staff, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Staff, 0, len(r.staff))
	for _, s := range r.staff {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AddedAt.Before(out[j].AddedAt) })
	return out, nil
}
