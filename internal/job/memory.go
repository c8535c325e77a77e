package job

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
)

var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository keeps merge jobs in a map guarded by a RWMutex. Every
// job crossing the boundary is cloned, so callers never share state with the
// store. Jobs are lost on restart; SQLiteRepository persists them.
type MemoryRepository struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{jobs: map[string]*Job{}}
}

// Save inserts or replaces a job.
func (r *MemoryRepository) Save(_ context.Context, job *Job) error {
	stored := job.Clone()

	r.mu.Lock()
	r.jobs[stored.ID] = stored
	r.mu.Unlock()
	return nil
}

// FindByID returns a copy of the job or ErrJobNotFound.
func (r *MemoryRepository) FindByID(_ context.Context, id string) (*Job, error) {
	r.mu.RLock()
	stored, ok := r.jobs[id]
	r.mu.RUnlock()

	if !ok {
		return nil, ErrJobNotFound
	}
	return stored.Clone(), nil
}

// List returns copies of all jobs, oldest first with ties broken by ID.
func (r *MemoryRepository) List(_ context.Context) ([]*Job, error) {
	r.mu.RLock()
	jobs := slices.Collect(maps.Values(r.jobs))
	r.mu.RUnlock()

	slices.SortFunc(jobs, func(a, b *Job) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	for i, j := range jobs {
		jobs[i] = j.Clone()
	}
	return jobs, nil
}

// Delete removes a job or returns ErrJobNotFound.
func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[id]; !ok {
		return ErrJobNotFound
	}
	delete(r.jobs, id)
	return nil
}
