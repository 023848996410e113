package jobs

import (
	"sort"
	"sync"
)

// Store is a concurrency-safe in-memory registry of jobs. All accessors copy;
// Update is the only way to mutate a record and is atomic with respect to
// concurrent Update/Delete of the same id.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewStore() *Store {
	return &Store{jobs: make(map[string]*Job)}
}

func (s *Store) Put(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := job.Clone()
	s.jobs[job.ID] = &c
}

func (s *Store) Get(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return j.Clone(), true
}

// Update applies fn to the stored record under the store lock and returns the
// resulting snapshot. fn must not block.
func (s *Store) Update(id string, fn func(*Job)) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	fn(j)
	return j.Clone(), true
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
}

// DeleteIf removes the record only when pred holds, under the same lock as
// Update. The reaper uses it so a job completing between snapshot and delete
// is never clobbered mid-transition.
func (s *Store) DeleteIf(id string, pred func(*Job) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok || !pred(j) {
		return false
	}
	delete(s.jobs, id)
	return true
}

// List returns a snapshot of every job, newest first. The slice and its
// elements belong to the caller.
func (s *Store) List() []Job {
	s.mu.RLock()
	out := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, k int) bool {
		if out[i].CreatedAt.Equal(out[k].CreatedAt) {
			return out[i].ID < out[k].ID
		}
		return out[i].CreatedAt.After(out[k].CreatedAt)
	})
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
