package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryJobStore keeps deferred jobs in process memory. It backs local
// development and the scheduler/service tests.
type MemoryJobStore struct {
	mu   sync.Mutex
	jobs map[string]Job
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[string]Job)}
}

func (s *MemoryJobStore) Enqueue(ctx context.Context, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[job.ID] = job
	return nil
}

func (s *MemoryJobStore) Cancel(ctx context.Context, jobID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[jobID]; !ok {
		return false, nil
	}
	delete(s.jobs, jobID)
	return true, nil
}

func (s *MemoryJobStore) ClaimDue(ctx context.Context, now time.Time, limit int64) ([]Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []Job
	for _, job := range s.jobs {
		if !job.FireAt.After(now) {
			due = append(due, job)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].FireAt.Before(due[j].FireAt) })
	if int64(len(due)) > limit {
		due = due[:limit]
	}
	for _, job := range due {
		delete(s.jobs, job.ID)
	}
	return due, nil
}

// Pending returns the pending job under the given ID, if any.
func (s *MemoryJobStore) Pending(jobID string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	return job, ok
}

// PendingCount returns the number of pending jobs.
func (s *MemoryJobStore) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.jobs)
}
