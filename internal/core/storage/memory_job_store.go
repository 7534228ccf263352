package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"luxemarket_api/internal/core/models"
)

// MemoryJobStore keeps job state in process memory. Good enough for a
// single-instance deployment and for tests; the Postgres store is the
// durable alternative.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]*models.ImportJob
	now  func() time.Time
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{
		jobs: make(map[string]*models.ImportJob),
		now:  time.Now,
	}
}

func (s *MemoryJobStore) Create(_ context.Context, job *models.ImportJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *job
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now().UTC()
	}
	s.jobs[stored.JobID] = &stored
	return nil
}

func (s *MemoryJobStore) Get(_ context.Context, jobID string) (*models.ImportJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	copied := *job
	return &copied, nil
}

func (s *MemoryJobStore) List(_ context.Context) ([]*models.ImportJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]*models.ImportJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		copied := *job
		jobs = append(jobs, &copied)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return sortKey(jobs[i]).After(sortKey(jobs[j]))
	})
	return jobs, nil
}

func sortKey(job *models.ImportJob) time.Time {
	if job.StartedAt != nil {
		return *job.StartedAt
	}
	return job.CreatedAt
}

func (s *MemoryJobStore) UpdateProgress(_ context.Context, jobID string, processed, failed int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	if job.Status.Terminal() {
		return nil
	}
	// a stale writer with a smaller processed count loses
	if processed < job.ProcessedCount {
		return nil
	}

	job.ProcessedCount = processed
	job.FailedCount = failed
	job.Percent = models.PercentOf(processed, job.TargetCount)
	return nil
}

func (s *MemoryJobStore) Transition(_ context.Context, jobID string, to models.JobStatus, jobErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	if !models.CanTransition(job.Status, to) {
		return ErrIllegalTransition
	}

	now := s.now().UTC()
	job.Status = to
	job.Error = jobErr
	switch {
	case to == models.JobProcessing:
		job.StartedAt = &now
	case to.Terminal():
		job.CompletedAt = &now
		if to == models.JobCompleted {
			job.Percent = 100
		}
	}
	return nil
}

func (s *MemoryJobStore) RequestCancel(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	if job.Status.Terminal() {
		return ErrIllegalTransition
	}
	job.CancelRequested = true
	return nil
}

func (s *MemoryJobStore) CancelRequested(_ context.Context, jobID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return false, ErrJobNotFound
	}
	return job.CancelRequested, nil
}
