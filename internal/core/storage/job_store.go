package storage

import (
	"context"
	"errors"

	"luxemarket_api/internal/core/models"
)

var (
	ErrJobNotFound       = errors.New("import job not found")
	ErrIllegalTransition = errors.New("illegal job status transition")
)

// JobStore persists import job state. Progress updates on terminal jobs are
// silent no-ops, processed_count never decreases, and Transition is an
// atomic compare-and-set guarded by models.CanTransition. The worker only
// depends on this contract, so the backing can be swapped without touching
// the pipeline.
type JobStore interface {
	Create(ctx context.Context, job *models.ImportJob) error
	Get(ctx context.Context, jobID string) (*models.ImportJob, error)
	List(ctx context.Context) ([]*models.ImportJob, error)
	UpdateProgress(ctx context.Context, jobID string, processed, failed int) error
	Transition(ctx context.Context, jobID string, to models.JobStatus, jobErr string) error
	RequestCancel(ctx context.Context, jobID string) error
	CancelRequested(ctx context.Context, jobID string) (bool, error)
}
