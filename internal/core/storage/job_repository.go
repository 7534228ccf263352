package storage

import (
	"context"
	"database/sql"
	"fmt"

	"luxemarket_api/internal/core/models"
	"luxemarket_api/pkg/logger"
)

// PostgresJobStore is the durable JobStore. Every guard (terminal
// immutability, monotonic progress, legal transitions) is enforced in the
// UPDATE predicates so concurrent writers cannot tear a job record.
type PostgresJobStore struct {
	db  *sql.DB
	log logger.Logger
}

func NewPostgresJobStore(db *sql.DB, log logger.Logger) *PostgresJobStore {
	return &PostgresJobStore{db: db, log: log.WithPrefix("[JobStore]")}
}

func (s *PostgresJobStore) Create(ctx context.Context, job *models.ImportJob) error {
	query := `
	INSERT INTO storefront.import_jobs (
		job_id, status, query, provider, country_code,
		target_count, processed_count, failed_count, percent, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, 0, 0, 0, now());`

	_, err := s.db.ExecContext(ctx, query,
		job.JobID, string(job.Status), job.Query, job.Provider, job.CountryCode, job.TargetCount)
	if err != nil {
		return fmt.Errorf("creating import job %s: %w", job.JobID, err)
	}
	return nil
}

func (s *PostgresJobStore) Get(ctx context.Context, jobID string) (*models.ImportJob, error) {
	row := s.db.QueryRowContext(ctx, selectJob+` WHERE job_id = $1`, jobID)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading import job %s: %w", jobID, err)
	}
	return job, nil
}

func (s *PostgresJobStore) List(ctx context.Context) ([]*models.ImportJob, error) {
	rows, err := s.db.QueryContext(ctx, selectJob+` ORDER BY COALESCE(started_at, created_at) DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing import jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.ImportJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading job rows: %w", err)
	}
	return jobs, nil
}

// UpdateProgress is a no-op when the job is terminal or when a stale writer
// carries a smaller processed count.
func (s *PostgresJobStore) UpdateProgress(ctx context.Context, jobID string, processed, failed int) error {
	query := `
	UPDATE storefront.import_jobs
	SET processed_count = $2,
		failed_count = $3,
		percent = LEAST(COALESCE($2 * 100 / NULLIF(target_count, 0), 0), 100)
	WHERE job_id = $1
		AND status NOT IN ('completed', 'failed', 'cancelled')
		AND processed_count <= $2;`

	_, err := s.db.ExecContext(ctx, query, jobID, processed, failed)
	if err != nil {
		return fmt.Errorf("updating progress for job %s: %w", jobID, err)
	}
	return nil
}

// Transition performs an atomic compare-and-set on status. The legal source
// states are encoded in the predicate, so a concurrent transition loses
// cleanly with zero rows affected.
func (s *PostgresJobStore) Transition(ctx context.Context, jobID string, to models.JobStatus, jobErr string) error {
	var query string
	switch {
	case to == models.JobProcessing:
		query = `
		UPDATE storefront.import_jobs
		SET status = $2, started_at = now()
		WHERE job_id = $1 AND status = 'pending';`
	case to.Terminal():
		query = `
		UPDATE storefront.import_jobs
		SET status = $2,
			error = NULLIF($3, ''),
			completed_at = now(),
			percent = CASE WHEN $2 = 'completed' THEN 100 ELSE percent END
		WHERE job_id = $1 AND status IN ('pending', 'processing');`
	default:
		return ErrIllegalTransition
	}

	var (
		result sql.Result
		err    error
	)
	if to == models.JobProcessing {
		result, err = s.db.ExecContext(ctx, query, jobID, string(to))
	} else {
		result, err = s.db.ExecContext(ctx, query, jobID, string(to), jobErr)
	}
	if err != nil {
		return fmt.Errorf("transitioning job %s to %s: %w", jobID, to, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, getErr := s.Get(ctx, jobID); getErr != nil {
			return getErr
		}
		return ErrIllegalTransition
	}
	return nil
}

func (s *PostgresJobStore) RequestCancel(ctx context.Context, jobID string) error {
	query := `
	UPDATE storefront.import_jobs
	SET cancel_requested = TRUE
	WHERE job_id = $1 AND status NOT IN ('completed', 'failed', 'cancelled');`

	result, err := s.db.ExecContext(ctx, query, jobID)
	if err != nil {
		return fmt.Errorf("requesting cancel for job %s: %w", jobID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, getErr := s.Get(ctx, jobID); getErr != nil {
			return getErr
		}
		return ErrIllegalTransition
	}
	return nil
}

func (s *PostgresJobStore) CancelRequested(ctx context.Context, jobID string) (bool, error) {
	var requested bool
	err := s.db.QueryRowContext(ctx,
		`SELECT cancel_requested FROM storefront.import_jobs WHERE job_id = $1`, jobID).Scan(&requested)
	if err == sql.ErrNoRows {
		return false, ErrJobNotFound
	}
	if err != nil {
		return false, fmt.Errorf("reading cancel flag for job %s: %w", jobID, err)
	}
	return requested, nil
}

// SweepInterrupted fails jobs left in pending or processing by a previous
// process. Called once at startup; a job cannot legitimately be in either
// state before the scheduler has run.
func (s *PostgresJobStore) SweepInterrupted(ctx context.Context) (int, error) {
	query := `
	UPDATE storefront.import_jobs
	SET status = 'failed', error = 'interrupted by restart', completed_at = now()
	WHERE status IN ('pending', 'processing');`

	result, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("sweeping interrupted jobs: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected > 0 {
		s.log.Log("Swept %d interrupted import jobs to failed", affected)
	}
	return int(affected), nil
}

const selectJob = `
	SELECT job_id, status, query, provider, country_code,
		target_count, processed_count, failed_count, percent,
		cancel_requested, created_at, started_at, completed_at, error
	FROM storefront.import_jobs`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*models.ImportJob, error) {
	var (
		job         models.ImportJob
		status      string
		startedAt   sql.NullTime
		completedAt sql.NullTime
		jobErr      sql.NullString
	)
	err := row.Scan(
		&job.JobID, &status, &job.Query, &job.Provider, &job.CountryCode,
		&job.TargetCount, &job.ProcessedCount, &job.FailedCount, &job.Percent,
		&job.CancelRequested, &job.CreatedAt, &startedAt, &completedAt, &jobErr,
	)
	if err != nil {
		return nil, err
	}

	job.Status = models.JobStatus(status)
	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	job.Error = jobErr.String
	return &job, nil
}
