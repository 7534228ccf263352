package models

import "time"

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
	JobCancelled  JobStatus = "cancelled"
)

func (s JobStatus) Terminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobCancelled:
		return true
	}
	return false
}

// CanTransition reports whether a job may move from one status to another.
// The only legal chain is pending -> processing -> (completed|failed|cancelled).
func CanTransition(from, to JobStatus) bool {
	if from.Terminal() {
		return false
	}
	switch to {
	case JobProcessing:
		return from == JobPending
	case JobCompleted, JobFailed, JobCancelled:
		return from == JobProcessing || from == JobPending
	}
	return false
}

// ImportJob is the observable state of one bulk import run. ProcessedCount
// never decreases and no field changes after the job reaches a terminal
// status; both guards live in the job store.
type ImportJob struct {
	JobID           string     `json:"job_id"`
	Status          JobStatus  `json:"status"`
	Query           string     `json:"query"`
	Provider        string     `json:"provider"`
	CountryCode     string     `json:"country_code"`
	TargetCount     int        `json:"total_items"`
	ProcessedCount  int        `json:"processed_items"`
	FailedCount     int        `json:"failed_items"`
	Percent         int        `json:"percent"`
	CancelRequested bool       `json:"cancel_requested,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	Error           string     `json:"error,omitempty"`
}

// PercentOf derives the progress percentage. A terminal completed job is
// always reported as 100 even on supplier shortfall; observers compare
// ProcessedCount with TargetCount to detect that case.
func PercentOf(processed, target int) int {
	if target <= 0 {
		return 0
	}
	p := processed * 100 / target
	if p > 100 {
		p = 100
	}
	return p
}
