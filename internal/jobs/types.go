package jobs

import "time"

type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Terminal reports whether a job in this status is finished.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusSkipped
}

type EnqueueRequest struct {
	Source    string // what triggered the job, e.g. "batch" or "cron"
	DedupeKey string
	Folder    string
}

type Job struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	DedupeKey  string    `json:"dedupe_key"`
	Folder     string    `json:"folder"`
	Status     Status    `json:"status"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	StartedAt  time.Time `json:"started_at,omitempty"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}
