package jobs

import "context"

// Store records job state transitions. It is an audit trail only: a new
// queue never reloads jobs from it.
type Store interface {
	UpsertJob(ctx context.Context, job *Job) error
}
