// Package scheduler implements the deferred notification machinery:
// a persistent job store, the job manager that (re)schedules and
// cancels notification jobs, the polling worker, and the dispatcher
// that re-validates task state when a job fires.
package scheduler

import (
	"context"
	"errors"
	"time"

	"taskbot-project/microservices/tasks-service/models"
)

var (
	// ErrPastFireTime indicates the requested fire time already passed.
	// Callers treat it as a soft failure: the moment the job would have
	// announced is already over, so nothing is scheduled.
	ErrPastFireTime = errors.New("fire time is in the past")

	// ErrStoreUnavailable indicates the underlying job store could not
	// be reached. Retryable; never rolls back a task mutation.
	ErrStoreUnavailable = errors.New("job store unavailable")
)

// Payload identifies what a fired job must re-validate and deliver.
type Payload struct {
	TaskID  string         `json:"taskId"`
	Role    models.Role    `json:"role"`
	Subject models.Subject `json:"subject"`
}

// Job is a deferred unit of work held by the store until its fire time.
type Job struct {
	ID      string    `json:"id"`
	FireAt  time.Time `json:"fireAt"`
	Payload Payload   `json:"payload"`
}

// JobStore persists deferred jobs keyed by their deterministic ID.
// Cancellation is advisory: a job already claimed for firing may still
// run, which the dispatcher tolerates by re-validating state.
type JobStore interface {
	// Enqueue stores a job to fire at job.FireAt. Enqueueing under an
	// existing ID overwrites the pending job for that ID.
	Enqueue(ctx context.Context, job Job) error

	// Cancel removes a pending job. Returns false when no pending job
	// exists under the ID (already fired, cancelled, or never created).
	Cancel(ctx context.Context, jobID string) (bool, error)

	// ClaimDue atomically removes and returns up to limit jobs whose
	// fire time is at or before now. A job is returned to exactly one
	// caller even with concurrent workers polling.
	ClaimDue(ctx context.Context, now time.Time, limit int64) ([]Job, error)
}
