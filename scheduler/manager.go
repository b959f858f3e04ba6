package scheduler

import (
	"context"
	"errors"
	"time"

	"taskbot-project/microservices/tasks-service/logging"
	"taskbot-project/microservices/tasks-service/models"
)

// EndingSoonLead is how long before the task deadline the
// "ending soon" reminder fires.
const EndingSoonLead = 30 * time.Minute

// Manager translates task lifecycle events into deferred-job
// schedule, reschedule and cancel operations against the job store.
type Manager struct {
	store JobStore

	// Now is the clock used to reject past fire times. Overridable in
	// tests.
	Now func() time.Time
}

func NewManager(store JobStore) *Manager {
	return &Manager{
		store: store,
		Now:   time.Now,
	}
}

// Schedule enqueues a notification job to fire at fireAt. A zero
// fireAt means "fire on the next worker poll". With replace set, any
// pending job under the same (role, subject, task) key is cancelled
// first; a failed or empty cancellation is not an error, since the
// dispatcher re-validates state at fire time anyway.
func (m *Manager) Schedule(ctx context.Context, role models.Role, subject models.Subject, taskID string, fireAt time.Time, replace bool) error {
	now := m.Now()
	if fireAt.IsZero() {
		fireAt = now
	}
	if fireAt.Before(now.Add(-time.Minute)) {
		logging.Logger.Warnf("Event ID: JOB_PAST_FIRE_TIME, Description: Not scheduling %s for task %s: fire time %s already passed", subject, taskID, fireAt.Format(time.RFC3339))
		return ErrPastFireTime
	}

	jobID := models.JobID(role, subject, taskID)
	if replace {
		if _, err := m.store.Cancel(ctx, jobID); err != nil {
			logging.Logger.Warnf("Event ID: JOB_REPLACE_CANCEL_FAILED, Description: Failed to cancel prior job %s before reschedule: %v", jobID, err)
		}
	}

	return m.store.Enqueue(ctx, Job{
		ID:     jobID,
		FireAt: fireAt,
		Payload: Payload{
			TaskID:  taskID,
			Role:    role,
			Subject: subject,
		},
	})
}

// ScheduleTaskTimeline enqueues the full notification timeline for a
// freshly created task: the created announcement right away, the start
// reminder at the window open, the ending-soon reminder thirty minutes
// before the deadline, and the overdue alerts for both parties at the
// deadline. A past instant (e.g. a task created less than thirty
// minutes before its deadline) skips that one job and moves on.
func (m *Manager) ScheduleTaskTimeline(ctx context.Context, task *models.Task) error {
	taskID := task.ID.Hex()

	plan := []struct {
		role    models.Role
		subject models.Subject
		fireAt  time.Time
	}{
		{models.RoleExecutor, models.SubjectTaskCreated, time.Time{}},
		{models.RoleExecutor, models.SubjectTaskStarted, task.StartDatetime},
		{models.RoleExecutor, models.SubjectTaskEndingSoon, task.EndDatetime.Add(-EndingSoonLead)},
		{models.RoleCreator, models.SubjectTaskOverdue, task.EndDatetime},
		{models.RoleExecutor, models.SubjectTaskOverdue, task.EndDatetime},
	}

	var firstErr error
	for _, p := range plan {
		err := m.Schedule(ctx, p.role, p.subject, taskID, p.fireAt, false)
		if err == nil || errors.Is(err, ErrPastFireTime) {
			continue
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// RescheduleTaskTimeline replaces the three time-based jobs after the
// task window shifted and fires the updated announcement immediately.
func (m *Manager) RescheduleTaskTimeline(ctx context.Context, task *models.Task) error {
	taskID := task.ID.Hex()

	plan := []struct {
		role    models.Role
		subject models.Subject
		fireAt  time.Time
	}{
		{models.RoleExecutor, models.SubjectTaskStarted, task.StartDatetime},
		{models.RoleExecutor, models.SubjectTaskEndingSoon, task.EndDatetime.Add(-EndingSoonLead)},
		{models.RoleCreator, models.SubjectTaskOverdue, task.EndDatetime},
		{models.RoleExecutor, models.SubjectTaskOverdue, task.EndDatetime},
	}

	var firstErr error
	for _, p := range plan {
		err := m.Schedule(ctx, p.role, p.subject, taskID, p.fireAt, true)
		if err == nil || errors.Is(err, ErrPastFireTime) {
			continue
		}
		if firstErr == nil {
			firstErr = err
		}
	}

	if err := m.Schedule(ctx, models.RoleExecutor, models.SubjectTaskUpdated, taskID, time.Time{}, true); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// NotifyUpdated fires the updated announcement without touching the
// time-based jobs. Used when an update changed only non-temporal
// fields.
func (m *Manager) NotifyUpdated(ctx context.Context, taskID string) error {
	return m.Schedule(ctx, models.RoleExecutor, models.SubjectTaskUpdated, taskID, time.Time{}, true)
}

// CancelAll cancels every pending job for the task across the full
// role and subject grid. Missing or already-fired jobs are ignored.
func (m *Manager) CancelAll(ctx context.Context, taskID string) error {
	var firstErr error
	for _, role := range models.Roles {
		for _, subject := range models.Subjects {
			if _, err := m.store.Cancel(ctx, models.JobID(role, subject, taskID)); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
