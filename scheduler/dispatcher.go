package scheduler

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskbot-project/microservices/tasks-service/logging"
	"taskbot-project/microservices/tasks-service/messaging"
	"taskbot-project/microservices/tasks-service/models"
	"taskbot-project/microservices/tasks-service/repositories"
)

// InboxRecorder stores a delivered notification in the user's inbox
// history. Recording is best-effort.
type InboxRecorder interface {
	RecordDelivered(ctx context.Context, notification *models.Notification) error
}

// Dispatcher runs when a deferred job fires. It re-validates the job
// against the task's *current* state before producing any message:
// scheduling time and firing time are decoupled, so the schedule may be
// stale, duplicated, or refer to a task that has since finished or
// disappeared. Everything moot is discarded silently.
type Dispatcher struct {
	repo      repositories.TaskRepository
	messenger messaging.Messenger
	inbox     InboxRecorder

	// Now is the clock used for fire-window validation. Overridable in
	// tests.
	Now func() time.Time
}

// NewDispatcher creates a dispatcher. inbox may be nil when no inbox
// history is kept.
func NewDispatcher(repo repositories.TaskRepository, messenger messaging.Messenger, inbox InboxRecorder) *Dispatcher {
	return &Dispatcher{
		repo:      repo,
		messenger: messenger,
		inbox:     inbox,
		Now:       time.Now,
	}
}

// OnNotificationDue is the sole entry point the job store fires into.
// It is safe under duplicate and concurrent invocation for the same
// key: a moot firing delivers nothing on every call.
func (d *Dispatcher) OnNotificationDue(ctx context.Context, taskID string, role models.Role, subject models.Subject) error {
	objectID, err := primitive.ObjectIDFromHex(taskID)
	if err != nil {
		logging.Logger.Warnf("Event ID: DISPATCH_BAD_TASK_ID, Description: Dropping notification %s/%s with malformed task id %q", role, subject, taskID)
		return nil
	}

	task, err := d.repo.GetTaskByID(ctx, objectID)
	if errors.Is(err, repositories.ErrTaskNotFound) {
		// Deleted since scheduling; nothing to announce.
		return nil
	}
	if err != nil {
		return err
	}

	if task.Status == models.StatusCompleted || task.Status == models.StatusCanceled {
		logging.Logger.Infof("Event ID: DISPATCH_MOOT, Description: Task %s is already %s, skipping %s notification", taskID, task.Status, subject)
		return nil
	}

	if !d.stillRelevant(task, subject) {
		return nil
	}

	text, ok := messaging.Render(role, subject, task)
	if !ok {
		return nil
	}

	recipientID := task.ExecutorID
	if role == models.RoleCreator {
		recipientID = task.CreatorID
	}

	if err := d.messenger.Send(ctx, recipientID, text, nil, messaging.ReplyAction(subject, taskID)); err != nil {
		// One attempt only; the notification is best-effort.
		logging.Logger.Errorf("Event ID: DISPATCH_DELIVERY_FAILED, Description: Failed to deliver %s notification for task %s to user %d: %v", subject, taskID, recipientID, err)
		return nil
	}

	if d.inbox != nil {
		notification := &models.Notification{
			UserID:    recipientID,
			TaskID:    taskID,
			Subject:   subject,
			Message:   text,
			CreatedAt: d.Now(),
		}
		if err := d.inbox.RecordDelivered(ctx, notification); err != nil {
			logging.Logger.Errorf("Event ID: DISPATCH_INBOX_FAILED, Description: Failed to record %s notification for task %s: %v", subject, taskID, err)
		}
	}
	return nil
}

// stillRelevant applies the per-subject re-validation ladder against
// the task's current state and times.
func (d *Dispatcher) stillRelevant(task *models.Task, subject models.Subject) bool {
	now := d.Now()
	taskID := task.ID.Hex()

	switch subject {
	case models.SubjectTaskStarted:
		// Only until the executor confirmed; afterwards they already
		// know the task is running.
		if task.Status != models.StatusNew {
			logging.Logger.Infof("Event ID: DISPATCH_MOOT, Description: Task %s already confirmed, skipping start notification", taskID)
			return false
		}
		if !sameMinute(now, task.StartDatetime) {
			logging.Logger.Infof("Event ID: DISPATCH_STALE_WINDOW, Description: Start notification for task %s fired outside its window, skipping", taskID)
			return false
		}
	case models.SubjectTaskEndingSoon:
		if task.Status != models.StatusInProgress {
			logging.Logger.Infof("Event ID: DISPATCH_MOOT, Description: Task %s not in progress, skipping ending-soon notification", taskID)
			return false
		}
		// Recomputed against the current end time: a job scheduled
		// before an update must not announce the old deadline.
		if !sameMinute(now, task.EndDatetime.Add(-EndingSoonLead)) {
			logging.Logger.Infof("Event ID: DISPATCH_STALE_WINDOW, Description: Ending-soon notification for task %s fired outside its window, skipping", taskID)
			return false
		}
	case models.SubjectTaskOverdue:
		if task.Status == models.StatusOverdue {
			logging.Logger.Infof("Event ID: DISPATCH_MOOT, Description: Task %s already overdue, skipping overdue notification", taskID)
			return false
		}
		if !sameMinute(now, task.EndDatetime) {
			logging.Logger.Infof("Event ID: DISPATCH_STALE_WINDOW, Description: Overdue notification for task %s fired outside its window, skipping", taskID)
			return false
		}
	case models.SubjectTaskCreated, models.SubjectTaskUpdated:
		// Delivered whenever the task still exists and is not terminal.
	}
	return true
}

func sameMinute(a, b time.Time) bool {
	return a.Truncate(time.Minute).Equal(b.Truncate(time.Minute))
}
