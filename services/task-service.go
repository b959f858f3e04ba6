package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskbot-project/microservices/tasks-service/logging"
	"taskbot-project/microservices/tasks-service/messaging"
	"taskbot-project/microservices/tasks-service/models"
	"taskbot-project/microservices/tasks-service/repositories"
	"taskbot-project/microservices/tasks-service/scheduler"
)

// TaskService drives the task lifecycle. Every state change is
// persisted before any notification work happens, and scheduling
// failures never roll a committed change back.
type TaskService struct {
	repo      repositories.TaskRepository
	jobs      *scheduler.Manager
	messenger messaging.Messenger

	// Now is replaceable in tests.
	Now func() time.Time
}

func NewTaskService(repo repositories.TaskRepository, jobs *scheduler.Manager, messenger messaging.Messenger) *TaskService {
	return &TaskService{
		repo:      repo,
		jobs:      jobs,
		messenger: messenger,
		Now:       time.Now,
	}
}

// CreateTask validates the time window, persists the task in status NEW
// together with its checkpoints, and schedules the notification
// timeline. A checkpoint deadline outside the task window is allowed
// and only logged.
func (s *TaskService) CreateTask(ctx context.Context, task *models.Task, checkpoints []models.CheckPoint) (*models.Task, error) {
	if !task.StartDatetime.Before(task.EndDatetime) {
		return nil, ErrInvalidTimeRange
	}

	now := s.Now()
	task.Status = models.StatusNew
	task.CompletedAt = nil
	task.CreatedAt = now
	task.UpdatedAt = now

	if _, err := s.repo.CreateTask(ctx, task); err != nil {
		logging.Logger.Errorf("Event ID: TASK_CREATE_FAILED, Description: Failed to save task: %v", err)
		return nil, err
	}

	for i := range checkpoints {
		cp := &checkpoints[i]
		cp.TaskID = task.ID
		if cp.Deadline.Before(task.StartDatetime) || cp.Deadline.After(task.EndDatetime) {
			logging.Logger.Warnf("Event ID: CHECKPOINT_OUTSIDE_WINDOW, Description: Checkpoint deadline %s is outside the window of task %s", cp.Deadline, task.ID.Hex())
		}
		if _, err := s.repo.CreateCheckPoint(ctx, cp); err != nil {
			logging.Logger.Errorf("Event ID: CHECKPOINT_CREATE_FAILED, Description: Failed to save checkpoint for task %s: %v", task.ID.Hex(), err)
			return nil, err
		}
	}

	if err := s.jobs.ScheduleTaskTimeline(ctx, task); err != nil {
		logging.Logger.Warnf("Event ID: TASK_SCHEDULE_FAILED, Description: Task %s was saved but its notifications could not be scheduled: %v", task.ID.Hex(), err)
	}

	logging.Logger.Infof("Event ID: TASK_CREATED, Description: Task %s created for executor %d", task.ID.Hex(), task.ExecutorID)
	return task, nil
}

// ConfirmTask moves a task from NEW to IN_PROGRESS. Only the executor
// may confirm, and only once the start time has passed.
func (s *TaskService) ConfirmTask(ctx context.Context, taskID primitive.ObjectID, actorID int64) (*models.Task, error) {
	task, err := s.repo.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.ExecutorID != actorID {
		return nil, ErrNotYourTask
	}
	if task.Status != models.StatusNew {
		return nil, ErrAlreadyConfirmedOrCanceled
	}
	if s.Now().Before(task.StartDatetime) {
		return nil, ErrTaskNotStartedYet
	}

	task.Status = models.StatusInProgress
	task.UpdatedAt = s.Now()
	if err := s.repo.UpdateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to confirm task: %v", err)
	}

	if err := s.messenger.Send(ctx, task.CreatorID, messaging.RenderConfirmed(task), nil, messaging.ReplyAction(models.SubjectTaskStarted, task.ID.Hex())); err != nil {
		logging.Logger.Warnf("Event ID: CONFIRM_NOTIFY_FAILED, Description: Creator %d was not notified about confirmation of task %s: %v", task.CreatorID, task.ID.Hex(), err)
	}

	logging.Logger.Infof("Event ID: TASK_CONFIRMED, Description: Task %s confirmed by executor %d", task.ID.Hex(), actorID)
	return task, nil
}

// CancelTask moves a NEW or IN_PROGRESS task to CANCELED. The executor
// may not cancel their own task.
func (s *TaskService) CancelTask(ctx context.Context, taskID primitive.ObjectID, actorID int64) (*models.Task, error) {
	task, err := s.repo.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if actorID == task.ExecutorID && actorID != task.CreatorID {
		return nil, ErrExecutorCannotCancel
	}
	if task.Status.IsTerminal() {
		return nil, ErrTaskAlreadyFinished
	}

	task.Status = models.StatusCanceled
	task.UpdatedAt = s.Now()
	if err := s.repo.UpdateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to cancel task: %v", err)
	}

	if err := s.jobs.CancelAll(ctx, task.ID.Hex()); err != nil {
		logging.Logger.Warnf("Event ID: TASK_CANCEL_JOBS_FAILED, Description: Pending notifications for task %s could not all be removed: %v", task.ID.Hex(), err)
	}

	if err := s.messenger.Send(ctx, task.ExecutorID, messaging.RenderCanceled(task), nil, ""); err != nil {
		logging.Logger.Warnf("Event ID: CANCEL_NOTIFY_FAILED, Description: Executor %d was not notified about cancellation of task %s: %v", task.ExecutorID, task.ID.Hex(), err)
	}

	logging.Logger.Infof("Event ID: TASK_CANCELED, Description: Task %s canceled by user %d", task.ID.Hex(), actorID)
	return task, nil
}

// UpdateTask applies a partial update to a non-terminal task. When the
// schedule shifts, the pending notification timeline is replaced; other
// edits only trigger an "updated" notification to the executor.
func (s *TaskService) UpdateTask(ctx context.Context, taskID primitive.ObjectID, update models.TaskUpdate) (*models.Task, error) {
	task, err := s.repo.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status.IsTerminal() {
		return nil, ErrTaskAlreadyFinished
	}

	shifts := update.ShiftsSchedule(task)
	update.Apply(task)
	if !task.StartDatetime.Before(task.EndDatetime) {
		return nil, ErrInvalidTimeRange
	}

	task.UpdatedAt = s.Now()
	if err := s.repo.UpdateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %v", err)
	}

	if shifts {
		if err := s.jobs.RescheduleTaskTimeline(ctx, task); err != nil {
			logging.Logger.Warnf("Event ID: TASK_RESCHEDULE_FAILED, Description: Task %s was updated but its notifications could not be rescheduled: %v", task.ID.Hex(), err)
		}
	} else {
		if err := s.jobs.NotifyUpdated(ctx, task.ID.Hex()); err != nil {
			logging.Logger.Warnf("Event ID: UPDATE_NOTIFY_FAILED, Description: Update notification for task %s could not be scheduled: %v", task.ID.Hex(), err)
		}
	}

	logging.Logger.Infof("Event ID: TASK_UPDATED, Description: Task %s updated, schedule shifted: %t", task.ID.Hex(), shifts)
	return task, nil
}

// DeleteTask removes the task with its checkpoints and reports, then
// cancels every pending notification for it.
func (s *TaskService) DeleteTask(ctx context.Context, taskID primitive.ObjectID) error {
	if err := s.repo.DeleteTask(ctx, taskID); err != nil {
		return err
	}
	if err := s.jobs.CancelAll(ctx, taskID.Hex()); err != nil {
		logging.Logger.Warnf("Event ID: TASK_DELETE_JOBS_FAILED, Description: Pending notifications for task %s could not all be removed: %v", taskID.Hex(), err)
	}
	logging.Logger.Infof("Event ID: TASK_DELETED, Description: Task %s deleted", taskID.Hex())
	return nil
}

func (s *TaskService) GetTask(ctx context.Context, taskID primitive.ObjectID) (*models.Task, error) {
	return s.repo.GetTaskByID(ctx, taskID)
}

func (s *TaskService) ListCheckPoints(ctx context.Context, taskID primitive.ObjectID) ([]models.CheckPoint, error) {
	return s.repo.ListCheckPoints(ctx, taskID)
}
