package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskbot-project/microservices/tasks-service/messaging"
	"taskbot-project/microservices/tasks-service/models"
	"taskbot-project/microservices/tasks-service/repositories"
	"taskbot-project/microservices/tasks-service/scheduler"
)

const (
	creatorID  int64 = 100
	executorID int64 = 200
)

type taskFixture struct {
	service   *TaskService
	repo      *repositories.MemoryTaskRepository
	store     *scheduler.MemoryJobStore
	messenger *messaging.MemoryMessenger
	now       time.Time
}

func newTaskFixture(t *testing.T) *taskFixture {
	t.Helper()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	repo := repositories.NewMemoryTaskRepository()
	store := scheduler.NewMemoryJobStore()
	manager := scheduler.NewManager(store)
	manager.Now = func() time.Time { return now }
	messenger := messaging.NewMemoryMessenger()

	service := NewTaskService(repo, manager, messenger)
	service.Now = func() time.Time { return now }

	return &taskFixture{
		service:   service,
		repo:      repo,
		store:     store,
		messenger: messenger,
		now:       now,
	}
}

func (f *taskFixture) setClock(t time.Time) {
	f.now = t
	f.service.Now = func() time.Time { return t }
}

func (f *taskFixture) newTask() *models.Task {
	return &models.Task{
		CreatorID:     creatorID,
		ExecutorID:    executorID,
		Title:         "Inventory count",
		StartDatetime: f.now.Add(1 * time.Hour),
		EndDatetime:   f.now.Add(5 * time.Hour),
	}
}

func (f *taskFixture) createTask(t *testing.T) *models.Task {
	t.Helper()
	task, err := f.service.CreateTask(context.Background(), f.newTask(), nil)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	return task
}

func TestCreateTaskSchedulesTimeline(t *testing.T) {
	f := newTaskFixture(t)
	task := f.createTask(t)

	if task.Status != models.StatusNew {
		t.Errorf("status = %s, want NEW", task.Status)
	}
	if task.CompletedAt != nil {
		t.Error("completed_at set on a freshly created task")
	}
	if got := f.store.PendingCount(); got != 5 {
		t.Errorf("pending jobs = %d, want 5", got)
	}
}

func TestCreateTaskInvalidWindow(t *testing.T) {
	f := newTaskFixture(t)
	task := f.newTask()
	task.EndDatetime = task.StartDatetime

	if _, err := f.service.CreateTask(context.Background(), task, nil); !errors.Is(err, ErrInvalidTimeRange) {
		t.Fatalf("err = %v, want ErrInvalidTimeRange", err)
	}
	if got := f.store.PendingCount(); got != 0 {
		t.Errorf("pending jobs = %d, want 0: validation failure must schedule nothing", got)
	}
}

func TestCreateTaskAllowsCheckpointOutsideWindow(t *testing.T) {
	f := newTaskFixture(t)
	task := f.newTask()
	checkpoints := []models.CheckPoint{
		{Description: "midway photos", Deadline: task.EndDatetime.Add(time.Hour)},
	}

	created, err := f.service.CreateTask(context.Background(), task, checkpoints)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	stored, err := f.repo.ListCheckPoints(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("ListCheckPoints: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("stored %d checkpoints, want 1: an out-of-window deadline is allowed", len(stored))
	}
}

func TestConfirmBeforeStartFails(t *testing.T) {
	f := newTaskFixture(t)
	task := f.createTask(t)

	_, err := f.service.ConfirmTask(context.Background(), task.ID, executorID)
	if !errors.Is(err, ErrTaskNotStartedYet) {
		t.Fatalf("err = %v, want ErrTaskNotStartedYet", err)
	}

	stored, _ := f.repo.GetTaskByID(context.Background(), task.ID)
	if stored.Status != models.StatusNew {
		t.Errorf("status = %s, want NEW: failed confirmation must not mutate", stored.Status)
	}
}

func TestConfirmAfterStartSucceeds(t *testing.T) {
	f := newTaskFixture(t)
	task := f.createTask(t)
	f.setClock(task.StartDatetime.Add(time.Minute))

	confirmed, err := f.service.ConfirmTask(context.Background(), task.ID, executorID)
	if err != nil {
		t.Fatalf("ConfirmTask: %v", err)
	}
	if confirmed.Status != models.StatusInProgress {
		t.Errorf("status = %s, want IN_PROGRESS", confirmed.Status)
	}
	if confirmed.CompletedAt != nil {
		t.Error("completed_at set on confirmation")
	}

	sent := f.messenger.Sent()
	if len(sent) != 1 || sent[0].RecipientID != creatorID {
		t.Fatalf("creator was not told about the confirmation: %+v", sent)
	}
}

func TestConfirmByWrongUser(t *testing.T) {
	f := newTaskFixture(t)
	task := f.createTask(t)
	f.setClock(task.StartDatetime.Add(time.Minute))

	if _, err := f.service.ConfirmTask(context.Background(), task.ID, creatorID); !errors.Is(err, ErrNotYourTask) {
		t.Fatalf("err = %v, want ErrNotYourTask", err)
	}
}

func TestConfirmTwice(t *testing.T) {
	f := newTaskFixture(t)
	task := f.createTask(t)
	f.setClock(task.StartDatetime.Add(time.Minute))

	if _, err := f.service.ConfirmTask(context.Background(), task.ID, executorID); err != nil {
		t.Fatalf("first ConfirmTask: %v", err)
	}
	if _, err := f.service.ConfirmTask(context.Background(), task.ID, executorID); !errors.Is(err, ErrAlreadyConfirmedOrCanceled) {
		t.Fatalf("err = %v, want ErrAlreadyConfirmedOrCanceled", err)
	}
}

func TestCancelByExecutorForbidden(t *testing.T) {
	f := newTaskFixture(t)
	task := f.createTask(t)

	if _, err := f.service.CancelTask(context.Background(), task.ID, executorID); !errors.Is(err, ErrExecutorCannotCancel) {
		t.Fatalf("err = %v, want ErrExecutorCannotCancel", err)
	}
}

func TestCancelByCreator(t *testing.T) {
	f := newTaskFixture(t)
	task := f.createTask(t)

	canceled, err := f.service.CancelTask(context.Background(), task.ID, creatorID)
	if err != nil {
		t.Fatalf("CancelTask: %v", err)
	}
	if canceled.Status != models.StatusCanceled {
		t.Errorf("status = %s, want CANCELED", canceled.Status)
	}
	if canceled.CompletedAt != nil {
		t.Error("completed_at set on cancellation")
	}
	if got := f.store.PendingCount(); got != 0 {
		t.Errorf("pending jobs = %d, want 0 after cancellation", got)
	}

	sent := f.messenger.Sent()
	if len(sent) != 1 || sent[0].RecipientID != executorID {
		t.Fatalf("executor was not told about the cancellation: %+v", sent)
	}
}

func TestCancelFinishedTask(t *testing.T) {
	f := newTaskFixture(t)
	task := f.createTask(t)
	if _, err := f.service.CancelTask(context.Background(), task.ID, creatorID); err != nil {
		t.Fatalf("CancelTask: %v", err)
	}

	if _, err := f.service.CancelTask(context.Background(), task.ID, creatorID); !errors.Is(err, ErrTaskAlreadyFinished) {
		t.Fatalf("err = %v, want ErrTaskAlreadyFinished", err)
	}
}

func TestUpdateShiftReschedulesTimeline(t *testing.T) {
	f := newTaskFixture(t)
	task := f.createTask(t)

	newEnd := task.EndDatetime.Add(2 * time.Hour)
	updated, err := f.service.UpdateTask(context.Background(), task.ID, models.TaskUpdate{EndDatetime: &newEnd})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if !updated.EndDatetime.Equal(newEnd) {
		t.Errorf("end = %s, want %s", updated.EndDatetime, newEnd)
	}

	job, ok := f.store.Pending(models.JobID(models.RoleExecutor, models.SubjectTaskEndingSoon, task.ID.Hex()))
	if !ok {
		t.Fatal("no pending ending-soon job after reschedule")
	}
	if want := newEnd.Add(-scheduler.EndingSoonLead); !job.FireAt.Equal(want) {
		t.Errorf("ending-soon fires at %s, want %s", job.FireAt, want)
	}
}

func TestUpdateWithoutShiftKeepsTimeline(t *testing.T) {
	f := newTaskFixture(t)
	task := f.createTask(t)
	before, _ := f.store.Pending(models.JobID(models.RoleExecutor, models.SubjectTaskEndingSoon, task.ID.Hex()))

	title := "Inventory count (aisle 4 only)"
	if _, err := f.service.UpdateTask(context.Background(), task.ID, models.TaskUpdate{Title: &title}); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}

	after, ok := f.store.Pending(models.JobID(models.RoleExecutor, models.SubjectTaskEndingSoon, task.ID.Hex()))
	if !ok || !after.FireAt.Equal(before.FireAt) {
		t.Error("ending-soon job moved although the window did not change")
	}
	if _, ok := f.store.Pending(models.JobID(models.RoleExecutor, models.SubjectTaskUpdated, task.ID.Hex())); !ok {
		t.Error("no updated announcement scheduled")
	}
}

func TestUpdateIntoInvalidWindow(t *testing.T) {
	f := newTaskFixture(t)
	task := f.createTask(t)

	badEnd := task.StartDatetime.Add(-time.Minute)
	if _, err := f.service.UpdateTask(context.Background(), task.ID, models.TaskUpdate{EndDatetime: &badEnd}); !errors.Is(err, ErrInvalidTimeRange) {
		t.Fatalf("err = %v, want ErrInvalidTimeRange", err)
	}

	stored, _ := f.repo.GetTaskByID(context.Background(), task.ID)
	if !stored.EndDatetime.Equal(task.EndDatetime) {
		t.Error("rejected update still mutated the stored task")
	}
}

func TestUpdateFinishedTask(t *testing.T) {
	f := newTaskFixture(t)
	task := f.createTask(t)
	if _, err := f.service.CancelTask(context.Background(), task.ID, creatorID); err != nil {
		t.Fatalf("CancelTask: %v", err)
	}

	title := "irrelevant"
	if _, err := f.service.UpdateTask(context.Background(), task.ID, models.TaskUpdate{Title: &title}); !errors.Is(err, ErrTaskAlreadyFinished) {
		t.Fatalf("err = %v, want ErrTaskAlreadyFinished", err)
	}
}

func TestCancelThenStaleFireDeliversNothing(t *testing.T) {
	f := newTaskFixture(t)
	task := f.createTask(t)

	if _, err := f.service.CancelTask(context.Background(), task.ID, creatorID); err != nil {
		t.Fatalf("CancelTask: %v", err)
	}
	sentAfterCancel := len(f.messenger.Sent())

	// A job claimed before the cancellation may still fire; the
	// dispatcher must discard it for every subject.
	d := scheduler.NewDispatcher(f.repo, f.messenger, nil)
	d.Now = func() time.Time { return f.now }
	for _, role := range models.Roles {
		for _, subject := range models.Subjects {
			if err := d.OnNotificationDue(context.Background(), task.ID.Hex(), role, subject); err != nil {
				t.Fatalf("OnNotificationDue(%s/%s): %v", role, subject, err)
			}
		}
	}

	if got := len(f.messenger.Sent()); got != sentAfterCancel {
		t.Fatalf("stale firings delivered %d extra messages, want 0", got-sentAfterCancel)
	}
}

func TestDeleteTaskCancelsJobs(t *testing.T) {
	f := newTaskFixture(t)
	task := f.createTask(t)

	if err := f.service.DeleteTask(context.Background(), task.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if _, err := f.repo.GetTaskByID(context.Background(), task.ID); !errors.Is(err, repositories.ErrTaskNotFound) {
		t.Fatalf("err = %v, want ErrTaskNotFound", err)
	}
	if got := f.store.PendingCount(); got != 0 {
		t.Errorf("pending jobs = %d, want 0 after deletion", got)
	}
}
