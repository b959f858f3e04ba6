package scheduler

import (
	"context"
	"testing"
	"time"

	"taskbot-project/microservices/tasks-service/messaging"
	"taskbot-project/microservices/tasks-service/models"
	"taskbot-project/microservices/tasks-service/repositories"
)

func TestWorkerPollDispatchesDueJobs(t *testing.T) {
	now := time.Now()
	task := timelineTask(now)
	task.Status = models.StatusNew

	repo := repositories.NewMemoryTaskRepository()
	if _, err := repo.CreateTask(context.Background(), task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	messenger := messaging.NewMemoryMessenger()
	store := NewMemoryJobStore()
	worker := NewWorker(store, NewDispatcher(repo, messenger, nil))

	err := store.Enqueue(context.Background(), Job{
		ID:      models.JobID(models.RoleExecutor, models.SubjectTaskCreated, task.ID.Hex()),
		FireAt:  now.Add(-time.Second),
		Payload: Payload{TaskID: task.ID.Hex(), Role: models.RoleExecutor, Subject: models.SubjectTaskCreated},
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	worker.poll(context.Background())

	if got := len(messenger.Sent()); got != 1 {
		t.Fatalf("delivered %d messages, want 1", got)
	}
	if got := store.PendingCount(); got != 0 {
		t.Fatalf("pending jobs = %d, want 0 after the poll", got)
	}
}
