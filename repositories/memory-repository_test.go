package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskbot-project/microservices/tasks-service/models"
)

func seedTask(t *testing.T, repo *MemoryTaskRepository) *models.Task {
	t.Helper()
	task, err := repo.CreateTask(context.Background(), &models.Task{
		CreatorID:     1,
		ExecutorID:    2,
		Title:         "Fix the gate",
		StartDatetime: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
		EndDatetime:   time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC),
		Status:        models.StatusInProgress,
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	return task
}

func TestSaveCompletionPersistsTaskAndReport(t *testing.T) {
	repo := NewMemoryTaskRepository()
	task := seedTask(t, repo)

	completeAt := task.EndDatetime.Add(-time.Hour)
	task.Status = models.StatusCompleted
	task.CompletedAt = &completeAt

	report := &models.Report{
		TaskID:    task.ID,
		AuthorID:  task.ExecutorID,
		Text:      "gate fixed",
		CreatedAt: completeAt,
	}
	if err := repo.SaveCompletion(context.Background(), report, task, nil); err != nil {
		t.Fatalf("SaveCompletion: %v", err)
	}

	stored, err := repo.GetTaskByID(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("GetTaskByID: %v", err)
	}
	if stored.Status != models.StatusCompleted || stored.CompletedAt == nil {
		t.Errorf("stored task = %s/%v, want COMPLETED with completed_at", stored.Status, stored.CompletedAt)
	}
	if got := len(repo.ReportsForTask(task.ID)); got != 1 {
		t.Errorf("persisted %d reports, want 1", got)
	}
}

func TestSaveCompletionPersistsCheckPoint(t *testing.T) {
	repo := NewMemoryTaskRepository()
	task := seedTask(t, repo)

	cp, err := repo.CreateCheckPoint(context.Background(), &models.CheckPoint{
		TaskID:      task.ID,
		Deadline:    task.StartDatetime.Add(2 * time.Hour),
		Description: "hinges",
	})
	if err != nil {
		t.Fatalf("CreateCheckPoint: %v", err)
	}

	completeAt := cp.Deadline.Add(-time.Minute)
	cp.CompletedAt = &completeAt
	report := &models.Report{
		TaskID:       task.ID,
		CheckPointID: &cp.ID,
		AuthorID:     task.ExecutorID,
		Text:         "hinges replaced",
		CreatedAt:    completeAt,
	}
	if err := repo.SaveCompletion(context.Background(), report, nil, cp); err != nil {
		t.Fatalf("SaveCompletion: %v", err)
	}

	stored, err := repo.GetCheckPointByID(context.Background(), cp.ID)
	if err != nil {
		t.Fatalf("GetCheckPointByID: %v", err)
	}
	if stored.CompletedAt == nil {
		t.Error("checkpoint completed_at not persisted")
	}

	storedTask, _ := repo.GetTaskByID(context.Background(), task.ID)
	if storedTask.Status != models.StatusInProgress {
		t.Errorf("task status = %s, want IN_PROGRESS untouched", storedTask.Status)
	}
}

func TestDeleteTaskCascades(t *testing.T) {
	repo := NewMemoryTaskRepository()
	task := seedTask(t, repo)

	cp, err := repo.CreateCheckPoint(context.Background(), &models.CheckPoint{
		TaskID:   task.ID,
		Deadline: task.EndDatetime,
	})
	if err != nil {
		t.Fatalf("CreateCheckPoint: %v", err)
	}

	if err := repo.DeleteTask(context.Background(), task.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if _, err := repo.GetTaskByID(context.Background(), task.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("err = %v, want ErrTaskNotFound", err)
	}
	if _, err := repo.GetCheckPointByID(context.Background(), cp.ID); !errors.Is(err, ErrCheckPointNotFound) {
		t.Fatalf("err = %v, want ErrCheckPointNotFound", err)
	}
}
