package repositories

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskbot-project/microservices/tasks-service/models"
)

// MemoryTaskRepository keeps tasks, checkpoints and reports in process
// memory. It backs local development and the service tests.
type MemoryTaskRepository struct {
	mu          sync.RWMutex
	tasks       map[primitive.ObjectID]*models.Task
	checkpoints map[primitive.ObjectID]*models.CheckPoint
	reports     map[primitive.ObjectID]*models.Report
}

func NewMemoryTaskRepository() *MemoryTaskRepository {
	return &MemoryTaskRepository{
		tasks:       make(map[primitive.ObjectID]*models.Task),
		checkpoints: make(map[primitive.ObjectID]*models.CheckPoint),
		reports:     make(map[primitive.ObjectID]*models.Report),
	}
}

func (r *MemoryTaskRepository) CreateTask(ctx context.Context, task *models.Task) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if task.CreatedAt.IsZero() {
		now := time.Now()
		task.CreatedAt = now
		task.UpdatedAt = now
	}
	if task.ID.IsZero() {
		task.ID = primitive.NewObjectID()
	}
	stored := *task
	r.tasks[task.ID] = &stored
	return task, nil
}

func (r *MemoryTaskRepository) GetTaskByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	copy := *task
	return &copy, nil
}

func (r *MemoryTaskRepository) UpdateTask(ctx context.Context, task *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[task.ID]; !ok {
		return ErrTaskNotFound
	}
	task.UpdatedAt = time.Now()
	stored := *task
	r.tasks[task.ID] = &stored
	return nil
}

func (r *MemoryTaskRepository) DeleteTask(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; !ok {
		return ErrTaskNotFound
	}
	delete(r.tasks, id)
	for cpID, cp := range r.checkpoints {
		if cp.TaskID == id {
			delete(r.checkpoints, cpID)
		}
	}
	for repID, rep := range r.reports {
		if rep.TaskID == id {
			delete(r.reports, repID)
		}
	}
	return nil
}

func (r *MemoryTaskRepository) CreateCheckPoint(ctx context.Context, cp *models.CheckPoint) (*models.CheckPoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cp.ID.IsZero() {
		cp.ID = primitive.NewObjectID()
	}
	stored := *cp
	r.checkpoints[cp.ID] = &stored
	return cp, nil
}

func (r *MemoryTaskRepository) GetCheckPointByID(ctx context.Context, id primitive.ObjectID) (*models.CheckPoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cp, ok := r.checkpoints[id]
	if !ok {
		return nil, ErrCheckPointNotFound
	}
	copy := *cp
	return &copy, nil
}

func (r *MemoryTaskRepository) ListCheckPoints(ctx context.Context, taskID primitive.ObjectID) ([]models.CheckPoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var checkpoints []models.CheckPoint
	for _, cp := range r.checkpoints {
		if cp.TaskID == taskID {
			checkpoints = append(checkpoints, *cp)
		}
	}
	return checkpoints, nil
}

func (r *MemoryTaskRepository) SaveCompletion(ctx context.Context, report *models.Report, task *models.Task, checkPoint *models.CheckPoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if task != nil {
		if _, ok := r.tasks[task.ID]; !ok {
			return ErrTaskNotFound
		}
	}
	if checkPoint != nil {
		if _, ok := r.checkpoints[checkPoint.ID]; !ok {
			return ErrCheckPointNotFound
		}
	}

	if report.ID.IsZero() {
		report.ID = primitive.NewObjectID()
	}
	storedReport := *report
	r.reports[report.ID] = &storedReport

	if task != nil {
		task.UpdatedAt = time.Now()
		storedTask := *task
		r.tasks[task.ID] = &storedTask
	}
	if checkPoint != nil {
		storedCP := *checkPoint
		r.checkpoints[checkPoint.ID] = &storedCP
	}
	return nil
}

// ReportsForTask returns the stored reports for a task, newest last.
func (r *MemoryTaskRepository) ReportsForTask(taskID primitive.ObjectID) []models.Report {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var reports []models.Report
	for _, rep := range r.reports {
		if rep.TaskID == taskID {
			reports = append(reports, *rep)
		}
	}
	return reports
}
