package repositories

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskbot-project/microservices/tasks-service/models"
)

var (
	// ErrTaskNotFound indicates the requested task does not exist.
	ErrTaskNotFound = errors.New("task not found")

	// ErrCheckPointNotFound indicates the requested checkpoint does not exist.
	ErrCheckPointNotFound = errors.New("checkpoint not found")
)

// TaskRepository provides storage access for tasks, their checkpoints
// and completion reports.
type TaskRepository interface {
	CreateTask(ctx context.Context, task *models.Task) (*models.Task, error)
	GetTaskByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error)
	UpdateTask(ctx context.Context, task *models.Task) error
	DeleteTask(ctx context.Context, id primitive.ObjectID) error

	CreateCheckPoint(ctx context.Context, cp *models.CheckPoint) (*models.CheckPoint, error)
	GetCheckPointByID(ctx context.Context, id primitive.ObjectID) (*models.CheckPoint, error)
	ListCheckPoints(ctx context.Context, taskID primitive.ObjectID) ([]models.CheckPoint, error)

	// SaveCompletion persists a completion report together with the
	// status change it carries. Exactly one of task or checkPoint is
	// non-nil: task for a whole-task completion, checkPoint for a
	// checkpoint completion. Either everything is persisted or nothing.
	SaveCompletion(ctx context.Context, report *models.Report, task *models.Task, checkPoint *models.CheckPoint) error
}
