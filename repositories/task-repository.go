package repositories

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"taskbot-project/microservices/tasks-service/models"
)

// MongoTaskRepository stores tasks, checkpoints and reports in MongoDB.
type MongoTaskRepository struct {
	client                *mongo.Client
	tasksCollection       *mongo.Collection
	checkpointsCollection *mongo.Collection
	reportsCollection     *mongo.Collection
}

func NewMongoTaskRepository(client *mongo.Client, dbName string) *MongoTaskRepository {
	db := client.Database(dbName)
	return &MongoTaskRepository{
		client:                client,
		tasksCollection:       db.Collection("tasks"),
		checkpointsCollection: db.Collection("checkpoints"),
		reportsCollection:     db.Collection("reports"),
	}
}

func (r *MongoTaskRepository) CreateTask(ctx context.Context, task *models.Task) (*models.Task, error) {
	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now
	if task.ID.IsZero() {
		task.ID = primitive.NewObjectID()
	}

	result, err := r.tasksCollection.InsertOne(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %v", err)
	}
	task.ID = result.InsertedID.(primitive.ObjectID)

	return task, nil
}

func (r *MongoTaskRepository) GetTaskByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	var task models.Task
	err := r.tasksCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&task)
	if err == mongo.ErrNoDocuments {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve task: %v", err)
	}
	return &task, nil
}

func (r *MongoTaskRepository) UpdateTask(ctx context.Context, task *models.Task) error {
	task.UpdatedAt = time.Now()
	result, err := r.tasksCollection.ReplaceOne(ctx, bson.M{"_id": task.ID}, task)
	if err != nil {
		return fmt.Errorf("failed to update task: %v", err)
	}
	if result.MatchedCount == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// DeleteTask removes the task together with its checkpoints and reports.
func (r *MongoTaskRepository) DeleteTask(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.tasksCollection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete task: %v", err)
	}
	if result.DeletedCount == 0 {
		return ErrTaskNotFound
	}
	if _, err := r.checkpointsCollection.DeleteMany(ctx, bson.M{"taskId": id}); err != nil {
		return fmt.Errorf("failed to delete task checkpoints: %v", err)
	}
	if _, err := r.reportsCollection.DeleteMany(ctx, bson.M{"taskId": id}); err != nil {
		return fmt.Errorf("failed to delete task reports: %v", err)
	}
	return nil
}

func (r *MongoTaskRepository) CreateCheckPoint(ctx context.Context, cp *models.CheckPoint) (*models.CheckPoint, error) {
	if cp.ID.IsZero() {
		cp.ID = primitive.NewObjectID()
	}
	result, err := r.checkpointsCollection.InsertOne(ctx, cp)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkpoint: %v", err)
	}
	cp.ID = result.InsertedID.(primitive.ObjectID)
	return cp, nil
}

func (r *MongoTaskRepository) GetCheckPointByID(ctx context.Context, id primitive.ObjectID) (*models.CheckPoint, error) {
	var cp models.CheckPoint
	err := r.checkpointsCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&cp)
	if err == mongo.ErrNoDocuments {
		return nil, ErrCheckPointNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve checkpoint: %v", err)
	}
	return &cp, nil
}

func (r *MongoTaskRepository) ListCheckPoints(ctx context.Context, taskID primitive.ObjectID) ([]models.CheckPoint, error) {
	cursor, err := r.checkpointsCollection.Find(ctx, bson.M{"taskId": taskID})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve checkpoints: %v", err)
	}
	defer cursor.Close(ctx)

	var checkpoints []models.CheckPoint
	for cursor.Next(ctx) {
		var cp models.CheckPoint
		if err := cursor.Decode(&cp); err != nil {
			return nil, fmt.Errorf("failed to decode checkpoint: %v", err)
		}
		checkpoints = append(checkpoints, cp)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %v", err)
	}
	return checkpoints, nil
}

// SaveCompletion runs the report insert and the status update in one
// transaction so no partial completion state becomes visible.
func (r *MongoTaskRepository) SaveCompletion(ctx context.Context, report *models.Report, task *models.Task, checkPoint *models.CheckPoint) error {
	if report.ID.IsZero() {
		report.ID = primitive.NewObjectID()
	}

	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %v", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := r.reportsCollection.InsertOne(sc, report); err != nil {
			return nil, fmt.Errorf("failed to save report: %v", err)
		}
		if task != nil {
			task.UpdatedAt = time.Now()
			result, err := r.tasksCollection.ReplaceOne(sc, bson.M{"_id": task.ID}, task)
			if err != nil {
				return nil, fmt.Errorf("failed to update completed task: %v", err)
			}
			if result.MatchedCount == 0 {
				return nil, ErrTaskNotFound
			}
		}
		if checkPoint != nil {
			result, err := r.checkpointsCollection.ReplaceOne(sc, bson.M{"_id": checkPoint.ID}, checkPoint)
			if err != nil {
				return nil, fmt.Errorf("failed to update completed checkpoint: %v", err)
			}
			if result.MatchedCount == 0 {
				return nil, ErrCheckPointNotFound
			}
		}
		return nil, nil
	})
	return err
}
