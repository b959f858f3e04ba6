package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TaskStatus string

const (
	StatusNew        TaskStatus = "NEW"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusCompleted  TaskStatus = "COMPLETED"
	StatusOverdue    TaskStatus = "OVERDUE"
	StatusCanceled   TaskStatus = "CANCELED"
)

// IsTerminal returns true when no further status change is allowed.
func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusOverdue || s == StatusCanceled
}

type Task struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	CreatorID     int64              `json:"creatorId" bson:"creatorId"`
	ExecutorID    int64              `json:"executorId" bson:"executorId"`
	Title         string             `json:"title" bson:"title"`
	Description   string             `json:"description" bson:"description"`
	StartDatetime time.Time          `json:"startDatetime" bson:"startDatetime"`
	EndDatetime   time.Time          `json:"endDatetime" bson:"endDatetime"`
	CategoryID    *int64             `json:"categoryId,omitempty" bson:"categoryId,omitempty"`
	PhotoRequired bool               `json:"photoRequired" bson:"photoRequired"`
	VideoRequired bool               `json:"videoRequired" bson:"videoRequired"`
	FileRequired  bool               `json:"fileRequired" bson:"fileRequired"`
	Status        TaskStatus         `json:"status" bson:"status"`
	CompletedAt   *time.Time         `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	CreatedAt     time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// CheckPoint is an intermediate deadline inside the task window. It is
// owned by its task and removed together with it.
type CheckPoint struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	TaskID      primitive.ObjectID `json:"taskId" bson:"taskId"`
	Deadline    time.Time          `json:"deadline" bson:"deadline"`
	Description string             `json:"description" bson:"description"`
	CompletedAt *time.Time         `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
}

// ContentType classifies a report attachment.
type ContentType string

const (
	ContentPhoto ContentType = "photo"
	ContentVideo ContentType = "video"
	ContentFile  ContentType = "file"
)

type Attachment struct {
	FileID      string      `json:"fileId" bson:"fileId"`
	ContentType ContentType `json:"contentType" bson:"contentType"`
}

// Report is the record of work submitted against a task or one of its
// checkpoints. CheckPointID nil means the report closes the whole task.
type Report struct {
	ID           primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	TaskID       primitive.ObjectID  `json:"taskId" bson:"taskId"`
	CheckPointID *primitive.ObjectID `json:"checkPointId,omitempty" bson:"checkPointId,omitempty"`
	AuthorID     int64               `json:"authorId" bson:"authorId"`
	Text         string              `json:"text" bson:"text"`
	Attachments  []Attachment        `json:"attachments,omitempty" bson:"attachments,omitempty"`
	CreatedAt    time.Time           `json:"createdAt" bson:"createdAt"`
}

// TaskUpdate carries the mutable task fields for the update operation.
// Nil pointers mean "leave unchanged".
type TaskUpdate struct {
	Title         *string    `json:"title,omitempty"`
	Description   *string    `json:"description,omitempty"`
	StartDatetime *time.Time `json:"startDatetime,omitempty"`
	EndDatetime   *time.Time `json:"endDatetime,omitempty"`
	CategoryID    *int64     `json:"categoryId,omitempty"`
	PhotoRequired *bool      `json:"photoRequired,omitempty"`
	VideoRequired *bool      `json:"videoRequired,omitempty"`
	FileRequired  *bool      `json:"fileRequired,omitempty"`
}

// ShiftsSchedule reports whether applying the update changes the task
// window and therefore requires rescheduling the time-based jobs.
func (u TaskUpdate) ShiftsSchedule(t *Task) bool {
	if u.StartDatetime != nil && !u.StartDatetime.Equal(t.StartDatetime) {
		return true
	}
	if u.EndDatetime != nil && !u.EndDatetime.Equal(t.EndDatetime) {
		return true
	}
	return false
}

// Apply copies the set fields onto the task.
func (u TaskUpdate) Apply(t *Task) {
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.StartDatetime != nil {
		t.StartDatetime = *u.StartDatetime
	}
	if u.EndDatetime != nil {
		t.EndDatetime = *u.EndDatetime
	}
	if u.CategoryID != nil {
		t.CategoryID = u.CategoryID
	}
	if u.PhotoRequired != nil {
		t.PhotoRequired = *u.PhotoRequired
	}
	if u.VideoRequired != nil {
		t.VideoRequired = *u.VideoRequired
	}
	if u.FileRequired != nil {
		t.FileRequired = *u.FileRequired
	}
}
