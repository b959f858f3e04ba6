package models

import (
	"fmt"
	"time"
)

// Role identifies which party of a task a notification targets.
type Role string

const (
	RoleCreator  Role = "creator"
	RoleExecutor Role = "executor"
)

// Roles lists every notification role.
var Roles = []Role{RoleCreator, RoleExecutor}

// Subject is the lifecycle event a deferred notification represents.
type Subject string

const (
	SubjectTaskCreated    Subject = "task_created"
	SubjectTaskStarted    Subject = "task_started"
	SubjectTaskEndingSoon Subject = "task_ending_soon"
	SubjectTaskOverdue    Subject = "task_overdue"
	SubjectTaskUpdated    Subject = "task_updated"
)

// Subjects lists every notification subject.
var Subjects = []Subject{
	SubjectTaskCreated,
	SubjectTaskStarted,
	SubjectTaskEndingSoon,
	SubjectTaskOverdue,
	SubjectTaskUpdated,
}

// JobID builds the deterministic deferred-job identifier for a
// (role, subject, task) combination. The format is load-bearing:
// replace-scheduling and cancellation find the prior job through it.
func JobID(role Role, subject Subject, taskID string) string {
	return fmt.Sprintf("notification_%s_%s_%s", role, subject, taskID)
}

// Notification is an inbox record of a message that was delivered to a
// user, kept so the user can list and re-read past notifications.
type Notification struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"userId"`
	TaskID    string    `json:"taskId"`
	Subject   Subject   `json:"subject"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	IsRead    bool      `json:"isRead"`
}
