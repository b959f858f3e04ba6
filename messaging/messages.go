package messaging

import (
	"fmt"
	"strings"

	"taskbot-project/microservices/tasks-service/models"
)

// RenderFunc builds the text of one notification from the task record.
type RenderFunc func(task *models.Task) string

// catalogue maps every (role, subject) pair a deferred notification can
// carry to its render function. A nil entry means the pair exists in
// the job-key grid for cancellation purposes but never produces a
// message (e.g. the creator already knows the task was created).
var catalogue = map[models.Role]map[models.Subject]RenderFunc{
	models.RoleExecutor: {
		models.SubjectTaskCreated: func(t *models.Task) string {
			return fmt.Sprintf(
				"New task assigned to you: %q.\nWindow: %s — %s.\nRequired report: %s.",
				t.Title,
				t.StartDatetime.Format("2006-01-02 15:04"),
				t.EndDatetime.Format("2006-01-02 15:04"),
				requiredKinds(t),
			)
		},
		models.SubjectTaskStarted: func(t *models.Task) string {
			return fmt.Sprintf("Task %q has started. Please confirm you are on it.", t.Title)
		},
		models.SubjectTaskEndingSoon: func(t *models.Task) string {
			return fmt.Sprintf("Task %q ends in 30 minutes. Submit your report before the deadline.", t.Title)
		},
		models.SubjectTaskOverdue: func(t *models.Task) string {
			return fmt.Sprintf("Task %q is overdue. Submit your report as soon as possible.", t.Title)
		},
		models.SubjectTaskUpdated: func(t *models.Task) string {
			return fmt.Sprintf(
				"Task %q was updated.\nWindow: %s — %s.",
				t.Title,
				t.StartDatetime.Format("2006-01-02 15:04"),
				t.EndDatetime.Format("2006-01-02 15:04"),
			)
		},
	},
	models.RoleCreator: {
		models.SubjectTaskCreated:    nil,
		models.SubjectTaskStarted:    nil,
		models.SubjectTaskEndingSoon: nil,
		models.SubjectTaskOverdue: func(t *models.Task) string {
			return fmt.Sprintf("Task %q (executor %d) missed its deadline.", t.Title, t.ExecutorID)
		},
		models.SubjectTaskUpdated: nil,
	},
}

// Render builds the notification text for a (role, subject) pair.
// The second return is false when the pair produces no message.
func Render(role models.Role, subject models.Subject, task *models.Task) (string, bool) {
	bySubject, ok := catalogue[role]
	if !ok {
		return "", false
	}
	render, ok := bySubject[subject]
	if !ok || render == nil {
		return "", false
	}
	return render(task), true
}

// ReplyAction returns the opaque action tag the chat gateway attaches
// to a notification, so the recipient can jump straight to the task.
func ReplyAction(subject models.Subject, taskID string) string {
	if subject == models.SubjectTaskEndingSoon {
		return "end_task:" + taskID
	}
	return "show_task:" + taskID
}

// RenderConfirmed is the synchronous message to the creator after the
// executor accepted the task.
func RenderConfirmed(task *models.Task) string {
	return fmt.Sprintf("Executor %d confirmed task %q.", task.ExecutorID, task.Title)
}

// RenderCanceled is the synchronous message to the executor after the
// task was cancelled.
func RenderCanceled(task *models.Task) string {
	return fmt.Sprintf("Task %q was cancelled. No further action is needed.", task.Title)
}

// RenderTaskCompleted is the synchronous completion message to the
// creator. overdueBy is empty when the task was completed on time.
func RenderTaskCompleted(task *models.Task, reportText string, overdueBy string) string {
	if overdueBy == "" {
		return fmt.Sprintf("Task %q was completed on time by executor %d.\nReport: %s", task.Title, task.ExecutorID, reportText)
	}
	return fmt.Sprintf("Task %q was completed %s late by executor %d.\nReport: %s", task.Title, overdueBy, task.ExecutorID, reportText)
}

// RenderCheckPointCompleted is the synchronous checkpoint-completion
// message to the creator.
func RenderCheckPointCompleted(task *models.Task, cp *models.CheckPoint, reportText string, overdueBy string) string {
	if overdueBy == "" {
		return fmt.Sprintf("Checkpoint %q of task %q was completed on time.\nReport: %s", cp.Description, task.Title, reportText)
	}
	return fmt.Sprintf("Checkpoint %q of task %q was completed %s late.\nReport: %s", cp.Description, task.Title, overdueBy, reportText)
}

func requiredKinds(t *models.Task) string {
	var kinds []string
	if t.PhotoRequired {
		kinds = append(kinds, "photo")
	}
	if t.VideoRequired {
		kinds = append(kinds, "video")
	}
	if t.FileRequired {
		kinds = append(kinds, "file")
	}
	if len(kinds) == 0 {
		return "none"
	}
	return strings.Join(kinds, ", ")
}
