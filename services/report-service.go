package services

import (
	"context"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskbot-project/microservices/tasks-service/logging"
	"taskbot-project/microservices/tasks-service/messaging"
	"taskbot-project/microservices/tasks-service/models"
	"taskbot-project/microservices/tasks-service/repositories"
	"taskbot-project/microservices/tasks-service/scheduler"
)

// CompletionResult is returned by both completion operations so callers
// can tell whether the work landed on time and by how much it was late.
type CompletionResult struct {
	Report    *models.Report
	Task      *models.Task
	OnTime    bool
	OverdueBy time.Duration
}

// ReportService handles task and checkpoint completion: it checks the
// executor's report against the task's attachment requirements, judges
// timeliness against the deadline, and persists the report together
// with the status change in one step.
type ReportService struct {
	repo      repositories.TaskRepository
	jobs      *scheduler.Manager
	messenger messaging.Messenger
	inbox     scheduler.InboxRecorder

	Now func() time.Time
}

func NewReportService(repo repositories.TaskRepository, jobs *scheduler.Manager, messenger messaging.Messenger, inbox scheduler.InboxRecorder) *ReportService {
	return &ReportService{
		repo:      repo,
		jobs:      jobs,
		messenger: messenger,
		inbox:     inbox,
		Now:       time.Now,
	}
}

// CompleteTask finishes a whole task with the executor's report. The
// attachment requirements are checked before anything is mutated; a
// missing required attachment leaves the task untouched. On success the
// task lands in COMPLETED or OVERDUE depending on whether the report
// arrived before the task's end time.
func (s *ReportService) CompleteTask(ctx context.Context, taskID primitive.ObjectID, actorID int64, text string, attachments []models.Attachment) (*CompletionResult, error) {
	task, err := s.repo.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.ExecutorID != actorID {
		return nil, ErrNotYourTask
	}
	if task.Status.IsTerminal() {
		return nil, ErrTaskAlreadyFinished
	}
	if task.Status != models.StatusInProgress {
		return nil, ErrTaskNotConfirmed
	}
	if err := checkRequiredAttachments(task, attachments); err != nil {
		return nil, err
	}

	completeAt := s.Now()
	onTime := !completeAt.After(task.EndDatetime)
	var overdueBy time.Duration
	if !onTime {
		overdueBy = completeAt.Sub(task.EndDatetime)
	}

	if onTime {
		task.Status = models.StatusCompleted
	} else {
		task.Status = models.StatusOverdue
	}
	task.CompletedAt = &completeAt
	task.UpdatedAt = completeAt

	report := &models.Report{
		TaskID:      task.ID,
		AuthorID:    actorID,
		Text:        text,
		Attachments: attachments,
		CreatedAt:   completeAt,
	}

	if err := s.repo.SaveCompletion(ctx, report, task, nil); err != nil {
		logging.Logger.Errorf("Event ID: TASK_COMPLETE_FAILED, Description: Completion of task %s could not be saved: %v", task.ID.Hex(), err)
		return nil, err
	}

	if err := s.jobs.CancelAll(ctx, task.ID.Hex()); err != nil {
		logging.Logger.Warnf("Event ID: TASK_COMPLETE_JOBS_FAILED, Description: Pending notifications for task %s could not all be removed: %v", task.ID.Hex(), err)
	}

	s.notifyCreator(ctx, task, messaging.RenderTaskCompleted(task, text, overdueText(task.EndDatetime, completeAt)), attachments)

	logging.Logger.Infof("Event ID: TASK_COMPLETED, Description: Task %s finished with status %s", task.ID.Hex(), task.Status)
	return &CompletionResult{Report: report, Task: task, OnTime: onTime, OverdueBy: overdueBy}, nil
}

// CompleteCheckPoint finishes a single checkpoint of a running task.
// Timeliness is judged against the checkpoint's own deadline; the task
// itself keeps running and keeps its pending notifications.
func (s *ReportService) CompleteCheckPoint(ctx context.Context, checkPointID primitive.ObjectID, actorID int64, text string, attachments []models.Attachment) (*CompletionResult, error) {
	cp, err := s.repo.GetCheckPointByID(ctx, checkPointID)
	if err != nil {
		return nil, err
	}
	task, err := s.repo.GetTaskByID(ctx, cp.TaskID)
	if err != nil {
		return nil, err
	}
	if task.ExecutorID != actorID {
		return nil, ErrNotYourTask
	}
	if task.Status.IsTerminal() {
		return nil, ErrTaskAlreadyFinished
	}
	if cp.CompletedAt != nil {
		return nil, ErrCheckPointAlreadyCompleted
	}
	if err := checkRequiredAttachments(task, attachments); err != nil {
		return nil, err
	}

	completeAt := s.Now()
	onTime := !completeAt.After(cp.Deadline)
	var overdueBy time.Duration
	if !onTime {
		overdueBy = completeAt.Sub(cp.Deadline)
	}
	cp.CompletedAt = &completeAt

	report := &models.Report{
		TaskID:       task.ID,
		CheckPointID: &cp.ID,
		AuthorID:     actorID,
		Text:         text,
		Attachments:  attachments,
		CreatedAt:    completeAt,
	}

	if err := s.repo.SaveCompletion(ctx, report, nil, cp); err != nil {
		logging.Logger.Errorf("Event ID: CHECKPOINT_COMPLETE_FAILED, Description: Completion of checkpoint %s could not be saved: %v", cp.ID.Hex(), err)
		return nil, err
	}

	s.notifyCreator(ctx, task, messaging.RenderCheckPointCompleted(task, cp, text, overdueText(cp.Deadline, completeAt)), attachments)

	logging.Logger.Infof("Event ID: CHECKPOINT_COMPLETED, Description: Checkpoint %s of task %s completed, on time: %t", cp.ID.Hex(), task.ID.Hex(), onTime)
	return &CompletionResult{Report: report, Task: task, OnTime: onTime, OverdueBy: overdueBy}, nil
}

// notifyCreator forwards the finished report to the creator and mirrors
// it into the inbox. Delivery problems are logged and swallowed, the
// completion itself is already committed.
func (s *ReportService) notifyCreator(ctx context.Context, task *models.Task, text string, attachments []models.Attachment) {
	if err := s.messenger.Send(ctx, task.CreatorID, text, attachments, messaging.ReplyAction(models.SubjectTaskCreated, task.ID.Hex())); err != nil {
		logging.Logger.Warnf("Event ID: REPORT_NOTIFY_FAILED, Description: Creator %d was not notified about a report for task %s: %v", task.CreatorID, task.ID.Hex(), err)
		return
	}
	if s.inbox == nil {
		return
	}
	n := &models.Notification{
		UserID:    task.CreatorID,
		TaskID:    task.ID.Hex(),
		Subject:   models.SubjectTaskUpdated,
		Message:   text,
		CreatedAt: s.Now(),
	}
	if err := s.inbox.RecordDelivered(ctx, n); err != nil {
		logging.Logger.Warnf("Event ID: INBOX_RECORD_FAILED, Description: Report notification for task %s was not stored in the inbox: %v", task.ID.Hex(), err)
	}
}

func checkRequiredAttachments(task *models.Task, attachments []models.Attachment) error {
	has := func(kind models.ContentType) bool {
		for _, a := range attachments {
			if a.ContentType == kind {
				return true
			}
		}
		return false
	}
	if task.PhotoRequired && !has(models.ContentPhoto) {
		return ErrPhotoRequired
	}
	if task.VideoRequired && !has(models.ContentVideo) {
		return ErrVideoRequired
	}
	if task.FileRequired && !has(models.ContentFile) {
		return ErrFileRequired
	}
	return nil
}

// overdueText renders how late a completion was, empty when on time.
func overdueText(deadline, completeAt time.Time) string {
	if !completeAt.After(deadline) {
		return ""
	}
	return strings.TrimSpace(humanize.RelTime(deadline, completeAt, "", ""))
}
