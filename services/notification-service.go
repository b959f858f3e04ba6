package services

import (
	"context"
	"fmt"
	"time"

	"taskbot-project/microservices/tasks-service/logging"
	"taskbot-project/microservices/tasks-service/models"
	"taskbot-project/microservices/tasks-service/repositories"
)

// NotificationService exposes the per-user inbox. It also implements
// the recorder hook the dispatcher calls after a delivery, so every
// message a user received can be re-read later.
type NotificationService struct {
	repo *repositories.NotificationRepo
}

func NewNotificationService(repo *repositories.NotificationRepo) *NotificationService {
	return &NotificationService{repo: repo}
}

// RecordDelivered stores a delivered message into the recipient's
// inbox.
func (s *NotificationService) RecordDelivered(ctx context.Context, notification *models.Notification) error {
	if notification.UserID == 0 || notification.Message == "" {
		return fmt.Errorf("inbox notification must carry a recipient and a message")
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now()
	}
	notification.IsRead = false

	if err := s.repo.CreateNotification(notification); err != nil {
		logging.Logger.Errorf("Event ID: INBOX_WRITE_FAILED, Description: Failed to store notification for user %d: %v", notification.UserID, err)
		return err
	}
	return nil
}

func (s *NotificationService) GetNotificationsByUserID(ctx context.Context, userID int64) ([]models.Notification, error) {
	return s.repo.GetNotificationsByUserID(userID)
}

func (s *NotificationService) MarkNotificationAsRead(ctx context.Context, userID int64, notificationID, createdAt string) error {
	if err := s.repo.MarkNotificationAsRead(userID, notificationID, createdAt); err != nil {
		return err
	}
	logging.Logger.Infof("Event ID: INBOX_MARKED_READ, Description: Notification %s marked as read for user %d", notificationID, userID)
	return nil
}

func (s *NotificationService) DeleteNotification(ctx context.Context, userID int64, notificationID, createdAt string) error {
	return s.repo.DeleteNotification(userID, notificationID, createdAt)
}
