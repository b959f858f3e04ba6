package repositories

import (
	"fmt"
	"os"
	"time"

	"github.com/gocql/gocql"

	"taskbot-project/microservices/tasks-service/logging"
	"taskbot-project/microservices/tasks-service/models"
)

// NotificationRepo keeps the per-user notification inbox in Cassandra.
// Inbox rows are written after a message was handed to the delivery
// gateway; they are history, not the scheduling source of truth.
type NotificationRepo struct {
	session *gocql.Session
}

// NewNotificationRepo connects to the Cassandra cluster configured via
// the CASS_DB environment variable.
func NewNotificationRepo() (*NotificationRepo, error) {
	db := os.Getenv("CASS_DB")
	if db == "" {
		db = "127.0.0.1"
	}

	cluster := gocql.NewCluster(db)
	cluster.Keyspace = "system"
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, err
	}

	err = session.Query(
		`CREATE KEYSPACE IF NOT EXISTS notifications
         WITH replication = {
             'class': 'SimpleStrategy',
             'replication_factor': 1
         }`).Exec()
	if err != nil {
		logging.Logger.Errorf("Event ID: CASS_KEYSPACE_FAILED, Description: Failed to create keyspace: %v", err)
		return nil, err
	}
	session.Close()

	cluster.Keyspace = "notifications"
	cluster.Consistency = gocql.One
	session, err = cluster.CreateSession()
	if err != nil {
		logging.Logger.Errorf("Event ID: CASS_CONNECT_FAILED, Description: Failed to connect to notifications keyspace: %v", err)
		return nil, err
	}

	logging.Logger.Info("Event ID: CASS_CONNECTED, Description: Connected to Cassandra notifications keyspace.")
	return &NotificationRepo{session: session}, nil
}

func (nr *NotificationRepo) CloseSession() {
	nr.session.Close()
	logging.Logger.Info("Event ID: CASS_SESSION_CLOSED, Description: Cassandra session closed.")
}

// CreateTable creates the notifications inbox table.
func (nr *NotificationRepo) CreateTable() {
	err := nr.session.Query(
		`CREATE TABLE IF NOT EXISTS notifications (
			id UUID,
			user_id BIGINT,
			task_id TEXT,
			subject TEXT,
			message TEXT,
			created_at TIMESTAMP,
			is_read BOOLEAN,
			PRIMARY KEY ((user_id), created_at, id)
		) WITH CLUSTERING ORDER BY (created_at DESC, id ASC)`).Exec()
	if err != nil {
		logging.Logger.Errorf("Event ID: CASS_TABLE_FAILED, Description: Failed to create notifications table: %v", err)
	}
}

func (nr *NotificationRepo) CreateNotification(notification *models.Notification) error {
	if notification.ID == "" {
		notification.ID = gocql.TimeUUID().String()
	}

	err := nr.session.Query(
		`INSERT INTO notifications (id, user_id, task_id, subject, message, created_at, is_read)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		notification.ID, notification.UserID, notification.TaskID, string(notification.Subject),
		notification.Message, notification.CreatedAt, notification.IsRead,
	).Exec()
	if err != nil {
		return fmt.Errorf("failed to create inbox notification: %v", err)
	}
	return nil
}

func (nr *NotificationRepo) GetNotificationsByUserID(userID int64) ([]models.Notification, error) {
	query := `SELECT id, user_id, task_id, subject, message, created_at, is_read
			  FROM notifications WHERE user_id = ?`

	iter := nr.session.Query(query, userID).Iter()
	var notifications []models.Notification
	var notification models.Notification
	var subject string

	for iter.Scan(&notification.ID, &notification.UserID, &notification.TaskID,
		&subject, &notification.Message, &notification.CreatedAt, &notification.IsRead) {
		notification.Subject = models.Subject(subject)
		notifications = append(notifications, notification)
	}

	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to retrieve notifications for user %d: %v", userID, err)
	}

	return notifications, nil
}

func (nr *NotificationRepo) MarkNotificationAsRead(userID int64, notificationID, createdAt string) error {
	uuid, err := gocql.ParseUUID(notificationID)
	if err != nil {
		return fmt.Errorf("invalid notification ID format: %v", err)
	}

	parsedCreatedAt, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return fmt.Errorf("invalid created_at format: %v", err)
	}

	query := `UPDATE notifications SET is_read = true WHERE user_id = ? AND id = ? AND created_at = ?`
	if err := nr.session.Query(query, userID, uuid, parsedCreatedAt).Exec(); err != nil {
		return fmt.Errorf("failed to mark notification as read: %v", err)
	}
	return nil
}

func (nr *NotificationRepo) DeleteNotification(userID int64, notificationID, createdAt string) error {
	uuid, err := gocql.ParseUUID(notificationID)
	if err != nil {
		return fmt.Errorf("invalid notification ID format: %v", err)
	}

	parsedCreatedAt, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return fmt.Errorf("invalid created_at format: %v", err)
	}

	query := `DELETE FROM notifications WHERE user_id = ? AND id = ? AND created_at = ?`
	if err := nr.session.Query(query, userID, uuid, parsedCreatedAt).Exec(); err != nil {
		return fmt.Errorf("failed to delete notification: %v", err)
	}
	return nil
}
