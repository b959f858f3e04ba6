// Package messaging renders user-facing notification texts and hands
// them to the chat delivery gateway.
package messaging

import (
	"context"

	"taskbot-project/microservices/tasks-service/models"
)

// Messenger delivers a message to one recipient. Implementations are
// fire-and-forget from the caller's point of view: a returned error
// means this one attempt failed, there is no retry.
type Messenger interface {
	Send(ctx context.Context, recipientID int64, text string, attachments []models.Attachment, replyAction string) error
}
