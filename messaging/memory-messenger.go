package messaging

import (
	"context"
	"sync"

	"taskbot-project/microservices/tasks-service/models"
)

// SentMessage records one delivery made through the MemoryMessenger.
type SentMessage struct {
	RecipientID int64
	Text        string
	Attachments []models.Attachment
	ReplyAction string
}

// MemoryMessenger collects messages instead of delivering them. It
// backs local development and tests.
type MemoryMessenger struct {
	mu   sync.Mutex
	sent []SentMessage

	// FailWith, when set, makes every Send return this error.
	FailWith error
}

func NewMemoryMessenger() *MemoryMessenger {
	return &MemoryMessenger{}
}

func (m *MemoryMessenger) Send(ctx context.Context, recipientID int64, text string, attachments []models.Attachment, replyAction string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWith != nil {
		return m.FailWith
	}
	m.sent = append(m.sent, SentMessage{
		RecipientID: recipientID,
		Text:        text,
		Attachments: attachments,
		ReplyAction: replyAction,
	})
	return nil
}

// Sent returns a copy of the messages delivered so far.
func (m *MemoryMessenger) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]SentMessage, len(m.sent))
	copy(out, m.sent)
	return out
}
