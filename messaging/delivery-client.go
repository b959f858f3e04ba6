package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"taskbot-project/microservices/tasks-service/models"
)

// DeliveryClient sends messages through the bot gateway over HTTP. The
// call is wrapped in a circuit breaker so a dead gateway fails fast
// instead of piling up blocked dispatch workers.
type DeliveryClient struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

func NewDeliveryClient(baseURL string, breaker *gobreaker.CircuitBreaker) *DeliveryClient {
	return &DeliveryClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		breaker:    breaker,
	}
}

type sendRequest struct {
	RecipientID int64               `json:"recipientId"`
	Text        string              `json:"text"`
	Attachments []models.Attachment `json:"attachments,omitempty"`
	ReplyAction string              `json:"replyAction,omitempty"`
}

func (c *DeliveryClient) Send(ctx context.Context, recipientID int64, text string, attachments []models.Attachment, replyAction string) error {
	body, err := json.Marshal(sendRequest{
		RecipientID: recipientID,
		Text:        text,
		Attachments: attachments,
		ReplyAction: replyAction,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal send request: %v", err)
	}

	_, err = c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/messages/send", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("failed to deliver message to %d: %v", recipientID, err)
	}
	return nil
}
