package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"xmllibrary/internal/config"
	"xmllibrary/internal/core/domain"
)

// notifyTimeout bounds one webhook call
const notifyTimeout = 10 * time.Second

// NotificationService posts overdue reminders to a staff webhook
type NotificationService struct {
	webhookURL string
	token      string
	enabled    bool
	client     *http.Client
}

// NewNotificationService creates a new notification service.
// It is disabled when no webhook URL is configured.
func NewNotificationService(cfg config.NotifyConfig) *NotificationService {
	url := strings.TrimSpace(cfg.WebhookURL)
	return &NotificationService{
		webhookURL: url,
		token:      cfg.Token,
		enabled:    url != "",
		client:     &http.Client{Timeout: notifyTimeout},
	}
}

// IsEnabled checks if notification is enabled
func (s *NotificationService) IsEnabled() bool {
	return s != nil && s.enabled
}

// OverdueNotice is the webhook payload for overdue loans
type OverdueNotice struct {
	Event      string                    `json:"event"`
	Message    string                    `json:"message"`
	Borrowings []domain.BorrowingDetails `json:"borrowings"`
}

// NotifyOverdue sends the list of overdue loans
func (s *NotificationService) NotifyOverdue(ctx context.Context, loans []domain.BorrowingDetails) error {
	if !s.IsEnabled() || len(loans) == 0 {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📚 %d overdue loan(s)\n", len(loans))
	for _, l := range loans {
		fmt.Fprintf(&b, "#%d %s, borrowed by %s, due %s\n", l.ID, l.BookTitle, l.MemberName, l.DueDate)
	}

	return s.send(ctx, OverdueNotice{Event: EventOverdue, Message: b.String(), Borrowings: loans})
}

// send posts payload as JSON
func (s *NotificationService) send(ctx context.Context, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	log.Printf("✅ Overdue notice sent to webhook")
	return nil
}
