package handover

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Method is the contact channel the visitor picked for the handover.
type Method string

const (
	MethodPortal   Method = "portal"
	MethodWhatsApp Method = "whatsapp"
	MethodEmail    Method = "email"
	MethodPhone    Method = "phone"
	MethodWebhook  Method = "webhook"
)

// ParseMethod validates a raw method string.
func ParseMethod(raw string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(raw))); m {
	case MethodPortal, MethodWhatsApp, MethodEmail, MethodPhone, MethodWebhook:
		return m, nil
	default:
		return "", fmt.Errorf("invalid handover method %q", raw)
	}
}

// Status is the lifecycle state of a handover request.
//
// pending is the only initial state. queued requests re-enter the flow via
// ProcessQueuedWhatsAppHandovers and move to notified; every other
// transition is terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusNotified  Status = "notified"
	StatusQueued    Status = "queued"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Request is one visitor ask to reach a human, tied to a conversation.
type Request struct {
	ID             uint
	PublicID       string
	ConversationID uint
	WidgetID       uint
	ClientID       uint

	Method       Method
	Status       Status
	ErrorMessage string

	VisitorName    string
	VisitorEmail   string
	VisitorPhone   string
	VisitorMessage string

	NotificationSent   bool
	NotificationSentAt *time.Time
	SMSSent            bool
	SMSSentAt          *time.Time

	WebhookURL          string
	WebhookResponseCode *int
	WebhookResponseBody string
	WebhookRetryCount   int

	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Repository interface {
	Create(ctx context.Context, req *Request) error
	FindByID(ctx context.Context, id uint) (*Request, error)
	FindByPublicID(ctx context.Context, publicID string) (*Request, error)

	// SetStatus moves the request to the given status. Reaching notified or
	// completed also stamps completed_at; failed records the error message.
	SetStatus(ctx context.Context, id uint, status Status, errorMessage string) error

	MarkNotificationSent(ctx context.Context, id uint) error
	MarkSMSSent(ctx context.Context, id uint) error

	RecordWebhookResult(ctx context.Context, id uint, url string, statusCode int, body string) error
	IncrementWebhookRetry(ctx context.Context, id uint) (int, error)

	// HasRecentActiveWhatsApp reports whether the client has a WhatsApp
	// request in notified or completed state since the given time, attached
	// to a still-active handed-off conversation.
	HasRecentActiveWhatsApp(ctx context.Context, clientID uint, since time.Time) (bool, error)

	// OldestQueuedWhatsApp returns the longest-waiting queued WhatsApp
	// request for the client, or nil when the queue is empty.
	OldestQueuedWhatsApp(ctx context.Context, clientID uint) (*Request, error)
}
