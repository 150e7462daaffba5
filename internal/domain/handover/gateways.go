package handover

import "context"

// Twilio error codes that mean the template could not be used for this
// recipient, so the message should be retried as freeform text.
const (
	ErrCodeTemplateVariables   = "21656"
	ErrCodeTemplateNotApproved = "21608"
)

// SendParams addresses one outbound message. A to-number carrying the
// whatsapp: prefix goes out over WhatsApp, anything else over SMS.
type SendParams struct {
	ClientID       uint
	WidgetID       uint
	ConversationID uint
	To             string
	Body           string
	SentBy         string
}

// TemplateParams addresses one outbound templated WhatsApp message.
type TemplateParams struct {
	ClientID       uint
	WidgetID       uint
	ConversationID uint
	To             string
	Variables      map[string]string
	SentBy         string
}

// SendResult is the provider outcome for a single message.
type SendResult struct {
	Success    bool
	MessageSID string
	Status     string
	Error      string
	ErrorCode  string
}

// RetryableAsFreeform reports whether a failed template send should be
// retried as a plain text message.
func (r *SendResult) RetryableAsFreeform() bool {
	if r == nil {
		return false
	}
	return r.ErrorCode == ErrCodeTemplateVariables || r.ErrorCode == ErrCodeTemplateNotApproved
}

type MessagingGateway interface {
	SendMessage(ctx context.Context, params SendParams) (*SendResult, error)
	SendTemplateMessage(ctx context.Context, params TemplateParams) (*SendResult, error)
}

type Email struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type EmailGateway interface {
	SendEmail(ctx context.Context, email Email) error
}

// WebhookResult is the endpoint's reply to a signed delivery.
type WebhookResult struct {
	StatusCode int
	Body       string
}

type WebhookTransport interface {
	// Deliver posts the payload as JSON, signed with an HMAC-SHA256 of the
	// body under the shared secret.
	Deliver(ctx context.Context, url, secret string, payload any) (*WebhookResult, error)
}
