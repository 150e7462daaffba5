package handover

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"livechat-server/handover-api/internal/config"
	"livechat-server/handover-api/internal/domain/conversation"
	"livechat-server/handover-api/internal/domain/widget"
	"livechat-server/handover-api/internal/infrastructure/logger"
	"livechat-server/handover-api/internal/infrastructure/metrics"
	"livechat-server/handover-api/internal/infrastructure/observability"
	"livechat-server/handover-api/internal/utils/handoverid"
)

// errAgentBusy flags the soft-queue path: the request was parked, not failed.
var errAgentBusy = errors.New("agent busy with another whatsapp conversation")

var ErrNotFound = errors.New("handover request not found")

// Coordinator routes visitor handover requests to the configured contact
// channel and owns the queued-WhatsApp reprocessing flow.
type Coordinator struct {
	cfg       *config.Config
	requests  Repository
	convs     conversation.Repository
	msgs      conversation.MessageRepository
	widgets   widget.Repository
	messaging MessagingGateway
	mailer    EmailGateway
	webhooks  WebhookTransport
	log       zerolog.Logger
	now       func() time.Time
}

func NewCoordinator(
	cfg *config.Config,
	requests Repository,
	convs conversation.Repository,
	msgs conversation.MessageRepository,
	widgets widget.Repository,
	messaging MessagingGateway,
	mailer EmailGateway,
	webhooks WebhookTransport,
) *Coordinator {
	return &Coordinator{
		cfg:       cfg,
		requests:  requests,
		convs:     convs,
		msgs:      msgs,
		widgets:   widgets,
		messaging: messaging,
		mailer:    mailer,
		webhooks:  webhooks,
		log:       logger.GetLogger().With().Str("component", "handover").Logger(),
		now:       time.Now,
	}
}

// CreateParams is the validated input for a new handover request.
type CreateParams struct {
	ConversationID uint
	WidgetID       uint
	ClientID       uint
	Method         Method
	VisitorName    string
	VisitorEmail   string
	VisitorPhone   string
	VisitorMessage string
}

// Result is what the caller learns about a dispatched request. Provider
// errors never surface here beyond the generic Message.
type Result struct {
	Success    bool
	HandoverID string
	AgentBusy  bool
	Message    string
}

// CreateHandoverRequest validates, persists and dispatches a handover
// request. Channel failures are absorbed: they mark the request failed and
// come back as an unsuccessful Result, never as an error.
func (c *Coordinator) CreateHandoverRequest(ctx context.Context, params CreateParams) (*Result, error) {
	ctx, span := observability.StartSpan(ctx, c.cfg.ServiceName, "handover.create")
	defer span.End()
	observability.AddSpanAttributes(ctx, attribute.String("handover.method", string(params.Method)))

	if _, err := ParseMethod(string(params.Method)); err != nil {
		return nil, err
	}
	switch params.Method {
	case MethodEmail:
		if params.VisitorEmail == "" {
			return nil, fmt.Errorf("email handover requires a visitor email")
		}
	case MethodWhatsApp, MethodPhone:
		if params.VisitorPhone == "" {
			return nil, fmt.Errorf("%s handover requires a visitor phone number", params.Method)
		}
	}

	req := &Request{
		PublicID:       handoverid.New(),
		ConversationID: params.ConversationID,
		WidgetID:       params.WidgetID,
		ClientID:       params.ClientID,
		Method:         params.Method,
		Status:         StatusPending,
		VisitorName:    params.VisitorName,
		VisitorEmail:   params.VisitorEmail,
		VisitorPhone:   params.VisitorPhone,
		VisitorMessage: params.VisitorMessage,
	}
	if err := c.requests.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("persist handover request: %w", err)
	}

	details := conversation.ContactDetails{
		Name:    params.VisitorName,
		Email:   params.VisitorEmail,
		Phone:   params.VisitorPhone,
		Message: params.VisitorMessage,
	}
	if err := c.convs.SetContactPreference(ctx, params.ConversationID, string(params.Method), details); err != nil {
		return nil, fmt.Errorf("record contact preference: %w", err)
	}

	if err := c.processHandover(ctx, req); err != nil {
		if errors.Is(err, errAgentBusy) {
			metrics.RecordHandover(string(params.Method), string(StatusQueued))
			return &Result{
				Success:    false,
				HandoverID: req.PublicID,
				AgentBusy:  true,
				Message:    "The agent is currently in another conversation. You are in the queue and will be contacted shortly.",
			}, nil
		}
		c.log.Error().Err(err).
			Str("handover_id", req.PublicID).
			Str("method", string(params.Method)).
			Uint("conversation_id", params.ConversationID).
			Msg("handover dispatch failed")
		if serr := c.requests.SetStatus(ctx, req.ID, StatusFailed, err.Error()); serr != nil {
			c.log.Error().Err(serr).Str("handover_id", req.PublicID).Msg("failed to mark handover failed")
		}
		metrics.RecordHandover(string(params.Method), string(StatusFailed))
		return &Result{
			Success:    false,
			HandoverID: req.PublicID,
			Message:    "The handover could not be delivered. Please try again or pick another contact method.",
		}, nil
	}

	metrics.RecordHandover(string(params.Method), string(StatusNotified))
	return &Result{Success: true, HandoverID: req.PublicID}, nil
}

func (c *Coordinator) processHandover(ctx context.Context, req *Request) error {
	switch req.Method {
	case MethodPortal:
		return c.handlePortal(ctx, req)
	case MethodWhatsApp:
		return c.handleWhatsApp(ctx, req)
	case MethodEmail:
		return c.handleEmail(ctx, req)
	case MethodPhone:
		return c.handlePhone(ctx, req)
	case MethodWebhook:
		return c.handleWebhook(ctx, req)
	default:
		return fmt.Errorf("no handler for method %q", req.Method)
	}
}

// handlePortal notifies the agent by email when the widget opted in;
// otherwise the request completes silently and the agent finds it in the
// portal inbox.
func (c *Coordinator) handlePortal(ctx context.Context, req *Request) error {
	cfg, err := c.widgets.FindByID(ctx, req.WidgetID)
	if err != nil {
		return fmt.Errorf("load widget config: %w", err)
	}

	if !cfg.EnableEmailNotifications || !cfg.NotifyAgentHandoff || cfg.NotificationEmail == "" {
		return c.requests.SetStatus(ctx, req.ID, StatusCompleted, "")
	}

	email := Email{
		To:      cfg.NotificationEmail,
		Subject: fmt.Sprintf("New handover request on %s", cfg.WidgetName),
		Text:    c.agentNotificationText(req, cfg),
	}
	if err := c.mailer.SendEmail(ctx, email); err != nil {
		metrics.RecordNotificationFailure("email")
		return fmt.Errorf("send agent notification: %w", err)
	}
	if err := c.requests.MarkNotificationSent(ctx, req.ID); err != nil {
		return err
	}
	return c.requests.SetStatus(ctx, req.ID, StatusNotified, "")
}

// handleWhatsApp delivers the handover over WhatsApp, parking the request in
// the queue when the agent is busy and single-chat mode is on.
func (c *Coordinator) handleWhatsApp(ctx context.Context, req *Request) error {
	cfg, err := c.widgets.FindByID(ctx, req.WidgetID)
	if err != nil {
		return fmt.Errorf("load widget config: %w", err)
	}

	if !cfg.EnableMultipleWhatsAppChats {
		busy, err := c.IsAgentBusyWithWhatsApp(ctx, req.ClientID)
		if err != nil {
			return fmt.Errorf("check agent availability: %w", err)
		}
		if busy {
			if err := c.requests.SetStatus(ctx, req.ID, StatusQueued, ""); err != nil {
				return err
			}
			c.appendSystemMessage(ctx, req.ConversationID,
				"The agent is currently helping another visitor. You are in the queue and will be contacted as soon as they are available.")
			c.log.Info().
				Str("handover_id", req.PublicID).
				Uint("client_id", req.ClientID).
				Msg("whatsapp handover queued, agent busy")
			return errAgentBusy
		}
	}

	to, err := NormalizeWhatsAppNumber(req.VisitorPhone)
	if err != nil {
		return fmt.Errorf("invalid whatsapp number: %w", err)
	}

	if err := c.convs.MarkHandedOff(ctx, req.ConversationID, true); err != nil {
		return fmt.Errorf("mark conversation handed off: %w", err)
	}

	res, err := c.messaging.SendTemplateMessage(ctx, TemplateParams{
		ClientID:       req.ClientID,
		WidgetID:       req.WidgetID,
		ConversationID: req.ConversationID,
		To:             to,
		Variables: map[string]string{
			"1": visitorDisplayName(req),
			"2": cfg.WidgetName,
		},
		SentBy: "system",
	})
	if err == nil && res != nil && !res.Success && res.RetryableAsFreeform() {
		c.log.Info().
			Str("handover_id", req.PublicID).
			Str("error_code", res.ErrorCode).
			Msg("template rejected, falling back to freeform message")
		res, err = c.messaging.SendMessage(ctx, SendParams{
			ClientID:       req.ClientID,
			WidgetID:       req.WidgetID,
			ConversationID: req.ConversationID,
			To:             to,
			Body: fmt.Sprintf("Hi %s, an agent from %s will continue this conversation with you here on WhatsApp.",
				visitorDisplayName(req), cfg.WidgetName),
			SentBy: "system",
		})
	}
	if err != nil {
		metrics.RecordNotificationFailure("whatsapp")
		c.appendSystemMessage(ctx, req.ConversationID,
			"We could not reach you on WhatsApp. Please check the number or pick another contact method.")
		return fmt.Errorf("send whatsapp message: %w", err)
	}
	if res != nil && !res.Success {
		metrics.RecordNotificationFailure("whatsapp")
		c.appendSystemMessage(ctx, req.ConversationID,
			"We could not reach you on WhatsApp. Please check the number or pick another contact method.")
		return fmt.Errorf("send whatsapp message: %s (code %s)", res.Error, res.ErrorCode)
	}

	c.appendSystemMessage(ctx, req.ConversationID,
		"This conversation has been handed over to WhatsApp. An agent will continue with you there.")
	if err := c.requests.MarkNotificationSent(ctx, req.ID); err != nil {
		return err
	}
	return c.requests.SetStatus(ctx, req.ID, StatusNotified, "")
}

// handleEmail acknowledges the visitor by email and notifies the agent when
// a notification address is configured.
func (c *Coordinator) handleEmail(ctx context.Context, req *Request) error {
	cfg, err := c.widgets.FindByID(ctx, req.WidgetID)
	if err != nil {
		return fmt.Errorf("load widget config: %w", err)
	}

	ack := Email{
		To:      req.VisitorEmail,
		Subject: fmt.Sprintf("We received your request on %s", cfg.WidgetName),
		Text: fmt.Sprintf("Hi %s,\n\nThanks for reaching out. An agent will reply to this address as soon as possible.",
			visitorDisplayName(req)),
	}
	if err := c.mailer.SendEmail(ctx, ack); err != nil {
		metrics.RecordNotificationFailure("email")
		return fmt.Errorf("send visitor acknowledgement: %w", err)
	}

	if cfg.EnableEmailNotifications && cfg.NotificationEmail != "" {
		notify := Email{
			To:      cfg.NotificationEmail,
			Subject: fmt.Sprintf("New email handover on %s", cfg.WidgetName),
			Text:    c.agentNotificationText(req, cfg),
		}
		if err := c.mailer.SendEmail(ctx, notify); err != nil {
			metrics.RecordNotificationFailure("email")
			c.log.Warn().Err(err).Str("handover_id", req.PublicID).Msg("agent email notification failed")
		}
	}

	if err := c.requests.MarkNotificationSent(ctx, req.ID); err != nil {
		return err
	}
	return c.requests.SetStatus(ctx, req.ID, StatusNotified, "")
}

// handlePhone texts the visitor an acknowledgement over SMS and notifies the
// agent by email when configured.
func (c *Coordinator) handlePhone(ctx context.Context, req *Request) error {
	cfg, err := c.widgets.FindByID(ctx, req.WidgetID)
	if err != nil {
		return fmt.Errorf("load widget config: %w", err)
	}

	to, err := NormalizePhoneNumber(req.VisitorPhone)
	if err != nil {
		return fmt.Errorf("invalid phone number: %w", err)
	}

	res, err := c.messaging.SendMessage(ctx, SendParams{
		ClientID:       req.ClientID,
		WidgetID:       req.WidgetID,
		ConversationID: req.ConversationID,
		To:             to,
		Body: fmt.Sprintf("Hi %s, we received your callback request on %s. An agent will call you at this number shortly.",
			visitorDisplayName(req), cfg.WidgetName),
		SentBy: "system",
	})
	if err != nil {
		metrics.RecordNotificationFailure("sms")
		return fmt.Errorf("send sms acknowledgement: %w", err)
	}
	if res != nil && !res.Success {
		metrics.RecordNotificationFailure("sms")
		return fmt.Errorf("send sms acknowledgement: %s (code %s)", res.Error, res.ErrorCode)
	}
	if err := c.requests.MarkSMSSent(ctx, req.ID); err != nil {
		return err
	}

	if cfg.EnableEmailNotifications && cfg.NotificationEmail != "" {
		notify := Email{
			To:      cfg.NotificationEmail,
			Subject: fmt.Sprintf("New callback request on %s", cfg.WidgetName),
			Text:    c.agentNotificationText(req, cfg),
		}
		if err := c.mailer.SendEmail(ctx, notify); err != nil {
			metrics.RecordNotificationFailure("email")
			c.log.Warn().Err(err).Str("handover_id", req.PublicID).Msg("agent email notification failed")
		}
	}

	if err := c.requests.MarkNotificationSent(ctx, req.ID); err != nil {
		return err
	}
	return c.requests.SetStatus(ctx, req.ID, StatusNotified, "")
}

// handleWebhook posts the signed handover payload to the widget's endpoint.
// This is the one channel whose failures stay visible on the request row
// with response code and body for the operator to inspect.
func (c *Coordinator) handleWebhook(ctx context.Context, req *Request) error {
	cfg, err := c.widgets.FindByID(ctx, req.WidgetID)
	if err != nil {
		return fmt.Errorf("load widget config: %w", err)
	}
	if cfg.WebhookURL == "" {
		return fmt.Errorf("widget %d has no webhook url configured", req.WidgetID)
	}

	payload := map[string]any{
		"event":           "handover.requested",
		"timestamp":       c.now().UTC().Format(time.RFC3339),
		"handover_id":     req.PublicID,
		"conversation_id": req.ConversationID,
		"widget_id":       req.WidgetID,
		"visitor": map[string]string{
			"name":  req.VisitorName,
			"email": req.VisitorEmail,
			"phone": req.VisitorPhone,
		},
		"message": req.VisitorMessage,
	}

	res, err := c.webhooks.Deliver(ctx, cfg.WebhookURL, cfg.WebhookSecret, payload)
	if err != nil {
		metrics.RecordNotificationFailure("webhook")
		retries, rerr := c.requests.IncrementWebhookRetry(ctx, req.ID)
		if rerr != nil {
			c.log.Error().Err(rerr).Str("handover_id", req.PublicID).Msg("failed to bump webhook retry count")
		}
		return fmt.Errorf("webhook delivery failed (attempt %d of %d): %w", retries, c.cfg.WebhookMaxRetries, err)
	}

	if err := c.requests.RecordWebhookResult(ctx, req.ID, cfg.WebhookURL, res.StatusCode, res.Body); err != nil {
		return err
	}
	if err := c.convs.MarkWebhookNotified(ctx, req.ConversationID); err != nil {
		return err
	}
	if err := c.requests.MarkNotificationSent(ctx, req.ID); err != nil {
		return err
	}
	return c.requests.SetStatus(ctx, req.ID, StatusNotified, "")
}

// IsAgentBusyWithWhatsApp reports whether the client's agent is tied up in a
// recent, still-active WhatsApp conversation. The lookback window keeps
// stale rows from blocking the queue forever.
func (c *Coordinator) IsAgentBusyWithWhatsApp(ctx context.Context, clientID uint) (bool, error) {
	since := c.now().Add(-c.cfg.WhatsAppBusyWindow)
	return c.requests.HasRecentActiveWhatsApp(ctx, clientID, since)
}

// ProcessQueuedWhatsAppHandovers promotes the longest-waiting queued
// WhatsApp request once the agent frees up. Called after a handed-off
// conversation ends.
func (c *Coordinator) ProcessQueuedWhatsAppHandovers(ctx context.Context, clientID uint) error {
	busy, err := c.IsAgentBusyWithWhatsApp(ctx, clientID)
	if err != nil {
		return fmt.Errorf("check agent availability: %w", err)
	}
	if busy {
		return nil
	}

	req, err := c.requests.OldestQueuedWhatsApp(ctx, clientID)
	if err != nil {
		return fmt.Errorf("load queued handovers: %w", err)
	}
	if req == nil {
		return nil
	}

	c.log.Info().
		Str("handover_id", req.PublicID).
		Uint("client_id", clientID).
		Msg("reprocessing queued whatsapp handover")

	if err := c.handleWhatsApp(ctx, req); err != nil {
		if errors.Is(err, errAgentBusy) {
			return nil
		}
		c.log.Error().Err(err).Str("handover_id", req.PublicID).Msg("queued handover reprocessing failed")
		if serr := c.requests.SetStatus(ctx, req.ID, StatusFailed, err.Error()); serr != nil {
			c.log.Error().Err(serr).Str("handover_id", req.PublicID).Msg("failed to mark handover failed")
		}
		metrics.RecordHandover(string(MethodWhatsApp), string(StatusFailed))
		return nil
	}
	metrics.RecordHandover(string(MethodWhatsApp), string(StatusNotified))
	return nil
}

// GetHandoverConfig returns the widget's handover settings.
func (c *Coordinator) GetHandoverConfig(ctx context.Context, widgetID uint) (*widget.Config, error) {
	return c.widgets.FindByID(ctx, widgetID)
}

// UpdateHandoverConfig applies a partial settings update.
func (c *Coordinator) UpdateHandoverConfig(ctx context.Context, widgetID uint, update widget.HandoverConfigUpdate) error {
	if update.IsEmpty() {
		return nil
	}
	return c.widgets.UpdateHandoverConfig(ctx, widgetID, update)
}

// TestWebhook delivers a sample payload so operators can verify their
// endpoint and secret without a real visitor.
func (c *Coordinator) TestWebhook(ctx context.Context, widgetID uint) (*WebhookResult, error) {
	cfg, err := c.widgets.FindByID(ctx, widgetID)
	if err != nil {
		return nil, fmt.Errorf("load widget config: %w", err)
	}
	if cfg.WebhookURL == "" {
		return nil, fmt.Errorf("widget %d has no webhook url configured", widgetID)
	}
	payload := map[string]any{
		"event":     "handover.test",
		"timestamp": c.now().UTC().Format(time.RFC3339),
		"widget_id": widgetID,
	}
	return c.webhooks.Deliver(ctx, cfg.WebhookURL, cfg.WebhookSecret, payload)
}

func (c *Coordinator) appendSystemMessage(ctx context.Context, conversationID uint, text string) {
	msg := &conversation.Message{
		ConversationID: conversationID,
		Type:           conversation.MessageTypeSystem,
		Text:           text,
	}
	if err := c.msgs.Append(ctx, msg); err != nil {
		c.log.Warn().Err(err).Uint("conversation_id", conversationID).Msg("failed to append system message")
	}
}

func (c *Coordinator) agentNotificationText(req *Request, cfg *widget.Config) string {
	return fmt.Sprintf(
		"A visitor asked to speak with you on %s.\n\nName: %s\nEmail: %s\nPhone: %s\nMessage: %s\n\nOpen the conversation: %s",
		cfg.WidgetName,
		visitorDisplayName(req),
		req.VisitorEmail,
		req.VisitorPhone,
		req.VisitorMessage,
		c.cfg.PortalConversationsURL,
	)
}

func visitorDisplayName(req *Request) string {
	if req.VisitorName != "" {
		return req.VisitorName
	}
	return "there"
}
