package responses

import (
	"time"

	"livechat-server/handover-api/internal/domain/handover"
	"livechat-server/handover-api/internal/domain/widget"
)

// HandoverResponse reports the outcome of a handover request.
type HandoverResponse struct {
	Success    bool   `json:"success"`
	HandoverID string `json:"handover_id"`
	AgentBusy  bool   `json:"agent_busy,omitempty"`
	Message    string `json:"message,omitempty"`
}

// BuildHandoverResponse creates response from domain result
func BuildHandoverResponse(result *handover.Result) *HandoverResponse {
	return &HandoverResponse{
		Success:    result.Success,
		HandoverID: result.HandoverID,
		AgentBusy:  result.AgentBusy,
		Message:    result.Message,
	}
}

// HandoverConfigResponse exposes a widget's handover settings. The webhook
// secret is never returned.
type HandoverConfigResponse struct {
	WidgetID                    uint                   `json:"widget_id"`
	WidgetName                  string                 `json:"widget_name"`
	EnableHandoverChoice        bool                   `json:"enable_handover_choice"`
	HandoverOptions             HandoverOptionsPayload `json:"handover_options"`
	DefaultHandoverMethod       string                 `json:"default_handover_method"`
	WebhookURL                  string                 `json:"webhook_url"`
	WebhookSecretSet            bool                   `json:"webhook_secret_set"`
	HandoverWhatsAppNumber      string                 `json:"handover_whatsapp_number"`
	EnableMultipleWhatsAppChats bool                   `json:"enable_multiple_whatsapp_chats"`
	UpdatedAt                   time.Time              `json:"updated_at"`
}

// HandoverOptionsPayload mirrors the offered contact methods.
type HandoverOptionsPayload struct {
	Portal   bool `json:"portal"`
	WhatsApp bool `json:"whatsapp"`
	Email    bool `json:"email"`
	Phone    bool `json:"phone"`
	Webhook  bool `json:"webhook"`
}

// BuildHandoverConfigResponse creates response from domain config
func BuildHandoverConfigResponse(cfg *widget.Config) *HandoverConfigResponse {
	return &HandoverConfigResponse{
		WidgetID:             cfg.ID,
		WidgetName:           cfg.WidgetName,
		EnableHandoverChoice: cfg.EnableHandoverChoice,
		HandoverOptions: HandoverOptionsPayload{
			Portal:   cfg.HandoverOptions.Portal,
			WhatsApp: cfg.HandoverOptions.WhatsApp,
			Email:    cfg.HandoverOptions.Email,
			Phone:    cfg.HandoverOptions.Phone,
			Webhook:  cfg.HandoverOptions.Webhook,
		},
		DefaultHandoverMethod:       cfg.DefaultHandoverMethod,
		WebhookURL:                  cfg.WebhookURL,
		WebhookSecretSet:            cfg.WebhookSecret != "",
		HandoverWhatsAppNumber:      cfg.HandoverWhatsAppNumber,
		EnableMultipleWhatsAppChats: cfg.EnableMultipleWhatsAppChats,
		UpdatedAt:                   cfg.UpdatedAt,
	}
}

// WebhookTestResponse reports a test delivery outcome.
type WebhookTestResponse struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"status_code,omitempty"`
	Body       string `json:"body,omitempty"`
	Error      string `json:"error,omitempty"`
}
