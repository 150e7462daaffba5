package requests

import (
	"livechat-server/handover-api/internal/domain/handover"
	"livechat-server/handover-api/internal/domain/widget"
)

// CreateHandoverRequest is the payload for a visitor asking for a human.
type CreateHandoverRequest struct {
	ConversationID uint   `json:"conversation_id" binding:"required"`
	WidgetID       uint   `json:"widget_id" binding:"required"`
	ClientID       uint   `json:"client_id" binding:"required"`
	Method         string `json:"method" binding:"required"`
	VisitorName    string `json:"visitor_name"`
	VisitorEmail   string `json:"visitor_email"`
	VisitorPhone   string `json:"visitor_phone"`
	VisitorMessage string `json:"visitor_message"`
}

// ToDomain converts request to domain params
func (r *CreateHandoverRequest) ToDomain() handover.CreateParams {
	return handover.CreateParams{
		ConversationID: r.ConversationID,
		WidgetID:       r.WidgetID,
		ClientID:       r.ClientID,
		Method:         handover.Method(r.Method),
		VisitorName:    r.VisitorName,
		VisitorEmail:   r.VisitorEmail,
		VisitorPhone:   r.VisitorPhone,
		VisitorMessage: r.VisitorMessage,
	}
}

// UpdateHandoverConfigRequest carries a partial widget settings update.
// Absent fields are left unchanged.
type UpdateHandoverConfigRequest struct {
	EnableHandoverChoice        *bool                   `json:"enable_handover_choice"`
	HandoverOptions             *HandoverOptionsPayload `json:"handover_options"`
	DefaultHandoverMethod       *string                 `json:"default_handover_method"`
	WebhookURL                  *string                 `json:"webhook_url"`
	WebhookSecret               *string                 `json:"webhook_secret"`
	HandoverWhatsAppNumber      *string                 `json:"handover_whatsapp_number"`
	EnableMultipleWhatsAppChats *bool                   `json:"enable_multiple_whatsapp_chats"`
}

// HandoverOptionsPayload mirrors the offered contact methods.
type HandoverOptionsPayload struct {
	Portal   bool `json:"portal"`
	WhatsApp bool `json:"whatsapp"`
	Email    bool `json:"email"`
	Phone    bool `json:"phone"`
	Webhook  bool `json:"webhook"`
}

// ToDomain converts request to domain update
func (r *UpdateHandoverConfigRequest) ToDomain() widget.HandoverConfigUpdate {
	update := widget.HandoverConfigUpdate{
		EnableHandoverChoice:        r.EnableHandoverChoice,
		DefaultHandoverMethod:       r.DefaultHandoverMethod,
		WebhookURL:                  r.WebhookURL,
		WebhookSecret:               r.WebhookSecret,
		HandoverWhatsAppNumber:      r.HandoverWhatsAppNumber,
		EnableMultipleWhatsAppChats: r.EnableMultipleWhatsAppChats,
	}
	if r.HandoverOptions != nil {
		update.HandoverOptions = &widget.HandoverOptions{
			Portal:   r.HandoverOptions.Portal,
			WhatsApp: r.HandoverOptions.WhatsApp,
			Email:    r.HandoverOptions.Email,
			Phone:    r.HandoverOptions.Phone,
			Webhook:  r.HandoverOptions.Webhook,
		}
	}
	return update
}
