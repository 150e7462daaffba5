package widget

import (
	"context"
	"time"
)

// HandoverOptions lists which contact methods a widget offers its visitors.
type HandoverOptions struct {
	Portal   bool `json:"portal"`
	WhatsApp bool `json:"whatsapp"`
	Email    bool `json:"email"`
	Phone    bool `json:"phone"`
	Webhook  bool `json:"webhook"`
}

// Config is the per-widget chat configuration, scoped to one client.
type Config struct {
	ID         uint
	WidgetKey  string
	WidgetName string
	ClientID   uint
	ClientName string
	IsActive   bool

	NotificationEmail        string
	EnableEmailNotifications bool
	NotifyAgentHandoff       bool
	NotifyNewConversation    bool

	EnableHandoverChoice  bool
	HandoverOptions       HandoverOptions
	DefaultHandoverMethod string

	WebhookURL    string
	WebhookSecret string

	EnableWhatsApp              bool
	HandoverWhatsAppNumber      string
	EnableMultipleWhatsAppChats bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HandoverConfigUpdate is a partial update: nil fields are left unchanged.
type HandoverConfigUpdate struct {
	EnableHandoverChoice        *bool
	HandoverOptions             *HandoverOptions
	DefaultHandoverMethod       *string
	WebhookURL                  *string
	WebhookSecret               *string
	HandoverWhatsAppNumber      *string
	EnableMultipleWhatsAppChats *bool
}

func (u HandoverConfigUpdate) IsEmpty() bool {
	return u.EnableHandoverChoice == nil &&
		u.HandoverOptions == nil &&
		u.DefaultHandoverMethod == nil &&
		u.WebhookURL == nil &&
		u.WebhookSecret == nil &&
		u.HandoverWhatsAppNumber == nil &&
		u.EnableMultipleWhatsAppChats == nil
}

type Repository interface {
	FindByID(ctx context.Context, id uint) (*Config, error)
	FindByKey(ctx context.Context, key string) (*Config, error)
	UpdateHandoverConfig(ctx context.Context, widgetID uint, update HandoverConfigUpdate) error
}
