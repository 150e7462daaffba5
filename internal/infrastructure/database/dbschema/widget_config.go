package dbschema

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"livechat-server/handover-api/internal/domain/widget"
	"livechat-server/handover-api/internal/infrastructure/database"
)

func init() {
	database.RegisterSchemaForAutoMigrate(WidgetConfig{})
}

// WidgetConfig represents the database schema for chat widget configuration
type WidgetConfig struct {
	BaseModel
	WidgetKey  string `gorm:"type:varchar(64);uniqueIndex;not null"`
	WidgetName string `gorm:"type:varchar(256);not null"`
	ClientID   uint   `gorm:"index;not null"`
	ClientName string `gorm:"type:varchar(256)"`
	IsActive   bool   `gorm:"not null;default:true"`

	NotificationEmail        string `gorm:"type:varchar(256)"`
	EnableEmailNotifications bool   `gorm:"not null;default:false"`
	NotifyAgentHandoff       bool   `gorm:"not null;default:true"`
	NotifyNewConversation    bool   `gorm:"not null;default:false"`

	EnableHandoverChoice  bool                `gorm:"not null;default:false"`
	HandoverOptions       JSONHandoverOptions `gorm:"type:jsonb"`
	DefaultHandoverMethod string              `gorm:"type:varchar(20);default:'portal'"`

	WebhookURL    string `gorm:"type:varchar(2048)"`
	WebhookSecret string `gorm:"type:varchar(256)"`

	EnableWhatsApp              bool   `gorm:"not null;default:false"`
	HandoverWhatsAppNumber      string `gorm:"type:varchar(50)"`
	EnableMultipleWhatsAppChats bool   `gorm:"not null;default:false"`
}

// JSONHandoverOptions stores the offered contact methods as JSON
type JSONHandoverOptions struct {
	widget.HandoverOptions
}

func (j JSONHandoverOptions) Value() (driver.Value, error) {
	return json.Marshal(j.HandoverOptions)
}

func (j *JSONHandoverOptions) Scan(value any) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("expected []byte, got %T", value)
	}
	return json.Unmarshal(bytes, &j.HandoverOptions)
}

// NewSchemaWidgetConfig creates a database schema from domain config
func NewSchemaWidgetConfig(c *widget.Config) *WidgetConfig {
	return &WidgetConfig{
		BaseModel: BaseModel{
			ID:        c.ID,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		},
		WidgetKey:                   c.WidgetKey,
		WidgetName:                  c.WidgetName,
		ClientID:                    c.ClientID,
		ClientName:                  c.ClientName,
		IsActive:                    c.IsActive,
		NotificationEmail:           c.NotificationEmail,
		EnableEmailNotifications:    c.EnableEmailNotifications,
		NotifyAgentHandoff:          c.NotifyAgentHandoff,
		NotifyNewConversation:       c.NotifyNewConversation,
		EnableHandoverChoice:        c.EnableHandoverChoice,
		HandoverOptions:             JSONHandoverOptions{HandoverOptions: c.HandoverOptions},
		DefaultHandoverMethod:       c.DefaultHandoverMethod,
		WebhookURL:                  c.WebhookURL,
		WebhookSecret:               c.WebhookSecret,
		EnableWhatsApp:              c.EnableWhatsApp,
		HandoverWhatsAppNumber:      c.HandoverWhatsAppNumber,
		EnableMultipleWhatsAppChats: c.EnableMultipleWhatsAppChats,
	}
}

// EtoD converts database schema to domain config (Entity to Domain)
func (c *WidgetConfig) EtoD() *widget.Config {
	return &widget.Config{
		ID:                          c.ID,
		WidgetKey:                   c.WidgetKey,
		WidgetName:                  c.WidgetName,
		ClientID:                    c.ClientID,
		ClientName:                  c.ClientName,
		IsActive:                    c.IsActive,
		NotificationEmail:           c.NotificationEmail,
		EnableEmailNotifications:    c.EnableEmailNotifications,
		NotifyAgentHandoff:          c.NotifyAgentHandoff,
		NotifyNewConversation:       c.NotifyNewConversation,
		EnableHandoverChoice:        c.EnableHandoverChoice,
		HandoverOptions:             c.HandoverOptions.HandoverOptions,
		DefaultHandoverMethod:       c.DefaultHandoverMethod,
		WebhookURL:                  c.WebhookURL,
		WebhookSecret:               c.WebhookSecret,
		EnableWhatsApp:              c.EnableWhatsApp,
		HandoverWhatsAppNumber:      c.HandoverWhatsAppNumber,
		EnableMultipleWhatsAppChats: c.EnableMultipleWhatsAppChats,
		CreatedAt:                   c.CreatedAt,
		UpdatedAt:                   c.UpdatedAt,
	}
}
