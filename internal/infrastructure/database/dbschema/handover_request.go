package dbschema

import (
	"time"

	"livechat-server/handover-api/internal/domain/handover"
	"livechat-server/handover-api/internal/infrastructure/database"
)

func init() {
	database.RegisterSchemaForAutoMigrate(HandoverRequest{})
}

// HandoverRequest represents the database schema for handover requests
type HandoverRequest struct {
	BaseModel
	PublicID       string       `gorm:"type:varchar(50);uniqueIndex;not null"`
	ConversationID uint         `gorm:"index;not null"`
	Conversation   Conversation `gorm:"foreignKey:ConversationID"`
	WidgetID       uint         `gorm:"index;not null"`
	ClientID       uint         `gorm:"index:idx_handover_client_method_status;not null"`

	Method       handover.Method `gorm:"type:varchar(20);index:idx_handover_client_method_status;not null"`
	Status       handover.Status `gorm:"type:varchar(20);index:idx_handover_client_method_status;not null;default:'pending'"`
	ErrorMessage string          `gorm:"type:text"`

	VisitorName    string `gorm:"type:varchar(256)"`
	VisitorEmail   string `gorm:"type:varchar(256)"`
	VisitorPhone   string `gorm:"type:varchar(50)"`
	VisitorMessage string `gorm:"type:text"`

	NotificationSent   bool       `gorm:"not null;default:false"`
	NotificationSentAt *time.Time `gorm:"type:timestamp"`
	SMSSent            bool       `gorm:"not null;default:false"`
	SMSSentAt          *time.Time `gorm:"type:timestamp"`

	WebhookURL          string `gorm:"type:varchar(2048)"`
	WebhookResponseCode *int
	WebhookResponseBody string `gorm:"type:varchar(1000)"`
	WebhookRetryCount   int    `gorm:"not null;default:0"`

	CompletedAt *time.Time `gorm:"type:timestamp"`
}

// NewSchemaHandoverRequest creates a database schema from domain request
func NewSchemaHandoverRequest(r *handover.Request) *HandoverRequest {
	return &HandoverRequest{
		BaseModel: BaseModel{
			ID:        r.ID,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		},
		PublicID:            r.PublicID,
		ConversationID:      r.ConversationID,
		WidgetID:            r.WidgetID,
		ClientID:            r.ClientID,
		Method:              r.Method,
		Status:              r.Status,
		ErrorMessage:        r.ErrorMessage,
		VisitorName:         r.VisitorName,
		VisitorEmail:        r.VisitorEmail,
		VisitorPhone:        r.VisitorPhone,
		VisitorMessage:      r.VisitorMessage,
		NotificationSent:    r.NotificationSent,
		NotificationSentAt:  r.NotificationSentAt,
		SMSSent:             r.SMSSent,
		SMSSentAt:           r.SMSSentAt,
		WebhookURL:          r.WebhookURL,
		WebhookResponseCode: r.WebhookResponseCode,
		WebhookResponseBody: r.WebhookResponseBody,
		WebhookRetryCount:   r.WebhookRetryCount,
		CompletedAt:         r.CompletedAt,
	}
}

// EtoD converts database schema to domain request (Entity to Domain)
func (r *HandoverRequest) EtoD() *handover.Request {
	return &handover.Request{
		ID:                  r.ID,
		PublicID:            r.PublicID,
		ConversationID:      r.ConversationID,
		WidgetID:            r.WidgetID,
		ClientID:            r.ClientID,
		Method:              r.Method,
		Status:              r.Status,
		ErrorMessage:        r.ErrorMessage,
		VisitorName:         r.VisitorName,
		VisitorEmail:        r.VisitorEmail,
		VisitorPhone:        r.VisitorPhone,
		VisitorMessage:      r.VisitorMessage,
		NotificationSent:    r.NotificationSent,
		NotificationSentAt:  r.NotificationSentAt,
		SMSSent:             r.SMSSent,
		SMSSentAt:           r.SMSSentAt,
		WebhookURL:          r.WebhookURL,
		WebhookResponseCode: r.WebhookResponseCode,
		WebhookResponseBody: r.WebhookResponseBody,
		WebhookRetryCount:   r.WebhookRetryCount,
		CompletedAt:         r.CompletedAt,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}
