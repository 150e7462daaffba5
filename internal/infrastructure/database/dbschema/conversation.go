package dbschema

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"livechat-server/handover-api/internal/domain/conversation"
	"livechat-server/handover-api/internal/infrastructure/database"
)

func init() {
	database.RegisterSchemaForAutoMigrate(Conversation{})
	database.RegisterSchemaForAutoMigrate(Message{})
}

// Conversation represents the database schema for visitor conversations
type Conversation struct {
	BaseModel
	WidgetID         uint                `gorm:"index:idx_conversation_widget_session;not null"`
	Widget           WidgetConfig        `gorm:"foreignKey:WidgetID"`
	ClientID         uint                `gorm:"index;not null"`
	SessionID        string              `gorm:"type:varchar(100);index:idx_conversation_widget_session"`
	VisitorSessionID string              `gorm:"type:varchar(100);index"`
	Status           conversation.Status `gorm:"type:varchar(20);index:idx_conversation_status_handoff;not null;default:'active'"`

	AgentHandoff       bool       `gorm:"index:idx_conversation_status_handoff;not null;default:false"`
	HandoffRequested   bool       `gorm:"not null;default:false"`
	HandoffRequestedAt *time.Time `gorm:"type:timestamp"`

	LastActivityAt        *time.Time `gorm:"type:timestamp;index"`
	LastAgentActivityAt   *time.Time `gorm:"type:timestamp"`
	LastVisitorActivityAt *time.Time `gorm:"type:timestamp"`

	ExtensionRemindersCount        int        `gorm:"not null;default:0"`
	VisitorExtensionRemindersCount int        `gorm:"not null;default:0"`
	ExtensionGrantedUntil          *time.Time `gorm:"type:timestamp"`

	VisitorName            string             `gorm:"type:varchar(256)"`
	VisitorEmail           string             `gorm:"type:varchar(256)"`
	VisitorPhone           string             `gorm:"type:varchar(50)"`
	PreferredContactMethod string             `gorm:"type:varchar(20)"`
	ContactMethodDetails   JSONContactDetails `gorm:"type:jsonb"`
	AssignedWhatsAppNumber string             `gorm:"type:varchar(50)"`

	EndedAt     *time.Time `gorm:"type:timestamp"`
	CloseReason string     `gorm:"type:varchar(256)"`

	LastMessage     string `gorm:"type:text"`
	MessageCount    int    `gorm:"not null;default:0"`
	WebhookNotified bool   `gorm:"not null;default:false"`

	Messages []Message `gorm:"foreignKey:ConversationID"`
}

// Message represents the database schema for conversation messages
type Message struct {
	BaseModel
	ConversationID uint   `gorm:"index;not null"`
	Type           string `gorm:"type:varchar(20);not null"`
	Text           string `gorm:"type:text"`
}

// JSONContactDetails stores the visitor's contact details as JSON
type JSONContactDetails struct {
	conversation.ContactDetails
}

func (j JSONContactDetails) Value() (driver.Value, error) {
	return json.Marshal(j.ContactDetails)
}

func (j *JSONContactDetails) Scan(value any) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("expected []byte, got %T", value)
	}
	return json.Unmarshal(bytes, &j.ContactDetails)
}

// NewSchemaConversation creates a database schema from domain conversation
func NewSchemaConversation(c *conversation.Conversation) *Conversation {
	entity := &Conversation{
		BaseModel: BaseModel{
			ID:        c.ID,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		},
		WidgetID:                       c.WidgetID,
		ClientID:                       c.ClientID,
		SessionID:                      c.SessionID,
		VisitorSessionID:               c.VisitorSessionID,
		Status:                         c.Status,
		AgentHandoff:                   c.AgentHandoff,
		HandoffRequested:               c.HandoffRequested,
		HandoffRequestedAt:             c.HandoffRequestedAt,
		LastActivityAt:                 c.LastActivityAt,
		LastAgentActivityAt:            c.LastAgentActivityAt,
		LastVisitorActivityAt:          c.LastVisitorActivityAt,
		ExtensionRemindersCount:        c.ExtensionRemindersCount,
		VisitorExtensionRemindersCount: c.VisitorExtensionRemindersCount,
		ExtensionGrantedUntil:          c.ExtensionGrantedUntil,
		VisitorName:                    c.VisitorName,
		VisitorEmail:                   c.VisitorEmail,
		VisitorPhone:                   c.VisitorPhone,
		PreferredContactMethod:         c.PreferredContactMethod,
		AssignedWhatsAppNumber:         c.AssignedWhatsAppNumber,
		EndedAt:                        c.EndedAt,
		CloseReason:                    c.CloseReason,
		LastMessage:                    c.LastMessage,
		MessageCount:                   c.MessageCount,
		WebhookNotified:                c.WebhookNotified,
	}
	if c.ContactMethodDetails != nil {
		entity.ContactMethodDetails = JSONContactDetails{ContactDetails: *c.ContactMethodDetails}
	}
	return entity
}

// EtoD converts database schema to domain conversation (Entity to Domain)
func (c *Conversation) EtoD() *conversation.Conversation {
	conv := &conversation.Conversation{
		ID:                             c.ID,
		WidgetID:                       c.WidgetID,
		ClientID:                       c.ClientID,
		SessionID:                      c.SessionID,
		VisitorSessionID:               c.VisitorSessionID,
		Status:                         c.Status,
		AgentHandoff:                   c.AgentHandoff,
		HandoffRequested:               c.HandoffRequested,
		HandoffRequestedAt:             c.HandoffRequestedAt,
		LastActivityAt:                 c.LastActivityAt,
		LastAgentActivityAt:            c.LastAgentActivityAt,
		LastVisitorActivityAt:          c.LastVisitorActivityAt,
		ExtensionRemindersCount:        c.ExtensionRemindersCount,
		VisitorExtensionRemindersCount: c.VisitorExtensionRemindersCount,
		ExtensionGrantedUntil:          c.ExtensionGrantedUntil,
		VisitorName:                    c.VisitorName,
		VisitorEmail:                   c.VisitorEmail,
		VisitorPhone:                   c.VisitorPhone,
		PreferredContactMethod:         c.PreferredContactMethod,
		AssignedWhatsAppNumber:         c.AssignedWhatsAppNumber,
		EndedAt:                        c.EndedAt,
		CloseReason:                    c.CloseReason,
		LastMessage:                    c.LastMessage,
		MessageCount:                   c.MessageCount,
		WebhookNotified:                c.WebhookNotified,
		CreatedAt:                      c.CreatedAt,
		UpdatedAt:                      c.UpdatedAt,
	}
	if c.ContactMethodDetails != (JSONContactDetails{}) {
		details := c.ContactMethodDetails.ContactDetails
		conv.ContactMethodDetails = &details
	}
	return conv
}

// NewSchemaMessage creates a database schema from domain message
func NewSchemaMessage(m *conversation.Message) *Message {
	return &Message{
		BaseModel: BaseModel{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
		},
		ConversationID: m.ConversationID,
		Type:           string(m.Type),
		Text:           m.Text,
	}
}

// EtoD converts database message to domain message
func (m *Message) EtoD() *conversation.Message {
	return &conversation.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Type:           conversation.MessageType(m.Type),
		Text:           m.Text,
		CreatedAt:      m.CreatedAt,
	}
}
