package dbschema

import (
	"github.com/shopspring/decimal"

	"livechat-server/handover-api/internal/domain/usage"
	"livechat-server/handover-api/internal/infrastructure/database"
)

func init() {
	database.RegisterSchemaForAutoMigrate(MessageUsage{})
}

// MessageUsage represents the database schema for billable outbound messages
type MessageUsage struct {
	BaseModel
	ClientID       uint            `gorm:"index:idx_usage_client_created;not null"`
	WidgetID       uint            `gorm:"index;not null"`
	ConversationID uint            `gorm:"index;not null"`
	Channel        string          `gorm:"type:varchar(20);not null"`
	MessageSID     string          `gorm:"type:varchar(64);index"`
	Segments       int             `gorm:"not null;default:1"`
	Price          decimal.Decimal `gorm:"type:numeric(10,5)"`
	PriceUnit      string          `gorm:"type:varchar(10)"`
}

// NewSchemaMessageUsage creates a database schema from domain record
func NewSchemaMessageUsage(r *usage.Record) *MessageUsage {
	return &MessageUsage{
		BaseModel: BaseModel{
			ID:        r.ID,
			CreatedAt: r.CreatedAt,
		},
		ClientID:       r.ClientID,
		WidgetID:       r.WidgetID,
		ConversationID: r.ConversationID,
		Channel:        string(r.Channel),
		MessageSID:     r.MessageSID,
		Segments:       r.Segments,
		Price:          r.Price,
		PriceUnit:      r.PriceUnit,
	}
}

// EtoD converts database schema to domain record (Entity to Domain)
func (m *MessageUsage) EtoD() *usage.Record {
	return &usage.Record{
		ID:             m.ID,
		ClientID:       m.ClientID,
		WidgetID:       m.WidgetID,
		ConversationID: m.ConversationID,
		Channel:        usage.Channel(m.Channel),
		MessageSID:     m.MessageSID,
		Segments:       m.Segments,
		Price:          m.Price,
		PriceUnit:      m.PriceUnit,
		CreatedAt:      m.CreatedAt,
	}
}
