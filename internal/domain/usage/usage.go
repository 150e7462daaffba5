package usage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Channel is the transport a billable message went out on.
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelSMS      Channel = "sms"
)

// Record is one billable outbound message.
type Record struct {
	ID             uint
	ClientID       uint
	WidgetID       uint
	ConversationID uint
	Channel        Channel
	MessageSID     string
	Segments       int
	Price          decimal.Decimal
	PriceUnit      string
	CreatedAt      time.Time
}

// Summary aggregates a client's messaging spend.
type Summary struct {
	ClientID     uint
	MessageCount int64
	TotalPrice   decimal.Decimal
}

type Repository interface {
	Create(ctx context.Context, rec *Record) error
	// SummarizeByClient totals the client's spend since the given time.
	SummarizeByClient(ctx context.Context, clientID uint, since time.Time) (*Summary, error)
}
