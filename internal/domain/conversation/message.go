package conversation

import (
	"context"
	"time"
)

type MessageType string

const (
	MessageTypeVisitor MessageType = "visitor"
	MessageTypeAgent   MessageType = "agent"
	MessageTypeBot     MessageType = "bot"
	MessageTypeSystem  MessageType = "system"
)

type Message struct {
	ID             uint
	ConversationID uint
	Type           MessageType
	Text           string
	CreatedAt      time.Time
}

type MessageRepository interface {
	Append(ctx context.Context, msg *Message) error
	ListByConversation(ctx context.Context, conversationID uint) ([]*Message, error)
	// DeleteByConversation removes the full message history of a
	// conversation and returns how many rows were purged.
	DeleteByConversation(ctx context.Context, conversationID uint) (int64, error)
}
