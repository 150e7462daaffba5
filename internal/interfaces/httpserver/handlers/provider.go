package handlers

import (
	"github.com/rs/zerolog"

	"livechat-server/handover-api/internal/application/chat"
	"livechat-server/handover-api/internal/config"
	"livechat-server/handover-api/internal/domain/handover"
)

// Provider wires HTTP handlers.
type Provider struct {
	Handover     *HandoverHandler
	Conversation *ConversationHandler
}

func NewProvider(cfg *config.Config, coordinator *handover.Coordinator, chatService *chat.Service, log zerolog.Logger) *Provider {
	return &Provider{
		Handover:     NewHandoverHandler(cfg, coordinator, log),
		Conversation: NewConversationHandler(cfg, chatService, log),
	}
}
