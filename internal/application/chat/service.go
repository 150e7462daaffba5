package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"livechat-server/handover-api/internal/domain/conversation"
	"livechat-server/handover-api/internal/domain/handover"
	"livechat-server/handover-api/internal/domain/inactivity"
	"livechat-server/handover-api/internal/domain/widget"
	"livechat-server/handover-api/internal/infrastructure/database/transaction"
	"livechat-server/handover-api/internal/infrastructure/logger"
	"livechat-server/handover-api/internal/utils/platformerrors"
)

// Service drives the visitor-facing conversation lifecycle: session reuse,
// message flow feeding the activity clocks, and conversation end with
// queued handover reprocessing.
type Service struct {
	convs       conversation.Repository
	msgs        conversation.MessageRepository
	widgets     widget.Repository
	coordinator *handover.Coordinator
	monitor     *inactivity.Monitor
	tx          *transaction.Database
	log         zerolog.Logger
}

func NewService(
	convs conversation.Repository,
	msgs conversation.MessageRepository,
	widgets widget.Repository,
	coordinator *handover.Coordinator,
	monitor *inactivity.Monitor,
	tx *transaction.Database,
) *Service {
	return &Service{
		convs:       convs,
		msgs:        msgs,
		widgets:     widgets,
		coordinator: coordinator,
		monitor:     monitor,
		tx:          tx,
		log:         logger.GetLogger().With().Str("component", "chat").Logger(),
	}
}

// StartParams identifies the widget and the visitor's browser session.
// VisitorSessionID survives across tabs; SessionID is per tab.
type StartParams struct {
	WidgetKey        string
	SessionID        string
	VisitorSessionID string
	VisitorName      string
	VisitorEmail     string
}

// StartConversation returns the visitor's active conversation for the
// session, creating one when none exists. Reuse keeps a returning visitor
// in the same thread instead of spawning a new one per page load.
func (s *Service) StartConversation(ctx context.Context, params StartParams) (*conversation.Conversation, bool, error) {
	cfg, err := s.widgets.FindByKey(ctx, params.WidgetKey)
	if err != nil {
		return nil, false, err
	}
	if !cfg.IsActive {
		return nil, false, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeForbidden, "widget is not active", nil, "")
	}

	// Cross-tab reuse first, then the per-tab session.
	status := conversation.StatusActive
	if params.VisitorSessionID != "" {
		existing, err := s.convs.FindByFilter(ctx, conversation.Filter{
			WidgetID:         &cfg.ID,
			VisitorSessionID: &params.VisitorSessionID,
			Status:           &status,
		})
		if err != nil {
			return nil, false, err
		}
		if len(existing) > 0 {
			return existing[0], true, nil
		}
	}
	if params.SessionID != "" {
		existing, err := s.convs.FindByFilter(ctx, conversation.Filter{
			WidgetID:  &cfg.ID,
			SessionID: &params.SessionID,
			Status:    &status,
		})
		if err != nil {
			return nil, false, err
		}
		if len(existing) > 0 {
			return existing[0], true, nil
		}
	}

	sessionID := params.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	visitorSessionID := params.VisitorSessionID
	if visitorSessionID == "" {
		visitorSessionID = uuid.NewString()
	}
	now := time.Now()
	conv := &conversation.Conversation{
		WidgetID:         cfg.ID,
		ClientID:         cfg.ClientID,
		SessionID:        sessionID,
		VisitorSessionID: visitorSessionID,
		Status:           conversation.StatusActive,
		VisitorName:      params.VisitorName,
		VisitorEmail:     params.VisitorEmail,
		LastActivityAt:   &now,
	}
	if err := s.convs.Create(ctx, conv); err != nil {
		return nil, false, err
	}
	return conv, false, nil
}

// AppendResult is the outcome of one inbound message.
type AppendResult struct {
	Message   *conversation.Message
	Extension *inactivity.ExtensionResult
}

// AppendMessage stores a message, stamps the sender's activity clock and,
// when the sender was already asked about extending, interprets the text as
// an extension reply.
func (s *Service) AppendMessage(ctx context.Context, conversationID uint, text string, msgType conversation.MessageType) (*AppendResult, error) {
	conv, err := s.convs.FindByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.Status != conversation.StatusActive {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeConflict, "conversation has ended", nil, "")
	}

	result := &AppendResult{}

	isAgent := msgType == conversation.MessageTypeAgent
	if conv.AgentHandoff && (msgType == conversation.MessageTypeAgent || msgType == conversation.MessageTypeVisitor) {
		side := conversation.SideVisitor
		if isAgent {
			side = conversation.SideAgent
		}
		if conv.ReminderCount(side) >= 3 && !conv.ExtensionActive(time.Now()) {
			ext, err := s.monitor.HandleExtensionRequest(ctx, conversationID, text, isAgent)
			if err != nil {
				s.log.Warn().Err(err).Uint("conversation_id", conversationID).Msg("extension handling failed")
			} else {
				result.Extension = ext
			}
		}
	}

	msg := &conversation.Message{
		ConversationID: conversationID,
		Type:           msgType,
		Text:           text,
	}
	if err := s.msgs.Append(ctx, msg); err != nil {
		return nil, err
	}
	result.Message = msg

	if msgType == conversation.MessageTypeAgent || msgType == conversation.MessageTypeVisitor {
		if err := s.monitor.UpdateActivityTimestamp(ctx, conversationID, isAgent); err != nil {
			s.log.Warn().Err(err).Uint("conversation_id", conversationID).Msg("activity bump failed")
		}
	}
	return result, nil
}

// Messages returns the conversation history in order.
func (s *Service) Messages(ctx context.Context, conversationID uint) ([]*conversation.Message, error) {
	if _, err := s.convs.FindByID(ctx, conversationID); err != nil {
		return nil, err
	}
	return s.msgs.ListByConversation(ctx, conversationID)
}

// EndConversation closes the conversation and lets the next queued WhatsApp
// handover through for the same client.
func (s *Service) EndConversation(ctx context.Context, conversationID uint, endedBy string) error {
	conv, err := s.convs.FindByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if conv.Status == conversation.StatusEnded {
		return nil
	}

	reason := fmt.Sprintf("Ended by %s", endedBy)
	err = s.tx.RunInTransaction(ctx, func(txCtx context.Context) error {
		if err := s.convs.End(txCtx, conversationID, time.Now(), reason); err != nil {
			return err
		}
		return s.msgs.Append(txCtx, &conversation.Message{
			ConversationID: conversationID,
			Type:           conversation.MessageTypeSystem,
			Text:           "This conversation has been ended.",
		})
	})
	if err != nil {
		return err
	}

	if err := s.coordinator.ProcessQueuedWhatsAppHandovers(ctx, conv.ClientID); err != nil {
		s.log.Warn().Err(err).Uint("client_id", conv.ClientID).Msg("queued handover reprocessing failed")
	}
	return nil
}

// Conversation loads a conversation by ID.
func (s *Service) Conversation(ctx context.Context, conversationID uint) (*conversation.Conversation, error) {
	return s.convs.FindByID(ctx, conversationID)
}
