package inactivity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"livechat-server/handover-api/internal/config"
	"livechat-server/handover-api/internal/domain/conversation"
	"livechat-server/handover-api/internal/domain/handover"
	"livechat-server/handover-api/internal/domain/widget"
	"livechat-server/handover-api/internal/infrastructure/logger"
	"livechat-server/handover-api/internal/infrastructure/metrics"
	"livechat-server/handover-api/internal/infrastructure/observability"
)

// Escalation ladder thresholds, measured per side from that side's last
// activity. Each stage fires once: the counter must match the stage's
// expected value for the send to happen.
const (
	firstReminderAfter  = 5 * time.Minute
	secondReminderAfter = 10 * time.Minute
	extensionAskAfter   = 12 * time.Minute
	autoEndAfter        = 15 * time.Minute
)

const (
	reasonAgentInactivity   = "agent inactivity"
	reasonVisitorInactivity = "visitor inactivity"
)

// QueueProcessor promotes parked WhatsApp handovers once a conversation
// ends and the agent frees up.
type QueueProcessor interface {
	ProcessQueuedWhatsAppHandovers(ctx context.Context, clientID uint) error
}

// Monitor watches handed-off conversations and walks each side through the
// reminder ladder, ending and purging conversations that stay silent.
type Monitor struct {
	cfg       *config.Config
	convs     conversation.Repository
	msgs      conversation.MessageRepository
	widgets   widget.Repository
	messaging handover.MessagingGateway
	mailer    handover.EmailGateway
	queue     QueueProcessor
	log       zerolog.Logger
	now       func() time.Time

	sweepMu sync.Mutex
}

func NewMonitor(
	cfg *config.Config,
	convs conversation.Repository,
	msgs conversation.MessageRepository,
	widgets widget.Repository,
	messaging handover.MessagingGateway,
	mailer handover.EmailGateway,
	queue QueueProcessor,
) *Monitor {
	return &Monitor{
		cfg:       cfg,
		convs:     convs,
		msgs:      msgs,
		widgets:   widgets,
		messaging: messaging,
		mailer:    mailer,
		queue:     queue,
		log:       logger.GetLogger().With().Str("component", "inactivity").Logger(),
		now:       time.Now,
	}
}

// CheckInactiveConversations runs one sweep over every handed-off active
// conversation. Overlapping sweeps are skipped rather than queued.
func (m *Monitor) CheckInactiveConversations(ctx context.Context) error {
	if !m.sweepMu.TryLock() {
		m.log.Debug().Msg("sweep already running, skipping")
		return nil
	}
	defer m.sweepMu.Unlock()

	ctx, span := observability.StartSpan(ctx, m.cfg.ServiceName, "inactivity.sweep")
	defer span.End()

	started := m.now()
	defer func() {
		metrics.RecordSweep(m.now().Sub(started).Seconds())
	}()

	items, err := m.convs.ListHandedOff(ctx)
	if err != nil {
		observability.RecordError(ctx, err)
		return fmt.Errorf("list handed-off conversations: %w", err)
	}

	now := m.now()
	for _, item := range items {
		conv := item.Conversation
		if conv.ExtensionActive(now) {
			continue
		}
		ended, err := m.checkSide(ctx, item, conversation.SideAgent, now)
		if err != nil {
			m.log.Error().Err(err).Uint("conversation_id", conv.ID).Msg("agent side check failed")
			continue
		}
		if ended {
			continue
		}
		if _, err := m.checkSide(ctx, item, conversation.SideVisitor, now); err != nil {
			m.log.Error().Err(err).Uint("conversation_id", conv.ID).Msg("visitor side check failed")
		}
	}
	return nil
}

// checkSide advances one side through the ladder. The counter write is
// guarded on its expected value so concurrent sweeps send at most once per
// stage. Returns whether the conversation was ended.
func (m *Monitor) checkSide(ctx context.Context, item *conversation.HandedOff, side conversation.Side, now time.Time) (bool, error) {
	conv := item.Conversation
	last := conv.LastActivity(side)
	if last == nil {
		return false, nil
	}
	inactive := now.Sub(*last)
	count := conv.ReminderCount(side)

	switch {
	case inactive >= autoEndAfter:
		if count >= 3 {
			reason := reasonVisitorInactivity
			if side == conversation.SideAgent {
				reason = reasonAgentInactivity
			}
			if err := m.AutoEndConversation(ctx, item, reason); err != nil {
				return false, err
			}
			return true, nil
		}
	case inactive >= extensionAskAfter:
		if count == 2 {
			applied, err := m.convs.SetReminderCount(ctx, conv.ID, side, 2, 3)
			if err != nil {
				return false, err
			}
			if applied {
				m.sendExtensionAsk(ctx, item, side)
				metrics.RecordReminder(string(side), "extension_ask")
			}
		}
	case inactive >= secondReminderAfter:
		if count == 1 {
			applied, err := m.convs.SetReminderCount(ctx, conv.ID, side, 1, 2)
			if err != nil {
				return false, err
			}
			if applied {
				m.sendReminder(ctx, item, side, 2)
				metrics.RecordReminder(string(side), "second")
			}
		}
	case inactive >= firstReminderAfter:
		if count == 0 {
			applied, err := m.convs.SetReminderCount(ctx, conv.ID, side, 0, 1)
			if err != nil {
				return false, err
			}
			if applied {
				m.sendReminder(ctx, item, side, 1)
				metrics.RecordReminder(string(side), "first")
			}
		}
	}
	return false, nil
}

func (m *Monitor) sendReminder(ctx context.Context, item *conversation.HandedOff, side conversation.Side, stage int) {
	conv := item.Conversation
	if side == conversation.SideAgent {
		var text string
		if stage == 1 {
			text = fmt.Sprintf("Reminder: the visitor in conversation #%d on %s is still waiting for your reply.",
				conv.ID, item.WidgetName)
		} else {
			text = fmt.Sprintf("Second reminder: conversation #%d on %s has had no reply from you for a while. It will be ended automatically if it stays inactive.",
				conv.ID, item.WidgetName)
		}
		m.notifyAgent(ctx, item, text)
		return
	}

	var text string
	if stage == 1 {
		text = "Are you still there? The agent is waiting for your reply."
	} else {
		text = "This conversation will be ended soon if there is no reply."
	}
	m.appendSystemMessage(ctx, conv.ID, text)
}

// sendExtensionAsk is the final warning: the recipient can answer with
// "yes" or a number of minutes to keep the conversation open.
func (m *Monitor) sendExtensionAsk(ctx context.Context, item *conversation.HandedOff, side conversation.Side) {
	conv := item.Conversation
	if side == conversation.SideAgent {
		m.notifyAgent(ctx, item, fmt.Sprintf(
			"Conversation #%d on %s is about to be auto-ended. Reply \"yes\" to extend it by 10 minutes, or a number of minutes (for example \"30 minutes\").",
			conv.ID, item.WidgetName))
		return
	}
	m.appendSystemMessage(ctx, conv.ID,
		"This conversation is about to be ended due to inactivity. Reply \"yes\" to keep it open for another 10 minutes, or tell us how many minutes you need.")
}

// AutoEndConversation terminates and purges a conversation after the ladder
// ran out. Every notification here is best effort; the termination and the
// purge are the only steps that can fail the call.
func (m *Monitor) AutoEndConversation(ctx context.Context, item *conversation.HandedOff, reason string) error {
	conv := item.Conversation
	now := m.now()

	if err := m.convs.End(ctx, conv.ID, now, "Auto-ended due to "+reason); err != nil {
		return fmt.Errorf("end conversation %d: %w", conv.ID, err)
	}

	m.appendSystemMessage(ctx, conv.ID,
		"This conversation has been automatically ended due to inactivity. You can start a new one any time.")

	if item.HandoverWhatsAppNumber != "" {
		if to, err := handover.NormalizeWhatsAppNumber(item.HandoverWhatsAppNumber); err == nil {
			_, serr := m.messaging.SendMessage(ctx, handover.SendParams{
				ClientID:       conv.ClientID,
				WidgetID:       conv.WidgetID,
				ConversationID: conv.ID,
				To:             to,
				Body: fmt.Sprintf("Conversation #%d on %s was ended automatically due to %s.",
					conv.ID, item.WidgetName, reason),
				SentBy: "system",
			})
			if serr != nil {
				m.log.Warn().Err(serr).Uint("conversation_id", conv.ID).Msg("agent end notification failed")
			}
		}
	}

	if conv.VisitorEmail != "" {
		err := m.mailer.SendEmail(ctx, handover.Email{
			To:      conv.VisitorEmail,
			Subject: fmt.Sprintf("Your conversation on %s has ended", item.WidgetName),
			Text: fmt.Sprintf("Hi %s,\n\nYour conversation was closed automatically due to %s. Feel free to start a new one whenever you need us.",
				visitorName(conv), reason),
		})
		if err != nil {
			m.log.Warn().Err(err).Uint("conversation_id", conv.ID).Msg("visitor summary email failed")
		}
	}

	purged, err := m.msgs.DeleteByConversation(ctx, conv.ID)
	if err != nil {
		return fmt.Errorf("purge messages for conversation %d: %w", conv.ID, err)
	}
	if err := m.convs.RecordPurge(ctx, conv.ID); err != nil {
		return fmt.Errorf("record purge for conversation %d: %w", conv.ID, err)
	}

	m.log.Info().
		Uint("conversation_id", conv.ID).
		Str("reason", reason).
		Int64("messages_purged", purged).
		Msg("conversation auto-ended")
	metrics.RecordAutoEnd(reason)

	if m.queue != nil {
		if err := m.queue.ProcessQueuedWhatsAppHandovers(ctx, conv.ClientID); err != nil {
			m.log.Warn().Err(err).Uint("client_id", conv.ClientID).Msg("queued handover reprocessing failed")
		}
	}
	return nil
}

// UpdateActivityTimestamp stamps one side's activity clock. Every message
// and agent action routes through here.
func (m *Monitor) UpdateActivityTimestamp(ctx context.Context, conversationID uint, isAgent bool) error {
	side := conversation.SideVisitor
	if isAgent {
		side = conversation.SideAgent
	}
	return m.convs.TouchActivity(ctx, conversationID, side, m.now())
}

func (m *Monitor) notifyAgent(ctx context.Context, item *conversation.HandedOff, text string) {
	if item.HandoverWhatsAppNumber == "" {
		return
	}
	to, err := handover.NormalizeWhatsAppNumber(item.HandoverWhatsAppNumber)
	if err != nil {
		m.log.Warn().Err(err).Uint("conversation_id", item.Conversation.ID).Msg("invalid handover whatsapp number")
		return
	}
	conv := item.Conversation
	_, err = m.messaging.SendMessage(ctx, handover.SendParams{
		ClientID:       conv.ClientID,
		WidgetID:       conv.WidgetID,
		ConversationID: conv.ID,
		To:             to,
		Body:           text,
		SentBy:         "system",
	})
	if err != nil {
		metrics.RecordNotificationFailure("whatsapp")
		m.log.Warn().Err(err).Uint("conversation_id", conv.ID).Msg("agent reminder failed")
	}
}

func (m *Monitor) appendSystemMessage(ctx context.Context, conversationID uint, text string) {
	msg := &conversation.Message{
		ConversationID: conversationID,
		Type:           conversation.MessageTypeSystem,
		Text:           text,
	}
	if err := m.msgs.Append(ctx, msg); err != nil {
		m.log.Warn().Err(err).Uint("conversation_id", conversationID).Msg("failed to append system message")
	}
}

func visitorName(conv *conversation.Conversation) string {
	if conv.VisitorName != "" {
		return conv.VisitorName
	}
	return "there"
}
