package inactivity

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"livechat-server/handover-api/internal/domain/conversation"
	"livechat-server/handover-api/internal/infrastructure/metrics"
)

const (
	defaultExtensionMinutes = 10
	minExtensionMinutes     = 1
	maxExtensionMinutes     = 60
)

// IntentKind classifies a reply to the extension ask.
type IntentKind int

const (
	IntentNoMatch IntentKind = iota
	IntentDecline
	IntentExtend
)

// Intent is the parsed extension reply. Minutes is set only for
// IntentExtend and is already clamped.
type Intent struct {
	Kind    IntentKind
	Minutes int
}

var (
	numberRe  = regexp.MustCompile(`(\d+)\s*(?:min(?:ute)?s?)?`)
	declineRe = regexp.MustCompile(`\b(no|stop|end)\b`)
)

// ParseExtensionIntent reads a free-text reply. "yes" alone extends by the
// default; "yes 5", "45 minutes" or a bare "120" extend by that many
// minutes, clamped to [1,60]. An explicit no or stop declines.
func ParseExtensionIntent(message string) Intent {
	text := strings.ToLower(strings.TrimSpace(message))
	if text == "" {
		return Intent{Kind: IntentNoMatch}
	}

	if strings.Contains(text, "yes") {
		minutes := defaultExtensionMinutes
		if m := numberRe.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				minutes = n
			}
		}
		return Intent{Kind: IntentExtend, Minutes: clampMinutes(minutes)}
	}

	if declineRe.MatchString(text) {
		return Intent{Kind: IntentDecline}
	}

	if m := numberRe.FindStringSubmatch(text); m != nil && m[0] == text {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return Intent{Kind: IntentExtend, Minutes: clampMinutes(n)}
		}
	}

	return Intent{Kind: IntentNoMatch}
}

func clampMinutes(n int) int {
	if n < minExtensionMinutes {
		return minExtensionMinutes
	}
	if n > maxExtensionMinutes {
		return maxExtensionMinutes
	}
	return n
}

// ExtensionResult reports whether a reply extended the conversation.
type ExtensionResult struct {
	Extended bool
	Minutes  int
	Until    time.Time
	Message  string
}

// HandleExtensionRequest applies an extension reply from either side. Only
// the requesting side's reminder counter is reset; the grant itself
// suspends the ladder for both sides.
func (m *Monitor) HandleExtensionRequest(ctx context.Context, conversationID uint, message string, isAgent bool) (*ExtensionResult, error) {
	intent := ParseExtensionIntent(message)
	if intent.Kind != IntentExtend {
		return &ExtensionResult{Extended: false}, nil
	}

	side := conversation.SideVisitor
	if isAgent {
		side = conversation.SideAgent
	}

	until := m.now().Add(time.Duration(intent.Minutes) * time.Minute)
	if err := m.convs.GrantExtension(ctx, conversationID, until, side); err != nil {
		return nil, fmt.Errorf("grant extension: %w", err)
	}
	metrics.RecordExtension(string(side))

	confirmation := fmt.Sprintf("Conversation extended by %d minutes. It stays open until %s.",
		intent.Minutes, until.Format("15:04"))

	if isAgent {
		m.confirmToAgent(ctx, conversationID, confirmation)
	} else {
		m.appendSystemMessage(ctx, conversationID, confirmation)
	}

	m.log.Info().
		Uint("conversation_id", conversationID).
		Str("side", string(side)).
		Int("minutes", intent.Minutes).
		Msg("extension granted")

	return &ExtensionResult{
		Extended: true,
		Minutes:  intent.Minutes,
		Until:    until,
		Message:  confirmation,
	}, nil
}

// confirmToAgent sends the grant confirmation to the widget's handover
// WhatsApp number, best effort.
func (m *Monitor) confirmToAgent(ctx context.Context, conversationID uint, text string) {
	conv, err := m.convs.FindByID(ctx, conversationID)
	if err != nil {
		m.log.Warn().Err(err).Uint("conversation_id", conversationID).Msg("load conversation for confirmation failed")
		return
	}
	cfg, err := m.widgets.FindByID(ctx, conv.WidgetID)
	if err != nil || cfg.HandoverWhatsAppNumber == "" {
		return
	}
	m.notifyAgent(ctx, &conversation.HandedOff{
		Conversation:           conv,
		WidgetName:             cfg.WidgetName,
		HandoverWhatsAppNumber: cfg.HandoverWhatsAppNumber,
	}, text)
}
