package conversation

import (
	"context"
	"time"
)

type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

// Side identifies which participant an activity clock or reminder counter
// belongs to. Agent and visitor inactivity are tracked independently.
type Side string

const (
	SideAgent   Side = "agent"
	SideVisitor Side = "visitor"
)

// ContactDetails captures what the visitor supplied when asking for a human.
type ContactDetails struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Message string `json:"message,omitempty"`
}

// Conversation is one visitor chat session on a widget.
type Conversation struct {
	ID               uint
	WidgetID         uint
	ClientID         uint
	SessionID        string
	VisitorSessionID string

	Status             Status
	AgentHandoff       bool
	HandoffRequested   bool
	HandoffRequestedAt *time.Time

	LastActivityAt        *time.Time
	LastAgentActivityAt   *time.Time
	LastVisitorActivityAt *time.Time

	ExtensionRemindersCount        int
	VisitorExtensionRemindersCount int
	ExtensionGrantedUntil          *time.Time

	VisitorName            string
	VisitorEmail           string
	VisitorPhone           string
	PreferredContactMethod string
	ContactMethodDetails   *ContactDetails
	AssignedWhatsAppNumber string

	EndedAt     *time.Time
	CloseReason string

	LastMessage     string
	MessageCount    int
	WebhookNotified bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ReminderCount returns the escalation counter for one side.
func (c *Conversation) ReminderCount(side Side) int {
	if side == SideAgent {
		return c.ExtensionRemindersCount
	}
	return c.VisitorExtensionRemindersCount
}

// LastActivity returns the activity clock for one side. Nil until that side
// has produced its first event.
func (c *Conversation) LastActivity(side Side) *time.Time {
	if side == SideAgent {
		return c.LastAgentActivityAt
	}
	return c.LastVisitorActivityAt
}

// ExtensionActive reports whether a granted extension still suspends the
// escalation ladder. The grant is shared: it covers both sides.
func (c *Conversation) ExtensionActive(now time.Time) bool {
	return c.ExtensionGrantedUntil != nil && now.Before(*c.ExtensionGrantedUntil)
}

type Filter struct {
	ID               *uint
	WidgetID         *uint
	ClientID         *uint
	SessionID        *string
	VisitorSessionID *string
	Status           *Status
}

// HandedOff is a sweep row: the conversation plus the widget notification
// settings the monitor needs to reach the agent.
type HandedOff struct {
	Conversation           *Conversation
	WidgetName             string
	HandoverWhatsAppNumber string
}

type Repository interface {
	Create(ctx context.Context, conv *Conversation) error
	FindByID(ctx context.Context, id uint) (*Conversation, error)
	FindByFilter(ctx context.Context, filter Filter) ([]*Conversation, error)
	Update(ctx context.Context, conv *Conversation) error

	// ListHandedOff returns every live conversation the inactivity sweep
	// must inspect: status=active, agent_handoff=true, last_activity set.
	ListHandedOff(ctx context.Context) ([]*HandedOff, error)

	// MarkHandedOff flips agent handoff on or off and clears the pending
	// request flag; switching it on also bumps the shared activity clock.
	MarkHandedOff(ctx context.Context, id uint, handedOff bool) error

	// SetContactPreference records the visitor's chosen contact method and
	// flags the conversation as awaiting handoff.
	SetContactPreference(ctx context.Context, id uint, method string, details ContactDetails) error

	// SetReminderCount advances one side's escalation counter only when it
	// still holds the expected value. Returns whether the write applied, so
	// overlapping sweeps cannot double-send a reminder.
	SetReminderCount(ctx context.Context, id uint, side Side, expected, next int) (bool, error)

	// GrantExtension suspends escalation until the given time and resets the
	// requesting side's counter. The other side's counter is left untouched.
	GrantExtension(ctx context.Context, id uint, until time.Time, side Side) error

	// TouchActivity stamps one side's activity clock together with the
	// shared last_activity_at.
	TouchActivity(ctx context.Context, id uint, side Side, at time.Time) error

	// End terminates the conversation: status=ended, agent_handoff=false.
	End(ctx context.Context, id uint, endedAt time.Time, closeReason string) error

	// RecordPurge leaves the audit stub after the message history is deleted.
	RecordPurge(ctx context.Context, id uint) error

	MarkWebhookNotified(ctx context.Context, id uint) error
}
