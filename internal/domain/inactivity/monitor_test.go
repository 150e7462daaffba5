package inactivity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livechat-server/handover-api/internal/config"
	"livechat-server/handover-api/internal/domain/conversation"
	"livechat-server/handover-api/internal/domain/handover"
	"livechat-server/handover-api/internal/domain/widget"
)

type reminderWrite struct {
	id             uint
	side           conversation.Side
	expected, next int
}

type extensionGrant struct {
	id    uint
	until time.Time
	side  conversation.Side
}

type endCall struct {
	id          uint
	endedAt     time.Time
	closeReason string
}

type fakeConvRepo struct {
	conversation.Repository

	byID      map[uint]*conversation.Conversation
	handedOff []*conversation.HandedOff

	reminderWrites []reminderWrite
	casApplies     bool
	grants         []extensionGrant
	ends           []endCall
	purged         []uint
	touched        []reminderWrite
}

func newFakeConvRepo() *fakeConvRepo {
	return &fakeConvRepo{byID: map[uint]*conversation.Conversation{}, casApplies: true}
}

func (f *fakeConvRepo) FindByID(_ context.Context, id uint) (*conversation.Conversation, error) {
	return f.byID[id], nil
}

func (f *fakeConvRepo) ListHandedOff(_ context.Context) ([]*conversation.HandedOff, error) {
	return f.handedOff, nil
}

func (f *fakeConvRepo) SetReminderCount(_ context.Context, id uint, side conversation.Side, expected, next int) (bool, error) {
	f.reminderWrites = append(f.reminderWrites, reminderWrite{id: id, side: side, expected: expected, next: next})
	return f.casApplies, nil
}

func (f *fakeConvRepo) GrantExtension(_ context.Context, id uint, until time.Time, side conversation.Side) error {
	f.grants = append(f.grants, extensionGrant{id: id, until: until, side: side})
	return nil
}

func (f *fakeConvRepo) TouchActivity(_ context.Context, id uint, side conversation.Side, _ time.Time) error {
	f.touched = append(f.touched, reminderWrite{id: id, side: side})
	return nil
}

func (f *fakeConvRepo) End(_ context.Context, id uint, endedAt time.Time, closeReason string) error {
	f.ends = append(f.ends, endCall{id: id, endedAt: endedAt, closeReason: closeReason})
	return nil
}

func (f *fakeConvRepo) RecordPurge(_ context.Context, id uint) error {
	f.purged = append(f.purged, id)
	return nil
}

type fakeMsgRepo struct {
	conversation.MessageRepository

	appended []*conversation.Message
	deleted  []uint
}

func (f *fakeMsgRepo) Append(_ context.Context, msg *conversation.Message) error {
	f.appended = append(f.appended, msg)
	return nil
}

func (f *fakeMsgRepo) DeleteByConversation(_ context.Context, conversationID uint) (int64, error) {
	f.deleted = append(f.deleted, conversationID)
	return 4, nil
}

type fakeWidgetRepo struct {
	widget.Repository

	config *widget.Config
}

func (f *fakeWidgetRepo) FindByID(_ context.Context, _ uint) (*widget.Config, error) {
	return f.config, nil
}

type fakeMessaging struct {
	sent []handover.SendParams
}

func (f *fakeMessaging) SendMessage(_ context.Context, params handover.SendParams) (*handover.SendResult, error) {
	f.sent = append(f.sent, params)
	return &handover.SendResult{Success: true}, nil
}

func (f *fakeMessaging) SendTemplateMessage(_ context.Context, params handover.TemplateParams) (*handover.SendResult, error) {
	return &handover.SendResult{Success: true}, nil
}

type fakeMailer struct {
	sent []handover.Email
}

func (f *fakeMailer) SendEmail(_ context.Context, email handover.Email) error {
	f.sent = append(f.sent, email)
	return nil
}

type fakeQueue struct {
	clientIDs []uint
}

func (f *fakeQueue) ProcessQueuedWhatsAppHandovers(_ context.Context, clientID uint) error {
	f.clientIDs = append(f.clientIDs, clientID)
	return nil
}

type monitorFixture struct {
	monitor   *Monitor
	convs     *fakeConvRepo
	msgs      *fakeMsgRepo
	widgets   *fakeWidgetRepo
	messaging *fakeMessaging
	mailer    *fakeMailer
	queue     *fakeQueue
	clock     time.Time
}

func newMonitorFixture() *monitorFixture {
	f := &monitorFixture{
		convs: newFakeConvRepo(),
		msgs:  &fakeMsgRepo{},
		widgets: &fakeWidgetRepo{config: &widget.Config{
			ID:                     7,
			WidgetName:             "Acme Support",
			ClientID:               3,
			HandoverWhatsAppNumber: "+15550001111",
		}},
		messaging: &fakeMessaging{},
		mailer:    &fakeMailer{},
		queue:     &fakeQueue{},
		clock:     time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	}
	cfg := &config.Config{ServiceName: "handover-api-test"}
	f.monitor = NewMonitor(cfg, f.convs, f.msgs, f.widgets, f.messaging, f.mailer, f.queue)
	f.monitor.now = func() time.Time { return f.clock }
	return f
}

func (f *monitorFixture) addConversation(conv *conversation.Conversation) {
	f.convs.byID[conv.ID] = conv
	f.convs.handedOff = append(f.convs.handedOff, &conversation.HandedOff{
		Conversation:           conv,
		WidgetName:             "Acme Support",
		HandoverWhatsAppNumber: "+15550001111",
	})
}

func (f *monitorFixture) ago(d time.Duration) *time.Time {
	t := f.clock.Add(-d)
	return &t
}

func TestSweepFirstReminder(t *testing.T) {
	f := newMonitorFixture()
	f.addConversation(&conversation.Conversation{
		ID: 1, WidgetID: 7, ClientID: 3,
		Status: conversation.StatusActive, AgentHandoff: true,
		LastAgentActivityAt:   f.ago(6 * time.Minute),
		LastVisitorActivityAt: f.ago(time.Minute),
	})

	require.NoError(t, f.monitor.CheckInactiveConversations(context.Background()))

	require.Len(t, f.convs.reminderWrites, 1)
	assert.Equal(t, reminderWrite{id: 1, side: conversation.SideAgent, expected: 0, next: 1}, f.convs.reminderWrites[0])

	require.Len(t, f.messaging.sent, 1)
	assert.Contains(t, f.messaging.sent[0].Body, "Reminder")
	assert.Empty(t, f.msgs.appended)
}

func TestSweepVisitorSecondReminder(t *testing.T) {
	f := newMonitorFixture()
	f.addConversation(&conversation.Conversation{
		ID: 2, WidgetID: 7, ClientID: 3,
		Status: conversation.StatusActive, AgentHandoff: true,
		LastAgentActivityAt:            f.ago(time.Minute),
		LastVisitorActivityAt:          f.ago(11 * time.Minute),
		VisitorExtensionRemindersCount: 1,
	})

	require.NoError(t, f.monitor.CheckInactiveConversations(context.Background()))

	require.Len(t, f.convs.reminderWrites, 1)
	assert.Equal(t, reminderWrite{id: 2, side: conversation.SideVisitor, expected: 1, next: 2}, f.convs.reminderWrites[0])

	require.Len(t, f.msgs.appended, 1)
	assert.Equal(t, conversation.MessageTypeSystem, f.msgs.appended[0].Type)
	assert.Empty(t, f.messaging.sent)
}

func TestSweepExtensionAsk(t *testing.T) {
	f := newMonitorFixture()
	f.addConversation(&conversation.Conversation{
		ID: 3, WidgetID: 7, ClientID: 3,
		Status: conversation.StatusActive, AgentHandoff: true,
		LastAgentActivityAt:            f.ago(time.Minute),
		LastVisitorActivityAt:          f.ago(13 * time.Minute),
		VisitorExtensionRemindersCount: 2,
	})

	require.NoError(t, f.monitor.CheckInactiveConversations(context.Background()))

	require.Len(t, f.convs.reminderWrites, 1)
	assert.Equal(t, reminderWrite{id: 3, side: conversation.SideVisitor, expected: 2, next: 3}, f.convs.reminderWrites[0])

	require.Len(t, f.msgs.appended, 1)
	assert.Contains(t, f.msgs.appended[0].Text, "yes")
}

func TestSweepStageSkippedWhenCounterAhead(t *testing.T) {
	f := newMonitorFixture()
	// 6 minutes idle but the first reminder already went out
	f.addConversation(&conversation.Conversation{
		ID: 4, WidgetID: 7, ClientID: 3,
		Status: conversation.StatusActive, AgentHandoff: true,
		LastAgentActivityAt:     f.ago(6 * time.Minute),
		ExtensionRemindersCount: 1,
	})

	require.NoError(t, f.monitor.CheckInactiveConversations(context.Background()))

	assert.Empty(t, f.convs.reminderWrites)
	assert.Empty(t, f.messaging.sent)
}

func TestSweepLostCASSendsNothing(t *testing.T) {
	f := newMonitorFixture()
	f.convs.casApplies = false
	f.addConversation(&conversation.Conversation{
		ID: 5, WidgetID: 7, ClientID: 3,
		Status: conversation.StatusActive, AgentHandoff: true,
		LastAgentActivityAt: f.ago(6 * time.Minute),
	})

	require.NoError(t, f.monitor.CheckInactiveConversations(context.Background()))

	require.Len(t, f.convs.reminderWrites, 1)
	assert.Empty(t, f.messaging.sent)
	assert.Empty(t, f.msgs.appended)
}

func TestSweepExtensionSuspendsBothSides(t *testing.T) {
	f := newMonitorFixture()
	until := f.clock.Add(5 * time.Minute)
	f.addConversation(&conversation.Conversation{
		ID: 6, WidgetID: 7, ClientID: 3,
		Status: conversation.StatusActive, AgentHandoff: true,
		LastAgentActivityAt:   f.ago(20 * time.Minute),
		LastVisitorActivityAt: f.ago(20 * time.Minute),
		ExtensionGrantedUntil: &until,
	})

	require.NoError(t, f.monitor.CheckInactiveConversations(context.Background()))

	assert.Empty(t, f.convs.reminderWrites)
	assert.Empty(t, f.convs.ends)
}

func TestSweepExpiredExtensionResumesLadder(t *testing.T) {
	f := newMonitorFixture()
	until := f.clock.Add(-time.Minute)
	f.addConversation(&conversation.Conversation{
		ID: 7, WidgetID: 7, ClientID: 3,
		Status: conversation.StatusActive, AgentHandoff: true,
		LastAgentActivityAt:   f.ago(6 * time.Minute),
		ExtensionGrantedUntil: &until,
	})

	require.NoError(t, f.monitor.CheckInactiveConversations(context.Background()))

	require.Len(t, f.convs.reminderWrites, 1)
}

func TestSweepSideWithoutActivitySkipped(t *testing.T) {
	f := newMonitorFixture()
	f.addConversation(&conversation.Conversation{
		ID: 8, WidgetID: 7, ClientID: 3,
		Status: conversation.StatusActive, AgentHandoff: true,
		LastVisitorActivityAt: f.ago(6 * time.Minute),
	})

	require.NoError(t, f.monitor.CheckInactiveConversations(context.Background()))

	require.Len(t, f.convs.reminderWrites, 1)
	assert.Equal(t, conversation.SideVisitor, f.convs.reminderWrites[0].side)
}

func TestSweepAutoEndsAfterLadder(t *testing.T) {
	f := newMonitorFixture()
	f.addConversation(&conversation.Conversation{
		ID: 9, WidgetID: 7, ClientID: 3,
		Status: conversation.StatusActive, AgentHandoff: true,
		VisitorName: "Sam", VisitorEmail: "sam@visitor.test",
		LastAgentActivityAt:            f.ago(time.Minute),
		LastVisitorActivityAt:          f.ago(16 * time.Minute),
		VisitorExtensionRemindersCount: 3,
	})

	require.NoError(t, f.monitor.CheckInactiveConversations(context.Background()))

	require.Len(t, f.convs.ends, 1)
	assert.Equal(t, uint(9), f.convs.ends[0].id)
	assert.Equal(t, "Auto-ended due to visitor inactivity", f.convs.ends[0].closeReason)
	assert.Equal(t, f.clock, f.convs.ends[0].endedAt)

	assert.Equal(t, []uint{9}, f.msgs.deleted)
	assert.Equal(t, []uint{9}, f.convs.purged)

	// agent heads-up over WhatsApp, visitor summary by email
	require.Len(t, f.messaging.sent, 1)
	assert.Equal(t, "whatsapp:+15550001111", f.messaging.sent[0].To)
	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "sam@visitor.test", f.mailer.sent[0].To)

	assert.Equal(t, []uint{3}, f.queue.clientIDs)
}

func TestSweepAutoEndNotBeforeLadderDone(t *testing.T) {
	f := newMonitorFixture()
	// idle long enough to end, but only one reminder sent so far
	f.addConversation(&conversation.Conversation{
		ID: 10, WidgetID: 7, ClientID: 3,
		Status: conversation.StatusActive, AgentHandoff: true,
		LastVisitorActivityAt:          f.ago(16 * time.Minute),
		VisitorExtensionRemindersCount: 1,
	})

	require.NoError(t, f.monitor.CheckInactiveConversations(context.Background()))

	assert.Empty(t, f.convs.ends)
	assert.Empty(t, f.convs.reminderWrites)
}

func TestSweepAgentAutoEndShortCircuitsVisitorCheck(t *testing.T) {
	f := newMonitorFixture()
	f.addConversation(&conversation.Conversation{
		ID: 11, WidgetID: 7, ClientID: 3,
		Status: conversation.StatusActive, AgentHandoff: true,
		LastAgentActivityAt:            f.ago(16 * time.Minute),
		LastVisitorActivityAt:          f.ago(16 * time.Minute),
		ExtensionRemindersCount:        3,
		VisitorExtensionRemindersCount: 3,
	})

	require.NoError(t, f.monitor.CheckInactiveConversations(context.Background()))

	require.Len(t, f.convs.ends, 1)
	assert.Equal(t, "Auto-ended due to agent inactivity", f.convs.ends[0].closeReason)
}

func TestUpdateActivityTimestamp(t *testing.T) {
	f := newMonitorFixture()

	require.NoError(t, f.monitor.UpdateActivityTimestamp(context.Background(), 1, true))
	require.NoError(t, f.monitor.UpdateActivityTimestamp(context.Background(), 1, false))

	require.Len(t, f.convs.touched, 2)
	assert.Equal(t, conversation.SideAgent, f.convs.touched[0].side)
	assert.Equal(t, conversation.SideVisitor, f.convs.touched[1].side)
}
