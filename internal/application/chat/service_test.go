package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livechat-server/handover-api/internal/config"
	"livechat-server/handover-api/internal/domain/conversation"
	"livechat-server/handover-api/internal/domain/handover"
	"livechat-server/handover-api/internal/domain/inactivity"
	"livechat-server/handover-api/internal/domain/widget"
)

type stubConvRepo struct {
	conversation.Repository

	byID     map[uint]*conversation.Conversation
	byFilter []*conversation.Conversation
	filters  []conversation.Filter
	created  []*conversation.Conversation
	touched  []conversation.Side
	granted  int
}

func (s *stubConvRepo) Create(_ context.Context, conv *conversation.Conversation) error {
	conv.ID = uint(len(s.created) + 1)
	s.created = append(s.created, conv)
	return nil
}

func (s *stubConvRepo) FindByID(_ context.Context, id uint) (*conversation.Conversation, error) {
	return s.byID[id], nil
}

func (s *stubConvRepo) FindByFilter(_ context.Context, filter conversation.Filter) ([]*conversation.Conversation, error) {
	s.filters = append(s.filters, filter)
	return s.byFilter, nil
}

func (s *stubConvRepo) TouchActivity(_ context.Context, _ uint, side conversation.Side, _ time.Time) error {
	s.touched = append(s.touched, side)
	return nil
}

func (s *stubConvRepo) GrantExtension(_ context.Context, _ uint, _ time.Time, _ conversation.Side) error {
	s.granted++
	return nil
}

type stubMsgRepo struct {
	conversation.MessageRepository

	appended []*conversation.Message
}

func (s *stubMsgRepo) Append(_ context.Context, msg *conversation.Message) error {
	s.appended = append(s.appended, msg)
	return nil
}

type stubWidgetRepo struct {
	widget.Repository

	config *widget.Config
}

func (s *stubWidgetRepo) FindByKey(_ context.Context, _ string) (*widget.Config, error) {
	return s.config, nil
}

func (s *stubWidgetRepo) FindByID(_ context.Context, _ uint) (*widget.Config, error) {
	return s.config, nil
}

type noopMessaging struct{}

func (noopMessaging) SendMessage(_ context.Context, _ handover.SendParams) (*handover.SendResult, error) {
	return &handover.SendResult{Success: true}, nil
}

func (noopMessaging) SendTemplateMessage(_ context.Context, _ handover.TemplateParams) (*handover.SendResult, error) {
	return &handover.SendResult{Success: true}, nil
}

type noopMailer struct{}

func (noopMailer) SendEmail(_ context.Context, _ handover.Email) error { return nil }

type chatFixture struct {
	service *Service
	convs   *stubConvRepo
	msgs    *stubMsgRepo
}

func newChatFixture(widgetCfg *widget.Config) *chatFixture {
	convs := &stubConvRepo{byID: map[uint]*conversation.Conversation{}}
	msgs := &stubMsgRepo{}
	widgets := &stubWidgetRepo{config: widgetCfg}
	appCfg := &config.Config{ServiceName: "handover-api-test", WhatsAppBusyWindow: time.Hour}

	monitor := inactivity.NewMonitor(appCfg, convs, msgs, widgets, noopMessaging{}, noopMailer{}, nil)
	return &chatFixture{
		service: NewService(convs, msgs, widgets, nil, monitor, nil),
		convs:   convs,
		msgs:    msgs,
	}
}

func activeWidget() *widget.Config {
	return &widget.Config{ID: 7, WidgetKey: "wk_test", WidgetName: "Acme Support", ClientID: 3, IsActive: true}
}

func TestStartConversationRejectsInactiveWidget(t *testing.T) {
	cfg := activeWidget()
	cfg.IsActive = false
	f := newChatFixture(cfg)

	_, _, err := f.service.StartConversation(context.Background(), StartParams{WidgetKey: "wk_test"})
	assert.Error(t, err)
	assert.Empty(t, f.convs.created)
}

func TestStartConversationReusesActiveSession(t *testing.T) {
	f := newChatFixture(activeWidget())
	existing := &conversation.Conversation{ID: 9, WidgetID: 7, SessionID: "sess-1", Status: conversation.StatusActive}
	f.convs.byFilter = []*conversation.Conversation{existing}

	conv, resumed, err := f.service.StartConversation(context.Background(), StartParams{
		WidgetKey: "wk_test", SessionID: "sess-1",
	})
	require.NoError(t, err)
	assert.True(t, resumed)
	assert.Equal(t, uint(9), conv.ID)
	assert.Empty(t, f.convs.created)
}

func TestStartConversationPrefersVisitorSession(t *testing.T) {
	f := newChatFixture(activeWidget())
	existing := &conversation.Conversation{ID: 9, WidgetID: 7, VisitorSessionID: "vs-1", Status: conversation.StatusActive}
	f.convs.byFilter = []*conversation.Conversation{existing}

	conv, resumed, err := f.service.StartConversation(context.Background(), StartParams{
		WidgetKey: "wk_test", SessionID: "sess-other-tab", VisitorSessionID: "vs-1",
	})
	require.NoError(t, err)
	assert.True(t, resumed)
	assert.Equal(t, uint(9), conv.ID)

	require.Len(t, f.convs.filters, 1)
	require.NotNil(t, f.convs.filters[0].VisitorSessionID)
	assert.Equal(t, "vs-1", *f.convs.filters[0].VisitorSessionID)
}

func TestStartConversationCreatesNew(t *testing.T) {
	f := newChatFixture(activeWidget())

	conv, resumed, err := f.service.StartConversation(context.Background(), StartParams{
		WidgetKey: "wk_test", VisitorName: "Sam",
	})
	require.NoError(t, err)
	assert.False(t, resumed)
	assert.Equal(t, conversation.StatusActive, conv.Status)
	assert.NotEmpty(t, conv.SessionID)
	assert.NotEmpty(t, conv.VisitorSessionID)
	require.NotNil(t, conv.LastActivityAt)
	require.Len(t, f.convs.created, 1)
}

func TestAppendMessageRejectsEndedConversation(t *testing.T) {
	f := newChatFixture(activeWidget())
	f.convs.byID[1] = &conversation.Conversation{ID: 1, Status: conversation.StatusEnded}

	_, err := f.service.AppendMessage(context.Background(), 1, "hello", conversation.MessageTypeVisitor)
	assert.Error(t, err)
	assert.Empty(t, f.msgs.appended)
}

func TestAppendMessageBumpsSenderActivity(t *testing.T) {
	f := newChatFixture(activeWidget())
	f.convs.byID[1] = &conversation.Conversation{ID: 1, Status: conversation.StatusActive}

	res, err := f.service.AppendMessage(context.Background(), 1, "hello", conversation.MessageTypeAgent)
	require.NoError(t, err)
	require.NotNil(t, res.Message)
	assert.Nil(t, res.Extension)
	assert.Equal(t, []conversation.Side{conversation.SideAgent}, f.convs.touched)
}

func TestAppendMessageBotDoesNotBumpActivity(t *testing.T) {
	f := newChatFixture(activeWidget())
	f.convs.byID[1] = &conversation.Conversation{ID: 1, Status: conversation.StatusActive}

	_, err := f.service.AppendMessage(context.Background(), 1, "auto-reply", conversation.MessageTypeBot)
	require.NoError(t, err)
	assert.Empty(t, f.convs.touched)
}

func TestAppendMessageInterpretsExtensionReply(t *testing.T) {
	f := newChatFixture(activeWidget())
	f.convs.byID[1] = &conversation.Conversation{
		ID: 1, WidgetID: 7, ClientID: 3,
		Status: conversation.StatusActive, AgentHandoff: true,
		VisitorExtensionRemindersCount: 3,
	}

	res, err := f.service.AppendMessage(context.Background(), 1, "yes 15", conversation.MessageTypeVisitor)
	require.NoError(t, err)
	require.NotNil(t, res.Extension)
	assert.True(t, res.Extension.Extended)
	assert.Equal(t, 15, res.Extension.Minutes)
	assert.Equal(t, 1, f.convs.granted)
}

func TestAppendMessageNoExtensionHookBelowLadderEnd(t *testing.T) {
	f := newChatFixture(activeWidget())
	f.convs.byID[1] = &conversation.Conversation{
		ID: 1, Status: conversation.StatusActive, AgentHandoff: true,
		VisitorExtensionRemindersCount: 1,
	}

	res, err := f.service.AppendMessage(context.Background(), 1, "yes", conversation.MessageTypeVisitor)
	require.NoError(t, err)
	assert.Nil(t, res.Extension)
}
