package handover

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livechat-server/handover-api/internal/config"
	"livechat-server/handover-api/internal/domain/conversation"
	"livechat-server/handover-api/internal/domain/widget"
)

type mockRequestRepo struct {
	created      []*Request
	statusByID   map[uint]Status
	errorByID    map[uint]string
	notifiedIDs  []uint
	smsSentIDs   []uint
	webhookCalls []webhookRecord
	retryCount   int
	busy         bool
	busyErr      error
	queued       *Request
	nextID       uint
}

type webhookRecord struct {
	id         uint
	url        string
	statusCode int
	body       string
}

func newMockRequestRepo() *mockRequestRepo {
	return &mockRequestRepo{
		statusByID: map[uint]Status{},
		errorByID:  map[uint]string{},
	}
}

func (m *mockRequestRepo) Create(_ context.Context, req *Request) error {
	m.nextID++
	req.ID = m.nextID
	m.created = append(m.created, req)
	m.statusByID[req.ID] = req.Status
	return nil
}

func (m *mockRequestRepo) FindByID(_ context.Context, id uint) (*Request, error) {
	for _, r := range m.created {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRequestRepo) FindByPublicID(_ context.Context, publicID string) (*Request, error) {
	for _, r := range m.created {
		if r.PublicID == publicID {
			return r, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRequestRepo) SetStatus(_ context.Context, id uint, status Status, errorMessage string) error {
	m.statusByID[id] = status
	m.errorByID[id] = errorMessage
	return nil
}

func (m *mockRequestRepo) MarkNotificationSent(_ context.Context, id uint) error {
	m.notifiedIDs = append(m.notifiedIDs, id)
	return nil
}

func (m *mockRequestRepo) MarkSMSSent(_ context.Context, id uint) error {
	m.smsSentIDs = append(m.smsSentIDs, id)
	return nil
}

func (m *mockRequestRepo) RecordWebhookResult(_ context.Context, id uint, url string, statusCode int, body string) error {
	m.webhookCalls = append(m.webhookCalls, webhookRecord{id: id, url: url, statusCode: statusCode, body: body})
	return nil
}

func (m *mockRequestRepo) IncrementWebhookRetry(_ context.Context, id uint) (int, error) {
	m.retryCount++
	return m.retryCount, nil
}

func (m *mockRequestRepo) HasRecentActiveWhatsApp(_ context.Context, _ uint, _ time.Time) (bool, error) {
	return m.busy, m.busyErr
}

func (m *mockRequestRepo) OldestQueuedWhatsApp(_ context.Context, _ uint) (*Request, error) {
	return m.queued, nil
}

type mockConvRepo struct {
	conversation.Repository

	handedOff       map[uint]bool
	preferences     map[uint]string
	webhookNotified []uint
}

func newMockConvRepo() *mockConvRepo {
	return &mockConvRepo{
		handedOff:   map[uint]bool{},
		preferences: map[uint]string{},
	}
}

func (m *mockConvRepo) MarkHandedOff(_ context.Context, id uint, handedOff bool) error {
	m.handedOff[id] = handedOff
	return nil
}

func (m *mockConvRepo) SetContactPreference(_ context.Context, id uint, method string, _ conversation.ContactDetails) error {
	m.preferences[id] = method
	return nil
}

func (m *mockConvRepo) MarkWebhookNotified(_ context.Context, id uint) error {
	m.webhookNotified = append(m.webhookNotified, id)
	return nil
}

type mockMsgRepo struct {
	conversation.MessageRepository

	appended []*conversation.Message
}

func (m *mockMsgRepo) Append(_ context.Context, msg *conversation.Message) error {
	m.appended = append(m.appended, msg)
	return nil
}

type mockWidgetRepo struct {
	config  *widget.Config
	updates []widget.HandoverConfigUpdate
}

func (m *mockWidgetRepo) FindByID(_ context.Context, _ uint) (*widget.Config, error) {
	return m.config, nil
}

func (m *mockWidgetRepo) FindByKey(_ context.Context, _ string) (*widget.Config, error) {
	return m.config, nil
}

func (m *mockWidgetRepo) UpdateHandoverConfig(_ context.Context, _ uint, update widget.HandoverConfigUpdate) error {
	m.updates = append(m.updates, update)
	return nil
}

type mockMessaging struct {
	sent          []SendParams
	templatesSent []TemplateParams

	sendResult     *SendResult
	sendErr        error
	templateResult *SendResult
	templateErr    error
}

func (m *mockMessaging) SendMessage(_ context.Context, params SendParams) (*SendResult, error) {
	m.sent = append(m.sent, params)
	if m.sendResult == nil && m.sendErr == nil {
		return &SendResult{Success: true, MessageSID: "SM1"}, nil
	}
	return m.sendResult, m.sendErr
}

func (m *mockMessaging) SendTemplateMessage(_ context.Context, params TemplateParams) (*SendResult, error) {
	m.templatesSent = append(m.templatesSent, params)
	if m.templateResult == nil && m.templateErr == nil {
		return &SendResult{Success: true, MessageSID: "SM2"}, nil
	}
	return m.templateResult, m.templateErr
}

type mockMailer struct {
	sent    []Email
	sendErr error
}

func (m *mockMailer) SendEmail(_ context.Context, email Email) error {
	m.sent = append(m.sent, email)
	return m.sendErr
}

type mockWebhooks struct {
	deliveries []any
	result     *WebhookResult
	err        error
}

func (m *mockWebhooks) Deliver(_ context.Context, _, _ string, payload any) (*WebhookResult, error) {
	m.deliveries = append(m.deliveries, payload)
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &WebhookResult{StatusCode: 200, Body: "ok"}, nil
}

type coordinatorFixture struct {
	coordinator *Coordinator
	requests    *mockRequestRepo
	convs       *mockConvRepo
	msgs        *mockMsgRepo
	widgets     *mockWidgetRepo
	messaging   *mockMessaging
	mailer      *mockMailer
	webhooks    *mockWebhooks
}

func newCoordinatorFixture(cfg *widget.Config) *coordinatorFixture {
	f := &coordinatorFixture{
		requests:  newMockRequestRepo(),
		convs:     newMockConvRepo(),
		msgs:      &mockMsgRepo{},
		widgets:   &mockWidgetRepo{config: cfg},
		messaging: &mockMessaging{},
		mailer:    &mockMailer{},
		webhooks:  &mockWebhooks{},
	}
	appCfg := &config.Config{
		ServiceName:            "handover-api-test",
		WhatsAppBusyWindow:     time.Hour,
		WebhookMaxRetries:      3,
		PortalConversationsURL: "https://portal.example.com/conversations",
	}
	f.coordinator = NewCoordinator(appCfg, f.requests, f.convs, f.msgs, f.widgets, f.messaging, f.mailer, f.webhooks)
	f.coordinator.now = func() time.Time {
		return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	}
	return f
}

func baseWidgetConfig() *widget.Config {
	return &widget.Config{
		ID:         7,
		WidgetKey:  "wk_test",
		WidgetName: "Acme Support",
		ClientID:   3,
		IsActive:   true,
	}
}

func TestCreateHandoverRequestValidation(t *testing.T) {
	f := newCoordinatorFixture(baseWidgetConfig())

	_, err := f.coordinator.CreateHandoverRequest(context.Background(), CreateParams{
		ConversationID: 1, WidgetID: 7, ClientID: 3, Method: Method("carrier pigeon"),
	})
	assert.Error(t, err)

	_, err = f.coordinator.CreateHandoverRequest(context.Background(), CreateParams{
		ConversationID: 1, WidgetID: 7, ClientID: 3, Method: MethodEmail,
	})
	assert.Error(t, err)

	_, err = f.coordinator.CreateHandoverRequest(context.Background(), CreateParams{
		ConversationID: 1, WidgetID: 7, ClientID: 3, Method: MethodWhatsApp,
	})
	assert.Error(t, err)

	assert.Empty(t, f.requests.created)
}

func TestPortalHandoverCompletesSilentlyWhenNotificationsOff(t *testing.T) {
	f := newCoordinatorFixture(baseWidgetConfig())

	res, err := f.coordinator.CreateHandoverRequest(context.Background(), CreateParams{
		ConversationID: 1, WidgetID: 7, ClientID: 3, Method: MethodPortal, VisitorName: "Sam",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.HandoverID)

	require.Len(t, f.requests.created, 1)
	assert.Equal(t, StatusCompleted, f.requests.statusByID[1])
	assert.Empty(t, f.mailer.sent)
	assert.Equal(t, "portal", f.convs.preferences[1])
}

func TestPortalHandoverNotifiesAgentByEmail(t *testing.T) {
	cfg := baseWidgetConfig()
	cfg.EnableEmailNotifications = true
	cfg.NotifyAgentHandoff = true
	cfg.NotificationEmail = "agent@acme.test"
	f := newCoordinatorFixture(cfg)

	res, err := f.coordinator.CreateHandoverRequest(context.Background(), CreateParams{
		ConversationID: 1, WidgetID: 7, ClientID: 3, Method: MethodPortal, VisitorName: "Sam",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)

	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "agent@acme.test", f.mailer.sent[0].To)
	assert.Equal(t, StatusNotified, f.requests.statusByID[1])
	assert.Equal(t, []uint{1}, f.requests.notifiedIDs)
}

func TestWhatsAppHandoverQueuedWhenAgentBusy(t *testing.T) {
	f := newCoordinatorFixture(baseWidgetConfig())
	f.requests.busy = true

	res, err := f.coordinator.CreateHandoverRequest(context.Background(), CreateParams{
		ConversationID: 1, WidgetID: 7, ClientID: 3,
		Method: MethodWhatsApp, VisitorPhone: "+31612345678",
	})
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.True(t, res.AgentBusy)
	assert.Equal(t, StatusQueued, f.requests.statusByID[1])
	assert.Empty(t, f.messaging.templatesSent)

	require.Len(t, f.msgs.appended, 1)
	assert.Equal(t, conversation.MessageTypeSystem, f.msgs.appended[0].Type)
	assert.Contains(t, f.msgs.appended[0].Text, "queue")
}

func TestWhatsAppHandoverMultipleChatsSkipBusyCheck(t *testing.T) {
	cfg := baseWidgetConfig()
	cfg.EnableMultipleWhatsAppChats = true
	f := newCoordinatorFixture(cfg)
	f.requests.busy = true

	res, err := f.coordinator.CreateHandoverRequest(context.Background(), CreateParams{
		ConversationID: 1, WidgetID: 7, ClientID: 3,
		Method: MethodWhatsApp, VisitorPhone: "+31612345678",
	})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, StatusNotified, f.requests.statusByID[1])
	require.Len(t, f.messaging.templatesSent, 1)
	assert.Equal(t, "whatsapp:+31612345678", f.messaging.templatesSent[0].To)
}

func TestWhatsAppHandoverTemplateFallsBackToFreeform(t *testing.T) {
	f := newCoordinatorFixture(baseWidgetConfig())
	f.messaging.templateResult = &SendResult{Success: false, ErrorCode: ErrCodeTemplateVariables}

	res, err := f.coordinator.CreateHandoverRequest(context.Background(), CreateParams{
		ConversationID: 1, WidgetID: 7, ClientID: 3,
		Method: MethodWhatsApp, VisitorName: "Sam", VisitorPhone: "+31612345678",
	})
	require.NoError(t, err)

	assert.True(t, res.Success)
	require.Len(t, f.messaging.templatesSent, 1)
	require.Len(t, f.messaging.sent, 1)
	assert.Equal(t, "whatsapp:+31612345678", f.messaging.sent[0].To)
	assert.Contains(t, f.messaging.sent[0].Body, "Sam")
	assert.Equal(t, StatusNotified, f.requests.statusByID[1])
	assert.True(t, f.convs.handedOff[1])
}

func TestWhatsAppHandoverProviderRejectionAbsorbed(t *testing.T) {
	f := newCoordinatorFixture(baseWidgetConfig())
	f.messaging.templateResult = &SendResult{Success: false, ErrorCode: "21211", Error: "invalid number"}

	res, err := f.coordinator.CreateHandoverRequest(context.Background(), CreateParams{
		ConversationID: 1, WidgetID: 7, ClientID: 3,
		Method: MethodWhatsApp, VisitorPhone: "+31612345678",
	})
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.False(t, res.AgentBusy)
	assert.NotEmpty(t, res.Message)
	assert.Equal(t, StatusFailed, f.requests.statusByID[1])
	assert.Contains(t, f.requests.errorByID[1], "21211")
	assert.Empty(t, f.messaging.sent)
}

func TestEmailHandoverAcknowledgesVisitor(t *testing.T) {
	f := newCoordinatorFixture(baseWidgetConfig())

	res, err := f.coordinator.CreateHandoverRequest(context.Background(), CreateParams{
		ConversationID: 1, WidgetID: 7, ClientID: 3,
		Method: MethodEmail, VisitorEmail: "sam@visitor.test",
	})
	require.NoError(t, err)

	assert.True(t, res.Success)
	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "sam@visitor.test", f.mailer.sent[0].To)
	assert.Equal(t, StatusNotified, f.requests.statusByID[1])
}

func TestPhoneHandoverSendsSMSAck(t *testing.T) {
	f := newCoordinatorFixture(baseWidgetConfig())

	res, err := f.coordinator.CreateHandoverRequest(context.Background(), CreateParams{
		ConversationID: 1, WidgetID: 7, ClientID: 3,
		Method: MethodPhone, VisitorPhone: "555-123-4567",
	})
	require.NoError(t, err)

	assert.True(t, res.Success)
	require.Len(t, f.messaging.sent, 1)
	assert.Equal(t, "+15551234567", f.messaging.sent[0].To)
	assert.Equal(t, []uint{1}, f.requests.smsSentIDs)
	assert.Equal(t, StatusNotified, f.requests.statusByID[1])
}

func TestWebhookHandoverRecordsDelivery(t *testing.T) {
	cfg := baseWidgetConfig()
	cfg.WebhookURL = "https://hooks.acme.test/handover"
	cfg.WebhookSecret = "s3cret"
	f := newCoordinatorFixture(cfg)
	f.webhooks.result = &WebhookResult{StatusCode: 202, Body: "accepted"}

	res, err := f.coordinator.CreateHandoverRequest(context.Background(), CreateParams{
		ConversationID: 9, WidgetID: 7, ClientID: 3,
		Method: MethodWebhook, VisitorName: "Sam",
	})
	require.NoError(t, err)

	assert.True(t, res.Success)
	require.Len(t, f.requests.webhookCalls, 1)
	assert.Equal(t, 202, f.requests.webhookCalls[0].statusCode)
	assert.Equal(t, "accepted", f.requests.webhookCalls[0].body)
	assert.Equal(t, []uint{9}, f.convs.webhookNotified)
	assert.Equal(t, StatusNotified, f.requests.statusByID[1])

	require.Len(t, f.webhooks.deliveries, 1)
	payload, ok := f.webhooks.deliveries[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "handover.requested", payload["event"])
}

func TestWebhookHandoverFailureBumpsRetryAndFails(t *testing.T) {
	cfg := baseWidgetConfig()
	cfg.WebhookURL = "https://hooks.acme.test/handover"
	f := newCoordinatorFixture(cfg)
	f.webhooks.err = errors.New("endpoint returned 500")

	res, err := f.coordinator.CreateHandoverRequest(context.Background(), CreateParams{
		ConversationID: 1, WidgetID: 7, ClientID: 3, Method: MethodWebhook,
	})
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, 1, f.requests.retryCount)
	assert.Equal(t, StatusFailed, f.requests.statusByID[1])
}

func TestProcessQueuedWhatsAppHandoversPromotesOldest(t *testing.T) {
	f := newCoordinatorFixture(baseWidgetConfig())
	queued := &Request{
		ID: 42, PublicID: "ho_queued", ConversationID: 5, WidgetID: 7, ClientID: 3,
		Method: MethodWhatsApp, Status: StatusQueued, VisitorPhone: "+31612345678",
	}
	f.requests.queued = queued

	err := f.coordinator.ProcessQueuedWhatsAppHandovers(context.Background(), 3)
	require.NoError(t, err)

	require.Len(t, f.messaging.templatesSent, 1)
	assert.Equal(t, StatusNotified, f.requests.statusByID[42])
	assert.True(t, f.convs.handedOff[5])
}

func TestProcessQueuedWhatsAppHandoversSkipsWhenBusy(t *testing.T) {
	f := newCoordinatorFixture(baseWidgetConfig())
	f.requests.busy = true
	f.requests.queued = &Request{ID: 42, Method: MethodWhatsApp, Status: StatusQueued}

	err := f.coordinator.ProcessQueuedWhatsAppHandovers(context.Background(), 3)
	require.NoError(t, err)
	assert.Empty(t, f.messaging.templatesSent)
}

func TestProcessQueuedWhatsAppHandoversEmptyQueue(t *testing.T) {
	f := newCoordinatorFixture(baseWidgetConfig())

	err := f.coordinator.ProcessQueuedWhatsAppHandovers(context.Background(), 3)
	require.NoError(t, err)
	assert.Empty(t, f.messaging.templatesSent)
}

func TestUpdateHandoverConfigIgnoresEmptyUpdate(t *testing.T) {
	f := newCoordinatorFixture(baseWidgetConfig())

	err := f.coordinator.UpdateHandoverConfig(context.Background(), 7, widget.HandoverConfigUpdate{})
	require.NoError(t, err)
	assert.Empty(t, f.widgets.updates)

	url := "https://hooks.acme.test/handover"
	err = f.coordinator.UpdateHandoverConfig(context.Background(), 7, widget.HandoverConfigUpdate{WebhookURL: &url})
	require.NoError(t, err)
	assert.Len(t, f.widgets.updates, 1)
}
