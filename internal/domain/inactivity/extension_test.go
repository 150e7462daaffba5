package inactivity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livechat-server/handover-api/internal/domain/conversation"
)

func TestParseExtensionIntent(t *testing.T) {
	tests := []struct {
		input       string
		wantKind    IntentKind
		wantMinutes int
	}{
		{input: "yes", wantKind: IntentExtend, wantMinutes: 10},
		{input: "Yes please", wantKind: IntentExtend, wantMinutes: 10},
		{input: "yes 5", wantKind: IntentExtend, wantMinutes: 5},
		{input: "yes, 15 minutes", wantKind: IntentExtend, wantMinutes: 15},
		{input: "45 minutes", wantKind: IntentExtend, wantMinutes: 45},
		{input: "30 min", wantKind: IntentExtend, wantMinutes: 30},
		{input: "120", wantKind: IntentExtend, wantMinutes: 60},
		{input: "yes 0", wantKind: IntentExtend, wantMinutes: 1},
		{input: "no", wantKind: IntentDecline},
		{input: "no thanks", wantKind: IntentDecline},
		{input: "please stop", wantKind: IntentDecline},
		{input: "", wantKind: IntentNoMatch},
		{input: "what is this", wantKind: IntentNoMatch},
		{input: "call me maybe 5", wantKind: IntentNoMatch},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseExtensionIntent(tt.input)
			assert.Equal(t, tt.wantKind, got.Kind)
			if tt.wantKind == IntentExtend {
				assert.Equal(t, tt.wantMinutes, got.Minutes)
			}
		})
	}
}

func TestHandleExtensionRequestGrants(t *testing.T) {
	f := newMonitorFixture()
	f.convs.byID[1] = &conversation.Conversation{ID: 1, WidgetID: 7, ClientID: 3}

	res, err := f.monitor.HandleExtensionRequest(context.Background(), 1, "yes 20", false)
	require.NoError(t, err)

	assert.True(t, res.Extended)
	assert.Equal(t, 20, res.Minutes)
	assert.Equal(t, f.clock.Add(20*time.Minute), res.Until)

	require.Len(t, f.convs.grants, 1)
	assert.Equal(t, conversation.SideVisitor, f.convs.grants[0].side)
	assert.Equal(t, f.clock.Add(20*time.Minute), f.convs.grants[0].until)

	// visitor gets the confirmation in the chat transcript
	require.Len(t, f.msgs.appended, 1)
	assert.Equal(t, conversation.MessageTypeSystem, f.msgs.appended[0].Type)
}

func TestHandleExtensionRequestAgentSide(t *testing.T) {
	f := newMonitorFixture()
	f.convs.byID[1] = &conversation.Conversation{ID: 1, WidgetID: 7, ClientID: 3}

	res, err := f.monitor.HandleExtensionRequest(context.Background(), 1, "yes", true)
	require.NoError(t, err)

	assert.True(t, res.Extended)
	assert.Equal(t, 10, res.Minutes)
	require.Len(t, f.convs.grants, 1)
	assert.Equal(t, conversation.SideAgent, f.convs.grants[0].side)

	// agent confirmation rides WhatsApp, not the transcript
	assert.Empty(t, f.msgs.appended)
	require.Len(t, f.messaging.sent, 1)
	assert.Equal(t, "whatsapp:+15550001111", f.messaging.sent[0].To)
}

func TestHandleExtensionRequestNonExtendIntents(t *testing.T) {
	f := newMonitorFixture()

	res, err := f.monitor.HandleExtensionRequest(context.Background(), 1, "no", false)
	require.NoError(t, err)
	assert.False(t, res.Extended)

	res, err = f.monitor.HandleExtensionRequest(context.Background(), 1, "hello?", true)
	require.NoError(t, err)
	assert.False(t, res.Extended)

	assert.Empty(t, f.convs.grants)
}
