package responses

import (
	"time"

	"livechat-server/handover-api/internal/application/chat"
	"livechat-server/handover-api/internal/domain/conversation"
)

// ConversationResponse exposes a conversation to the widget.
type ConversationResponse struct {
	ID               uint       `json:"id"`
	SessionID        string     `json:"session_id"`
	VisitorSessionID string     `json:"visitor_session_id"`
	Status           string     `json:"status"`
	AgentHandoff     bool       `json:"agent_handoff"`
	Resumed          bool       `json:"resumed"`
	EndedAt          *time.Time `json:"ended_at,omitempty"`
	CloseReason      string     `json:"close_reason,omitempty"`
}

// BuildConversationResponse creates response from domain conversation
func BuildConversationResponse(conv *conversation.Conversation, resumed bool) *ConversationResponse {
	return &ConversationResponse{
		ID:               conv.ID,
		SessionID:        conv.SessionID,
		VisitorSessionID: conv.VisitorSessionID,
		Status:           string(conv.Status),
		AgentHandoff:     conv.AgentHandoff,
		Resumed:          resumed,
		EndedAt:          conv.EndedAt,
		CloseReason:      conv.CloseReason,
	}
}

// MessageResponse exposes one message.
type MessageResponse struct {
	ID        uint      `json:"id"`
	Type      string    `json:"type"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// BuildMessageResponse creates response from domain message
func BuildMessageResponse(msg *conversation.Message) *MessageResponse {
	return &MessageResponse{
		ID:        msg.ID,
		Type:      string(msg.Type),
		Text:      msg.Text,
		CreatedAt: msg.CreatedAt,
	}
}

// AppendMessageResponse reports a stored message plus any extension the
// text triggered.
type AppendMessageResponse struct {
	Message   *MessageResponse   `json:"message"`
	Extension *ExtensionResponse `json:"extension,omitempty"`
}

// ExtensionResponse reports a granted inactivity extension.
type ExtensionResponse struct {
	Extended bool      `json:"extended"`
	Minutes  int       `json:"minutes,omitempty"`
	Until    time.Time `json:"until,omitempty"`
	Message  string    `json:"message,omitempty"`
}

// BuildAppendMessageResponse creates response from the append outcome
func BuildAppendMessageResponse(result *chat.AppendResult) *AppendMessageResponse {
	resp := &AppendMessageResponse{
		Message: BuildMessageResponse(result.Message),
	}
	if result.Extension != nil && result.Extension.Extended {
		resp.Extension = &ExtensionResponse{
			Extended: true,
			Minutes:  result.Extension.Minutes,
			Until:    result.Extension.Until,
			Message:  result.Extension.Message,
		}
	}
	return resp
}
