package requests

// StartConversationRequest opens or resumes a visitor conversation.
type StartConversationRequest struct {
	WidgetKey        string `json:"widget_key" binding:"required"`
	SessionID        string `json:"session_id"`
	VisitorSessionID string `json:"visitor_session_id"`
	VisitorName      string `json:"visitor_name"`
	VisitorEmail     string `json:"visitor_email"`
}

// AppendMessageRequest posts a message into a conversation.
type AppendMessageRequest struct {
	Text   string `json:"text" binding:"required"`
	Sender string `json:"sender" binding:"required,oneof=visitor agent bot"`
}

// EndConversationRequest closes a conversation.
type EndConversationRequest struct {
	EndedBy string `json:"ended_by" binding:"required,oneof=visitor agent"`
}
