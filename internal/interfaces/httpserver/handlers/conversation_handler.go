package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"livechat-server/handover-api/internal/application/chat"
	"livechat-server/handover-api/internal/config"
	"livechat-server/handover-api/internal/domain/conversation"
	"livechat-server/handover-api/internal/interfaces/httpserver/requests"
	"livechat-server/handover-api/internal/interfaces/httpserver/responses"
	"livechat-server/handover-api/internal/utils/functional"
	"livechat-server/handover-api/internal/utils/platformerrors"
)

// ConversationHandler exposes the widget-facing conversation endpoints.
type ConversationHandler struct {
	cfg     *config.Config
	service *chat.Service
	log     zerolog.Logger
}

func NewConversationHandler(cfg *config.Config, service *chat.Service, log zerolog.Logger) *ConversationHandler {
	return &ConversationHandler{
		cfg:     cfg,
		service: service,
		log:     log.With().Str("component", "conversation-handler").Logger(),
	}
}

// Start handles POST /v1/conversations.
func (h *ConversationHandler) Start(c *gin.Context) {
	var req requests.StartConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		platformerrors.WriteValidationError(c, err.Error())
		return
	}
	conv, resumed, err := h.service.StartConversation(c.Request.Context(), chat.StartParams{
		WidgetKey:        req.WidgetKey,
		SessionID:        req.SessionID,
		VisitorSessionID: req.VisitorSessionID,
		VisitorName:      req.VisitorName,
		VisitorEmail:     req.VisitorEmail,
	})
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	status := http.StatusCreated
	if resumed {
		status = http.StatusOK
	}
	c.JSON(status, responses.BuildConversationResponse(conv, resumed))
}

// Get handles GET /v1/conversations/:id.
func (h *ConversationHandler) Get(c *gin.Context) {
	id, ok := conversationIDParam(c)
	if !ok {
		return
	}
	conv, err := h.service.Conversation(c.Request.Context(), id)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, responses.BuildConversationResponse(conv, false))
}

// AppendMessage handles POST /v1/conversations/:id/messages.
func (h *ConversationHandler) AppendMessage(c *gin.Context) {
	id, ok := conversationIDParam(c)
	if !ok {
		return
	}
	var req requests.AppendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		platformerrors.WriteValidationError(c, err.Error())
		return
	}
	result, err := h.service.AppendMessage(c.Request.Context(), id, req.Text, conversation.MessageType(req.Sender))
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusCreated, responses.BuildAppendMessageResponse(result))
}

// ListMessages handles GET /v1/conversations/:id/messages.
func (h *ConversationHandler) ListMessages(c *gin.Context) {
	id, ok := conversationIDParam(c)
	if !ok {
		return
	}
	msgs, err := h.service.Messages(c.Request.Context(), id)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"messages": functional.Map(msgs, responses.BuildMessageResponse),
	})
}

// End handles POST /v1/conversations/:id/end.
func (h *ConversationHandler) End(c *gin.Context) {
	id, ok := conversationIDParam(c)
	if !ok {
		return
	}
	var req requests.EndConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		platformerrors.WriteValidationError(c, err.Error())
		return
	}
	if err := h.service.EndConversation(c.Request.Context(), id, req.EndedBy); err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func conversationIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		platformerrors.WriteValidationError(c, "invalid conversation id")
		return 0, false
	}
	return uint(id), true
}
