package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"livechat-server/handover-api/internal/config"
	"livechat-server/handover-api/internal/domain/handover"
	"livechat-server/handover-api/internal/interfaces/httpserver/requests"
	"livechat-server/handover-api/internal/interfaces/httpserver/responses"
	"livechat-server/handover-api/internal/utils/platformerrors"
)

// HandoverHandler exposes handover request and configuration endpoints.
type HandoverHandler struct {
	cfg         *config.Config
	coordinator *handover.Coordinator
	log         zerolog.Logger
}

func NewHandoverHandler(cfg *config.Config, coordinator *handover.Coordinator, log zerolog.Logger) *HandoverHandler {
	return &HandoverHandler{
		cfg:         cfg,
		coordinator: coordinator,
		log:         log.With().Str("component", "handover-handler").Logger(),
	}
}

// Create handles POST /v1/handover/requests.
func (h *HandoverHandler) Create(c *gin.Context) {
	var req requests.CreateHandoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		platformerrors.WriteValidationError(c, err.Error())
		return
	}

	result, err := h.coordinator.CreateHandoverRequest(c.Request.Context(), req.ToDomain())
	if err != nil {
		platformerrors.WriteValidationError(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, responses.BuildHandoverResponse(result))
}

// GetConfig handles GET /v1/handover/config/:widgetID.
func (h *HandoverHandler) GetConfig(c *gin.Context) {
	widgetID, ok := widgetIDParam(c)
	if !ok {
		return
	}
	cfg, err := h.coordinator.GetHandoverConfig(c.Request.Context(), widgetID)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, responses.BuildHandoverConfigResponse(cfg))
}

// UpdateConfig handles PUT /v1/handover/config/:widgetID.
func (h *HandoverHandler) UpdateConfig(c *gin.Context) {
	widgetID, ok := widgetIDParam(c)
	if !ok {
		return
	}
	var req requests.UpdateHandoverConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		platformerrors.WriteValidationError(c, err.Error())
		return
	}
	if err := h.coordinator.UpdateHandoverConfig(c.Request.Context(), widgetID, req.ToDomain()); err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	cfg, err := h.coordinator.GetHandoverConfig(c.Request.Context(), widgetID)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, responses.BuildHandoverConfigResponse(cfg))
}

// TestWebhook handles POST /v1/handover/config/:widgetID/test-webhook.
func (h *HandoverHandler) TestWebhook(c *gin.Context) {
	widgetID, ok := widgetIDParam(c)
	if !ok {
		return
	}
	result, err := h.coordinator.TestWebhook(c.Request.Context(), widgetID)
	if err != nil {
		c.JSON(http.StatusOK, responses.WebhookTestResponse{
			Success: false,
			Error:   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, responses.WebhookTestResponse{
		Success:    true,
		StatusCode: result.StatusCode,
		Body:       result.Body,
	})
}

func widgetIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("widgetID"), 10, 32)
	if err != nil {
		platformerrors.WriteValidationError(c, "invalid widget id")
		return 0, false
	}
	return uint(id), true
}
