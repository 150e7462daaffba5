package v1

import (
	"github.com/gin-gonic/gin"

	"livechat-server/handover-api/internal/interfaces/httpserver/handlers"
)

// Routes encapsulates versioned route registration.
type Routes struct {
	handlers *handlers.Provider
}

func NewRoutes(provider *handlers.Provider) *Routes {
	return &Routes{handlers: provider}
}

// Register attaches all v1 routes under /v1 prefix.
func (r *Routes) Register(router gin.IRouter) {
	group := router.Group("/v1")

	group.POST("/handover/requests", r.handlers.Handover.Create)
	group.GET("/handover/config/:widgetID", r.handlers.Handover.GetConfig)
	group.PUT("/handover/config/:widgetID", r.handlers.Handover.UpdateConfig)
	group.POST("/handover/config/:widgetID/test-webhook", r.handlers.Handover.TestWebhook)

	group.POST("/conversations", r.handlers.Conversation.Start)
	group.GET("/conversations/:id", r.handlers.Conversation.Get)
	group.POST("/conversations/:id/messages", r.handlers.Conversation.AppendMessage)
	group.GET("/conversations/:id/messages", r.handlers.Conversation.ListMessages)
	group.POST("/conversations/:id/end", r.handlers.Conversation.End)
}
