package api

import (
	"github.com/gin-gonic/gin"

	"github.com/laundrypro/server/internal/handlers"
)

func registerWebhookRoutes(api *gin.RouterGroup, handler *handlers.WebhookHandler) {
	group := api.Group("/webhooks")
	{
		group.GET("/whatsapp", handler.Verify)
		group.POST("/whatsapp", handler.Receive)
		group.GET("/whatsapp/events", handler.ListEvents)
	}
}
