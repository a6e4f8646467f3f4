package api

import (
	"github.com/gin-gonic/gin"

	"github.com/laundrypro/server/internal/handlers"
)

func registerNotificationRoutes(api *gin.RouterGroup, handler *handlers.NotificationHandler) {
	group := api.Group("/notifications")
	{
		group.GET("", handler.List)
		group.GET("/stats/summary", handler.Stats)
		group.GET("/:id", handler.Get)

		group.POST("/send", handler.Send)
		group.POST("/send-bulk", handler.SendBulk)
		group.POST("/order-trigger", handler.OrderTrigger)
		group.POST("/loyalty", handler.Loyalty)
		group.POST("/retry-failed", handler.RetryFailed)
	}
}
