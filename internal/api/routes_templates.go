package api

import (
	"github.com/gin-gonic/gin"

	"github.com/laundrypro/server/internal/handlers"
)

func registerTemplateRoutes(api *gin.RouterGroup, handler *handlers.TemplateHandler) {
	group := api.Group("/templates")
	{
		group.GET("", handler.List)
		group.GET("/:id", handler.Get)
		group.POST("", handler.Create)
		group.PATCH("/:id", handler.Update)
		group.DELETE("/:id", handler.Delete)
	}
}
