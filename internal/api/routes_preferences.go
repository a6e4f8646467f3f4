package api

import (
	"github.com/gin-gonic/gin"

	"github.com/laundrypro/server/internal/handlers"
)

func registerPreferenceRoutes(api *gin.RouterGroup, handler *handlers.PreferenceHandler) {
	group := api.Group("/preferences")
	{
		group.GET("/:customerID", handler.Get)
		group.PUT("/:customerID", handler.Update)
	}
}
