package router

import (
	"github.com/gin-gonic/gin"

	"repogator.app/relay/internal/http/handler"
	"repogator.app/relay/internal/http/middleware"
)

// AdminRouter mounts the event administration API behind the admin key.
func AdminRouter(rg *gin.RouterGroup, adminKey string, h *handler.EventHandler) {
	admin := rg.Group("")
	admin.Use(middleware.RequireAdminKey(adminKey))
	{
		admin.GET("/events", h.List)
		admin.GET("/events/stats", h.Stats)
		admin.GET("/events/:id", h.Get)
		admin.GET("/deliveries/:delivery_id", h.GetByDelivery)
		admin.POST("/events/:id/reprocess", h.Reprocess)
	}
}
