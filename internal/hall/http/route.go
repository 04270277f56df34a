package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers hall routes. Reads are public; writes need an admin.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware, adminMiddleware gin.HandlerFunc) {
	group := g.Group("/halls")

	// === Public Routes ===
	group.GET("", h.List)
	group.GET("/:id", h.Get)
	group.GET("/:id/availability", h.Availability)
	group.GET("/:id/rent", h.Rent)

	// === Admin Routes ===
	admin := group.Group("", authMiddleware, adminMiddleware)
	{
		admin.POST("", h.Create)
		admin.PATCH("/:id", h.Update)
		admin.DELETE("/:id", h.Delete)
		admin.PUT("/:id/availability/:date", h.SetEntry)
		admin.DELETE("/:id/availability/:date", h.ClearEntry)
		admin.POST("/:id/photo", h.UploadPhoto)
	}
}
