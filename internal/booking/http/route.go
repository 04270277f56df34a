package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware, adminMiddleware gin.HandlerFunc) {
	group := g.Group("/bookings")

	// === Authenticated Routes ===
	group.Use(authMiddleware)
	{
		group.GET("", h.List)
		group.POST("", h.Create)
		group.GET("/:code", h.Get)
		group.PATCH("/:code", h.Edit)
		group.POST("/:code/cancel", h.Cancel)
		group.POST("/:code/refund", h.RequestRefund)
		group.GET("/:code/refund", h.GetRefund)
	}

	// === Admin Routes ===
	admin := group.Group("", adminMiddleware)
	{
		admin.POST("/:code/allow", h.Allow)
		admin.PUT("/:code/status", h.ForceStatus)
		admin.DELETE("/:code", h.Delete)
		admin.POST("/:code/refund/process", h.ProcessRefund)
		admin.POST("/:code/refund/reject", h.RejectRefund)
	}

	g.GET("/admin/stats", authMiddleware, adminMiddleware, h.Stats)
}
