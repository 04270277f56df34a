package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers payment routes. The return endpoint is called by
// the gateway and authenticated by its signature instead of a token.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/payments")

	group.POST("/return", h.Return)

	// === Authenticated Routes ===
	authed := group.Group("", authMiddleware)
	{
		authed.POST("/bookings/:code", h.Initiate)
		authed.GET("/:reference/verify", h.Verify)
	}
}
