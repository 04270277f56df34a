package http

import "github.com/gin-gonic/gin"

// RegisterRoutes registers the auth and profile routes.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	authGroup := g.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/otp/request", h.RequestCode)
		authGroup.POST("/otp/verify", h.VerifyCode)
	}

	me := g.Group("/me", authMiddleware)
	{
		me.GET("", h.Me)
		me.PATCH("", h.UpdateMe)
	}
}
