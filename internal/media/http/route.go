package http

import "github.com/gin-gonic/gin"

// RegisterRoutes registers public media routes.
func RegisterRoutes(r gin.IRouter, handler *Handler) {
	group := r.Group("/media")

	group.GET("/:id", handler.Serve)
	group.GET("/:id/thumbnail", handler.ServeThumbnail)
}
