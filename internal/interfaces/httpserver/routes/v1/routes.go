package v1

import (
	"github.com/gin-gonic/gin"

	"mediavault/services/media-api/internal/interfaces/httpserver/handlers"
)

// Routes encapsulates versioned route registration.
type Routes struct {
	handlers *handlers.Provider
}

func NewRoutes(provider *handlers.Provider) *Routes {
	return &Routes{handlers: provider}
}

// Register attaches all v1 routes under /v1 prefix. Extra handlers (auth) run before each route.
func (r *Routes) Register(router gin.IRouter, middleware ...gin.HandlerFunc) {
	group := router.Group("/v1", middleware...)
	group.POST("/media", r.handlers.Media.Upload)
	group.GET("/media", r.handlers.Media.List)
	group.GET("/media/search", r.handlers.Media.Search)
	group.GET("/media/:id", r.handlers.Media.Get)
	group.PUT("/media/:id", r.handlers.Media.Update)
	group.DELETE("/media/:id", r.handlers.Media.Delete)
	group.GET("/media/:id/content", r.handlers.Media.Content)
	group.GET("/media/:id/url", r.handlers.Media.URL)
}
