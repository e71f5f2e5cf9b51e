package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/docask/docask/internal/middleware"
)

type RouterDeps struct {
	Auth      *AuthHandler
	Documents *DocumentHandler
	Queries   *QueryHandler
	JWTSecret []byte
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/auth/token", deps.Auth.Token)
	api.GET("/query/health", deps.Queries.Health)

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))

	authGroup.POST("/files/upload", middleware.RateLimit(2*time.Second), deps.Documents.Upload)
	authGroup.GET("/files/documents", deps.Documents.List)
	authGroup.GET("/files/documents/:id", deps.Documents.Get)
	authGroup.DELETE("/files/documents/:id", deps.Documents.Delete)
	authGroup.GET("/files/stats", deps.Documents.Stats)

	authGroup.POST("/query/ask", middleware.RateLimit(time.Second), deps.Queries.Ask)
	authGroup.POST("/query/search", deps.Queries.Search)
}
