package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zhanatb/linguabook/internal/health"
	"github.com/zhanatb/linguabook/internal/token"
	"github.com/zhanatb/linguabook/internal/transport/http/handler"
	"github.com/zhanatb/linguabook/internal/transport/http/middleware"

	sloggin "github.com/samber/slog-gin"
)

func NewRouter(logger *slog.Logger, authHandler *handler.AuthHandler, verifier *token.Issuer, checker *health.Checker) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Endpoint not found"})
	})

	v1 := r.Group("/api/v1")

	v1.GET("/health", func(c *gin.Context) {
		result := checker.Readiness(c.Request.Context())
		status := http.StatusOK
		if result.Status != "up" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, result)
	})

	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// Everything below the gate sees only authenticated requests.
	protected := v1.Group("", middleware.Auth(verifier))
	protected.GET("/me", authHandler.Me)

	return r
}
