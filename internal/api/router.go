package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/akylbek/payment-system/cod-verifier/internal/handlers"
	"github.com/akylbek/payment-system/cod-verifier/internal/interfaces"
	"github.com/akylbek/payment-system/cod-verifier/internal/telemetry"
)

func NewRouter(svc interfaces.SessionService, repo interfaces.TransitionRepository, view handlers.ViewState) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(telemetry.TracingMiddleware())

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": telemetry.ServiceName})
	})

	// Session routes
	sessionHandler := handlers.NewSessionHandler(svc, repo, view)
	r.GET("/session", sessionHandler.GetSession)
	r.GET("/session/transitions", sessionHandler.GetTransitions)
	r.GET("/session/qr.png", sessionHandler.GetQRCode)

	intentHandler := handlers.NewIntentHandler(svc)
	r.POST("/intents", intentHandler.PostIntent)

	return r
}
