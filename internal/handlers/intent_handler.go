package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/cod-verifier/internal/interfaces"
	"github.com/akylbek/payment-system/cod-verifier/internal/models"
	"github.com/akylbek/payment-system/cod-verifier/internal/service"
	"github.com/akylbek/payment-system/cod-verifier/internal/telemetry"
)

// IntentHandler lets a remote front end act as the view layer.
type IntentHandler struct {
	svc interfaces.SessionService
}

func NewIntentHandler(svc interfaces.SessionService) *IntentHandler {
	return &IntentHandler{svc: svc}
}

func (h *IntentHandler) PostIntent(c *gin.Context) {
	var intent models.Intent
	if err := c.ShouldBindJSON(&intent); err != nil {
		telemetry.Logger.Error("Error decoding intent", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.svc.Dispatch(intent); err != nil {
		if errors.Is(err, service.ErrUnknownIntent) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		telemetry.Logger.Error("Error dispatching intent",
			zap.String("intent", string(intent.Kind)),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to dispatch intent"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status": "queued",
		"intent": intent.Kind,
	})
}
