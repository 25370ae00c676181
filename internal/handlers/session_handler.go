package handlers

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/cod-verifier/internal/interfaces"
	"github.com/akylbek/payment-system/cod-verifier/internal/models"
	"github.com/akylbek/payment-system/cod-verifier/internal/telemetry"
	"github.com/akylbek/payment-system/cod-verifier/internal/ui"
	"github.com/akylbek/payment-system/cod-verifier/internal/upi"
)

const qrImageSize = 200

// ViewState is implemented by views that can report what they currently render.
type ViewState interface {
	State() ui.ModelState
}

type SessionHandler struct {
	svc  interfaces.SessionService
	repo interfaces.TransitionRepository
	view ViewState
}

// NewSessionHandler serves the session. repo and view may be nil; without a repo the
// controller's in-memory history is served.
func NewSessionHandler(svc interfaces.SessionService, repo interfaces.TransitionRepository, view ViewState) *SessionHandler {
	return &SessionHandler{svc: svc, repo: repo, view: view}
}

func (h *SessionHandler) GetSession(c *gin.Context) {
	snap, err := h.svc.Snapshot(c.Request.Context())
	if err != nil {
		telemetry.Logger.Error("Failed to read session", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Session unavailable"})
		return
	}

	body := gin.H{
		"session":       snap.Session,
		"otp_state":     snap.OTPState,
		"payment_state": snap.PaymentState,
		"mobile":        snap.Mobile,
		"complete":      snap.Complete,
	}
	if h.view != nil {
		body["view"] = h.view.State()
	}
	c.JSON(http.StatusOK, body)
}

func (h *SessionHandler) GetTransitions(c *gin.Context) {
	ctx := c.Request.Context()
	snap, err := h.svc.Snapshot(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Session unavailable"})
		return
	}

	var (
		source = "memory"
		events []models.TransitionEvent
	)
	if h.repo != nil {
		source = "database"
		events, err = h.repo.ListBySession(ctx, snap.Session.ID)
	} else {
		events, err = h.svc.Transitions(ctx)
	}
	if err != nil {
		telemetry.Logger.Error("Failed to fetch transitions",
			zap.String("session_id", snap.Session.ID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transitions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id":  snap.Session.ID,
		"source":      source,
		"transitions": events,
	})
}

// GetQRCode renders the open payment request as a PNG.
func (h *SessionHandler) GetQRCode(c *gin.Context) {
	snap, err := h.svc.Snapshot(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Session unavailable"})
		return
	}
	if snap.DeepLink == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "No payment awaiting scan"})
		return
	}

	var buf bytes.Buffer
	if err := upi.WritePNG(&buf, snap.DeepLink, qrImageSize); err != nil {
		telemetry.Logger.Error("Failed to render QR code", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render QR code"})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}
