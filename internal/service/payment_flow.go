package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/akylbek/payment-system/cod-verifier/internal/backend"
	"github.com/akylbek/payment-system/cod-verifier/internal/models"
	"github.com/akylbek/payment-system/cod-verifier/internal/telemetry"
	"github.com/akylbek/payment-system/cod-verifier/internal/timers"
	"github.com/akylbek/payment-system/cod-verifier/internal/ui"
	"github.com/akylbek/payment-system/cod-verifier/internal/upi"
)

const (
	labelCreatingPayment = "Creating Payment..."
	labelPaymentComplete = "✓ Payment Complete"

	msgCreateFailed     = "Failed to create payment"
	msgPopupUnavailable = "Payment system not loaded. Please refresh the page."
	msgPaymentCancelled = "Payment cancelled. Please try again."
	msgPaymentExpired   = "Payment session expired. Please try again."
	msgPaymentFailed    = "Payment verification failed"
	msgPaymentComplete  = "Token payment completed successfully!"
	msgTestModePayment  = "Test mode: Simulating payment..."

	paymentNote     = "COD Token Payment"
	popupThemeColor = "#667eea"

	paymentExpirySeconds = 15 * 60
	statusPollInterval   = 5 * time.Second
	testModeDelay        = 2 * time.Second
)

// formatCountdown renders seconds as m:ss, the way the QR modal shows it.
func formatCountdown(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// paymentFlow drives IDLE -> CREATING_LINK -> AWAITING_POPUP_RESULT | AWAITING_QR_SCAN ->
// VERIFYING -> VERIFIED. Every attempt gets a number; results carrying an older number,
// or arriving in a state that no longer expects them, are dropped.
type paymentFlow struct {
	c     *Controller
	state models.PaymentState

	attempt    uint64
	linkID     string
	deepLink   string
	qrOpen     bool
	simulating bool
}

func (f *paymentFlow) setState(to models.PaymentState) {
	from := f.state
	f.state = to
	f.c.transition(models.FlowToken, string(from), string(to))
}

func (f *paymentFlow) amountText() string {
	return upi.DisplayAmount(upi.TokenAmount(), f.c.settings.Currency)
}

func (f *paymentFlow) payLabel() string {
	return "Pay " + f.amountText() + " Token"
}

func (f *paymentFlow) render() {
	if f.state == models.PaymentVerified {
		f.c.view.SetControl(ui.ControlPayToken, ui.Control{Label: labelPaymentComplete, Verified: true})
		return
	}
	f.c.view.SetControl(ui.ControlPayToken, ui.Control{Label: f.payLabel(), Enabled: true})
}

func (f *paymentFlow) busy() bool {
	switch f.state {
	case models.PaymentIdle, models.PaymentExpired, models.PaymentCancelled:
		return false
	}
	return true
}

func (f *paymentFlow) initiate() {
	if f.busy() {
		return
	}
	f.attempt++
	f.c.view.SetControl(ui.ControlPayToken, ui.Control{Label: labelCreatingPayment})

	if f.c.settings.TestMode {
		f.simulate()
		return
	}

	f.setState(models.PaymentCreatingLink)
	attempt := f.attempt

	var link *models.PaymentLinkInfo
	f.c.request(backend.ActionCreatePaymentLink, func(ctx context.Context) (err error) {
		link, err = f.c.backend.CreatePaymentLink(ctx)
		return err
	}, func(err error) {
		if attempt != f.attempt || f.state != models.PaymentCreatingLink {
			f.c.stale(backend.ActionCreatePaymentLink)
			return
		}
		if err != nil {
			f.fail(err, msgCreateFailed)
			return
		}
		f.linkID = link.LinkID
		f.c.session.CurrentPaymentLinkID = link.LinkID
		if f.c.classifier.IsMobile(f.c.settings.Device) {
			f.openPopup(link)
			return
		}
		f.showQR(link)
	})
}

// simulate stands in for the gateway in test mode: after a short pause it confirms the
// payment with the backend directly, without creating a link.
func (f *paymentFlow) simulate() {
	attempt := f.attempt
	f.simulating = true
	f.c.msg.Success(ui.MessageToken, msgTestModePayment)
	f.setState(models.PaymentVerifying)

	f.c.loop.AfterFunc(testModeDelay, func() {
		if attempt != f.attempt || !f.simulating {
			return
		}
		f.simulating = false
		f.confirm(backend.ActionVerifyTokenPayment, attempt, func(ctx context.Context) (string, error) {
			return f.c.backend.VerifyTestModePayment(ctx)
		})
	})
}

func (f *paymentFlow) openPopup(link *models.PaymentLinkInfo) {
	key := link.Key
	if key == "" {
		key = f.c.settings.FallbackKey
	}
	opts := ui.PopupOptions{
		Key:         key,
		Amount:      upi.TokenAmountMinor,
		Currency:    f.c.settings.Currency,
		Name:        paymentNote,
		Description: f.amountText() + " verification payment for COD order",
		OrderID:     link.LinkID,
		Contact:     f.c.session.Phone,
		ThemeColor:  popupThemeColor,
		Extra:       link.Extra,
	}
	if err := f.c.popup.Open(opts); err != nil {
		telemetry.Logger.Warn("Payment popup unavailable", zap.String("session_id", f.c.session.ID), zap.Error(err))
		f.setState(models.PaymentIdle)
		f.render()
		f.c.msg.Error(ui.MessageToken, msgPopupUnavailable)
		return
	}
	f.setState(models.PaymentAwaitingPopupResult)
}

func (f *paymentFlow) popupPaid(paymentID string) {
	if f.state != models.PaymentAwaitingPopupResult {
		f.c.stale(string(models.IntentPopupPaid), zap.String("payment_id", paymentID))
		return
	}
	f.c.popup.Close()
	f.verifyPayment(paymentID, f.linkID)
}

func (f *paymentFlow) popupDismissed() {
	if f.state != models.PaymentAwaitingPopupResult {
		f.c.stale(string(models.IntentPopupDismissed))
		return
	}
	f.c.popup.Close()
	f.setState(models.PaymentCancelled)
	f.render()
	f.c.msg.Error(ui.MessageToken, msgPaymentCancelled)
}

func (f *paymentFlow) showQR(link *models.PaymentLinkInfo) {
	amount := f.amountText()
	f.deepLink = upi.DeepLink(upi.PayRequest{
		PayeeAddress: f.c.settings.PayeeAddress,
		PayeeName:    f.c.settings.PayeeName,
		LinkID:       link.LinkID,
		Note:         paymentNote,
		Amount:       upi.TokenAmount(),
		Currency:     f.c.settings.Currency,
	}, f.c.loop.Now())

	matrix, err := upi.Encode(f.deepLink)
	if err != nil {
		// The modal still carries the deep link.
		telemetry.Logger.Error("Failed to render QR code", zap.String("session_id", f.c.session.ID), zap.Error(err))
	}

	f.qrOpen = true
	f.c.view.ShowQRModal(ui.QRModal{
		Title:    "Scan QR Code to Pay " + amount,
		DeepLink: f.deepLink,
		Info:     "🛈 Scan QR code with any UPI app",
		Trust:    "🔒 Secure Payment · " + amount + " will be refunded",
		Timer:    formatCountdown(paymentExpirySeconds),
		QR:       matrix,
	})
	f.setState(models.PaymentAwaitingQRScan)

	f.c.timers.Start(timers.PaymentExpiry, paymentExpirySeconds, func(remaining int) {
		f.c.view.UpdateQRTimer(formatCountdown(remaining))
	}, f.expire)
	f.c.timers.Every(timers.StatusPoll, statusPollInterval, f.poll)
}

func (f *paymentFlow) poll() {
	if f.state != models.PaymentAwaitingQRScan {
		return
	}
	attempt, linkID := f.attempt, f.linkID

	var status *models.PaymentStatus
	f.c.request(backend.ActionCheckPaymentStatus, func(ctx context.Context) (err error) {
		status, err = f.c.backend.CheckPaymentStatus(ctx, linkID)
		return err
	}, func(err error) {
		if err != nil {
			// Retried on the next tick.
			telemetry.Logger.Debug("Payment status check failed",
				zap.String("session_id", f.c.session.ID),
				zap.String("link_id", linkID),
				zap.Error(err),
			)
			return
		}
		if attempt != f.attempt || linkID != f.linkID || f.state != models.PaymentAwaitingQRScan {
			f.c.stale(backend.ActionCheckPaymentStatus, zap.String("link_id", linkID))
			return
		}
		if !status.Paid() {
			return
		}
		f.c.timers.Cancel(timers.StatusPoll)
		f.verifyPayment(status.PaymentID, linkID)
	})
}

func (f *paymentFlow) verifyPayment(paymentID, linkID string) {
	f.c.session.CurrentPaymentID = paymentID
	f.confirm(backend.ActionVerifyTokenPayment, f.attempt, func(ctx context.Context) (string, error) {
		return f.c.backend.VerifyTokenPayment(ctx, paymentID, linkID)
	})
}

// confirm moves to VERIFYING and runs call. Only the attempt that issued it may
// complete or fail the flow.
func (f *paymentFlow) confirm(action string, attempt uint64, call func(ctx context.Context) (string, error)) {
	f.setState(models.PaymentVerifying)

	f.c.request(action, func(ctx context.Context) (err error) {
		_, err = call(ctx)
		return err
	}, func(err error) {
		if attempt != f.attempt || f.state != models.PaymentVerifying {
			f.c.stale(action)
			return
		}
		if err != nil {
			f.fail(err, msgPaymentFailed)
			return
		}
		f.complete()
	})
}

func (f *paymentFlow) fail(err error, fallback string) {
	telemetry.Logger.Warn("Token payment failed",
		zap.String("session_id", f.c.session.ID),
		zap.String("link_id", f.linkID),
		zap.Error(err),
	)
	f.closeModal()
	f.setState(models.PaymentIdle)
	f.render()
	f.c.msg.Error(ui.MessageToken, failureText(err, fallback))
}

func (f *paymentFlow) complete() {
	f.closeModal()
	f.c.session.TokenVerified = true
	f.setState(models.PaymentVerified)

	f.c.msg.SuccessModal()
	f.c.msg.Badge(ui.BadgeToken, ui.BadgeVerified)
	f.render()
	f.c.gate.MarkTokenVerified()
	f.c.msg.Success(ui.MessageToken, msgPaymentComplete)

	telemetry.Verifications.WithLabelValues(models.FlowToken).Inc()
}

// expire runs when the QR countdown passes zero. The attempt is over; a new link is
// needed to retry.
func (f *paymentFlow) expire() {
	f.attempt++
	f.closeModal()
	f.setState(models.PaymentExpired)
	f.render()
	f.c.msg.Error(ui.MessageToken, msgPaymentExpired)
}

// closeQR handles the modal's close button. A verification already in flight is
// allowed to finish.
func (f *paymentFlow) closeQR() {
	if !f.qrOpen {
		return
	}
	f.closeModal()
	if f.state == models.PaymentVerifying {
		return
	}
	f.attempt++
	f.setState(models.PaymentCancelled)
	f.render()
}

func (f *paymentFlow) closeModal() {
	f.c.timers.Cancel(timers.PaymentExpiry)
	f.c.timers.Cancel(timers.StatusPoll)
	f.linkID = ""
	f.deepLink = ""
	if f.qrOpen {
		f.qrOpen = false
		f.c.view.CloseQRModal()
	}
}

// abort is called after the controller cancelled every timer. Pending link creation,
// a test-mode simulation, a pending popup and an open QR modal are abandoned.
func (f *paymentFlow) abort() {
	switch {
	case f.state == models.PaymentCreatingLink,
		f.state == models.PaymentAwaitingQRScan,
		f.simulating:
		f.simulating = false
		f.attempt++
		f.closeModal()
		f.setState(models.PaymentCancelled)
		f.render()
	case f.state == models.PaymentAwaitingPopupResult:
		f.attempt++
		f.c.popup.Close()
		f.setState(models.PaymentCancelled)
		f.render()
	case f.qrOpen:
		f.closeModal()
	}
}
