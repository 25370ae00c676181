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
	"github.com/akylbek/payment-system/cod-verifier/internal/validation"
)

const (
	labelSendOTP   = "Send OTP"
	labelSending   = "Sending..."
	labelVerify    = "Verify"
	labelVerifying = "Verifying..."
	labelVerified  = "✓ Verified"

	msgInvalidPhone = "Please enter a valid phone number"
	msgInvalidOTP   = "Please enter a valid 6-digit OTP"
	msgSendFailed   = "Failed to send OTP"
	msgVerifyFailed = "Invalid OTP"
	msgOTPSent      = "OTP sent successfully"
	msgOTPVerified  = "OTP verified successfully"

	testModeAlertDelay = 500 * time.Millisecond
)

func resendLabel(seconds int) string { return fmt.Sprintf("Resend (%ds)", seconds) }

// otpFlow drives NOT_SENT -> SENDING -> SENT -> VERIFYING -> VERIFIED. Failures return to
// the state the request was issued from.
type otpFlow struct {
	c     *Controller
	state models.OTPState
	seq   uint64
}

func (f *otpFlow) setState(to models.OTPState) {
	from := f.state
	f.state = to
	f.c.transition(models.FlowOTP, string(from), string(to))
}

func (f *otpFlow) phoneValid() bool {
	return validation.ValidatePhone(f.c.session.Phone, f.c.session.CountryCode)
}

func (f *otpFlow) codeValid() bool {
	return validation.ValidateOTP(f.c.session.OTP)
}

// render redraws both controls from the current state.
func (f *otpFlow) render() {
	f.renderSend()
	f.renderVerify()
}

// renderSend leaves the control alone while a send is in flight or the cooldown owns it.
func (f *otpFlow) renderSend() {
	switch {
	case f.state == models.OTPSending, f.c.timers.Running(timers.OTPCooldown):
		return
	case f.state == models.OTPVerified:
		f.c.view.SetControl(ui.ControlSendOTP, ui.Control{Label: labelSendOTP})
	default:
		f.c.view.SetControl(ui.ControlSendOTP, ui.Control{Label: labelSendOTP, Enabled: f.phoneValid()})
	}
}

func (f *otpFlow) renderVerify() {
	switch f.state {
	case models.OTPVerifying:
		return
	case models.OTPVerified:
		f.c.view.SetControl(ui.ControlVerifyOTP, ui.Control{Label: labelVerified, Verified: true})
	default:
		f.c.view.SetControl(ui.ControlVerifyOTP, ui.Control{Label: labelVerify, Enabled: f.codeValid()})
	}
}

func (f *otpFlow) countryChanged(code models.CountryCode) {
	f.c.session.CountryCode = code
	f.c.session.Phone = ""
	f.c.view.SetPhoneHelp(validation.PhoneHelpText(code))
	f.c.view.ClearInput(ui.InputPhone)
	f.renderSend()
}

func (f *otpFlow) phoneChanged(phone string) {
	f.c.session.Phone = phone
	f.renderSend()
}

func (f *otpFlow) codeChanged(code string) {
	f.c.session.OTP = code
	f.renderVerify()
}

func (f *otpFlow) send() {
	if f.state != models.OTPNotSent && f.state != models.OTPSent {
		return
	}
	if f.c.timers.Running(timers.OTPCooldown) {
		return
	}
	if !f.phoneValid() {
		f.renderSend()
		f.c.msg.Error(ui.MessageOTP, msgInvalidPhone)
		return
	}

	prev := f.state
	f.setState(models.OTPSending)
	f.c.view.SetControl(ui.ControlSendOTP, ui.Control{Label: labelSending})

	f.seq++
	seq := f.seq
	phone, code, full := f.c.session.Phone, f.c.session.CountryCode, f.c.session.FullPhone()

	var res *models.SendOTPResult
	f.c.request(backend.ActionSendOTP, func(ctx context.Context) (err error) {
		res, err = f.c.backend.SendOTP(ctx, full, code, phone)
		return err
	}, func(err error) {
		if seq != f.seq || f.state != models.OTPSending {
			f.c.stale(backend.ActionSendOTP)
			return
		}
		if err != nil {
			telemetry.Logger.Warn("Send OTP failed", zap.String("session_id", f.c.session.ID), zap.Error(err))
			f.setState(prev)
			f.renderSend()
			f.c.msg.Error(ui.MessageOTP, failureText(err, msgSendFailed))
			return
		}
		f.sent(res)
	})
}

func (f *otpFlow) sent(res *models.SendOTPResult) {
	f.setState(models.OTPSent)

	text := res.Message
	if text == "" {
		text = msgOTPSent
	}
	f.c.msg.Success(ui.MessageOTP, text)

	if res.TestMode && res.OTP != "" {
		otp := res.OTP
		f.c.timers.After(timers.OTPTestAlert, testModeAlertDelay, func() {
			f.c.view.Alert("TEST MODE - Your OTP is: " + otp)
		})
	}
	f.startCooldown()
}

func (f *otpFlow) startCooldown() {
	seconds := f.c.settings.OTPCooldownSeconds
	f.c.view.SetControl(ui.ControlSendOTP, ui.Control{Label: resendLabel(seconds), TimerActive: true})
	f.c.timers.Start(timers.OTPCooldown, seconds, func(remaining int) {
		f.c.view.SetControl(ui.ControlSendOTP, ui.Control{Label: resendLabel(remaining), TimerActive: true})
	}, func() {
		f.renderSend()
	})
}

func (f *otpFlow) verify() {
	if f.state != models.OTPNotSent && f.state != models.OTPSent {
		return
	}
	if !f.codeValid() {
		f.renderVerify()
		f.c.msg.Error(ui.MessageOTP, msgInvalidOTP)
		return
	}

	prev := f.state
	f.setState(models.OTPVerifying)
	f.c.view.SetControl(ui.ControlVerifyOTP, ui.Control{Label: labelVerifying})

	f.seq++
	seq := f.seq
	code := f.c.session.OTP

	var text string
	f.c.request(backend.ActionVerifyOTP, func(ctx context.Context) (err error) {
		text, err = f.c.backend.VerifyOTP(ctx, code)
		return err
	}, func(err error) {
		if seq != f.seq || f.state != models.OTPVerifying {
			f.c.stale(backend.ActionVerifyOTP)
			return
		}
		if err != nil {
			telemetry.Logger.Warn("Verify OTP failed", zap.String("session_id", f.c.session.ID), zap.Error(err))
			f.setState(prev)
			f.renderVerify()
			f.c.msg.Error(ui.MessageOTP, failureText(err, msgVerifyFailed))
			return
		}
		f.verified(text)
	})
}

func (f *otpFlow) verified(text string) {
	f.c.session.OTPVerified = true
	f.setState(models.OTPVerified)
	f.c.timers.Cancel(timers.OTPCooldown)

	if text == "" {
		text = msgOTPVerified
	}
	f.c.msg.Success(ui.MessageOTP, text)
	f.c.msg.Badge(ui.BadgeOTP, ui.BadgeVerified)
	f.render()
	f.c.gate.MarkOTPVerified()

	telemetry.Verifications.WithLabelValues(models.FlowOTP).Inc()
}
