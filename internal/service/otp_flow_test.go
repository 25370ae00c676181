package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/payment-system/cod-verifier/internal/backend"
	"github.com/akylbek/payment-system/cod-verifier/internal/gate"
	"github.com/akylbek/payment-system/cod-verifier/internal/models"
	"github.com/akylbek/payment-system/cod-verifier/internal/timers"
	"github.com/akylbek/payment-system/cod-verifier/internal/ui"
)

func TestNewController_InitialControls(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, ui.Control{Label: "Send OTP"}, h.model.Control(ui.ControlSendOTP))
	assert.Equal(t, ui.Control{Label: "Verify"}, h.model.Control(ui.ControlVerifyOTP))
	assert.Equal(t, ui.Control{Label: "Pay ₹1 Token", Enabled: true}, h.model.Control(ui.ControlPayToken))
	assert.Equal(t, "Enter 10-digit Indian mobile number (e.g., 7039940998)", h.model.State().PhoneHelp)

	snap := h.snapshot()
	assert.Equal(t, models.OTPNotSent, snap.OTPState)
	assert.Equal(t, models.PaymentIdle, snap.PaymentState)
	assert.Equal(t, models.CountryIndia, snap.Session.CountryCode)
	assert.False(t, snap.Complete)
}

func TestPhoneChanged_TogglesSendControl(t *testing.T) {
	h := newHarness(t)

	h.dispatch(models.IntentPhoneChanged, "7039940998")
	assert.True(t, h.model.Control(ui.ControlSendOTP).Enabled)

	h.dispatch(models.IntentPhoneChanged, "5039940998")
	assert.False(t, h.model.Control(ui.ControlSendOTP).Enabled)
}

func TestSendOTP_InvalidPhoneMakesNoRequest(t *testing.T) {
	h := newHarness(t)
	h.dispatch(models.IntentPhoneChanged, "12345")
	h.dispatch(models.IntentSendOTP, "")

	assert.Zero(t, h.backend.Calls("send_otp"))
	msg, ok := h.model.Message(ui.MessageOTP)
	require.True(t, ok)
	assert.Equal(t, ui.Message{Text: "Please enter a valid phone number", Kind: ui.MessageError}, msg)
	assert.Equal(t, models.OTPNotSent, h.snapshot().OTPState)
}

func TestSendOTP_SendsComposedNumberAndStartsCooldown(t *testing.T) {
	h := newHarness(t)
	var gotPhone, gotNumber string
	var gotCode models.CountryCode
	h.backend.sendOTP = func(phone string, code models.CountryCode, number string) (*models.SendOTPResult, error) {
		gotPhone, gotCode, gotNumber = phone, code, number
		return &models.SendOTPResult{Message: "OTP sent to +917039940998"}, nil
	}

	h.sendValidOTP()

	assert.Equal(t, "+917039940998", gotPhone)
	assert.Equal(t, models.CountryIndia, gotCode)
	assert.Equal(t, "7039940998", gotNumber)
	assert.Equal(t, models.OTPSent, h.snapshot().OTPState)
	assert.Equal(t, ui.Control{Label: "Resend (30s)", TimerActive: true}, h.model.Control(ui.ControlSendOTP))

	msg, _ := h.model.Message(ui.MessageOTP)
	assert.Equal(t, ui.Message{Text: "OTP sent to +917039940998", Kind: ui.MessageSuccess}, msg)

	h.loop.Advance(2 * time.Second)
	assert.Equal(t, "Resend (29s)", h.model.Control(ui.ControlSendOTP).Label)

	h.loop.Advance(28 * time.Second)
	assert.Equal(t, "Resend (1s)", h.model.Control(ui.ControlSendOTP).Label)
	assert.False(t, h.model.Control(ui.ControlSendOTP).Enabled)

	h.loop.Advance(time.Second)
	assert.Equal(t, ui.Control{Label: "Send OTP", Enabled: true}, h.model.Control(ui.ControlSendOTP))
	assert.Equal(t, timers.Expired, h.ctrl.timers.State(timers.OTPCooldown))
}

func TestSendOTP_ResendAfterCooldown(t *testing.T) {
	h := newHarness(t)
	h.sendValidOTP()

	// Ignored while the cooldown runs.
	h.dispatch(models.IntentSendOTP, "")
	assert.Equal(t, 1, h.backend.Calls("send_otp"))

	h.loop.Advance(31 * time.Second)
	h.dispatch(models.IntentSendOTP, "")
	assert.Equal(t, 2, h.backend.Calls("send_otp"))
	assert.Equal(t, models.OTPSent, h.snapshot().OTPState)
}

func TestSendOTP_PhoneChangeDuringCooldownKeepsSendDisabled(t *testing.T) {
	h := newHarness(t)
	h.sendValidOTP()

	h.dispatch(models.IntentPhoneChanged, "9876543210")
	assert.False(t, h.model.Control(ui.ControlSendOTP).Enabled)
	assert.Equal(t, "Resend (30s)", h.model.Control(ui.ControlSendOTP).Label)
}

func TestSendOTP_RejectedShowsServerMessage(t *testing.T) {
	h := newHarness(t)
	h.backend.sendOTP = func(string, models.CountryCode, string) (*models.SendOTPResult, error) {
		return nil, &backend.Error{Kind: backend.KindRejected, Action: backend.ActionSendOTP, Message: "Too many attempts"}
	}

	h.sendValidOTP()

	msg, _ := h.model.Message(ui.MessageOTP)
	assert.Equal(t, ui.Message{Text: "Too many attempts", Kind: ui.MessageError}, msg)
	assert.Equal(t, ui.Control{Label: "Send OTP", Enabled: true}, h.model.Control(ui.ControlSendOTP))
	assert.Equal(t, models.OTPNotSent, h.snapshot().OTPState)
	assert.False(t, h.ctrl.timers.Running(timers.OTPCooldown))
}

func TestSendOTP_RejectedWithoutMessageUsesDefault(t *testing.T) {
	h := newHarness(t)
	h.backend.sendOTP = func(string, models.CountryCode, string) (*models.SendOTPResult, error) {
		return nil, &backend.Error{Kind: backend.KindRejected, Action: backend.ActionSendOTP}
	}

	h.sendValidOTP()

	msg, _ := h.model.Message(ui.MessageOTP)
	assert.Equal(t, "Failed to send OTP", msg.Text)
}

func TestSendOTP_TransportFailure(t *testing.T) {
	h := newHarness(t)
	h.backend.sendOTP = func(string, models.CountryCode, string) (*models.SendOTPResult, error) {
		return nil, &backend.Error{Kind: backend.KindTransport, Action: backend.ActionSendOTP, Err: errors.New("connection refused")}
	}

	h.sendValidOTP()

	msg, _ := h.model.Message(ui.MessageOTP)
	assert.Equal(t, ui.Message{Text: "Network error. Please try again.", Kind: ui.MessageError}, msg)
	assert.True(t, h.model.Control(ui.ControlSendOTP).Enabled)
}

func TestSendOTP_InFlightElsewhereIsReportedAsRetryable(t *testing.T) {
	h := newHarness(t)
	guard := h.ctrl.guard
	require.NoError(t, guard.Acquire(context.Background(), "cod_request:"+h.ctrl.SessionID()+":"+backend.ActionSendOTP))

	h.sendValidOTP()

	assert.Zero(t, h.backend.Calls("send_otp"))
	msg, _ := h.model.Message(ui.MessageOTP)
	assert.Equal(t, "Network error. Please try again.", msg.Text)
	assert.Equal(t, models.OTPNotSent, h.snapshot().OTPState)
}

func TestSendOTP_TestModeAlertsOTP(t *testing.T) {
	h := newHarness(t, withSettings(func(s *Settings) { s.TestMode = true }))
	h.backend.sendOTP = func(string, models.CountryCode, string) (*models.SendOTPResult, error) {
		return &models.SendOTPResult{Message: "OTP sent", TestMode: true, OTP: "482913"}, nil
	}

	h.sendValidOTP()
	assert.Empty(t, h.model.State().Alerts)

	h.loop.Advance(500 * time.Millisecond)
	assert.Equal(t, []string{"TEST MODE - Your OTP is: 482913"}, h.model.State().Alerts)
}

func TestSendOTP_TestModeAlertDroppedOnUnload(t *testing.T) {
	h := newHarness(t, withSettings(func(s *Settings) { s.TestMode = true }))
	h.backend.sendOTP = func(string, models.CountryCode, string) (*models.SendOTPResult, error) {
		return &models.SendOTPResult{Message: "OTP sent", TestMode: true, OTP: "482913"}, nil
	}

	h.sendValidOTP()
	h.dispatch(models.IntentUnload, "")
	h.loop.Advance(time.Second)

	assert.Empty(t, h.model.State().Alerts)
}

func TestCountryChanged_ClearsPhoneAndUpdatesHelp(t *testing.T) {
	h := newHarness(t)
	h.dispatch(models.IntentPhoneChanged, "7039940998")

	h.dispatch(models.IntentCountryChanged, "+44")

	st := h.model.State()
	assert.Equal(t, "Enter UK phone number (e.g., 7700900123)", st.PhoneHelp)
	assert.Contains(t, st.ClearedInputs, ui.InputPhone)
	assert.Empty(t, h.snapshot().Session.Phone)
	assert.False(t, h.model.Control(ui.ControlSendOTP).Enabled)

	h.dispatch(models.IntentPhoneChanged, "7700900123")
	assert.True(t, h.model.Control(ui.ControlSendOTP).Enabled)

	h.dispatch(models.IntentCountryChanged, "+33")
	assert.Equal(t, "Select country and enter phone number", h.model.State().PhoneHelp)
	h.dispatch(models.IntentPhoneChanged, "7700900123")
	assert.False(t, h.model.Control(ui.ControlSendOTP).Enabled)
}

func TestOTPChanged_TogglesVerifyControl(t *testing.T) {
	h := newHarness(t)

	h.dispatch(models.IntentOTPChanged, "123456")
	assert.True(t, h.model.Control(ui.ControlVerifyOTP).Enabled)

	h.dispatch(models.IntentOTPChanged, "12345")
	assert.False(t, h.model.Control(ui.ControlVerifyOTP).Enabled)

	h.dispatch(models.IntentOTPChanged, "abcdef")
	assert.False(t, h.model.Control(ui.ControlVerifyOTP).Enabled)
}

func TestVerifyOTP_InvalidCodeMakesNoRequest(t *testing.T) {
	h := newHarness(t)
	h.sendValidOTP()
	h.dispatch(models.IntentOTPChanged, "12a456")
	h.dispatch(models.IntentVerifyOTP, "")

	assert.Zero(t, h.backend.Calls("verify_otp"))
	msg, _ := h.model.Message(ui.MessageOTP)
	assert.Equal(t, ui.Message{Text: "Please enter a valid 6-digit OTP", Kind: ui.MessageError}, msg)
}

func TestVerifyOTP_Success(t *testing.T) {
	h := newHarness(t)
	var gotOTP string
	h.backend.verifyOTP = func(otp string) (string, error) {
		gotOTP = otp
		return "Phone number verified", nil
	}

	h.sendValidOTP()
	h.dispatch(models.IntentOTPChanged, "123456")
	h.dispatch(models.IntentVerifyOTP, "")

	assert.Equal(t, "123456", gotOTP)
	snap := h.snapshot()
	assert.Equal(t, models.OTPVerified, snap.OTPState)
	assert.True(t, snap.Session.OTPVerified)
	assert.False(t, snap.Session.TokenVerified)
	assert.False(t, snap.Complete)

	assert.Equal(t, ui.Control{Label: "✓ Verified", Verified: true}, h.model.Control(ui.ControlVerifyOTP))
	assert.False(t, h.model.Control(ui.ControlSendOTP).Enabled)
	assert.False(t, h.ctrl.timers.Running(timers.OTPCooldown))
	assert.Equal(t, ui.BadgeVerified, h.model.State().Badges[ui.BadgeOTP])
	assert.Equal(t, 1, h.model.FieldCount(gate.FieldOTPVerified))

	msg, _ := h.model.Message(ui.MessageOTP)
	assert.Equal(t, ui.Message{Text: "Phone number verified", Kind: ui.MessageSuccess}, msg)

	// Input changes no longer unlock anything.
	h.dispatch(models.IntentOTPChanged, "654321")
	h.dispatch(models.IntentPhoneChanged, "9876543210")
	assert.Equal(t, ui.Control{Label: "✓ Verified", Verified: true}, h.model.Control(ui.ControlVerifyOTP))
	assert.False(t, h.model.Control(ui.ControlSendOTP).Enabled)
}

func TestVerifyOTP_MarkingTwiceLeavesOneField(t *testing.T) {
	h := newHarness(t)
	h.sendValidOTP()
	h.dispatch(models.IntentOTPChanged, "123456")
	h.dispatch(models.IntentVerifyOTP, "")

	h.ctrl.otp.verified("")
	h.dispatch(models.IntentVerifyOTP, "")

	assert.Equal(t, 1, h.model.FieldCount(gate.FieldOTPVerified))
	assert.Equal(t, 1, h.backend.Calls("verify_otp"))
}

func TestVerifyOTP_FailureAllowsRetry(t *testing.T) {
	h := newHarness(t)
	attempts := 0
	h.backend.verifyOTP = func(string) (string, error) {
		attempts++
		if attempts == 1 {
			return "", &backend.Error{Kind: backend.KindRejected, Action: backend.ActionVerifyOTP}
		}
		return "OK", nil
	}

	h.sendValidOTP()
	h.dispatch(models.IntentOTPChanged, "111111")
	h.dispatch(models.IntentVerifyOTP, "")

	msg, _ := h.model.Message(ui.MessageOTP)
	assert.Equal(t, ui.Message{Text: "Invalid OTP", Kind: ui.MessageError}, msg)
	assert.Equal(t, ui.Control{Label: "Verify", Enabled: true}, h.model.Control(ui.ControlVerifyOTP))
	assert.Equal(t, models.OTPSent, h.snapshot().OTPState)
	assert.Zero(t, h.model.FieldCount(gate.FieldOTPVerified))

	h.dispatch(models.IntentVerifyOTP, "")
	assert.Equal(t, models.OTPVerified, h.snapshot().OTPState)
}
