// Package ui is the view side of the verifier: the contract the controller renders
// through, the messaging and badge helpers, and two concrete views (an in-memory model
// served over HTTP and a terminal renderer).
package ui

import (
	"errors"

	"github.com/akylbek/payment-system/cod-verifier/internal/upi"
)

type ControlID string

const (
	ControlSendOTP   ControlID = "cod_send_otp"
	ControlVerifyOTP ControlID = "cod_verify_otp"
	ControlPayToken  ControlID = "cod_pay_token"
)

// Control is the rendered state of a button.
type Control struct {
	Label       string `json:"label"`
	Enabled     bool   `json:"enabled"`
	Verified    bool   `json:"verified,omitempty"`
	TimerActive bool   `json:"timer_active,omitempty"`
}

type InputID string

const (
	InputPhone InputID = "cod_phone"
	InputOTP   InputID = "cod_otp"
)

type MessageTarget string

const (
	MessageOTP   MessageTarget = "cod_otp_message"
	MessageToken MessageTarget = "cod_token_message"
)

type MessageKind string

const (
	MessageSuccess MessageKind = "success"
	MessageError   MessageKind = "error"
)

type Message struct {
	Text string      `json:"text"`
	Kind MessageKind `json:"kind"`
}

type BadgeID string

const (
	BadgeOTP   BadgeID = "cod-otp-badge"
	BadgeToken BadgeID = "cod-token-badge"
)

type BadgeStatus string

const (
	BadgePending  BadgeStatus = "pending"
	BadgeVerified BadgeStatus = "verified"
)

func (s BadgeStatus) Label() string {
	if s == BadgeVerified {
		return "Verified"
	}
	return "Pending"
}

// QRModal is the desktop payment overlay.
type QRModal struct {
	Title    string     `json:"title"`
	DeepLink string     `json:"deep_link"`
	Info     string     `json:"info"`
	Trust    string     `json:"trust"`
	Timer    string     `json:"timer"`
	QR       upi.Matrix `json:"-"`
}

// View is everything the controller can change on screen. Implementations are called
// from the controller's loop goroutine only.
type View interface {
	ShowWidget()
	HideWidget()
	ShowWarning(text string)
	HideWarning()
	SetPhoneHelp(text string)
	ClearInput(id InputID)
	SetControl(id ControlID, c Control)
	ShowMessage(target MessageTarget, msg Message)
	HideMessage(target MessageTarget)
	SetBadge(id BadgeID, status BadgeStatus)
	ShowQRModal(modal QRModal)
	UpdateQRTimer(text string)
	CloseQRModal()
	ShowSuccessModal(secondsLeft int)
	UpdateSuccessCountdown(secondsLeft int)
	CloseSuccessModal()
	// Alert shows a notice the user dismisses. The loop does not wait for it; only test
	// mode uses it.
	Alert(text string)
}

var ErrPopupUnavailable = errors.New("payment popup not loaded")

// PopupOptions is what the gateway checkout popup is opened with.
type PopupOptions struct {
	Key         string         `json:"key"`
	Amount      int64          `json:"amount"`
	Currency    string         `json:"currency"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	OrderID     string         `json:"order_id"`
	Contact     string         `json:"contact"`
	ThemeColor  string         `json:"theme_color"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// PaymentPopup opens the gateway's native checkout. Its outcome comes back to the
// controller as popup_paid or popup_dismissed intents.
type PaymentPopup interface {
	Open(opts PopupOptions) error
	// Close withdraws the popup after it was paid, dismissed or abandoned.
	Close()
}

// UnavailablePopup is used when no gateway SDK is present.
type UnavailablePopup struct{}

func (UnavailablePopup) Open(PopupOptions) error { return ErrPopupUnavailable }

func (UnavailablePopup) Close() {}
