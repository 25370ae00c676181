package models

import (
	"time"

	"github.com/google/uuid"
)

type CountryCode string

const (
	CountryIndia CountryCode = "+91"
	CountryUS    CountryCode = "+1"
	CountryUK    CountryCode = "+44"
)

type OTPState string

const (
	OTPNotSent   OTPState = "NOT_SENT"
	OTPSending   OTPState = "SENDING"
	OTPSent      OTPState = "SENT"
	OTPVerifying OTPState = "VERIFYING"
	OTPVerified  OTPState = "VERIFIED"
)

type PaymentState string

const (
	PaymentIdle                PaymentState = "IDLE"
	PaymentCreatingLink        PaymentState = "CREATING_LINK"
	PaymentAwaitingPopupResult PaymentState = "AWAITING_POPUP_RESULT"
	PaymentAwaitingQRScan      PaymentState = "AWAITING_QR_SCAN"
	PaymentVerifying           PaymentState = "VERIFYING"
	PaymentVerified            PaymentState = "VERIFIED"
	PaymentExpired             PaymentState = "PAYMENT_EXPIRED"
	PaymentCancelled           PaymentState = "CANCELLED"
)

const (
	FlowOTP   = "otp"
	FlowToken = "token"
)

// VerificationSession lives for one checkout page. Only the OTP flow writes OTPVerified
// and only the token flow writes TokenVerified.
type VerificationSession struct {
	ID                   string      `json:"id"`
	Phone                string      `json:"phone"`
	CountryCode          CountryCode `json:"country_code"`
	OTP                  string      `json:"-"`
	OTPVerified          bool        `json:"otp_verified"`
	TokenVerified        bool        `json:"token_verified"`
	CurrentPaymentLinkID string      `json:"current_payment_link_id,omitempty"`
	CurrentPaymentID     string      `json:"current_payment_id,omitempty"`
	PaymentMethod        string      `json:"payment_method"`
	CreatedAt            time.Time   `json:"created_at"`
}

func NewVerificationSession(now time.Time) *VerificationSession {
	return &VerificationSession{
		ID:          uuid.NewString(),
		CountryCode: CountryIndia,
		CreatedAt:   now,
	}
}

// FullPhone is the number sent to the backend: country code followed by the local digits.
func (s *VerificationSession) FullPhone() string {
	return string(s.CountryCode) + s.Phone
}

// PaymentLinkInfo is the create-payment-link response. Extra keeps every gateway field
// so it can be handed to the popup SDK untouched.
type PaymentLinkInfo struct {
	LinkID string         `json:"link_id"`
	Key    string         `json:"key,omitempty"`
	Extra  map[string]any `json:"-"`
}

type SendOTPResult struct {
	Message  string `json:"message"`
	TestMode bool   `json:"test_mode"`
	OTP      string `json:"otp"`
}

type PaymentStatus struct {
	Status    string `json:"status"`
	PaymentID string `json:"payment_id"`
}

func (p PaymentStatus) Paid() bool { return p.Status == "paid" }

// TransitionEvent is published for every flow state change.
type TransitionEvent struct {
	SessionID     string    `json:"session_id"`
	Flow          string    `json:"flow"`
	State         string    `json:"state"`
	PreviousState string    `json:"previous_state"`
	Timestamp     time.Time `json:"timestamp"`
}

// SessionSnapshot is a point-in-time copy of the controller state.
type SessionSnapshot struct {
	Session      VerificationSession `json:"session"`
	OTPState     OTPState            `json:"otp_state"`
	PaymentState PaymentState        `json:"payment_state"`
	Mobile       bool                `json:"mobile"`
	Complete     bool                `json:"complete"`
	// DeepLink is the UPI URI behind the QR modal while it is open.
	DeepLink string `json:"deep_link,omitempty"`
}
