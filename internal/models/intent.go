package models

type IntentKind string

const (
	IntentPaymentMethodChanged  IntentKind = "payment_method_changed"
	IntentCountryChanged        IntentKind = "country_changed"
	IntentPhoneChanged          IntentKind = "phone_changed"
	IntentSendOTP               IntentKind = "send_otp"
	IntentOTPChanged            IntentKind = "otp_changed"
	IntentVerifyOTP             IntentKind = "verify_otp"
	IntentPayToken              IntentKind = "pay_token"
	IntentCloseQR               IntentKind = "close_qr"
	IntentTokenConfirmedChanged IntentKind = "token_confirmed_changed"
	IntentPopupPaid             IntentKind = "popup_paid"
	IntentPopupDismissed        IntentKind = "popup_dismissed"
	IntentUnload                IntentKind = "unload"
)

var knownIntents = map[IntentKind]bool{
	IntentPaymentMethodChanged:  true,
	IntentCountryChanged:        true,
	IntentPhoneChanged:          true,
	IntentSendOTP:               true,
	IntentOTPChanged:            true,
	IntentVerifyOTP:             true,
	IntentPayToken:              true,
	IntentCloseQR:               true,
	IntentTokenConfirmedChanged: true,
	IntentPopupPaid:             true,
	IntentPopupDismissed:        true,
	IntentUnload:                true,
}

func (k IntentKind) Valid() bool { return knownIntents[k] }

// Intent is a named user action raised by the view layer.
type Intent struct {
	Kind  IntentKind `json:"intent"`
	Value string     `json:"value,omitempty"`
}
