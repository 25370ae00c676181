package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/payment-system/cod-verifier/internal/models"
	"github.com/akylbek/payment-system/cod-verifier/internal/upi"
)

func TestParseCommand(t *testing.T) {
	cases := []struct {
		line string
		want models.Intent
		done bool
	}{
		{"method cod", models.Intent{Kind: models.IntentPaymentMethodChanged, Value: "cod"}, false},
		{"country +44", models.Intent{Kind: models.IntentCountryChanged, Value: "+44"}, false},
		{"phone 7039940998", models.Intent{Kind: models.IntentPhoneChanged, Value: "7039940998"}, false},
		{"SEND", models.Intent{Kind: models.IntentSendOTP}, false},
		{"otp 123456", models.Intent{Kind: models.IntentOTPChanged, Value: "123456"}, false},
		{"verify", models.Intent{Kind: models.IntentVerifyOTP}, false},
		{"pay", models.Intent{Kind: models.IntentPayToken}, false},
		{"close", models.Intent{Kind: models.IntentCloseQR}, false},
		{"paid pay_9", models.Intent{Kind: models.IntentPopupPaid, Value: "pay_9"}, false},
		{"dismiss", models.Intent{Kind: models.IntentPopupDismissed}, false},
		{"quit", models.Intent{Kind: models.IntentUnload}, true},
	}
	for _, c := range cases {
		got, done, err := ParseCommand(c.line)
		require.NoError(t, err, c.line)
		assert.Equal(t, c.want, got, c.line)
		assert.Equal(t, c.done, done, c.line)
	}
}

func TestParseCommand_Errors(t *testing.T) {
	for _, line := range []string{"", "   ", "paid", "dance"} {
		_, _, err := ParseCommand(line)
		assert.Error(t, err, line)
	}
}

func TestTerminal_PrintsAndKeepsModelState(t *testing.T) {
	var out bytes.Buffer
	term := NewTerminal(&out)

	term.SetControl(ControlSendOTP, Control{Label: "Send OTP", Enabled: true})
	term.ShowMessage(MessageOTP, Message{Text: "OTP sent", Kind: MessageSuccess})
	term.AppendHidden("cod_otp_verified", "1")

	m, err := upi.Encode("upi://pay?pa=merchant%40upi")
	require.NoError(t, err)
	term.ShowQRModal(QRModal{Title: "Scan QR Code to Pay ₹1", DeepLink: "upi://pay", Timer: "15:00", QR: m})
	term.UpdateQRTimer("14:59")
	term.UpdateQRTimer("14:00")

	s := out.String()
	assert.Contains(t, s, `[cod_send_otp] "Send OTP" (enabled)`)
	assert.Contains(t, s, "[cod_otp_message] success: OTP sent")
	assert.Contains(t, s, "[form] hidden cod_otp_verified=1")
	assert.Contains(t, s, "Scan QR Code to Pay ₹1")
	assert.NotContains(t, s, "14:59")
	assert.Contains(t, s, "payment expires in 14:00")

	assert.True(t, term.HasField("cod_otp_verified"))
	assert.Equal(t, "14:00", term.State().QRModal.Timer)
}

func TestTerminal_ClosePopupClearsRequest(t *testing.T) {
	var out bytes.Buffer
	term := NewTerminal(&out)

	term.Close()
	assert.NotContains(t, out.String(), "[popup] closed")

	require.NoError(t, term.Open(PopupOptions{Key: "rzp_test_key", Amount: 100, Currency: "INR", OrderID: "plink_1"}))
	require.NotNil(t, term.State().Popup)

	term.Close()
	assert.Nil(t, term.State().Popup)
	assert.Contains(t, out.String(), "[popup] closed")
}

func TestTerminal_AlertPrintsAndReturns(t *testing.T) {
	var out bytes.Buffer
	term := NewTerminal(&out)

	term.Alert("TEST MODE - Your OTP is: 482913")

	assert.Contains(t, out.String(), "*** TEST MODE - Your OTP is: 482913 ***")
	assert.Equal(t, []string{"TEST MODE - Your OTP is: 482913"}, term.State().Alerts)
}
