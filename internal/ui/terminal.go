package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/akylbek/payment-system/cod-verifier/internal/models"
)

// Terminal prints every UI change to out and keeps the same state as Model, so the
// ops HTTP surface keeps working when the verifier is driven from a console.
type Terminal struct {
	*Model
	mu  sync.Mutex
	out io.Writer
}

func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{Model: NewModel(), out: out}
}

func (t *Terminal) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, format+"\n", args...)
}

func (t *Terminal) ShowWidget() {
	t.Model.ShowWidget()
	t.printf("[cod] verification box shown")
}

func (t *Terminal) HideWidget() {
	t.Model.HideWidget()
	t.printf("[cod] verification box hidden")
}

func (t *Terminal) ShowWarning(text string) {
	t.Model.ShowWarning(text)
	t.printf("[warning] %s", text)
}

func (t *Terminal) SetPhoneHelp(text string) {
	t.Model.SetPhoneHelp(text)
	t.printf("[phone] %s", text)
}

func (t *Terminal) ClearInput(id InputID) {
	t.Model.ClearInput(id)
	t.printf("[%s] cleared", id)
}

func (t *Terminal) SetControl(id ControlID, c Control) {
	t.Model.SetControl(id, c)
	state := "enabled"
	if !c.Enabled {
		state = "disabled"
	}
	t.printf("[%s] %q (%s)", id, c.Label, state)
}

func (t *Terminal) ShowMessage(target MessageTarget, msg Message) {
	t.Model.ShowMessage(target, msg)
	t.printf("[%s] %s: %s", target, msg.Kind, msg.Text)
}

func (t *Terminal) SetBadge(id BadgeID, status BadgeStatus) {
	t.Model.SetBadge(id, status)
	t.printf("[%s] %s", id, status.Label())
}

func (t *Terminal) ShowQRModal(modal QRModal) {
	t.Model.ShowQRModal(modal)
	t.printf("\n%s\n%s%s\n%s\n%s\nPayment expires in: %s",
		modal.Title, modal.QR.Text(), modal.DeepLink, modal.Info, modal.Trust, modal.Timer)
}

// UpdateQRTimer only prints whole minutes so the console is not flooded.
func (t *Terminal) UpdateQRTimer(text string) {
	t.Model.UpdateQRTimer(text)
	if strings.HasSuffix(text, ":00") {
		t.printf("[qr] payment expires in %s", text)
	}
}

func (t *Terminal) CloseQRModal() {
	t.Model.CloseQRModal()
	t.printf("[qr] closed")
}

func (t *Terminal) ShowSuccessModal(secondsLeft int) {
	t.Model.ShowSuccessModal(secondsLeft)
	t.printf("Payment Successful! Your money will be refunded shortly. (closing in %d seconds)", secondsLeft)
}

func (t *Terminal) Alert(text string) {
	t.Model.Alert(text)
	t.printf("*** %s ***", text)
}

func (t *Terminal) Open(opts PopupOptions) error {
	_ = t.Model.Open(opts)
	t.printf("[popup] %s %d %s for order %s (contact %s); reply with 'paid <payment_id>' or 'dismiss'",
		opts.Name, opts.Amount, opts.Currency, opts.OrderID, opts.Contact)
	return nil
}

func (t *Terminal) Close() {
	if t.Model.State().Popup == nil {
		return
	}
	t.Model.Close()
	t.printf("[popup] closed")
}

func (t *Terminal) AppendHidden(name, value string) {
	t.Model.AppendHidden(name, value)
	t.printf("[form] hidden %s=%s", name, value)
}

// ParseCommand maps a console line to an intent. quit reports done=true.
func ParseCommand(line string) (intent models.Intent, done bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return models.Intent{}, false, fmt.Errorf("empty command")
	}
	arg := ""
	if len(fields) > 1 {
		arg = strings.Join(fields[1:], " ")
	}
	switch strings.ToLower(fields[0]) {
	case "quit", "exit":
		return models.Intent{Kind: models.IntentUnload}, true, nil
	case "method":
		return models.Intent{Kind: models.IntentPaymentMethodChanged, Value: arg}, false, nil
	case "country":
		return models.Intent{Kind: models.IntentCountryChanged, Value: arg}, false, nil
	case "phone":
		return models.Intent{Kind: models.IntentPhoneChanged, Value: arg}, false, nil
	case "send":
		return models.Intent{Kind: models.IntentSendOTP}, false, nil
	case "otp":
		return models.Intent{Kind: models.IntentOTPChanged, Value: arg}, false, nil
	case "verify":
		return models.Intent{Kind: models.IntentVerifyOTP}, false, nil
	case "pay":
		return models.Intent{Kind: models.IntentPayToken}, false, nil
	case "close":
		return models.Intent{Kind: models.IntentCloseQR}, false, nil
	case "paid":
		if arg == "" {
			return models.Intent{}, false, fmt.Errorf("usage: paid <payment_id>")
		}
		return models.Intent{Kind: models.IntentPopupPaid, Value: arg}, false, nil
	case "dismiss":
		return models.Intent{Kind: models.IntentPopupDismissed}, false, nil
	case "confirm":
		return models.Intent{Kind: models.IntentTokenConfirmedChanged, Value: "1"}, false, nil
	}
	return models.Intent{}, false, fmt.Errorf("unknown command %q", fields[0])
}
