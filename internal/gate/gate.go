// Package gate exposes verification results to the host checkout form as hidden fields.
// The host's own submit handling decides whether the order may be placed.
package gate

const (
	FieldOTPVerified    = "cod_otp_verified"
	FieldTokenVerified  = "cod_token_verified"
	FieldTokenConfirmed = "cod_token_confirmed"
)

// HostForm is the checkout form the markers are injected into.
type HostForm interface {
	HasField(name string) bool
	AppendHidden(name, value string)
	SetChecked(name string, checked bool)
}

type Gate struct {
	form HostForm
}

func New(form HostForm) *Gate {
	return &Gate{form: form}
}

// MarkOTPVerified is idempotent.
func (g *Gate) MarkOTPVerified() {
	g.ensure(FieldOTPVerified)
}

// MarkTokenVerified is idempotent and also ticks the confirmation checkbox.
func (g *Gate) MarkTokenVerified() {
	g.form.SetChecked(FieldTokenConfirmed, true)
	g.ensure(FieldTokenVerified)
}

func (g *Gate) ensure(name string) {
	if !g.form.HasField(name) {
		g.form.AppendHidden(name, "1")
	}
}

// Complete reports whether every required marker is present.
func (g *Gate) Complete(requireOTP, requireToken bool) bool {
	if requireOTP && !g.form.HasField(FieldOTPVerified) {
		return false
	}
	if requireToken && !g.form.HasField(FieldTokenVerified) {
		return false
	}
	return true
}
