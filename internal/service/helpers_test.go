package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/akylbek/payment-system/cod-verifier/internal/device"
	"github.com/akylbek/payment-system/cod-verifier/internal/eventloop"
	"github.com/akylbek/payment-system/cod-verifier/internal/models"
	"github.com/akylbek/payment-system/cod-verifier/internal/ui"
)

// fakeBackend answers from per-action funcs and counts calls.
type fakeBackend struct {
	mu    sync.Mutex
	calls map[string]int

	sendOTP        func(phone string, code models.CountryCode, number string) (*models.SendOTPResult, error)
	verifyOTP      func(otp string) (string, error)
	createLink     func() (*models.PaymentLinkInfo, error)
	checkStatus    func(linkID string, n int) (*models.PaymentStatus, error)
	verifyToken    func(paymentID, linkID string) (string, error)
	verifyTestMode func() (string, error)
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		calls: make(map[string]int),
		sendOTP: func(string, models.CountryCode, string) (*models.SendOTPResult, error) {
			return &models.SendOTPResult{Message: "OTP sent to your phone"}, nil
		},
		verifyOTP: func(string) (string, error) { return "OTP verified", nil },
		createLink: func() (*models.PaymentLinkInfo, error) {
			return &models.PaymentLinkInfo{LinkID: "plink_1"}, nil
		},
		checkStatus: func(string, int) (*models.PaymentStatus, error) {
			return &models.PaymentStatus{Status: "created"}, nil
		},
		verifyToken:    func(string, string) (string, error) { return "Payment verified", nil },
		verifyTestMode: func() (string, error) { return "Test payment verified", nil },
	}
}

func (b *fakeBackend) count(action string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[action]++
	return b.calls[action]
}

func (b *fakeBackend) Calls(action string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[action]
}

func (b *fakeBackend) SendOTP(_ context.Context, phone string, code models.CountryCode, number string) (*models.SendOTPResult, error) {
	b.count("send_otp")
	return b.sendOTP(phone, code, number)
}

func (b *fakeBackend) VerifyOTP(_ context.Context, otp string) (string, error) {
	b.count("verify_otp")
	return b.verifyOTP(otp)
}

func (b *fakeBackend) CreatePaymentLink(context.Context) (*models.PaymentLinkInfo, error) {
	b.count("create_link")
	return b.createLink()
}

func (b *fakeBackend) CheckPaymentStatus(_ context.Context, linkID string) (*models.PaymentStatus, error) {
	return b.checkStatus(linkID, b.count("check_status"))
}

func (b *fakeBackend) VerifyTokenPayment(_ context.Context, paymentID, linkID string) (string, error) {
	b.count("verify_token")
	return b.verifyToken(paymentID, linkID)
}

func (b *fakeBackend) VerifyTestModePayment(context.Context) (string, error) {
	b.count("verify_test_mode")
	return b.verifyTestMode()
}

// holdingLoop parks off-loop work while hold is set, so a test can deliver a response
// after the flow has moved on.
type holdingLoop struct {
	*eventloop.Manual
	hold bool
	held []func()
}

func (l *holdingLoop) Go(work func(), done func()) {
	if !l.hold {
		l.Manual.Go(work, done)
		return
	}
	l.held = append(l.held, func() { l.Manual.Go(work, done) })
}

func (l *holdingLoop) release() {
	held := l.held
	l.held = nil
	l.hold = false
	for _, fn := range held {
		fn()
	}
	l.Drain()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.TransitionEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e models.TransitionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

var (
	desktop = device.Info{ViewportWidth: 1280, UserAgent: "Mozilla/5.0 (X11; Linux x86_64)"}
	mobile  = device.Info{ViewportWidth: 390, UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0)"}
)

func defaultSettings() Settings {
	return Settings{
		OTPCooldownSeconds: 30,
		RequireOTP:         true,
		RequireToken:       true,
		Currency:           "INR",
		PayeeAddress:       "shop@okaxis",
		PayeeName:          "COD Verifier",
		FallbackKey:        "rzp_test_key",
		Device:             desktop,
	}
}

type harness struct {
	t       *testing.T
	loop    *holdingLoop
	model   *ui.Model
	backend *fakeBackend
	ctrl    *Controller
}

type option func(*Deps, *Settings)

func withSettings(fn func(*Settings)) option {
	return func(_ *Deps, s *Settings) { fn(s) }
}

func withDeps(fn func(*Deps)) option {
	return func(d *Deps, _ *Settings) { fn(d) }
}

func newHarness(t *testing.T, opts ...option) *harness {
	t.Helper()
	loop := &holdingLoop{Manual: eventloop.NewManual(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))}
	model := ui.NewModel()
	fb := newFakeBackend()

	deps := Deps{
		Loop:    loop,
		Backend: fb,
		View:    model,
		Form:    model,
		Popup:   model,
	}
	settings := defaultSettings()
	for _, opt := range opts {
		opt(&deps, &settings)
	}

	h := &harness{t: t, loop: loop, model: model, backend: fb}
	h.ctrl = NewController(deps, settings)
	return h
}

func (h *harness) dispatch(kind models.IntentKind, value string) {
	h.t.Helper()
	require.NoError(h.t, h.ctrl.Dispatch(models.Intent{Kind: kind, Value: value}))
	h.loop.Drain()
}

func (h *harness) snapshot() models.SessionSnapshot {
	return h.ctrl.snapshot()
}

// sendValidOTP enters a valid Indian number and sends.
func (h *harness) sendValidOTP() {
	h.dispatch(models.IntentPaymentMethodChanged, "cod")
	h.dispatch(models.IntentPhoneChanged, "7039940998")
	h.dispatch(models.IntentSendOTP, "")
}
