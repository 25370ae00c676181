// Package service holds the verification controller and the two flows it drives: phone
// OTP verification and the token payment. All state lives on the controller's event loop.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/akylbek/payment-system/cod-verifier/internal/backend"
	"github.com/akylbek/payment-system/cod-verifier/internal/device"
	"github.com/akylbek/payment-system/cod-verifier/internal/eventloop"
	"github.com/akylbek/payment-system/cod-verifier/internal/gate"
	"github.com/akylbek/payment-system/cod-verifier/internal/interfaces"
	"github.com/akylbek/payment-system/cod-verifier/internal/lock"
	"github.com/akylbek/payment-system/cod-verifier/internal/models"
	"github.com/akylbek/payment-system/cod-verifier/internal/telemetry"
	"github.com/akylbek/payment-system/cod-verifier/internal/timers"
	"github.com/akylbek/payment-system/cod-verifier/internal/ui"
	"github.com/akylbek/payment-system/cod-verifier/internal/validation"
)

var ErrUnknownIntent = errors.New("unknown intent")

const (
	methodCOD       = "cod"
	warningText     = "Complete verification before placing order"
	networkError    = "Network error. Please try again."
	defaultCooldown = 30
	outboxSize      = 64
)

// Settings are the per-checkout options the host page would normally inject.
type Settings struct {
	OTPCooldownSeconds int
	TestMode           bool
	RequireOTP         bool
	RequireToken       bool
	Currency           string
	PayeeAddress       string
	PayeeName          string
	FallbackKey        string
	Device             device.Info
}

// Deps are the controller's collaborators. Guard, Publisher and Classifier are optional.
type Deps struct {
	Loop       eventloop.Loop
	Backend    interfaces.Backend
	View       ui.View
	Form       gate.HostForm
	Popup      ui.PaymentPopup
	Guard      interfaces.RequestGuard
	Publisher  interfaces.EventPublisher
	Classifier device.Classifier
}

// Controller owns one VerificationSession. Dispatch and the read methods may be called
// from any goroutine; everything else runs on the loop.
type Controller struct {
	loop       eventloop.Loop
	backend    interfaces.Backend
	view       ui.View
	form       gate.HostForm
	popup      ui.PaymentPopup
	guard      interfaces.RequestGuard
	publisher  interfaces.EventPublisher
	classifier device.Classifier
	settings   Settings

	session *models.VerificationSession
	timers  *timers.Manager
	msg     *ui.Messenger
	gate    *gate.Gate
	otp     *otpFlow
	pay     *paymentFlow
	history []models.TransitionEvent

	// outbox feeds the single publishing goroutine so sinks see transitions in the
	// order they happened.
	outbox    chan models.TransitionEvent
	closing   chan struct{}
	published chan struct{}
	closeOnce sync.Once
}

func NewController(deps Deps, settings Settings) *Controller {
	if settings.OTPCooldownSeconds <= 0 {
		settings.OTPCooldownSeconds = defaultCooldown
	}
	if settings.Currency == "" {
		settings.Currency = "INR"
	}
	if deps.Guard == nil {
		deps.Guard = lock.NewMemoryGuard()
	}
	if deps.Popup == nil {
		deps.Popup = ui.UnavailablePopup{}
	}
	if deps.Classifier == nil {
		deps.Classifier = device.Default()
	}

	c := &Controller{
		loop:       deps.Loop,
		backend:    deps.Backend,
		view:       deps.View,
		form:       deps.Form,
		popup:      deps.Popup,
		guard:      deps.Guard,
		publisher:  deps.Publisher,
		classifier: deps.Classifier,
		settings:   settings,
		session:    models.NewVerificationSession(deps.Loop.Now()),
		timers:     timers.NewManager(deps.Loop),
		msg:        ui.NewMessenger(deps.View, deps.Loop),
		gate:       gate.New(deps.Form),
	}
	if c.publisher != nil {
		c.outbox = make(chan models.TransitionEvent, outboxSize)
		c.closing = make(chan struct{})
		c.published = make(chan struct{})
		go c.publishLoop()
	}
	c.otp = &otpFlow{c: c, state: models.OTPNotSent}
	c.pay = &paymentFlow{c: c, state: models.PaymentIdle}

	c.view.SetPhoneHelp(validation.PhoneHelpText(c.session.CountryCode))
	c.otp.render()
	c.pay.render()
	c.msg.Badge(ui.BadgeOTP, ui.BadgePending)
	c.msg.Badge(ui.BadgeToken, ui.BadgePending)

	telemetry.Logger.Info("Verification session created",
		zap.String("session_id", c.session.ID),
		zap.Bool("test_mode", settings.TestMode),
	)
	return c
}

func (c *Controller) SessionID() string { return c.session.ID }

// Dispatch queues intent for the loop. Unknown intents are rejected immediately.
func (c *Controller) Dispatch(intent models.Intent) error {
	if !intent.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownIntent, intent.Kind)
	}
	c.loop.Post(func() { c.handle(intent) })
	return nil
}

func (c *Controller) handle(intent models.Intent) {
	telemetry.Logger.Debug("Intent received",
		zap.String("session_id", c.session.ID),
		zap.String("intent", string(intent.Kind)),
	)

	switch intent.Kind {
	case models.IntentPaymentMethodChanged:
		c.paymentMethodChanged(intent.Value)
	case models.IntentCountryChanged:
		c.otp.countryChanged(models.CountryCode(intent.Value))
	case models.IntentPhoneChanged:
		c.otp.phoneChanged(intent.Value)
	case models.IntentSendOTP:
		c.otp.send()
	case models.IntentOTPChanged:
		c.otp.codeChanged(intent.Value)
	case models.IntentVerifyOTP:
		c.otp.verify()
	case models.IntentPayToken:
		c.pay.initiate()
	case models.IntentCloseQR:
		c.pay.closeQR()
	case models.IntentTokenConfirmedChanged:
		c.form.SetChecked(gate.FieldTokenConfirmed, c.session.TokenVerified)
	case models.IntentPopupPaid:
		c.pay.popupPaid(intent.Value)
	case models.IntentPopupDismissed:
		c.pay.popupDismissed()
	case models.IntentUnload:
		c.cancelAll()
	}
}

func (c *Controller) paymentMethodChanged(method string) {
	c.session.PaymentMethod = method
	if method == methodCOD {
		c.view.ShowWidget()
		c.view.ShowWarning(warningText)
		c.view.SetPhoneHelp(validation.PhoneHelpText(c.session.CountryCode))
		return
	}
	c.view.HideWidget()
	c.view.HideWarning()
	c.cancelAll()
}

// cancelAll stops every timer and puts the controls they drove back into an
// interactive state. Verification flags are kept.
func (c *Controller) cancelAll() {
	c.timers.CancelAll()
	c.otp.render()
	c.pay.abort()
}

// Snapshot reads the session on the loop.
func (c *Controller) Snapshot(ctx context.Context) (models.SessionSnapshot, error) {
	return onLoop(ctx, c.loop, c.snapshot)
}

func (c *Controller) snapshot() models.SessionSnapshot {
	return models.SessionSnapshot{
		Session:      *c.session,
		OTPState:     c.otp.state,
		PaymentState: c.pay.state,
		Mobile:       c.classifier.IsMobile(c.settings.Device),
		Complete:     c.gate.Complete(c.settings.RequireOTP, c.settings.RequireToken),
		DeepLink:     c.pay.deepLink,
	}
}

// Transitions returns the in-memory transition history of this session.
func (c *Controller) Transitions(ctx context.Context) ([]models.TransitionEvent, error) {
	return onLoop(ctx, c.loop, func() []models.TransitionEvent {
		return append([]models.TransitionEvent(nil), c.history...)
	})
}

func onLoop[T any](ctx context.Context, loop eventloop.Loop, read func() T) (T, error) {
	ch := make(chan T, 1)
	loop.Post(func() { ch <- read() })
	select {
	case v := <-ch:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (c *Controller) transition(flow, from, to string) {
	if from == to {
		return
	}
	event := models.TransitionEvent{
		SessionID:     c.session.ID,
		Flow:          flow,
		State:         to,
		PreviousState: from,
		Timestamp:     c.loop.Now(),
	}
	c.history = append(c.history, event)

	telemetry.Logger.Info("Verification state transition",
		zap.String("session_id", c.session.ID),
		zap.String("flow", flow),
		zap.String("from_state", from),
		zap.String("to_state", to),
	)

	if c.outbox == nil {
		return
	}
	select {
	case c.outbox <- event:
	case <-c.closing:
		telemetry.Logger.Warn("Dropping transition after close",
			zap.String("session_id", event.SessionID),
			zap.String("flow", event.Flow),
			zap.String("to_state", event.State),
		)
	}
}

func (c *Controller) publishLoop() {
	defer close(c.published)
	for {
		select {
		case event := <-c.outbox:
			c.publish(event)
		case <-c.closing:
			for {
				select {
				case event := <-c.outbox:
					c.publish(event)
				default:
					return
				}
			}
		}
	}
}

func (c *Controller) publish(event models.TransitionEvent) {
	if err := c.publisher.Publish(context.Background(), event); err != nil {
		telemetry.Logger.Error("Failed to publish transition",
			zap.String("session_id", event.SessionID),
			zap.String("flow", event.Flow),
			zap.Error(err),
		)
	}
}

// Close flushes queued transitions to the publisher and stops the publishing
// goroutine. It does not close the publisher itself.
func (c *Controller) Close() {
	if c.outbox == nil {
		return
	}
	c.closeOnce.Do(func() { close(c.closing) })
	<-c.published
}

// request runs call off the loop while holding the in-flight guard for action, then
// hands the result to done on the loop.
func (c *Controller) request(action string, call func(ctx context.Context) error, done func(err error)) {
	key := lock.Key(c.session.ID, action)
	var err error
	c.loop.Go(func() {
		ctx := context.Background()
		if err = c.guard.Acquire(ctx, key); err != nil {
			return
		}
		defer func() {
			if rerr := c.guard.Release(ctx, key); rerr != nil {
				telemetry.Logger.Warn("Failed to release request guard", zap.String("key", key), zap.Error(rerr))
			}
		}()
		err = call(ctx)
	}, func() { done(err) })
}

func (c *Controller) stale(action string, fields ...zap.Field) {
	telemetry.StaleCallbacks.WithLabelValues(action).Inc()
	telemetry.Logger.Warn("Dropping stale response",
		append([]zap.Field{zap.String("session_id", c.session.ID), zap.String("action", action)}, fields...)...,
	)
}

// failureText picks what the user sees for a failed request.
func failureText(err error, fallback string) string {
	if errors.Is(err, lock.ErrInFlight) || backend.IsTransport(err) {
		return networkError
	}
	return backend.MessageOr(err, fallback)
}
