// Package timers owns the verifier's countdown and polling timers. There is at most one
// live timer per Kind; starting a kind replaces the previous one.
package timers

import (
	"time"

	"go.uber.org/zap"

	"github.com/akylbek/payment-system/cod-verifier/internal/eventloop"
	"github.com/akylbek/payment-system/cod-verifier/internal/telemetry"
)

type Kind string

const (
	OTPCooldown   Kind = "otp_cooldown"
	PaymentExpiry Kind = "payment_expiry"
	StatusPoll    Kind = "status_poll"
	OTPTestAlert  Kind = "otp_test_alert"
)

var allKinds = []Kind{OTPCooldown, PaymentExpiry, StatusPoll, OTPTestAlert}

type State string

const (
	Idle      State = "IDLE"
	Running   State = "RUNNING"
	Expired   State = "EXPIRED"
	Cancelled State = "CANCELLED"
)

const tickInterval = time.Second

type handle struct {
	gen       uint64
	remaining int
	interval  time.Duration
	countdown bool
	stop      eventloop.Stopper
	onTick    func(remaining int)
	onExpire  func()
}

// Manager must only be used from the loop goroutine.
type Manager struct {
	loop   eventloop.Loop
	gen    uint64
	active map[Kind]*handle
	states map[Kind]State
}

func NewManager(loop eventloop.Loop) *Manager {
	return &Manager{
		loop:   loop,
		active: make(map[Kind]*handle),
		states: make(map[Kind]State),
	}
}

// Start runs a one-second countdown from seconds. Each tick calls onTick with the
// remaining count and then decrements; once the count drops below zero the timer
// expires and onExpire runs on that same tick.
func (m *Manager) Start(kind Kind, seconds int, onTick func(remaining int), onExpire func()) {
	m.start(kind, &handle{
		remaining: seconds,
		interval:  tickInterval,
		countdown: true,
		onTick:    onTick,
		onExpire:  onExpire,
	})
}

// Every calls fn each interval until the kind is cancelled or replaced.
func (m *Manager) Every(kind Kind, interval time.Duration, fn func()) {
	m.start(kind, &handle{
		interval: interval,
		onTick:   func(int) { fn() },
	})
}

// After runs fn once after d. It expires like a countdown that starts at zero.
func (m *Manager) After(kind Kind, d time.Duration, fn func()) {
	m.start(kind, &handle{
		interval:  d,
		countdown: true,
		onExpire:  fn,
	})
}

func (m *Manager) start(kind Kind, h *handle) {
	m.Cancel(kind)
	m.gen++
	h.gen = m.gen
	m.active[kind] = h
	m.states[kind] = Running
	m.schedule(kind, h)
}

func (m *Manager) schedule(kind Kind, h *handle) {
	gen := h.gen
	h.stop = m.loop.AfterFunc(h.interval, func() {
		// A callback from a replaced or cancelled handle is dropped here even if the
		// runtime timer had already fired before Stop.
		cur, ok := m.active[kind]
		if !ok || cur.gen != gen {
			return
		}
		m.tick(kind, cur)
	})
}

func (m *Manager) tick(kind Kind, h *handle) {
	if !h.countdown {
		m.schedule(kind, h)
		if h.onTick != nil {
			h.onTick(0)
		}
		return
	}

	if h.onTick != nil {
		h.onTick(h.remaining)
	}
	// onTick may have cancelled or replaced this timer.
	if cur, ok := m.active[kind]; !ok || cur.gen != h.gen {
		return
	}
	h.remaining--
	if h.remaining < 0 {
		delete(m.active, kind)
		m.states[kind] = Expired
		telemetry.TimerExpirations.WithLabelValues(string(kind)).Inc()
		telemetry.Logger.Debug("Timer expired", zap.String("kind", string(kind)))
		if h.onExpire != nil {
			h.onExpire()
		}
		return
	}
	m.schedule(kind, h)
}

// Cancel stops the timer of kind if one is running.
func (m *Manager) Cancel(kind Kind) {
	h, ok := m.active[kind]
	if !ok {
		return
	}
	if h.stop != nil {
		h.stop.Stop()
	}
	delete(m.active, kind)
	m.states[kind] = Cancelled
}

// CancelAll stops every running timer and returns all kinds to Idle.
func (m *Manager) CancelAll() {
	for _, kind := range allKinds {
		m.Cancel(kind)
		m.states[kind] = Idle
	}
}

func (m *Manager) State(kind Kind) State {
	if s, ok := m.states[kind]; ok {
		return s
	}
	return Idle
}

func (m *Manager) Running(kind Kind) bool {
	_, ok := m.active[kind]
	return ok
}

// Remaining is the count the next tick will report, or zero when the kind is not counting down.
func (m *Manager) Remaining(kind Kind) int {
	if h, ok := m.active[kind]; ok && h.countdown {
		return h.remaining
	}
	return 0
}
