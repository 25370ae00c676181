package ui

import (
	"time"

	"github.com/akylbek/payment-system/cod-verifier/internal/eventloop"
)

const (
	successMessageTTL      = 5 * time.Second
	SuccessModalSeconds    = 5
	successCountdownPeriod = time.Second
)

// Messenger renders status messages, badges and the payment success modal. Success
// messages hide themselves after five seconds; errors stay until replaced.
type Messenger struct {
	view View
	loop eventloop.Loop

	msgGen     map[MessageTarget]uint64
	successGen uint64
	successOn  bool
}

func NewMessenger(view View, loop eventloop.Loop) *Messenger {
	return &Messenger{
		view:   view,
		loop:   loop,
		msgGen: make(map[MessageTarget]uint64),
	}
}

func (m *Messenger) Success(target MessageTarget, text string) {
	gen := m.show(target, Message{Text: text, Kind: MessageSuccess})
	m.loop.AfterFunc(successMessageTTL, func() {
		// A newer message owns the slot now.
		if m.msgGen[target] == gen {
			m.view.HideMessage(target)
		}
	})
}

func (m *Messenger) Error(target MessageTarget, text string) {
	m.show(target, Message{Text: text, Kind: MessageError})
}

func (m *Messenger) show(target MessageTarget, msg Message) uint64 {
	m.msgGen[target]++
	m.view.ShowMessage(target, msg)
	return m.msgGen[target]
}

func (m *Messenger) Badge(id BadgeID, status BadgeStatus) {
	m.view.SetBadge(id, status)
}

// SuccessModal shows the payment success overlay with a five second countdown.
func (m *Messenger) SuccessModal() {
	m.successGen++
	gen := m.successGen
	m.successOn = true
	m.view.ShowSuccessModal(SuccessModalSeconds)

	left := SuccessModalSeconds
	var tick func()
	tick = func() {
		if m.successGen != gen || !m.successOn {
			return
		}
		left--
		if left <= 0 {
			m.successOn = false
			m.view.CloseSuccessModal()
			return
		}
		m.view.UpdateSuccessCountdown(left)
		m.loop.AfterFunc(successCountdownPeriod, tick)
	}
	m.loop.AfterFunc(successCountdownPeriod, tick)
}

func (m *Messenger) SuccessModalOpen() bool { return m.successOn }
