package eventloop

import (
	"sort"
	"time"
)

// Manual is a virtual-time Loop. Nothing runs until Drain or Advance is called, and
// Go executes its work inline, which makes flows fully deterministic under test.
type Manual struct {
	now    time.Time
	queue  []func()
	timers []*manualTimer
	seq    int
}

type manualTimer struct {
	at      time.Time
	seq     int
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	live := !t.stopped
	t.stopped = true
	return live
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Post(fn func()) {
	m.queue = append(m.queue, fn)
}

func (m *Manual) Go(work func(), done func()) {
	work()
	if done != nil {
		m.Post(done)
	}
}

func (m *Manual) AfterFunc(d time.Duration, fn func()) Stopper {
	m.seq++
	t := &manualTimer{at: m.now.Add(d), seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	return t
}

func (m *Manual) Now() time.Time { return m.now }

// Drain runs queued functions, including ones queued while draining.
func (m *Manual) Drain() {
	for len(m.queue) > 0 {
		fn := m.queue[0]
		m.queue = m.queue[1:]
		fn()
	}
}

// Advance moves virtual time forward by d, firing due timers in deadline order and
// draining the queue after each one.
func (m *Manual) Advance(d time.Duration) {
	end := m.now.Add(d)
	m.Drain()
	for {
		next := m.nextDue(end)
		if next == nil {
			break
		}
		m.now = next.at
		next.stopped = true
		m.Post(next.fn)
		m.Drain()
	}
	m.now = end
}

// Pending reports how many timers are still scheduled.
func (m *Manual) Pending() int {
	n := 0
	for _, t := range m.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

func (m *Manual) nextDue(end time.Time) *manualTimer {
	live := m.timers[:0]
	for _, t := range m.timers {
		if !t.stopped {
			live = append(live, t)
		}
	}
	m.timers = live
	sort.SliceStable(m.timers, func(i, j int) bool {
		if m.timers[i].at.Equal(m.timers[j].at) {
			return m.timers[i].seq < m.timers[j].seq
		}
		return m.timers[i].at.Before(m.timers[j].at)
	})
	if len(m.timers) == 0 || m.timers[0].at.After(end) {
		return nil
	}
	return m.timers[0]
}
