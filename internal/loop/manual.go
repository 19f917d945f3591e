package loop

import (
	"slices"
	"time"
)

// Manual is a [Scheduler] driven by explicit calls to [Manual.Advance]. It
// lets tests step through delayed callbacks deterministically.
type Manual struct {
	now     time.Duration
	pending []*manualTimer
}

// NewManual returns a [Manual] scheduler at time zero.
func NewManual() *Manual {
	return &Manual{}
}

// AfterFunc registers fn to run when the scheduler advances past d.
func (m *Manual) AfterFunc(d time.Duration, fn func()) Stopper {
	t := &manualTimer{at: m.now + d, fn: fn, owner: m}
	m.pending = append(m.pending, t)
	return t
}

// Advance moves the clock forward by d and runs every timer that became due,
// earliest first.
func (m *Manual) Advance(d time.Duration) {
	m.now += d

	for {
		idx := -1
		for i, t := range m.pending {
			if t.at <= m.now && (idx < 0 || t.at < m.pending[idx].at) {
				idx = i
			}
		}

		if idx < 0 {
			return
		}

		t := m.pending[idx]
		m.pending = slices.Delete(m.pending, idx, idx+1)
		t.fn()
	}
}

// Pending returns the number of timers that have neither fired nor been
// stopped.
func (m *Manual) Pending() int {
	return len(m.pending)
}

type manualTimer struct {
	at    time.Duration
	fn    func()
	owner *Manual
}

func (t *manualTimer) Stop() bool {
	idx := slices.Index(t.owner.pending, t)
	if idx < 0 {
		return false
	}

	t.owner.pending = slices.Delete(t.owner.pending, idx, idx+1)
	return true
}
