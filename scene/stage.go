package scene

import (
	"slices"

	"github.com/shelepuginivan/traybox/internal/signal"
)

// MenuManager tracks the top-level popups of a panel and which one is
// active. Opening a tracked popup asks every other open one to close.
type MenuManager struct {
	menus []*Popup
	open  []*Popup
}

func NewMenuManager() *MenuManager {
	return &MenuManager{}
}

// AddMenu starts tracking p.
func (m *MenuManager) AddMenu(p *Popup) {
	if p == nil || slices.Contains(m.menus, p) {
		return
	}

	if p.manager != nil && p.manager != m {
		p.manager.RemoveMenu(p)
	}

	p.manager = m
	m.menus = append(m.menus, p)

	if p.IsOpen() {
		m.opened(p)
	}
}

// RemoveMenu stops tracking p.
func (m *MenuManager) RemoveMenu(p *Popup) {
	m.menus = slices.DeleteFunc(m.menus, func(q *Popup) bool { return q == p })
	m.open = slices.DeleteFunc(m.open, func(q *Popup) bool { return q == p })

	if p.manager == m {
		p.manager = nil
	}
}

// ActiveMenu returns the most recently opened popup that is still open.
func (m *MenuManager) ActiveMenu() *Popup {
	if len(m.open) == 0 {
		return nil
	}

	return m.open[len(m.open)-1]
}

// OpenMenuContaining returns the most recently opened popup whose tree holds
// n, or nil.
func (m *MenuManager) OpenMenuContaining(n *Node) *Popup {
	for i := len(m.open) - 1; i >= 0; i-- {
		if m.open[i].node.Contains(n) {
			return m.open[i]
		}
	}

	return nil
}

// CloseActive closes the active popup, if any.
func (m *MenuManager) CloseActive() {
	if active := m.ActiveMenu(); active != nil {
		active.Close(AnimationFull)
	}
}

func (m *MenuManager) opened(p *Popup) {
	for _, other := range slices.Clone(m.open) {
		if other != p {
			other.Close(AnimationNone)
		}
	}

	m.open = slices.DeleteFunc(m.open, func(q *Popup) bool { return q == p })
	m.open = append(m.open, p)
}

func (m *MenuManager) closed(p *Popup) {
	m.open = slices.DeleteFunc(m.open, func(q *Popup) bool { return q == p })
}

// Monitor describes the primary monitor in stage pixels.
type Monitor struct {
	Width  float64
	Height float64
}

// Stage holds display-wide state: the primary monitor, the scale factor and
// the panel menu manager.
type Stage struct {
	monitor     Monitor
	scaleFactor int
	scaleSignal signal.Signal[int]
	menus       *MenuManager
}

// NewStage returns a stage with scale factor 1.
func NewStage(monitor Monitor) *Stage {
	return &Stage{
		monitor:     monitor,
		scaleFactor: 1,
		menus:       NewMenuManager(),
	}
}

func (s *Stage) PrimaryMonitor() Monitor {
	return s.monitor
}

func (s *Stage) SetPrimaryMonitor(m Monitor) {
	s.monitor = m
}

func (s *Stage) ScaleFactor() int {
	return s.scaleFactor
}

// SetScaleFactor changes the scale factor, notifying handlers on change.
// Values below 1 are treated as 1.
func (s *Stage) SetScaleFactor(factor int) {
	factor = max(factor, 1)
	if factor == s.scaleFactor {
		return
	}

	s.scaleFactor = factor
	s.scaleSignal.Emit(factor)
}

// OnScaleFactorChanged registers fn to run when the scale factor changes.
func (s *Stage) OnScaleFactorChanged(fn func(factor int)) func() {
	return s.scaleSignal.Subscribe(fn)
}

func (s *Stage) MenuManager() *MenuManager {
	return s.menus
}
