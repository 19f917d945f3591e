package scene

import (
	"log/slog"
	"slices"

	"github.com/shelepuginivan/traybox/internal/signal"
)

// Animation used when a popup opens or closes.
type Animation int

const (
	AnimationNone Animation = iota
	AnimationSlide
	AnimationFade
	AnimationFull
)

// Popup is a menu shown next to its source actor.
type Popup struct {
	node          *Node
	source        *Node
	items         []*MenuItem
	open          bool
	closeOnSelect bool
	animation     Animation
	manager       *MenuManager
	guard         *SubmenuGuard
	openSignal    signal.Signal[bool]
	logger        *slog.Logger
}

// NewPopup returns a closed popup.
func NewPopup(name string) *Popup {
	p := &Popup{
		node:          NewNode(name),
		closeOnSelect: true,
		logger:        slog.Default(),
	}

	p.node.Hide()
	return p
}

func (p *Popup) Node() *Node {
	if p == nil {
		return nil
	}

	return p.node
}

func (p *Popup) SetLogger(logger *slog.Logger) {
	p.logger = logger
}

// SourceActor returns the node the popup is anchored to.
func (p *Popup) SourceActor() *Node {
	return p.source
}

func (p *Popup) SetSourceActor(source *Node) {
	p.source = source
}

// CloseOnSelect reports whether activating an item closes the popup.
func (p *Popup) CloseOnSelect() bool {
	return p.closeOnSelect
}

func (p *Popup) SetCloseOnSelect(v bool) {
	p.closeOnSelect = v
}

// AddItem appends item to the popup.
func (p *Popup) AddItem(item *MenuItem) {
	if item == nil || p.node.IsDestroyed() {
		return
	}

	item.menu = p
	p.items = append(p.items, item)
	p.node.AddChild(item.node)

	item.node.OnDestroy(func() {
		p.items = slices.DeleteFunc(p.items, func(i *MenuItem) bool { return i == item })
	})
}

// Items returns a copy of the item list.
func (p *Popup) Items() []*MenuItem {
	return slices.Clone(p.items)
}

// NumItems returns the number of items, separators included.
func (p *Popup) NumItems() int {
	return len(p.items)
}

// RemoveAll destroys every item.
func (p *Popup) RemoveAll() {
	for _, item := range slices.Clone(p.items) {
		item.Destroy()
	}

	p.items = nil
}

func (p *Popup) IsOpen() bool {
	return p.open
}

// Animation returns the animation of the last open or close.
func (p *Popup) Animation() Animation {
	return p.animation
}

// Open shows the popup. If a menu manager tracks the popup, every other open
// popup it tracks is asked to close.
func (p *Popup) Open(anim Animation) {
	if p.open || p.node.IsDestroyed() {
		return
	}

	p.open = true
	p.animation = anim
	p.node.Show()

	if p.manager != nil {
		p.manager.opened(p)
	}

	p.openSignal.Emit(true)
}

// Close hides the popup. It is a no-op while a submenu guard is held.
func (p *Popup) Close(anim Animation) {
	if p.guard != nil {
		p.logger.Debug("parent menu close suppressed because submenu is open", "menu", p.node.Name())
		return
	}

	p.close(anim)
}

// Hide hides the popup actor without changing its open state. It is a no-op
// while a submenu guard is held.
func (p *Popup) Hide() {
	if p.guard != nil {
		p.logger.Debug("parent menu hide suppressed because submenu is open", "menu", p.node.Name())
		return
	}

	p.node.Hide()
}

func (p *Popup) close(anim Animation) {
	if !p.open {
		return
	}

	p.open = false
	p.animation = anim
	p.node.Hide()
	p.node.ReleaseKeyFocus()

	if p.manager != nil {
		p.manager.closed(p)
	}

	p.openSignal.Emit(false)
}

// OnOpenStateChanged registers fn to run after the popup opens or closes.
func (p *Popup) OnOpenStateChanged(fn func(open bool)) func() {
	return p.openSignal.Subscribe(fn)
}

// GrabKeyFocus moves keyboard focus into the popup.
func (p *Popup) GrabKeyFocus() {
	p.node.GrabKeyFocus()
}

func (p *Popup) HasKeyFocus() bool {
	return p.node.HasKeyFocus()
}

func (p *Popup) Position() (x, y float64) {
	return p.node.Position()
}

func (p *Popup) SetPosition(x, y float64) {
	p.node.SetPosition(x, y)
}

func (p *Popup) Size() (width, height float64) {
	return p.node.Size()
}

func (p *Popup) SetSize(width, height float64) {
	p.node.SetSize(width, height)
}

// BeginSubmenu suppresses Close and Hide until the returned guard is
// released. A popup holds at most one guard: beginning a new one supersedes
// the previous guard, whose Release then does nothing.
func (p *Popup) BeginSubmenu() *SubmenuGuard {
	g := &SubmenuGuard{popup: p}
	p.guard = g

	return g
}

// SubmenuOpen reports whether a submenu guard is held.
func (p *Popup) SubmenuOpen() bool {
	return p.guard != nil
}

// Destroy closes the popup regardless of guards and destroys its items.
func (p *Popup) Destroy() {
	if p.node.IsDestroyed() {
		return
	}

	p.guard = nil
	p.close(AnimationNone)

	if p.manager != nil {
		p.manager.RemoveMenu(p)
	}

	p.node.Destroy()
	p.items = nil
	p.openSignal.Clear()
}

// SubmenuGuard keeps its parent popup open while a child popup is shown.
type SubmenuGuard struct {
	popup    *Popup
	released bool
}

// Release ends the suppression scope. It is safe to call more than once.
func (g *SubmenuGuard) Release() {
	if g == nil || g.released {
		return
	}

	g.released = true

	if g.popup.guard == g {
		g.popup.guard = nil
	}
}

// Active reports whether the guard still suppresses its popup.
func (g *SubmenuGuard) Active() bool {
	return g != nil && !g.released && g.popup.guard == g
}
