// Package scene is a retained-mode widget model for the tray.
//
// It carries no rendering code. The tray core builds and mutates a tree of
// [Node] values; a presentation shell (GTK, a compositor panel, or the
// headless logger in cmd/traybox) renders that tree and feeds input back with
// [Deliver]. All methods must be called from the event loop.
package scene

import (
	"slices"

	"github.com/shelepuginivan/traybox/internal/signal"
)

// Propagation tells [Deliver] whether an event continues to bubble.
type Propagation int

const (
	EventPropagate Propagation = iota
	EventStop
)

// Node is an element of the widget tree.
type Node struct {
	name           string
	accessibleName string
	parent         *Node
	children       []*Node

	visible   bool
	reactive  bool
	hover     bool
	keyFocus  bool
	opacity   uint8
	x, y      float64
	width     float64
	height    float64
	destroyed bool

	styleClasses  []string
	pseudoClasses []string

	effects     map[string]Effect
	effectOrder []string

	destroySignal  signal.Signal[*Node]
	hoverSignal    signal.Signal[bool]
	visibleSignal  signal.Signal[bool]
	eventHandlers  []eventHandler
	nextHandlerKey int
}

type eventHandler struct {
	key int
	fn  func(Event) Propagation
}

// NewNode returns a visible, reactive, fully opaque node.
func NewNode(name string) *Node {
	return &Node{
		name:     name,
		visible:  true,
		reactive: true,
		opacity:  255,
		effects:  make(map[string]Effect),
	}
}

// Node returns n itself, which makes every node a [Surface].
func (n *Node) Node() *Node {
	return n
}

func (n *Node) Name() string {
	return n.name
}

func (n *Node) AccessibleName() string {
	return n.accessibleName
}

func (n *Node) SetAccessibleName(name string) {
	n.accessibleName = name
}

// Parent returns the parent node, or nil for a root or detached node.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns a copy of the child list.
func (n *Node) Children() []*Node {
	return slices.Clone(n.children)
}

// AddChild appends child, detaching it from its previous parent first.
// Adding to or adding a destroyed node is a no-op.
func (n *Node) AddChild(child *Node) {
	if n.destroyed || child == nil || child.destroyed || child == n {
		return
	}

	if child.parent == n {
		return
	}

	child.Unparent()
	child.parent = n
	n.children = append(n.children, child)
}

// InsertChild adds child like AddChild and moves it to index, clamped to
// the child list.
func (n *Node) InsertChild(child *Node, index int) {
	n.AddChild(child)
	if child == nil || child.parent != n {
		return
	}

	n.children = slices.DeleteFunc(n.children, func(c *Node) bool { return c == child })
	index = min(max(index, 0), len(n.children))
	n.children = slices.Insert(n.children, index, child)
}

// RemoveChild detaches child if n is its parent.
func (n *Node) RemoveChild(child *Node) {
	if child == nil || child.parent != n {
		return
	}

	n.children = slices.DeleteFunc(n.children, func(c *Node) bool { return c == child })
	child.parent = nil
}

// Unparent detaches n from its parent, if any.
func (n *Node) Unparent() {
	if n.parent != nil {
		n.parent.RemoveChild(n)
	}
}

// Contains reports whether other is n or one of its descendants.
func (n *Node) Contains(other *Node) bool {
	for p := other; p != nil; p = p.parent {
		if p == n {
			return true
		}
	}

	return false
}

// DestroyAllChildren destroys every child of n.
func (n *Node) DestroyAllChildren() {
	for _, child := range n.Children() {
		child.Destroy()
	}
}

// Destroy destroys the children of n, detaches n from its parent and emits
// the destroy notification. Destroying a node twice is a no-op.
func (n *Node) Destroy() {
	if n.destroyed {
		return
	}

	n.destroyed = true
	n.DestroyAllChildren()
	n.Unparent()
	n.destroySignal.Emit(n)

	n.destroySignal.Clear()
	n.hoverSignal.Clear()
	n.visibleSignal.Clear()
	n.eventHandlers = nil
}

func (n *Node) IsDestroyed() bool {
	return n.destroyed
}

// OnDestroy registers fn to run when n is destroyed and returns a function
// that removes it.
func (n *Node) OnDestroy(fn func()) func() {
	return n.destroySignal.Subscribe(func(*Node) { fn() })
}

func (n *Node) Visible() bool {
	return n.visible
}

// SetVisible shows or hides n, notifying visibility handlers on change.
func (n *Node) SetVisible(visible bool) {
	if n.visible == visible {
		return
	}

	n.visible = visible
	n.visibleSignal.Emit(visible)
}

func (n *Node) Show() { n.SetVisible(true) }
func (n *Node) Hide() { n.SetVisible(false) }

// OnVisibleChanged registers fn to run when visibility changes.
func (n *Node) OnVisibleChanged(fn func(visible bool)) func() {
	return n.visibleSignal.Subscribe(fn)
}

// Mapped reports whether n and all its ancestors are visible.
func (n *Node) Mapped() bool {
	for p := n; p != nil; p = p.parent {
		if !p.visible {
			return false
		}
	}

	return true
}

func (n *Node) Reactive() bool {
	return n.reactive
}

func (n *Node) SetReactive(reactive bool) {
	n.reactive = reactive
}

func (n *Node) Opacity() uint8 {
	return n.opacity
}

func (n *Node) SetOpacity(opacity uint8) {
	n.opacity = opacity
}

func (n *Node) Hover() bool {
	return n.hover
}

// SetHover updates the pointer-hover state, notifying handlers on change.
func (n *Node) SetHover(hover bool) {
	if n.hover == hover {
		return
	}

	n.hover = hover
	n.hoverSignal.Emit(hover)
}

// OnHoverChanged registers fn to run when the hover state changes.
func (n *Node) OnHoverChanged(fn func(hover bool)) func() {
	return n.hoverSignal.Subscribe(fn)
}

func (n *Node) GrabKeyFocus() {
	n.keyFocus = true
}

func (n *Node) ReleaseKeyFocus() {
	n.keyFocus = false
}

func (n *Node) HasKeyFocus() bool {
	return n.keyFocus
}

// Position returns the position of n relative to its parent.
func (n *Node) Position() (x, y float64) {
	return n.x, n.y
}

func (n *Node) SetPosition(x, y float64) {
	n.x, n.y = x, y
}

// TransformedPosition returns the position of n in stage coordinates.
func (n *Node) TransformedPosition() (x, y float64) {
	for p := n; p != nil; p = p.parent {
		x += p.x
		y += p.y
	}

	return x, y
}

func (n *Node) Size() (width, height float64) {
	return n.width, n.height
}

func (n *Node) SetSize(width, height float64) {
	n.width, n.height = width, height
}

func (n *Node) AddStyleClass(class string) {
	if !slices.Contains(n.styleClasses, class) {
		n.styleClasses = append(n.styleClasses, class)
	}
}

func (n *Node) HasStyleClass(class string) bool {
	return slices.Contains(n.styleClasses, class)
}

func (n *Node) StyleClasses() []string {
	return slices.Clone(n.styleClasses)
}

func (n *Node) AddPseudoClass(class string) {
	if !slices.Contains(n.pseudoClasses, class) {
		n.pseudoClasses = append(n.pseudoClasses, class)
	}
}

func (n *Node) RemovePseudoClass(class string) {
	n.pseudoClasses = slices.DeleteFunc(n.pseudoClasses, func(c string) bool { return c == class })
}

func (n *Node) HasPseudoClass(class string) bool {
	return slices.Contains(n.pseudoClasses, class)
}

// OnEvent registers an input handler. Handlers run in registration order
// until one returns [EventStop].
func (n *Node) OnEvent(fn func(Event) Propagation) func() {
	n.nextHandlerKey++
	key := n.nextHandlerKey
	n.eventHandlers = append(n.eventHandlers, eventHandler{key: key, fn: fn})

	return func() {
		n.eventHandlers = slices.DeleteFunc(n.eventHandlers, func(h eventHandler) bool { return h.key == key })
	}
}

// HandleEvent runs the input handlers of n alone, without bubbling.
func (n *Node) HandleEvent(ev Event) Propagation {
	if !n.reactive || n.destroyed {
		return EventPropagate
	}

	for _, h := range slices.Clone(n.eventHandlers) {
		if h.fn(ev) == EventStop {
			return EventStop
		}
	}

	return EventPropagate
}

// Deliver dispatches ev to target and then to each ancestor until a handler
// stops propagation.
func Deliver(target *Node, ev Event) Propagation {
	if ev.Source == nil {
		ev.Source = target
	}

	for n := target; n != nil; n = n.parent {
		if n.HandleEvent(ev) == EventStop {
			return EventStop
		}
	}

	return EventPropagate
}
