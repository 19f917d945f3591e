package statusicon

import (
	"log/slog"

	"github.com/shelepuginivan/traybox/scene"
)

// StatusIcon is a tray icon shown by the panel. The set of implementations
// is closed: [*IndicatorIcon] and [*TrayIcon].
type StatusIcon interface {
	scene.Widget

	// UniqueID identifies the source of the icon.
	UniqueID() string

	// IsReady reports whether the icon has something to show.
	IsReady() bool

	// SetIconSurface replaces the icon surface, destroying the previous one.
	SetIconSurface(s scene.Surface) error

	// Icon returns the current icon surface node, or nil.
	Icon() *scene.Node

	// Menu returns the popup of the icon, or nil when it has none.
	Menu() *scene.Popup

	// HandleEvent feeds an input event to the icon.
	HandleEvent(ev scene.Event) scene.Propagation

	Destroy()
	IsDestroyed() bool

	// OnDestroy registers fn to run when the icon is destroyed.
	OnDestroy(fn func()) func()

	statusIcon()
}

// variant binds a [Base] to its source.
type variant interface {
	isReady() bool
	uniqueID() string
}

// readinessHandler is implemented by variants that do more than toggle
// visibility when their readiness is re-evaluated.
type readinessHandler interface {
	refreshVisibility()
}

// iconLossHandler is implemented by variants that cannot outlive their icon.
type iconLossHandler interface {
	iconDestroyed(icon *scene.Node)
}

// Base implements the lifecycle shared by all status icons: it owns at most
// one icon surface, shows itself when ready and drives the effects of the
// icon.
type Base struct {
	env      Env
	logger   *slog.Logger
	typeName string
	variant  variant

	actor *scene.Node
	box   *scene.Node
	menu  *scene.Popup

	icon        *scene.Node
	iconCleanup func()
	effects     *EffectsController

	destroyed bool
	cleanups  []func()
}

// NewBase returns a status icon without a source. IsReady and UniqueID panic
// until a variant is bound, so it is only useful embedded in a variant.
func NewBase(env Env, name string) *Base {
	b := &Base{}
	b.init(env, name, "Base", nil)

	return b
}

func (b *Base) init(env Env, name, typeName string, v variant) {
	env = env.withDefaults()

	b.env = env
	b.logger = env.Logger.With("component", "statusicon")
	b.typeName = typeName
	b.variant = v

	b.actor = scene.NewNode(name)
	b.actor.SetAccessibleName(name)
	b.actor.AddStyleClass("panel-button")

	b.box = scene.NewNode("box")
	b.box.AddStyleClass("panel-status-indicators-box")
	b.actor.AddChild(b.box)

	b.effects = NewEffectsController(env.Settings, b.actor)
	b.addCleanup(b.actor.OnDestroy(b.Destroy))
}

func (b *Base) statusIcon() {}

func (b *Base) Actor() *scene.Node {
	return b.actor
}

// Box returns the container of the icon surface.
func (b *Base) Box() *scene.Node {
	return b.box
}

func (b *Base) Menu() *scene.Popup {
	return b.menu
}

func (b *Base) Icon() *scene.Node {
	return b.icon
}

func (b *Base) Effects() *EffectsController {
	return b.effects
}

func (b *Base) IsReady() bool {
	if b.variant == nil {
		panic(&NotImplementedError{Method: "IsReady", Type: b.typeName})
	}

	return b.variant.isReady()
}

func (b *Base) UniqueID() string {
	if b.variant == nil {
		panic(&NotImplementedError{Method: "UniqueID", Type: b.typeName})
	}

	return b.variant.uniqueID()
}

func (b *Base) HandleEvent(ev scene.Event) scene.Propagation {
	if ev.Source == nil {
		ev.Source = b.actor
	}

	return b.actor.HandleEvent(ev)
}

// SetIconSurface makes s the icon of b. The previous surface, if different,
// is destroyed first. Surfaces set after b is destroyed are destroyed
// immediately.
func (b *Base) SetIconSurface(s scene.Surface) error {
	node, err := surfaceNode(s)
	if err != nil {
		return err
	}

	if b.destroyed {
		node.Destroy()
		return nil
	}

	if node == b.icon {
		return nil
	}

	b.releaseIcon()

	b.icon = node
	b.box.InsertChild(node, 0)
	b.iconCleanup = node.OnDestroy(func() { b.onIconDestroyed(node) })

	b.effects.SetIcon(node)
	b.showIfReady()

	return nil
}

func (b *Base) IsDestroyed() bool {
	return b.destroyed
}

func (b *Base) OnDestroy(fn func()) func() {
	return b.actor.OnDestroy(fn)
}

// Destroy releases the icon surface, every subscription and the actor. It is
// safe to call more than once.
func (b *Base) Destroy() {
	if b.destroyed {
		return
	}

	b.destroyed = true

	for i := len(b.cleanups) - 1; i >= 0; i-- {
		b.cleanups[i]()
	}
	b.cleanups = nil

	b.effects.Close()
	b.releaseIcon()

	if b.menu != nil {
		b.menu.Destroy()
	}

	b.actor.Destroy()
}

func (b *Base) showIfReady() {
	if b.destroyed || b.variant == nil {
		return
	}

	if h, ok := b.variant.(readinessHandler); ok {
		h.refreshVisibility()
		return
	}

	b.actor.SetVisible(b.IsReady())
}

func (b *Base) addCleanup(fn func()) {
	b.cleanups = append(b.cleanups, fn)
}

// releaseIcon destroys the current icon without reacting to its destroy
// notification.
func (b *Base) releaseIcon() {
	if b.icon == nil {
		return
	}

	icon := b.icon
	b.iconCleanup()
	b.icon = nil
	b.iconCleanup = nil

	if !b.destroyed {
		b.effects.SetIcon(nil)
	}

	icon.Destroy()
}

// onIconDestroyed handles an icon destroyed by someone else.
func (b *Base) onIconDestroyed(icon *scene.Node) {
	b.icon = nil
	b.iconCleanup = nil
	b.effects.SetIcon(nil)

	if h, ok := b.variant.(iconLossHandler); ok {
		h.iconDestroyed(icon)
		return
	}

	b.showIfReady()
}

func surfaceNode(s scene.Surface) (*scene.Node, error) {
	if s == nil {
		return nil, &InvalidSurfaceError{Surface: s}
	}

	node := s.Node()
	if node == nil || node.IsDestroyed() {
		return nil, &InvalidSurfaceError{Surface: s}
	}

	return node, nil
}
