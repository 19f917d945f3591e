package statusicon

import (
	"fmt"

	"github.com/shelepuginivan/traybox/internal/loop"
	"github.com/shelepuginivan/traybox/scene"
	"github.com/shelepuginivan/traybox/settings"
)

// EmbeddedClient is a legacy tray icon window embedded into the panel.
type EmbeddedClient interface {
	scene.Surface

	// WMClass returns the class part of the WM_CLASS property.
	WMClass() string

	// PID returns the process that owns the window, or 0 when unknown.
	PID() uint32

	// Click forwards a button or key event to the window.
	Click(ev scene.Event)

	// SetSize resizes the window.
	SetSize(width, height int)
}

const pseudoClassActive = "active"

// TrayIcon wraps an [EmbeddedClient]. It has no menu; clicks go straight to
// the embedded window.
type TrayIcon struct {
	Base

	client EmbeddedClient
	id     string

	touching   bool
	touchSlot  int
	touchEvent scene.Event
	touchTimer loop.Stopper
}

// NewTrayIcon embeds client. The environment must carry a scheduler for the
// touch long-press.
func NewTrayIcon(env Env, client EmbeddedClient) (*TrayIcon, error) {
	if env.Scheduler == nil {
		return nil, ErrNoScheduler
	}

	if _, err := surfaceNode(client); err != nil {
		return nil, err
	}

	t := &TrayIcon{
		client: client,
		id:     fmt.Sprintf("legacy:%s:%d", client.WMClass(), client.PID()),
	}

	t.init(env, client.WMClass(), "TrayIcon", t)
	t.logger = t.logger.With("id", t.id)
	t.logger.Debug("adding legacy tray icon")

	t.box.AddStyleClass("appindicator-trayicons-box")
	t.actor.AddStyleClass("appindicator-icon")
	t.actor.AddStyleClass("tray-icon")

	if err := t.SetIconSurface(client); err != nil {
		t.Destroy()
		return nil, err
	}

	t.addCleanup(t.actor.OnEvent(t.onEvent))
	t.addCleanup(t.env.Settings.Connect(settings.KeyIconSize, t.updateIconSize))
	t.addCleanup(t.env.Stage.OnScaleFactorChanged(func(int) { t.updateIconSize() }))
	t.addCleanup(t.cancelLongPress)
	t.addCleanup(func() { t.logger.Debug("destroying legacy tray icon") })

	t.updateIconSize()

	return t, nil
}

// Client returns the embedded window.
func (t *TrayIcon) Client() EmbeddedClient {
	return t.client
}

func (t *TrayIcon) isReady() bool {
	return t.icon != nil
}

func (t *TrayIcon) uniqueID() string {
	return t.id
}

func (t *TrayIcon) iconDestroyed(icon *scene.Node) {
	icon.ClearEffects()
	t.Destroy()
}

func (t *TrayIcon) onEvent(ev scene.Event) scene.Propagation {
	switch ev.Type {
	case scene.ButtonPress:
		t.actor.AddPseudoClass(pseudoClassActive)

	case scene.ButtonRelease:
		t.client.Click(ev)
		t.actor.RemovePseudoClass(pseudoClassActive)

	case scene.KeyPress:
		t.actor.AddPseudoClass(pseudoClassActive)
		t.client.Click(ev)

	case scene.KeyRelease:
		t.client.Click(ev)
		t.actor.RemovePseudoClass(pseudoClassActive)

	case scene.TouchBegin, scene.TouchUpdate, scene.TouchEnd, scene.TouchCancel:
		t.onTouch(ev)

	case scene.Leave:
		t.actor.RemovePseudoClass(pseudoClassActive)
		t.cancelLongPress()
	}

	return scene.EventPropagate
}

// onTouch turns a touch held for the long-press delay into a secondary click
// and a shorter one into a primary click. Only the first contact is tracked.
func (t *TrayIcon) onTouch(ev scene.Event) {
	switch {
	case ev.Type == scene.TouchBegin && !t.touching:
		t.actor.AddPseudoClass(pseudoClassActive)
		t.touching = true
		t.touchSlot = ev.Slot
		t.touchEvent = scene.SimulatedButton(ev)
		t.touchTimer = t.env.Scheduler.AfterFunc(t.env.longPressDelay(), t.onLongPress)

	case ev.Type == scene.TouchEnd && t.touching && ev.Slot == t.touchSlot:
		t.touching = false
		t.cancelLongPress()
		t.client.Click(scene.SimulatedButton(ev))
		t.actor.RemovePseudoClass(pseudoClassActive)

	case ev.Type == scene.TouchUpdate && t.touching && ev.Slot == t.touchSlot:
		t.actor.AddPseudoClass(pseudoClassActive)
		t.touchEvent = scene.SimulatedButton(ev)

	case ev.Type == scene.TouchCancel && t.touching && ev.Slot == t.touchSlot:
		t.touching = false
		t.cancelLongPress()
		t.actor.RemovePseudoClass(pseudoClassActive)
	}
}

func (t *TrayIcon) onLongPress() {
	t.touchTimer = nil
	t.touching = false

	if t.destroyed {
		return
	}

	ev := t.touchEvent
	ev.Button = scene.ButtonSecondary
	t.client.Click(ev)
	t.actor.RemovePseudoClass(pseudoClassActive)
}

func (t *TrayIcon) cancelLongPress() {
	if t.touchTimer == nil {
		return
	}

	t.touchTimer.Stop()
	t.touchTimer = nil
}

func (t *TrayIcon) updateIconSize() {
	if t.icon == nil {
		return
	}

	size := t.env.iconSize() * t.env.Stage.ScaleFactor()

	t.icon.SetSize(float64(size), float64(size))
	t.client.SetSize(size, size)
}
