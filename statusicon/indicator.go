package statusicon

import (
	"math"

	"github.com/shelepuginivan/traybox"
	"github.com/shelepuginivan/traybox/scene"
	"github.com/shelepuginivan/traybox/settings"
)

// IndicatorIcon shows a StatusNotifierItem and proxies its menu.
type IndicatorIcon struct {
	Base

	indicator Indicator
	label     *scene.Label

	menuClient  MenuClient
	menuCleanup func()

	parentGuard   *scene.SubmenuGuard
	parentCleanup func()
}

// NewIndicatorIcon returns a hidden icon that follows indicator and shows
// itself once the indicator is ready.
func NewIndicatorIcon(env Env, indicator Indicator) *IndicatorIcon {
	i := &IndicatorIcon{indicator: indicator}
	i.init(env, indicator.AccessibleName(), "IndicatorIcon", i)

	i.logger = i.logger.With("id", indicator.UniqueID())
	i.box.AddStyleClass("appindicator-box")
	i.actor.Hide()

	i.menu = scene.NewPopup(indicator.UniqueID())
	i.menu.SetLogger(i.logger)
	i.menu.SetSourceActor(i.actor)
	i.menu.SetCloseOnSelect(false)
	i.env.Stage.MenuManager().AddMenu(i.menu)

	i.addCleanup(indicator.Connect(i.onSignal))
	i.addCleanup(i.actor.OnVisibleChanged(func(bool) { i.updateMenu() }))
	i.addCleanup(i.actor.OnEvent(i.onEvent))
	i.addCleanup(i.env.Settings.Connect(settings.KeyIconSize, i.updateIcon))
	i.addCleanup(i.env.Stage.OnScaleFactorChanged(func(int) { i.updateIcon() }))
	i.addCleanup(i.releaseParent)
	i.addCleanup(i.closeMenuClient)

	i.updateIcon()
	i.refreshVisibility()

	return i
}

// Indicator returns the indicator i follows.
func (i *IndicatorIcon) Indicator() Indicator {
	return i.indicator
}

// Label returns the inline text shown next to the icon, or nil.
func (i *IndicatorIcon) Label() *scene.Label {
	return i.label
}

// MenuClient returns the live menu client, or nil.
func (i *IndicatorIcon) MenuClient() MenuClient {
	return i.menuClient
}

func (i *IndicatorIcon) isReady() bool {
	return i.indicator.IsReady()
}

func (i *IndicatorIcon) uniqueID() string {
	return i.indicator.UniqueID()
}

func (i *IndicatorIcon) refreshVisibility() {
	if !i.IsReady() {
		i.actor.Hide()
		return
	}

	i.updateLabel()
	i.updateStatus()
	i.updateMenu()
}

func (i *IndicatorIcon) onSignal(sig traybox.ItemSignal) {
	if i.destroyed {
		return
	}

	switch sig {
	case traybox.SignalReady:
		i.refreshVisibility()
	case traybox.SignalIcon:
		i.updateIcon()
	case traybox.SignalMenu:
		i.updateMenu()
	case traybox.SignalLabel:
		i.updateLabel()
	case traybox.SignalStatus:
		i.updateStatus()
	case traybox.SignalReset:
		i.updateStatus()
		i.updateLabel()
	case traybox.SignalAccessibleName:
		i.actor.SetAccessibleName(i.indicator.AccessibleName())
	case traybox.SignalDestroy:
		i.Destroy()
	}
}

// updateIcon replaces the icon surface with a fresh one.
func (i *IndicatorIcon) updateIcon() {
	size := i.env.iconSize() * i.env.Stage.ScaleFactor()

	if err := i.SetIconSurface(i.env.NewSurface(i.indicator, size)); err != nil {
		i.logger.Error("failed to create indicator icon", "error", err)
	}
}

func (i *IndicatorIcon) updateLabel() {
	text := i.indicator.Label()

	if text == "" {
		if i.label != nil {
			i.label.Node().Destroy()
			i.label = nil
		}
		return
	}

	if i.label == nil {
		i.label = scene.NewLabel(text)
	}

	i.label.SetText(text)
	i.box.AddChild(i.label.Node())
}

func (i *IndicatorIcon) updateStatus() {
	if !i.IsReady() {
		return
	}

	wasVisible := i.actor.Visible()
	i.actor.SetVisible(i.indicator.Status() != traybox.ItemStatusPassive)

	if i.actor.Visible() == wasVisible {
		return
	}

	i.indicator.CheckAlive(func(err error) {
		if err != nil {
			i.logger.Warn("indicator liveness check failed", "error", err)
		}
	})
}

// updateMenu replaces the menu client. The old client is closed before a new
// one is created, so there is never more than one.
func (i *IndicatorIcon) updateMenu() {
	if i.menuClient != nil {
		i.closeMenuClient()
		i.menu.RemoveAll()
	}

	if i.destroyed || !i.actor.Visible() || i.env.NewMenuClient == nil {
		return
	}

	menuPath := i.indicator.MenuPath()
	if menuPath == "" {
		return
	}

	client := i.env.NewMenuClient(i.indicator.BusName(), menuPath, i.indicator)
	if client == nil {
		return
	}

	i.menuClient = client

	if client.IsReady() {
		client.AttachTo(i.menu)
	} else {
		i.logger.Debug("menu client not ready, waiting")
		i.menu.Node().SetReactive(true)
	}

	i.menuCleanup = client.OnReadyChanged(func(ready bool) {
		if i.menuClient != client {
			return
		}

		if ready {
			client.AttachTo(i.menu)
		} else {
			i.updateMenu()
		}
	})
}

func (i *IndicatorIcon) closeMenuClient() {
	if i.menuClient == nil {
		return
	}

	if i.menuCleanup != nil {
		i.menuCleanup()
	}

	i.menuClient.Close()
	i.menuClient = nil
	i.menuCleanup = nil
}

func (i *IndicatorIcon) onEvent(ev scene.Event) scene.Propagation {
	switch ev.Type {
	case scene.ButtonPress:
		return i.onButtonPress(ev)
	case scene.Scroll:
		return i.onScroll(ev)
	}

	return scene.EventPropagate
}

func (i *IndicatorIcon) onButtonPress(ev scene.Event) scene.Propagation {
	switch ev.Button {
	case scene.ButtonMiddle:
		i.env.Stage.MenuManager().CloseActive()
		i.indicator.SecondaryActivateAt(ev.Time, int(ev.X), int(ev.Y))
		return scene.EventStop

	case scene.ButtonPrimary, scene.ButtonSecondary:
		if i.menu.NumItems() == 0 {
			i.logger.Debug("menu has no items, not opening")
			return scene.EventStop
		}

		i.openMenu()
		return scene.EventStop
	}

	return scene.EventPropagate
}

func (i *IndicatorIcon) openMenu() {
	if parent := i.env.Stage.MenuManager().OpenMenuContaining(i.actor); parent != nil && parent != i.menu {
		i.holdParent(parent)
	}

	x, y := i.actor.TransformedPosition()
	_, height := i.actor.Size()
	menuWidth, menuHeight := i.menu.Size()

	x, y = PlaceSubmenu(i.env.Stage.PrimaryMonitor(), x, y, height, menuWidth, menuHeight)
	i.menu.SetPosition(x, y)

	if !i.menu.IsOpen() {
		i.menu.Open(scene.AnimationSlide)
		i.logger.Debug("submenu opened")
	}

	i.menu.GrabKeyFocus()
}

// holdParent keeps parent, the open popup showing i, open until the menu of i
// closes.
func (i *IndicatorIcon) holdParent(parent *scene.Popup) {
	i.releaseParent()

	guard := parent.BeginSubmenu()
	i.parentGuard = guard
	i.parentCleanup = i.menu.OnOpenStateChanged(func(open bool) {
		if open || i.parentGuard != guard {
			return
		}

		i.releaseParent()
		i.logger.Debug("submenu closed")
	})
}

func (i *IndicatorIcon) releaseParent() {
	if i.parentGuard == nil {
		return
	}

	i.parentCleanup()
	i.parentGuard.Release()
	i.parentGuard = nil
	i.parentCleanup = nil
}

func (i *IndicatorIcon) onScroll(ev scene.Event) scene.Propagation {
	if ev.Direction != scene.ScrollSmooth {
		return scene.EventPropagate
	}

	i.indicator.ScrollDelta(int(math.Round(ev.DX)), int(math.Round(ev.DY)))
	return scene.EventStop
}

// PlaceSubmenu returns the position of a menu opened from an actor at (x, y)
// with the given height. The menu opens below the actor, moves left to stay
// on the monitor and opens upward when there is no room below. Non-positive
// menu sizes fall back to 200x300.
func PlaceSubmenu(monitor scene.Monitor, x, y, actorHeight, menuWidth, menuHeight float64) (float64, float64) {
	if menuWidth <= 0 {
		menuWidth = defaultMenuWidth
	}

	if menuHeight <= 0 {
		menuHeight = defaultMenuHeight
	}

	if x+menuWidth > monitor.Width {
		x = max(monitor.Width-menuWidth, 0)
	}

	switch {
	case y+actorHeight+menuHeight <= monitor.Height:
		y += actorHeight
	case y-menuHeight >= 0:
		y -= menuHeight
	default:
		y = monitor.Height - menuHeight
	}

	return x, y
}
