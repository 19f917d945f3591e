package aggregator

import (
	"github.com/shelepuginivan/traybox/scene"
	"github.com/shelepuginivan/traybox/statusicon"
)

// AddIcon moves icon into the tray box. It reports false when the tray is
// disabled, the icon is destroyed or an icon with the same id is tracked.
func (t *Tray) AddIcon(icon statusicon.StatusIcon) bool {
	if !t.enabled || icon == nil || icon.IsDestroyed() {
		return false
	}

	id := iconID(icon)
	if _, ok := t.icons[id]; ok {
		return false
	}

	t.logger.Debug("adding tray icon", "id", id)

	container := scene.NewNode("tray-icon-item")
	container.AddStyleClass("popup-menu-item")

	icon.Actor().Unparent()
	container.AddChild(icon.Actor())

	e := &iconEntry{icon: icon, container: container}
	e.cleanups = append(e.cleanups,
		icon.OnDestroy(func() { t.forget(id, e) }),
		container.OnEvent(func(ev scene.Event) scene.Propagation {
			if ev.Source != container {
				return scene.EventPropagate
			}

			return icon.HandleEvent(ev)
		}),
	)

	t.icons[id] = e
	t.box.AddChild(container)

	t.logger.Debug("tray icon added", "id", id, "visible", icon.Actor().Visible())

	return true
}

// intake receives icons that would otherwise be placed in the panel.
func (t *Tray) intake(icon statusicon.StatusIcon) {
	t.logger.Debug("intake caught icon", "id", iconID(icon))
	t.claim(icon)
}

// claim adds icon and destroys it when another icon already has its id.
func (t *Tray) claim(icon statusicon.StatusIcon) {
	if t.AddIcon(icon) {
		return
	}

	if e, ok := t.icons[iconID(icon)]; ok && e.icon != icon {
		t.logger.Debug("dropping duplicate tray icon", "id", iconID(icon))
		icon.Destroy()
	}
}

func (t *Tray) forget(id string, e *iconEntry) {
	if t.icons[id] != e {
		return
	}

	delete(t.icons, id)
	e.release()

	t.logger.Debug("tray icon removed", "id", id)
}

// Populate rebuilds the set of tracked icons. Icons already in the tray are
// kept, icons left in the status area are claimed and every indicator of the
// watcher without an icon gets one. Calling it repeatedly is safe.
func (t *Tray) Populate() {
	if !t.enabled {
		return
	}

	t.logger.Debug("starting tray icon population")

	var alive []statusicon.StatusIcon
	for id, e := range t.icons {
		delete(t.icons, id)
		e.release()

		if !e.icon.IsDestroyed() {
			alive = append(alive, e.icon)
		}
	}

	for _, icon := range alive {
		t.claim(icon)
	}

	for key, w := range t.opts.StatusArea.Snapshot() {
		icon, ok := w.(statusicon.StatusIcon)
		if !ok {
			continue
		}

		t.logger.Debug("found existing icon in panel", "id", iconID(icon))

		t.opts.StatusArea.Remove(key)
		icon.Actor().Unparent()
		t.claim(icon)
	}

	if t.indicators != nil {
		for _, indicator := range t.indicators.Indicators() {
			if _, ok := t.icons[indicator.UniqueID()]; ok {
				continue
			}

			icon := statusicon.NewIndicatorIcon(t.env, indicator)
			t.logger.Debug("adding icon from watcher", "id", icon.UniqueID())
			t.claim(icon)
		}
	}

	t.logger.Debug("tray icons populated", "total", len(t.icons))
}

// maybeStartIndicators starts the watcher unless another process provides
// it. A failed start is logged and the tray is populated without it.
func (t *Tray) maybeStartIndicators() {
	if t.indicators != nil || t.opts.StartIndicators == nil {
		return
	}

	if t.opts.WatcherNameOwned != nil && t.opts.WatcherNameOwned() {
		t.logger.Debug("watcher name already owned, not starting watcher")
		return
	}

	src, err := t.opts.StartIndicators(t.onIndicatorRegistered)
	if err != nil {
		t.logger.Error("failed to start indicator watcher", "error", err)
		t.Populate()
		return
	}

	t.indicators = src
	t.logger.Debug("indicator watcher started")
	t.Populate()
}

// onIndicatorRegistered shows an indicator registered after startup. It goes
// through the panel placement so that an installed intake sees it.
func (t *Tray) onIndicatorRegistered(indicator statusicon.Indicator) {
	if !t.enabled {
		return
	}

	if _, ok := t.icons[indicator.UniqueID()]; ok {
		return
	}

	statusicon.AddIconToPanel(t.env, t.opts.StatusArea, statusicon.NewIndicatorIcon(t.env, indicator))
}

func iconID(icon statusicon.StatusIcon) string {
	if id := icon.UniqueID(); id != "" {
		return id
	}

	return unknownIconID
}
