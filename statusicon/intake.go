package statusicon

import (
	"sync"

	"github.com/shelepuginivan/traybox/scene"
	"github.com/shelepuginivan/traybox/settings"
)

// statusAreaPosition is where icons are inserted into their panel box.
const statusAreaPosition = 1

var intake struct {
	mu sync.Mutex
	fn func(StatusIcon)
	id int
}

// InstallIntake routes every icon passed to [AddIconToPanel] to fn instead of
// the panel. At most one intake can be installed; uninstall removes it and is
// safe to call more than once.
func InstallIntake(fn func(StatusIcon)) (uninstall func(), err error) {
	intake.mu.Lock()
	defer intake.mu.Unlock()

	if intake.fn != nil {
		return nil, ErrIntakeInstalled
	}

	intake.id++
	id := intake.id
	intake.fn = fn

	return func() {
		intake.mu.Lock()
		defer intake.mu.Unlock()

		if intake.id == id {
			intake.fn = nil
		}
	}, nil
}

// IntakeInstalled reports whether an intake is installed.
func IntakeInstalled() bool {
	return currentIntake() != nil
}

func currentIntake() func(StatusIcon) {
	intake.mu.Lock()
	defer intake.mu.Unlock()

	return intake.fn
}

// AddIconToPanel hands icon to the installed intake or, when there is none,
// registers it in area under "appindicator-<id>" in the box named by the
// tray-pos setting. An entry of a different icon under the same key is
// destroyed. Every later tray-pos change places the icon again.
func AddIconToPanel(env Env, area *scene.StatusArea, icon StatusIcon) {
	if fn := currentIntake(); fn != nil {
		fn(icon)
		return
	}

	env = env.withDefaults()
	logger := env.Logger.With("component", "statusicon", "id", icon.UniqueID())
	key := StatusAreaKey(icon)

	place := func() {
		if icon.IsDestroyed() {
			return
		}

		if existing, ok := area.Get(key); ok {
			if existing != icon {
				existing.Actor().Destroy()
			}

			area.Remove(key)
		}

		box := env.Settings.String(settings.KeyTrayPos)
		if err := area.Add(key, icon, statusAreaPosition, box); err != nil {
			logger.Error("failed to add icon to panel", "error", err)
			return
		}

		logger.Debug("icon added to panel", "box", box)
	}

	place()

	disconnect := env.Settings.Connect(settings.KeyTrayPos, func() {
		if fn := currentIntake(); fn != nil {
			fn(icon)
			return
		}

		place()
	})
	icon.OnDestroy(func() {
		disconnect()

		if existing, ok := area.Get(key); ok && existing == icon {
			area.Remove(key)
		}
	})
}

// StatusAreaKey returns the key icon is registered under in a status area.
func StatusAreaKey(icon StatusIcon) string {
	return "appindicator-" + icon.UniqueID()
}
