package aggregator

import (
	"github.com/shelepuginivan/traybox/scene"
)

// AppState is the lifecycle state of a running application.
type AppState int

const (
	AppStopped AppState = iota
	AppStarting
	AppRunning
)

func (s AppState) String() string {
	switch s {
	case AppStopped:
		return "stopped"
	case AppStarting:
		return "starting"
	case AppRunning:
		return "running"
	}

	return "unknown"
}

// App is an application instance known to the desktop.
type App interface {
	ID() string
	Name() string
	IconName() string
	State() AppState
	WindowCount() int
	Activate()
}

// AppSystem reports running applications and their state changes.
type AppSystem interface {
	Running() []App

	// OnStateChanged registers fn to run whenever an application changes
	// state or windows, and returns a function that disconnects it.
	OnStateChanged(fn func(App)) func()
}

func (t *Tray) setupAppTracking() {
	if t.opts.Apps == nil {
		t.logger.Error("app system is not available, background apps are not tracked")
		return
	}

	t.addCleanup(t.opts.Apps.OnStateChanged(t.onAppStateChanged))
	t.logger.Debug("app tracking set up")

	for _, app := range t.opts.Apps.Running() {
		t.addApp(app)
	}
}

func (t *Tray) onAppStateChanged(app App) {
	switch app.State() {
	case AppRunning:
		t.addApp(app)
	case AppStopped:
		t.removeApp(app.ID())
	}
}

// addApp shows app while it runs without windows.
func (t *Tray) addApp(app App) {
	id := app.ID()

	if app.WindowCount() > 0 {
		t.removeApp(id)
		return
	}

	if _, ok := t.apps[id]; ok {
		return
	}

	t.logger.Debug("adding background app", "app", id)

	item := scene.NewImageMenuItem(app.Name(), app.IconName())
	item.Node().AddStyleClass("background-app")
	item.OnActivate(func(scene.Event) {
		t.logger.Debug("activating app", "app", id)
		app.Activate()
	})

	t.apps[id] = item
	t.box.AddChild(item.Node())
}

func (t *Tray) removeApp(id string) {
	item, ok := t.apps[id]
	if !ok {
		return
	}

	t.logger.Debug("removing background app", "app", id)

	delete(t.apps, id)
	item.Destroy()
}
