// Package aggregator collects every status icon and windowless application
// into a single collapsible panel button.
package aggregator

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/shelepuginivan/traybox/scene"
	"github.com/shelepuginivan/traybox/settings"
	"github.com/shelepuginivan/traybox/statusicon"
)

const (
	// StatusAreaKey is the role of the tray button in the status area.
	StatusAreaKey = "collapsible-app-tray"

	arrowIconSize = 20

	// unknownIconID stands in for icons without an identity.
	unknownIconID = "unknown-tray-icon"
)

var arrowIcons = map[string]string{
	"down":  "pan-down-symbolic",
	"up":    "pan-up-symbolic",
	"left":  "pan-start-symbolic",
	"right": "pan-end-symbolic",
}

// ArrowIconName maps an arrow-direction value to its icon, defaulting to the
// down arrow.
func ArrowIconName(direction string) string {
	if name, ok := arrowIcons[direction]; ok {
		return name
	}

	return arrowIcons["down"]
}

// IndicatorSource is a running StatusNotifierItem watcher.
type IndicatorSource interface {
	// Indicators returns the indicators registered so far.
	Indicators() []statusicon.Indicator

	Close() error
}

// Options configure a [Tray].
type Options struct {
	Env        statusicon.Env
	StatusArea *scene.StatusArea

	// Apps reports running applications. Background apps are not tracked
	// when nil.
	Apps AppSystem

	// StartIndicators starts the indicator watcher. registered must be
	// called on the event loop for every indicator registered afterwards.
	StartIndicators func(registered func(statusicon.Indicator)) (IndicatorSource, error)

	// WatcherNameOwned reports whether another process already provides the
	// watcher, in which case it is not started.
	WatcherNameOwned func() bool
}

type iconEntry struct {
	icon      statusicon.StatusIcon
	container *scene.Node
	cleanups  []func()
}

// release disconnects the entry from its icon and destroys the container
// without touching the icon.
func (e *iconEntry) release() {
	for _, fn := range e.cleanups {
		fn()
	}

	e.cleanups = nil

	if e.icon.Actor().Parent() == e.container {
		e.icon.Actor().Unparent()
	}

	e.container.Destroy()
}

// Tray is the collapsible panel button holding every status icon.
type Tray struct {
	opts   Options
	env    statusicon.Env
	logger *slog.Logger

	button *scene.Node
	arrow  *scene.Image
	menu   *scene.Popup
	box    *scene.Node

	icons map[string]*iconEntry
	apps  map[string]*scene.MenuItem

	indicators      IndicatorSource
	uninstallIntake func()
	cleanups        []func()
	enabled         bool
}

// New returns a disabled tray.
func New(opts Options) *Tray {
	env := opts.Env
	if env.Logger == nil {
		env.Logger = slog.Default()
	}
	if env.Settings == nil {
		env.Settings = settings.New(settings.Defaults())
	}
	if env.Stage == nil {
		env.Stage = scene.NewStage(scene.Monitor{})
	}
	if opts.StatusArea == nil {
		opts.StatusArea = scene.NewStatusArea()
	}

	return &Tray{
		opts:   opts,
		env:    env,
		logger: env.Logger.With("component", "aggregator"),
		icons:  make(map[string]*iconEntry),
		apps:   make(map[string]*scene.MenuItem),
	}
}

// Enable builds the tray button, takes over icon intake, starts tracking
// applications and indicators, and collects existing icons.
func (t *Tray) Enable() error {
	if t.enabled {
		return nil
	}

	t.logger.Debug("enabling tray")

	uninstall, err := statusicon.InstallIntake(t.intake)
	if err != nil {
		return fmt.Errorf("enable tray: %w", err)
	}
	t.uninstallIntake = uninstall

	t.buildButton()

	if err := t.opts.StatusArea.Add(StatusAreaKey, t, 0, scene.BoxRight); err != nil {
		t.teardown()
		return fmt.Errorf("enable tray: %w", err)
	}

	t.enabled = true

	t.setupAppTracking()
	t.maybeStartIndicators()
	t.Populate()

	t.logger.Debug("tray enabled")

	return nil
}

// Disable destroys the tray button with every icon it holds and stops the
// indicator watcher.
func (t *Tray) Disable() {
	if !t.enabled {
		return
	}

	t.logger.Debug("disabling tray")
	t.enabled = false

	if existing, ok := t.opts.StatusArea.Get(StatusAreaKey); ok && existing == scene.Widget(t) {
		t.opts.StatusArea.Remove(StatusAreaKey)
	}

	t.teardown()

	t.logger.Debug("tray disabled")
}

func (t *Tray) teardown() {
	if t.uninstallIntake != nil {
		t.uninstallIntake()
		t.uninstallIntake = nil
	}

	for i := len(t.cleanups) - 1; i >= 0; i-- {
		t.cleanups[i]()
	}
	t.cleanups = nil

	for _, e := range t.icons {
		e.release()
		e.icon.Destroy()
	}
	clear(t.icons)

	for _, item := range t.apps {
		item.Destroy()
	}
	clear(t.apps)

	if t.indicators != nil {
		if err := t.indicators.Close(); err != nil {
			t.logger.Warn("failed to stop indicator watcher", "error", err)
		}
		t.indicators = nil
	}

	if t.menu != nil {
		t.menu.Destroy()
		t.menu = nil
	}

	if t.button != nil {
		t.button.Destroy()
		t.button = nil
	}

	t.arrow = nil
	t.box = nil
}

// Actor returns the panel button.
func (t *Tray) Actor() *scene.Node {
	return t.button
}

// Button returns the panel button, or nil while disabled.
func (t *Tray) Button() *scene.Node {
	return t.button
}

// Arrow returns the disclosure icon of the button.
func (t *Tray) Arrow() *scene.Image {
	return t.arrow
}

// Menu returns the popup of the tray button.
func (t *Tray) Menu() *scene.Popup {
	return t.menu
}

// Box returns the container of icons and background apps.
func (t *Tray) Box() *scene.Node {
	return t.box
}

// IconIDs returns the ids of tracked icons in sorted order.
func (t *Tray) IconIDs() []string {
	return slices.Sorted(maps.Keys(t.icons))
}

// BackgroundAppIDs returns the ids of shown background apps in sorted order.
func (t *Tray) BackgroundAppIDs() []string {
	return slices.Sorted(maps.Keys(t.apps))
}

func (t *Tray) buildButton() {
	t.button = scene.NewNode(StatusAreaKey)
	t.button.SetAccessibleName("CollapsibleAppTray")
	t.button.AddStyleClass("panel-button")

	t.arrow = scene.NewImage(ArrowIconName(t.env.Settings.String(settings.KeyArrowDirection)), arrowIconSize)
	t.arrow.Node().AddStyleClass("system-status-icon")
	t.button.AddChild(t.arrow.Node())

	t.addCleanup(t.env.Settings.Connect(settings.KeyArrowDirection, func() {
		direction := t.env.Settings.String(settings.KeyArrowDirection)
		t.arrow.SetIconName(ArrowIconName(direction))
		t.logger.Debug("arrow direction changed", "direction", direction)
	}))

	t.menu = scene.NewPopup(StatusAreaKey + "-menu")
	t.menu.SetLogger(t.logger)
	t.menu.SetSourceActor(t.button)
	t.menu.SetCloseOnSelect(false)
	t.env.Stage.MenuManager().AddMenu(t.menu)

	section := scene.NewNode("tray-section")
	section.SetReactive(false)

	t.box = scene.NewNode("tray-box")
	t.box.AddStyleClass("tray-box")
	section.AddChild(t.box)
	t.menu.Node().AddChild(section)

	t.button.OnEvent(t.onButtonEvent)
}

// onButtonEvent toggles the tray menu.
func (t *Tray) onButtonEvent(ev scene.Event) scene.Propagation {
	if ev.Type != scene.ButtonPress && ev.Type != scene.TouchBegin {
		return scene.EventPropagate
	}

	if t.menu.IsOpen() {
		t.menu.Close(scene.AnimationFull)
	} else {
		t.menu.Open(scene.AnimationFull)
	}

	return scene.EventStop
}

func (t *Tray) addCleanup(fn func()) {
	t.cleanups = append(t.cleanups, fn)
}
