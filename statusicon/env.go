// Package statusicon turns tray sources into panel icons.
//
// A status icon is either an [IndicatorIcon], backed by a remote
// StatusNotifierItem, or a [TrayIcon], wrapping a legacy X11 tray window.
// Both share the lifecycle implemented by [Base]: they own exactly one icon
// surface, show themselves only when ready and apply the visual effects
// configured in the settings.
//
// Everything in this package runs on the event loop.
package statusicon

import (
	"log/slog"
	"time"

	"github.com/shelepuginivan/traybox"
	"github.com/shelepuginivan/traybox/internal/loop"
	"github.com/shelepuginivan/traybox/scene"
	"github.com/shelepuginivan/traybox/settings"
)

const (
	// DefaultIconSize is used when icon-size is not positive.
	DefaultIconSize = 16

	// DefaultLongPressDelay is how long a touch must be held to act as a
	// secondary click.
	DefaultLongPressDelay = 600 * time.Millisecond

	// defaultMenuWidth and defaultMenuHeight stand in for a popup that has
	// not been laid out yet.
	defaultMenuWidth  = 200
	defaultMenuHeight = 300
)

// Indicator is the remote StatusNotifierItem an [IndicatorIcon] observes.
// [*traybox.Item] implements it.
type Indicator interface {
	UniqueID() string
	IsReady() bool
	BusName() string
	MenuPath() string
	Label() string
	Status() traybox.ItemStatus
	AccessibleName() string
	IconName() string

	// Connect registers fn for every signal of the indicator and returns a
	// function that disconnects it.
	Connect(fn func(traybox.ItemSignal)) func()

	// CheckAlive verifies the indicator still exists. done runs on the event
	// loop.
	CheckAlive(done func(error))

	SecondaryActivateAt(timestamp uint32, x, y int)
	ScrollDelta(dx, dy int)
}

// pixmapIndicator is implemented by indicators that can provide raw
// pixmaps for their icon.
type pixmapIndicator interface {
	IconPixmap() *traybox.IconSet
}

var _ Indicator = (*traybox.Item)(nil)

// MenuClient renders a remote menu into a popup. [*traybox.MenuClient]
// implements it.
type MenuClient interface {
	IsReady() bool
	OnReadyChanged(fn func(ready bool)) func()
	AttachTo(popup *scene.Popup)
	Close()
}

var _ MenuClient = (*traybox.MenuClient)(nil)

// MenuFactory creates the menu client of an indicator.
type MenuFactory func(busName, menuPath string, indicator Indicator) MenuClient

// SurfaceFactory creates the icon surface of an indicator at size pixels.
type SurfaceFactory func(indicator Indicator, size int) scene.Surface

// Env carries the collaborators shared by all status icons.
type Env struct {
	Settings settings.Source
	Stage    *scene.Stage

	// Scheduler runs delayed callbacks on the event loop. Legacy tray icons
	// require it.
	Scheduler loop.Scheduler
	Logger    *slog.Logger

	// NewMenuClient creates menu clients. Icons have no menu when nil.
	NewMenuClient MenuFactory

	// NewSurface creates indicator icon surfaces. Defaults to
	// [NewIndicatorSurface].
	NewSurface SurfaceFactory

	// LongPressDelay overrides the long-press-delay setting.
	LongPressDelay time.Duration
}

func (env Env) withDefaults() Env {
	if env.Settings == nil {
		env.Settings = settings.New(settings.Defaults())
	}

	if env.Stage == nil {
		env.Stage = scene.NewStage(scene.Monitor{})
	}

	if env.Logger == nil {
		env.Logger = slog.Default()
	}

	if env.NewSurface == nil {
		env.NewSurface = NewIndicatorSurface
	}

	return env
}

func (env Env) longPressDelay() time.Duration {
	if env.LongPressDelay > 0 {
		return env.LongPressDelay
	}

	if d := env.Settings.Duration(settings.KeyLongPressDelay); d > 0 {
		return d
	}

	return DefaultLongPressDelay
}

// iconSize returns the configured icon size, falling back to
// [DefaultIconSize].
func (env Env) iconSize() int {
	if size := env.Settings.Int(settings.KeyIconSize); size > 0 {
		return size
	}

	return DefaultIconSize
}

// NewIndicatorSurface shows the themed icon of indicator, or its best
// pixmap when it has no icon name.
func NewIndicatorSurface(indicator Indicator, size int) scene.Surface {
	img := scene.NewImage(indicator.IconName(), size)
	img.Node().SetAccessibleName(indicator.AccessibleName())

	if indicator.IconName() != "" {
		return img
	}

	if p, ok := indicator.(pixmapIndicator); ok {
		if icon := p.IconPixmap().Best(size); icon != nil {
			img.SetPixmap(&scene.Pixmap{
				Width:  int(icon.Width),
				Height: int(icon.Height),
				Data:   icon.Bytes,
			})
		}
	}

	return img
}
