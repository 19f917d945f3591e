package statusicon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelepuginivan/traybox"
	"github.com/shelepuginivan/traybox/scene"
)

func newTestIndicatorIcon(t *testing.T, menusReady bool) (*IndicatorIcon, *fakeIndicator, *menuFactory, Env) {
	t.Helper()

	env, _, _ := testEnv()
	menus := &menuFactory{ready: menusReady}
	env.NewMenuClient = menus.create

	ind := newFakeIndicator("org.example.App/StatusNotifierItem")
	icon := NewIndicatorIcon(env, ind)

	return icon, ind, menus, env
}

func TestIndicatorIconShowsWhenReady(t *testing.T) {
	icon, ind, menus, _ := newTestIndicatorIcon(t, true)

	assert.False(t, icon.Actor().Visible())
	assert.Empty(t, menus.clients)
	require.NotNil(t, icon.Icon())

	ind.setReady()

	assert.True(t, icon.Actor().Visible())
	require.Len(t, menus.live(), 1)
	assert.Equal(t, []*scene.Popup{icon.Menu()}, menus.live()[0].attached)
	assert.Equal(t, 1, icon.Menu().NumItems())
	assert.Equal(t, "org.example.App/StatusNotifierItem", icon.UniqueID())
	assert.True(t, icon.Menu().Node().Contains(icon.Menu().Items()[0].Node()))
	assert.False(t, icon.Menu().CloseOnSelect())
}

func TestIndicatorIconStatusTogglesVisibility(t *testing.T) {
	icon, ind, menus, _ := newTestIndicatorIcon(t, true)
	ind.setReady()
	calls := ind.aliveCalls

	ind.status = traybox.ItemStatusPassive
	ind.emit(traybox.SignalStatus)

	assert.False(t, icon.Actor().Visible())
	assert.Equal(t, calls+1, ind.aliveCalls)
	assert.Empty(t, menus.live(), "hidden icons have no menu client")
	assert.Zero(t, icon.Menu().NumItems())

	ind.emit(traybox.SignalStatus)
	assert.Equal(t, calls+1, ind.aliveCalls, "no liveness check without a transition")

	ind.status = traybox.ItemStatusNeedsAttention
	ind.emit(traybox.SignalStatus)

	assert.True(t, icon.Actor().Visible())
	assert.Equal(t, calls+2, ind.aliveCalls)
	assert.Len(t, menus.live(), 1)
}

func TestIndicatorIconLivenessFailureIsNotFatal(t *testing.T) {
	icon, ind, _, _ := newTestIndicatorIcon(t, true)
	ind.aliveErr = assert.AnError

	ind.setReady()

	assert.True(t, icon.Actor().Visible())
	assert.False(t, icon.IsDestroyed())
}

func TestIndicatorIconMenuClientReadiness(t *testing.T) {
	icon, ind, menus, _ := newTestIndicatorIcon(t, false)
	ind.setReady()

	require.Len(t, menus.live(), 1)
	client := menus.live()[0]
	assert.Empty(t, client.attached)

	client.setReady(true)
	assert.Equal(t, []*scene.Popup{icon.Menu()}, client.attached)

	client.setReady(false)

	assert.True(t, client.closed, "losing readiness rebuilds the client")
	require.Len(t, menus.live(), 1)
	assert.NotSame(t, client, menus.live()[0])
	assert.Zero(t, icon.Menu().NumItems())
}

func TestIndicatorIconMenuSignalRebuildsClient(t *testing.T) {
	icon, ind, menus, _ := newTestIndicatorIcon(t, true)
	ind.setReady()

	for range 3 {
		ind.emit(traybox.SignalMenu)
		assert.Len(t, menus.live(), 1)
		assert.Equal(t, 1, icon.Menu().NumItems())
	}

	ind.menuPath = ""
	ind.emit(traybox.SignalMenu)

	assert.Empty(t, menus.live())
	assert.Zero(t, icon.Menu().NumItems())
}

func TestIndicatorIconMiddleClick(t *testing.T) {
	icon, ind, _, env := newTestIndicatorIcon(t, true)
	ind.setReady()

	other := scene.NewPopup("other")
	env.Stage.MenuManager().AddMenu(other)
	other.Open(scene.AnimationNone)

	got := icon.HandleEvent(scene.Event{Type: scene.ButtonPress, Button: scene.ButtonMiddle, Time: 7, X: 10, Y: 20})

	assert.Equal(t, scene.EventStop, got)
	assert.False(t, other.IsOpen())
	assert.Equal(t, []secondaryActivation{{timestamp: 7, x: 10, y: 20}}, ind.secondary)
	assert.False(t, icon.Menu().IsOpen())
}

func TestIndicatorIconClickOpensMenuAndHoldsParent(t *testing.T) {
	icon, ind, _, env := newTestIndicatorIcon(t, true)
	ind.setReady()

	parent := scene.NewPopup("tray")
	parent.Node().AddChild(icon.Actor())
	env.Stage.MenuManager().AddMenu(parent)
	parent.Open(scene.AnimationFull)

	icon.Actor().SetPosition(1900, 20)
	icon.Actor().SetSize(24, 24)
	icon.Menu().SetSize(300, 400)

	got := icon.HandleEvent(scene.Event{Type: scene.ButtonPress, Button: scene.ButtonPrimary})
	require.Equal(t, scene.EventStop, got)

	assert.True(t, icon.Menu().IsOpen())
	assert.Equal(t, scene.AnimationSlide, icon.Menu().Animation())
	assert.True(t, icon.Menu().HasKeyFocus())
	assert.True(t, parent.IsOpen(), "opening the submenu does not close the parent")
	assert.True(t, parent.SubmenuOpen())

	x, y := icon.Menu().Position()
	assert.Equal(t, 1620.0, x)
	assert.Equal(t, 44.0, y)

	parent.Close(scene.AnimationFull)
	parent.Hide()
	assert.True(t, parent.IsOpen())
	assert.True(t, parent.Node().Visible())

	icon.Menu().Close(scene.AnimationFull)

	assert.False(t, parent.SubmenuOpen())
	parent.Close(scene.AnimationFull)
	assert.False(t, parent.IsOpen())
}

func TestIndicatorIconSecondClickKeepsOneGuard(t *testing.T) {
	icon, ind, _, env := newTestIndicatorIcon(t, true)
	ind.setReady()

	parent := scene.NewPopup("tray")
	parent.Node().AddChild(icon.Actor())
	env.Stage.MenuManager().AddMenu(parent)
	parent.Open(scene.AnimationFull)

	press := scene.Event{Type: scene.ButtonPress, Button: scene.ButtonSecondary}
	icon.HandleEvent(press)
	icon.HandleEvent(press)

	assert.True(t, parent.SubmenuOpen())

	icon.Menu().Close(scene.AnimationFull)
	assert.False(t, parent.SubmenuOpen())
}

func TestIndicatorIconGuardsOnlyItsOwnParent(t *testing.T) {
	env, _, _ := testEnv()
	env.NewMenuClient = (&menuFactory{ready: true}).create

	first, second := newFakeIndicator("first"), newFakeIndicator("second")
	a, b := NewIndicatorIcon(env, first), NewIndicatorIcon(env, second)
	first.setReady()
	second.setReady()

	parent := scene.NewPopup("tray")
	parent.Node().AddChild(a.Actor())
	parent.Node().AddChild(b.Actor())
	env.Stage.MenuManager().AddMenu(parent)
	parent.Open(scene.AnimationFull)

	press := scene.Event{Type: scene.ButtonPress, Button: scene.ButtonPrimary}
	a.HandleEvent(press)
	b.HandleEvent(press)

	assert.False(t, a.Menu().IsOpen(), "one icon menu at a time")
	assert.False(t, a.Menu().SubmenuOpen())
	assert.True(t, b.Menu().IsOpen())
	assert.True(t, parent.IsOpen())
	assert.True(t, parent.SubmenuOpen())

	b.Menu().Close(scene.AnimationFull)
	assert.False(t, parent.SubmenuOpen())

	parent.Close(scene.AnimationFull)
	assert.False(t, parent.IsOpen())
}

func TestIndicatorIconOutsidePopupHoldsNoGuard(t *testing.T) {
	icon, ind, _, env := newTestIndicatorIcon(t, true)
	ind.setReady()

	other := scene.NewPopup("other")
	env.Stage.MenuManager().AddMenu(other)
	other.Open(scene.AnimationNone)

	icon.HandleEvent(scene.Event{Type: scene.ButtonPress, Button: scene.ButtonPrimary})

	assert.True(t, icon.Menu().IsOpen())
	assert.False(t, other.SubmenuOpen())
	assert.False(t, other.IsOpen())
}

func TestIndicatorIconClickWithEmptyMenu(t *testing.T) {
	env, _, _ := testEnv()
	ind := newFakeIndicator("empty")
	icon := NewIndicatorIcon(env, ind)
	ind.setReady()

	got := icon.HandleEvent(scene.Event{Type: scene.ButtonPress, Button: scene.ButtonPrimary})

	assert.Equal(t, scene.EventStop, got)
	assert.False(t, icon.Menu().IsOpen())
}

func TestIndicatorIconScroll(t *testing.T) {
	icon, ind, _, _ := newTestIndicatorIcon(t, true)
	ind.setReady()

	assert.Equal(t, scene.EventStop, icon.HandleEvent(scene.Event{Type: scene.Scroll, Direction: scene.ScrollSmooth, DX: 0, DY: -2}))
	assert.Equal(t, scene.EventPropagate, icon.HandleEvent(scene.Event{Type: scene.Scroll, Direction: scene.ScrollUp}))
	assert.Equal(t, [][2]int{{0, -2}}, ind.scrolls)
}

func TestIndicatorIconLabel(t *testing.T) {
	icon, ind, _, _ := newTestIndicatorIcon(t, true)
	ind.label = "42%"
	ind.setReady()

	require.NotNil(t, icon.Label())
	assert.Equal(t, "42%", icon.Label().Text())
	assert.Equal(t, []*scene.Node{icon.Icon(), icon.Label().Node()}, icon.Box().Children())

	ind.label = "43%"
	ind.emit(traybox.SignalLabel)
	assert.Equal(t, "43%", icon.Label().Text())

	ind.label = ""
	ind.emit(traybox.SignalReset)
	assert.Nil(t, icon.Label())
	assert.Equal(t, []*scene.Node{icon.Icon()}, icon.Box().Children())
}

func TestIndicatorIconReplacesSurfaceOnIconSignal(t *testing.T) {
	icon, ind, _, _ := newTestIndicatorIcon(t, true)
	ind.setReady()

	old := icon.Icon()
	ind.iconName = "other-icon"
	ind.emit(traybox.SignalIcon)

	assert.True(t, old.IsDestroyed())
	assert.NotSame(t, old, icon.Icon())
	assert.Len(t, icon.Box().Children(), 1)
}

func TestIndicatorIconFollowsScaleFactor(t *testing.T) {
	icon, ind, _, env := newTestIndicatorIcon(t, true)
	ind.setReady()

	env.Stage.SetScaleFactor(2)

	w, h := icon.Icon().Size()
	assert.Equal(t, float64(2*DefaultIconSize), w)
	assert.Equal(t, float64(2*DefaultIconSize), h)
}

func TestIndicatorIconAccessibleName(t *testing.T) {
	icon, ind, _, _ := newTestIndicatorIcon(t, true)

	ind.name = "Network"
	ind.emit(traybox.SignalAccessibleName)

	assert.Equal(t, "Network", icon.Actor().AccessibleName())
}

func TestIndicatorIconDestroySignal(t *testing.T) {
	icon, ind, menus, env := newTestIndicatorIcon(t, true)
	ind.setReady()

	menu := icon.Menu()
	ind.emit(traybox.SignalDestroy)

	assert.True(t, icon.IsDestroyed())
	assert.True(t, icon.Actor().IsDestroyed())
	assert.True(t, menu.Node().IsDestroyed())
	assert.Empty(t, menus.live())
	assert.Zero(t, ind.signals.Len(), "indicator handlers are disconnected")

	menu.Open(scene.AnimationNone)
	assert.Nil(t, env.Stage.MenuManager().ActiveMenu())
}

func TestPlaceSubmenu(t *testing.T) {
	monitor := scene.Monitor{Width: 1920, Height: 1080}

	tests := map[string]struct {
		monitor               scene.Monitor
		x, y, actorHeight     float64
		menuWidth, menuHeight float64
		wantX, wantY          float64
	}{
		"below":              {monitor, 100, 20, 24, 300, 400, 100, 44},
		"clamped right":      {monitor, 1900, 20, 24, 300, 400, 1620, 44},
		"upward":             {monitor, 500, 1000, 24, 300, 400, 500, 600},
		"clamped bottom":     {scene.Monitor{Width: 800, Height: 500}, 10, 200, 24, 300, 400, 10, 100},
		"wider than monitor": {scene.Monitor{Width: 250, Height: 500}, 100, 0, 24, 300, 100, 0, 24},
		"fallback menu size": {monitor, 1800, 20, 24, 0, 0, 1720, 44},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			x, y := PlaceSubmenu(tt.monitor, tt.x, tt.y, tt.actorHeight, tt.menuWidth, tt.menuHeight)
			assert.Equal(t, tt.wantX, x)
			assert.Equal(t, tt.wantY, y)
		})
	}
}
