package aggregator

import (
	"github.com/shelepuginivan/traybox"
	"github.com/shelepuginivan/traybox/internal/loop"
	"github.com/shelepuginivan/traybox/internal/signal"
	"github.com/shelepuginivan/traybox/scene"
	"github.com/shelepuginivan/traybox/settings"
	"github.com/shelepuginivan/traybox/statusicon"
)

type fakeIndicator struct {
	id      string
	signals signal.Signal[traybox.ItemSignal]
}

func (f *fakeIndicator) UniqueID() string                           { return f.id }
func (f *fakeIndicator) IsReady() bool                              { return true }
func (f *fakeIndicator) BusName() string                            { return ":1.7" }
func (f *fakeIndicator) MenuPath() string                           { return "/MenuBar" }
func (f *fakeIndicator) Label() string                              { return "" }
func (f *fakeIndicator) Status() traybox.ItemStatus                 { return traybox.ItemStatusActive }
func (f *fakeIndicator) AccessibleName() string                     { return f.id }
func (f *fakeIndicator) IconName() string                           { return "application-x-executable" }
func (f *fakeIndicator) CheckAlive(done func(error))                { done(nil) }
func (f *fakeIndicator) SecondaryActivateAt(uint32, int, int)       {}
func (f *fakeIndicator) ScrollDelta(int, int)                       {}
func (f *fakeIndicator) Connect(fn func(traybox.ItemSignal)) func() { return f.signals.Subscribe(fn) }

type fakeMenuClient struct{}

func (fakeMenuClient) IsReady() bool                    { return true }
func (fakeMenuClient) OnReadyChanged(func(bool)) func() { return func() {} }
func (fakeMenuClient) AttachTo(popup *scene.Popup)      { popup.AddItem(scene.NewMenuItem("Quit")) }
func (fakeMenuClient) Close()                           {}

func newMenuClient(string, string, statusicon.Indicator) statusicon.MenuClient {
	return fakeMenuClient{}
}

type fakeSource struct {
	indicators []statusicon.Indicator
	registered func(statusicon.Indicator)
	closed     bool
}

func (s *fakeSource) Indicators() []statusicon.Indicator { return s.indicators }

func (s *fakeSource) Close() error {
	s.closed = true
	return nil
}

func (s *fakeSource) start(registered func(statusicon.Indicator)) (IndicatorSource, error) {
	s.registered = registered
	return s, nil
}

type fakeApp struct {
	id        string
	state     AppState
	windows   int
	activated int
}

func (a *fakeApp) ID() string       { return a.id }
func (a *fakeApp) Name() string     { return "App " + a.id }
func (a *fakeApp) IconName() string { return a.id }
func (a *fakeApp) State() AppState  { return a.state }
func (a *fakeApp) WindowCount() int { return a.windows }
func (a *fakeApp) Activate()        { a.activated++ }

type fakeAppSystem struct {
	running []App
	changed signal.Signal[App]
}

func (s *fakeAppSystem) Running() []App { return s.running }

func (s *fakeAppSystem) OnStateChanged(fn func(App)) func() {
	return s.changed.Subscribe(fn)
}

type fakeEmbeddedClient struct {
	node  *scene.Node
	class string
	pid   uint32
}

func (c *fakeEmbeddedClient) Node() *scene.Node { return c.node }
func (c *fakeEmbeddedClient) WMClass() string   { return c.class }
func (c *fakeEmbeddedClient) PID() uint32       { return c.pid }
func (c *fakeEmbeddedClient) Click(scene.Event) {}
func (c *fakeEmbeddedClient) SetSize(int, int)  {}

func testEnv() (statusicon.Env, *settings.Store) {
	store := settings.New(settings.Defaults())

	return statusicon.Env{
		Settings:      store,
		Stage:         scene.NewStage(scene.Monitor{Width: 1920, Height: 1080}),
		Scheduler:     loop.NewManual(),
		NewMenuClient: newMenuClient,
	}, store
}
