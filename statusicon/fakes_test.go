package statusicon

import (
	"github.com/shelepuginivan/traybox"
	"github.com/shelepuginivan/traybox/internal/loop"
	"github.com/shelepuginivan/traybox/internal/signal"
	"github.com/shelepuginivan/traybox/scene"
	"github.com/shelepuginivan/traybox/settings"
)

type secondaryActivation struct {
	timestamp uint32
	x, y      int
}

type fakeIndicator struct {
	id       string
	busName  string
	menuPath string
	label    string
	name     string
	iconName string
	ready    bool
	status   traybox.ItemStatus

	signals    signal.Signal[traybox.ItemSignal]
	aliveCalls int
	aliveErr   error
	secondary  []secondaryActivation
	scrolls    [][2]int
}

func newFakeIndicator(id string) *fakeIndicator {
	return &fakeIndicator{
		id:       id,
		busName:  ":1.42",
		menuPath: "/MenuBar",
		name:     "Fake " + id,
		iconName: "fake-icon",
		status:   traybox.ItemStatusActive,
	}
}

func (f *fakeIndicator) UniqueID() string            { return f.id }
func (f *fakeIndicator) IsReady() bool               { return f.ready }
func (f *fakeIndicator) BusName() string             { return f.busName }
func (f *fakeIndicator) MenuPath() string            { return f.menuPath }
func (f *fakeIndicator) Label() string               { return f.label }
func (f *fakeIndicator) Status() traybox.ItemStatus  { return f.status }
func (f *fakeIndicator) AccessibleName() string      { return f.name }
func (f *fakeIndicator) IconName() string            { return f.iconName }
func (f *fakeIndicator) ScrollDelta(dx, dy int)      { f.scrolls = append(f.scrolls, [2]int{dx, dy}) }
func (f *fakeIndicator) emit(sig traybox.ItemSignal) { f.signals.Emit(sig) }
func (f *fakeIndicator) Connect(fn func(traybox.ItemSignal)) func() {
	return f.signals.Subscribe(fn)
}

func (f *fakeIndicator) CheckAlive(done func(error)) {
	f.aliveCalls++
	done(f.aliveErr)
}

func (f *fakeIndicator) SecondaryActivateAt(timestamp uint32, x, y int) {
	f.secondary = append(f.secondary, secondaryActivation{timestamp, x, y})
}

func (f *fakeIndicator) setReady() {
	f.ready = true
	f.emit(traybox.SignalReady)
}

type fakeMenuClient struct {
	ready    bool
	readySig signal.Signal[bool]
	attached []*scene.Popup
	closed   bool
}

func (c *fakeMenuClient) IsReady() bool { return c.ready }

func (c *fakeMenuClient) OnReadyChanged(fn func(bool)) func() {
	return c.readySig.Subscribe(fn)
}

func (c *fakeMenuClient) AttachTo(popup *scene.Popup) {
	c.attached = append(c.attached, popup)
	popup.AddItem(scene.NewMenuItem("Quit"))
}

func (c *fakeMenuClient) Close() {
	c.closed = true
	c.readySig.Clear()
}

func (c *fakeMenuClient) setReady(ready bool) {
	c.ready = ready
	c.readySig.Emit(ready)
}

// menuFactory records every client it creates. Clients start in the
// readiness of ready.
type menuFactory struct {
	ready   bool
	clients []*fakeMenuClient
}

func (m *menuFactory) create(string, string, Indicator) MenuClient {
	c := &fakeMenuClient{ready: m.ready}
	m.clients = append(m.clients, c)

	return c
}

func (m *menuFactory) live() []*fakeMenuClient {
	var live []*fakeMenuClient
	for _, c := range m.clients {
		if !c.closed {
			live = append(live, c)
		}
	}

	return live
}

type fakeEmbeddedClient struct {
	node   *scene.Node
	class  string
	pid    uint32
	clicks []scene.Event
	width  int
	height int
}

func newFakeEmbeddedClient(class string, pid uint32) *fakeEmbeddedClient {
	return &fakeEmbeddedClient{node: scene.NewNode("xembed"), class: class, pid: pid}
}

func (c *fakeEmbeddedClient) Node() *scene.Node         { return c.node }
func (c *fakeEmbeddedClient) WMClass() string           { return c.class }
func (c *fakeEmbeddedClient) PID() uint32               { return c.pid }
func (c *fakeEmbeddedClient) Click(ev scene.Event)      { c.clicks = append(c.clicks, ev) }
func (c *fakeEmbeddedClient) SetSize(width, height int) { c.width, c.height = width, height }

func (c *fakeEmbeddedClient) buttons() []int {
	var buttons []int
	for _, ev := range c.clicks {
		buttons = append(buttons, ev.Button)
	}

	return buttons
}

func testEnv() (Env, *settings.Store, *loop.Manual) {
	store := settings.New(settings.Defaults())
	scheduler := loop.NewManual()

	env := Env{
		Settings:  store,
		Stage:     scene.NewStage(scene.Monitor{Width: 1920, Height: 1080}),
		Scheduler: scheduler,
	}

	return env, store, scheduler
}
