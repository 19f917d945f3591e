package traybox

import (
	"log/slog"
	"slices"

	"github.com/godbus/dbus/v5"

	"github.com/shelepuginivan/traybox/internal/signal"
	"github.com/shelepuginivan/traybox/scene"
)

// MenuClient mirrors a com.canonical.dbusmenu menu into local popups.
//
// The client loads the layout in the background and becomes ready once the
// first layout arrives. Later layout updates are rendered into every
// attached popup. Losing the layout makes the client not ready again.
//
// All methods must be called from the event loop.
type MenuClient struct {
	conn     *dbus.Conn
	busName  string
	menuPath string
	dispatch Dispatcher
	logger   *slog.Logger

	menu         *Menu
	root         *LayoutNode
	ready        bool
	closed       bool
	readyChanged signal.Signal[bool]
	attached     []*attachment

	// sendEvent delivers a menu event to the application.
	sendEvent func(id int32, eventID string, timestamp uint32)
}

type attachment struct {
	popup       *scene.Popup
	unsubscribe func()
}

func newMenuClient(busName, menuPath string, dispatch Dispatcher) *MenuClient {
	c := &MenuClient{
		busName:  busName,
		menuPath: menuPath,
		dispatch: dispatch,
		logger:   slog.Default().With("component", "dbusmenu", "menu", busName+menuPath),
	}

	c.sendEvent = c.sendRemoteEvent

	return c
}

// NewMenuClient returns a client of the menu at menuPath on busName. The
// menu is loaded in the background.
func NewMenuClient(conn *dbus.Conn, busName, menuPath string, dispatch Dispatcher) *MenuClient {
	c := newMenuClient(busName, menuPath, dispatch)
	c.conn = conn

	go c.load()

	return c
}

// IsReady reports whether a layout is available.
func (c *MenuClient) IsReady() bool {
	return c.ready
}

// OnReadyChanged registers fn to run when readiness changes.
func (c *MenuClient) OnReadyChanged(fn func(ready bool)) func() {
	return c.readyChanged.Subscribe(fn)
}

// AttachTo renders the menu into popup and keeps it up to date until the
// client is closed. The application is told when the popup is about to be
// shown.
func (c *MenuClient) AttachTo(popup *scene.Popup) {
	if c.closed || popup == nil {
		return
	}

	if slices.ContainsFunc(c.attached, func(a *attachment) bool { return a.popup == popup }) {
		return
	}

	a := &attachment{popup: popup}
	a.unsubscribe = popup.OnOpenStateChanged(func(open bool) {
		if open {
			c.aboutToShow()
		}
	})

	c.attached = append(c.attached, a)
	c.render(popup)
}

// Close detaches every popup and stops following the remote menu. Readiness
// handlers are dropped without being notified.
func (c *MenuClient) Close() {
	if c.closed {
		return
	}

	c.closed = true
	c.readyChanged.Clear()
	c.ready = false

	for _, a := range c.attached {
		a.unsubscribe()
		a.popup.RemoveAll()
	}

	c.attached = nil

	if menu := c.menu; menu != nil {
		c.menu = nil

		go func() {
			if err := menu.Close(); err != nil {
				c.logger.Debug("failed to close menu", "error", err)
			}
		}()
	}
}

// load runs off the loop: it resolves the menu object and fetches the first
// layout.
func (c *MenuClient) load() {
	menu, err := NewMenu(c.conn, c.busName, c.menuPath)
	if err != nil {
		c.logger.Warn("failed to load menu", "error", err)
		c.dispatch.run(func() { c.setLayout(nil) })
		return
	}

	menu.OnInvalidated(func() { go c.refresh(menu) })
	menu.OnActivate(func(id int32) {
		c.logger.Debug("application requested menu activation", "id", id)
	})

	c.dispatch.run(func() {
		if c.closed {
			go menu.Close()
			return
		}

		c.menu = menu
	})

	c.refresh(menu)
}

func (c *MenuClient) refresh(menu *Menu) {
	_, root, err := menu.GetLayout(0, -1, nil)

	c.dispatch.run(func() {
		if c.closed || c.menu != menu {
			return
		}

		if err != nil {
			c.logger.Warn("failed to get menu layout", "error", err)
			c.setLayout(nil)
			return
		}

		c.setLayout(root)
	})
}

// setLayout replaces the layout, re-renders attached popups and updates
// readiness.
func (c *MenuClient) setLayout(root *LayoutNode) {
	if c.closed {
		return
	}

	c.root = root

	for _, a := range slices.Clone(c.attached) {
		c.render(a.popup)
	}

	c.setReady(root != nil)
}

func (c *MenuClient) setReady(ready bool) {
	if c.ready == ready {
		return
	}

	c.ready = ready
	c.readyChanged.Emit(ready)
}

// render replaces the items of popup with the current layout. Submenus are
// flattened one level into titled sections.
func (c *MenuClient) render(popup *scene.Popup) {
	popup.RemoveAll()

	if c.root == nil {
		return
	}

	for _, node := range c.root.Children {
		c.addNode(popup, node, true)
	}
}

func (c *MenuClient) addNode(popup *scene.Popup, node *LayoutNode, topLevel bool) {
	if !node.Visible() {
		return
	}

	if node.IsSeparator() {
		popup.AddItem(scene.NewSeparator(""))
		return
	}

	if topLevel && node.HasSubmenu() && len(node.Children) > 0 {
		popup.AddItem(scene.NewSeparator(node.Label()))

		for _, child := range node.Children {
			c.addNode(popup, child, false)
		}

		return
	}

	item := scene.NewImageMenuItem(node.Label(), node.IconName())
	item.SetSensitive(node.Enabled())
	item.Node().SetAccessibleName(node.Label())

	id := node.ID
	item.OnActivate(func(ev scene.Event) {
		c.sendEvent(id, "clicked", ev.Time)
	})

	popup.AddItem(item)
}

func (c *MenuClient) aboutToShow() {
	menu, root := c.menu, c.root
	if menu == nil || root == nil {
		return
	}

	go func() {
		needUpdate, err := menu.AboutToShow(root.ID)
		if err != nil {
			c.logger.Debug("about to show failed", "error", err)
			return
		}

		if needUpdate {
			c.refresh(menu)
		}
	}()
}

func (c *MenuClient) sendRemoteEvent(id int32, eventID string, timestamp uint32) {
	menu := c.menu
	if menu == nil {
		return
	}

	go func() {
		if err := menu.Event(id, eventID, int32(0), timestamp); err != nil {
			c.logger.Warn("failed to send menu event", "id", id, "event", eventID, "error", err)
		}
	}()
}
