package xembed

import (
	"fmt"
	"log/slog"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"

	"github.com/shelepuginivan/traybox/scene"
	"github.com/shelepuginivan/traybox/statusicon"
)

var _ statusicon.EmbeddedClient = (*Client)(nil)

// Client is a legacy tray icon window embedded by a [Manager].
//
// The scene node of a client is destroyed once the window goes away, which
// in turn destroys the status icon showing it.
type Client struct {
	conn      *xgb.Conn
	root      xproto.Window
	window    xproto.Window
	container xproto.Window
	logger    *slog.Logger

	node   *scene.Node
	class  string
	pid    uint32
	width  int
	height int
}

func newClient(conn *xgb.Conn, root, window, container xproto.Window, class string, pid uint32, size int) *Client {
	node := scene.NewNode("xembed-icon")
	node.SetAccessibleName(class)
	node.SetSize(float64(size), float64(size))

	return &Client{
		conn:      conn,
		root:      root,
		window:    window,
		container: container,
		logger:    slog.Default().With("component", "xembed", "window", fmt.Sprintf("0x%x", window)),
		node:      node,
		class:     class,
		pid:       pid,
		width:     size,
		height:    size,
	}
}

// Node returns the scene node standing in for the window, or nil once the
// window is gone.
func (c *Client) Node() *scene.Node {
	if c == nil || c.node.IsDestroyed() {
		return nil
	}

	return c.node
}

func (c *Client) Window() xproto.Window {
	return c.window
}

// WMClass returns the WM_CLASS class of the window.
func (c *Client) WMClass() string {
	return c.class
}

// PID returns _NET_WM_PID of the window, or 0 if unset.
func (c *Client) PID() uint32 {
	return c.pid
}

// Click forwards ev to the window. A button release becomes a press and
// release of its button centered in the window, and key events are sent as
// key events. Everything else is ignored.
//
// Events are sent unchecked; failures surface as X errors in [Manager.Run].
func (c *Client) Click(ev scene.Event) {
	events := clickEvents(c.root, c.window, ev, c.width, c.height)
	if len(events) == 0 {
		c.logger.Debug("event not forwarded", "type", ev.Type)
		return
	}

	for _, e := range events {
		xproto.SendEvent(c.conn, false, c.window, e.mask, string(e.event.Bytes()))
	}
}

// SetSize resizes the container and the window.
func (c *Client) SetSize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}

	c.width, c.height = width, height
	values := []uint32{uint32(width), uint32(height)}
	mask := uint16(xproto.ConfigWindowWidth | xproto.ConfigWindowHeight)

	xproto.ConfigureWindow(c.conn, c.container, mask, values)
	xproto.ConfigureWindow(c.conn, c.window, mask, values)
}

// synthetic is an event sent to a window with SendEvent.
type synthetic struct {
	mask  uint32
	event xgb.Event
}

func clickEvents(root, window xproto.Window, ev scene.Event, width, height int) []synthetic {
	switch ev.Type {
	case scene.ButtonRelease:
		press, release := buttonEvents(root, window, ev, width, height)

		return []synthetic{
			{mask: xproto.EventMaskButtonPress, event: press},
			{mask: xproto.EventMaskButtonRelease, event: release},
		}

	case scene.KeyPress, scene.KeyRelease:
		if ev.Keycode == 0 {
			return nil
		}

		key := keyEvent(root, window, ev, width, height)
		if ev.Type == scene.KeyRelease {
			return []synthetic{{mask: xproto.EventMaskKeyRelease, event: xproto.KeyReleaseEvent(key)}}
		}

		return []synthetic{{mask: xproto.EventMaskKeyPress, event: key}}
	}

	return nil
}

func buttonEvents(root, window xproto.Window, ev scene.Event, width, height int) (xproto.ButtonPressEvent, xproto.ButtonReleaseEvent) {
	button := ev.Button
	if button <= 0 {
		button = scene.ButtonPrimary
	}

	press := xproto.ButtonPressEvent{
		Detail:     xproto.Button(button),
		Time:       xproto.Timestamp(ev.Time),
		Root:       root,
		Event:      window,
		EventX:     int16(width / 2),
		EventY:     int16(height / 2),
		State:      uint16(ev.State),
		SameScreen: true,
	}

	release := xproto.ButtonReleaseEvent(press)
	release.State |= uint16(xproto.KeyButMaskButton1) << (button - 1)

	return press, release
}

func keyEvent(root, window xproto.Window, ev scene.Event, width, height int) xproto.KeyPressEvent {
	return xproto.KeyPressEvent{
		Detail:     xproto.Keycode(ev.Keycode),
		Time:       xproto.Timestamp(ev.Time),
		Root:       root,
		Event:      window,
		EventX:     int16(width / 2),
		EventY:     int16(height / 2),
		State:      uint16(ev.State),
		SameScreen: true,
	}
}
