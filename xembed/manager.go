// Package xembed implements the X11 system tray manager that docks legacy
// tray icon windows.
package xembed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"

	"github.com/shelepuginivan/traybox"
)

// DefaultIconSize is the initial size of docked windows.
const DefaultIconSize = 16

// ErrSelectionOwned is returned by [NewManager] when another tray manager
// owns the selection.
var ErrSelectionOwned = errors.New("system tray selection is already owned")

// Options configure a [Manager].
type Options struct {
	// Display to connect to. Empty means $DISPLAY.
	Display string

	// Dispatch runs client teardown on the event loop.
	Dispatch traybox.Dispatcher

	Logger *slog.Logger
}

// Manager owns the system tray selection and embeds windows that ask to be
// docked.
type Manager struct {
	conn       *xgb.Conn
	root       xproto.Window
	rootVisual xproto.Visualid
	window     xproto.Window
	atoms      atoms
	dispatch   traybox.Dispatcher
	logger     *slog.Logger

	added chan *Client

	mu        sync.Mutex
	clients   map[xproto.Window]*Client
	closeOnce sync.Once
}

// NewManager connects to the X server and acquires the system tray
// selection of the default screen.
func NewManager(opts Options) (*Manager, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Dispatch == nil {
		opts.Dispatch = func(fn func()) { fn() }
	}

	conn, err := xgb.NewConnDisplay(opts.Display)
	if err != nil {
		return nil, fmt.Errorf("connect X11: %w", err)
	}

	screen := xproto.Setup(conn).DefaultScreen(conn)

	a, err := internAtoms(conn, conn.DefaultScreen)
	if err != nil {
		conn.Close()
		return nil, err
	}

	owner, err := xproto.GetSelectionOwner(conn, a.traySelection).Reply()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("get selection owner: %w", err)
	}

	if owner.Owner != xproto.WindowNone {
		conn.Close()
		return nil, fmt.Errorf("%w by window 0x%x", ErrSelectionOwned, owner.Owner)
	}

	window, err := xproto.NewWindowId(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("new window id: %w", err)
	}

	err = xproto.CreateWindowChecked(
		conn,
		0,
		window,
		screen.Root,
		0, 0, 1, 1,
		0,
		xproto.WindowClassInputOnly,
		screen.RootVisual,
		xproto.CwEventMask,
		[]uint32{xproto.EventMaskStructureNotify | xproto.EventMaskPropertyChange},
	).Check()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create manager window: %w", err)
	}

	if err := xproto.SetSelectionOwnerChecked(conn, window, a.traySelection, xproto.TimeCurrentTime).Check(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set selection owner: %w", err)
	}

	announce := clientMessage(screen.Root, a.manager, uint32(xproto.TimeCurrentTime), uint32(a.traySelection), uint32(window))
	if err := xproto.SendEventChecked(conn, false, screen.Root, xproto.EventMaskStructureNotify, string(announce.Bytes())).Check(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("announce manager: %w", err)
	}

	m := &Manager{
		conn:       conn,
		root:       screen.Root,
		rootVisual: screen.RootVisual,
		window:     window,
		atoms:      a,
		dispatch:   opts.Dispatch,
		logger:     opts.Logger.With("component", "xembed", "selection", SelectionName(conn.DefaultScreen)),
		added:      make(chan *Client, 16),
		clients:    make(map[xproto.Window]*Client),
	}

	m.logger.Debug("acquired system tray selection")

	return m, nil
}

// Added delivers every docked client. It is closed when [Manager.Run]
// returns.
func (m *Manager) Added() <-chan *Client {
	return m.added
}

// Run processes X events until ctx is done or the connection closes. The
// manager is closed when ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	defer close(m.added)

	go func() {
		<-ctx.Done()
		m.Close()
	}()

	for {
		ev, xerr := m.conn.WaitForEvent()
		if ev == nil && xerr == nil {
			if err := ctx.Err(); err != nil {
				return err
			}

			return errors.New("X11 connection closed")
		}

		if xerr != nil {
			// Windows vanishing mid-request are routine.
			m.logger.Debug("X error", "error", xerr)
			continue
		}

		switch e := ev.(type) {
		case xproto.ClientMessageEvent:
			m.handleClientMessage(ctx, e)
		case xproto.DestroyNotifyEvent:
			m.removeClient(e.Window, "destroyed")
		case xproto.ReparentNotifyEvent:
			m.handleReparent(e)
		}
	}
}

// Close hands docked windows back to the root window, releases the
// selection and disconnects from the X server. It is safe to call more than
// once.
func (m *Manager) Close() {
	m.closeOnce.Do(m.close)
}

func (m *Manager) close() {
	m.mu.Lock()
	clients := m.clients
	m.clients = make(map[xproto.Window]*Client)
	m.mu.Unlock()

	for _, c := range clients {
		xproto.ReparentWindow(m.conn, c.window, m.root, 0, 0)
		xproto.DestroyWindow(m.conn, c.container)
	}

	xproto.SetSelectionOwner(m.conn, xproto.WindowNone, m.atoms.traySelection, xproto.TimeCurrentTime)
	xproto.DestroyWindow(m.conn, m.window)
	m.conn.Close()
}

func (m *Manager) handleClientMessage(ctx context.Context, ev xproto.ClientMessageEvent) {
	window, ok := dockRequest(ev, m.atoms.trayOpcode)
	if !ok {
		return
	}

	m.mu.Lock()
	_, known := m.clients[window]
	m.mu.Unlock()

	if known {
		return
	}

	client, err := m.embed(window)
	if err != nil {
		m.logger.Warn("failed to dock window", "window", fmt.Sprintf("0x%x", window), "error", err)
		return
	}

	m.mu.Lock()
	m.clients[window] = client
	m.mu.Unlock()

	m.logger.Debug("window docked", "window", fmt.Sprintf("0x%x", window), "class", client.class, "pid", client.pid)

	select {
	case m.added <- client:
	case <-ctx.Done():
	}
}

func (m *Manager) handleReparent(ev xproto.ReparentNotifyEvent) {
	m.mu.Lock()
	c, ok := m.clients[ev.Window]
	m.mu.Unlock()

	if ok && ev.Parent != c.container {
		m.removeClient(ev.Window, "reparented away")
	}
}

func (m *Manager) removeClient(window xproto.Window, reason string) {
	m.mu.Lock()
	c, ok := m.clients[window]
	delete(m.clients, window)
	m.mu.Unlock()

	if !ok {
		return
	}

	m.logger.Debug("window undocked", "window", fmt.Sprintf("0x%x", window), "reason", reason)

	xproto.DestroyWindow(m.conn, c.container)
	m.dispatch(c.node.Destroy)
}

func (m *Manager) embed(window xproto.Window) (*Client, error) {
	container, err := xproto.NewWindowId(m.conn)
	if err != nil {
		return nil, fmt.Errorf("new container id: %w", err)
	}

	size := uint16(DefaultIconSize)

	err = xproto.CreateWindowChecked(
		m.conn,
		0,
		container,
		m.root,
		-10000, -10000, size, size,
		0,
		xproto.WindowClassInputOutput,
		m.rootVisual,
		xproto.CwOverrideRedirect|xproto.CwEventMask,
		[]uint32{1, xproto.EventMaskStructureNotify | xproto.EventMaskSubstructureNotify},
	).Check()
	if err != nil {
		return nil, fmt.Errorf("create container: %w", err)
	}

	fail := func(err error) (*Client, error) {
		xproto.DestroyWindow(m.conn, container)
		return nil, err
	}

	if err := xproto.ChangeWindowAttributesChecked(m.conn, window, xproto.CwEventMask, []uint32{xproto.EventMaskStructureNotify | xproto.EventMaskPropertyChange}).Check(); err != nil {
		return fail(fmt.Errorf("select icon events: %w", err))
	}

	if err := xproto.ReparentWindowChecked(m.conn, window, container, 0, 0).Check(); err != nil {
		return fail(fmt.Errorf("reparent icon: %w", err))
	}

	if err := xproto.ChangeSaveSetChecked(m.conn, xproto.SetModeInsert, window).Check(); err != nil {
		return fail(fmt.Errorf("change save set: %w", err))
	}

	xproto.ConfigureWindow(m.conn, window, xproto.ConfigWindowWidth|xproto.ConfigWindowHeight, []uint32{uint32(size), uint32(size)})

	notify := clientMessage(window, m.atoms.xembed, uint32(xproto.TimeCurrentTime), xembedEmbeddedNotify, 0, uint32(container), xembedVersion)
	xproto.SendEvent(m.conn, false, window, xproto.EventMaskNoEvent, string(notify.Bytes()))

	xproto.MapWindow(m.conn, window)

	return newClient(m.conn, m.root, window, container, m.wmClass(window), m.pid(window), int(size)), nil
}

func (m *Manager) wmClass(window xproto.Window) string {
	reply, err := xproto.GetProperty(m.conn, false, window, xproto.AtomWmClass, xproto.AtomString, 0, 256).Reply()
	if err != nil {
		return ""
	}

	return parseWMClass(reply.Value)
}

func (m *Manager) pid(window xproto.Window) uint32 {
	reply, err := xproto.GetProperty(m.conn, false, window, m.atoms.wmPID, xproto.AtomCardinal, 0, 1).Reply()
	if err != nil {
		return 0
	}

	return parseCardinal(reply)
}
