package traybox

import (
	"errors"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
)

const MenuInterface = "com.canonical.dbusmenu"

// menuSignalMembers are the dbusmenu signals a [Menu] follows.
var menuSignalMembers = []string{
	"ItemsPropertiesUpdated",
	"LayoutUpdated",
	"ItemActivationRequested",
}

// Menu is a proxy of the menu exported by an [Item] over the
// com.canonical.dbusmenu interface.
//
// Callbacks run on the signal goroutine of the connection. [MenuClient]
// moves them onto the event loop.
type Menu struct {
	busName string
	owner   string
	path    dbus.ObjectPath
	conn    *dbus.Conn
	object  dbus.BusObject
	signals chan *dbus.Signal

	mu            sync.Mutex
	onInvalidated func()
	onActivate    func(int32)
	closed        bool

	// Version of the com.canonical.dbusmenu interface.
	Version uint32
}

// NewMenu connects to the menu at path on busName. It fails when the object
// does not export the dbusmenu interface.
func NewMenu(conn *dbus.Conn, busName, path string) (*Menu, error) {
	m := &Menu{
		busName:       busName,
		owner:         busName,
		path:          dbus.ObjectPath(path),
		conn:          conn,
		object:        conn.Object(busName, dbus.ObjectPath(path)),
		signals:       make(chan *dbus.Signal, 16),
		onInvalidated: func() {},
		onActivate:    func(int32) {},
	}

	version, err := m.object.GetProperty(MenuInterface + ".Version")
	if err != nil {
		return nil, fmt.Errorf("menu %s%s: %w", busName, path, err)
	}

	if err := version.Store(&m.Version); err != nil {
		return nil, fmt.Errorf("menu %s%s: version: %w", busName, path, err)
	}

	if owner, err := nameOwner(conn, busName); err == nil {
		m.owner = owner
	}

	if err := m.subscribe(); err != nil {
		return nil, fmt.Errorf("menu %s%s: %w", busName, path, err)
	}

	return m, nil
}

// GetLayout returns the revision and the layout below parentID, recursing
// depth levels (-1 for all). An empty propertyNames requests every property.
func (m *Menu) GetLayout(parentID, depth int32, propertyNames []string) (uint32, *LayoutNode, error) {
	if propertyNames == nil {
		propertyNames = []string{}
	}

	call := m.object.Call(MenuInterface+".GetLayout", 0, parentID, depth, propertyNames)
	if call.Err != nil {
		return 0, nil, fmt.Errorf("get layout: %w", call.Err)
	}

	if len(call.Body) != 2 {
		return 0, nil, fmt.Errorf("get layout: unexpected reply of %d values", len(call.Body))
	}

	var revision uint32
	if err := dbus.Store(call.Body[:1], &revision); err != nil {
		return 0, nil, fmt.Errorf("get layout: revision: %w", err)
	}

	root, err := NewLayoutNode(call.Body[1])
	if err != nil {
		return revision, nil, fmt.Errorf("get layout: %w", err)
	}

	return revision, root, nil
}

// Event reports an event such as "clicked", "hovered", "opened" or
// "closed" on node id.
func (m *Menu) Event(id int32, eventID string, data any, timestamp uint32) error {
	err := m.object.Call(MenuInterface+".Event", 0, id, eventID, dbus.MakeVariant(data), timestamp).Err
	if err != nil {
		return fmt.Errorf("event %s on %d: %w", eventID, id, err)
	}

	return nil
}

// AboutToShow tells the application node id is about to be shown and
// reports whether the layout must be fetched again.
func (m *Menu) AboutToShow(id int32) (bool, error) {
	var needUpdate bool

	if err := m.object.Call(MenuInterface+".AboutToShow", 0, id).Store(&needUpdate); err != nil {
		return false, fmt.Errorf("about to show %d: %w", id, err)
	}

	return needUpdate, nil
}

// OnInvalidated registers fn to run whenever the layout or the properties of
// its nodes change.
func (m *Menu) OnInvalidated(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.onInvalidated = fn
}

// OnActivate registers fn to run when the application asks for node id to
// be shown.
func (m *Menu) OnActivate(fn func(id int32)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.onActivate = fn
}

// Close stops following the menu signals. It is safe to call more than
// once.
func (m *Menu) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	var errs []error
	for _, member := range menuSignalMembers {
		errs = append(errs, m.conn.RemoveMatchSignal(m.matchOptions(member)...))
	}

	m.conn.RemoveSignal(m.signals)
	close(m.signals)

	return errors.Join(errs...)
}

func (m *Menu) matchOptions(member string) []dbus.MatchOption {
	return []dbus.MatchOption{
		dbus.WithMatchInterface(MenuInterface),
		dbus.WithMatchMember(member),
		dbus.WithMatchSender(m.busName),
		dbus.WithMatchObjectPath(m.path),
	}
}

func (m *Menu) subscribe() error {
	for _, member := range menuSignalMembers {
		if err := m.conn.AddMatchSignal(m.matchOptions(member)...); err != nil {
			return fmt.Errorf("subscribe to %s: %w", member, err)
		}
	}

	m.conn.Signal(m.signals)

	go func() {
		for sig := range m.signals {
			m.handleSignal(sig)
		}
	}()

	return nil
}

func (m *Menu) handleSignal(sig *dbus.Signal) {
	if sig.Sender != m.owner || sig.Path != m.path {
		return
	}

	m.mu.Lock()
	onInvalidated, onActivate := m.onInvalidated, m.onActivate
	m.mu.Unlock()

	switch sig.Name {
	case MenuInterface + ".ItemsPropertiesUpdated", MenuInterface + ".LayoutUpdated":
		onInvalidated()
	case MenuInterface + ".ItemActivationRequested":
		var (
			id        int32
			timestamp uint32
		)

		if err := dbus.Store(sig.Body, &id, &timestamp); err == nil {
			onActivate(id)
		}
	}
}
