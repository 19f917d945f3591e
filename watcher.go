package traybox

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"
)

const (
	StatusNotifierWatcherInterface = "org.kde.StatusNotifierWatcher"
	StatusNotifierWatcherPath      = "/StatusNotifierWatcher"
)

const watcherIntrospection = `
	<interface name="` + StatusNotifierWatcherInterface + `">
		<method name="RegisterStatusNotifierItem">
			<arg name="service" type="s" direction="in"/>
		</method>
		<method name="RegisterStatusNotifierHost">
			<arg name="service" type="s" direction="in"/>
		</method>
		<property name="RegisteredStatusNotifierItems" type="as" access="read"/>
		<property name="IsStatusNotifierHostRegistered" type="b" access="read"/>
		<property name="ProtocolVersion" type="i" access="read"/>
		<signal name="StatusNotifierItemRegistered">
			<arg type="s"/>
		</signal>
		<signal name="StatusNotifierItemUnregistered">
			<arg type="s"/>
		</signal>
		<signal name="StatusNotifierHostRegistered"/>
	</interface>`

// Watcher implements the org.kde.StatusNotifierWatcher service.
//
// Items are stored as "<busName>/<objectPath>" and dropped when their bus
// name loses its owner.
type Watcher struct {
	closed  bool
	conn    *dbus.Conn
	logger  *slog.Logger
	mu      sync.Mutex
	signals chan *dbus.Signal
	props   *prop.Properties
	hosts   []string
	items   []string
}

func NewWatcher(conn *dbus.Conn) *Watcher {
	return &Watcher{
		conn:    conn,
		logger:  slog.Default().With("component", "sni-watcher"),
		signals: make(chan *dbus.Signal, 64),
	}
}

// Listen claims the watcher name and exports the service.
func (w *Watcher) Listen() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("listen: watcher is closed")
	}

	reply, err := w.conn.RequestName(StatusNotifierWatcherInterface, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("listen: failed to request name %s: %w", StatusNotifierWatcherInterface, err)
	}

	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("listen: name %s already taken", StatusNotifierWatcherInterface)
	}

	if err := w.conn.Export(w, StatusNotifierWatcherPath, StatusNotifierWatcherInterface); err != nil {
		return fmt.Errorf("listen: failed to export %s: %w", StatusNotifierWatcherInterface, err)
	}

	props, err := prop.Export(w.conn, StatusNotifierWatcherPath, w.propertyMap())
	if err != nil {
		return fmt.Errorf("listen: failed to export properties: %w", err)
	}
	w.props = props

	introspection := introspect.IntrospectDeclarationString +
		"<node>" + watcherIntrospection + introspect.IntrospectDataString + prop.IntrospectDataString + "</node>"
	if err := w.conn.Export(introspect.Introspectable(introspection), StatusNotifierWatcherPath, "org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("listen: failed to export introspection: %w", err)
	}

	w.conn.Signal(w.signals)
	go w.processSignals()

	w.logger.Info("status notifier watcher started")

	return nil
}

// Close releases the watcher name and stops tracking names.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true

	_, err := w.conn.ReleaseName(StatusNotifierWatcherInterface)
	if err != nil {
		return err
	}

	for _, host := range w.hosts {
		_ = w.conn.RemoveMatchSignal(nameOwnerChangedMatch(host)...)
	}

	for _, item := range w.items {
		// Since items are stored as
		//
		//  <uniqueName>/<path>
		//
		// and signals match against uniqueName, we need to extract uniqueName.
		uniqueName, _, err := uniqueNameAndPathFromItemName(item)
		if err != nil {
			continue
		}

		_ = w.conn.RemoveMatchSignal(nameOwnerChangedMatch(uniqueName)...)
	}

	w.conn.RemoveSignal(w.signals)
	close(w.signals)

	return nil
}

// Items returns the registered item identifiers.
func (w *Watcher) Items() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	return slices.Clone(w.items)
}

// RegisterStatusNotifierItem is the D-Bus method called by items. The name
// is either a bus name or, as some Ayatana implementations do, an object
// path on the sender's connection.
func (w *Watcher) RegisterStatusNotifierItem(name string, sender dbus.Sender) *dbus.Error {
	w.mu.Lock()
	defer w.mu.Unlock()

	identifier := itemIdentifier(name, sender)

	if slices.Contains(w.items, identifier) {
		return nil
	}

	w.items = append(w.items, identifier)

	owner, _, _ := strings.Cut(identifier, "/")
	_ = w.conn.AddMatchSignal(nameOwnerChangedMatch(owner)...)

	w.logger.Debug("item registered", "item", identifier)

	_ = w.conn.Emit(StatusNotifierWatcherPath, StatusNotifierWatcherInterface+".StatusNotifierItemRegistered", identifier)
	w.updateProperties()

	return nil
}

// RegisterStatusNotifierHost is the D-Bus method called by hosts.
func (w *Watcher) RegisterStatusNotifierHost(name string) *dbus.Error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if slices.Contains(w.hosts, name) {
		return nil
	}

	w.hosts = append(w.hosts, name)

	_ = w.conn.Emit(StatusNotifierWatcherPath, StatusNotifierWatcherInterface+".StatusNotifierHostRegistered")
	w.updateProperties()

	_ = w.conn.AddMatchSignal(nameOwnerChangedMatch(name)...)

	return nil
}

func (w *Watcher) processSignals() {
	for signal := range w.signals {
		name, _, newOwner, ok := parseNameOwnerChanged(signal)
		if !ok || newOwner != "" {
			continue
		}

		w.unregisterHost(name)
		w.unregisterItems(name)
	}
}

func (w *Watcher) unregisterHost(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	idx := slices.Index(w.hosts, name)
	if idx < 0 {
		return
	}

	_ = w.conn.RemoveMatchSignal(nameOwnerChangedMatch(name)...)

	w.hosts = slices.Delete(w.hosts, idx, idx+1)
	w.updateProperties()
}

// unregisterItems drops every item exported by name.
func (w *Watcher) unregisterItems(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var removed []string

	w.items = slices.DeleteFunc(w.items, func(item string) bool {
		if itemOwnedBy(item, name) {
			removed = append(removed, item)
			return true
		}
		return false
	})

	if len(removed) == 0 {
		return
	}

	_ = w.conn.RemoveMatchSignal(nameOwnerChangedMatch(name)...)

	for _, item := range removed {
		w.logger.Debug("item unregistered", "item", item)
		_ = w.conn.Emit(StatusNotifierWatcherPath, StatusNotifierWatcherInterface+".StatusNotifierItemUnregistered", item)
	}

	w.updateProperties()
}

func (w *Watcher) propertyMap() prop.Map {
	return prop.Map{
		StatusNotifierWatcherInterface: map[string]*prop.Prop{
			"RegisteredStatusNotifierItems": {
				Value:    slices.Clone(w.items),
				Writable: false,
				Emit:     prop.EmitTrue,
			},
			"IsStatusNotifierHostRegistered": {
				Value:    len(w.hosts) > 0,
				Writable: false,
				Emit:     prop.EmitTrue,
			},
			"ProtocolVersion": {
				Value:    int32(0),
				Writable: false,
				Emit:     prop.EmitConst,
			},
		},
	}
}

func (w *Watcher) updateProperties() {
	if w.props == nil {
		return
	}

	items := slices.Clone(w.items)
	if items == nil {
		items = []string{}
	}

	w.props.SetMust(StatusNotifierWatcherInterface, "RegisteredStatusNotifierItems", items)
	w.props.SetMust(StatusNotifierWatcherInterface, "IsStatusNotifierHostRegistered", len(w.hosts) > 0)
}

// itemIdentifier returns "<busName>/<objectPath>" for a registration
// request.
func itemIdentifier(name string, sender dbus.Sender) string {
	if strings.HasPrefix(name, "/") {
		return string(sender) + name
	}

	if busName, path, ok := strings.Cut(name, "/"); ok {
		return busName + "/" + path
	}

	return name + StatusNotifierItemPath
}

// itemOwnedBy reports whether the item identifier belongs to bus name.
func itemOwnedBy(identifier, name string) bool {
	busName, _, _ := strings.Cut(identifier, "/")
	return busName == name
}
