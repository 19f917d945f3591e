package traybox

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/godbus/dbus/v5"
)

// ErrHostClosed is returned by [Host.Listen] after [Host.Close].
var ErrHostClosed = errors.New("host is closed")

// Dispatcher hands fn to the event loop. A nil Dispatcher runs fn on the
// calling goroutine.
type Dispatcher func(fn func())

func (d Dispatcher) run(fn func()) {
	if d == nil {
		fn()
		return
	}

	d(fn)
}

// Host implements [StatusNotifierHost]. It keeps track of StatusNotifierItem
// instances via [StatusNotifierWatcher].
//
// Items are keyed by [Item.UniqueID], so one connection may export several
// items under different object paths.
//
// [StatusNotifierHost]: https://www.freedesktop.org/wiki/Specifications/StatusNotifierItem/StatusNotifierHost/
// [StatusNotifierWatcher]: https://www.freedesktop.org/wiki/Specifications/StatusNotifierItem/StatusNotifierWatcher/
type Host struct {
	name           string
	closed         bool
	conn           *dbus.Conn
	dispatch       Dispatcher
	logger         *slog.Logger
	items          map[string]*Item
	pending        map[string]bool
	signals        chan *dbus.Signal
	mu             sync.RWMutex
	onRegistered   func(item *Item)
	onUnregistered func(item *Item)
}

// NewHost returns a new [Host].
//
// Parameter id is used as a unique identifier for host name, such as PID.
// Callbacks run through dispatch.
func NewHost(conn *dbus.Conn, id any, dispatch Dispatcher) *Host {
	name := fmt.Sprintf("org.kde.StatusNotifierHost-%v", id)

	return &Host{
		name:           name,
		conn:           conn,
		dispatch:       dispatch,
		logger:         slog.Default().With("component", "sni-host", "name", name),
		items:          make(map[string]*Item),
		pending:        make(map[string]bool),
		signals:        make(chan *dbus.Signal, 64),
		onRegistered:   func(*Item) {},
		onUnregistered: func(*Item) {},
	}
}

// Name returns name of the host service.
func (h *Host) Name() string {
	return h.name
}

// Listen requests name of the host on D-Bus, subscribes to signals, and
// loads items that are already registered in the background.
//
// This method should be called after [Host.OnRegistered] and
// [Host.OnUnregistered] callbacks were set.
//
// If Listen is called after [Host.Close], [ErrHostClosed] is returned.
func (h *Host) Listen() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return fmt.Errorf("listen: %w", ErrHostClosed)
	}

	reply, err := h.conn.RequestName(h.name, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("listen: failed to request name %s: %w", h.name, err)
	}

	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("listen: name %s already taken", h.name)
	}

	// Register host in the watcher.
	call := h.conn.Object(
		StatusNotifierWatcherInterface,
		StatusNotifierWatcherPath,
	).Call(StatusNotifierWatcherInterface+".RegisterStatusNotifierHost", 0, h.name)
	if call.Err != nil {
		return fmt.Errorf("listen: failed to register host: %w", call.Err)
	}

	if err := h.subscribe(); err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	go h.loadInitialItems()

	return nil
}

// Close releases name of the host from D-Bus and unsubscribes from signals.
// Remaining items are destroyed on the event loop.
//
// Host cannot be reused after Close was called.
func (h *Host) Close() error {
	h.mu.Lock()

	if h.closed {
		h.mu.Unlock()
		return nil
	}

	h.closed = true

	h.conn.RemoveSignal(h.signals)
	close(h.signals)

	items := slices.Collect(maps.Values(h.items))
	clear(h.items)
	h.mu.Unlock()

	var errs []error

	if _, err := h.conn.ReleaseName(h.name); err != nil {
		errs = append(errs, err)
	}

	for _, member := range []string{"StatusNotifierItemRegistered", "StatusNotifierItemUnregistered"} {
		if err := h.conn.RemoveMatchSignal(
			dbus.WithMatchInterface(StatusNotifierWatcherInterface),
			dbus.WithMatchMember(member),
		); err != nil {
			errs = append(errs, err)
		}
	}

	h.dispatch.run(func() {
		for _, item := range items {
			item.destroy()
		}
	})

	return errors.Join(errs...)
}

// Indicators returns currently registered items ordered by unique id.
func (h *Host) Indicators() []*Item {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := slices.Sorted(maps.Keys(h.items))
	items := make([]*Item, 0, len(ids))

	for _, id := range ids {
		if item := h.items[id]; !item.destroyed {
			items = append(items, item)
		}
	}

	return items
}

// OnRegistered sets callback that runs whenever a new item is registered.
//
// Graphical tray hosts should draw item representation when OnRegistered
// callback is called.
func (h *Host) OnRegistered(callback func(*Item)) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.onRegistered = callback
}

// OnUnregistered sets callback that runs whenever an item is unregistered,
// right before the item emits [SignalDestroy].
func (h *Host) OnUnregistered(callback func(*Item)) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.onUnregistered = callback
}

// loadInitialItems retrieves items that are already registered.
func (h *Host) loadInitialItems() {
	watcherObj := h.conn.Object(StatusNotifierWatcherInterface, StatusNotifierWatcherPath)

	property, err := watcherObj.GetProperty(StatusNotifierWatcherInterface + ".RegisteredStatusNotifierItems")
	if err != nil {
		h.logger.Warn("failed to list registered items", "error", err)
		return
	}

	registeredItems, ok := property.Value().([]string)
	if !ok {
		return
	}

	for _, itemName := range registeredItems {
		h.register(itemName)
	}
}

// subscribe subscribes to signals
//   - org.kde.StatusNotifierWatcher.StatusNotifierItemRegistered
//   - org.kde.StatusNotifierWatcher.StatusNotifierItemUnregistered
func (h *Host) subscribe() error {
	for _, member := range []string{"StatusNotifierItemRegistered", "StatusNotifierItemUnregistered"} {
		if err := h.conn.AddMatchSignal(
			dbus.WithMatchInterface(StatusNotifierWatcherInterface),
			dbus.WithMatchMember(member),
		); err != nil {
			return err
		}
	}

	h.conn.Signal(h.signals)

	go func() {
		for signal := range h.signals {
			if len(signal.Body) < 1 {
				continue
			}

			itemName, ok := signal.Body[0].(string)
			if !ok {
				continue
			}

			switch signal.Name {
			case StatusNotifierWatcherInterface + ".StatusNotifierItemRegistered":
				go h.register(itemName)
			case StatusNotifierWatcherInterface + ".StatusNotifierItemUnregistered":
				h.unregister(itemName)
			}
		}
	}()

	return nil
}

// register loads the item called itemName and hands it to the registered
// callback. Loading blocks, so it runs off the signal goroutine.
func (h *Host) register(itemName string) {
	busName, objectPath, err := uniqueNameAndPathFromItemName(itemName)
	if err != nil {
		return
	}

	id := busName + objectPath

	h.mu.Lock()
	if h.closed || h.items[id] != nil || h.pending[id] {
		h.mu.Unlock()
		return
	}
	h.pending[id] = true
	h.mu.Unlock()

	item, err := NewItemWithObjectPath(h.conn, busName, objectPath, h.dispatch)

	h.mu.Lock()
	delete(h.pending, id)

	if err != nil {
		h.mu.Unlock()
		h.logger.Warn("failed to load item", "item", itemName, "error", err)
		return
	}

	if h.closed {
		h.mu.Unlock()
		item.close()
		return
	}

	h.items[id] = item
	callback := h.onRegistered
	h.mu.Unlock()

	h.logger.Debug("item registered", "item", id)

	h.dispatch.run(func() {
		item.Connect(func(sig ItemSignal) {
			if sig == SignalDestroy {
				h.forget(id, item)
			}
		})

		callback(item)
	})
}

// unregister handles the
// org.kde.StatusNotifierWatcher.StatusNotifierItemUnregistered signal.
func (h *Host) unregister(itemName string) {
	busName, objectPath, err := uniqueNameAndPathFromItemName(itemName)
	if err != nil {
		return
	}

	id := busName + objectPath

	h.mu.Lock()
	item, exists := h.items[id]
	if !exists {
		h.mu.Unlock()
		return
	}

	delete(h.items, id)
	callback := h.onUnregistered
	h.mu.Unlock()

	h.logger.Debug("item unregistered", "item", id)

	h.dispatch.run(func() {
		callback(item)
		item.destroy()
	})
}

func (h *Host) forget(id string, item *Item) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.items[id] == item {
		delete(h.items, id)
	}
}
