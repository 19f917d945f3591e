package aggregator

import (
	"errors"
	"fmt"
	"os"

	"github.com/godbus/dbus/v5"

	"github.com/shelepuginivan/traybox"
	"github.com/shelepuginivan/traybox/statusicon"
)

// DBusIndicators runs a StatusNotifierWatcher together with a host that
// follows the items registered in it.
type DBusIndicators struct {
	watcher *traybox.Watcher
	host    *traybox.Host
}

// StartDBusIndicators claims the watcher name on conn and starts a host.
// registered runs through dispatch for every item the host loads.
func StartDBusIndicators(conn *dbus.Conn, dispatch traybox.Dispatcher, registered func(statusicon.Indicator)) (*DBusIndicators, error) {
	watcher := traybox.NewWatcher(conn)
	if err := watcher.Listen(); err != nil {
		return nil, fmt.Errorf("start indicators: %w", err)
	}

	host := traybox.NewHost(conn, os.Getpid(), dispatch)
	host.OnRegistered(func(item *traybox.Item) {
		registered(item)
	})

	if err := host.Listen(); err != nil {
		return nil, errors.Join(fmt.Errorf("start indicators: %w", err), watcher.Close())
	}

	return &DBusIndicators{watcher: watcher, host: host}, nil
}

func (d *DBusIndicators) Indicators() []statusicon.Indicator {
	items := d.host.Indicators()
	indicators := make([]statusicon.Indicator, 0, len(items))

	for _, item := range items {
		indicators = append(indicators, item)
	}

	return indicators
}

// Close stops the host and releases the watcher name.
func (d *DBusIndicators) Close() error {
	return errors.Join(d.host.Close(), d.watcher.Close())
}

// WatcherNameOwned returns a function reporting whether the watcher name has
// an owner on conn. Lookup failures count as not owned.
func WatcherNameOwned(conn *dbus.Conn) func() bool {
	return func() bool {
		owned, err := traybox.NameOwned(conn, traybox.StatusNotifierWatcherInterface)
		return err == nil && owned
	}
}

// DBusMenuFactory creates dbusmenu clients on conn.
func DBusMenuFactory(conn *dbus.Conn, dispatch traybox.Dispatcher) statusicon.MenuFactory {
	return func(busName, menuPath string, _ statusicon.Indicator) statusicon.MenuClient {
		return traybox.NewMenuClient(conn, busName, menuPath, dispatch)
	}
}
