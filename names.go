package traybox

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	busInterface     = "org.freedesktop.DBus"
	nameOwnerChanged = busInterface + ".NameOwnerChanged"
)

// NameOwned reports whether name currently has an owner on the bus.
func NameOwned(conn *dbus.Conn, name string) (bool, error) {
	var owned bool

	err := conn.BusObject().Call(busInterface+".NameHasOwner", 0, name).Store(&owned)
	if err != nil {
		return false, fmt.Errorf("query owner of %s: %w", name, err)
	}

	return owned, nil
}

// nameOwner returns the unique connection name owning name.
func nameOwner(conn *dbus.Conn, name string) (string, error) {
	var owner string

	err := conn.BusObject().Call(busInterface+".GetNameOwner", 0, name).Store(&owner)
	if err != nil {
		return "", fmt.Errorf("get owner of %s: %w", name, err)
	}

	return owner, nil
}

// nameOwnerChangedMatch matches NameOwnerChanged signals about name.
//
// Whenever name disappears, D-Bus sends NameOwnerChanged with an empty
// new owner.
func nameOwnerChangedMatch(name string) []dbus.MatchOption {
	return []dbus.MatchOption{
		dbus.WithMatchInterface(busInterface),
		dbus.WithMatchSender(busInterface),
		dbus.WithMatchMember("NameOwnerChanged"),
		dbus.WithMatchArg(0, name),
	}
}

// parseNameOwnerChanged reads the (name, old owner, new owner) body of a
// NameOwnerChanged signal.
func parseNameOwnerChanged(signal *dbus.Signal) (name, oldOwner, newOwner string, ok bool) {
	if signal.Name != nameOwnerChanged || len(signal.Body) < 3 {
		return "", "", "", false
	}

	name, ok1 := signal.Body[0].(string)
	oldOwner, ok2 := signal.Body[1].(string)
	newOwner, ok3 := signal.Body[2].(string)

	return name, oldOwner, newOwner, ok1 && ok2 && ok3
}
