package scene

import (
	"fmt"
	"maps"
	"slices"
)

// Panel boxes a status area entry can be placed in.
const (
	BoxLeft   = "left"
	BoxCenter = "center"
	BoxRight  = "right"
)

// Widget is anything the status area can hold.
type Widget interface {
	Actor() *Node
}

// StatusArea is the host panel's registry of top-level indicators, keyed by
// a string role.
type StatusArea struct {
	entries map[string]Widget
	boxes   map[string]*Node
}

// NewStatusArea returns an empty status area with left, center and right
// boxes.
func NewStatusArea() *StatusArea {
	return &StatusArea{
		entries: make(map[string]Widget),
		boxes: map[string]*Node{
			BoxLeft:   NewNode("panel-left"),
			BoxCenter: NewNode("panel-center"),
			BoxRight:  NewNode("panel-right"),
		},
	}
}

// Box returns the panel box called name, falling back to the right box.
func (a *StatusArea) Box(name string) *Node {
	if box, ok := a.boxes[name]; ok {
		return box
	}

	return a.boxes[BoxRight]
}

// Add registers w under key and inserts its actor into box at position.
// Adding an occupied key fails.
func (a *StatusArea) Add(key string, w Widget, position int, box string) error {
	if _, ok := a.entries[key]; ok {
		return fmt.Errorf("status area: role %s already exists", key)
	}

	a.entries[key] = w

	a.Box(box).InsertChild(w.Actor(), position)

	return nil
}

// Get returns the widget registered under key.
func (a *StatusArea) Get(key string) (Widget, bool) {
	w, ok := a.entries[key]
	return w, ok
}

// Remove drops key from the registry. The widget itself is left alone.
func (a *StatusArea) Remove(key string) {
	delete(a.entries, key)
}

// Keys returns registered keys in sorted order.
func (a *StatusArea) Keys() []string {
	return slices.Sorted(maps.Keys(a.entries))
}

// Snapshot returns a copy of the registry.
func (a *StatusArea) Snapshot() map[string]Widget {
	return maps.Clone(a.entries)
}
