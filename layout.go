package traybox

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

// LayoutNode is one entry of a com.canonical.dbusmenu layout.
type LayoutNode struct {
	ID         int32
	Properties map[string]any
	Children   []*LayoutNode
}

// NewLayoutNode parses a (ia{sv}av) layout structure.
func NewLayoutNode(data any) (*LayoutNode, error) {
	arr, ok := data.([]any)
	if !ok || len(arr) != 3 {
		return nil, fmt.Errorf("menu node: invalid format")
	}

	id, ok := arr[0].(int32)
	if !ok {
		return nil, fmt.Errorf("menu node: invalid id")
	}

	props, ok := arr[1].(map[string]dbus.Variant)
	if !ok {
		return nil, fmt.Errorf("menu node: invalid props")
	}

	children, ok := arr[2].([]dbus.Variant)
	if !ok {
		return nil, fmt.Errorf("menu node: invalid children")
	}

	root := &LayoutNode{
		ID:         id,
		Properties: make(map[string]any, len(props)),
		Children:   make([]*LayoutNode, 0, len(children)),
	}

	for key, value := range props {
		root.Properties[key] = value.Value()
	}

	for _, child := range children {
		childNode, err := NewLayoutNode(child.Value())
		if err != nil {
			continue
		}

		root.Children = append(root.Children, childNode)
	}

	return root, nil
}

// Label returns the label with mnemonic underscores removed. A doubled
// underscore stands for a literal one.
func (n *LayoutNode) Label() string {
	label, _ := n.Properties["label"].(string)

	var b strings.Builder
	for i := 0; i < len(label); i++ {
		if label[i] == '_' {
			if i+1 < len(label) && label[i+1] == '_' {
				b.WriteByte('_')
				i++
			}
			continue
		}

		b.WriteByte(label[i])
	}

	return b.String()
}

// IconName returns the themed icon name of the entry, if any.
func (n *LayoutNode) IconName() string {
	name, _ := n.Properties["icon-name"].(string)
	return name
}

// Enabled reports whether the entry can be activated. Defaults to true.
func (n *LayoutNode) Enabled() bool {
	return n.boolProperty("enabled", true)
}

// Visible reports whether the entry should be shown. Defaults to true.
func (n *LayoutNode) Visible() bool {
	return n.boolProperty("visible", true)
}

// IsSeparator reports whether the entry is a separator.
func (n *LayoutNode) IsSeparator() bool {
	kind, _ := n.Properties["type"].(string)
	return kind == "separator"
}

// HasSubmenu reports whether the entry opens a submenu.
func (n *LayoutNode) HasSubmenu() bool {
	display, _ := n.Properties["children-display"].(string)
	return display == "submenu" || len(n.Children) > 0
}

func (n *LayoutNode) boolProperty(key string, fallback bool) bool {
	v, ok := n.Properties[key].(bool)
	if !ok {
		return fallback
	}

	return v
}
