package traybox

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func layoutData(id int32, props map[string]dbus.Variant, children ...any) []any {
	variants := make([]dbus.Variant, 0, len(children))
	for _, c := range children {
		variants = append(variants, dbus.MakeVariant(c))
	}

	if props == nil {
		props = map[string]dbus.Variant{}
	}

	return []any{id, props, variants}
}

func TestNewLayoutNode(t *testing.T) {
	data := layoutData(0, nil,
		layoutData(1, map[string]dbus.Variant{
			"label":   dbus.MakeVariant("_Open"),
			"enabled": dbus.MakeVariant(false),
		}),
		layoutData(2, map[string]dbus.Variant{"type": dbus.MakeVariant("separator")}),
		"garbage",
	)

	root, err := NewLayoutNode(data)
	require.NoError(t, err)

	assert.Equal(t, int32(0), root.ID)
	require.Len(t, root.Children, 2, "malformed children are skipped")

	open := root.Children[0]
	assert.Equal(t, "Open", open.Label())
	assert.False(t, open.Enabled())
	assert.True(t, open.Visible())
	assert.False(t, open.IsSeparator())

	assert.True(t, root.Children[1].IsSeparator())
}

func TestNewLayoutNodeInvalid(t *testing.T) {
	_, err := NewLayoutNode([]any{int32(0)})
	assert.Error(t, err)

	_, err = NewLayoutNode([]any{"id", map[string]dbus.Variant{}, []dbus.Variant{}})
	assert.Error(t, err)
}

func TestLayoutNodeLabelMnemonics(t *testing.T) {
	tests := map[string]string{
		"_File":       "File",
		"Save __As":   "Save _As",
		"No mnemonic": "No mnemonic",
		"trailing_":   "trailing",
	}

	for in, want := range tests {
		n := &LayoutNode{Properties: map[string]any{"label": in}}
		assert.Equal(t, want, n.Label(), in)
	}
}

func TestLayoutNodeHasSubmenu(t *testing.T) {
	assert.True(t, (&LayoutNode{Properties: map[string]any{"children-display": "submenu"}}).HasSubmenu())
	assert.True(t, (&LayoutNode{Properties: map[string]any{}, Children: []*LayoutNode{{}}}).HasSubmenu())
	assert.False(t, (&LayoutNode{Properties: map[string]any{}}).HasSubmenu())
}

func TestIconSetBest(t *testing.T) {
	pixmap := func(size int32) []any {
		return []any{size, size, make([]byte, size*size*4)}
	}

	set, err := NewIconSetFromDBusProperty([][]any{pixmap(16), pixmap(48), pixmap(24), {int32(1)}})
	require.NoError(t, err)
	require.Len(t, *set, 3)

	assert.Equal(t, int32(24), set.Best(20).Width)
	assert.Equal(t, int32(16), set.Best(16).Width)
	assert.Equal(t, int32(48), set.Best(64).Width, "largest when none is big enough")

	var empty *IconSet
	assert.Nil(t, empty.Best(16))
}

func TestIconImage(t *testing.T) {
	icon, err := NewIconFromDBusPixmap([]any{int32(1), int32(1), []byte{0x80, 0x10, 0x20, 0x30}})
	require.NoError(t, err)

	c := icon.Image().NRGBAAt(0, 0)
	assert.Equal(t, uint8(0x80), c.A)
	assert.Equal(t, uint8(0x10), c.R)
	assert.Equal(t, uint8(0x20), c.G)
	assert.Equal(t, uint8(0x30), c.B)
}

func TestIconRejectsShortData(t *testing.T) {
	_, err := NewIconFromDBusPixmap([]any{int32(2), int32(2), []byte{0, 0, 0, 0}})
	assert.Error(t, err)

	_, err = NewIconSetFromDBusProperty("nope")
	assert.Error(t, err)
}
