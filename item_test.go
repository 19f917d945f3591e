package traybox

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniqueNameAndPathFromItemName(t *testing.T) {
	tests := []struct {
		in       string
		name     string
		path     string
		hasError bool
	}{
		{in: ":1.185/StatusNotifierItem", name: ":1.185", path: "/StatusNotifierItem"},
		{in: ":1.185/org/ayatana/NotificationItem/app", name: ":1.185", path: "/org/ayatana/NotificationItem/app"},
		{in: "org.kde.StatusNotifierItem-42-1", name: "org.kde.StatusNotifierItem-42-1", path: StatusNotifierItemPath},
		{in: ":1.7/", name: ":1.7", path: StatusNotifierItemPath},
		{in: "/StatusNotifierItem", hasError: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			name, path, err := uniqueNameAndPathFromItemName(tt.in)
			if tt.hasError {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.path, path)
		})
	}
}

func TestParseItemStatus(t *testing.T) {
	assert.Equal(t, ItemStatusPassive, ParseItemStatus("Passive"))
	assert.Equal(t, ItemStatusNeedsAttention, ParseItemStatus("NeedsAttention"))
	assert.Equal(t, ItemStatusActive, ParseItemStatus("Active"))
	assert.Equal(t, ItemStatusActive, ParseItemStatus("Bogus"))
}

func TestParseItemProps(t *testing.T) {
	props := parseItemProps(map[string]dbus.Variant{
		"Id":            dbus.MakeVariant("nm-applet"),
		"Title":         dbus.MakeVariant("Network"),
		"Category":      dbus.MakeVariant("Hardware"),
		"Status":        dbus.MakeVariant("NeedsAttention"),
		"IconName":      dbus.MakeVariant("network-wireless"),
		"Menu":          dbus.MakeVariant(dbus.ObjectPath("/MenuBar")),
		"ItemIsMenu":    dbus.MakeVariant(true),
		"WindowId":      dbus.MakeVariant(int32(7)),
		"XAyatanaLabel": dbus.MakeVariant("42%"),
		"ToolTip":       dbus.MakeVariant([]any{"", [][]any{}, "Connected", "wlan0"}),
	})

	assert.Equal(t, "nm-applet", props.ID)
	assert.Equal(t, "Network", props.Title)
	assert.Equal(t, ItemCategoryHardware, props.Category)
	assert.Equal(t, ItemStatusNeedsAttention, props.Status)
	assert.Equal(t, "network-wireless", props.IconName)
	assert.Equal(t, "/MenuBar", props.MenuPath)
	assert.True(t, props.IsMenu)
	assert.Equal(t, uint32(7), props.WindowID)
	assert.Equal(t, "42%", props.Label)
	assert.Equal(t, "Connected", props.Tooltip)
}

func TestParseItemPropsDefaults(t *testing.T) {
	props := parseItemProps(map[string]dbus.Variant{
		"Menu": dbus.MakeVariant(dbus.ObjectPath("/")),
	})

	assert.Equal(t, ItemStatusActive, props.Status)
	assert.Equal(t, ItemCategoryApplicationStatus, props.Category)
	assert.Empty(t, props.MenuPath, "root path means no menu")
}

func TestItemApplyEmitsReadyThenDiffs(t *testing.T) {
	item := newItem(":1.5", StatusNotifierItemPath, nil)

	var got []ItemSignal
	item.Connect(func(sig ItemSignal) { got = append(got, sig) })

	item.apply(itemProps{ID: "app", Status: ItemStatusActive, IconName: "a"})
	assert.True(t, item.IsReady())
	assert.Equal(t, []ItemSignal{SignalReady}, got)

	got = nil
	item.apply(itemProps{ID: "app", Status: ItemStatusActive, IconName: "a"})
	assert.Empty(t, got, "identical properties emit nothing")

	item.apply(itemProps{
		ID:       "app",
		Title:    "App",
		Status:   ItemStatusPassive,
		IconName: "b",
		MenuPath: "/Menu",
		Label:    "3",
	})

	assert.Equal(t, []ItemSignal{
		SignalIcon,
		SignalMenu,
		SignalLabel,
		SignalStatus,
		SignalAccessibleName,
	}, got)
}

func TestItemResetEmitsResetAndIcon(t *testing.T) {
	item := newItem(":1.5", StatusNotifierItemPath, nil)
	item.apply(itemProps{IconName: "a", Status: ItemStatusActive})

	var got []ItemSignal
	item.Connect(func(sig ItemSignal) { got = append(got, sig) })

	item.reset(itemProps{IconName: "b", Status: ItemStatusPassive, Label: "x"})

	assert.Equal(t, []ItemSignal{SignalReset, SignalIcon}, got)
}

func TestItemDestroyOnce(t *testing.T) {
	item := newItem(":1.5", StatusNotifierItemPath, nil)
	item.apply(itemProps{})

	destroyed := 0
	item.Connect(func(sig ItemSignal) {
		if sig == SignalDestroy {
			destroyed++
		}
	})

	item.destroy()
	item.destroy()
	item.apply(itemProps{IconName: "ignored"})

	assert.Equal(t, 1, destroyed)
	assert.False(t, item.IsReady())
	assert.Empty(t, item.IconName())
}

func TestItemAccessors(t *testing.T) {
	item := newItem(":1.5", "/org/ayatana/NotificationItem/app", nil)
	item.apply(itemProps{
		ID:                "app",
		IconName:          "normal",
		AttentionIconName: "alert",
		Status:            ItemStatusActive,
	})

	assert.Equal(t, ":1.5/org/ayatana/NotificationItem/app", item.UniqueID())
	assert.Equal(t, "app", item.AccessibleName(), "falls back to id")
	assert.Equal(t, "normal", item.IconName())

	item.apply(itemProps{
		ID:                "app",
		Title:             "Application",
		IconName:          "normal",
		AttentionIconName: "alert",
		Status:            ItemStatusNeedsAttention,
	})

	assert.Equal(t, "Application", item.AccessibleName())
	assert.Equal(t, "alert", item.IconName())
}

func TestItemSignalString(t *testing.T) {
	assert.Equal(t, "accessible-name", SignalAccessibleName.String())
	assert.Equal(t, "destroy", SignalDestroy.String())
	assert.Equal(t, "ItemSignal(42)", ItemSignal(42).String())
}

func TestParseNameOwnerChanged(t *testing.T) {
	name, oldOwner, newOwner, ok := parseNameOwnerChanged(&dbus.Signal{
		Name: nameOwnerChanged,
		Body: []any{"org.example", ":1.2", ""},
	})

	require.True(t, ok)
	assert.Equal(t, "org.example", name)
	assert.Equal(t, ":1.2", oldOwner)
	assert.Empty(t, newOwner)

	_, _, _, ok = parseNameOwnerChanged(&dbus.Signal{Name: "org.example.Other", Body: []any{"a", "b", "c"}})
	assert.False(t, ok)
}
