package traybox

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
)

func TestItemIdentifier(t *testing.T) {
	assert.Equal(t, ":1.4/StatusNotifierItem", itemIdentifier(":1.4", ":1.4"))
	assert.Equal(t, ":1.4/org/ayatana/NotificationItem/x", itemIdentifier("/org/ayatana/NotificationItem/x", dbus.Sender(":1.4")))
	assert.Equal(t, "org.kde.StatusNotifierItem-1-1/StatusNotifierItem", itemIdentifier("org.kde.StatusNotifierItem-1-1", ":1.9"))
	assert.Equal(t, ":1.4/Custom", itemIdentifier(":1.4/Custom", ":1.4"))
}

func TestItemOwnedBy(t *testing.T) {
	assert.True(t, itemOwnedBy(":1.1/StatusNotifierItem", ":1.1"))
	assert.False(t, itemOwnedBy(":1.10/StatusNotifierItem", ":1.1"), "prefix of another name")
	assert.False(t, itemOwnedBy(":1.1/StatusNotifierItem", ":1.10"))
}
