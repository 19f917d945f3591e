package xembed

import (
	"testing"

	"github.com/jezek/xgb/xproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelepuginivan/traybox/scene"
)

func TestSelectionName(t *testing.T) {
	assert.Equal(t, "_NET_SYSTEM_TRAY_S0", SelectionName(0))
	assert.Equal(t, "_NET_SYSTEM_TRAY_S2", SelectionName(2))
}

func TestDockRequest(t *testing.T) {
	const opcode = xproto.Atom(300)

	tests := []struct {
		name   string
		ev     xproto.ClientMessageEvent
		window xproto.Window
		ok     bool
	}{
		{
			name:   "dock",
			ev:     clientMessage(1, opcode, 0, systemTrayRequestDock, 0x2a00007),
			window: 0x2a00007,
			ok:     true,
		},
		{
			name: "other opcode",
			ev:   clientMessage(1, opcode, 0, 1, 0x2a00007),
		},
		{
			name: "other type",
			ev:   clientMessage(1, opcode+1, 0, systemTrayRequestDock, 0x2a00007),
		},
		{
			name: "no window",
			ev:   clientMessage(1, opcode, 0, systemTrayRequestDock, 0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			window, ok := dockRequest(tt.ev, opcode)

			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.window, window)
		})
	}
}

func TestParseWMClass(t *testing.T) {
	assert.Equal(t, "Pidgin", parseWMClass([]byte("pidgin\x00Pidgin\x00")))
	assert.Equal(t, "Pidgin", parseWMClass([]byte("pidgin\x00Pidgin")))
	assert.Equal(t, "pidgin", parseWMClass([]byte("pidgin\x00\x00")))
	assert.Equal(t, "pidgin", parseWMClass([]byte("pidgin")))
	assert.Empty(t, parseWMClass(nil))
}

func TestParseCardinal(t *testing.T) {
	assert.Equal(t, uint32(4242), parseCardinal(&xproto.GetPropertyReply{
		Format: 32,
		Value:  []byte{0x92, 0x10, 0, 0},
	}))

	assert.Zero(t, parseCardinal(&xproto.GetPropertyReply{Format: 8, Value: []byte{1, 2, 3, 4}}))
	assert.Zero(t, parseCardinal(&xproto.GetPropertyReply{Format: 32}))
	assert.Zero(t, parseCardinal(nil))
}

func TestButtonEvents(t *testing.T) {
	ev := scene.Event{Type: scene.ButtonRelease, Button: scene.ButtonSecondary, Time: 99}

	press, release := buttonEvents(1, 7, ev, 24, 20)

	assert.Equal(t, xproto.Button(3), press.Detail)
	assert.Equal(t, xproto.Timestamp(99), press.Time)
	assert.Equal(t, xproto.Window(7), press.Event)
	assert.Equal(t, xproto.Window(1), press.Root)
	assert.Equal(t, int16(12), press.EventX)
	assert.Equal(t, int16(10), press.EventY)
	assert.True(t, press.SameScreen)

	assert.Equal(t, press.Detail, release.Detail)
	assert.Equal(t, uint16(xproto.KeyButMaskButton3), release.State)
}

func TestButtonEventsDefaultToPrimary(t *testing.T) {
	press, release := buttonEvents(1, 7, scene.Event{}, 16, 16)

	assert.Equal(t, xproto.Button(1), press.Detail)
	assert.Equal(t, uint16(xproto.KeyButMaskButton1), release.State)
}

func TestClickEvents(t *testing.T) {
	release := clickEvents(1, 7, scene.Event{Type: scene.ButtonRelease, Button: scene.ButtonPrimary}, 16, 16)
	require.Len(t, release, 2)
	assert.Equal(t, uint32(xproto.EventMaskButtonPress), release[0].mask)
	assert.IsType(t, xproto.ButtonPressEvent{}, release[0].event)
	assert.Equal(t, uint32(xproto.EventMaskButtonRelease), release[1].mask)
	assert.IsType(t, xproto.ButtonReleaseEvent{}, release[1].event)

	assert.Empty(t, clickEvents(1, 7, scene.Event{Type: scene.ButtonPress, Button: scene.ButtonPrimary}, 16, 16))
	assert.Empty(t, clickEvents(1, 7, scene.Event{Type: scene.Enter}, 16, 16))
}

func TestClickEventsForwardKeys(t *testing.T) {
	press := clickEvents(1, 7, scene.Event{Type: scene.KeyPress, Keyval: 0xff0d, Keycode: 36, Time: 5}, 16, 16)
	require.Len(t, press, 1)
	assert.Equal(t, uint32(xproto.EventMaskKeyPress), press[0].mask)

	key, ok := press[0].event.(xproto.KeyPressEvent)
	require.True(t, ok)
	assert.Equal(t, xproto.Keycode(36), key.Detail)
	assert.Equal(t, xproto.Timestamp(5), key.Time)
	assert.Equal(t, xproto.Window(7), key.Event)

	release := clickEvents(1, 7, scene.Event{Type: scene.KeyRelease, Keycode: 36}, 16, 16)
	require.Len(t, release, 1)
	assert.Equal(t, uint32(xproto.EventMaskKeyRelease), release[0].mask)
	assert.IsType(t, xproto.KeyReleaseEvent{}, release[0].event)

	assert.Empty(t, clickEvents(1, 7, scene.Event{Type: scene.KeyPress, Keyval: 0xff0d}, 16, 16), "no keycode")
}
