package xembed

import (
	"fmt"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

const (
	systemTrayRequestDock = 0

	xembedEmbeddedNotify = 0
	xembedVersion        = 0
)

type atoms struct {
	traySelection xproto.Atom
	trayOpcode    xproto.Atom
	manager       xproto.Atom
	wmPID         xproto.Atom
	xembed        xproto.Atom
}

// SelectionName returns the system tray selection of screen.
func SelectionName(screen int) string {
	return fmt.Sprintf("_NET_SYSTEM_TRAY_S%d", screen)
}

func internAtoms(conn *xgb.Conn, screen int) (atoms, error) {
	names := []string{
		SelectionName(screen),
		"_NET_SYSTEM_TRAY_OPCODE",
		"MANAGER",
		"_NET_WM_PID",
		"_XEMBED",
	}

	cookies := make([]xproto.InternAtomCookie, len(names))
	for i, name := range names {
		cookies[i] = xproto.InternAtom(conn, false, uint16(len(name)), name)
	}

	ids := make([]xproto.Atom, len(names))
	for i, cookie := range cookies {
		reply, err := cookie.Reply()
		if err != nil {
			return atoms{}, fmt.Errorf("intern atom %s: %w", names[i], err)
		}

		ids[i] = reply.Atom
	}

	return atoms{
		traySelection: ids[0],
		trayOpcode:    ids[1],
		manager:       ids[2],
		wmPID:         ids[3],
		xembed:        ids[4],
	}, nil
}

// dockRequest extracts the window of a SYSTEM_TRAY_REQUEST_DOCK message.
func dockRequest(ev xproto.ClientMessageEvent, opcode xproto.Atom) (xproto.Window, bool) {
	if ev.Type != opcode || ev.Format != 32 {
		return 0, false
	}

	data := ev.Data.Data32
	if len(data) < 3 || data[1] != systemTrayRequestDock || data[2] == 0 {
		return 0, false
	}

	return xproto.Window(data[2]), true
}

// parseWMClass returns the class part of a WM_CLASS value, falling back to
// the instance part.
func parseWMClass(value []byte) string {
	var parts []string

	start := 0
	for i, b := range value {
		if b == 0 {
			parts = append(parts, string(value[start:i]))
			start = i + 1
		}
	}

	if start < len(value) {
		parts = append(parts, string(value[start:]))
	}

	if len(parts) > 1 && parts[1] != "" {
		return parts[1]
	}

	if len(parts) > 0 {
		return parts[0]
	}

	return ""
}

// parseCardinal returns the first CARDINAL of a 32-bit property value.
func parseCardinal(reply *xproto.GetPropertyReply) uint32 {
	if reply == nil || reply.Format != 32 || len(reply.Value) < 4 {
		return 0
	}

	return xgb.Get32(reply.Value)
}

func clientMessage(window xproto.Window, typ xproto.Atom, data ...uint32) xproto.ClientMessageEvent {
	payload := make([]uint32, 5)
	copy(payload, data)

	return xproto.ClientMessageEvent{
		Format: 32,
		Window: window,
		Type:   typ,
		Data:   xproto.ClientMessageDataUnionData32New(payload),
	}
}
