package scene

import "github.com/shelepuginivan/traybox/internal/signal"

// Keyvals understood by menu items.
const (
	KeyReturn   = 0xff0d
	KeyKPEnter  = 0xff8d
	KeySpace    = 0x0020
	KeyISOEnter = 0xfe34
)

// MenuItem is an activatable row of a popup or of the tray box.
type MenuItem struct {
	node      *Node
	label     string
	iconName  string
	sensitive bool
	separator bool
	menu      *Popup
	activate  signal.Signal[Event]
}

// NewMenuItem returns a reactive item. An empty label yields a bare
// container item that only hosts children.
func NewMenuItem(label string) *MenuItem {
	item := &MenuItem{
		node:      NewNode("menu-item"),
		label:     label,
		sensitive: true,
	}

	item.node.AddStyleClass("popup-menu-item")
	item.node.OnEvent(item.handleEvent)

	return item
}

// NewImageMenuItem returns an item with a label and a themed icon.
func NewImageMenuItem(label, iconName string) *MenuItem {
	item := NewMenuItem(label)
	item.iconName = iconName

	return item
}

// NewSeparator returns a non-reactive separator item.
func NewSeparator(label string) *MenuItem {
	item := NewMenuItem(label)
	item.separator = true
	item.sensitive = false
	item.node.SetReactive(false)
	item.node.AddStyleClass("popup-separator-menu-item")

	return item
}

func (item *MenuItem) Node() *Node {
	if item == nil {
		return nil
	}

	return item.node
}

func (item *MenuItem) Label() string {
	return item.label
}

func (item *MenuItem) SetLabel(label string) {
	item.label = label
}

func (item *MenuItem) IconName() string {
	return item.iconName
}

func (item *MenuItem) SetIconName(name string) {
	item.iconName = name
}

func (item *MenuItem) Sensitive() bool {
	return item.sensitive
}

func (item *MenuItem) SetSensitive(sensitive bool) {
	item.sensitive = sensitive
}

func (item *MenuItem) IsSeparator() bool {
	return item.separator
}

// OnActivate registers fn to run when the item is activated.
func (item *MenuItem) OnActivate(fn func(Event)) func() {
	return item.activate.Subscribe(fn)
}

// Activate emits the activate notification and closes the owning popup when
// it closes on select.
func (item *MenuItem) Activate(ev Event) {
	if !item.sensitive || item.node.IsDestroyed() {
		return
	}

	item.activate.Emit(ev)

	if item.menu != nil && item.menu.closeOnSelect {
		item.menu.Close(AnimationFull)
	}
}

func (item *MenuItem) Destroy() {
	item.node.Destroy()
	item.activate.Clear()
}

func (item *MenuItem) handleEvent(ev Event) Propagation {
	switch ev.Type {
	case ButtonRelease:
		item.Activate(ev)
		return EventStop
	case KeyPress:
		switch ev.Keyval {
		case KeyReturn, KeyKPEnter, KeySpace, KeyISOEnter:
			item.Activate(ev)
			return EventStop
		}
	}

	return EventPropagate
}
