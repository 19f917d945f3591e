package scene

// EventType is the kind of an input [Event].
type EventType int

const (
	ButtonPress EventType = iota
	ButtonRelease
	KeyPress
	KeyRelease
	TouchBegin
	TouchUpdate
	TouchEnd
	TouchCancel
	Scroll
	Enter
	Leave
)

var eventTypeNames = [...]string{
	ButtonPress:   "button-press",
	ButtonRelease: "button-release",
	KeyPress:      "key-press",
	KeyRelease:    "key-release",
	TouchBegin:    "touch-begin",
	TouchUpdate:   "touch-update",
	TouchEnd:      "touch-end",
	TouchCancel:   "touch-cancel",
	Scroll:        "scroll",
	Enter:         "enter",
	Leave:         "leave",
}

func (t EventType) String() string {
	if int(t) < len(eventTypeNames) {
		return eventTypeNames[t]
	}

	return "unknown"
}

// Pointer buttons.
const (
	ButtonPrimary   = 1
	ButtonMiddle    = 2
	ButtonSecondary = 3
)

// ScrollDirection of a [Scroll] event.
type ScrollDirection int

const (
	ScrollUp ScrollDirection = iota
	ScrollDown
	ScrollLeft
	ScrollRight
	ScrollSmooth
)

// Event is an input event delivered by the presentation shell.
type Event struct {
	Type   EventType
	Time   uint32
	X, Y   float64
	Button int
	State  uint32
	Flags  uint32

	// Slot identifies the touch point of touch events.
	Slot int

	// Direction and delta of scroll events. DX and DY are only meaningful
	// for ScrollSmooth.
	Direction ScrollDirection
	DX, DY    float64

	// Keyval and hardware Keycode of key events.
	Keyval  uint32
	Keycode uint32

	Source *Node
}

// Coords returns the event position.
func (ev Event) Coords() (x, y float64) {
	return ev.X, ev.Y
}

// SimulatedButton builds a primary button-release event carrying the time,
// flags, state, source and coordinates of a touch event.
func SimulatedButton(touch Event) Event {
	return Event{
		Type:   ButtonRelease,
		Button: ButtonPrimary,
		Time:   touch.Time,
		Flags:  touch.Flags,
		State:  touch.State,
		Source: touch.Source,
		X:      touch.X,
		Y:      touch.Y,
	}
}
