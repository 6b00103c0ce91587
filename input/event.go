package input

// Modifiers is the packed modifier-key state.
type Modifiers uint32

const (
	ModShift Modifiers = 1 << iota
	ModCtrl
	ModAlt
	ModMeta
)

// PackModifiers builds a Modifiers value from individual key states.
func PackModifiers(shift, ctrl, alt, meta bool) Modifiers {
	var m Modifiers
	if shift {
		m |= ModShift
	}
	if ctrl {
		m |= ModCtrl
	}
	if alt {
		m |= ModAlt
	}
	if meta {
		m |= ModMeta
	}
	return m
}

// Has reports whether every bit of o is set.
func (m Modifiers) Has(o Modifiers) bool {
	return m&o == o
}

// Finger is one pointer contact in the unified model. Mouse fingers use the
// button index as digit; touch fingers use an allocated digit.
type Finger struct {
	X         float64
	Y         float64
	Digit     uint32
	Time      float64
	Modifiers Modifiers
	IsTouch   bool
}

// EventKind is the kind of a normalized pointer event.
type EventKind uint8

const (
	FingerDown EventKind = iota
	FingerUp
	FingerMove
	FingerHover
	FingerOut
	FingerScroll
)

var kindNames = [...]string{"down", "up", "move", "hover", "out", "scroll"}

func (k EventKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Event is one normalized pointer event. ScrollX and ScrollY are only set for
// FingerScroll.
type Event struct {
	Kind    EventKind
	Finger  Finger
	ScrollX float64
	ScrollY float64
}

// MouseEvent is a raw mouse event in page coordinates. Time is in seconds.
type MouseEvent struct {
	X         float64
	Y         float64
	Button    uint32
	Time      float64
	Modifiers Modifiers
}

// TouchPoint is one changed contact of a touch event.
type TouchPoint struct {
	Identifier int64
	X          float64
	Y          float64
}

// TouchEvent is a raw touch event carrying only the contacts that changed.
type TouchEvent struct {
	Changed   []TouchPoint
	Time      float64
	Modifiers Modifiers
}

// DeltaMode is the unit of a wheel event's deltas.
type DeltaMode uint8

const (
	DeltaPixel DeltaMode = iota
	DeltaLine
	DeltaPage
)

// WheelEvent is a raw wheel event. WheelDeltaY is the legacy delta some
// engines still report; zero when absent.
type WheelEvent struct {
	MouseEvent
	DeltaX      float64
	DeltaY      float64
	WheelDeltaY float64
	DeltaMode   DeltaMode
}
