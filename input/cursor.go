package input

import "strconv"

// Cursor is a pointer shape the module may request.
type Cursor uint32

const (
	CursorHidden Cursor = iota
	CursorDefault
	CursorCrosshair
	CursorHand
	CursorArrow
	CursorMove
	CursorText
	CursorWait
	CursorHelp
	CursorNotAllowed
	CursorNResize
	CursorNeResize
	CursorEResize
	CursorSeResize
	CursorSResize
	CursorSwResize
	CursorWResize
	CursorNwResize
	CursorNsResize
	CursorNeswResize
	CursorEwResize
	CursorNwseResize
	CursorColResize
	CursorRowResize

	cursorCount
)

var cursorCSS = [cursorCount]string{
	"none",
	"default",
	"crosshair",
	"pointer",
	"default",
	"move",
	"text",
	"wait",
	"help",
	"not-allowed",
	"n-resize",
	"ne-resize",
	"e-resize",
	"se-resize",
	"s-resize",
	"sw-resize",
	"w-resize",
	"nw-resize",
	"ns-resize",
	"nesw-resize",
	"ew-resize",
	"nwse-resize",
	"col-resize",
	"row-resize",
}

// CursorFromWire validates a cursor index received from the module.
func CursorFromWire(v uint32) (Cursor, bool) {
	if v >= uint32(cursorCount) {
		return CursorDefault, false
	}
	return Cursor(v), true
}

// CSS returns the CSS cursor name.
func (c Cursor) CSS() string {
	if c < cursorCount {
		return cursorCSS[c]
	}
	return "default"
}

func (c Cursor) String() string {
	if c < cursorCount {
		return cursorCSS[c]
	}
	return "Cursor(" + strconv.FormatUint(uint64(c), 10) + ")"
}
