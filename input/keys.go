package input

// DOM key codes the host treats specially.
const (
	KeyBackspace = 8
	KeyTab       = 9
	KeyEnter     = 13
	KeyShift     = 16
	KeyCtrl      = 17
	KeyAlt       = 18
	KeyEscape    = 27
	KeySpace     = 32
	KeyPageUp    = 33
	KeyPageDown  = 34
	KeyEnd       = 35
	KeyHome      = 36
	KeyLeft      = 37
	KeyUp        = 38
	KeyRight     = 39
	KeyDown      = 40
	KeyDelete    = 46
	KeyC         = 67
	KeyX         = 88
	KeyF1        = 112
)

// KeyEvent is a raw key event. Time is in seconds.
type KeyEvent struct {
	KeyCode   uint32
	CharCode  uint32
	IsRepeat  bool
	Time      float64
	Modifiers Modifiers
}

// IsCopyOrCut reports a ctrl/meta + C or X chord. The module is asked for the
// text to copy before the key itself is delivered.
func (k KeyEvent) IsCopyOrCut() bool {
	if k.KeyCode != KeyC && k.KeyCode != KeyX {
		return false
	}
	return k.Modifiers&(ModCtrl|ModMeta) != 0
}

// IsNavigation reports page, home/end and arrow keys, which reset the text area.
func (k KeyEvent) IsNavigation() bool {
	return k.KeyCode >= KeyPageUp && k.KeyCode <= KeyDown
}
