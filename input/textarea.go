package input

// TextInput is the text produced by one input event of the hidden text area.
type TextInput struct {
	Input       string
	WasPaste    bool
	ReplaceLast bool
}

// TextArea tracks the hidden text area that receives typed text. The area
// keeps at most one character so an IME recomposing the last character can be
// told apart from fresh input.
type TextArea struct {
	value    []rune
	lastLen  int
	wasPaste bool
}

// Value returns the current contents.
func (t *TextArea) Value() string {
	return string(t.value)
}

// Paste marks the next input as a paste.
func (t *TextArea) Paste() {
	t.wasPaste = true
}

// Clear empties the area. Copy, cut and caret navigation do this.
func (t *TextArea) Clear() {
	t.value = t.value[:0]
	t.lastLen = 0
}

// SetValue replaces the contents without producing input, as done when the
// module's copy response is placed in the area for selection.
func (t *TextArea) SetValue(s string) {
	t.value = []rune(s)
	t.lastLen = len(t.value)
}

// Input processes the area's contents after an input event. changed reports
// whether the event needs a pump; emit reports whether in should be sent.
func (t *TextArea) Input(value string) (in TextInput, emit, changed bool) {
	t.value = []rune(value)
	defer func() { t.lastLen = len(t.value) }()

	if len(t.value) == 0 {
		return TextInput{}, false, false
	}
	if t.wasPaste {
		t.wasPaste = false
		start := min(t.lastLen, len(t.value))
		in = TextInput{Input: string(t.value[start:]), WasPaste: true}
		t.value = t.value[:0]
		return in, true, true
	}

	text := t.value
	replaceLast := false
	if len(t.value) >= 2 {
		t.value = []rune{t.value[1]}
		text = t.value
	} else if t.lastLen == len(t.value) {
		replaceLast = true
	}
	s := string(text)
	if !replaceLast && s == "\n" {
		return TextInput{}, false, true
	}
	return TextInput{Input: s, ReplaceLast: replaceLast}, true, true
}
