package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/wippyai/wasm-bridge/bridge"
	"github.com/wippyai/wasm-bridge/envelope"
	"github.com/wippyai/wasm-bridge/errors"
	"github.com/wippyai/wasm-bridge/input"
)

// Terminal cells are reported to the module as pixels of this size.
const (
	cellWidth  = 8
	cellHeight = 16
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type keyMap struct {
	Quit  key.Binding
	Stats key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+q"),
			key.WithHelp("ctrl+q", "quit"),
		),
		Stats: key.NewBinding(
			key.WithKeys("f12"),
			key.WithHelp("f12", "toggle stats"),
		),
	}
}

// Messages from the session loop to the UI.
type (
	readyMsg  struct{}
	doneMsg   struct{ err error }
	titleMsg  string
	cursorMsg input.Cursor
	screenMsg bool
	statsMsg  struct {
		timers  int
		sockets int
		signals int
	}
	failedMsg struct{ err error }
	statsTick time.Time
)

// termHost presents the module in the terminal. Requests arrive on the
// session loop and are forwarded to the UI program.
type termHost struct {
	location envelope.HostInfo

	mu     sync.Mutex
	window envelope.WindowInfo
	send   func(tea.Msg)
}

func newTermHost(location envelope.HostInfo) *termHost {
	cols, rows, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		cols, rows = 80, 24
	}
	return &termHost{location: location, window: windowFor(cols, rows, false)}
}

func windowFor(cols, rows int, fullScreen bool) envelope.WindowInfo {
	return envelope.WindowInfo{
		InnerWidth:    float64(cols * cellWidth),
		InnerHeight:   float64(rows * cellHeight),
		DPIFactor:     1,
		IsFullscreen:  fullScreen,
		CanFullscreen: true,
	}
}

func (h *termHost) notify(msg tea.Msg) {
	h.mu.Lock()
	send := h.send
	h.mu.Unlock()
	if send != nil {
		send(msg)
	}
}

func (h *termHost) setWindow(w envelope.WindowInfo) {
	h.mu.Lock()
	h.window = w
	h.mu.Unlock()
}

func (h *termHost) Info() envelope.HostInfo { return h.location }

func (h *termHost) Window() envelope.WindowInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.window
}

// SetFullScreen maps to the alternate screen.
func (h *termHost) SetFullScreen(on bool) error {
	h.mu.Lock()
	h.window.IsFullscreen = on
	h.mu.Unlock()
	h.notify(screenMsg(on))
	return nil
}

func (h *termHost) SetCursor(c input.Cursor) error {
	h.notify(cursorMsg(c))
	return nil
}

func (h *termHost) SetTitle(title string) error {
	h.notify(titleMsg(title))
	return nil
}

func (h *termHost) ShowTextIME(x, y float64) error {
	return errors.Unimplemented("text IME")
}

func (h *termHost) HideTextIME() error {
	return errors.Unimplemented("text IME")
}

// systemClipboard is the OS clipboard.
type systemClipboard struct{}

func (systemClipboard) ReadAll() (string, error)   { return clipboard.ReadAll() }
func (systemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

type interactiveModel struct {
	s     *bridge.Session
	host  *termHost
	keys  keyMap
	start time.Time

	pressed    uint32
	hasPressed bool

	ready      bool
	title      string
	cursor     input.Cursor
	fullScreen bool
	showStats  bool
	stats      statsMsg
	cols, rows int
	lastErr    error
	err        error
}

func newInteractiveModel(s *bridge.Session, host *termHost) *interactiveModel {
	return &interactiveModel{
		s:      s,
		host:   host,
		keys:   defaultKeyMap(),
		start:  time.Now(),
		cursor: input.CursorDefault,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return tickStats()
}

func tickStats() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return statsTick(t) })
}

// post runs fn on the session loop and reports its failure to the UI.
func (m *interactiveModel) post(fn func() error) {
	m.s.Loop().Post(func() {
		if err := fn(); err != nil {
			m.host.notify(failedMsg{err: err})
		}
	})
}

func (m *interactiveModel) now() float64 {
	return time.Since(m.start).Seconds()
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Stats):
			m.showStats = !m.showStats
			return m, nil
		}
		m.handleKey(msg)

	case tea.MouseMsg:
		m.handleMouse(msg)

	case tea.WindowSizeMsg:
		m.cols, m.rows = msg.Width, msg.Height
		w := windowFor(msg.Width, msg.Height, m.fullScreen)
		m.host.setWindow(w)
		m.post(func() error { return m.s.Resize(w) })

	case tea.FocusMsg:
		m.post(func() error { return m.s.Focus(true) })

	case tea.BlurMsg:
		m.post(func() error { return m.s.Focus(false) })

	case readyMsg:
		m.ready = true

	case doneMsg:
		m.err = msg.err
		return m, tea.Quit

	case failedMsg:
		m.lastErr = msg.err

	case titleMsg:
		m.title = string(msg)
		return m, tea.SetWindowTitle(m.title)

	case cursorMsg:
		m.cursor = input.Cursor(msg)

	case screenMsg:
		m.fullScreen = bool(msg)
		if m.fullScreen {
			return m, tea.EnterAltScreen
		}
		return m, tea.ExitAltScreen

	case statsMsg:
		m.stats = msg

	case statsTick:
		m.s.Loop().Post(func() {
			m.host.notify(statsMsg{
				timers:  m.s.Timers().Len(),
				sockets: m.s.Sockets().Len(),
				signals: m.s.PendingSignals(),
			})
		})
		return m, tickStats()
	}
	return m, nil
}

func mouseModifiers(e tea.MouseMsg) input.Modifiers {
	return input.PackModifiers(e.Shift, e.Ctrl, e.Alt, false)
}

// mouseButton converts a terminal button to the DOM numbering.
func mouseButton(b tea.MouseButton) uint32 {
	switch b {
	case tea.MouseButtonMiddle:
		return 1
	case tea.MouseButtonRight:
		return 2
	default:
		return 0
	}
}

func (m *interactiveModel) handleMouse(msg tea.MouseMsg) {
	e := input.MouseEvent{
		X:         (float64(msg.X) + 0.5) * cellWidth,
		Y:         (float64(msg.Y) + 0.5) * cellHeight,
		Time:      m.now(),
		Modifiers: mouseModifiers(msg),
	}

	if tea.MouseEvent(msg).IsWheel() {
		w := input.WheelEvent{MouseEvent: e, DeltaMode: input.DeltaLine}
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			w.DeltaY = -3
		case tea.MouseButtonWheelDown:
			w.DeltaY = 3
		case tea.MouseButtonWheelLeft:
			w.DeltaX = -3
		case tea.MouseButtonWheelRight:
			w.DeltaX = 3
		}
		m.post(func() error { return m.s.Wheel(w) })
		return
	}

	switch msg.Action {
	case tea.MouseActionPress:
		e.Button = mouseButton(msg.Button)
		m.pressed, m.hasPressed = e.Button, true
		m.post(func() error { return m.s.MouseDown(e) })
	case tea.MouseActionRelease:
		// Terminals often report releases without the button.
		if m.hasPressed {
			e.Button = m.pressed
		}
		m.hasPressed = false
		m.post(func() error { return m.s.MouseUp(e) })
	default:
		m.post(func() error { return m.s.MouseMove(e) })
	}
}

// keyCodes maps terminal keys to DOM key codes.
var keyCodes = map[tea.KeyType]uint32{
	tea.KeyEnter:     input.KeyEnter,
	tea.KeyBackspace: input.KeyBackspace,
	tea.KeyTab:       input.KeyTab,
	tea.KeyEsc:       input.KeyEscape,
	tea.KeySpace:     input.KeySpace,
	tea.KeyPgUp:      input.KeyPageUp,
	tea.KeyPgDown:    input.KeyPageDown,
	tea.KeyEnd:       input.KeyEnd,
	tea.KeyHome:      input.KeyHome,
	tea.KeyLeft:      input.KeyLeft,
	tea.KeyUp:        input.KeyUp,
	tea.KeyRight:     input.KeyRight,
	tea.KeyDown:      input.KeyDown,
	tea.KeyDelete:    input.KeyDelete,
}

func (m *interactiveModel) handleKey(msg tea.KeyMsg) {
	at := m.now()
	var mods input.Modifiers
	if msg.Alt {
		mods |= input.ModAlt
	}

	if msg.Paste {
		text := string(msg.Runes)
		m.post(func() error {
			m.s.Paste()
			return m.s.TextAreaInput(m.s.TextArea() + text)
		})
		return
	}

	switch msg.Type {
	case tea.KeyCtrlC:
		m.press(input.KeyEvent{KeyCode: input.KeyC, Time: at, Modifiers: mods | input.ModCtrl})
		return
	case tea.KeyCtrlX:
		m.press(input.KeyEvent{KeyCode: input.KeyX, Time: at, Modifiers: mods | input.ModCtrl})
		return
	case tea.KeyRunes:
		for _, r := range msg.Runes {
			m.press(input.KeyEvent{KeyCode: runeKeyCode(r), CharCode: uint32(r), Time: at, Modifiers: mods})
		}
		text := string(msg.Runes)
		m.post(func() error { return m.s.TextAreaInput(m.s.TextArea() + text) })
		return
	}

	code, ok := keyCodes[msg.Type]
	if !ok {
		return
	}
	m.press(input.KeyEvent{KeyCode: code, Time: at, Modifiers: mods})
	if msg.Type == tea.KeySpace {
		m.post(func() error { return m.s.TextAreaInput(m.s.TextArea() + " ") })
	}
}

// press sends a key down and up; terminals report no releases.
func (m *interactiveModel) press(e input.KeyEvent) {
	m.post(func() error {
		if err := m.s.KeyDown(e); err != nil {
			return err
		}
		return m.s.KeyUp(e)
	})
}

func runeKeyCode(r rune) uint32 {
	u := unicode.ToUpper(r)
	if u < 128 {
		return uint32(u)
	}
	return 0
}

func (m *interactiveModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n", m.err))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("WASM Bridge"))
	if m.title != "" {
		b.WriteString(" ")
		b.WriteString(m.title)
	}
	b.WriteString("\n\n")

	if !m.ready {
		b.WriteString("Starting module...\n")
	} else {
		w := m.host.Window()
		b.WriteString(field("window", fmt.Sprintf("%.0fx%.0f", w.InnerWidth, w.InnerHeight)))
		b.WriteString(field("cursor", m.cursor.String()))
		b.WriteString(field("full screen", fmt.Sprintf("%t", m.fullScreen)))
		if m.showStats {
			b.WriteString(field("timers", fmt.Sprintf("%d", m.stats.timers)))
			b.WriteString(field("sockets", fmt.Sprintf("%d", m.stats.sockets)))
			b.WriteString(field("pending signals", fmt.Sprintf("%d", m.stats.signals)))
		}
	}
	if m.lastErr != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.lastErr.Error()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	var help []string
	for _, k := range []key.Binding{m.keys.Stats, m.keys.Quit} {
		help = append(help, k.Help().Key+" "+k.Help().Desc)
	}
	b.WriteString(helpStyle.Render(strings.Join(help, " • ")))
	return b.String()
}

func field(label, value string) string {
	return labelStyle.Render(label+": ") + valueStyle.Render(value) + "\n"
}

// runInteractive drives the session from the terminal until the user quits
// or the session ends.
func runInteractive(ctx context.Context, inst bridge.Module, location envelope.HostInfo, opts []bridge.Option) error {
	host := newTermHost(location)
	s := bridge.New(inst, append(opts,
		bridge.WithHost(host),
		bridge.WithClipboard(systemClipboard{}))...)

	model := newInteractiveModel(s, host)
	p := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithMouseAllMotion(),
		tea.WithReportFocus())
	host.mu.Lock()
	host.send = p.Send
	host.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	runDone := make(chan error, 1)
	go func() {
		err := s.Run(runCtx)
		runDone <- err
		if err != nil && err != context.Canceled {
			p.Send(doneMsg{err: err})
		}
	}()
	go func() {
		select {
		case <-s.Ready():
			p.Send(readyMsg{})
		case <-runCtx.Done():
		}
	}()

	_, uiErr := p.Run()
	cancel()
	runErr := <-runDone
	closeErr := closeSession(s)

	switch {
	case model.err != nil:
		return model.err
	case uiErr != nil && !stderrors.Is(uiErr, tea.ErrProgramKilled):
		return uiErr
	case runErr != nil && runErr != context.Canceled:
		return runErr
	}
	return closeErr
}
