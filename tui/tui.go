package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nathoo/mobcore/cli"
	"github.com/nathoo/mobcore/engine"
)

// rawLine stores an unstyled output line with its classification, so it
// can be re-wrapped and re-styled when the terminal is resized.
type rawLine struct {
	text     string
	kind     lineKind
	isInput  bool // echoed operator input
	isSystem bool // meta-command output
}

// keyMap holds the inspector's bindings.
type keyMap struct {
	Quit     key.Binding
	Submit   key.Binding
	Run      key.Binding
	Step     key.Binding
	Prev     key.Binding
	Next     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		Submit:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "run command")),
		Run:      key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "run/pause")),
		Step:     key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "step one frame")),
		Prev:     key.NewBinding(key.WithKeys("up"), key.WithHelp("up", "older command")),
		Next:     key.NewBinding(key.WithKeys("down"), key.WithHelp("down", "newer command")),
		PageUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
		PageDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdown", "scroll down")),
	}
}

// Model is the Bubble Tea model for the mobcore inspector.
type Model struct {
	console *cli.Console
	keys    keyMap

	viewport viewport.Model
	input    textinput.Model
	history  *History

	rawLines []rawLine // accumulated log lines (unstyled, for re-wrapping)

	width    int
	height   int
	ready    bool
	running  bool
	tickGen  int // identifies the live auto-tick chain
	quitting bool
	lastCmd  string
}

// outputMsg carries command output into the Update loop.
type outputMsg struct {
	input    string
	lines    []string
	isSystem bool
}

// frameMsg asks for one auto-tick frame. Frames from a stopped chain are
// dropped.
type frameMsg struct {
	gen int
}

// New creates an inspector wired to the given engine.
func New(eng *engine.Engine) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 256
	ti.PromptStyle = styleInputPrompt

	return Model{
		console: cli.NewConsole(eng),
		keys:    defaultKeyMap(),
		input:   ti,
		history: NewHistory(100),
	}
}

// Run starts the Bubble Tea program.
func Run(eng *engine.Engine, trace bool) error {
	m := New(eng)
	m.console.Trace = trace
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}

// Init returns the initial command that prints the banner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, func() tea.Msg {
		lines := []string{
			m.console.Engine.Defs.Title,
			fmt.Sprintf("%s run/pause, %s step, /help for commands.",
				m.keys.Run.Help().Key, m.keys.Step.Help().Key),
		}
		return outputMsg{lines: lines}
	})
}

// Update handles key presses, window resizes, output and frames.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(m.width, 1)
			m.viewport.KeyMap = viewportKeyMap()
			m.ready = true
		}
		m.layout()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Submit):
			return m.handleEnter()

		case key.Matches(msg, m.keys.Run):
			return m.toggleRun()

		case key.Matches(msg, m.keys.Step):
			m.running = false
			m.tickGen++
			m = m.appendOutput(outputMsg{lines: m.console.Tick(1)})
			return m, nil

		case key.Matches(msg, m.keys.Prev):
			if prev, ok := m.history.Prev(); ok {
				m.input.SetValue(prev)
				m.input.CursorEnd()
			}
			return m, nil

		case key.Matches(msg, m.keys.Next):
			if next, ok := m.history.Next(); ok {
				m.input.SetValue(next)
				m.input.CursorEnd()
			} else {
				m.input.SetValue("")
				m.history.ResetCursor()
			}
			return m, nil

		case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
			var vpCmd tea.Cmd
			m.viewport, vpCmd = m.viewport.Update(msg)
			return m, vpCmd
		}

	case frameMsg:
		if !m.running || msg.gen != m.tickGen {
			return m, nil
		}
		m = m.stepFrame()
		return m, m.nextFrame()

	case outputMsg:
		m = m.appendOutput(msg)
	}

	var inputCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	cmds = append(cmds, inputCmd)

	return m, tea.Batch(cmds...)
}

// toggleRun starts or stops the auto-tick chain.
func (m Model) toggleRun() (tea.Model, tea.Cmd) {
	m.running = !m.running
	m.tickGen++
	if !m.running {
		return m, nil
	}
	return m, m.nextFrame()
}

// nextFrame schedules one frame at the configured tick rate.
func (m Model) nextFrame() tea.Cmd {
	gen := m.tickGen
	interval := time.Duration(m.console.Engine.Config.DeltaT() * float64(time.Second))
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return frameMsg{gen: gen}
	})
}

// stepFrame runs one frame while auto-ticking. Only traced events and
// deletions reach the log.
func (m Model) stepFrame() Model {
	e := m.console.Engine
	res := e.Tick(e.Config.DeltaT())

	var lines []string
	if m.console.Trace {
		lines = append(lines, cli.FormatTrace(res)...)
	}
	for _, id := range res.Deleted {
		lines = append(lines, fmt.Sprintf("Frame %d: #%d deleted", res.Frame, id))
	}
	if len(lines) == 0 {
		m.layout()
		return m
	}
	return m.appendLines(lines, false)
}

// handleEnter processes the submitted input line.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")

	if input == "" {
		return m, nil
	}

	m.history.Push(input)
	m.history.ResetCursor()

	lower := strings.ToLower(input)
	if lower == "again" || lower == "g" {
		if m.lastCmd == "" {
			m = m.appendOutput(outputMsg{
				input: input, lines: []string{"[Nothing to repeat.]"}, isSystem: true,
			})
			return m, nil
		}
		input = m.lastCmd
	} else if !strings.HasPrefix(input, "/") {
		m.lastCmd = input
	}

	out, quit := m.console.Exec(input)
	m = m.appendOutput(outputMsg{input: input, lines: out, isSystem: strings.HasPrefix(input, "/")})
	if quit {
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// appendOutput adds a command's lines to the log followed by a separator.
func (m Model) appendOutput(msg outputMsg) Model {
	if msg.input != "" {
		m.rawLines = append(m.rawLines, rawLine{text: "> " + msg.input, isInput: true})
	}
	m = m.appendLines(msg.lines, msg.isSystem)
	m.rawLines = append(m.rawLines, rawLine{})
	m.refreshViewport()
	return m
}

func (m Model) appendLines(lines []string, isSystem bool) Model {
	for _, line := range lines {
		rl := rawLine{text: line, isSystem: isSystem}
		rl.kind = classifyLine(line)
		m.rawLines = append(m.rawLines, rl)
	}
	m.layout()
	return m
}

// layout sizes the log to whatever the mob table leaves over.
func (m *Model) layout() {
	if !m.ready {
		return
	}
	vpHeight := m.height - m.mobTableHeight() - 2 // status bar + input line
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport.Width = m.width
	m.viewport.Height = vpHeight
	m.refreshViewport()
}

// refreshViewport re-wraps and re-styles all raw lines at the current width
// and updates the viewport content.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}

	width := m.width
	if width < 10 {
		width = 10
	}

	var styled []string
	for _, rl := range m.rawLines {
		if rl.text == "" {
			styled = append(styled, "")
			continue
		}
		wrapped := wordWrap(rl.text, width)
		switch {
		case rl.isInput:
			styled = append(styled, styleOperatorInput.Render(wrapped))
		case rl.isSystem && rl.kind == kindText:
			styled = append(styled, styleSystem.Render(wrapped))
		default:
			styled = append(styled, renderLineKind(wrapped, rl.kind))
		}
	}

	m.viewport.SetContent(strings.Join(styled, "\n"))
	m.viewport.GotoBottom()
}

// wordWrap wraps text to fit within the given width, breaking at word
// boundaries.
func wordWrap(text string, width int) string {
	if width <= 0 || len(text) <= width {
		return text
	}

	var result strings.Builder
	lineLen := 0
	for i, word := range strings.Fields(text) {
		switch {
		case i == 0:
			lineLen = len(word)
		case lineLen+1+len(word) > width:
			result.WriteString("\n")
			lineLen = len(word)
		default:
			result.WriteString(" ")
			lineLen += 1 + len(word)
		}
		result.WriteString(word)
	}
	return result.String()
}

// View renders the mob table, the log, the status bar and the input line.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	return m.renderMobTable(m.mobTableHeight()) + "\n" +
		m.viewport.View() + "\n" +
		m.renderStatusBar() + "\n" +
		m.input.View()
}

// viewportKeyMap returns a viewport keymap with Up/Down disabled; those
// recall command history.
func viewportKeyMap() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		Up:           key.NewBinding(key.WithDisabled()),
		Down:         key.NewBinding(key.WithDisabled()),
	}
}
