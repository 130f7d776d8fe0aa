package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nathoo/dicelab/cli"
	"github.com/nathoo/dicelab/engine"
	"github.com/nathoo/dicelab/engine/state"
)

// rawLine stores an unstyled output line with its classification,
// so we can re-wrap and re-style when the terminal is resized.
type rawLine struct {
	text     string
	kind     lineKind
	isInput  bool // true for echoed user input
	isSystem bool // true for system messages
}

// Options configures the TUI beyond the engine itself.
type Options struct {
	SaveDir string
	History engine.History // play history for /history; may be nil
}

// Model is the Bubble Tea model for the DiceLab TUI.
type Model struct {
	engine *engine.Engine
	defs   *state.Defs
	plays  engine.History

	viewport viewport.Model
	input    textinput.Model
	recall   *recall

	rawLines []rawLine // accumulated output lines (unstyled, for re-wrapping)

	width    int
	height   int
	ready    bool
	trace    bool
	quitting bool
	lastCmd  string
	saveDir  string
}

// outputMsg carries output from the engine into the Update loop.
type outputMsg struct {
	input    string   // echoed user input (empty for the header)
	lines    []string // output lines
	isSystem bool     // true for meta-command output
	failed   bool     // the command failed; its first line is an error
}

// New creates a TUI model wired to the given engine.
func New(eng *engine.Engine, defs *state.Defs, opts Options) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 256
	ti.PromptStyle = styleInputPrompt

	saveDir := opts.SaveDir
	if saveDir == "" {
		saveDir = "saves"
	}
	return Model{
		engine:  eng,
		defs:    defs,
		plays:   opts.History,
		input:   ti,
		recall:  newRecall(100),
		saveDir: saveDir,
	}
}

// Run starts the Bubble Tea program.
func Run(eng *engine.Engine, defs *state.Defs, opts Options) error {
	m := New(eng, defs, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}

// Init returns the initial command that prints the header.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.initialOutput())
}

func (m Model) initialOutput() tea.Cmd {
	return func() tea.Msg {
		lines := []string{
			cli.Header(m.defs),
			"",
			"Type help for commands, /help for system commands.",
		}
		return outputMsg{lines: lines}
	}
}

// Update handles messages (key presses, window resize, engine output).
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
	case tea.KeyMsg:
		if next, cmd, handled := m.handleKey(msg); handled {
			return next, cmd
		}
	case outputMsg:
		m = m.appendOutput(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// resize fits the viewport above the status bar and input line.
func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	vpHeight := max(height-2, 1)

	if m.ready {
		m.viewport.Width = width
		m.viewport.Height = vpHeight
	} else {
		m.viewport = viewport.New(width, vpHeight)
		m.viewport.KeyMap = viewportKeyMap()
		m.ready = true
	}
	m.refreshViewport()
}

// handleKey reacts to keys the text input does not own. The bool is false
// for ordinary typing, which falls through to the input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit, true

	case "enter":
		next, cmd := m.handleEnter()
		return next, cmd, true

	case "up":
		if line, ok := m.recall.older(m.input.Value()); ok {
			m.input.SetValue(line)
			m.input.CursorEnd()
		}
		return m, nil, true

	case "down":
		if line, ok := m.recall.newer(); ok {
			m.input.SetValue(line)
			m.input.CursorEnd()
		}
		return m, nil, true

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd, true
	}
	return m, nil, false
}

// handleEnter processes the submitted input line.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")

	if input == "" {
		return m, nil
	}

	m.recall.add(input)

	// Handle "again" / "g".
	lower := strings.ToLower(input)
	if lower == "again" || lower == "g" {
		if m.lastCmd == "" {
			m = m.appendOutput(outputMsg{
				input: input, lines: []string{"Nothing to repeat."}, isSystem: true,
			})
			return m, nil
		}
		input = m.lastCmd
	} else if !strings.HasPrefix(input, "/") {
		m.lastCmd = input
	}

	// Meta-commands.
	if strings.HasPrefix(input, "/") {
		output, quit := m.handleMeta(input)
		m = m.appendOutput(outputMsg{input: input, lines: output, isSystem: true})
		if quit {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	result := m.engine.Step(input)
	output := result.Output
	if m.trace {
		output = append(output, cli.TraceLines(result)...)
	}
	m = m.appendOutput(outputMsg{input: input, lines: output, failed: result.Err != nil})
	return m, nil
}

// appendOutput adds one command's lines to the transcript, followed by a
// blank separator.
func (m Model) appendOutput(msg outputMsg) Model {
	if msg.input != "" {
		m.rawLines = append(m.rawLines, rawLine{text: "> " + msg.input, isInput: true})
	}
	for i, line := range msg.lines {
		m.rawLines = append(m.rawLines, lineFor(msg, i, line))
	}
	m.rawLines = append(m.rawLines, rawLine{})

	m.refreshViewport()
	return m
}

// lineFor classifies line i of msg.
func lineFor(msg outputMsg, i int, line string) rawLine {
	switch {
	case msg.isSystem:
		return rawLine{text: line, isSystem: true}
	case msg.failed && i == 0:
		return rawLine{text: line, kind: kindError}
	default:
		return rawLine{text: line, kind: classifyLine(line)}
	}
}

// refreshViewport re-styles every raw line at the current width and
// scrolls to the newest output.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}

	width := max(m.width, 10)
	styled := make([]string, len(m.rawLines))
	for i, rl := range m.rawLines {
		styled[i] = rl.render(width)
	}

	m.viewport.SetContent(strings.Join(styled, "\n"))
	m.viewport.GotoBottom()
}

// render styles one transcript line. Tables keep their columns since
// wrapping would break the borders.
func (rl rawLine) render(width int) string {
	if rl.text == "" {
		return ""
	}
	text := rl.text
	if rl.kind != kindTable {
		text = wordWrap(text, width)
	}
	switch {
	case rl.isInput:
		return stylePlayerInput.Render(text)
	case rl.isSystem:
		return styledSystemMsg(text)
	default:
		return renderLineKind(text, rl.kind)
	}
}

// renderLineKind applies the style for a given lineKind.
func renderLineKind(line string, kind lineKind) string {
	switch kind {
	case kindHeadline:
		return styleHeadline.Render(line)
	case kindJackpot:
		return styleJackpot.Render(line)
	case kindTable:
		return styleTable.Render(line)
	case kindSystem:
		return styleSystem.Render(line)
	case kindError:
		return styleError.Render(line)
	case kindTrace:
		return styleTrace.Render(line)
	default:
		return styleText.Render(line)
	}
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
		wLen := len(word)
		switch {
		case i == 0:
			lineLen = wLen
		case lineLen+1+wLen > width:
			result.WriteString("\n")
			lineLen = wLen
		default:
			result.WriteString(" ")
			lineLen += 1 + wLen
		}
		result.WriteString(word)
	}

	return result.String()
}

// View renders the full TUI layout: viewport + status bar + input.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	return m.viewport.View() + "\n" + m.renderStatusBar() + "\n" + m.input.View()
}

// handleMeta dispatches meta-commands. Returns output lines and quit flag.
func (m *Model) handleMeta(input string) ([]string, bool) {
	parts := strings.Fields(input)
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/quit", "/exit":
		return []string{"Goodbye."}, true

	case "/save":
		return m.cmdSave(arg), false

	case "/load":
		return m.cmdLoad(arg), false

	case "/history":
		lines, err := cli.HistoryLines(m.engine, m.plays, arg)
		if err != nil {
			return []string{err.Error()}, false
		}
		return lines, false

	case "/help":
		return append(cli.HelpLines(), "",
			"Navigation: PgUp/PgDn to scroll, Up/Down for command history"), false

	case "/state":
		return cli.StateLines(m.engine.State), false

	case "/trace":
		m.trace = !m.trace
		if m.trace {
			return []string{"Trace output enabled."}, false
		}
		return []string{"Trace output disabled."}, false

	default:
		return []string{fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd)}, false
	}
}

func (m *Model) cmdSave(name string) []string {
	if err := cli.SaveTo(m.engine, m.saveDir, name); err != nil {
		return []string{fmt.Sprintf("Save failed: %v", err)}
	}
	if name == "" {
		name = "quicksave"
	}
	return []string{fmt.Sprintf("Simulation saved to %s.", name)}
}

func (m *Model) cmdLoad(name string) []string {
	sd, err := cli.LoadFrom(m.engine, m.saveDir, name)
	if err != nil {
		return []string{fmt.Sprintf("Load failed: %v", err)}
	}
	if name == "" {
		name = "quicksave"
	}
	output := []string{fmt.Sprintf("Simulation loaded from %s (play %d).", name, sd.Plays)}
	if sd.Simulation != m.defs.Sim.Title {
		output = append(output, fmt.Sprintf("Note: this save was made for %q.", sd.Simulation))
	}
	return output
}

// viewportKeyMap returns a viewport keymap with Up/Down disabled
// (we use those for input history).
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
