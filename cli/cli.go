// Package cli provides terminal I/O, output formatting, and meta-command
// dispatch for the DiceLab engine.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/nathoo/dicelab/engine"
	"github.com/nathoo/dicelab/engine/save"
	"github.com/nathoo/dicelab/engine/state"
	"github.com/nathoo/dicelab/types"
)

// ErrNoHistory is returned by HistoryLines when no store is configured.
var ErrNoHistory = errors.New("no history store configured; start with -db <path> to keep one")

// ErrBadSaveName is returned by SaveTo and LoadFrom for names that are
// not a single file name.
var ErrBadSaveName = errors.New("save name must be a plain file name")

// CLI handles line-based interaction with the user.
type CLI struct {
	Engine    *engine.Engine
	Defs      *state.Defs
	History   engine.History // nil when no history store is configured
	In        io.Reader
	Out       io.Writer
	SaveDir   string
	Trace     bool
	EchoInput bool   // echo each input line after the prompt (for script playback)
	lastCmd   string // for "again"/"g" repeat
}

// New creates a CLI wired to the given engine.
func New(eng *engine.Engine, defs *state.Defs) *CLI {
	return &CLI{
		Engine:  eng,
		Defs:    defs,
		In:      os.Stdin,
		Out:     os.Stdout,
		SaveDir: "saves",
	}
}

// Run starts the command loop. It prints the simulation header, then
// loops: prompt → input → dispatch → output.
func (c *CLI) Run() {
	c.printLine(Header(c.Defs))
	c.printLine("Type help for commands, /help for system commands.")
	c.printLine("")

	scanner := bufio.NewScanner(c.In)
	for {
		c.print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		// Skip comment lines (for script files).
		if strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}

		// Meta-commands start with '/'.
		if strings.HasPrefix(input, "/") {
			if c.handleMeta(input) {
				return // /quit
			}
			continue
		}

		// "again" / "g" repeats the last command.
		lower := strings.ToLower(input)
		if lower == "again" || lower == "g" {
			if c.lastCmd == "" {
				c.printLine("Nothing to repeat.")
				continue
			}
			input = c.lastCmd
		} else {
			c.lastCmd = input
		}

		result := c.Engine.Step(input)
		c.printResult(result)

		if c.Trace {
			c.printTrace(result)
		}
	}
}

// Header is the one-line title shown when a session starts.
func Header(defs *state.Defs) string {
	if defs.Sim.Author == "" {
		return defs.Sim.Title
	}
	return fmt.Sprintf("%s by %s", defs.Sim.Title, defs.Sim.Author)
}

// handleMeta dispatches meta-commands. Returns true if the session should exit.
func (c *CLI) handleMeta(input string) bool {
	parts := strings.Fields(input)
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/quit", "/exit":
		c.printSystem("Goodbye.")
		return true

	case "/save":
		c.cmdSave(arg)

	case "/load":
		c.cmdLoad(arg)

	case "/history":
		c.cmdHistory(arg)

	case "/help":
		c.cmdHelp()

	case "/state":
		c.cmdState()

	case "/trace":
		c.Trace = !c.Trace
		if c.Trace {
			c.printSystem("Trace output enabled.")
		} else {
			c.printSystem("Trace output disabled.")
		}

	default:
		c.printSystem(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
	}

	return false
}

func (c *CLI) cmdSave(name string) {
	if err := SaveTo(c.Engine, c.SaveDir, name); err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}
	c.printSystem(fmt.Sprintf("Simulation saved to %s.", saveName(name)))
}

func (c *CLI) cmdLoad(name string) {
	sd, err := LoadFrom(c.Engine, c.SaveDir, name)
	if err != nil {
		c.printSystem(fmt.Sprintf("Load failed: %v", err))
		return
	}
	c.printSystem(fmt.Sprintf("Simulation loaded from %s (play %d).", saveName(name), sd.Plays))
	if sd.Simulation != c.Defs.Sim.Title {
		c.printSystem(fmt.Sprintf("Note: this save was made for %q.", sd.Simulation))
	}
}

func (c *CLI) cmdHistory(arg string) {
	lines, err := HistoryLines(c.Engine, c.History, arg)
	if err != nil {
		c.printSystem(err.Error())
		return
	}
	for _, line := range lines {
		c.printLine(line)
	}
}

func (c *CLI) cmdHelp() {
	for _, line := range HelpLines() {
		c.printLine(line)
	}
}

func (c *CLI) cmdState() {
	for _, line := range StateLines(c.Engine.State) {
		c.printSystem(line)
	}
}

func (c *CLI) printTrace(result types.Result) {
	for _, line := range TraceLines(result) {
		c.printSystem(line)
	}
}

func (c *CLI) printResult(result types.Result) {
	for _, line := range result.Output {
		c.printLine(line)
	}
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}

// saveName returns the display name for a save; empty means "quicksave".
func saveName(name string) string {
	if name == "" {
		return "quicksave"
	}
	return name
}

// savePath maps a save name to its file under dir. Names must be a
// single path element so a save cannot land outside dir.
func savePath(dir, name string) (string, error) {
	if name == "" {
		name = "quicksave"
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\:`) || filepath.Base(name) != name {
		return "", fmt.Errorf("%w: %q", ErrBadSaveName, name)
	}
	return filepath.Join(dir, name+".json"), nil
}

// SaveTo writes the engine state to dir/name.json. An empty name means
// "quicksave".
func SaveTo(eng *engine.Engine, dir, name string) error {
	data, err := save.Save(eng.State, eng.Defs)
	if err != nil {
		return err
	}
	path, err := savePath(dir, name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadFrom reads dir/name.json and restores it into the engine, replaying
// the last play so its results table is available again.
func LoadFrom(eng *engine.Engine, dir, name string) (*save.SaveData, error) {
	path, err := savePath(dir, name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sd, err := save.Load(data)
	if err != nil {
		return nil, err
	}
	s := state.NewState(eng.Defs)
	save.ApplySave(s, sd)
	if err := eng.Restore(s); err != nil {
		return nil, err
	}
	return sd, nil
}

// HistoryLines renders the most recent plays. arg is an optional count.
func HistoryLines(eng *engine.Engine, h engine.History, arg string) ([]string, error) {
	if h == nil {
		return nil, ErrNoHistory
	}
	limit := 0
	if arg != "" {
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("usage: /history [count]")
		}
		limit = n
	}
	plays, err := h.ListPlays(context.Background(), limit)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	return eng.Report.History(plays), nil
}

// StateLines describes the mutable state for /state.
func StateLines(s *types.State) []string {
	lines := []string{
		fmt.Sprintf("Seed: %d", s.Seed),
		fmt.Sprintf("RNG position: %d", s.RNGPosition),
		fmt.Sprintf("Plays: %d", s.Plays),
	}
	if s.LastRolls > 0 {
		lines = append(lines, fmt.Sprintf("Last play: %d rolls from position %d", s.LastRolls, s.PlayPosition))
	}
	ids := make([]string, 0, len(s.Weights))
	for id := range s.Weights {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		lines = append(lines, fmt.Sprintf("Weights %s: %v", id, s.Weights[id]))
	}
	return lines
}

// TraceLines lists the events of a result for /trace.
func TraceLines(result types.Result) []string {
	var lines []string
	if len(result.Events) > 0 {
		lines = append(lines, fmt.Sprintf("[trace] Events: %d", len(result.Events)))
		for _, e := range result.Events {
			lines = append(lines, fmt.Sprintf("[trace]   %s %v", e.Type, e.Data))
		}
	}
	if result.Err != nil {
		lines = append(lines, fmt.Sprintf("[trace] Error: %v", result.Err))
	}
	return lines
}

// HelpLines lists system commands followed by the engine commands.
func HelpLines() []string {
	help := []string{
		"System:",
		"  /save [name]     Save the simulation (default: quicksave)",
		"  /load [name]     Load a saved simulation (default: quicksave)",
		"  /history [n]     List recent plays from the history store",
		"  /quit            Exit",
		"  /help            Show this help",
		"  /state           Debug: dump current state",
		"  /trace           Toggle debug trace output",
		"",
	}
	help = append(help, engine.HelpLines()...)
	return append(help, "  again (g)                    Repeat your last command")
}
