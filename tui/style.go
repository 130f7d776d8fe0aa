package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles used throughout the TUI.
var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleText = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	styleHeadline = lipgloss.NewStyle().
			Bold(true)

	styleJackpot = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")).
			Bold(true)

	styleTable = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	styleSystem = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	stylePlayerInput = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleTrace = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// lineKind identifies the type of an output line for styling.
type lineKind int

const (
	kindText lineKind = iota
	kindHeadline
	kindJackpot
	kindTable
	kindSystem
	kindError
	kindTrace
)

// tableEdges are the first runes of lines drawn by report.Table.
const tableEdges = "┌│├└"

// classifyLine determines what kind of output line this is.
func classifyLine(line string) lineKind {
	switch {
	case strings.HasPrefix(line, "[trace]"):
		return kindTrace
	case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
		return kindSystem
	case line != "" && strings.ContainsRune(tableEdges, []rune(line)[0]):
		return kindTable
	case strings.HasPrefix(line, "Jackpots:"):
		return kindJackpot
	case strings.HasPrefix(line, "Rolled "),
		strings.HasPrefix(line, "Die "),
		strings.Contains(line, " distinct "):
		return kindHeadline
	default:
		return kindText
	}
}

// styledSystemMsg renders a system message in gray with brackets.
func styledSystemMsg(text string) string {
	return styleSystem.Render("[" + text + "]")
}
