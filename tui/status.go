package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// diceSummary condenses the column list: ["d6","d6","d4"] -> "2×d6 d4".
func diceSummary(columns []string) string {
	var (
		order  []string
		counts = map[string]int{}
	)
	for _, id := range columns {
		if counts[id] == 0 {
			order = append(order, id)
		}
		counts[id]++
	}
	parts := make([]string, len(order))
	for i, id := range order {
		if counts[id] > 1 {
			parts[i] = fmt.Sprintf("%d×%s", counts[id], id)
		} else {
			parts[i] = id
		}
	}
	return strings.Join(parts, " ")
}

// renderStatusBar produces a full-width inverted status line showing the
// simulation title, its dice, the last jackpot count and the play count.
func (m Model) renderStatusBar() string {
	s := m.engine.State

	left := fmt.Sprintf(" %s | %s", m.defs.Sim.Title, diceSummary(m.defs.Sim.Dice))
	right := fmt.Sprintf("Plays:%d ", s.Plays)

	// Show the jackpot rate if it fits.
	if n, ok := m.engine.LastJackpot(); ok {
		r := m.engine.Report
		candidate := fmt.Sprintf("JP: %s (%s) | Plays:%d ", r.Count(n), r.Percent(n, s.LastRolls), s.Plays)
		if lipgloss.Width(left)+lipgloss.Width(candidate)+2 < m.width {
			right = candidate
		} else {
			right = fmt.Sprintf("JP: %s | Plays:%d ", r.Count(n), s.Plays)
		}
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	return styleStatusBar.Width(m.width).Render(bar)
}
