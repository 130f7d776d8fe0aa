// Package report renders simulation tables and counts as text lines.
package report

import (
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/nathoo/dicelab/types"
)

// Renderer formats numbers for a locale and draws bordered tables.
type Renderer struct {
	printer *message.Printer
}

// New creates a renderer for the given locale tag.
func New(tag language.Tag) *Renderer {
	return &Renderer{printer: message.NewPrinter(tag)}
}

// ForLocale parses a BCP 47 locale string, falling back to English.
func ForLocale(locale string) *Renderer {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		tag = language.English
	}
	return New(tag)
}

// Count formats an integer with locale digit grouping: 12345 → "12,345".
func (r *Renderer) Count(n int) string {
	return r.printer.Sprintf("%d", n)
}

// Percent formats part/whole as a percentage with one decimal.
func (r *Renderer) Percent(part, whole int) string {
	if whole == 0 {
		return r.printer.Sprintf("%.1f%%", 0.0)
	}
	return r.printer.Sprintf("%.1f%%", 100*float64(part)/float64(whole))
}

// Share formats part/whole for fractional amounts such as weights.
func (r *Renderer) Share(part, whole float64) string {
	if whole == 0 {
		return r.printer.Sprintf("%.1f%%", 0.0)
	}
	return r.printer.Sprintf("%.1f%%", 100*part/whole)
}

// Weight formats a die weight without trailing zeros.
func (r *Renderer) Weight(w float64) string {
	return strconv.FormatFloat(w, 'g', -1, 64)
}

// Table draws headers and rows as a bordered table, one string per line.
func (r *Renderer) Table(headers []string, rows [][]string) []string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(headers...).
		Rows(rows...)
	return strings.Split(t.String(), "\n")
}

// Limit trims rows to at most max entries and reports how many were cut.
// A max of zero or less keeps every row.
func Limit(rows [][]string, max int) ([][]string, int) {
	if max <= 0 || len(rows) <= max {
		return rows, 0
	}
	return rows[:max], len(rows) - max
}

// History renders recorded plays as a table, newest first.
func (r *Renderer) History(plays []types.PlayRecord) []string {
	if len(plays) == 0 {
		return []string{"No plays recorded yet."}
	}
	rows := make([][]string, len(plays))
	for i, p := range plays {
		rows[i] = []string{
			strconv.FormatInt(p.ID, 10),
			p.Simulation,
			r.Count(p.Rolls),
			strconv.Itoa(p.Dice),
			r.Count(p.Jackpots) + " (" + r.Percent(p.Jackpots, p.Rolls) + ")",
			strconv.FormatInt(p.Seed, 10),
			p.PlayedAt.Local().Format(time.DateTime),
		}
	}
	return r.Table([]string{"#", "Simulation", "Rolls", "Dice", "Jackpots", "Seed", "Played"}, rows)
}
