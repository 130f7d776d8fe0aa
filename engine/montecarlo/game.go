package montecarlo

import (
	"cmp"
	"fmt"
	"strings"
)

// Form selects the layout of a results table.
type Form string

const (
	// FormWide has one row per roll and one column per die.
	FormWide Form = "wide"
	// FormNarrow has one row per (roll, die) pair.
	FormNarrow Form = "narrow"
)

// ParseForm maps text to a Form. The empty string means wide.
func ParseForm(s string) (Form, error) {
	switch f := Form(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormWide:
		return FormWide, nil
	case FormNarrow:
		return FormNarrow, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
}

// NarrowRow is one cell of the results table in long format.
type NarrowRow[F cmp.Ordered] struct {
	Roll int
	Die  int
	Face F
}

// Table is a results table in the requested form. Exactly one of Wide and
// Narrow is populated, matching Form.
type Table[F cmp.Ordered] struct {
	Form   Form
	Wide   [][]F
	Narrow []NarrowRow[F]
}

// Game rolls an ordered set of dice together. The dice are shared with the
// caller; the game never copies or mutates them.
type Game[F cmp.Ordered] struct {
	dice    []*Die[F]
	results [][]F
}

// NewGame creates a game over dice. Dice with differing face sets are
// allowed; interpreting the mixed results is up to the caller.
func NewGame[F cmp.Ordered](dice []*Die[F]) (*Game[F], error) {
	if len(dice) == 0 {
		return nil, fmt.Errorf("%w: at least one die is required", ErrInvalidArgumentType)
	}
	for i, d := range dice {
		if d == nil {
			return nil, fmt.Errorf("%w: die %d is nil", ErrInvalidArgumentType, i)
		}
	}
	return &Game[F]{dice: append([]*Die[F](nil), dice...)}, nil
}

// Play rolls every die numRolls times and replaces the results table.
// Row i, column j holds the i-th draw of die j. On error the previous
// table is kept.
func (g *Game[F]) Play(numRolls int) error {
	if numRolls < 1 || numRolls > MaxRolls {
		return fmt.Errorf("%w: %d", ErrInvalidRollCount, numRolls)
	}

	columns := make([][]F, len(g.dice))
	for j, d := range g.dice {
		faces, err := d.Roll(numRolls)
		if err != nil {
			return fmt.Errorf("rolling die %d: %w", j, err)
		}
		columns[j] = faces
	}

	results := make([][]F, numRolls)
	for i := range results {
		row := make([]F, len(columns))
		for j := range columns {
			row[j] = columns[j][i]
		}
		results[i] = row
	}
	g.results = results
	return nil
}

// Show returns the most recent results in the given form, or nil if the
// game has never been played. Narrow rows are ordered by roll, then die.
func (g *Game[F]) Show(form Form) (*Table[F], error) {
	if form != FormWide && form != FormNarrow {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, string(form))
	}
	if g.results == nil {
		return nil, nil
	}

	if form == FormWide {
		return &Table[F]{Form: FormWide, Wide: copyRows(g.results)}, nil
	}

	narrow := make([]NarrowRow[F], 0, len(g.results)*len(g.dice))
	for i, row := range g.results {
		for j, face := range row {
			narrow = append(narrow, NarrowRow[F]{Roll: i, Die: j, Face: face})
		}
	}
	return &Table[F]{Form: FormNarrow, Narrow: narrow}, nil
}

// Dice returns the game's dice in column order.
func (g *Game[F]) Dice() []*Die[F] {
	return append([]*Die[F](nil), g.dice...)
}

// Played reports whether the game holds a results table.
func (g *Game[F]) Played() bool {
	return g.results != nil
}

// Rolls returns the number of rows in the current results table.
func (g *Game[F]) Rolls() int {
	return len(g.results)
}

// wide exposes the live table to the analyzer, which copies it.
func (g *Game[F]) wide() [][]F {
	return g.results
}

func copyRows[F cmp.Ordered](rows [][]F) [][]F {
	if rows == nil {
		return nil
	}
	out := make([][]F, len(rows))
	for i, row := range rows {
		out[i] = append([]F(nil), row...)
	}
	return out
}
