package engine

import (
	"cmp"
	"errors"
	"fmt"
	"strconv"

	"github.com/nathoo/dicelab/engine/montecarlo"
	"github.com/nathoo/dicelab/engine/state"
	"github.com/nathoo/dicelab/types"
)

// ErrUnknownDie indicates a command named a die the simulation does not define.
var ErrUnknownDie = errors.New("unknown die")

// dieView is a label-level snapshot of one die.
type dieView struct {
	ID      string
	Uses    int // number of columns rolled by this die
	Faces   []string
	Weights []float64
}

// tupleView is a combination or permutation rendered as face labels.
type tupleView struct {
	Faces []string
	Count int
}

// session is the face-type-independent view of a simulation. Numeric and
// text simulations share one engine by going through this interface.
type session interface {
	Play(n int) error
	SetWeight(dieID, face string, w float64) error
	ApplyWeights(w map[string]map[string]float64) error
	Dice() []dieView
	Table(form montecarlo.Form) (headers []string, rows [][]string, err error)
	Wide() [][]string
	Rolls() int
	Jackpot() (int, error)
	FaceCounts() (faces []string, counts [][]int, err error)
	Combos() ([]tupleView, error)
	Perms() ([]tupleView, error)
}

// newSession builds the dice and game described by defs. Every die draws
// from src. Definition weights are applied; runtime overrides are not.
func newSession(defs *state.Defs, src montecarlo.Source) (session, error) {
	switch defs.Kind {
	case types.FaceText:
		return buildSession(defs, src, parseText, formatText)
	case types.FaceNumeric:
		return buildSession(defs, src, parseNumeric, formatNumeric)
	default:
		return nil, fmt.Errorf("unknown face kind %d", defs.Kind)
	}
}

func parseText(s string) (string, error) { return s, nil }
func formatText(s string) string         { return s }

func parseNumeric(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

func formatNumeric(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

type typedSession[F cmp.Ordered] struct {
	ids     []string
	columns []string // die ID per game column
	dice    map[string]*montecarlo.Die[F]
	game    *montecarlo.Game[F]
	an      *montecarlo.Analyzer[F]
	parse   func(string) (F, error)
	format  func(F) string
}

func buildSession[F cmp.Ordered](defs *state.Defs, src montecarlo.Source,
	parse func(string) (F, error), format func(F) string) (*typedSession[F], error) {
	s := &typedSession[F]{
		ids:     state.DieIDs(defs),
		columns: append([]string(nil), defs.Sim.Dice...),
		dice:    map[string]*montecarlo.Die[F]{},
		parse:   parse,
		format:  format,
	}

	for _, id := range s.ids {
		def, ok := defs.Dice[id]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownDie, id)
		}
		faces := make([]F, len(def.Faces))
		for i, label := range def.Faces {
			f, err := parse(label)
			if err != nil {
				return nil, fmt.Errorf("die %s face %q: %w", id, label, err)
			}
			faces[i] = f
		}
		d, err := montecarlo.NewDie(faces, montecarlo.WithSource(src))
		if err != nil {
			return nil, fmt.Errorf("die %s: %w", id, err)
		}
		s.dice[id] = d
		if err := s.ApplyWeights(map[string]map[string]float64{id: def.Weights}); err != nil {
			return nil, err
		}
	}

	dice := make([]*montecarlo.Die[F], len(s.columns))
	for j, id := range s.columns {
		dice[j] = s.dice[id]
	}
	g, err := montecarlo.NewGame(dice)
	if err != nil {
		return nil, err
	}
	s.game = g
	return s, s.snapshot()
}

// snapshot refreshes the analyzer from the game's current results.
func (s *typedSession[F]) snapshot() error {
	an, err := montecarlo.NewAnalyzer(s.game)
	if err != nil {
		return err
	}
	s.an = an
	return nil
}

func (s *typedSession[F]) Play(n int) error {
	if err := s.game.Play(n); err != nil {
		return err
	}
	return s.snapshot()
}

func (s *typedSession[F]) SetWeight(dieID, label string, w float64) error {
	d, ok := s.dice[dieID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownDie, dieID)
	}
	face, err := s.parse(label)
	if err != nil {
		return fmt.Errorf("%w: %q", montecarlo.ErrUnknownFace, label)
	}
	return d.SetWeight(face, w)
}

func (s *typedSession[F]) ApplyWeights(w map[string]map[string]float64) error {
	for id, faces := range w {
		for label, weight := range faces {
			if err := s.SetWeight(id, label, weight); err != nil {
				return fmt.Errorf("die %s face %s: %w", id, label, err)
			}
		}
	}
	return nil
}

func (s *typedSession[F]) Dice() []dieView {
	uses := map[string]int{}
	for _, id := range s.columns {
		uses[id]++
	}
	out := make([]dieView, 0, len(s.ids))
	for _, id := range s.ids {
		v := dieView{ID: id, Uses: uses[id]}
		for _, fw := range s.dice[id].Show() {
			v.Faces = append(v.Faces, s.format(fw.Face))
			v.Weights = append(v.Weights, fw.Weight)
		}
		out = append(out, v)
	}
	return out
}

func (s *typedSession[F]) Table(form montecarlo.Form) ([]string, [][]string, error) {
	t, err := s.game.Show(form)
	if err != nil || t == nil {
		return nil, nil, err
	}

	if t.Form == montecarlo.FormNarrow {
		rows := make([][]string, len(t.Narrow))
		for i, r := range t.Narrow {
			rows[i] = []string{strconv.Itoa(r.Roll), s.columnLabel(r.Die), s.format(r.Face)}
		}
		return []string{"Roll", "Die", "Face"}, rows, nil
	}

	headers := []string{"Roll"}
	for j := range s.columns {
		headers = append(headers, s.columnLabel(j))
	}
	rows := make([][]string, len(t.Wide))
	for i, row := range t.Wide {
		rows[i] = append([]string{strconv.Itoa(i)}, s.labels(row)...)
	}
	return headers, rows, nil
}

func (s *typedSession[F]) columnLabel(j int) string {
	return fmt.Sprintf("%d:%s", j, s.columns[j])
}

func (s *typedSession[F]) labels(faces []F) []string {
	out := make([]string, len(faces))
	for i, f := range faces {
		out[i] = s.format(f)
	}
	return out
}

func (s *typedSession[F]) Wide() [][]string {
	t, err := s.game.Show(montecarlo.FormWide)
	if err != nil || t == nil {
		return nil
	}
	rows := make([][]string, len(t.Wide))
	for i, row := range t.Wide {
		rows[i] = s.labels(row)
	}
	return rows
}

func (s *typedSession[F]) Rolls() int {
	return s.an.Rolls()
}

func (s *typedSession[F]) Jackpot() (int, error) {
	return s.an.Jackpot()
}

func (s *typedSession[F]) FaceCounts() ([]string, [][]int, error) {
	fc, err := s.an.FaceCounts()
	if err != nil {
		return nil, nil, err
	}
	return s.labels(fc.Faces), fc.Counts, nil
}

func (s *typedSession[F]) Combos() ([]tupleView, error) {
	tcs, err := s.an.ComboCounts()
	if err != nil {
		return nil, err
	}
	return s.tuples(tcs), nil
}

func (s *typedSession[F]) Perms() ([]tupleView, error) {
	tcs, err := s.an.PermutationCounts()
	if err != nil {
		return nil, err
	}
	return s.tuples(tcs), nil
}

func (s *typedSession[F]) tuples(tcs []montecarlo.TupleCount[F]) []tupleView {
	out := make([]tupleView, len(tcs))
	for i, tc := range tcs {
		out[i] = tupleView{Faces: s.labels(tc.Tuple), Count: tc.Count}
	}
	return out
}
