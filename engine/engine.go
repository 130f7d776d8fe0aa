// Package engine provides the Step() orchestrator that turns a command line
// into simulation work: parse, dispatch to the dice session, render output.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nathoo/dicelab/engine/montecarlo"
	"github.com/nathoo/dicelab/engine/parser"
	"github.com/nathoo/dicelab/engine/rng"
	"github.com/nathoo/dicelab/engine/state"
	"github.com/nathoo/dicelab/report"
	"github.com/nathoo/dicelab/types"
)

// DefaultMaxRows caps how many table rows a single command prints.
const DefaultMaxRows = 20

// positionLimit is how far a play may advance the RNG. Saves past it
// could not be reloaded.
var positionLimit = rng.MaxPosition

// Recorder receives every successful play. The SQLite history store
// satisfies it.
type Recorder interface {
	RecordPlay(ctx context.Context, rec types.PlayRecord) error
}

// History lists recorded plays, newest first.
type History interface {
	ListPlays(ctx context.Context, limit int) ([]types.PlayRecord, error)
}

// Engine holds the simulation definitions and mutable state.
type Engine struct {
	Defs     *state.Defs
	State    *types.State
	RNG      *rng.RNG
	Recorder Recorder
	Report   *report.Renderer
	MaxRows  int

	sess session
	now  func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder sends each completed play to r.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.Recorder = r }
}

// WithRenderer sets the renderer used for numbers and tables.
func WithRenderer(r *report.Renderer) Option {
	return func(e *Engine) { e.Report = r }
}

// WithSeed overrides the seed from the definitions. Zero keeps it.
func WithSeed(seed int64) Option {
	return func(e *Engine) {
		if seed != 0 {
			e.State.Seed = seed
		}
	}
}

// WithMaxRows sets the table row limit. Zero or less prints every row.
func WithMaxRows(n int) Option {
	return func(e *Engine) { e.MaxRows = n }
}

// New creates an engine from definitions. A zero seed is replaced with a
// random one so every session can still be saved and replayed.
func New(defs *state.Defs, opts ...Option) (*Engine, error) {
	e := &Engine{
		Defs:    defs,
		State:   state.NewState(defs),
		MaxRows: DefaultMaxRows,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.Report == nil {
		e.Report = report.ForLocale("en")
	}
	if e.State.Seed == 0 {
		seed, err := rng.NewSeed()
		if err != nil {
			return nil, fmt.Errorf("generating seed: %w", err)
		}
		e.State.Seed = seed
	}
	e.RNG = rng.New(e.State.Seed)

	sess, err := newSession(defs, liveSource{e})
	if err != nil {
		return nil, err
	}
	e.sess = sess
	return e, nil
}

// liveSource draws from whichever RNG the engine currently holds, so a
// restored RNG takes effect without rebuilding the dice.
type liveSource struct{ e *Engine }

func (s liveSource) Float64() float64 { return s.e.RNG.Float64() }

// Reload rebuilds the dice, the last results table and the RNG from State.
// Call it after replacing State, e.g. when loading a save.
func (e *Engine) Reload() error {
	sess, err := newSession(e.Defs, liveSource{e})
	if err != nil {
		return err
	}

	if e.State.LastRolls > 0 {
		e.RNG = rng.Restore(e.State.Seed, e.State.PlayPosition)
		if err := sess.ApplyWeights(e.State.PlayWeights); err != nil {
			return fmt.Errorf("applying play weights: %w", err)
		}
		if err := sess.Play(e.State.LastRolls); err != nil {
			return fmt.Errorf("replaying last play: %w", err)
		}
	}
	if err := sess.ApplyWeights(e.State.Weights); err != nil {
		return fmt.Errorf("applying weights: %w", err)
	}

	e.RNG = rng.Restore(e.State.Seed, e.State.RNGPosition)
	e.sess = sess
	return nil
}

// Restore replaces State with s and reloads. If the reload fails the
// previous state, RNG and results are kept.
func (e *Engine) Restore(s *types.State) error {
	prev, prevRNG := e.State, e.RNG
	e.State = s
	if err := e.Reload(); err != nil {
		e.State, e.RNG = prev, prevRNG
		return err
	}
	return nil
}

// Step processes one command and returns the result.
func (e *Engine) Step(input string) types.Result {
	return e.StepContext(context.Background(), input)
}

// StepContext is Step with a context passed through to the Recorder.
func (e *Engine) StepContext(ctx context.Context, input string) types.Result {
	intent := parser.Parse(input)
	e.State.CommandLog = append(e.State.CommandLog, input)

	if intent.Verb == "" {
		return types.Result{Output: []string{"What do you want to roll?"}}
	}

	switch intent.Verb {
	case "roll":
		return e.roll(ctx, intent.Args)
	case "show":
		return e.show(intent.Args)
	case "jackpot":
		return e.jackpot()
	case "faces":
		return e.faces()
	case "combos":
		return e.tuples("Combination", e.sess.Combos)
	case "perms":
		return e.tuples("Permutation", e.sess.Perms)
	case "weight":
		return e.weight(intent.Args)
	case "dice":
		return e.dice(intent.Args)
	case "summary":
		return e.summary()
	case "help":
		return types.Result{Output: HelpLines()}
	default:
		return types.Result{Output: []string{
			fmt.Sprintf("I don't know how to %q. Type help for a list of commands.", intent.Verb),
		}}
	}
}

func (e *Engine) roll(ctx context.Context, args []string) types.Result {
	n := e.Defs.Sim.Rolls
	if n < 1 {
		n = 1
	}
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return failure(fmt.Errorf("%w: %q", montecarlo.ErrInvalidRollCount, args[0]),
				fmt.Sprintf("%q is not a roll count.", args[0]))
		}
		n = v
	}

	before := e.RNG.Position()
	if n >= 1 && n <= montecarlo.MaxRolls && before+int64(n)*int64(len(e.Defs.Sim.Dice)) > positionLimit {
		return failure(rng.ErrPositionLimit, describe(rng.ErrPositionLimit))
	}
	weights := state.EffectiveWeights(e.State, e.Defs)
	if err := e.sess.Play(n); err != nil {
		// A failed play may have consumed draws from earlier dice.
		e.State.RNGPosition = e.RNG.Position()
		return failure(err, describe(err))
	}

	e.State.Plays++
	e.State.LastRolls = n
	e.State.PlayPosition = before
	e.State.PlayWeights = weights
	e.State.RNGPosition = e.RNG.Position()

	jackpots, _ := e.sess.Jackpot()
	r := e.Report
	result := types.Result{
		Output: []string{
			fmt.Sprintf("Rolled %d %s %s %s.", len(e.Defs.Sim.Dice), plural(len(e.Defs.Sim.Dice), "die", "dice"),
				r.Count(n), plural(n, "time", "times")),
			fmt.Sprintf("Jackpots: %s (%s).", r.Count(jackpots), r.Percent(jackpots, n)),
		},
		Events: []types.Event{{
			Type: "played",
			Data: map[string]any{"rolls": n, "jackpots": jackpots, "play": e.State.Plays},
		}},
	}

	if e.Recorder != nil {
		rec := types.PlayRecord{
			Simulation: e.Defs.Sim.Title,
			Rolls:      n,
			Dice:       len(e.Defs.Sim.Dice),
			Jackpots:   jackpots,
			Seed:       e.State.Seed,
			Results:    e.sess.Wide(),
			PlayedAt:   e.now().UTC(),
		}
		if err := e.Recorder.RecordPlay(ctx, rec); err != nil {
			result.Output = append(result.Output, fmt.Sprintf("(play not saved to history: %v)", err))
		}
	}
	return result
}

func (e *Engine) show(args []string) types.Result {
	var arg string
	if len(args) > 0 {
		arg = args[0]
	}
	form, err := montecarlo.ParseForm(arg)
	if err != nil {
		return failure(err, describe(err))
	}
	headers, rows, err := e.sess.Table(form)
	if err != nil {
		return failure(err, describe(err))
	}
	if rows == nil {
		return failure(montecarlo.ErrNoResultsAvailable, describe(montecarlo.ErrNoResultsAvailable))
	}
	return types.Result{Output: e.table(headers, rows)}
}

func (e *Engine) jackpot() types.Result {
	n, err := e.sess.Jackpot()
	if err != nil {
		return failure(err, describe(err))
	}
	rolls := e.sess.Rolls()
	return types.Result{Output: []string{
		fmt.Sprintf("Jackpots: %s of %s rolls (%s).", e.Report.Count(n), e.Report.Count(rolls), e.Report.Percent(n, rolls)),
	}}
}

func (e *Engine) faces() types.Result {
	faces, counts, err := e.sess.FaceCounts()
	if err != nil {
		return failure(err, describe(err))
	}
	headers := append([]string{"Roll"}, faces...)
	rows := make([][]string, len(counts))
	for i, row := range counts {
		cells := []string{strconv.Itoa(i)}
		for _, c := range row {
			cells = append(cells, e.Report.Count(c))
		}
		rows[i] = cells
	}
	return types.Result{Output: e.table(headers, rows)}
}

func (e *Engine) tuples(label string, count func() ([]tupleView, error)) types.Result {
	tvs, err := count()
	if err != nil {
		return failure(err, describe(err))
	}
	rows := make([][]string, len(tvs))
	for i, tv := range tvs {
		rows[i] = []string{"(" + strings.Join(tv.Faces, ", ") + ")", e.Report.Count(tv.Count)}
	}
	out := []string{fmt.Sprintf("%d distinct %s.", len(tvs), strings.ToLower(plural(len(tvs), label, label+"s")))}
	return types.Result{Output: append(out, e.table([]string{label, "Count"}, rows)...)}
}

func (e *Engine) weight(args []string) types.Result {
	if len(args) < 3 {
		return types.Result{Output: []string{"Usage: weight <die> <face> <weight>"}}
	}
	dieID := args[0]
	if _, ok := e.Defs.Dice[dieID]; !ok || !e.usesDie(dieID) {
		err := fmt.Errorf("%w: %q", ErrUnknownDie, dieID)
		return failure(err, fmt.Sprintf("There is no die named %q.", dieID))
	}
	face := e.canonicalFace(args[1])
	if _, ok := state.GetWeight(e.State, e.Defs, dieID, face); !ok {
		err := fmt.Errorf("%w: %q", montecarlo.ErrUnknownFace, args[1])
		return failure(err, fmt.Sprintf("Die %s has no face %s.", dieID, args[1]))
	}
	w, err := montecarlo.ParseWeight(args[2])
	if err != nil {
		return failure(err, describe(err))
	}
	if err := e.sess.SetWeight(dieID, face, w); err != nil {
		return failure(err, describe(err))
	}
	state.SetWeight(e.State, dieID, face, w)

	return types.Result{
		Output: []string{fmt.Sprintf("Face %s on %s now weighs %s.", face, dieID, e.Report.Weight(w))},
		Events: []types.Event{{
			Type: "weight_changed",
			Data: map[string]any{"die": dieID, "face": face, "weight": w},
		}},
	}
}

func (e *Engine) dice(args []string) types.Result {
	var out []string
	for _, v := range e.sess.Dice() {
		if len(args) > 0 && args[0] != v.ID {
			continue
		}
		var total float64
		for _, w := range v.Weights {
			total += w
		}
		rows := make([][]string, len(v.Faces))
		for i, f := range v.Faces {
			rows[i] = []string{f, e.Report.Weight(v.Weights[i]), e.Report.Share(v.Weights[i], total)}
		}
		out = append(out, fmt.Sprintf("Die %s (%d %s, rolled in %d %s):", v.ID,
			len(v.Faces), plural(len(v.Faces), "face", "faces"), v.Uses, plural(v.Uses, "column", "columns")))
		out = append(out, e.Report.Table([]string{"Face", "Weight", "Chance"}, rows)...)
	}
	if out == nil {
		return types.Result{Output: []string{fmt.Sprintf("There is no die named %q.", args[0])}}
	}
	return types.Result{Output: out}
}

func (e *Engine) summary() types.Result {
	title := e.Defs.Sim.Title
	if title == "" {
		title = "Untitled simulation"
	}
	out := []string{
		title,
		fmt.Sprintf("Dice: %s", strings.Join(e.Defs.Sim.Dice, ", ")),
		fmt.Sprintf("Seed: %d", e.State.Seed),
		fmt.Sprintf("Plays: %s", e.Report.Count(e.State.Plays)),
	}
	n, err := e.sess.Jackpot()
	if errors.Is(err, montecarlo.ErrNoResultsAvailable) {
		return types.Result{Output: append(out, "Nothing rolled yet.")}
	}
	if err != nil {
		return failure(err, describe(err))
	}
	combos, _ := e.sess.Combos()
	perms, _ := e.sess.Perms()
	rolls := e.sess.Rolls()
	return types.Result{Output: append(out,
		fmt.Sprintf("Last play: %s rolls", e.Report.Count(rolls)),
		fmt.Sprintf("Jackpots: %s (%s)", e.Report.Count(n), e.Report.Percent(n, rolls)),
		fmt.Sprintf("Distinct combinations: %s", e.Report.Count(len(combos))),
		fmt.Sprintf("Distinct permutations: %s", e.Report.Count(len(perms))),
	)}
}

// LastJackpot returns the jackpot count of the current results, or false
// if nothing has been rolled.
func (e *Engine) LastJackpot() (int, bool) {
	n, err := e.sess.Jackpot()
	return n, err == nil
}

// table renders headers and rows, trimming to MaxRows.
func (e *Engine) table(headers []string, rows [][]string) []string {
	shown, cut := report.Limit(rows, e.MaxRows)
	out := e.Report.Table(headers, shown)
	if cut > 0 {
		out = append(out, fmt.Sprintf("... %s more %s", e.Report.Count(cut), plural(cut, "row", "rows")))
	}
	return out
}

// canonicalFace maps user input to the face label used in definitions,
// so "6.0" and "6" name the same numeric face.
func (e *Engine) canonicalFace(label string) string {
	if e.Defs.Kind != types.FaceNumeric {
		return label
	}
	f, err := parseNumeric(label)
	if err != nil {
		return label
	}
	return formatNumeric(f)
}

func (e *Engine) usesDie(id string) bool {
	for _, d := range e.Defs.Sim.Dice {
		if d == id {
			return true
		}
	}
	return false
}

func failure(err error, msg string) types.Result {
	return types.Result{Output: []string{msg}, Err: err}
}

// describe turns a core error into a line for the player.
func describe(err error) string {
	switch {
	case errors.Is(err, montecarlo.ErrNoResultsAvailable):
		return "Nothing rolled yet. Try: roll"
	case errors.Is(err, montecarlo.ErrInvalidFormat):
		return "Unknown table form. Use: show wide, or show narrow"
	case errors.Is(err, montecarlo.ErrInvalidRollCount):
		return fmt.Sprintf("Roll between 1 and %d times.", montecarlo.MaxRolls)
	case errors.Is(err, rng.ErrPositionLimit):
		return "This session has drawn too many rolls to save. Start a new one to keep rolling."
	case errors.Is(err, montecarlo.ErrNoViableOutcome):
		return "A die has no face with positive weight, so it cannot be rolled."
	case errors.Is(err, montecarlo.ErrNonNumericWeight):
		return "Weights must be finite numbers."
	case errors.Is(err, montecarlo.ErrNegativeWeight):
		return "Weights cannot be negative."
	case errors.Is(err, montecarlo.ErrUnknownFace):
		return "That die has no such face."
	case errors.Is(err, ErrUnknownDie):
		return "There is no such die."
	default:
		return err.Error()
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// HelpLines returns the command reference shown by "help".
func HelpLines() []string {
	return []string{
		"Commands:",
		"  roll [n] (r)                 Roll every die n times",
		"  show [wide|narrow] (table)   Show the last results",
		"  jackpot (jp)                 Count rolls where every die matched",
		"  faces (counts)               Count each face per roll",
		"  combos (combinations)        Count distinct unordered outcomes",
		"  perms (permutations)         Count distinct ordered outcomes",
		"  weight <die> <face> <w> (w)  Change a face weight",
		"  dice [id] (inspect)          Show faces and weights",
		"  summary (stats)              Overview of the last play",
		"  help (?)                     This list",
	}
}
