package montecarlo

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
)

// FaceCountTable holds per-roll face frequencies. Counts[i][k] is the number
// of dice in roll i that showed Faces[k].
type FaceCountTable[F cmp.Ordered] struct {
	Faces  []F
	Counts [][]int
}

// TupleCount is one distinct combination or permutation and how many rolls
// produced it.
type TupleCount[F cmp.Ordered] struct {
	Tuple []F
	Count int
}

// Analyzer computes statistics over a snapshot of a game's results.
// Playing the game again does not change an existing analyzer.
type Analyzer[F cmp.Ordered] struct {
	snapshot [][]F
}

// NewAnalyzer snapshots the current results of g.
func NewAnalyzer[F cmp.Ordered](g *Game[F]) (*Analyzer[F], error) {
	if g == nil {
		return nil, fmt.Errorf("%w: game is nil", ErrInvalidArgumentType)
	}
	return &Analyzer[F]{snapshot: copyRows(g.wide())}, nil
}

// Rolls returns the number of rolls in the snapshot.
func (a *Analyzer[F]) Rolls() int {
	return len(a.snapshot)
}

func (a *Analyzer[F]) check() error {
	if len(a.snapshot) == 0 {
		return ErrNoResultsAvailable
	}
	return nil
}

// Jackpot counts the rolls in which every die showed the same face.
func (a *Analyzer[F]) Jackpot() (int, error) {
	if err := a.check(); err != nil {
		return 0, err
	}
	n := 0
	for _, row := range a.snapshot {
		if allEqual(row) {
			n++
		}
	}
	return n, nil
}

func allEqual[F cmp.Ordered](row []F) bool {
	for _, v := range row[1:] {
		if v != row[0] {
			return false
		}
	}
	return true
}

// FaceCounts counts, for each roll, how many dice showed each face. The
// columns are every face observed anywhere in the snapshot, sorted.
func (a *Analyzer[F]) FaceCounts() (*FaceCountTable[F], error) {
	if err := a.check(); err != nil {
		return nil, err
	}

	seen := map[F]struct{}{}
	for _, row := range a.snapshot {
		for _, v := range row {
			seen[v] = struct{}{}
		}
	}
	faces := slices.Sorted(maps.Keys(seen))

	column := make(map[F]int, len(faces))
	for k, f := range faces {
		column[f] = k
	}

	counts := make([][]int, len(a.snapshot))
	for i, row := range a.snapshot {
		counts[i] = make([]int, len(faces))
		for _, v := range row {
			counts[i][column[v]]++
		}
	}
	return &FaceCountTable[F]{Faces: faces, Counts: counts}, nil
}

// ComboCounts counts distinct unordered combinations: each roll is keyed by
// its faces sorted ascending.
func (a *Analyzer[F]) ComboCounts() ([]TupleCount[F], error) {
	if err := a.check(); err != nil {
		return nil, err
	}
	keys := make([][]F, len(a.snapshot))
	for i, row := range a.snapshot {
		keys[i] = slices.Sorted(slices.Values(row))
	}
	return countTuples(keys), nil
}

// PermutationCounts counts distinct ordered outcomes: each roll is keyed by
// its faces in die order.
func (a *Analyzer[F]) PermutationCounts() ([]TupleCount[F], error) {
	if err := a.check(); err != nil {
		return nil, err
	}
	return countTuples(a.snapshot), nil
}

// countTuples groups equal keys by value. The result is ordered by count
// descending, ties broken by the roll where the key first appeared.
func countTuples[F cmp.Ordered](keys [][]F) []TupleCount[F] {
	order := make([]int, len(keys))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(x, y int) int {
		return slices.Compare(keys[x], keys[y])
	})

	type group struct {
		TupleCount[F]
		first int
	}
	var groups []group
	for i := 0; i < len(order); {
		j := i + 1
		for j < len(order) && slices.Equal(keys[order[i]], keys[order[j]]) {
			j++
		}
		groups = append(groups, group{
			TupleCount: TupleCount[F]{Tuple: slices.Clone(keys[order[i]]), Count: j - i},
			first:      order[i],
		})
		i = j
	}

	slices.SortFunc(groups, func(x, y group) int {
		if c := cmp.Compare(y.Count, x.Count); c != 0 {
			return c
		}
		return cmp.Compare(x.first, y.first)
	})

	out := make([]TupleCount[F], len(groups))
	for i, g := range groups {
		out[i] = g.TupleCount
	}
	return out
}
