// Package montecarlo implements weighted dice, multi-die roll sessions and
// the analysis of their outcome tables.
//
// Data flows one way: a Die produces faces, a Game rolls a set of dice into
// a results table, and an Analyzer derives statistics from a private copy of
// that table. None of the types are safe for concurrent mutation.
package montecarlo

import (
	"cmp"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/nathoo/dicelab/engine/rng"
)

// Source supplies uniform draws in [0, 1). *rng.RNG satisfies it.
type Source interface {
	Float64() float64
}

// FaceWeight pairs a face with its current weight.
type FaceWeight[F cmp.Ordered] struct {
	Face   F
	Weight float64
}

// Die is a weighted discrete random outcome generator.
type Die[F cmp.Ordered] struct {
	faces   []F
	weights []float64
	index   map[F]int
	src     Source
}

type dieConfig struct {
	src Source
}

// Option configures a Die at construction time.
type Option func(*dieConfig)

// WithSource makes the die draw from src instead of a freshly seeded RNG.
// Dice sharing one source produce a single reproducible sequence.
func WithSource(src Source) Option {
	return func(c *dieConfig) {
		c.src = src
	}
}

// NewDie creates a die over the given faces with a uniform weight of 1.0.
// The faces must be non-empty and pairwise distinct.
func NewDie[F cmp.Ordered](faces []F, opts ...Option) (*Die[F], error) {
	if len(faces) == 0 {
		return nil, fmt.Errorf("%w: faces must be a non-empty slice", ErrInvalidArgumentType)
	}

	index := make(map[F]int, len(faces))
	for i, f := range faces {
		// NaN is the only value not equal to itself.
		if f != f {
			return nil, fmt.Errorf("%w: face %d is NaN", ErrInvalidArgumentType, i)
		}
		if j, ok := index[f]; ok {
			return nil, fmt.Errorf("%w: faces %d and %d are both %v", ErrDuplicateValue, j, i, f)
		}
		index[f] = i
	}

	cfg := dieConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.src == nil {
		seed, err := rng.NewSeed()
		if err != nil {
			return nil, err
		}
		cfg.src = rng.New(seed)
	}

	weights := make([]float64, len(faces))
	for i := range weights {
		weights[i] = 1.0
	}

	return &Die[F]{
		faces:   append([]F(nil), faces...),
		weights: weights,
		index:   index,
		src:     cfg.src,
	}, nil
}

// SetWeight overwrites the weight of one face. Other faces are untouched.
func (d *Die[F]) SetWeight(face F, weight float64) error {
	i, ok := d.index[face]
	if !ok {
		return fmt.Errorf("%w: %v", ErrUnknownFace, face)
	}
	if math.IsNaN(weight) || math.IsInf(weight, 0) {
		return fmt.Errorf("%w: %v", ErrNonNumericWeight, weight)
	}
	if weight < 0 {
		return fmt.Errorf("%w: %v", ErrNegativeWeight, weight)
	}
	d.weights[i] = weight
	return nil
}

// ParseWeight coerces text such as "2", "0.5" or "1e3" into a weight.
func ParseWeight(s string) (float64, error) {
	w, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(w) || math.IsInf(w, 0) {
		return 0, fmt.Errorf("%w: %q", ErrNonNumericWeight, s)
	}
	return w, nil
}

// MaxRolls bounds a single Roll or Play so a typo cannot exhaust memory.
const MaxRolls = 10_000_000

// Roll performs count independent weighted draws with replacement and
// returns the faces in draw order. Weights are read once at call time.
func (d *Die[F]) Roll(count int) ([]F, error) {
	if count < 1 || count > MaxRolls {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRollCount, count)
	}

	cumulative := make([]float64, len(d.weights))
	total := 0.0
	for i, w := range d.weights {
		total += w
		cumulative[i] = total
	}
	if total <= 0 {
		return nil, ErrNoViableOutcome
	}

	out := make([]F, count)
	for n := range out {
		r := d.src.Float64() * total
		// First face whose cumulative weight exceeds r. Zero-weight faces
		// share their predecessor's bound and can never be selected.
		i := sort.Search(len(cumulative), func(i int) bool { return cumulative[i] > r })
		if i == len(cumulative) {
			i = d.lastPositive()
		}
		out[n] = d.faces[i]
	}
	return out, nil
}

// lastPositive guards against r landing on the total through rounding.
func (d *Die[F]) lastPositive() int {
	for i := len(d.weights) - 1; i >= 0; i-- {
		if d.weights[i] > 0 {
			return i
		}
	}
	return len(d.weights) - 1
}

// Show returns a copy of the die's faces and weights in face order.
func (d *Die[F]) Show() []FaceWeight[F] {
	out := make([]FaceWeight[F], len(d.faces))
	for i, f := range d.faces {
		out[i] = FaceWeight[F]{Face: f, Weight: d.weights[i]}
	}
	return out
}

// Faces returns a copy of the face set in construction order.
func (d *Die[F]) Faces() []F {
	return append([]F(nil), d.faces...)
}

// Weight returns the current weight of face.
func (d *Die[F]) Weight(face F) (float64, bool) {
	i, ok := d.index[face]
	if !ok {
		return 0, false
	}
	return d.weights[i], true
}

// Len returns the number of faces.
func (d *Die[F]) Len() int {
	return len(d.faces)
}
