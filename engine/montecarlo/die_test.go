package montecarlo

import (
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/nathoo/dicelab/engine/rng"
)

// scriptedSource replays a fixed sequence of draws, cycling when exhausted.
type scriptedSource struct {
	vals []float64
	pos  int
}

func (s *scriptedSource) Float64() float64 {
	v := s.vals[s.pos%len(s.vals)]
	s.pos++
	return v
}

func sixFaces() []int {
	return []int{1, 2, 3, 4, 5, 6}
}

func newTestDie(t *testing.T, faces []int, seed int64) *Die[int] {
	t.Helper()
	d, err := NewDie(faces, WithSource(rng.New(seed)))
	if err != nil {
		t.Fatalf("NewDie: %v", err)
	}
	return d
}

func TestNewDie_UniformWeights(t *testing.T) {
	d := newTestDie(t, sixFaces(), 1)

	got := d.Show()
	if len(got) != 6 {
		t.Fatalf("expected 6 faces, got %d", len(got))
	}
	for i, fw := range got {
		if fw.Face != i+1 {
			t.Errorf("face %d = %d, want %d", i, fw.Face, i+1)
		}
		if fw.Weight != 1.0 {
			t.Errorf("face %d weight = %v, want 1.0", fw.Face, fw.Weight)
		}
	}
	if !slices.Equal(d.Faces(), sixFaces()) {
		t.Errorf("Faces() = %v, want %v", d.Faces(), sixFaces())
	}
	if d.Len() != 6 {
		t.Errorf("Len() = %d, want 6", d.Len())
	}
}

func TestNewDie_Errors(t *testing.T) {
	tests := []struct {
		name  string
		faces []float64
		want  error
	}{
		{"nil", nil, ErrInvalidArgumentType},
		{"empty", []float64{}, ErrInvalidArgumentType},
		{"nan", []float64{1, math.NaN()}, ErrInvalidArgumentType},
		{"duplicate", []float64{1, 2, 2}, ErrDuplicateValue},
		{"duplicate non-adjacent", []float64{3, 1, 2, 3}, ErrDuplicateValue},
	}
	for _, tt := range tests {
		_, err := NewDie(tt.faces, WithSource(rng.New(1)))
		if !errors.Is(err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestNewDie_CopiesFaces(t *testing.T) {
	faces := []string{"H", "T"}
	d, err := NewDie(faces, WithSource(rng.New(1)))
	if err != nil {
		t.Fatalf("NewDie: %v", err)
	}
	faces[0] = "X"
	if d.Faces()[0] != "H" {
		t.Errorf("die faces changed with caller slice: %v", d.Faces())
	}
}

func TestNewDie_DefaultSource(t *testing.T) {
	d, err := NewDie(sixFaces())
	if err != nil {
		t.Fatalf("NewDie: %v", err)
	}
	rolls, err := d.Roll(5)
	if err != nil {
		t.Fatalf("Roll: %v", err)
	}
	if len(rolls) != 5 {
		t.Errorf("expected 5 rolls, got %d", len(rolls))
	}
}

func TestSetWeight(t *testing.T) {
	d := newTestDie(t, sixFaces(), 1)

	if err := d.SetWeight(1, 3); err != nil {
		t.Fatalf("SetWeight: %v", err)
	}
	if w, ok := d.Weight(1); !ok || w != 3 {
		t.Errorf("Weight(1) = %v, %v; want 3, true", w, ok)
	}
	for _, fw := range d.Show() {
		if fw.Face != 1 && fw.Weight != 1.0 {
			t.Errorf("face %d weight changed to %v", fw.Face, fw.Weight)
		}
	}

	if err := d.SetWeight(2, 0); err != nil {
		t.Fatalf("SetWeight zero: %v", err)
	}
	if w, _ := d.Weight(2); w != 0 {
		t.Errorf("Weight(2) = %v, want 0", w)
	}
}

func TestSetWeight_Errors(t *testing.T) {
	d := newTestDie(t, sixFaces(), 1)

	tests := []struct {
		name   string
		face   int
		weight float64
		want   error
	}{
		{"unknown face", 7, 1, ErrUnknownFace},
		{"nan", 1, math.NaN(), ErrNonNumericWeight},
		{"inf", 1, math.Inf(1), ErrNonNumericWeight},
		{"negative", 1, -0.5, ErrNegativeWeight},
	}
	for _, tt := range tests {
		if err := d.SetWeight(tt.face, tt.weight); !errors.Is(err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.name, err, tt.want)
		}
	}
	if w, _ := d.Weight(1); w != 1.0 {
		t.Errorf("failed updates changed weight to %v", w)
	}
}

func TestParseWeight(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"2", 2, false},
		{" 0.5 ", 0.5, false},
		{"1e3", 1000, false},
		{"0", 0, false},
		{"heavy", 0, true},
		{"", 0, true},
		{"NaN", 0, true},
		{"Inf", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseWeight(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrNonNumericWeight) {
				t.Errorf("ParseWeight(%q) err = %v, want ErrNonNumericWeight", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseWeight(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestRoll_LengthAndMembership(t *testing.T) {
	d := newTestDie(t, sixFaces(), 7)

	rolls, err := d.Roll(10)
	if err != nil {
		t.Fatalf("Roll: %v", err)
	}
	if len(rolls) != 10 {
		t.Fatalf("expected 10 rolls, got %d", len(rolls))
	}
	for _, r := range rolls {
		if !slices.Contains(sixFaces(), r) {
			t.Errorf("roll %d not in face set", r)
		}
	}
}

func TestRoll_InvalidCount(t *testing.T) {
	d := newTestDie(t, sixFaces(), 1)
	for _, n := range []int{0, -1, MaxRolls + 1, math.MaxInt} {
		if _, err := d.Roll(n); !errors.Is(err, ErrInvalidRollCount) {
			t.Errorf("Roll(%d) err = %v, want ErrInvalidRollCount", n, err)
		}
	}
}

func TestRoll_SingleViableFace(t *testing.T) {
	d := newTestDie(t, sixFaces(), 3)
	for _, f := range sixFaces() {
		if f != 4 {
			if err := d.SetWeight(f, 0); err != nil {
				t.Fatalf("SetWeight: %v", err)
			}
		}
	}

	rolls, err := d.Roll(5)
	if err != nil {
		t.Fatalf("Roll: %v", err)
	}
	if !slices.Equal(rolls, []int{4, 4, 4, 4, 4}) {
		t.Errorf("rolls = %v, want five 4s", rolls)
	}
}

func TestRoll_NoViableOutcome(t *testing.T) {
	d := newTestDie(t, []int{1, 2}, 1)
	_ = d.SetWeight(1, 0)
	_ = d.SetWeight(2, 0)

	if _, err := d.Roll(1); !errors.Is(err, ErrNoViableOutcome) {
		t.Fatalf("err = %v, want ErrNoViableOutcome", err)
	}
}

func TestRoll_SkipsZeroWeightFaces(t *testing.T) {
	// Weights 1,0,1 give cumulative bounds 1,1,2 over a total of 2.
	src := &scriptedSource{vals: []float64{0.0, 0.49, 0.5, 0.99}}
	d, err := NewDie([]int{1, 2, 3}, WithSource(src))
	if err != nil {
		t.Fatalf("NewDie: %v", err)
	}
	_ = d.SetWeight(2, 0)

	rolls, err := d.Roll(4)
	if err != nil {
		t.Fatalf("Roll: %v", err)
	}
	if want := []int{1, 1, 3, 3}; !slices.Equal(rolls, want) {
		t.Errorf("rolls = %v, want %v", rolls, want)
	}
}

func TestRoll_Distribution(t *testing.T) {
	d, err := NewDie([]string{"a", "b", "c"}, WithSource(rng.New(12345)))
	if err != nil {
		t.Fatalf("NewDie: %v", err)
	}
	_ = d.SetWeight("a", 70)
	_ = d.SetWeight("b", 20)
	_ = d.SetWeight("c", 10)

	const trials = 10000
	rolls, err := d.Roll(trials)
	if err != nil {
		t.Fatalf("Roll: %v", err)
	}
	counts := map[string]int{}
	for _, r := range rolls {
		counts[r]++
	}

	// With 10k trials, expect roughly 70%/20%/10% ± some margin.
	if counts["a"] < 6000 || counts["a"] > 8000 {
		t.Errorf("expected ~7000 for weight 70, got %d", counts["a"])
	}
	if counts["b"] < 1000 || counts["b"] > 3000 {
		t.Errorf("expected ~2000 for weight 20, got %d", counts["b"])
	}
	if counts["c"] < 200 || counts["c"] > 1800 {
		t.Errorf("expected ~1000 for weight 10, got %d", counts["c"])
	}
}

func TestRoll_Deterministic(t *testing.T) {
	a := newTestDie(t, sixFaces(), 42)
	b := newTestDie(t, sixFaces(), 42)

	ra, _ := a.Roll(20)
	rb, _ := b.Roll(20)
	if !slices.Equal(ra, rb) {
		t.Errorf("same seed gave %v and %v", ra, rb)
	}
}

func TestShow_ReturnsCopy(t *testing.T) {
	d := newTestDie(t, sixFaces(), 1)

	shown := d.Show()
	shown[0].Weight = 99
	if w, _ := d.Weight(1); w != 1.0 {
		t.Errorf("mutating Show() result changed die weight to %v", w)
	}

	faces := d.Faces()
	faces[0] = 99
	if d.Faces()[0] != 1 {
		t.Error("mutating Faces() result changed die faces")
	}
}
