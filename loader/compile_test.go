package loader

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/nathoo/dicelab/engine/montecarlo"
	"github.com/nathoo/dicelab/types"
	lua "github.com/yuin/gopher-lua"
)

// newTestVM creates a sandboxed Lua VM with the API registered and a fresh collector.
func newTestVM() (*lua.LState, *collector) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibs(L)
	sandbox(L)
	coll := &collector{}
	registerAPI(L, coll)
	return L, coll
}

func runLua(t *testing.T, code string) *collector {
	t.Helper()
	L, coll := newTestVM()
	defer L.Close()
	if err := L.DoString(code); err != nil {
		t.Fatal(err)
	}
	return coll
}

func TestRange(t *testing.T) {
	tests := []struct {
		code string
		want []float64
	}{
		{`return Range(1, 4)`, []float64{1, 2, 3, 4}},
		{`return Range(0, 1, 0.5)`, []float64{0, 0.5, 1}},
		{`return Range(3, 1, -1)`, []float64{3, 2, 1}},
		{`return Range(5, 1)`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			L, _ := newTestVM()
			defer L.Close()
			if err := L.DoString(tt.code); err != nil {
				t.Fatal(err)
			}
			tbl := L.CheckTable(-1)
			var got []float64
			for i := 1; i <= tbl.MaxN(); i++ {
				got = append(got, float64(tbl.RawGetInt(i).(lua.LNumber)))
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Range = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Range[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestRange_Errors(t *testing.T) {
	for _, code := range []string{`Range(1, 6, 0)`, `Range(1, 1e9)`, `Range("a", 2)`} {
		L, _ := newTestVM()
		if err := L.DoString(code); err == nil {
			t.Errorf("%s: expected error", code)
		}
		L.Close()
	}
}

func TestSimulation_DefinedTwice(t *testing.T) {
	L, _ := newTestVM()
	defer L.Close()
	err := L.DoString(`
		Simulation { title = "one", dice = { "d" } }
		Simulation { title = "two", dice = { "d" } }
	`)
	if err == nil {
		t.Fatal("expected error for second Simulation")
	}
}

func TestCompile_NumericFaces(t *testing.T) {
	coll := runLua(t, `
		Simulation { title = "T", author = "A", dice = { "d" }, rolls = 12, seed = 9 }
		Die "d" { faces = { 1, 2.5, 1e3 }, weights = { [2.5] = 4 } }
	`)
	doc, err := coll.document()
	if err != nil {
		t.Fatal(err)
	}
	defs, err := compile(doc)
	if err != nil {
		t.Fatal(err)
	}

	if defs.Sim.Title != "T" || defs.Sim.Author != "A" || defs.Sim.Rolls != 12 || defs.Sim.Seed != 9 {
		t.Errorf("unexpected sim: %+v", defs.Sim)
	}
	if defs.Kind != types.FaceNumeric {
		t.Errorf("Kind = %v, want numeric", defs.Kind)
	}
	d := defs.Dice["d"]
	want := []string{"1", "2.5", "1000"}
	for i := range want {
		if d.Faces[i] != want[i] {
			t.Errorf("face %d = %q, want %q", i, d.Faces[i], want[i])
		}
	}
	if d.Weights["2.5"] != 4 {
		t.Errorf("weight[2.5] = %v, want 4", d.Weights["2.5"])
	}
}

func TestCompile_DuplicateDie(t *testing.T) {
	coll := runLua(t, `
		Simulation { title = "T", dice = { "d" } }
		Die "d" { faces = { 1, 2 } }
		Die "d" { faces = { 3, 4 } }
	`)
	doc, err := coll.document()
	if err != nil {
		t.Fatal(err)
	}
	_, err = compile(doc)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	assertContains(t, ve.Errors, "defined more than once")
}

func TestCompile_BadValues(t *testing.T) {
	coll := runLua(t, `
		Simulation { title = "T", dice = { "d" } }
		Die "d" { faces = { 1, true }, weights = { [1] = "heavy" } }
	`)
	doc, err := coll.document()
	if err != nil {
		t.Fatal(err)
	}
	_, err = compile(doc)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	assertContains(t, ve.Errors, "boolean is not a number or string")
	assertContains(t, ve.Errors, "weight for face 1")
}

func TestDocument_DiceMustBeStrings(t *testing.T) {
	coll := runLua(t, `Simulation { title = "T", dice = { 6 } }`)
	if _, err := coll.document(); err == nil {
		t.Fatal("expected error for numeric die ID")
	}
}

func TestDocument_WholeNumberSettings(t *testing.T) {
	tests := []struct {
		name string
		sim  string
		want string
	}{
		{"fractional seed", `seed = 1.5`, "Simulation.seed must be a whole number"},
		{"huge seed", `seed = 1e300`, "Simulation.seed must be a whole number"},
		{"infinite seed", `seed = math.huge`, "Simulation.seed must be a whole number"},
		{"nan seed", `seed = 0/0`, "Simulation.seed must be a whole number"},
		{"string seed", `seed = "42"`, "Simulation.seed must be a number"},
		{"fractional rolls", `rolls = 2.5`, "Simulation.rolls must be a whole number"},
		{"huge rolls", `rolls = 1e20`, "Simulation.rolls must be a whole number"},
		{"too many rolls", `rolls = 10000001`, "Simulation.rolls must be at most"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coll := runLua(t, `Simulation { title = "T", dice = { "d" }, `+tt.sim+` }`)
			_, err := coll.document()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestDocument_WholeNumberSettingsAccepted(t *testing.T) {
	coll := runLua(t, `Simulation { title = "T", dice = { "d" }, rolls = 10000000, seed = -9007199254740992 }`)
	doc, err := coll.document()
	if err != nil {
		t.Fatal(err)
	}
	if doc.rolls != montecarlo.MaxRolls || doc.seed != -(1<<53) {
		t.Errorf("rolls = %d, seed = %d", doc.rolls, doc.seed)
	}
}

func TestFaceLabel(t *testing.T) {
	tests := []struct {
		in   any
		want string
		kind types.FaceKind
	}{
		{float64(6), "6", types.FaceNumeric},
		{6, "6", types.FaceNumeric},
		{0.25, "0.25", types.FaceNumeric},
		{"six", "six", types.FaceText},
		{"6", "6", types.FaceText},
	}
	for _, tt := range tests {
		got, kind, err := faceLabel(tt.in)
		if err != nil {
			t.Errorf("faceLabel(%v): %v", tt.in, err)
			continue
		}
		if got != tt.want || kind != tt.kind {
			t.Errorf("faceLabel(%v) = %q/%v, want %q/%v", tt.in, got, kind, tt.want, tt.kind)
		}
	}
	if _, _, err := faceLabel([]int{1}); !errors.Is(err, montecarlo.ErrInvalidArgumentType) {
		t.Errorf("faceLabel(slice) err = %v, want ErrInvalidArgumentType", err)
	}
}

func TestWeightKey_NumericStrings(t *testing.T) {
	got, err := weightKey("6.0", types.FaceNumeric)
	if err != nil || got != "6" {
		t.Errorf("weightKey(6.0, numeric) = %q, %v; want 6", got, err)
	}
	got, err = weightKey("6.0", types.FaceText)
	if err != nil || got != "6.0" {
		t.Errorf("weightKey(6.0, text) = %q, %v; want 6.0", got, err)
	}
}

func TestWeightValue(t *testing.T) {
	if w, err := weightValue("2.5"); err != nil || w != 2.5 {
		t.Errorf("weightValue(2.5) = %v, %v", w, err)
	}
	if w, err := weightValue(3); err != nil || w != 3 {
		t.Errorf("weightValue(3) = %v, %v", w, err)
	}
	if _, err := weightValue("lots"); !errors.Is(err, montecarlo.ErrNonNumericWeight) {
		t.Errorf("weightValue(lots) err = %v, want ErrNonNumericWeight", err)
	}
	if _, err := weightValue(unsupported("table")); !errors.Is(err, montecarlo.ErrNonNumericWeight) {
		t.Errorf("weightValue(table) err = %v, want ErrNonNumericWeight", err)
	}
	if w, _ := weightValue(math.Inf(1)); !math.IsInf(w, 1) {
		t.Errorf("weightValue(+Inf) = %v; infinity is rejected by validation, not here", w)
	}
}
