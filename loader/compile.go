// Package loader loads Lua or YAML simulation definitions into Go structs.
// The Lua VM is discarded after loading; nothing scripted runs at roll time.
package loader

import (
	"fmt"
	"math"
	"strconv"

	"github.com/nathoo/dicelab/engine/montecarlo"
	"github.com/nathoo/dicelab/engine/state"
	"github.com/nathoo/dicelab/types"
	lua "github.com/yuin/gopher-lua"
)

// rawDie holds a die table before compilation.
type rawDie struct {
	id    string
	file  string
	table *lua.LTable
}

// document is a definition file in a source-independent shape. Face and
// weight values are float64, int or string; anything else is rejected by
// compile.
type document struct {
	title  string
	author string
	rolls  int
	seed   int64
	dice   []string
	defs   []dieDoc
}

type dieDoc struct {
	id      string
	source  string // file the die was defined in
	faces   []any
	weights []weightDoc
}

type weightDoc struct {
	face   any
	weight any
}

// unsupported marks a Lua value that has no face or weight meaning.
type unsupported string

// getString returns a string field from a Lua table, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	v := tbl.RawGetString(key)
	if s, ok := v.(lua.LString); ok {
		return string(s)
	}
	return ""
}

// maxExactInt is the largest magnitude a Lua number holds without
// losing integer precision.
const maxExactInt = 1 << 53

// getWhole returns an integer field from a Lua table, or 0 if missing.
// Fractional, non-finite and out of range values are errors.
func getWhole(tbl *lua.LTable, key string) (int64, error) {
	switch v := tbl.RawGetString(key).(type) {
	case *lua.LNilType:
		return 0, nil
	case lua.LNumber:
		f := float64(v)
		if f != math.Trunc(f) || math.Abs(f) > maxExactInt {
			return 0, fmt.Errorf("Simulation.%s must be a whole number within ±2^53, got %v", key, f)
		}
		return int64(f), nil
	default:
		return 0, fmt.Errorf("Simulation.%s must be a number, got %s", key, v.Type().String())
	}
}

// getTable returns a table field from a Lua table, or nil if missing.
func getTable(tbl *lua.LTable, key string) *lua.LTable {
	v := tbl.RawGetString(key)
	if t, ok := v.(*lua.LTable); ok {
		return t
	}
	return nil
}

// toGoValue converts a Lua face or weight to a Go value.
func toGoValue(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LNumber:
		return float64(val)
	case lua.LString:
		return string(val)
	default:
		return unsupported(v.Type().String())
	}
}

// document converts the collected Lua tables.
func (c *collector) document() (*document, error) {
	if c.sim == nil {
		return nil, fmt.Errorf("no Simulation definition found")
	}

	rolls, err := getWhole(c.sim, "rolls")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.simFile, err)
	}
	if rolls > montecarlo.MaxRolls {
		return nil, fmt.Errorf("%s: Simulation.rolls must be at most %d, got %d", c.simFile, montecarlo.MaxRolls, rolls)
	}
	seed, err := getWhole(c.sim, "seed")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.simFile, err)
	}

	doc := &document{
		title:  getString(c.sim, "title"),
		author: getString(c.sim, "author"),
		rolls:  int(rolls),
		seed:   seed,
	}
	if t := getTable(c.sim, "dice"); t != nil {
		for i := 1; i <= t.MaxN(); i++ {
			s, ok := t.RawGetInt(i).(lua.LString)
			if !ok {
				return nil, fmt.Errorf("%s: Simulation.dice[%d] must be a die ID string", c.simFile, i)
			}
			doc.dice = append(doc.dice, string(s))
		}
	}

	for _, rd := range c.dice {
		dd := dieDoc{id: rd.id, source: rd.file}
		if t := getTable(rd.table, "faces"); t != nil {
			for i := 1; i <= t.MaxN(); i++ {
				dd.faces = append(dd.faces, toGoValue(t.RawGetInt(i)))
			}
		}
		if t := getTable(rd.table, "weights"); t != nil {
			t.ForEach(func(k, v lua.LValue) {
				dd.weights = append(dd.weights, weightDoc{face: toGoValue(k), weight: toGoValue(v)})
			})
		}
		doc.defs = append(doc.defs, dd)
	}
	return doc, nil
}

// compile converts a document into Defs. Faces become canonical labels and
// the face kind is fixed for the whole simulation.
func compile(doc *document) (*state.Defs, error) {
	ve := &ValidationError{}
	defs := &state.Defs{
		Sim: types.SimDef{
			Title:  doc.title,
			Author: doc.author,
			Dice:   doc.dice,
			Rolls:  doc.rolls,
			Seed:   doc.seed,
		},
		Dice: map[string]types.DieDef{},
	}

	kind := types.FaceUnknown
	mixed := false
	for _, dd := range doc.defs {
		if _, dup := defs.Dice[dd.id]; dup {
			ve.Errors = append(ve.Errors, fmt.Sprintf("die %q defined more than once (again in %s)", dd.id, dd.source))
			continue
		}
		def := types.DieDef{ID: dd.id, Faces: []string{}, Weights: map[string]float64{}}
		for i, f := range dd.faces {
			label, k, err := faceLabel(f)
			if err != nil {
				ve.Errors = append(ve.Errors, fmt.Sprintf("die %q face %d: %v", dd.id, i+1, err))
				continue
			}
			switch {
			case kind == types.FaceUnknown:
				kind = k
			case kind != k:
				mixed = true
			}
			def.Faces = append(def.Faces, label)
		}
		defs.Dice[dd.id] = def
	}
	if mixed {
		ve.Errors = append(ve.Errors, "faces mix numbers and text; every die must use one kind")
	}
	defs.Kind = kind

	// Weights are labelled once the kind is known, so "6" and 6 name the
	// same numeric face.
	for _, dd := range doc.defs {
		def, ok := defs.Dice[dd.id]
		if !ok {
			continue
		}
		for _, wd := range dd.weights {
			label, err := weightKey(wd.face, kind)
			if err != nil {
				ve.Errors = append(ve.Errors, fmt.Sprintf("die %q weight key: %v", dd.id, err))
				continue
			}
			w, err := weightValue(wd.weight)
			if err != nil {
				ve.Errors = append(ve.Errors, fmt.Sprintf("die %q weight for face %s: %v", dd.id, label, err))
				continue
			}
			def.Weights[label] = w
		}
	}

	if len(ve.Errors) > 0 {
		return nil, ve
	}
	return defs, nil
}

// faceLabel returns the canonical label and kind of a face value.
func faceLabel(v any) (string, types.FaceKind, error) {
	switch f := v.(type) {
	case float64:
		return strconv.FormatFloat(f, 'g', -1, 64), types.FaceNumeric, nil
	case int:
		return strconv.FormatFloat(float64(f), 'g', -1, 64), types.FaceNumeric, nil
	case int64:
		return strconv.FormatFloat(float64(f), 'g', -1, 64), types.FaceNumeric, nil
	case uint64:
		return strconv.FormatFloat(float64(f), 'g', -1, 64), types.FaceNumeric, nil
	case string:
		return f, types.FaceText, nil
	case unsupported:
		return "", types.FaceUnknown, fmt.Errorf("%w: %s is not a number or string", montecarlo.ErrInvalidArgumentType, string(f))
	default:
		return "", types.FaceUnknown, fmt.Errorf("%w: %T is not a number or string", montecarlo.ErrInvalidArgumentType, v)
	}
}

func weightKey(v any, kind types.FaceKind) (string, error) {
	label, k, err := faceLabel(v)
	if err != nil {
		return "", err
	}
	if kind == types.FaceNumeric && k == types.FaceText {
		if f, err := strconv.ParseFloat(label, 64); err == nil {
			return strconv.FormatFloat(f, 'g', -1, 64), nil
		}
	}
	return label, nil
}

func weightValue(v any) (float64, error) {
	switch w := v.(type) {
	case float64:
		return w, nil
	case int:
		return float64(w), nil
	case int64:
		return float64(w), nil
	case uint64:
		return float64(w), nil
	case string:
		return montecarlo.ParseWeight(w)
	default:
		return 0, fmt.Errorf("%w: %v", montecarlo.ErrNonNumericWeight, v)
	}
}
