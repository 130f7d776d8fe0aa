// Package state manages the mutable simulation state and weight lookups
// with override layering (runtime weights override base definitions).
package state

import "github.com/nathoo/dicelab/types"

// Defs holds the immutable simulation definitions loaded from a file.
type Defs struct {
	Sim  types.SimDef
	Dice map[string]types.DieDef
	Kind types.FaceKind
}

// NewState creates a fresh simulation state from definitions.
func NewState(defs *Defs) *types.State {
	return &types.State{
		Seed:        defs.Sim.Seed,
		Weights:     map[string]map[string]float64{},
		PlayWeights: map[string]map[string]float64{},
		CommandLog:  []string{},
	}
}

// DieIDs returns the distinct die IDs used by the simulation, in the order
// they first appear as columns.
func DieIDs(defs *Defs) []string {
	seen := map[string]bool{}
	var ids []string
	for _, id := range defs.Sim.Dice {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// GetWeight returns the effective weight of a face, checking runtime
// overrides first, then the base definition. Faces without an explicit
// weight weigh 1.0. Returns false if the die or face does not exist.
func GetWeight(s *types.State, defs *Defs, dieID, face string) (float64, bool) {
	def, ok := defs.Dice[dieID]
	if !ok || !hasFace(def, face) {
		return 0, false
	}
	if w, ok := s.Weights[dieID][face]; ok {
		return w, true
	}
	if w, ok := def.Weights[face]; ok {
		return w, true
	}
	return 1.0, true
}

// SetWeight records a runtime weight override.
func SetWeight(s *types.State, dieID, face string, weight float64) {
	if s.Weights == nil {
		s.Weights = map[string]map[string]float64{}
	}
	if s.Weights[dieID] == nil {
		s.Weights[dieID] = map[string]float64{}
	}
	s.Weights[dieID][face] = weight
}

// EffectiveWeights returns the full weight table for every die in the
// simulation, with runtime overrides applied.
func EffectiveWeights(s *types.State, defs *Defs) map[string]map[string]float64 {
	out := map[string]map[string]float64{}
	for _, id := range DieIDs(defs) {
		def := defs.Dice[id]
		ws := make(map[string]float64, len(def.Faces))
		for _, face := range def.Faces {
			ws[face], _ = GetWeight(s, defs, id, face)
		}
		out[id] = ws
	}
	return out
}

// CopyWeights returns a deep copy of a weight table.
func CopyWeights(w map[string]map[string]float64) map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(w))
	for id, faces := range w {
		m := make(map[string]float64, len(faces))
		for f, v := range faces {
			m[f] = v
		}
		out[id] = m
	}
	return out
}

func hasFace(def types.DieDef, face string) bool {
	for _, f := range def.Faces {
		if f == face {
			return true
		}
	}
	return false
}
