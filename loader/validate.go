package loader

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/nathoo/dicelab/engine/montecarlo"
	"github.com/nathoo/dicelab/engine/state"
	"github.com/nathoo/dicelab/types"
)

// ValidationError collects all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

// validate checks the compiled defs for referential integrity and sane
// weights. Warnings are printed to stderr and do not fail the load.
func validate(defs *state.Defs) error {
	ve := check(defs)

	// Print warnings to stderr.
	for _, w := range ve.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func check(defs *state.Defs) *ValidationError {
	ve := &ValidationError{}

	// Simulation title required.
	if defs.Sim.Title == "" {
		ve.Errors = append(ve.Errors, "Simulation.title is required")
	}
	if defs.Sim.Rolls < 0 {
		ve.Errors = append(ve.Errors, fmt.Sprintf("Simulation.rolls must not be negative, got %d", defs.Sim.Rolls))
	}
	if defs.Sim.Rolls > montecarlo.MaxRolls {
		ve.Errors = append(ve.Errors, fmt.Sprintf("Simulation.rolls must be at most %d, got %d", montecarlo.MaxRolls, defs.Sim.Rolls))
	}

	// Referenced dice exist.
	if len(defs.Sim.Dice) == 0 {
		ve.Errors = append(ve.Errors, "Simulation.dice must name at least one die")
	}
	used := map[string]bool{}
	for i, id := range defs.Sim.Dice {
		if _, ok := defs.Dice[id]; !ok {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"Simulation.dice[%d] refers to undefined die %q", i+1, id))
		}
		used[id] = true
	}

	ids := make([]string, 0, len(defs.Dice))
	for id := range defs.Dice {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		validateDie(defs.Dice[id], defs.Kind, ve)
		if !used[id] {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf("die %q is defined but never rolled", id))
		}
	}

	// Warnings: dice of different sizes rarely produce jackpots.
	sizes := map[int][]string{}
	for _, id := range state.DieIDs(defs) {
		if def, ok := defs.Dice[id]; ok {
			sizes[len(def.Faces)] = append(sizes[len(def.Faces)], id)
		}
	}
	if len(sizes) > 1 {
		var parts []string
		for _, id := range state.DieIDs(defs) {
			if def, ok := defs.Dice[id]; ok {
				parts = append(parts, fmt.Sprintf("%s=%d", id, len(def.Faces)))
			}
		}
		ve.Warnings = append(ve.Warnings, fmt.Sprintf(
			"dice have different face counts (%s)", strings.Join(parts, ", ")))
	}

	return ve
}

func validateDie(def types.DieDef, kind types.FaceKind, ve *ValidationError) {
	if len(def.Faces) == 0 {
		ve.Errors = append(ve.Errors, fmt.Sprintf("die %q has no faces", def.ID))
		return
	}

	faces := map[string]bool{}
	for _, f := range def.Faces {
		if faces[f] {
			ve.Errors = append(ve.Errors, fmt.Sprintf("die %q has duplicate face %s", def.ID, f))
		}
		faces[f] = true
		if kind == types.FaceNumeric && f == "NaN" {
			ve.Errors = append(ve.Errors, fmt.Sprintf("die %q has a NaN face", def.ID))
		}
		if kind == types.FaceText && f == "" {
			ve.Errors = append(ve.Errors, fmt.Sprintf("die %q has an empty face", def.ID))
		}
	}

	keys := make([]string, 0, len(def.Weights))
	for k := range def.Weights {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		w := def.Weights[k]
		if !faces[k] {
			ve.Errors = append(ve.Errors, fmt.Sprintf("die %q weight names unknown face %s", def.ID, k))
		}
		if math.IsNaN(w) || math.IsInf(w, 0) {
			ve.Errors = append(ve.Errors, fmt.Sprintf("die %q face %s weight must be finite", def.ID, k))
		} else if w < 0 {
			ve.Errors = append(ve.Errors, fmt.Sprintf("die %q face %s weight must not be negative", def.ID, k))
		}
	}

	// Faces without an explicit weight weigh 1.0.
	viable := false
	for f := range faces {
		w, ok := def.Weights[f]
		if !ok || w > 0 {
			viable = true
			break
		}
	}
	if !viable {
		ve.Errors = append(ve.Errors, fmt.Sprintf("die %q has no face with positive weight", def.ID))
	}
}
