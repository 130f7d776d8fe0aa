// Package save implements JSON serialization and deserialization of simulation state.
package save

import (
	"encoding/json"
	"fmt"

	"github.com/nathoo/dicelab/engine/montecarlo"
	"github.com/nathoo/dicelab/engine/rng"
	"github.com/nathoo/dicelab/engine/state"
	"github.com/nathoo/dicelab/types"
)

// Version is the save format written by Save.
const Version = 1

// SaveData is the JSON-serializable save format.
type SaveData struct {
	Version      int                           `json:"version"`
	Simulation   string                        `json:"simulation"`
	Seed         int64                         `json:"seed"`
	RNGPosition  int64                         `json:"rng_position"`
	Plays        int                           `json:"plays"`
	LastRolls    int                           `json:"last_rolls"`
	PlayPosition int64                         `json:"play_position"`
	PlayWeights  map[string]map[string]float64 `json:"play_weights"`
	Weights      map[string]map[string]float64 `json:"weights"`
	CommandLog   []string                      `json:"command_log"`
}

// Save serializes simulation state to JSON bytes.
func Save(s *types.State, defs *state.Defs) ([]byte, error) {
	data := SaveData{
		Version:      Version,
		Simulation:   defs.Sim.Title,
		Seed:         s.Seed,
		RNGPosition:  s.RNGPosition,
		Plays:        s.Plays,
		LastRolls:    s.LastRolls,
		PlayPosition: s.PlayPosition,
		PlayWeights:  s.PlayWeights,
		Weights:      s.Weights,
		CommandLog:   s.CommandLog,
	}
	return json.MarshalIndent(data, "", "  ")
}

// Load deserializes JSON bytes into SaveData.
func Load(data []byte) (*SaveData, error) {
	var sd SaveData
	if err := json.Unmarshal(data, &sd); err != nil {
		return nil, err
	}
	if sd.Version > Version {
		return nil, fmt.Errorf("save format version %d is newer than supported version %d", sd.Version, Version)
	}
	if sd.LastRolls < 0 || sd.PlayPosition < 0 || sd.RNGPosition < sd.PlayPosition {
		return nil, fmt.Errorf("save has inconsistent play positions (play %d, rng %d, rolls %d)",
			sd.PlayPosition, sd.RNGPosition, sd.LastRolls)
	}
	if sd.RNGPosition > rng.MaxPosition || sd.LastRolls > montecarlo.MaxRolls {
		return nil, fmt.Errorf("save positions out of range (rng %d, rolls %d)", sd.RNGPosition, sd.LastRolls)
	}
	// Ensure maps are never nil after load.
	if sd.PlayWeights == nil {
		sd.PlayWeights = map[string]map[string]float64{}
	}
	if sd.Weights == nil {
		sd.Weights = map[string]map[string]float64{}
	}
	if sd.CommandLog == nil {
		sd.CommandLog = []string{}
	}
	return &sd, nil
}

// ApplySave applies loaded save data onto a state. The engine must be
// reloaded afterwards to rebuild dice and results.
func ApplySave(s *types.State, sd *SaveData) {
	s.Seed = sd.Seed
	s.RNGPosition = sd.RNGPosition
	s.Plays = sd.Plays
	s.LastRolls = sd.LastRolls
	s.PlayPosition = sd.PlayPosition
	s.PlayWeights = state.CopyWeights(sd.PlayWeights)
	s.Weights = state.CopyWeights(sd.Weights)
	s.CommandLog = sd.CommandLog
}
