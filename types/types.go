// Package types defines the shared data structures for DiceLab.
// It holds type definitions only.
package types

import "time"

// Intent is the parsed representation of a command.
type Intent struct {
	Verb string
	Args []string
}

// Result is the output of a single engine step.
type Result struct {
	Output []string
	Events []Event
	Err    error // the underlying failure, if the command failed
}

// Event is emitted when a command changes the simulation.
type Event struct {
	Type string
	Data map[string]any
}

// FaceKind says how face labels are interpreted.
type FaceKind int

const (
	FaceUnknown FaceKind = iota
	FaceNumeric          // labels are canonical float64 strings
	FaceText
)

// DieDef is the definition of one die as loaded from a definition file.
type DieDef struct {
	ID      string
	Faces   []string           // canonical face labels, in definition order
	Weights map[string]float64 // face label → weight; missing faces weigh 1.0
}

// SimDef holds simulation metadata.
type SimDef struct {
	Title  string
	Author string
	Dice   []string // die IDs in column order; repeats share one die
	Rolls  int      // default roll count for "roll" without an argument
	Seed   int64    // 0 = pick a random seed at start
}

// State is the complete mutable simulation state.
type State struct {
	Seed         int64
	RNGPosition  int64
	Plays        int
	LastRolls    int                           // roll count of the most recent play, 0 if none
	PlayPosition int64                         // RNG position before the most recent play
	PlayWeights  map[string]map[string]float64 // die weights in effect for the most recent play
	Weights      map[string]map[string]float64 // current die weights: die ID → face → weight
	CommandLog   []string
}

// PlayRecord is one completed play as kept in the play history.
type PlayRecord struct {
	ID         int64
	Simulation string
	Rolls      int
	Dice       int
	Jackpots   int
	Seed       int64
	Results    [][]string // wide table as face labels
	PlayedAt   time.Time
}
