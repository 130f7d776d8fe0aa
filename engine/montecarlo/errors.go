package montecarlo

import "errors"

// ErrInvalidArgumentType indicates a constructor was given input of the wrong shape:
// an empty or nil face set, a NaN face, an empty dice list, or a nil game.
var ErrInvalidArgumentType = errors.New("invalid argument type")

// ErrDuplicateValue indicates a face set contains two equal faces.
var ErrDuplicateValue = errors.New("faces must be distinct")

// ErrUnknownFace indicates a weight update named a face the die does not have.
var ErrUnknownFace = errors.New("unknown face")

// ErrNonNumericWeight indicates a weight is not a finite number.
var ErrNonNumericWeight = errors.New("weight is not a finite number")

// ErrNegativeWeight indicates a weight below zero.
var ErrNegativeWeight = errors.New("weight must be non-negative")

// ErrInvalidFormat indicates an unsupported results table form.
var ErrInvalidFormat = errors.New("form must be wide or narrow")

// ErrNoViableOutcome indicates every face of a die has zero weight.
var ErrNoViableOutcome = errors.New("no face has positive weight")

// ErrNoResultsAvailable indicates analysis was requested before any roll.
var ErrNoResultsAvailable = errors.New("no results available")

// ErrInvalidRollCount indicates a roll count below one or above MaxRolls.
var ErrInvalidRollCount = errors.New("roll count out of range")
