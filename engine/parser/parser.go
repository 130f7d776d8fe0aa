// Package parser converts command strings into Intent structs.
// Intentionally dumb: no grammar, just aliases and filler stripping.
package parser

import (
	"strings"

	"github.com/nathoo/dicelab/types"
)

var verbAliases = map[string]string{
	// Roll
	"r":     "roll",
	"play":  "roll",
	"throw": "roll",
	"toss":  "roll",
	"go":    "roll",

	// Show
	"table":   "show",
	"results": "show",
	"display": "show",

	// Analysis
	"jp":           "jackpot",
	"jackpots":     "jackpot",
	"counts":       "faces",
	"face_counts":  "faces",
	"combo":        "combos",
	"combinations": "combos",
	"combination":  "combos",
	"perm":         "perms",
	"permutations": "perms",
	"permutation":  "perms",
	"stats":        "summary",

	// Dice
	"w":       "weight",
	"set":     "weight",
	"die":     "dice",
	"inspect": "dice",

	// Help
	"?": "help",
	"h": "help",
}

// fillers are dropped from arguments: "roll 100 times", "weight d6 6 to 3".
var fillers = map[string]bool{
	"the": true, "times": true, "to": true, "=": true,
}

// identArgs is the number of leading arguments that name dice or faces.
// They are never treated as fillers, so a face called "to" still works.
var identArgs = map[string]int{
	"weight": 2,
	"dice":   1,
}

// Parse converts a raw command string into an Intent. The verb is
// lowercased; arguments keep their case so text faces match exactly.
func Parse(input string) types.Intent {
	input = strings.TrimSpace(input)
	if input == "" {
		return types.Intent{}
	}

	words := strings.Fields(input)
	words[0] = strings.ToLower(words[0])

	// Handle multi-word verb phrases before general parsing.
	words = expandMultiWordVerbs(words)

	// Apply verb aliases.
	if alias, ok := verbAliases[words[0]]; ok {
		words[0] = alias
	}

	return types.Intent{
		Verb: words[0],
		Args: stripFillers(words[1:], identArgs[words[0]]),
	}
}

// expandMultiWordVerbs handles "set weight", "face counts" etc.
func expandMultiWordVerbs(words []string) []string {
	if len(words) < 2 {
		return words
	}

	second := strings.ToLower(words[1])
	switch words[0] {
	case "set", "change":
		if second == "weight" {
			return append([]string{"weight"}, words[2:]...)
		}
	case "face":
		if second == "counts" {
			return append([]string{"faces"}, words[2:]...)
		}
	case "combo", "combination":
		if second == "counts" {
			return append([]string{"combos"}, words[2:]...)
		}
	case "permutation", "perm":
		if second == "counts" {
			return append([]string{"perms"}, words[2:]...)
		}
	case "show":
		if second == "dice" {
			return append([]string{"dice"}, words[2:]...)
		}
	}

	return words
}

// stripFillers removes filler words from the argument list, keeping the
// first keep arguments as typed.
func stripFillers(words []string, keep int) []string {
	result := make([]string, 0, len(words))
	for i, w := range words {
		if i < keep || !fillers[strings.ToLower(w)] {
			result = append(result, w)
		}
	}
	return result
}
