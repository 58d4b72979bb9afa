package query

import (
	"github.com/consensys/gnark/frontend"
)

// groupFlags returns the group boundary column of a key column whose equal
// values are contiguous: flags[0] = 1 and flags[i] = 1 exactly when
// key[i] != key[i-1]. The inverse witness inside IsZero pins the flag in
// both directions, so neither a missed nor an invented boundary satisfies
// the constraints.
//
// Plan validation normally guarantees the contiguity precondition; with
// checkSorted the gate instead re-proves that the key column is
// nondecreasing.
func (cfg *Config) groupFlags(key []frontend.Variable, checkSorted bool) []frontend.Variable {
	api := cfg.api
	n := len(key)
	flags := make([]frontend.Variable, n)
	if n == 0 {
		return flags
	}
	flags[0] = 1
	for i := 1; i < n; i++ {
		diff := api.Sub(key[i], key[i-1])
		flags[i] = api.Sub(1, api.IsZero(diff))
		if checkSorted {
			cfg.AssertInRange(diff, cfg.WordBits())
		}
	}
	return flags
}
