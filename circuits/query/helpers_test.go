package query

import "github.com/consensys/gnark/frontend"

func toVars(xs ...uint64) []frontend.Variable {
	out := make([]frontend.Variable, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}
