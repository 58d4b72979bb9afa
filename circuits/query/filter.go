package query

import (
	"github.com/consensys/gnark/frontend"
)

// filterRows proves that the returned relation holds exactly the rows of the
// input relation whose value cell is below the threshold, compacted into a
// zero padded window of the given capacity. The first returned column is the
// kept value column, followed by the kept carry columns, and the returned
// count is the number of matching rows.
//
// Every value cell is constrained to the word domain first, then flagged
// with a two sided comparison, so rows can neither be smuggled in nor
// hidden. A weighted multiset argument ties the window content to the
// flagged rows; the order inside the window is the hint's scan order and is
// not part of the statement.
func (cfg *Config) filterRows(value []frontend.Variable, carry [][]frontend.Variable, threshold uint64, slackBits uint8, capacity int) ([][]frontend.Variable, frontend.Variable) {
	api := cfg.api
	n := len(value)
	k := 1 + len(carry)

	flags := make([]frontend.Variable, n)
	for i := 0; i < n; i++ {
		cfg.AssertInRange(value[i], cfg.WordBits())
		flags[i] = cfg.IsLess(value[i], threshold, slackBits)
	}
	count := sum(api, flags)

	out := make([][]frontend.Variable, k)
	if capacity == 0 || n == 0 {
		for c := range out {
			out[c] = make([]frontend.Variable, capacity)
			for i := range out[c] {
				out[c][i] = 0
			}
		}
		// An empty window still has to account for every flagged row.
		api.AssertIsEqual(count, 0)
		return out, count
	}

	hintIn := make([]frontend.Variable, 0, 3+n+n*k)
	hintIn = append(hintIn, n, k, capacity)
	hintIn = append(hintIn, flags...)
	hintIn = append(hintIn, value...)
	for _, col := range carry {
		hintIn = append(hintIn, col...)
	}
	outs, err := api.Compiler().NewHint(keepHint, capacity+capacity*k, hintIn...)
	if err != nil {
		panic(err)
	}
	active := outs[:capacity]
	for c := 0; c < k; c++ {
		out[c] = outs[capacity+c*capacity : capacity+(c+1)*capacity]
	}

	for i := 0; i < capacity; i++ {
		api.AssertIsBoolean(active[i])
		if i > 0 {
			// Active rows form a prefix of the window.
			api.AssertIsEqual(api.Mul(active[i], api.Sub(1, active[i-1])), 0)
		}
		// Padding rows are pinned to zero.
		pad := api.Sub(1, active[i])
		for c := 0; c < k; c++ {
			api.AssertIsEqual(api.Mul(pad, out[c][i]), 0)
		}
	}
	api.AssertIsEqual(sum(api, active), count)

	in := make([][]frontend.Variable, 0, k)
	in = append(in, value)
	in = append(in, carry...)
	cfg.assertWeightedMultisetEqual(in, flags, out, active)
	return out, count
}
