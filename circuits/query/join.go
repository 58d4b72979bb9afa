package query

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/lookup/logderivlookup"
)

// joinRelations proves the returned relation is exactly the inner join of
// two relations sorted ascending by their key columns, compacted into a zero
// padded window of the given capacity. The first returned column is the
// joined key, followed by the left carry columns and the right carry
// columns, and the returned count is the number of joined rows. Rows appear
// in (left row, right row) order, so duplicate keys yield the full cross
// product block.
//
// Exactness is the conjunction of four arguments:
//
//  1. validity: every active output row points at a left row and a right row
//     with equal keys, through table lookups that also bound the pointers;
//  2. multiplicity: a log derivative count ties how often each input row is
//     consumed to its claimed match count;
//  3. block structure: per input row, the claimed match count is proven
//     against the other side's sorted key column, with strict neighbours
//     around the matching block, or a non membership slot when there is no
//     match;
//  4. order: pointer pairs increase lexicographically, so no pair repeats.
//
// Together these force the active window to hold every matching pair exactly
// once.
func (cfg *Config) joinRelations(lkey []frontend.Variable, lcarry [][]frontend.Variable, rkey []frontend.Variable, rcarry [][]frontend.Variable, capacity int) ([][]frontend.Variable, frontend.Variable) {
	api := cfg.api
	nL := len(lkey)
	nR := len(rkey)
	width := 1 + len(lcarry) + len(rcarry)

	out := make([][]frontend.Variable, width)
	if nL == 0 || nR == 0 || capacity == 0 {
		for c := range out {
			out[c] = make([]frontend.Variable, capacity)
			for i := range out[c] {
				out[c][i] = 0
			}
		}
		if nL > 0 && nR > 0 {
			// A zero window is only sound when the keys never intersect.
			cfg.assertEmptyJoin(lkey, rkey)
		}
		return out, 0
	}

	hintIn := make([]frontend.Variable, 0, 3+nL+nR)
	hintIn = append(hintIn, nL, nR, capacity)
	hintIn = append(hintIn, lkey...)
	hintIn = append(hintIn, rkey...)
	outs, err := api.Compiler().NewHint(joinHint, 3*capacity+3*nL+3*nR, hintIn...)
	if err != nil {
		panic(err)
	}
	active := outs[:capacity]
	lptr := outs[capacity : 2*capacity]
	rptr := outs[2*capacity : 3*capacity]
	cntL := outs[3*capacity : 3*capacity+nL]
	firstR := outs[3*capacity+nL : 3*capacity+2*nL]
	missL := outs[3*capacity+2*nL : 3*capacity+3*nL]
	cntR := outs[3*capacity+3*nL : 3*capacity+3*nL+nR]
	firstL := outs[3*capacity+3*nL+nR : 3*capacity+3*nL+2*nR]
	missR := outs[3*capacity+3*nL+2*nR:]

	for i := 0; i < capacity; i++ {
		api.AssertIsBoolean(active[i])
		if i > 0 {
			// Active rows form a prefix of the window.
			api.AssertIsEqual(api.Mul(active[i], api.Sub(1, active[i-1])), 0)
		}
	}
	count := sum(api, active)

	leftKeys := newColumnTable(api, lkey)
	rightKeys := newColumnTable(api, rkey)

	// Validity: pointed-at keys agree on active rows; padding rows emit
	// zeros by construction.
	lkAt := leftKeys.Lookup(lptr...)
	rkAt := rightKeys.Lookup(rptr...)
	out[0] = make([]frontend.Variable, capacity)
	for i := 0; i < capacity; i++ {
		api.AssertIsEqual(api.Mul(active[i], api.Sub(lkAt[i], rkAt[i])), 0)
		out[0][i] = api.Mul(active[i], lkAt[i])
	}
	for c, col := range lcarry {
		at := newColumnTable(api, col).Lookup(lptr...)
		out[1+c] = make([]frontend.Variable, capacity)
		for i := 0; i < capacity; i++ {
			out[1+c][i] = api.Mul(active[i], at[i])
		}
	}
	for c, col := range rcarry {
		at := newColumnTable(api, col).Lookup(rptr...)
		out[1+len(lcarry)+c] = make([]frontend.Variable, capacity)
		for i := 0; i < capacity; i++ {
			out[1+len(lcarry)+c][i] = api.Mul(active[i], at[i])
		}
	}

	// Order: (lptr, rptr) strictly increases over active rows, so no pair
	// can appear twice. Inactive rows sit at pointer zero and are gated off.
	for i := 1; i < capacity; i++ {
		dL := api.Sub(lptr[i], lptr[i-1])
		cfg.AssertInRange(api.Select(active[i], dL, 0), cfg.WordBits())
		sameL := api.IsZero(dL)
		strict := api.Sub(api.Sub(rptr[i], rptr[i-1]), 1)
		cfg.AssertInRange(api.Select(api.Mul(active[i], sameL), strict, 0), cfg.WordBits())
	}

	// Block structure on both sides.
	cfg.assertMatchBlocks(lkey, rightKeys, nR, cntL, firstR, missL)
	cfg.assertMatchBlocks(rkey, leftKeys, nL, cntR, firstL, missR)

	// Multiplicity: each left row i is consumed by exactly cntL[i] active
	// rows, and symmetrically on the right.
	cfg.assertWeightedMultisetEqual(
		[][]frontend.Variable{lptr}, active,
		[][]frontend.Variable{indexColumn(nL)}, cntL,
	)
	cfg.assertWeightedMultisetEqual(
		[][]frontend.Variable{rptr}, active,
		[][]frontend.Variable{indexColumn(nR)}, cntR,
	)
	return out, count
}

// assertMatchBlocks proves, for every probe key, that its claimed match
// count and block start against the other side's sorted key column are
// correct: matching rows carry the probe key, the neighbours around the
// block carry strictly smaller and larger keys, and rows without a match
// exhibit a slot whose neighbours straddle the probe key.
func (cfg *Config) assertMatchBlocks(probe []frontend.Variable, other *logderivlookup.Table, nOther int, cnt, first, miss []frontend.Variable) {
	api := cfg.api
	w := cfg.WordBits()
	n := len(probe)

	has := make([]frontend.Variable, n)
	gateBefore := make([]frontend.Variable, n)
	gateAfter := make([]frontend.Variable, n)
	gatePrev := make([]frontend.Variable, n)
	gateAt := make([]frontend.Variable, n)
	lastIdx := make([]frontend.Variable, n)
	afterIdx := make([]frontend.Variable, n)
	beforeIdx := make([]frontend.Variable, n)
	prevIdx := make([]frontend.Variable, n)
	atIdx := make([]frontend.Variable, n)
	for i := 0; i < n; i++ {
		has[i] = api.Sub(1, api.IsZero(cnt[i]))
		no := api.Sub(1, has[i])
		// Unused evidence slots are pinned to zero so every lookup index
		// stays in bounds.
		api.AssertIsEqual(api.Mul(no, first[i]), 0)
		api.AssertIsEqual(api.Mul(has[i], miss[i]), 0)

		after := api.Add(first[i], cnt[i])
		atEnd := api.IsZero(api.Sub(after, nOther))
		atZero := api.IsZero(first[i])
		gateBefore[i] = api.Mul(has[i], api.Sub(1, atZero))
		gateAfter[i] = api.Mul(has[i], api.Sub(1, atEnd))
		lastIdx[i] = api.Select(has[i], api.Sub(after, 1), 0)
		afterIdx[i] = api.Select(gateAfter[i], after, 0)
		beforeIdx[i] = api.Select(gateBefore[i], api.Sub(first[i], 1), 0)

		missAtZero := api.IsZero(miss[i])
		missAtEnd := api.IsZero(api.Sub(miss[i], nOther))
		gatePrev[i] = api.Mul(no, api.Sub(1, missAtZero))
		gateAt[i] = api.Mul(no, api.Sub(1, missAtEnd))
		prevIdx[i] = api.Select(gatePrev[i], api.Sub(miss[i], 1), 0)
		atIdx[i] = api.Select(gateAt[i], miss[i], 0)
	}

	firstAt := other.Lookup(first...)
	lastAt := other.Lookup(lastIdx...)
	afterAt := other.Lookup(afterIdx...)
	beforeAt := other.Lookup(beforeIdx...)
	prevAt := other.Lookup(prevIdx...)
	slotAt := other.Lookup(atIdx...)
	for i := 0; i < n; i++ {
		key := probe[i]
		api.AssertIsEqual(api.Mul(has[i], api.Sub(firstAt[i], key)), 0)
		api.AssertIsEqual(api.Mul(has[i], api.Sub(lastAt[i], key)), 0)
		// Strict neighbours make the count exact: key > before, key < after.
		cfg.AssertInRange(api.Select(gateBefore[i], api.Sub(api.Sub(key, beforeAt[i]), 1), 0), w)
		cfg.AssertInRange(api.Select(gateAfter[i], api.Sub(api.Sub(afterAt[i], key), 1), 0), w)
		// Non membership: the slot neighbours straddle the key strictly.
		cfg.AssertInRange(api.Select(gatePrev[i], api.Sub(api.Sub(key, prevAt[i]), 1), 0), w)
		cfg.AssertInRange(api.Select(gateAt[i], api.Sub(api.Sub(slotAt[i], key), 1), 0), w)
	}
}

// assertEmptyJoin proves the two sorted key columns intersect nowhere, by
// requiring non membership evidence for every left key.
func (cfg *Config) assertEmptyJoin(lkey, rkey []frontend.Variable) {
	api := cfg.api
	nL := len(lkey)
	nR := len(rkey)
	zeros := make([]frontend.Variable, 2*nL)
	for i := range zeros {
		zeros[i] = 0
	}
	hintIn := make([]frontend.Variable, 0, 3+nL+nR)
	hintIn = append(hintIn, nL, nR, 0)
	hintIn = append(hintIn, lkey...)
	hintIn = append(hintIn, rkey...)
	outs, err := api.Compiler().NewHint(joinHint, 3*nL+3*nR, hintIn...)
	if err != nil {
		panic(err)
	}
	cntL := outs[:nL]
	missL := outs[2*nL : 3*nL]
	for i := 0; i < nL; i++ {
		api.AssertIsEqual(cntL[i], 0)
	}
	rightKeys := newColumnTable(api, rkey)
	cfg.assertMatchBlocks(lkey, rightKeys, nR, cntL, zeros[:nL], missL)
}

// newColumnTable loads a column into a lookup table so witness indices can
// address it.
func newColumnTable(api frontend.API, col []frontend.Variable) *logderivlookup.Table {
	t := logderivlookup.New(api)
	for i := range col {
		t.Insert(col[i])
	}
	return t
}

// indexColumn returns the constants 0..n-1 as a column.
func indexColumn(n int) []frontend.Variable {
	col := make([]frontend.Variable, n)
	for i := range col {
		col[i] = i
	}
	return col
}
