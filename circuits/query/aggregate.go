package query

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/lookup/logderivlookup"
	"github.com/consensys/gnark/std/math/cmp"
)

// Aggregate kinds, matching the plan encoding.
const (
	aggKindSum = iota
	aggKindCount
	aggKindMax
	aggKindMin
)

// aggregateGroups folds the value column per group, where groups are
// delimited by the boundary flags, and returns the dense group key column,
// the dense result column and the group count. Dense columns are zero padded
// past the count and emitted in first occurrence order.
//
// The fold runs as an accumulator recurrence that resets at every boundary.
// Dense cells come from a hint and are pinned through rank lookups: the
// running boundary sum ranks every row by its group, the dense key is
// checked at the first row of each group and the dense result at the last.
// Max and Min compare with the shared word comparator and keep the earlier
// row on ties.
func (cfg *Config) aggregateGroups(key, val, flags []frontend.Variable, kind int, groups int) (denseKey, denseVal []frontend.Variable, count frontend.Variable) {
	api := cfg.api
	n := len(key)
	if len(val) != n || len(flags) != n {
		panic("query: aggregate column length mismatch")
	}
	if n == 0 || groups == 0 {
		denseKey = make([]frontend.Variable, groups)
		denseVal = make([]frontend.Variable, groups)
		for g := 0; g < groups; g++ {
			denseKey[g] = 0
			denseVal[g] = 0
		}
		return denseKey, denseVal, 0
	}

	ordered := kind == aggKindMax || kind == aggKindMin
	if ordered {
		// The comparator below is only sound on word domain operands.
		for i := 0; i < n; i++ {
			cfg.AssertInRange(val[i], cfg.WordBits())
		}
	}

	acc := make([]frontend.Variable, n)
	switch kind {
	case aggKindCount:
		acc[0] = 1
	case aggKindSum, aggKindMax, aggKindMin:
		acc[0] = val[0]
	default:
		panic(fmt.Sprintf("query: unknown aggregate kind %d", kind))
	}
	for i := 1; i < n; i++ {
		var cont frontend.Variable
		var reset frontend.Variable
		switch kind {
		case aggKindSum:
			cont = api.Add(acc[i-1], val[i])
			reset = val[i]
		case aggKindCount:
			cont = api.Add(acc[i-1], 1)
			reset = 1
		case aggKindMax:
			better := cfg.comparator().IsLess(acc[i-1], val[i])
			// The comparator pins the indicator against the operands but not
			// to {0,1}; selection needs the stronger bound.
			api.AssertIsBoolean(better)
			cont = api.Select(better, val[i], acc[i-1])
			reset = val[i]
		case aggKindMin:
			better := cfg.comparator().IsLess(val[i], acc[i-1])
			api.AssertIsBoolean(better)
			cont = api.Select(better, val[i], acc[i-1])
			reset = val[i]
		}
		acc[i] = api.Select(flags[i], reset, cont)
	}

	// rank[i] is the group index of row i; the final running sum is the
	// group count.
	rank := make([]frontend.Variable, n)
	var run frontend.Variable = 0
	for i := 0; i < n; i++ {
		run = api.Add(run, flags[i])
		rank[i] = api.Sub(run, 1)
	}
	count = run

	hintIn := make([]frontend.Variable, 0, 3+3*n)
	hintIn = append(hintIn, n, groups, kind)
	hintIn = append(hintIn, key...)
	hintIn = append(hintIn, val...)
	hintIn = append(hintIn, flags...)
	outs, err := api.Compiler().NewHint(aggregateHint, 2*groups, hintIn...)
	if err != nil {
		panic(err)
	}
	denseKey = outs[:groups]
	denseVal = outs[groups:]

	keyTable := logderivlookup.New(api)
	valTable := logderivlookup.New(api)
	for g := 0; g < groups; g++ {
		keyTable.Insert(denseKey[g])
		valTable.Insert(denseVal[g])
	}
	// The rank lookups double as the capacity bound: a rank at or past the
	// group window has no table entry.
	keyAt := keyTable.Lookup(rank...)
	valAt := valTable.Lookup(rank...)
	for i := 0; i < n; i++ {
		api.AssertIsEqual(api.Mul(flags[i], api.Sub(keyAt[i], key[i])), 0)
		var last frontend.Variable
		if i == n-1 {
			last = 1
		} else {
			last = flags[i+1]
		}
		api.AssertIsEqual(api.Mul(last, api.Sub(valAt[i], acc[i])), 0)
	}

	// Dense cells past the group count are pinned to zero.
	groupCmp := cmp.NewBoundedComparator(api, big.NewInt(int64(groups)), true)
	for g := 0; g < groups; g++ {
		pad := groupCmp.IsLessEq(count, g)
		api.AssertIsEqual(api.Mul(pad, denseKey[g]), 0)
		api.AssertIsEqual(api.Mul(pad, denseVal[g]), 0)
	}
	return denseKey, denseVal, count
}
