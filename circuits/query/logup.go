package query

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/multicommit"
)

// assertWeightedMultisetEqual proves that the left rows, each counted with
// its weight, form the same multiset as the right rows counted with theirs.
// Rows are folded into fingerprints with commitment derived coefficients and
// compared through a log derivative sum
//
//	sum_i leftW[i]/(ch - fp(left_i)) == sum_j rightW[j]/(ch - fp(right_j))
//
// with the challenge drawn after committing to every cell and weight on both
// sides. Zero weights drop a row from its side.
func (cfg *Config) assertWeightedMultisetEqual(left [][]frontend.Variable, leftW []frontend.Variable, right [][]frontend.Variable, rightW []frontend.Variable) {
	if len(left) != len(right) {
		panic("query: multiset column count mismatch")
	}
	columns := len(left)
	if columns == 0 {
		panic("query: multiset without columns")
	}
	nLeft := len(leftW)
	nRight := len(rightW)
	for _, col := range left {
		if len(col) != nLeft {
			panic("query: multiset left length mismatch")
		}
	}
	for _, col := range right {
		if len(col) != nRight {
			panic("query: multiset right length mismatch")
		}
	}
	if nLeft == 0 && nRight == 0 {
		return
	}

	var committed []frontend.Variable
	for _, col := range left {
		committed = append(committed, col...)
	}
	committed = append(committed, leftW...)
	for _, col := range right {
		committed = append(committed, col...)
	}
	committed = append(committed, rightW...)

	api := cfg.api
	multicommit.WithCommitment(api, func(api frontend.API, commitment frontend.Variable) error {
		coeffs, challenge := foldCoefficients(api, columns, commitment)
		row := make([]frontend.Variable, columns)
		var lp frontend.Variable = 0
		for i := 0; i < nLeft; i++ {
			for c := range left {
				row[c] = left[c][i]
			}
			lp = api.Add(lp, api.DivUnchecked(leftW[i], api.Sub(challenge, foldRow(api, coeffs, row))))
		}
		var rp frontend.Variable = 0
		for j := 0; j < nRight; j++ {
			for c := range right {
				row[c] = right[c][j]
			}
			rp = api.Add(rp, api.DivUnchecked(rightW[j], api.Sub(challenge, foldRow(api, coeffs, row))))
		}
		api.AssertIsEqual(lp, rp)
		return nil
	}, committed...)
}
