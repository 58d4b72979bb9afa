package query

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/multicommit"
)

// sortColumns proves the returned relation is the input relation reordered
// so the key column is monotone in the requested direction. The first
// returned column is the sorted key, followed by the carry columns moved
// through the same permutation.
//
// The permutation is proven with a grand product over row fingerprints,
//
//	prod_i (ch - fp(in_i)) == prod_i (ch - fp(out_i)),
//
// with the challenge drawn after committing to both sides, and monotonicity
// by range checking every adjacent key difference into the word domain. The
// hint sorts stably, so equal keys keep their input order.
func (cfg *Config) sortColumns(key []frontend.Variable, carry [][]frontend.Variable, desc bool) [][]frontend.Variable {
	api := cfg.api
	n := len(key)
	k := 1 + len(carry)

	out := make([][]frontend.Variable, k)
	if n == 0 {
		for c := range out {
			out[c] = nil
		}
		return out
	}

	order := 0
	if desc {
		order = 1
	}
	hintIn := make([]frontend.Variable, 0, 3+n*k)
	hintIn = append(hintIn, n, k, order)
	hintIn = append(hintIn, key...)
	for _, col := range carry {
		hintIn = append(hintIn, col...)
	}
	outs, err := api.Compiler().NewHint(sortHint, n*k, hintIn...)
	if err != nil {
		panic(err)
	}
	for c := 0; c < k; c++ {
		out[c] = outs[c*n : (c+1)*n]
	}

	in := make([][]frontend.Variable, 0, k)
	in = append(in, key)
	in = append(in, carry...)

	committed := make([]frontend.Variable, 0, 2*n*k)
	for _, col := range in {
		committed = append(committed, col...)
	}
	committed = append(committed, outs...)
	multicommit.WithCommitment(api, func(api frontend.API, commitment frontend.Variable) error {
		coeffs, challenge := foldCoefficients(api, k, commitment)
		row := make([]frontend.Variable, k)
		lhs := make([]frontend.Variable, n)
		rhs := make([]frontend.Variable, n)
		for i := 0; i < n; i++ {
			for c := range in {
				row[c] = in[c][i]
			}
			lhs[i] = api.Sub(challenge, foldRow(api, coeffs, row))
			for c := range out {
				row[c] = out[c][i]
			}
			rhs[i] = api.Sub(challenge, foldRow(api, coeffs, row))
		}
		api.AssertIsEqual(batchMul(api, lhs), batchMul(api, rhs))
		return nil
	}, committed...)

	sorted := out[0]
	for i := 1; i < n; i++ {
		diff := api.Sub(sorted[i], sorted[i-1])
		if desc {
			diff = api.Sub(sorted[i-1], sorted[i])
		}
		cfg.AssertInRange(diff, cfg.WordBits())
	}
	return out
}
