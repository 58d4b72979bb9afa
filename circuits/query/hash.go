package query

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
)

// bindCommitment proves commitment opens to the given columns. The digest is
// a MiMC sponge over the cells in column major order, matching the out of
// circuit commitment in the witness package. A table with no cells commits
// to zero.
func bindCommitment(api frontend.API, commitment frontend.Variable, cols [][]frontend.Variable) {
	cells := 0
	for _, col := range cols {
		cells += len(col)
	}
	if cells == 0 {
		api.AssertIsEqual(commitment, 0)
		return
	}
	h, err := mimc.NewMiMC(api)
	if err != nil {
		panic(err)
	}
	for _, col := range cols {
		h.Write(col...)
	}
	api.AssertIsEqual(commitment, h.Sum())
}
