package witness

import (
	"fmt"
	"math/big"
	"runtime"

	"github.com/consensys/gnark-crypto/ecc"
	"golang.org/x/sync/errgroup"

	"github.com/provedb/zkquery/circuits/query"
	"github.com/provedb/zkquery/plan"
)

// parallelCells is the table size past which Assign converts columns in
// parallel, one task per column.
const parallelCells = 1 << 12

// Assign evaluates the plan over the table and fills a complete prover side
// assignment for the given curve. The returned Result carries the same
// claims as native integers, for callers that publish them alongside the
// proof.
func Assign(p *plan.Plan, t *Table, curve ecc.ID, opts ...query.Option) (*query.Circuit, *Result, error) {
	res, err := Run(p, t)
	if err != nil {
		return nil, nil, err
	}
	if w := query.WordBitsOf(opts...); w < 64 {
		limit := uint64(1) << uint(w)
		for c, col := range t.Cols {
			for i, v := range col {
				if v >= limit {
					return nil, nil, fmt.Errorf("%w: cell (%d,%d) is %d, outside %d bit words",
						ErrUnprovable, c, i, v, w)
				}
			}
		}
	}
	com, err := Commit(t, curve)
	if err != nil {
		return nil, nil, err
	}
	a, err := query.NewCircuit(p, opts...)
	if err != nil {
		return nil, nil, err
	}
	a.Commitment = com
	for i := range a.Counts {
		a.Counts[i] = res.Counts[i]
	}
	for j, col := range p.Output {
		for i := range a.Results[j] {
			a.Results[j][i] = res.Columns[col][i]
		}
	}
	if p.Rows*p.Cols >= parallelCells {
		var g errgroup.Group
		g.SetLimit(runtime.GOMAXPROCS(0))
		for c := range a.Columns {
			g.Go(func() error {
				for i := range a.Columns[c] {
					a.Columns[c][i] = t.Cols[c][i]
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, nil, err
		}
	} else {
		for c := range a.Columns {
			for i := range a.Columns[c] {
				a.Columns[c][i] = t.Cols[c][i]
			}
		}
	}
	return a, res, nil
}

// PublicAssignment builds the verifier side assignment from the public
// claims alone. Pass it to frontend.NewWitness with frontend.PublicOnly; the
// private columns stay unset.
func PublicAssignment(p *plan.Plan, commitment *big.Int, counts []uint64, results [][]uint64, opts ...query.Option) (*query.Circuit, error) {
	a, err := query.NewCircuit(p, opts...)
	if err != nil {
		return nil, err
	}
	if len(counts) != len(a.Counts) {
		return nil, fmt.Errorf("%w: %d counts, plan claims %d", ErrTable, len(counts), len(a.Counts))
	}
	if len(results) != len(a.Results) {
		return nil, fmt.Errorf("%w: %d result columns, plan outputs %d", ErrTable, len(results), len(a.Results))
	}
	a.Commitment = commitment
	for i := range a.Counts {
		a.Counts[i] = counts[i]
	}
	for j := range a.Results {
		if len(results[j]) != len(a.Results[j]) {
			return nil, fmt.Errorf("%w: result column %d has %d rows, plan outputs %d",
				ErrTable, j, len(results[j]), len(a.Results[j]))
		}
		for i := range a.Results[j] {
			a.Results[j][i] = results[j][i]
		}
	}
	return a, nil
}
