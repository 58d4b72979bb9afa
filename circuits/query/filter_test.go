package query

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/test"
)

type filterCircuit struct {
	Values    []frontend.Variable
	Carry     []frontend.Variable
	OutValues []frontend.Variable `gnark:",public"`
	OutCarry  []frontend.Variable `gnark:",public"`
	Count     frontend.Variable   `gnark:",public"`
	Threshold uint64
	Slack     uint8
	Capacity  int
}

func (c *filterCircuit) Define(api frontend.API) error {
	cfg := NewConfig(api)
	out, count := cfg.filterRows(c.Values, [][]frontend.Variable{c.Carry}, c.Threshold, c.Slack, c.Capacity)
	for i := range c.OutValues {
		api.AssertIsEqual(out[0][i], c.OutValues[i])
		api.AssertIsEqual(out[1][i], c.OutCarry[i])
	}
	api.AssertIsEqual(count, c.Count)
	return nil
}

func filterShell(rows, capacity int) *filterCircuit {
	return &filterCircuit{
		Values:    make([]frontend.Variable, rows),
		Carry:     make([]frontend.Variable, rows),
		OutValues: make([]frontend.Variable, capacity),
		OutCarry:  make([]frontend.Variable, capacity),
		Threshold: 30,
		Slack:     5,
		Capacity:  capacity,
	}
}

func TestFilterRows(t *testing.T) {
	assert := test.NewAssert(t)
	assert.CheckCircuit(filterShell(5, 3),
		test.WithValidAssignment(&filterCircuit{
			Values:    toVars(25, 34, 28, 61, 22),
			Carry:     toVars(1, 2, 3, 4, 5),
			OutValues: toVars(25, 28, 22),
			OutCarry:  toVars(1, 3, 5),
			Count:     3,
		}),
		// Hiding a matching row, reordering the window or shading the count
		// must all fail.
		test.WithInvalidAssignment(&filterCircuit{
			Values:    toVars(25, 34, 28, 61, 22),
			Carry:     toVars(1, 2, 3, 4, 5),
			OutValues: toVars(25, 28, 0),
			OutCarry:  toVars(1, 3, 0),
			Count:     2,
		}),
		test.WithInvalidAssignment(&filterCircuit{
			Values:    toVars(25, 34, 28, 61, 22),
			Carry:     toVars(1, 2, 3, 4, 5),
			OutValues: toVars(28, 25, 22),
			OutCarry:  toVars(3, 1, 5),
			Count:     3,
		}),
		// Five matches cannot fit a three row window.
		test.WithInvalidAssignment(&filterCircuit{
			Values:    toVars(1, 2, 3, 4, 5),
			Carry:     toVars(1, 2, 3, 4, 5),
			OutValues: toVars(1, 2, 3),
			OutCarry:  toVars(1, 2, 3),
			Count:     3,
		}),
		test.WithCurves(ecc.BN254),
		test.WithBackends(backend.GROTH16),
	)
}

func TestFilterRowsPadding(t *testing.T) {
	assert := test.NewAssert(t)
	assert.CheckCircuit(filterShell(5, 4),
		test.WithValidAssignment(&filterCircuit{
			Values:    toVars(25, 34, 28, 61, 22),
			Carry:     toVars(1, 2, 3, 4, 5),
			OutValues: toVars(25, 28, 22, 0),
			OutCarry:  toVars(1, 3, 5, 0),
			Count:     3,
		}),
		// Padding rows are pinned to zero.
		test.WithInvalidAssignment(&filterCircuit{
			Values:    toVars(25, 34, 28, 61, 22),
			Carry:     toVars(1, 2, 3, 4, 5),
			OutValues: toVars(25, 28, 22, 9),
			OutCarry:  toVars(1, 3, 5, 0),
			Count:     3,
		}),
		test.WithCurves(ecc.BN254),
		test.WithBackends(backend.GROTH16),
	)
}

func TestFilterRowsEmptyWindow(t *testing.T) {
	assert := test.NewAssert(t)
	shell := filterShell(2, 0)
	assert.CheckCircuit(shell,
		test.WithValidAssignment(&filterCircuit{
			Values: toVars(31, 45),
			Carry:  toVars(1, 2),
			Count:  0,
		}),
		test.WithInvalidAssignment(&filterCircuit{
			Values: toVars(31, 29),
			Carry:  toVars(1, 2),
			Count:  0,
		}),
		test.WithCurves(ecc.BN254),
		test.WithBackends(backend.GROTH16),
	)
}
