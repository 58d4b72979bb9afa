package query

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/test"
)

type aggregateCircuit struct {
	Key      []frontend.Variable
	Val      []frontend.Variable
	DenseKey []frontend.Variable `gnark:",public"`
	DenseVal []frontend.Variable `gnark:",public"`
	Count    frontend.Variable   `gnark:",public"`
	Kind     int
	Groups   int
}

func (c *aggregateCircuit) Define(api frontend.API) error {
	cfg := NewConfig(api)
	flags := cfg.groupFlags(c.Key, false)
	denseKey, denseVal, count := cfg.aggregateGroups(c.Key, c.Val, flags, c.Kind, c.Groups)
	for i := range c.DenseKey {
		api.AssertIsEqual(denseKey[i], c.DenseKey[i])
		api.AssertIsEqual(denseVal[i], c.DenseVal[i])
	}
	api.AssertIsEqual(count, c.Count)
	return nil
}

func aggregateShell(rows, groups, kind int) *aggregateCircuit {
	return &aggregateCircuit{
		Key:      make([]frontend.Variable, rows),
		Val:      make([]frontend.Variable, rows),
		DenseKey: make([]frontend.Variable, groups),
		DenseVal: make([]frontend.Variable, groups),
		Kind:     kind,
		Groups:   groups,
	}
}

func TestAggregateSum(t *testing.T) {
	assert := test.NewAssert(t)
	assert.CheckCircuit(aggregateShell(3, 3, aggKindSum),
		test.WithValidAssignment(&aggregateCircuit{
			Key:      toVars(1, 1, 2),
			Val:      toVars(3, 5, 10),
			DenseKey: toVars(1, 2, 0),
			DenseVal: toVars(8, 10, 0),
			Count:    2,
		}),
		test.WithInvalidAssignment(&aggregateCircuit{
			Key:      toVars(1, 1, 2),
			Val:      toVars(3, 5, 10),
			DenseKey: toVars(1, 2, 0),
			DenseVal: toVars(9, 10, 0),
			Count:    2,
		}),
		// Unused dense rows are pinned to zero.
		test.WithInvalidAssignment(&aggregateCircuit{
			Key:      toVars(1, 1, 2),
			Val:      toVars(3, 5, 10),
			DenseKey: toVars(1, 2, 0),
			DenseVal: toVars(8, 10, 7),
			Count:    2,
		}),
		test.WithInvalidAssignment(&aggregateCircuit{
			Key:      toVars(1, 1, 2),
			Val:      toVars(3, 5, 10),
			DenseKey: toVars(1, 3, 0),
			DenseVal: toVars(8, 10, 0),
			Count:    2,
		}),
		test.WithInvalidAssignment(&aggregateCircuit{
			Key:      toVars(1, 1, 2),
			Val:      toVars(3, 5, 10),
			DenseKey: toVars(1, 2, 0),
			DenseVal: toVars(8, 10, 0),
			Count:    3,
		}),
		test.WithCurves(ecc.BN254),
		test.WithBackends(backend.GROTH16),
	)
}

func TestAggregateCount(t *testing.T) {
	assert := test.NewAssert(t)
	assert.CheckCircuit(aggregateShell(3, 2, aggKindCount),
		test.WithValidAssignment(&aggregateCircuit{
			Key:      toVars(1, 1, 2),
			Val:      toVars(0, 0, 0),
			DenseKey: toVars(1, 2),
			DenseVal: toVars(2, 1),
			Count:    2,
		}),
		test.WithInvalidAssignment(&aggregateCircuit{
			Key:      toVars(1, 1, 2),
			Val:      toVars(0, 0, 0),
			DenseKey: toVars(1, 2),
			DenseVal: toVars(3, 0),
			Count:    2,
		}),
		test.WithCurves(ecc.BN254),
		test.WithBackends(backend.GROTH16),
	)
}

func TestAggregateMaxMin(t *testing.T) {
	assert := test.NewAssert(t)
	assert.CheckCircuit(aggregateShell(5, 2, aggKindMax),
		test.WithValidAssignment(&aggregateCircuit{
			Key:      toVars(5, 5, 5, 8, 8),
			Val:      toVars(4, 9, 2, 1, 1),
			DenseKey: toVars(5, 8),
			DenseVal: toVars(9, 1),
			Count:    2,
		}),
		// Claiming the first value instead of the maximum must fail.
		test.WithInvalidAssignment(&aggregateCircuit{
			Key:      toVars(5, 5, 5, 8, 8),
			Val:      toVars(4, 9, 2, 1, 1),
			DenseKey: toVars(5, 8),
			DenseVal: toVars(4, 1),
			Count:    2,
		}),
		test.WithCurves(ecc.BN254),
		test.WithBackends(backend.GROTH16),
	)
	assert.CheckCircuit(aggregateShell(5, 2, aggKindMin),
		test.WithValidAssignment(&aggregateCircuit{
			Key:      toVars(5, 5, 5, 8, 8),
			Val:      toVars(4, 9, 2, 1, 1),
			DenseKey: toVars(5, 8),
			DenseVal: toVars(2, 1),
			Count:    2,
		}),
		test.WithInvalidAssignment(&aggregateCircuit{
			Key:      toVars(5, 5, 5, 8, 8),
			Val:      toVars(4, 9, 2, 1, 1),
			DenseKey: toVars(5, 8),
			DenseVal: toVars(9, 1),
			Count:    2,
		}),
		test.WithCurves(ecc.BN254),
		test.WithBackends(backend.GROTH16),
	)
}

func TestAggregateGroupCapacity(t *testing.T) {
	assert := test.NewAssert(t)
	// Two groups cannot fit a one group budget.
	assert.CheckCircuit(aggregateShell(2, 1, aggKindSum),
		test.WithValidAssignment(&aggregateCircuit{
			Key:      toVars(4, 4),
			Val:      toVars(2, 3),
			DenseKey: toVars(4),
			DenseVal: toVars(5),
			Count:    1,
		}),
		test.WithInvalidAssignment(&aggregateCircuit{
			Key:      toVars(1, 2),
			Val:      toVars(1, 1),
			DenseKey: toVars(1),
			DenseVal: toVars(1),
			Count:    1,
		}),
		test.WithCurves(ecc.BN254),
		test.WithBackends(backend.GROTH16),
	)
}
