package query

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/test"
)

type joinCircuit struct {
	LKey     []frontend.Variable
	LCarry   []frontend.Variable
	RKey     []frontend.Variable
	RCarry   []frontend.Variable
	OutKey   []frontend.Variable `gnark:",public"`
	OutL     []frontend.Variable `gnark:",public"`
	OutR     []frontend.Variable `gnark:",public"`
	Count    frontend.Variable   `gnark:",public"`
	Capacity int
}

func (c *joinCircuit) Define(api frontend.API) error {
	cfg := NewConfig(api)
	out, count := cfg.joinRelations(
		c.LKey, [][]frontend.Variable{c.LCarry},
		c.RKey, [][]frontend.Variable{c.RCarry},
		c.Capacity,
	)
	for i := 0; i < c.Capacity; i++ {
		api.AssertIsEqual(out[0][i], c.OutKey[i])
		api.AssertIsEqual(out[1][i], c.OutL[i])
		api.AssertIsEqual(out[2][i], c.OutR[i])
	}
	api.AssertIsEqual(count, c.Count)
	return nil
}

func joinShell(nL, nR, capacity int) *joinCircuit {
	return &joinCircuit{
		LKey:     make([]frontend.Variable, nL),
		LCarry:   make([]frontend.Variable, nL),
		RKey:     make([]frontend.Variable, nR),
		RCarry:   make([]frontend.Variable, nR),
		OutKey:   make([]frontend.Variable, capacity),
		OutL:     make([]frontend.Variable, capacity),
		OutR:     make([]frontend.Variable, capacity),
		Capacity: capacity,
	}
}

func TestJoinRelations(t *testing.T) {
	assert := test.NewAssert(t)
	// L = {1,1,2} x R = {1,2,2}: key 1 pairs 2x1, key 2 pairs 1x2.
	assert.CheckCircuit(joinShell(3, 3, 5),
		test.WithValidAssignment(&joinCircuit{
			LKey:   toVars(1, 1, 2),
			LCarry: toVars(11, 12, 13),
			RKey:   toVars(1, 2, 2),
			RCarry: toVars(24, 25, 26),
			OutKey: toVars(1, 1, 2, 2, 0),
			OutL:   toVars(11, 12, 13, 13, 0),
			OutR:   toVars(24, 24, 25, 26, 0),
			Count:  4,
		}),
		// Dropping a matched pair undercounts row 2 of the left side.
		test.WithInvalidAssignment(&joinCircuit{
			LKey:   toVars(1, 1, 2),
			LCarry: toVars(11, 12, 13),
			RKey:   toVars(1, 2, 2),
			RCarry: toVars(24, 25, 26),
			OutKey: toVars(1, 1, 2, 0, 0),
			OutL:   toVars(11, 12, 13, 0, 0),
			OutR:   toVars(24, 24, 25, 0, 0),
			Count:  3,
		}),
		test.WithInvalidAssignment(&joinCircuit{
			LKey:   toVars(1, 1, 2),
			LCarry: toVars(11, 12, 13),
			RKey:   toVars(1, 2, 2),
			RCarry: toVars(24, 25, 26),
			OutKey: toVars(1, 1, 2, 2, 0),
			OutL:   toVars(11, 12, 13, 13, 0),
			OutR:   toVars(24, 24, 26, 25, 0),
			Count:  4,
		}),
		test.WithInvalidAssignment(&joinCircuit{
			LKey:   toVars(1, 1, 2),
			LCarry: toVars(11, 12, 13),
			RKey:   toVars(1, 2, 2),
			RCarry: toVars(24, 25, 26),
			OutKey: toVars(1, 1, 2, 2, 0),
			OutL:   toVars(11, 12, 13, 13, 0),
			OutR:   toVars(24, 24, 25, 26, 0),
			Count:  5,
		}),
		test.WithCurves(ecc.BN254),
		test.WithBackends(backend.GROTH16),
	)
}

func TestJoinRelationsDisjoint(t *testing.T) {
	assert := test.NewAssert(t)
	assert.CheckCircuit(joinShell(2, 2, 2),
		test.WithValidAssignment(&joinCircuit{
			LKey:   toVars(1, 3),
			LCarry: toVars(10, 30),
			RKey:   toVars(2, 4),
			RCarry: toVars(20, 40),
			OutKey: toVars(0, 0),
			OutL:   toVars(0, 0),
			OutR:   toVars(0, 0),
			Count:  0,
		}),
		test.WithInvalidAssignment(&joinCircuit{
			LKey:   toVars(1, 3),
			LCarry: toVars(10, 30),
			RKey:   toVars(2, 4),
			RCarry: toVars(20, 40),
			OutKey: toVars(0, 0),
			OutL:   toVars(0, 0),
			OutR:   toVars(0, 0),
			Count:  1,
		}),
		test.WithCurves(ecc.BN254),
		test.WithBackends(backend.GROTH16),
	)
}

func TestJoinRelationsCrossProduct(t *testing.T) {
	assert := test.NewAssert(t)
	// A single shared key yields the full 2x3 product.
	assert.CheckCircuit(joinShell(2, 3, 6),
		test.WithValidAssignment(&joinCircuit{
			LKey:   toVars(7, 7),
			LCarry: toVars(1, 2),
			RKey:   toVars(7, 7, 7),
			RCarry: toVars(5, 6, 7),
			OutKey: toVars(7, 7, 7, 7, 7, 7),
			OutL:   toVars(1, 1, 1, 2, 2, 2),
			OutR:   toVars(5, 6, 7, 5, 6, 7),
			Count:  6,
		}),
		test.WithInvalidAssignment(&joinCircuit{
			LKey:   toVars(7, 7),
			LCarry: toVars(1, 2),
			RKey:   toVars(7, 7, 7),
			RCarry: toVars(5, 6, 7),
			OutKey: toVars(7, 7, 7, 7, 7, 7),
			OutL:   toVars(1, 1, 1, 2, 2, 2),
			OutR:   toVars(5, 6, 7, 5, 6, 7),
			Count:  5,
		}),
		test.WithCurves(ecc.BN254),
		test.WithBackends(backend.GROTH16),
	)
}

func TestJoinRelationsZeroCapacity(t *testing.T) {
	assert := test.NewAssert(t)
	assert.CheckCircuit(joinShell(1, 1, 0),
		test.WithValidAssignment(&joinCircuit{
			LKey:   toVars(1),
			LCarry: toVars(10),
			RKey:   toVars(2),
			RCarry: toVars(20),
			Count:  0,
		}),
		// A shared key cannot be proven into an empty window.
		test.WithInvalidAssignment(&joinCircuit{
			LKey:   toVars(1),
			LCarry: toVars(10),
			RKey:   toVars(1),
			RCarry: toVars(20),
			Count:  0,
		}),
		test.WithCurves(ecc.BN254),
		test.WithBackends(backend.GROTH16),
	)
}
