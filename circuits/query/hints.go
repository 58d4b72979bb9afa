package query

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/consensys/gnark/constraint/solver"
)

func init() {
	solver.RegisterHint(GetHints()...)
}

// GetHints returns all hint functions used by the query gates, for solver
// registration in out of process setups.
func GetHints() []solver.Hint {
	return []solver.Hint{
		decomposeHint,
		isLessHint,
		keepHint,
		sortHint,
		joinHint,
		aggregateHint,
	}
}

// keepHint compacts the flagged rows of a relation to the front of a zero
// padded window. Inputs are n, the column count, the window capacity, the
// flag column and the data columns, column major. Outputs are the active
// flags of the window followed by the kept columns, column major. The hint
// fails when more rows are flagged than the window holds.
func keepHint(field *big.Int, inputs []*big.Int, outputs []*big.Int) error {
	if len(inputs) < 3 {
		return errors.New("keep: missing header")
	}
	n := int(inputs[0].Int64())
	k := int(inputs[1].Int64())
	capKeep := int(inputs[2].Int64())
	if len(inputs) != 3+n+n*k {
		return errors.New("keep: input length mismatch")
	}
	if len(outputs) != capKeep+capKeep*k {
		return errors.New("keep: output length mismatch")
	}
	flags := inputs[3 : 3+n]
	for i := range outputs {
		outputs[i].SetUint64(0)
	}
	kept := 0
	for i := 0; i < n; i++ {
		if flags[i].Sign() == 0 {
			continue
		}
		if kept == capKeep {
			return fmt.Errorf("keep: capacity %d exceeded", capKeep)
		}
		outputs[kept].SetUint64(1)
		for c := 0; c < k; c++ {
			outputs[capKeep+c*capKeep+kept].Set(inputs[3+n+c*n+i])
		}
		kept++
	}
	return nil
}

// decomposeHint splits inputs[1] into len(outputs) limbs of inputs[0] bits
// each, least significant limb first. The circuit recomposes the limbs and
// checks equality, so the hint result is untrusted.
func decomposeHint(field *big.Int, inputs []*big.Int, outputs []*big.Int) error {
	if len(inputs) != 2 {
		return errors.New("decompose: expected 2 inputs")
	}
	limbBits := uint(inputs[0].Uint64())
	if limbBits == 0 {
		return errors.New("decompose: zero limb width")
	}
	mask := new(big.Int).Lsh(big.NewInt(1), limbBits)
	mask.Sub(mask, big.NewInt(1))
	for i := range outputs {
		outputs[i].Rsh(inputs[1], limbBits*uint(i))
		outputs[i].And(outputs[i], mask)
	}
	return nil
}

// isLessHint returns 1 when inputs[0] < inputs[1] as integers, else 0. The
// circuit pins both directions with range checks.
func isLessHint(field *big.Int, inputs []*big.Int, outputs []*big.Int) error {
	if len(inputs) != 2 || len(outputs) != 1 {
		return errors.New("isless: expected 2 inputs, 1 output")
	}
	if inputs[0].Cmp(inputs[1]) < 0 {
		outputs[0].SetUint64(1)
	} else {
		outputs[0].SetUint64(0)
	}
	return nil
}

// sortHint sorts a relation of inputs[1] columns and inputs[0] rows, given
// column major starting at inputs[3], by its first column. inputs[2] selects
// the direction, 0 ascending. Equal keys keep their original order. Outputs
// are column major in the same layout.
func sortHint(field *big.Int, inputs []*big.Int, outputs []*big.Int) error {
	if len(inputs) < 3 {
		return errors.New("sort: missing header")
	}
	n := int(inputs[0].Int64())
	k := int(inputs[1].Int64())
	desc := inputs[2].Sign() != 0
	if len(inputs) != 3+n*k || len(outputs) != n*k {
		return errors.New("sort: input length mismatch")
	}
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	key := inputs[3 : 3+n]
	sort.SliceStable(perm, func(a, b int) bool {
		c := key[perm[a]].Cmp(key[perm[b]])
		if desc {
			return c > 0
		}
		return c < 0
	})
	for c := 0; c < k; c++ {
		col := inputs[3+c*n : 3+(c+1)*n]
		out := outputs[c*n : (c+1)*n]
		for i := 0; i < n; i++ {
			out[i].Set(col[perm[i]])
		}
	}
	return nil
}

// joinHint runs the merge behind the join gate. Inputs are nL, nR, the output
// capacity, then the left and right key columns, both sorted ascending.
// Outputs are, in order: active flags, left pointers and right pointers for
// every output slot, then per left row the match count, first matching right
// index and the non-membership position, then the same three per right row.
// The hint fails when the join exceeds the declared capacity.
func joinHint(field *big.Int, inputs []*big.Int, outputs []*big.Int) error {
	if len(inputs) < 3 {
		return errors.New("join: missing header")
	}
	nL := int(inputs[0].Int64())
	nR := int(inputs[1].Int64())
	capJoin := int(inputs[2].Int64())
	if len(inputs) != 3+nL+nR {
		return errors.New("join: input length mismatch")
	}
	if len(outputs) != 3*capJoin+3*nL+3*nR {
		return errors.New("join: output length mismatch")
	}
	lkey := inputs[3 : 3+nL]
	rkey := inputs[3+nL : 3+nL+nR]

	active := outputs[:capJoin]
	lptr := outputs[capJoin : 2*capJoin]
	rptr := outputs[2*capJoin : 3*capJoin]
	cntL := outputs[3*capJoin : 3*capJoin+nL]
	firstR := outputs[3*capJoin+nL : 3*capJoin+2*nL]
	missL := outputs[3*capJoin+2*nL : 3*capJoin+3*nL]
	cntR := outputs[3*capJoin+3*nL : 3*capJoin+3*nL+nR]
	firstL := outputs[3*capJoin+3*nL+nR : 3*capJoin+3*nL+2*nR]
	missR := outputs[3*capJoin+3*nL+2*nR:]

	matchBlock(lkey, rkey, cntL, firstR, missL)
	matchBlock(rkey, lkey, cntR, firstL, missR)

	emitted := 0
	for i := 0; i < nL; i++ {
		cnt := int(cntL[i].Int64())
		first := int(firstR[i].Int64())
		for j := 0; j < cnt; j++ {
			if emitted == capJoin {
				return fmt.Errorf("join: capacity %d exceeded", capJoin)
			}
			active[emitted].SetUint64(1)
			lptr[emitted].SetInt64(int64(i))
			rptr[emitted].SetInt64(int64(first + j))
			emitted++
		}
	}
	for i := emitted; i < capJoin; i++ {
		active[i].SetUint64(0)
		lptr[i].SetUint64(0)
		rptr[i].SetUint64(0)
	}
	return nil
}

// matchBlock fills, for every probe key, the size and start of its matching
// block in the sorted other column, or the position where the key would be
// inserted when it is absent.
func matchBlock(probe, other []*big.Int, cnt, first, miss []*big.Int) {
	lo := 0
	for i := range probe {
		// Keys are sorted, so the matching block never moves backwards.
		if i > 0 && probe[i].Cmp(probe[i-1]) == 0 {
			cnt[i].Set(cnt[i-1])
			first[i].Set(first[i-1])
			miss[i].Set(miss[i-1])
			continue
		}
		for lo < len(other) && other[lo].Cmp(probe[i]) < 0 {
			lo++
		}
		hi := lo
		for hi < len(other) && other[hi].Cmp(probe[i]) == 0 {
			hi++
		}
		cnt[i].SetInt64(int64(hi - lo))
		if hi > lo {
			first[i].SetInt64(int64(lo))
			miss[i].SetUint64(0)
		} else {
			first[i].SetUint64(0)
			miss[i].SetInt64(int64(lo))
		}
	}
}

// aggregateHint folds the value column per group and emits the dense group
// key and result columns. Inputs are n, the group capacity, the aggregate
// kind, then the key, value and flag columns. The circuit pins every dense
// cell against the in circuit accumulators, so the hint result is untrusted.
func aggregateHint(field *big.Int, inputs []*big.Int, outputs []*big.Int) error {
	if len(inputs) < 3 {
		return errors.New("aggregate: missing header")
	}
	n := int(inputs[0].Int64())
	groups := int(inputs[1].Int64())
	kind := int(inputs[2].Int64())
	if len(inputs) != 3+3*n {
		return errors.New("aggregate: input length mismatch")
	}
	if len(outputs) != 2*groups {
		return errors.New("aggregate: output length mismatch")
	}
	key := inputs[3 : 3+n]
	val := inputs[3+n : 3+2*n]
	flags := inputs[3+2*n : 3+3*n]
	denseKey := outputs[:groups]
	denseVal := outputs[groups:]
	for i := range denseKey {
		denseKey[i].SetUint64(0)
		denseVal[i].SetUint64(0)
	}
	g := -1
	for i := 0; i < n; i++ {
		if flags[i].Sign() != 0 {
			g++
			if g == groups {
				return fmt.Errorf("aggregate: group capacity %d exceeded", groups)
			}
			denseKey[g].Set(key[i])
			switch kind {
			case aggKindCount:
				denseVal[g].SetUint64(1)
			default:
				denseVal[g].Set(val[i])
			}
			continue
		}
		if g < 0 {
			return errors.New("aggregate: first flag not set")
		}
		switch kind {
		case aggKindSum:
			denseVal[g].Add(denseVal[g], val[i])
			denseVal[g].Mod(denseVal[g], field)
		case aggKindCount:
			denseVal[g].Add(denseVal[g], big.NewInt(1))
		case aggKindMax:
			if val[i].Cmp(denseVal[g]) > 0 {
				denseVal[g].Set(val[i])
			}
		case aggKindMin:
			if val[i].Cmp(denseVal[g]) < 0 {
				denseVal[g].Set(val[i])
			}
		default:
			return fmt.Errorf("aggregate: unknown kind %d", kind)
		}
	}
	return nil
}
