// Package witness evaluates query plans over concrete tables and produces
// circuit assignments. The executor here is the reference semantics the
// circuits prove: running it tells the prover what the public claims must
// be, and any table it rejects has no satisfying assignment.
package witness

import (
	"errors"
	"fmt"
	"math/bits"
	"sort"

	"github.com/provedb/zkquery/plan"
)

var (
	// ErrTable reports a table whose shape does not match the plan.
	ErrTable = errors.New("table does not match plan")
	// ErrUnprovable reports data that violates an asserted predicate, so no
	// satisfying assignment exists.
	ErrUnprovable = errors.New("no satisfying assignment")
	// ErrCapacity reports an output window or group budget too small for the
	// data. Re-plan with a larger capacity.
	ErrCapacity = errors.New("capacity exceeded")
	// ErrOverflow reports a sum leaving the 64 bit word domain.
	ErrOverflow = errors.New("aggregate overflows word domain")
)

// Table is a private relation, column major. All columns have equal length.
type Table struct {
	Cols [][]uint64
}

// NumRows returns the row count, zero for a table with no columns.
func (t *Table) NumRows() int {
	if len(t.Cols) == 0 {
		return 0
	}
	return len(t.Cols[0])
}

// Result holds the evaluated column registry and the public count claims of
// one plan over one table. Columns is indexed like the plan's column space:
// table columns first, then every operation's outputs in order.
type Result struct {
	Columns [][]uint64
	Counts  []uint64
}

// Output picks the plan's public result columns out of the registry.
func (r *Result) Output(p *plan.Plan) [][]uint64 {
	out := make([][]uint64, len(p.Output))
	for i, col := range p.Output {
		out[i] = r.Columns[col]
	}
	return out
}

// Run evaluates the plan over the table. It mirrors the circuit gate
// semantics exactly: filters keep scan order, sorts are stable, joins emit
// in (left row, right row) order and aggregates emit groups in first
// occurrence order. Tables the circuits cannot prove are rejected with
// ErrUnprovable, ErrCapacity or ErrOverflow.
func Run(p *plan.Plan, t *Table) (*Result, error) {
	layout, err := p.Validate()
	if err != nil {
		return nil, err
	}
	if len(t.Cols) != p.Cols {
		return nil, fmt.Errorf("%w: %d columns, plan wants %d", ErrTable, len(t.Cols), p.Cols)
	}
	for i, col := range t.Cols {
		if len(col) != p.Rows {
			return nil, fmt.Errorf("%w: column %d has %d rows, plan wants %d", ErrTable, i, len(col), p.Rows)
		}
	}

	cols := make([][]uint64, 0, len(layout.ColLen))
	cols = append(cols, t.Cols...)
	counts := make([]uint64, 0, layout.Counts)

	for opIdx, op := range p.Ops {
		switch o := op.(type) {
		case *plan.RangeOp:
			for i, v := range cols[o.Col] {
				if v >= o.Threshold {
					return nil, fmt.Errorf("%w: op %d: row %d of column %d is %d, not below %d",
						ErrUnprovable, opIdx, i, o.Col, v, o.Threshold)
				}
			}
		case *plan.FilterOp:
			out, count, err := runFilter(cols, o)
			if err != nil {
				return nil, fmt.Errorf("op %d: %w", opIdx, err)
			}
			cols = append(cols, out...)
			counts = append(counts, count)
		case *plan.SortOp:
			cols = append(cols, runSort(cols, o)...)
		case *plan.GroupByOp:
			flags, err := runGroupBy(cols, o)
			if err != nil {
				return nil, fmt.Errorf("op %d: %w", opIdx, err)
			}
			cols = append(cols, flags)
		case *plan.JoinOp:
			out, count, err := runJoin(cols, o)
			if err != nil {
				return nil, fmt.Errorf("op %d: %w", opIdx, err)
			}
			cols = append(cols, out...)
			counts = append(counts, count)
		case *plan.AggregateOp:
			denseKey, denseVal, count, err := runAggregate(cols, o)
			if err != nil {
				return nil, fmt.Errorf("op %d: %w", opIdx, err)
			}
			cols = append(cols, denseKey, denseVal)
			counts = append(counts, count)
		default:
			return nil, fmt.Errorf("op %d: unsupported operation %T", opIdx, op)
		}
	}
	return &Result{Columns: cols, Counts: counts}, nil
}

func runFilter(cols [][]uint64, o *plan.FilterOp) ([][]uint64, uint64, error) {
	value := cols[o.Col]
	keep := make([]int, 0, len(value))
	for i, v := range value {
		if v < o.Threshold {
			keep = append(keep, i)
		}
	}
	if len(keep) > o.Capacity {
		return nil, 0, fmt.Errorf("%w: %d matches, window holds %d", ErrCapacity, len(keep), o.Capacity)
	}
	src := append([]int{o.Col}, o.Carry...)
	out := make([][]uint64, len(src))
	for c, colIdx := range src {
		out[c] = make([]uint64, o.Capacity)
		for i, row := range keep {
			out[c][i] = cols[colIdx][row]
		}
	}
	return out, uint64(len(keep)), nil
}

func runSort(cols [][]uint64, o *plan.SortOp) [][]uint64 {
	key := cols[o.Key]
	perm := make([]int, len(key))
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool {
		if o.Order == plan.Desc {
			return key[perm[a]] > key[perm[b]]
		}
		return key[perm[a]] < key[perm[b]]
	})
	src := append([]int{o.Key}, o.Carry...)
	out := make([][]uint64, len(src))
	for c, colIdx := range src {
		out[c] = make([]uint64, len(key))
		for i := range perm {
			out[c][i] = cols[colIdx][perm[i]]
		}
	}
	return out
}

func runGroupBy(cols [][]uint64, o *plan.GroupByOp) ([]uint64, error) {
	key := cols[o.Key]
	flags := make([]uint64, len(key))
	for i := range key {
		if i == 0 {
			flags[i] = 1
			continue
		}
		if o.CheckSorted && key[i] < key[i-1] {
			return nil, fmt.Errorf("%w: key decreases at row %d", ErrUnprovable, i)
		}
		if key[i] != key[i-1] {
			flags[i] = 1
		}
	}
	return flags, nil
}

func runJoin(cols [][]uint64, o *plan.JoinOp) ([][]uint64, uint64, error) {
	lkey := cols[o.LeftKey]
	rkey := cols[o.RightKey]
	type pair struct{ l, r int }
	pairs := make([]pair, 0)
	lo := 0
	for i := range lkey {
		for lo < len(rkey) && rkey[lo] < lkey[i] {
			lo++
		}
		for j := lo; j < len(rkey) && rkey[j] == lkey[i]; j++ {
			pairs = append(pairs, pair{i, j})
		}
	}
	if len(pairs) > o.Capacity {
		return nil, 0, fmt.Errorf("%w: %d joined rows, window holds %d", ErrCapacity, len(pairs), o.Capacity)
	}
	width := 1 + len(o.LeftCarry) + len(o.RightCarry)
	out := make([][]uint64, width)
	for c := range out {
		out[c] = make([]uint64, o.Capacity)
	}
	for i, pr := range pairs {
		out[0][i] = lkey[pr.l]
		for c, colIdx := range o.LeftCarry {
			out[1+c][i] = cols[colIdx][pr.l]
		}
		for c, colIdx := range o.RightCarry {
			out[1+len(o.LeftCarry)+c][i] = cols[colIdx][pr.r]
		}
	}
	return out, uint64(len(pairs)), nil
}

func runAggregate(cols [][]uint64, o *plan.AggregateOp) ([]uint64, []uint64, uint64, error) {
	key := cols[o.Key]
	val := cols[o.Value]
	flags := cols[o.Flags]
	denseKey := make([]uint64, o.Groups)
	denseVal := make([]uint64, o.Groups)
	g := -1
	for i := range key {
		if flags[i] != 0 {
			g++
			if g == o.Groups {
				return nil, nil, 0, fmt.Errorf("%w: more than %d groups", ErrCapacity, o.Groups)
			}
			denseKey[g] = key[i]
			if o.Agg == plan.Count {
				denseVal[g] = 1
			} else {
				denseVal[g] = val[i]
			}
			continue
		}
		switch o.Agg {
		case plan.Sum:
			s, carry := bits.Add64(denseVal[g], val[i], 0)
			if carry != 0 {
				return nil, nil, 0, fmt.Errorf("%w: group %d", ErrOverflow, g)
			}
			denseVal[g] = s
		case plan.Count:
			denseVal[g]++
		case plan.Max:
			if val[i] > denseVal[g] {
				denseVal[g] = val[i]
			}
		case plan.Min:
			if val[i] < denseVal[g] {
				denseVal[g] = val[i]
			}
		}
	}
	return denseKey, denseVal, uint64(g + 1), nil
}
