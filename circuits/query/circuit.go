package query

import (
	"fmt"

	"github.com/consensys/gnark/frontend"

	"github.com/provedb/zkquery/plan"
)

// Circuit proves that the public result columns and count claims follow from
// a committed private table under a fixed plan. The plan itself is baked
// into the constraint system at compile time, so verifying keys are bound to
// one plan each.
type Circuit struct {
	// Commitment is the MiMC digest of the table cells in column major order.
	Commitment frontend.Variable `gnark:",public"`
	// Counts holds one claimed cardinality per counting operation, in
	// operation order.
	Counts []frontend.Variable `gnark:",public"`
	// Results holds one column per plan output entry.
	Results [][]frontend.Variable `gnark:",public"`
	// Columns is the private table, column major.
	Columns [][]frontend.Variable

	plan   *plan.Plan
	layout *plan.Layout
	opts   []Option
}

// NewCircuit shapes a circuit for the given plan. The returned value carries
// empty slices of the right dimensions and is ready for frontend.Compile;
// assignments are produced by the witness package.
func NewCircuit(p *plan.Plan, opts ...Option) (*Circuit, error) {
	layout, err := p.Validate()
	if err != nil {
		return nil, err
	}
	c := &Circuit{
		Counts:  make([]frontend.Variable, layout.Counts),
		Results: make([][]frontend.Variable, len(p.Output)),
		Columns: make([][]frontend.Variable, p.Cols),
		plan:    p,
		layout:  layout,
		opts:    opts,
	}
	for i, col := range p.Output {
		c.Results[i] = make([]frontend.Variable, layout.ColLen[col])
	}
	for i := range c.Columns {
		c.Columns[i] = make([]frontend.Variable, p.Rows)
	}
	return c, nil
}

// Plan returns the plan the circuit was shaped for.
func (c *Circuit) Plan() *plan.Plan { return c.plan }

// Define walks the plan, materializing every operation's output columns and
// asserting the public claims against them.
func (c *Circuit) Define(api frontend.API) error {
	if c.plan == nil {
		return fmt.Errorf("circuit not built with NewCircuit")
	}
	cfg := NewConfig(api, c.opts...)
	bindCommitment(api, c.Commitment, c.Columns)
	// The committed cells are words. Sums and lookups downstream rely on
	// this bound; without it a cell near the modulus could wrap a sum.
	for _, col := range c.Columns {
		for _, v := range col {
			cfg.AssertInRange(v, cfg.WordBits())
		}
	}

	cols := make([][]frontend.Variable, 0, c.plan.NumColumns())
	cols = append(cols, c.Columns...)
	countIdx := 0
	claim := func(count frontend.Variable) {
		api.AssertIsEqual(count, c.Counts[countIdx])
		countIdx++
	}

	for _, op := range c.plan.Ops {
		switch o := op.(type) {
		case *plan.RangeOp:
			for _, v := range cols[o.Col] {
				cfg.AssertInRange(v, cfg.WordBits())
				cfg.AssertLess(v, o.Threshold, o.SlackBits)
			}
		case *plan.FilterOp:
			out, count := cfg.filterRows(cols[o.Col], gather(cols, o.Carry), o.Threshold, o.SlackBits, o.Capacity)
			cols = append(cols, out...)
			claim(count)
		case *plan.SortOp:
			out := cfg.sortColumns(cols[o.Key], gather(cols, o.Carry), o.Order == plan.Desc)
			cols = append(cols, out...)
		case *plan.GroupByOp:
			cols = append(cols, cfg.groupFlags(cols[o.Key], o.CheckSorted))
		case *plan.JoinOp:
			out, count := cfg.joinRelations(cols[o.LeftKey], gather(cols, o.LeftCarry), cols[o.RightKey], gather(cols, o.RightCarry), o.Capacity)
			cols = append(cols, out...)
			claim(count)
		case *plan.AggregateOp:
			denseKey, denseVal, count := cfg.aggregateGroups(cols[o.Key], cols[o.Value], cols[o.Flags], int(o.Agg), o.Groups)
			cols = append(cols, denseKey, denseVal)
			claim(count)
		default:
			return fmt.Errorf("unsupported operation %T", op)
		}
	}

	for j, col := range c.plan.Output {
		for i := range cols[col] {
			api.AssertIsEqual(c.Results[j][i], cols[col][i])
		}
	}
	return nil
}

// gather picks the referenced columns out of the registry.
func gather(cols [][]frontend.Variable, idx []int) [][]frontend.Variable {
	picked := make([][]frontend.Variable, len(idx))
	for i, c := range idx {
		picked[i] = cols[c]
	}
	return picked
}
