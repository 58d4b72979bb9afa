package plan

// Builder assembles a Plan while handing out the column indices operations
// allocate, so callers can reference derived columns without counting by
// hand.
type Builder struct {
	p    Plan
	next int
}

// NewBuilder starts a plan over a table of rows x cols.
func NewBuilder(rows, cols int) *Builder {
	return &Builder{p: Plan{Rows: rows, Cols: cols}, next: cols}
}

func (b *Builder) alloc(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = b.next
		b.next++
	}
	return out
}

// Range asserts every row of col is below threshold. The slack window is
// sized automatically.
func (b *Builder) Range(col int, threshold uint64) *Builder {
	b.p.Ops = append(b.p.Ops, &RangeOp{Col: col, Threshold: threshold, SlackBits: SlackFor(threshold)})
	return b
}

// Filter keeps rows of col below threshold. It returns the kept value column
// index followed by the kept carry column indices.
func (b *Builder) Filter(col int, threshold uint64, carry []int, capacity int) []int {
	b.p.Ops = append(b.p.Ops, &FilterOp{
		Col:       col,
		Threshold: threshold,
		SlackBits: SlackFor(threshold),
		Carry:     carry,
		Capacity:  capacity,
	})
	return b.alloc(1 + len(carry))
}

// Sort orders key, carrying the carry columns through the permutation. It
// returns the sorted key column index followed by the carried column indices.
func (b *Builder) Sort(key int, carry []int, order Order) []int {
	b.p.Ops = append(b.p.Ops, &SortOp{Key: key, Carry: carry, Order: order})
	return b.alloc(1 + len(carry))
}

// GroupBy emits boundary flags for key and returns the flag column index.
func (b *Builder) GroupBy(key int) int {
	b.p.Ops = append(b.p.Ops, &GroupByOp{Key: key})
	return b.alloc(1)[0]
}

// Join emits the inner join of two sorted relations. It returns the joined
// key column index, the left carry column indices and the right carry column
// indices.
func (b *Builder) Join(leftKey int, leftCarry []int, rightKey int, rightCarry []int, capacity int) []int {
	b.p.Ops = append(b.p.Ops, &JoinOp{
		LeftKey:    leftKey,
		LeftCarry:  leftCarry,
		RightKey:   rightKey,
		RightCarry: rightCarry,
		Capacity:   capacity,
	})
	return b.alloc(1 + len(leftCarry) + len(rightCarry))
}

// Aggregate folds value per group delimited by flags. It returns the dense
// group key column index and the dense result column index.
func (b *Builder) Aggregate(key, value, flags int, agg AggKind, groups int) []int {
	b.p.Ops = append(b.p.Ops, &AggregateOp{Key: key, Value: value, Flags: flags, Agg: agg, Groups: groups})
	return b.alloc(2)
}

// Output marks columns as public result columns.
func (b *Builder) Output(cols ...int) *Builder {
	b.p.Output = append(b.p.Output, cols...)
	return b
}

// Build validates the assembled plan and returns it.
func (b *Builder) Build() (*Plan, error) {
	p := b.p
	if _, err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}
