// Package plan describes relational query circuits as serializable operation
// lists. A Plan fixes the private table shape, the chain of relational
// operations applied to it, and which derived columns become the public
// result. Operations reference columns by index: the table columns occupy
// indices 0..Cols-1 and every operation appends its output columns after the
// highest index allocated so far.
package plan

// Order selects the direction of a sort.
type Order uint8

const (
	Asc Order = iota
	Desc
)

// AggKind selects the aggregate computed per group.
type AggKind uint8

const (
	Sum AggKind = iota
	Count
	Max
	Min
)

// Kind identifies an operation on the wire.
type Kind uint8

const (
	KindRange Kind = iota + 1
	KindFilter
	KindSort
	KindGroupBy
	KindJoin
	KindAggregate
)

// Op is a single relational operation. Concrete types: RangeOp, FilterOp,
// SortOp, GroupByOp, JoinOp, AggregateOp.
type Op interface {
	Kind() Kind
	check(s *shape, opIdx int) error
}

// RangeOp asserts that every row of Col is strictly below Threshold.
// SlackBits is the width of the slack window u = 2^SlackBits and must satisfy
// u >= Threshold. It appends no columns.
type RangeOp struct {
	Col       int
	Threshold uint64
	SlackBits uint8
}

func (RangeOp) Kind() Kind { return KindRange }

// FilterOp keeps the rows of Col whose value is strictly below Threshold,
// together with the matching rows of the Carry columns. It appends the kept
// value column followed by the kept carry columns, each Capacity rows long and
// zero padded past the match count, and claims the match count publicly. A
// zero capacity asserts that no row matches.
type FilterOp struct {
	Col       int
	Threshold uint64
	SlackBits uint8
	Carry     []int
	Capacity  int
}

func (FilterOp) Kind() Kind { return KindFilter }

// SortOp reorders the rows of Key into Order, carrying the Carry columns
// through the same permutation. It appends the sorted key column followed by
// the permuted carry columns. Ties keep their original relative order.
type SortOp struct {
	Key   int
	Carry []int
	Order Order
}

func (SortOp) Kind() Kind { return KindSort }

// GroupByOp computes boundary flags over a key column whose equal values are
// contiguous: flag[0] = 1 and flag[i] = 1 exactly when key[i] != key[i-1].
// It appends the flag column. When CheckSorted is set the circuit re-proves
// that the key column is nondecreasing instead of relying on plan validation.
type GroupByOp struct {
	Key         int
	CheckSorted bool
}

func (GroupByOp) Kind() Kind { return KindGroupBy }

// JoinOp emits the inner join of two relations sorted ascending by their key
// columns. Output rows appear in (left row, right row) order and duplicate
// keys produce the full cross product. It appends the joined key column, the
// left carry columns and the right carry columns, each Capacity rows long and
// zero padded, and claims the match count publicly. A zero capacity asserts
// that the key columns share no value.
type JoinOp struct {
	LeftKey    int
	LeftCarry  []int
	RightKey   int
	RightCarry []int
	Capacity   int
}

func (JoinOp) Kind() Kind { return KindJoin }

// AggregateOp folds Value per group, where groups are delimited by the Flags
// column produced by a GroupByOp over Key. It appends a dense group key
// column and a dense result column, each Groups rows long and zero padded,
// and claims the group count publicly. Groups are emitted in first
// occurrence order. Max and Min break ties towards the earlier row.
type AggregateOp struct {
	Key    int
	Value  int
	Flags  int
	Agg    AggKind
	Groups int
}

func (AggregateOp) Kind() Kind { return KindAggregate }

// Plan is a complete query description over a private table of Rows rows and
// Cols columns. Output lists the column indices exposed as the public result.
type Plan struct {
	Rows   int
	Cols   int
	Ops    []Op
	Output []int
}

// NumColumns returns the total number of columns after all operations ran.
func (p *Plan) NumColumns() int {
	n := p.Cols
	for _, op := range p.Ops {
		n += numOutputs(op)
	}
	return n
}

func numOutputs(op Op) int {
	switch o := op.(type) {
	case *RangeOp:
		return 0
	case *FilterOp:
		return 1 + len(o.Carry)
	case *SortOp:
		return 1 + len(o.Carry)
	case *GroupByOp:
		return 1
	case *JoinOp:
		return 1 + len(o.LeftCarry) + len(o.RightCarry)
	case *AggregateOp:
		return 2
	default:
		return 0
	}
}
