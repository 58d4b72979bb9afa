package plan

import (
	"errors"
	"fmt"
	"math/big"
	"math/bits"

	"github.com/bits-and-blooms/bitset"
)

var (
	// ErrColumn reports an operation referencing a column that does not exist
	// or does not have the property the operation needs.
	ErrColumn = errors.New("invalid column reference")
	// ErrShape reports incompatible column lengths or capacities.
	ErrShape = errors.New("invalid shape")
	// ErrThreshold reports a threshold that does not fit its slack window.
	ErrThreshold = errors.New("threshold exceeds slack window")
	// ErrNotSorted reports a grouping or join input that is not proven sorted.
	ErrNotSorted = errors.New("column not sorted")
	// ErrFlags reports an aggregation whose flag column does not delimit its
	// key column.
	ErrFlags = errors.New("flag column does not match key column")
)

// Layout is the static shape of a validated plan: the length of every column
// index and the number of public count claims the operations make.
type Layout struct {
	ColLen []int
	Counts int
}

// shape tracks column properties while walking the operation list.
type shape struct {
	lens      []int
	sortedAsc *bitset.BitSet
	grouped   *bitset.BitSet
	flagKey   map[int]int
	counts    int
}

func (s *shape) push(n int) int {
	s.lens = append(s.lens, n)
	return len(s.lens) - 1
}

func (s *shape) length(col int) (int, error) {
	if col < 0 || col >= len(s.lens) {
		return 0, fmt.Errorf("%w: column %d of %d", ErrColumn, col, len(s.lens))
	}
	return s.lens[col], nil
}

// sameLength checks that every referenced column exists and has the same
// number of rows as the first one.
func (s *shape) sameLength(cols ...int) (int, error) {
	if len(cols) == 0 {
		return 0, nil
	}
	n, err := s.length(cols[0])
	if err != nil {
		return 0, err
	}
	for _, c := range cols[1:] {
		m, err := s.length(c)
		if err != nil {
			return 0, err
		}
		if m != n {
			return 0, fmt.Errorf("%w: column %d has %d rows, want %d", ErrShape, c, m, n)
		}
	}
	return n, nil
}

// Validate checks the plan and returns its layout. It walks the operations in
// order, tracking for every column whether it is proven ascending and whether
// equal values are contiguous, and rejects operations whose preconditions are
// not established by an earlier operation.
func (p *Plan) Validate() (*Layout, error) {
	if p.Rows < 0 {
		return nil, fmt.Errorf("%w: negative row count %d", ErrShape, p.Rows)
	}
	if p.Cols < 1 {
		return nil, fmt.Errorf("%w: table needs at least one column", ErrShape)
	}
	s := &shape{
		sortedAsc: bitset.New(uint(p.Cols)),
		grouped:   bitset.New(uint(p.Cols)),
		flagKey:   make(map[int]int),
	}
	for i := 0; i < p.Cols; i++ {
		s.push(p.Rows)
	}
	for i, op := range p.Ops {
		if op == nil {
			return nil, fmt.Errorf("op %d: nil operation", i)
		}
		if err := op.check(s, i); err != nil {
			return nil, fmt.Errorf("op %d (%T): %w", i, op, err)
		}
	}
	for _, col := range p.Output {
		if _, err := s.length(col); err != nil {
			return nil, fmt.Errorf("output: %w", err)
		}
	}
	return &Layout{ColLen: s.lens, Counts: s.counts}, nil
}

// checkWindow verifies that 2^slackBits covers the threshold.
func checkWindow(threshold uint64, slackBits uint8) error {
	if slackBits == 0 || slackBits > 64 {
		return fmt.Errorf("%w: slack bits %d out of [1,64]", ErrShape, slackBits)
	}
	u := new(big.Int).Lsh(big.NewInt(1), uint(slackBits))
	if u.Cmp(new(big.Int).SetUint64(threshold)) < 0 {
		return fmt.Errorf("%w: threshold %d, slack 2^%d", ErrThreshold, threshold, slackBits)
	}
	return nil
}

// SlackFor returns the smallest slack width covering threshold, at least one
// bit so the window is never empty.
func SlackFor(threshold uint64) uint8 {
	if threshold <= 2 {
		return 1
	}
	return uint8(bits.Len64(threshold - 1))
}

func (o *RangeOp) check(s *shape, _ int) error {
	if _, err := s.length(o.Col); err != nil {
		return err
	}
	return checkWindow(o.Threshold, o.SlackBits)
}

func (o *FilterOp) check(s *shape, _ int) error {
	n, err := s.sameLength(append([]int{o.Col}, o.Carry...)...)
	if err != nil {
		return err
	}
	if err := checkWindow(o.Threshold, o.SlackBits); err != nil {
		return err
	}
	if o.Capacity < 0 || o.Capacity > n {
		return fmt.Errorf("%w: capacity %d for %d rows", ErrShape, o.Capacity, n)
	}
	for range 1 + len(o.Carry) {
		s.push(o.Capacity)
	}
	s.counts++
	return nil
}

func (o *SortOp) check(s *shape, _ int) error {
	n, err := s.sameLength(append([]int{o.Key}, o.Carry...)...)
	if err != nil {
		return err
	}
	key := s.push(n)
	if o.Order == Asc {
		s.sortedAsc.Set(uint(key))
	}
	s.grouped.Set(uint(key))
	for range o.Carry {
		s.push(n)
	}
	return nil
}

func (o *GroupByOp) check(s *shape, _ int) error {
	n, err := s.length(o.Key)
	if err != nil {
		return err
	}
	if !o.CheckSorted && !s.grouped.Test(uint(o.Key)) {
		return fmt.Errorf("%w: key column %d, sort it first or set CheckSorted", ErrNotSorted, o.Key)
	}
	flags := s.push(n)
	s.flagKey[flags] = o.Key
	return nil
}

func (o *JoinOp) check(s *shape, _ int) error {
	if _, err := s.sameLength(append([]int{o.LeftKey}, o.LeftCarry...)...); err != nil {
		return err
	}
	if _, err := s.sameLength(append([]int{o.RightKey}, o.RightCarry...)...); err != nil {
		return err
	}
	if !s.sortedAsc.Test(uint(o.LeftKey)) {
		return fmt.Errorf("%w: left key column %d", ErrNotSorted, o.LeftKey)
	}
	if !s.sortedAsc.Test(uint(o.RightKey)) {
		return fmt.Errorf("%w: right key column %d", ErrNotSorted, o.RightKey)
	}
	if o.Capacity < 0 {
		return fmt.Errorf("%w: negative capacity %d", ErrShape, o.Capacity)
	}
	for range 1 + len(o.LeftCarry) + len(o.RightCarry) {
		s.push(o.Capacity)
	}
	s.counts++
	return nil
}

func (o *AggregateOp) check(s *shape, _ int) error {
	n, err := s.sameLength(o.Key, o.Value, o.Flags)
	if err != nil {
		return err
	}
	if key, ok := s.flagKey[o.Flags]; !ok || key != o.Key {
		return fmt.Errorf("%w: flags %d, key %d", ErrFlags, o.Flags, o.Key)
	}
	if o.Agg > Min {
		return fmt.Errorf("%w: unknown aggregate kind %d", ErrShape, o.Agg)
	}
	if o.Groups < 0 || (n > 0 && o.Groups < 1) {
		return fmt.Errorf("%w: %d groups for %d rows", ErrShape, o.Groups, n)
	}
	s.push(o.Groups)
	s.push(o.Groups)
	s.counts++
	return nil
}
