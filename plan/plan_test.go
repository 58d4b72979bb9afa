package plan

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// examplePlan covers every operation kind.
func examplePlan(t *testing.T) *Plan {
	t.Helper()
	b := NewBuilder(8, 4)
	b.Range(3, 1000)
	kept := b.Filter(0, 30, []int{1}, 5)
	left := b.Sort(kept[0], []int{kept[1]}, Asc)
	right := b.Sort(2, nil, Asc)
	joined := b.Join(left[0], []int{left[1]}, right[0], nil, 10)
	flags := b.GroupBy(left[0])
	dense := b.Aggregate(left[0], left[1], flags, Sum, 5)
	p, err := b.Output(joined[0], dense[0], dense[1]).Build()
	require.NoError(t, err)
	return p
}

func TestBuilderAllocatesColumns(t *testing.T) {
	b := NewBuilder(4, 2)
	kept := b.Filter(0, 10, []int{1}, 3)
	require.Equal(t, []int{2, 3}, kept)
	sorted := b.Sort(kept[0], []int{kept[1]}, Asc)
	require.Equal(t, []int{4, 5}, sorted)
	flags := b.GroupBy(sorted[0])
	require.Equal(t, 6, flags)
	dense := b.Aggregate(sorted[0], sorted[1], flags, Max, 3)
	require.Equal(t, []int{7, 8}, dense)

	p, err := b.Output(dense[0], dense[1]).Build()
	require.NoError(t, err)
	require.Equal(t, 9, p.NumColumns())

	layout, err := p.Validate()
	require.NoError(t, err)
	require.Equal(t, []int{4, 4, 3, 3, 3, 3, 3, 3, 3}, layout.ColLen)
	require.Equal(t, 2, layout.Counts)
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name string
		plan Plan
		want error
	}{
		{
			name: "missing column",
			plan: Plan{Rows: 2, Cols: 1, Ops: []Op{&RangeOp{Col: 1, Threshold: 5, SlackBits: 3}}},
			want: ErrColumn,
		},
		{
			name: "filter capacity beyond rows",
			plan: Plan{Rows: 2, Cols: 1, Ops: []Op{&FilterOp{Col: 0, Threshold: 5, SlackBits: 3, Capacity: 3}}},
			want: ErrShape,
		},
		{
			name: "threshold outside slack window",
			plan: Plan{Rows: 2, Cols: 1, Ops: []Op{&RangeOp{Col: 0, Threshold: 9, SlackBits: 3}}},
			want: ErrThreshold,
		},
		{
			name: "group by unsorted column",
			plan: Plan{Rows: 2, Cols: 1, Ops: []Op{&GroupByOp{Key: 0}}},
			want: ErrNotSorted,
		},
		{
			name: "join on unsorted key",
			plan: Plan{Rows: 2, Cols: 2, Ops: []Op{&JoinOp{LeftKey: 0, RightKey: 1, Capacity: 4}}},
			want: ErrNotSorted,
		},
		{
			name: "join on descending key",
			plan: Plan{Rows: 2, Cols: 2, Ops: []Op{
				&SortOp{Key: 0, Order: Desc},
				&SortOp{Key: 1, Order: Asc},
				&JoinOp{LeftKey: 2, RightKey: 3, Capacity: 4},
			}},
			want: ErrNotSorted,
		},
		{
			name: "aggregate flags from another key",
			plan: Plan{Rows: 2, Cols: 2, Ops: []Op{
				&SortOp{Key: 0, Order: Asc},
				&SortOp{Key: 1, Order: Asc},
				&GroupByOp{Key: 2},
				&AggregateOp{Key: 3, Value: 3, Flags: 4, Agg: Sum, Groups: 2},
			}},
			want: ErrFlags,
		},
		{
			name: "aggregate flags column is not a flag column",
			plan: Plan{Rows: 2, Cols: 2, Ops: []Op{
				&SortOp{Key: 0, Order: Asc},
				&AggregateOp{Key: 2, Value: 2, Flags: 1, Agg: Sum, Groups: 2},
			}},
			want: ErrFlags,
		},
		{
			name: "mismatched carry length",
			plan: Plan{Rows: 2, Cols: 2, Ops: []Op{
				&FilterOp{Col: 0, Threshold: 5, SlackBits: 3, Capacity: 1},
				&SortOp{Key: 2, Carry: []int{1}, Order: Asc},
			}},
			want: ErrShape,
		},
		{
			name: "output references missing column",
			plan: Plan{Rows: 2, Cols: 1, Output: []int{1}},
			want: ErrColumn,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.plan.Validate()
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCodecRoundTrip(t *testing.T) {
	p := examplePlan(t)
	data, err := p.Encode()
	require.NoError(t, err)
	got, err := Decode(data)
	require.NoError(t, err)
	if diff := cmp.Diff(p, got); diff != "" {
		t.Fatalf("plan mismatch (-want +got):\n%s", diff)
	}

	_, err = Decode([]byte{0xff})
	require.ErrorIs(t, err, ErrCodec)

	// Unknown operation kinds are rejected, not skipped.
	data, err = encMode.Marshal(rawPlan{
		Version: codecVersion,
		Rows:    1, Cols: 1,
		Ops: []rawOp{{Kind: 99, Body: []byte{0xa0}}},
	})
	require.NoError(t, err)
	_, err = Decode(data)
	require.ErrorIs(t, err, ErrCodec)

	data, err = encMode.Marshal(rawPlan{Version: codecVersion + 1, Rows: 1, Cols: 1})
	require.NoError(t, err)
	_, err = Decode(data)
	require.ErrorIs(t, err, ErrCodec)
}

func TestDigest(t *testing.T) {
	a, err := examplePlan(t).Digest()
	require.NoError(t, err)
	b, err := examplePlan(t).Digest()
	require.NoError(t, err)
	require.Equal(t, a, b)

	other := examplePlan(t)
	other.Rows++
	c, err := other.Digest()
	require.NoError(t, err)
	require.NotEqual(t, a, c)
}

func TestSlackFor(t *testing.T) {
	cases := []struct {
		threshold uint64
		want      uint8
	}{
		{0, 1},
		{1, 1},
		{2, 1},
		{3, 2},
		{4, 2},
		{5, 3},
		{8, 3},
		{9, 4},
		{1 << 40, 40},
		{1<<40 + 1, 41},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, SlackFor(tc.threshold), "threshold %d", tc.threshold)
		require.NoError(t, checkWindow(tc.threshold, SlackFor(tc.threshold)))
	}
}
