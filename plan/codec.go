package plan

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// codecVersion is bumped when the wire layout of encoded plans changes.
const codecVersion = 1

// ErrCodec reports malformed or incompatible encoded plans.
var ErrCodec = errors.New("cannot decode plan")

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	// Canonical encoding keeps the byte stream deterministic so plan digests
	// are stable across processes.
	encMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}
}

type rawOp struct {
	Kind Kind            `cbor:"1,keyasint"`
	Body cbor.RawMessage `cbor:"2,keyasint"`
}

type rawPlan struct {
	Version int     `cbor:"1,keyasint"`
	Rows    int     `cbor:"2,keyasint"`
	Cols    int     `cbor:"3,keyasint"`
	Ops     []rawOp `cbor:"4,keyasint"`
	Output  []int   `cbor:"5,keyasint"`
}

// Encode serializes the plan into canonical CBOR.
func (p *Plan) Encode() ([]byte, error) {
	raw := rawPlan{
		Version: codecVersion,
		Rows:    p.Rows,
		Cols:    p.Cols,
		Ops:     make([]rawOp, len(p.Ops)),
		Output:  p.Output,
	}
	for i, op := range p.Ops {
		body, err := encMode.Marshal(op)
		if err != nil {
			return nil, fmt.Errorf("encode op %d: %w", i, err)
		}
		raw.Ops[i] = rawOp{Kind: op.Kind(), Body: body}
	}
	return encMode.Marshal(raw)
}

// Decode parses a plan encoded by Encode.
func Decode(data []byte) (*Plan, error) {
	var raw rawPlan
	if err := decMode.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCodec, err)
	}
	if raw.Version != codecVersion {
		return nil, fmt.Errorf("%w: version %d, want %d", ErrCodec, raw.Version, codecVersion)
	}
	p := &Plan{
		Rows:   raw.Rows,
		Cols:   raw.Cols,
		Ops:    make([]Op, len(raw.Ops)),
		Output: raw.Output,
	}
	for i, r := range raw.Ops {
		op, err := decodeOp(r)
		if err != nil {
			return nil, fmt.Errorf("op %d: %w", i, err)
		}
		p.Ops[i] = op
	}
	return p, nil
}

func decodeOp(r rawOp) (Op, error) {
	var op Op
	switch r.Kind {
	case KindRange:
		op = new(RangeOp)
	case KindFilter:
		op = new(FilterOp)
	case KindSort:
		op = new(SortOp)
	case KindGroupBy:
		op = new(GroupByOp)
	case KindJoin:
		op = new(JoinOp)
	case KindAggregate:
		op = new(AggregateOp)
	default:
		return nil, fmt.Errorf("%w: unknown op kind %d", ErrCodec, r.Kind)
	}
	if err := decMode.Unmarshal(r.Body, op); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCodec, err)
	}
	return op, nil
}
