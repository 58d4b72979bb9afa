// Package query implements the constraint gates behind provable relational
// queries: range filters, sorts, group boundary detection, inner joins and
// per group aggregation, plus the shared column and lookup table plumbing
// that lets gates chain inside one circuit.
//
// Gates prove statements about columns of field elements interpreted as
// integers in [0, 2^w), where w is the configured word width. Witness data
// the prover supplies beyond the table itself (sorted copies, join pointers,
// group results) always comes from hints and is pinned by constraints, so no
// hint output is trusted.
package query

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
	"github.com/consensys/gnark/std/lookup/logderivlookup"
	"github.com/consensys/gnark/std/math/cmp"
)

const (
	// DefaultLookupBits is the limb width of the shared membership table.
	DefaultLookupBits = 8
	// DefaultMaxChunks is the number of limbs a range checked word spans.
	DefaultMaxChunks = 8
)

// Config carries the shared state of the gates inside one circuit: the limb
// membership table, the word comparator and the decomposition parameters.
// All gates built from one Config share one lookup table and, through the
// commitment expander, one in circuit commitment.
type Config struct {
	api        frontend.API
	lookupBits int
	maxChunks  int

	limbTable *logderivlookup.Table
	wordCmp   *cmp.BoundedComparator
}

// Option configures a Config.
type Option func(*Config)

// WithLookupBits sets the limb width of the membership table. The table has
// 2^bits entries, so widths beyond 16 are rejected.
func WithLookupBits(bits int) Option {
	return func(cfg *Config) { cfg.lookupBits = bits }
}

// WithMaxChunks sets how many limbs a range checked word spans.
func WithMaxChunks(chunks int) Option {
	return func(cfg *Config) { cfg.maxChunks = chunks }
}

// NewConfig creates the shared gate context. It panics on option misuse, as
// that is a programming error, not a data error.
func NewConfig(api frontend.API, opts ...Option) *Config {
	cfg := &Config{
		api:        api,
		lookupBits: DefaultLookupBits,
		maxChunks:  DefaultMaxChunks,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.lookupBits < 1 || cfg.lookupBits > 16 {
		panic(fmt.Sprintf("query: lookup bits %d outside [1,16]", cfg.lookupBits))
	}
	if cfg.maxChunks < 1 {
		panic(fmt.Sprintf("query: max chunks %d below 1", cfg.maxChunks))
	}
	// Words plus their slack windows must stay clear of the modulus.
	if cfg.WordBits()+2 > api.Compiler().FieldBitLen() {
		panic(fmt.Sprintf("query: %d bit words do not fit the %d bit field", cfg.WordBits(), api.Compiler().FieldBitLen()))
	}
	return cfg
}

// WordBits returns the width of the range checkable integer domain.
func (cfg *Config) WordBits() int {
	return cfg.lookupBits * cfg.maxChunks
}

// WordBitsOf reports the word width a circuit built with the given options
// enforces, without needing a builder. Assignment producers use it to reject
// out of domain cells before proving.
func WordBitsOf(opts ...Option) int {
	cfg := &Config{lookupBits: DefaultLookupBits, maxChunks: DefaultMaxChunks}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg.WordBits()
}

// table returns the shared limb membership table, building it on first use.
// Entry i holds value i, so looking an index up proves it is below the table
// size.
func (cfg *Config) table() *logderivlookup.Table {
	if cfg.limbTable == nil {
		t := logderivlookup.New(cfg.api)
		for i := 0; i < 1<<cfg.lookupBits; i++ {
			t.Insert(i)
		}
		cfg.limbTable = t
	}
	return cfg.limbTable
}

// comparator returns the shared word domain comparator, building it on first
// use. Operands must already be constrained to the word domain.
func (cfg *Config) comparator() *cmp.BoundedComparator {
	if cfg.wordCmp == nil {
		bound := new(big.Int).Lsh(big.NewInt(1), uint(cfg.WordBits()))
		bound.Sub(bound, big.NewInt(1))
		cfg.wordCmp = cmp.NewBoundedComparator(cfg.api, bound, true)
	}
	return cfg.wordCmp
}

// foldCoefficients derives one mixing coefficient per column from a single
// commitment, so multi column rows can be folded into one fingerprint before
// a product or sum argument. The commitment itself doubles as the argument
// challenge. A single column needs no mixing.
func foldCoefficients(api frontend.API, columns int, commitment frontend.Variable) ([]frontend.Variable, frontend.Variable) {
	if columns == 1 {
		return []frontend.Variable{1}, commitment
	}
	h, err := mimc.NewMiMC(api)
	if err != nil {
		panic(err)
	}
	coeffs := make([]frontend.Variable, columns)
	coeffs[0] = 1
	for i := 1; i < columns; i++ {
		h.Reset()
		h.Write(i+1, commitment)
		coeffs[i] = h.Sum()
	}
	return coeffs, commitment
}

// foldRow mixes the cells of one row into a single fingerprint.
func foldRow(api frontend.API, coeffs []frontend.Variable, cells []frontend.Variable) frontend.Variable {
	if len(coeffs) != len(cells) {
		panic("query: fold width mismatch")
	}
	var acc frontend.Variable = 0
	for i := range coeffs {
		acc = api.Add(acc, api.Mul(coeffs[i], cells[i]))
	}
	return acc
}

// batchMul multiplies all values with a halving tree instead of a linear
// chain, keeping the multiplication depth logarithmic.
func batchMul(api frontend.API, vals []frontend.Variable) frontend.Variable {
	if len(vals) == 0 {
		return 1
	}
	for len(vals) > 1 {
		half := make([]frontend.Variable, 0, (len(vals)+1)/2)
		for i := 0; i+1 < len(vals); i += 2 {
			half = append(half, api.Mul(vals[i], vals[i+1]))
		}
		if len(vals)%2 == 1 {
			half = append(half, vals[len(vals)-1])
		}
		vals = half
	}
	return vals[0]
}

// sum adds all values.
func sum(api frontend.API, vals []frontend.Variable) frontend.Variable {
	var acc frontend.Variable = 0
	for i := range vals {
		acc = api.Add(acc, vals[i])
	}
	return acc
}
