package witness

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	fr_bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	mimc_bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381/fr/mimc"
	fr_bn254 "github.com/consensys/gnark-crypto/ecc/bn254/fr"
	mimc_bn254 "github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
)

// ErrCurve reports a curve without an out of circuit commitment backend.
var ErrCurve = errors.New("unsupported curve")

// Commit digests the table cells in column major order with the curve's
// MiMC, matching the in circuit binding. A table with no cells commits to
// zero.
func Commit(t *Table, curve ecc.ID) (*big.Int, error) {
	cells := 0
	for _, col := range t.Cols {
		cells += len(col)
	}
	if cells == 0 {
		return new(big.Int), nil
	}
	switch curve {
	case ecc.BN254:
		h := mimc_bn254.NewMiMC()
		var el fr_bn254.Element
		for _, col := range t.Cols {
			for _, v := range col {
				el.SetUint64(v)
				b := el.Bytes()
				h.Write(b[:])
			}
		}
		return new(big.Int).SetBytes(h.Sum(nil)), nil
	case ecc.BLS12_381:
		h := mimc_bls12381.NewMiMC()
		var el fr_bls12381.Element
		for _, col := range t.Cols {
			for _, v := range col {
				el.SetUint64(v)
				b := el.Bytes()
				h.Write(b[:])
			}
		}
		return new(big.Int).SetBytes(h.Sum(nil)), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrCurve, curve)
	}
}
