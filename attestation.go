package zkquery

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend"
	"github.com/fxamacker/cbor/v2"
)

// attestationVersion is bumped when the wire layout of encoded attestations
// changes.
const attestationVersion = 1

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}
}

// Attestation bundles a proof with the public claims it attests to: the
// table commitment, the count claims and the result columns. It is the unit
// a prover hands a verifier.
type Attestation struct {
	Commitment *big.Int
	Counts     []uint64
	Results    [][]uint64
	Proof      *Proof
}

type rawAttestation struct {
	Version    uint8      `cbor:"1,keyasint"`
	Backend    uint16     `cbor:"2,keyasint"`
	Curve      uint16     `cbor:"3,keyasint"`
	Commitment []byte     `cbor:"4,keyasint"`
	Counts     []uint64   `cbor:"5,keyasint"`
	Results    [][]uint64 `cbor:"6,keyasint"`
	Proof      []byte     `cbor:"7,keyasint"`
}

// MarshalBinary encodes the attestation, proof included, into one blob.
func (a *Attestation) MarshalBinary() ([]byte, error) {
	if a.Proof == nil || a.Commitment == nil {
		return nil, fmt.Errorf("%w: incomplete attestation", ErrSerialization)
	}
	var buf bytes.Buffer
	if _, err := a.Proof.WriteTo(&buf); err != nil {
		return nil, err
	}
	raw := rawAttestation{
		Version:    attestationVersion,
		Backend:    uint16(a.Proof.backend),
		Curve:      uint16(a.Proof.curve),
		Commitment: a.Commitment.Bytes(),
		Counts:     a.Counts,
		Results:    a.Results,
		Proof:      buf.Bytes(),
	}
	data, err := encMode.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	return data, nil
}

// UnmarshalBinary decodes an attestation produced by MarshalBinary.
func (a *Attestation) UnmarshalBinary(data []byte) error {
	var raw rawAttestation
	if err := decMode.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	if raw.Version != attestationVersion {
		return fmt.Errorf("%w: version %d, want %d", ErrSerialization, raw.Version, attestationVersion)
	}
	pf, err := ReadProof(bytes.NewReader(raw.Proof), backend.ID(raw.Backend), ecc.ID(raw.Curve))
	if err != nil {
		return err
	}
	a.Commitment = new(big.Int).SetBytes(raw.Commitment)
	a.Counts = raw.Counts
	a.Results = raw.Results
	a.Proof = pf
	return nil
}
