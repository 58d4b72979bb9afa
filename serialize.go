package zkquery

import (
	"fmt"
	"io"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/plonk"
)

// Proof wraps a backend proof with the metadata needed to reread it.
type Proof struct {
	backend backend.ID
	curve   ecc.ID
	pf      any
}

// Backend returns the proof system that produced the proof.
func (p *Proof) Backend() backend.ID { return p.backend }

// Curve returns the pairing curve.
func (p *Proof) Curve() ecc.ID { return p.curve }

// WriteTo serializes the proof in the backend native format.
func (p *Proof) WriteTo(w io.Writer) (int64, error) {
	wt, ok := p.pf.(io.WriterTo)
	if !ok {
		return 0, fmt.Errorf("%w: proof is not serializable", ErrSerialization)
	}
	return wt.WriteTo(w)
}

// ReadProof deserializes a proof written by WriteTo.
func ReadProof(r io.Reader, id backend.ID, curve ecc.ID) (*Proof, error) {
	var pf io.ReaderFrom
	switch id {
	case backend.GROTH16:
		pf = groth16.NewProof(curve)
	case backend.PLONK:
		pf = plonk.NewProof(curve)
	default:
		return nil, fmt.Errorf("%w: backend %s", ErrUnsupported, id)
	}
	if _, err := pf.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("%w: read proof: %w", ErrSerialization, err)
	}
	return &Proof{backend: id, curve: curve, pf: pf}, nil
}

// WriteVerifyingKeyTo serializes the verifying key in the backend native
// format.
func (k *Keys) WriteVerifyingKeyTo(w io.Writer) (int64, error) {
	wt, ok := k.vk.(io.WriterTo)
	if !ok {
		return 0, fmt.Errorf("%w: verifying key is not serializable", ErrSerialization)
	}
	return wt.WriteTo(w)
}

// WriteProvingKeyTo serializes the proving key in the backend native format.
// Keys read back from a verifying key stream alone have none.
func (k *Keys) WriteProvingKeyTo(w io.Writer) (int64, error) {
	wt, ok := k.pk.(io.WriterTo)
	if !ok {
		return 0, fmt.Errorf("%w: keys carry no proving key", ErrSerialization)
	}
	return wt.WriteTo(w)
}

// ReadVerifyingKey reads a verifying key alone. The result verifies
// attestations but cannot prove.
func ReadVerifyingKey(r io.Reader, id backend.ID, curve ecc.ID) (*Keys, error) {
	var vk io.ReaderFrom
	switch id {
	case backend.GROTH16:
		vk = groth16.NewVerifyingKey(curve)
	case backend.PLONK:
		vk = plonk.NewVerifyingKey(curve)
	default:
		return nil, fmt.Errorf("%w: backend %s", ErrUnsupported, id)
	}
	if _, err := vk.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("%w: read verifying key: %w", ErrSerialization, err)
	}
	return &Keys{backend: id, curve: curve, vk: vk}, nil
}

// ReadKeys reads a proving and verifying key pair written with the WriteTo
// methods.
func ReadKeys(pkr, vkr io.Reader, id backend.ID, curve ecc.ID) (*Keys, error) {
	keys, err := ReadVerifyingKey(vkr, id, curve)
	if err != nil {
		return nil, err
	}
	var pk io.ReaderFrom
	switch id {
	case backend.GROTH16:
		pk = groth16.NewProvingKey(curve)
	case backend.PLONK:
		pk = plonk.NewProvingKey(curve)
	}
	if _, err := pk.ReadFrom(pkr); err != nil {
		return nil, fmt.Errorf("%w: read proving key: %w", ErrSerialization, err)
	}
	keys.pk = pk
	return keys, nil
}
