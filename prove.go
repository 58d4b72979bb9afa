package zkquery

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/logger"
	"github.com/consensys/gnark/test/unsafekzg"

	"github.com/provedb/zkquery/plan"
	qwitness "github.com/provedb/zkquery/witness"
)

// Keys holds the proving and verifying key of one compiled system. Keys read
// back from a verifying key stream alone can verify but not prove.
type Keys struct {
	backend backend.ID
	curve   ecc.ID
	pk      any
	vk      any
}

// Backend returns the proof system the keys belong to.
func (k *Keys) Backend() backend.ID { return k.backend }

// Curve returns the pairing curve the keys belong to.
func (k *Keys) Curve() ecc.ID { return k.curve }

// Setup runs the backend key generation. PLONK setups need a structured
// reference string, from WithSRS or, in tests, WithUnsafeSRS.
func (s *System) Setup(opts ...Option) (*Keys, error) {
	cfg := newConfig(opts...)
	switch s.backend {
	case backend.GROTH16:
		pk, vk, err := groth16.Setup(s.ccs)
		if err != nil {
			return nil, fmt.Errorf("groth16 setup: %w", err)
		}
		return &Keys{backend: s.backend, curve: s.curve, pk: pk, vk: vk}, nil
	case backend.PLONK:
		srs, srsLagrange := cfg.srs, cfg.srsLagrange
		if srs == nil {
			if !cfg.unsafeSRS {
				return nil, ErrNoSRS
			}
			var err error
			srs, srsLagrange, err = unsafekzg.NewSRS(s.ccs)
			if err != nil {
				return nil, fmt.Errorf("unsafe srs: %w", err)
			}
		}
		pk, vk, err := plonk.Setup(s.ccs, srs, srsLagrange)
		if err != nil {
			return nil, fmt.Errorf("plonk setup: %w", err)
		}
		return &Keys{backend: s.backend, curve: s.curve, pk: pk, vk: vk}, nil
	default:
		return nil, fmt.Errorf("%w: backend %s", ErrUnsupported, s.backend)
	}
}

// Prove evaluates the plan over the table and proves the resulting claims.
// The returned attestation carries everything a verifier needs beyond the
// verifying key and the plan itself.
func (s *System) Prove(keys *Keys, t *qwitness.Table) (*Attestation, error) {
	if keys.backend != s.backend || keys.curve != s.curve {
		return nil, fmt.Errorf("%w: keys are %s/%s, system is %s/%s",
			ErrUnsupported, keys.backend, keys.curve, s.backend, s.curve)
	}
	assignment, res, err := qwitness.Assign(s.plan, t, s.curve, s.circuit...)
	if err != nil {
		return nil, err
	}
	w, err := frontend.NewWitness(assignment, s.curve.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("build witness: %w", err)
	}
	commitment := assignment.Commitment.(*big.Int)

	log := logger.Logger()
	start := time.Now()
	var pf any
	switch s.backend {
	case backend.GROTH16:
		pk, ok := keys.pk.(groth16.ProvingKey)
		if !ok {
			return nil, fmt.Errorf("%w: keys cannot prove", ErrUnsupported)
		}
		pf, err = groth16.Prove(s.ccs, pk, w)
	case backend.PLONK:
		pk, ok := keys.pk.(plonk.ProvingKey)
		if !ok {
			return nil, fmt.Errorf("%w: keys cannot prove", ErrUnsupported)
		}
		pf, err = plonk.Prove(s.ccs, pk, w)
	default:
		return nil, fmt.Errorf("%w: backend %s", ErrUnsupported, s.backend)
	}
	if err != nil {
		return nil, fmt.Errorf("prove: %w", err)
	}
	log.Debug().
		Str("backend", s.backend.String()).
		Dur("took", time.Since(start)).
		Msg("proved query plan")

	return &Attestation{
		Commitment: commitment,
		Counts:     res.Counts,
		Results:    res.Output(s.plan),
		Proof:      &Proof{backend: s.backend, curve: s.curve, pf: pf},
	}, nil
}

// Verify checks an attestation against the plan the keys were set up for.
// The commitment, counts and results inside the attestation are the claims
// being checked; a nil error means they follow from a table matching the
// commitment.
func Verify(keys *Keys, p *plan.Plan, att *Attestation, opts ...Option) error {
	cfg := newConfig(opts...)
	if att.Proof == nil {
		return fmt.Errorf("%w: attestation without proof", ErrProofRejected)
	}
	if att.Proof.backend != keys.backend || att.Proof.curve != keys.curve {
		return fmt.Errorf("%w: proof is %s/%s, keys are %s/%s",
			ErrUnsupported, att.Proof.backend, att.Proof.curve, keys.backend, keys.curve)
	}
	pub, err := qwitness.PublicAssignment(p, att.Commitment, att.Counts, att.Results, cfg.circuit...)
	if err != nil {
		return err
	}
	w, err := frontend.NewWitness(pub, keys.curve.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return fmt.Errorf("build public witness: %w", err)
	}
	switch keys.backend {
	case backend.GROTH16:
		vk, ok := keys.vk.(groth16.VerifyingKey)
		if !ok {
			return fmt.Errorf("%w: keys cannot verify", ErrUnsupported)
		}
		if err := groth16.Verify(att.Proof.pf.(groth16.Proof), vk, w); err != nil {
			return fmt.Errorf("%w: %w", ErrProofRejected, err)
		}
	case backend.PLONK:
		vk, ok := keys.vk.(plonk.VerifyingKey)
		if !ok {
			return fmt.Errorf("%w: keys cannot verify", ErrUnsupported)
		}
		if err := plonk.Verify(att.Proof.pf.(plonk.Proof), vk, w); err != nil {
			return fmt.Errorf("%w: %w", ErrProofRejected, err)
		}
	default:
		return fmt.Errorf("%w: backend %s", ErrUnsupported, keys.backend)
	}
	return nil
}

// Verify checks an attestation produced for this system's plan.
func (s *System) Verify(keys *Keys, att *Attestation) error {
	return Verify(keys, s.plan, att, WithCircuitOptions(s.circuit...))
}

// KeyCache memoizes setup results per plan digest, backend and curve, so
// repeated proving over the same plan pays for key generation once. Safe for
// concurrent use.
type KeyCache struct {
	mu   sync.RWMutex
	keys map[cacheKey]*Keys
}

type cacheKey struct {
	digest  [32]byte
	backend backend.ID
	curve   ecc.ID
}

// NewKeyCache returns an empty cache.
func NewKeyCache() *KeyCache {
	return &KeyCache{keys: make(map[cacheKey]*Keys)}
}

// Setup returns cached keys for the system's plan, running the backend setup
// on first use. Concurrent calls for the same plan may race the setup; the
// first result wins and the others are dropped.
func (c *KeyCache) Setup(s *System, opts ...Option) (*Keys, error) {
	digest, err := s.plan.Digest()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}
	ck := cacheKey{digest: digest, backend: s.backend, curve: s.curve}
	c.mu.RLock()
	keys, ok := c.keys[ck]
	c.mu.RUnlock()
	if ok {
		return keys, nil
	}
	keys, err = s.Setup(opts...)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.keys[ck]; ok {
		return cached, nil
	}
	c.keys[ck] = keys
	return keys, nil
}
