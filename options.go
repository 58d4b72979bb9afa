package zkquery

import (
	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/kzg"
	"github.com/consensys/gnark/backend"

	"github.com/provedb/zkquery/circuits/query"
)

// Option configures compilation and setup.
type Option func(*config)

type config struct {
	backend     backend.ID
	curve       ecc.ID
	circuit     []query.Option
	srs         kzg.SRS
	srsLagrange kzg.SRS
	unsafeSRS   bool
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		backend: backend.GROTH16,
		curve:   ecc.BN254,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithBackend selects the proof system. The default is Groth16.
func WithBackend(id backend.ID) Option {
	return func(cfg *config) { cfg.backend = id }
}

// WithCurve selects the pairing curve. The default is BN254.
func WithCurve(id ecc.ID) Option {
	return func(cfg *config) { cfg.curve = id }
}

// WithCircuitOptions forwards options to the query gates, for word widths
// other than the 64 bit default.
func WithCircuitOptions(opts ...query.Option) Option {
	return func(cfg *config) { cfg.circuit = opts }
}

// WithSRS provides the canonical and Lagrange structured reference strings a
// PLONK setup consumes. Both must be sized for the compiled circuit.
func WithSRS(srs, srsLagrange kzg.SRS) Option {
	return func(cfg *config) { cfg.srs, cfg.srsLagrange = srs, srsLagrange }
}

// WithUnsafeSRS lets a PLONK setup draw a locally generated reference string
// whose trapdoor is known to this process. Test and development use only.
func WithUnsafeSRS() Option {
	return func(cfg *config) { cfg.unsafeSRS = true }
}
