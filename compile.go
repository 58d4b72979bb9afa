package zkquery

import (
	"fmt"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/consensys/gnark/frontend/cs/scs"
	"github.com/consensys/gnark/logger"

	"github.com/provedb/zkquery/circuits/query"
	"github.com/provedb/zkquery/plan"
)

// System is a plan compiled into a constraint system, bound to one proof
// backend and one curve. A System is read only after Compile and safe for
// concurrent use.
type System struct {
	plan    *plan.Plan
	ccs     constraint.ConstraintSystem
	backend backend.ID
	curve   ecc.ID
	circuit []query.Option
}

// Compile validates the plan and builds its constraint system. Verifying
// keys derived from the result are bound to this exact plan: a different
// plan needs a fresh compile and setup.
func Compile(p *plan.Plan, opts ...Option) (*System, error) {
	cfg := newConfig(opts...)
	circuit, err := query.NewCircuit(p, cfg.circuit...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}
	var newBuilder frontend.NewBuilder
	switch cfg.backend {
	case backend.GROTH16:
		newBuilder = r1cs.NewBuilder
	case backend.PLONK:
		newBuilder = scs.NewBuilder
	default:
		return nil, fmt.Errorf("%w: backend %s", ErrUnsupported, cfg.backend)
	}
	log := logger.Logger()
	start := time.Now()
	ccs, err := frontend.Compile(cfg.curve.ScalarField(), newBuilder, circuit)
	if err != nil {
		return nil, fmt.Errorf("compile plan: %w", err)
	}
	log.Info().
		Str("backend", cfg.backend.String()).
		Str("curve", cfg.curve.String()).
		Int("rows", p.Rows).
		Int("ops", len(p.Ops)).
		Int("nbConstraints", ccs.GetNbConstraints()).
		Dur("took", time.Since(start)).
		Msg("compiled query plan")
	return &System{
		plan:    p,
		ccs:     ccs,
		backend: cfg.backend,
		curve:   cfg.curve,
		circuit: cfg.circuit,
	}, nil
}

// Plan returns the plan the system was compiled for.
func (s *System) Plan() *plan.Plan { return s.plan }

// Backend returns the proof system the constraints target.
func (s *System) Backend() backend.ID { return s.backend }

// Curve returns the pairing curve.
func (s *System) Curve() ecc.ID { return s.curve }

// ConstraintSystem exposes the compiled constraints, for callers driving the
// gnark backends directly.
func (s *System) ConstraintSystem() constraint.ConstraintSystem { return s.ccs }
