// Package pool proves batches of tables against one compiled plan with a
// bounded number of workers. All tables share the system and key pair, so
// the per table cost is witness evaluation plus the backend prover.
package pool

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/consensys/gnark/logger"
	"golang.org/x/sync/errgroup"

	"github.com/provedb/zkquery"
	"github.com/provedb/zkquery/witness"
)

// Pool proves attestations for a fixed system with bounded parallelism.
type Pool struct {
	sys     *zkquery.System
	keys    *zkquery.Keys
	workers int
}

// New builds a pool over a compiled system and its keys. Worker counts below
// one default to GOMAXPROCS.
func New(sys *zkquery.System, keys *zkquery.Keys, workers int) *Pool {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Pool{sys: sys, keys: keys, workers: workers}
}

// ProveAll proves one attestation per table, index aligned with the input.
// The first failure cancels outstanding work and is returned with its table
// index; the partial results are discarded.
func (p *Pool) ProveAll(ctx context.Context, tables []*witness.Table) ([]*zkquery.Attestation, error) {
	atts := make([]*zkquery.Attestation, len(tables))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	start := time.Now()
	for i, t := range tables {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			att, err := p.sys.Prove(p.keys, t)
			if err != nil {
				return fmt.Errorf("table %d: %w", i, err)
			}
			atts[i] = att
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logger.Logger().Debug().
		Int("tables", len(tables)).
		Int("workers", p.workers).
		Dur("took", time.Since(start)).
		Msg("batch proved")
	return atts, nil
}
