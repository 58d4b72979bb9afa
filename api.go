// Package zkquery proves relational query results over private tables.
//
// A prover holds a table of unsigned integers, commits to it, and shows that
// published result columns follow from the committed table under a public
// query plan: range filtering, window filtering, sorting, group boundary
// detection, inner joins and per group aggregation. The verifier learns the
// claimed results and the row counts behind them, and nothing else about the
// table.
//
// The usual flow:
//
//	p, err := plan.NewBuilder(rows, cols). ... .Build()
//	sys, err := zkquery.Compile(p)
//	keys, err := sys.Setup()
//	att, err := sys.Prove(keys, table)
//	err = sys.Verify(keys, att)
//
// Attestations, proofs and keys serialize for transport, and plans carry
// their own canonical encoding, so the verifier side needs only the plan
// bytes, the verifying key and an attestation.
package zkquery

import (
	"github.com/provedb/zkquery/plan"
	qwitness "github.com/provedb/zkquery/witness"
)

// Attest compiles the plan, generates keys and proves the table's results in
// one call. Long lived provers should instead keep the System and Keys and
// amortize compilation and setup across tables.
func Attest(p *plan.Plan, t *qwitness.Table, opts ...Option) (*System, *Keys, *Attestation, error) {
	sys, err := Compile(p, opts...)
	if err != nil {
		return nil, nil, nil, err
	}
	keys, err := sys.Setup(opts...)
	if err != nil {
		return nil, nil, nil, err
	}
	att, err := sys.Prove(keys, t)
	if err != nil {
		return nil, nil, nil, err
	}
	return sys, keys, att, nil
}
