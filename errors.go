package zkquery

import "errors"

var (
	// ErrInvalidPlan reports a plan that fails validation.
	ErrInvalidPlan = errors.New("invalid plan")
	// ErrUnsupported reports a backend the package has no implementation for,
	// or keys and proofs used with the wrong backend.
	ErrUnsupported = errors.New("unsupported configuration")
	// ErrProofRejected reports a proof that does not verify against the
	// claimed commitment, counts and results.
	ErrProofRejected = errors.New("proof rejected")
	// ErrNoSRS reports a PLONK setup without a structured reference string.
	// Provide one with WithSRS, or WithUnsafeSRS in tests.
	ErrNoSRS = errors.New("missing structured reference string")
	// ErrSerialization reports a proof, key or attestation stream that could
	// not be decoded.
	ErrSerialization = errors.New("serialization failed")
)
