package plan

import (
	"golang.org/x/crypto/sha3"
)

// Digest returns a stable identifier of the plan, suitable as a proving key
// cache key. Plans with equal digests compile to identical circuits.
func (p *Plan) Digest() ([32]byte, error) {
	data, err := p.Encode()
	if err != nil {
		return [32]byte{}, err
	}
	return sha3.Sum256(data), nil
}
