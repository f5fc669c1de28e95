package psi

import (
	"fmt"
)

// ComputationResult carries the outcome of one PSI session: the
// intersection in the receiver's dataset order and the noise budget left in
// the sender's reply. It is populated once by DecryptAndIntersect and not
// mutated afterwards.
type ComputationResult struct {
	// Intersection holds the bit-string forms of the shared elements,
	// preserving the receiver's dataset order.
	Intersection []string
	// NoiseBudget is the correctness margin (in bits) remaining in the
	// sender's reply after its homomorphic computation. Zero for the
	// degenerate reply.
	NoiseBudget int
}

// Reliable reports whether the intersection can be trusted: a reply whose
// noise budget reached zero may have decrypted incorrectly. The result is
// still returned either way; discarding it is the caller's decision.
func (res *ComputationResult) Reliable() bool {
	return res.NoiseBudget > 0
}

// DecryptAndIntersect decrypts the sender's reply under the receiver's
// secret key, decodes the batch and applies the zero-test: element i is a
// member of the intersection exactly when slot i decrypted to zero. Slots
// beyond the dataset length are padding and carry no membership meaning.
//
// A degenerate reply (mirroring the empty-dataset encryption) yields the
// empty result immediately. The receiver's key material and dataset are
// never mutated.
func (r *Receiver) DecryptAndIntersect(reply Ciphertext) (*ComputationResult, error) {
	res := &ComputationResult{Intersection: []string{}}

	if reply.Degenerate() {
		return res, nil
	}

	pt, err := r.engine.Decrypt(reply.Ciphertext, r.sk)
	if err != nil {
		return nil, fmt.Errorf("decrypt reply: %w", err)
	}
	slots, err := r.engine.DecodeBatch(pt)
	if err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	if len(slots) < r.dataset.Len() {
		return nil, fmt.Errorf("%w: %d slots, %d elements", ErrSlotMismatch, len(slots), r.dataset.Len())
	}

	for i := 0; i < r.dataset.Len(); i++ {
		if slots[i] == 0 {
			res.Intersection = append(res.Intersection, r.dataset.Element(i).Bits)
		}
	}

	res.NoiseBudget = r.engine.NoiseBudget(reply.Ciphertext, r.sk)

	return res, nil
}
