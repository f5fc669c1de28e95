// Package sendersim implements the sender side of the protocol contract:
// given the receiver's encrypted batch, it produces a ciphertext whose
// slot i decrypts to zero exactly when the receiver's element i is in the
// sender's set. It exists so the receiver can be exercised end to end, in
// tests and in the demo worker, without a second implementation of the
// scheme; a production sender only has to honor the same contract.
package sendersim

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v5/core/rlwe"
	"github.com/tuneinsight/lattigo/v5/he/heint"

	"github.com/blindset/psi"
)

// Sender evaluates the blind intersection computation over the receiver's
// encrypted batch. It holds only the receiver's public material: parameters,
// public key and relinearization keys.
type Sender struct {
	params    psi.Parameters
	set       []uint64
	encoder   *heint.Encoder
	encryptor *rlwe.Encryptor
	evaluator *heint.Evaluator
}

// New creates a Sender holding the given set. The parameters, public key
// and relinearization key all come from the receiver's session.
func New(params psi.Parameters, pk *rlwe.PublicKey, rlk *rlwe.RelinearizationKey, set []uint64) *Sender {
	return &Sender{
		params:    params,
		set:       append([]uint64(nil), set...),
		encoder:   heint.NewEncoder(params.Parameters),
		encryptor: heint.NewEncryptor(params.Parameters, pk),
		evaluator: heint.NewEvaluator(params.Parameters, rlwe.NewMemEvaluationKeySet(rlk)),
	}
}

// Intersect computes, slot-wise, the product over the sender's set of
// (query - s). A slot holding a value both parties share picks up a zero
// factor; every other slot ends up with a product of non-zero residues.
// Each multiplication is followed by a relinearization, so the reply stays
// a degree-one ciphertext. Every multiplication consumes noise budget: the
// depth supported by the parameter set bounds the sender's set size.
//
// A degenerate query yields a degenerate reply.
func (s *Sender) Intersect(query psi.Ciphertext) (psi.Ciphertext, error) {
	if query.Degenerate() {
		return psi.Ciphertext{}, nil
	}
	if len(s.set) == 0 {
		// Disjoint by definition: reply with a batch of ones so no slot
		// passes the zero-test.
		return s.constantReply(1)
	}

	var acc *rlwe.Ciphertext
	for _, v := range s.set {
		pt, err := s.constantBatch(v)
		if err != nil {
			return psi.Ciphertext{}, err
		}
		diff, err := s.evaluator.SubNew(query.Ciphertext, pt)
		if err != nil {
			return psi.Ciphertext{}, fmt.Errorf("subtract set element: %w", err)
		}
		if acc == nil {
			acc = diff
			continue
		}
		if acc, err = s.evaluator.MulRelinNew(acc, diff); err != nil {
			return psi.Ciphertext{}, fmt.Errorf("multiply differences: %w", err)
		}
	}

	return psi.Ciphertext{Ciphertext: acc}, nil
}

// constantBatch encodes the value v into every slot of a fresh plaintext.
func (s *Sender) constantBatch(v uint64) (*rlwe.Plaintext, error) {
	batch := make([]uint64, s.params.SlotCount())
	for i := range batch {
		batch[i] = v
	}
	pt := heint.NewPlaintext(s.params.Parameters, s.params.MaxLevel())
	if err := s.encoder.Encode(batch, pt); err != nil {
		return nil, fmt.Errorf("encode constant batch: %w", err)
	}
	return pt, nil
}

func (s *Sender) constantReply(v uint64) (psi.Ciphertext, error) {
	pt, err := s.constantBatch(v)
	if err != nil {
		return psi.Ciphertext{}, err
	}
	ct, err := s.encryptor.EncryptNew(pt)
	if err != nil {
		return psi.Ciphertext{}, fmt.Errorf("encrypt constant reply: %w", err)
	}
	return psi.Ciphertext{Ciphertext: ct}, nil
}

// EncryptSlots encrypts an arbitrary slot vector under the receiver's
// public key. Tests use it to hand the receiver a reply with exactly
// chosen slot values, bypassing the homomorphic computation.
func EncryptSlots(params psi.Parameters, pk *rlwe.PublicKey, slots []uint64) (psi.Ciphertext, error) {
	if len(slots) > params.SlotCount() {
		return psi.Ciphertext{}, fmt.Errorf("%d values exceed %d slots", len(slots), params.SlotCount())
	}
	batch := make([]uint64, params.SlotCount())
	copy(batch, slots)

	encoder := heint.NewEncoder(params.Parameters)
	pt := heint.NewPlaintext(params.Parameters, params.MaxLevel())
	if err := encoder.Encode(batch, pt); err != nil {
		return psi.Ciphertext{}, fmt.Errorf("encode slots: %w", err)
	}
	ct, err := heint.NewEncryptor(params.Parameters, pk).EncryptNew(pt)
	if err != nil {
		return psi.Ciphertext{}, fmt.Errorf("encrypt slots: %w", err)
	}
	return psi.Ciphertext{Ciphertext: ct}, nil
}
