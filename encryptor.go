package psi

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v5/core/rlwe"
)

// Ciphertext is a batched ciphertext as it travels between the parties.
// The zero value is the degenerate ciphertext: the well-defined encryption
// of the empty dataset, carrying no slots at all.
type Ciphertext struct {
	*rlwe.Ciphertext
}

// Degenerate reports whether the ciphertext is the empty sentinel.
func (ct Ciphertext) Degenerate() bool {
	return ct.Ciphertext == nil
}

// EncryptDataset packs the dataset values into slots [0, len) of a single
// batch, zero-fills the remaining slots and encrypts the batch under the
// receiver's public key. Slot i holds element i.
//
// An empty dataset encrypts to the degenerate ciphertext, not an error. A
// dataset longer than the slot capacity is a configuration error: the
// protocol aborts instead of silently dropping elements.
func (r *Receiver) EncryptDataset() (Ciphertext, error) {
	if r.dataset.Len() == 0 {
		return Ciphertext{}, nil
	}

	slots := r.engine.SlotCount()
	if r.dataset.Len() > slots {
		return Ciphertext{}, fmt.Errorf("%w: %d elements, %d slots", ErrCapacityExceeded, r.dataset.Len(), slots)
	}

	batch := make([]uint64, slots)
	for i := 0; i < r.dataset.Len(); i++ {
		batch[i] = r.dataset.Element(i).Value
	}

	pt, err := r.engine.EncodeBatch(batch)
	if err != nil {
		return Ciphertext{}, fmt.Errorf("encrypt dataset: %w", err)
	}
	ct, err := r.engine.Encrypt(pt, r.pk)
	if err != nil {
		return Ciphertext{}, fmt.Errorf("encrypt dataset: %w", err)
	}

	return Ciphertext{Ciphertext: ct}, nil
}
