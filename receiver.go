package psi

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v5/core/rlwe"
)

// Receiver holds the key material and dataset of one PSI session. A
// Receiver owns its secret key exclusively for the lifetime of the session;
// only the public and relinearization keys ever leave it. A Receiver is not
// safe for concurrent use; concurrent sessions each need their own
// Receiver with their own key pair.
type Receiver struct {
	engine Engine

	sk  *rlwe.SecretKey
	pk  *rlwe.PublicKey
	rlk *rlwe.RelinearizationKey

	dataset *Dataset
}

// SetupKeys generates fresh key material for a new session: a secret key,
// the matching public key and the relinearization key set the sender needs
// for homomorphic multiplication. A key generation failure aborts session
// setup. The returned Receiver carries no dataset yet.
func SetupKeys(engine Engine) (*Receiver, error) {
	sk, pk, rlk, err := engine.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("key generation: %w", err)
	}
	return &Receiver{
		engine: engine,
		sk:     sk,
		pk:     pk,
		rlk:    rlk,
	}, nil
}

// SetDataset attaches the receiver's dataset to the session. The element
// width must fit the plaintext modulus, otherwise encoded values would wrap
// and the zero-test would produce false members.
func (r *Receiver) SetDataset(ds *Dataset) error {
	if max := r.engine.Parameters().MaxElementBits(); ds.BitWidth() > max {
		return fmt.Errorf("%w: width %d, capacity %d bits", ErrElementTooWide, ds.BitWidth(), max)
	}
	r.dataset = ds
	return nil
}

// Dataset returns the session dataset, nil if none was set.
func (r *Receiver) Dataset() *Dataset {
	return r.dataset
}

// ElementBitWidth returns the fixed bit width of the dataset elements,
// zero when no dataset is set.
func (r *Receiver) ElementBitWidth() int {
	return r.dataset.BitWidth()
}

// PublicKey returns the receiver's public key.
func (r *Receiver) PublicKey() *rlwe.PublicKey {
	return r.pk
}

// RelinearizationKey returns the key set the sender needs to relinearize
// after ciphertext-ciphertext multiplications.
func (r *Receiver) RelinearizationKey() *rlwe.RelinearizationKey {
	return r.rlk
}

// Parameters returns the parameter set of the session.
func (r *Receiver) Parameters() Parameters {
	return r.engine.Parameters()
}
