package psi

import (
	"fmt"
	"math"

	"github.com/tuneinsight/lattigo/v5/core/rlwe"
	"github.com/tuneinsight/lattigo/v5/he/heint"
)

// Engine is the capability surface the protocol requires from a
// homomorphic encryption backend: batched encoding, public-key encryption,
// decryption and a noise measurement. The protocol never reaches past this
// interface into scheme internals.
type Engine interface {
	// Parameters returns the parameter set the engine was built with.
	Parameters() Parameters
	// SlotCount returns the number of batch slots per ciphertext.
	SlotCount() int
	// GenerateKeyPair generates a fresh secret key, the matching public key
	// and the relinearization key the sender needs for ciphertext-ciphertext
	// multiplication.
	GenerateKeyPair() (*rlwe.SecretKey, *rlwe.PublicKey, *rlwe.RelinearizationKey, error)
	// EncodeBatch packs values into the slots of a new plaintext. The slice
	// must not be longer than SlotCount.
	EncodeBatch(values []uint64) (*rlwe.Plaintext, error)
	// DecodeBatch unpacks a plaintext into its slot values.
	DecodeBatch(pt *rlwe.Plaintext) ([]uint64, error)
	// Encrypt encrypts a plaintext under the given public key.
	Encrypt(pt *rlwe.Plaintext, pk *rlwe.PublicKey) (*rlwe.Ciphertext, error)
	// Decrypt decrypts a ciphertext under the given secret key.
	Decrypt(ct *rlwe.Ciphertext, sk *rlwe.SecretKey) (*rlwe.Plaintext, error)
	// NoiseBudget returns the bits of correctness margin left in ct: the
	// distance between its noise and the decryption failure threshold.
	// Homomorphic operations applied upstream shrink it; zero means the
	// decrypted values can no longer be trusted.
	NoiseBudget(ct *rlwe.Ciphertext, sk *rlwe.SecretKey) int
}

// latticeEngine is the lattigo-backed default Engine.
type latticeEngine struct {
	params  Parameters
	encoder *heint.Encoder
}

// NewEngine returns an Engine backed by the lattigo heint scheme.
func NewEngine(params Parameters) Engine {
	return &latticeEngine{
		params:  params,
		encoder: heint.NewEncoder(params.Parameters),
	}
}

func (e *latticeEngine) Parameters() Parameters {
	return e.params
}

func (e *latticeEngine) SlotCount() int {
	return e.params.SlotCount()
}

func (e *latticeEngine) GenerateKeyPair() (*rlwe.SecretKey, *rlwe.PublicKey, *rlwe.RelinearizationKey, error) {
	kgen := rlwe.NewKeyGenerator(e.params.Parameters)
	sk, pk := kgen.GenKeyPairNew()
	rlk := kgen.GenRelinearizationKeyNew(sk)
	return sk, pk, rlk, nil
}

func (e *latticeEngine) EncodeBatch(values []uint64) (*rlwe.Plaintext, error) {
	if len(values) > e.SlotCount() {
		return nil, fmt.Errorf("%w: %d values, %d slots", ErrCapacityExceeded, len(values), e.SlotCount())
	}
	pt := heint.NewPlaintext(e.params.Parameters, e.params.MaxLevel())
	if err := e.encoder.Encode(values, pt); err != nil {
		return nil, fmt.Errorf("encode batch: %w", err)
	}
	return pt, nil
}

func (e *latticeEngine) DecodeBatch(pt *rlwe.Plaintext) ([]uint64, error) {
	values := make([]uint64, e.SlotCount())
	if err := e.encoder.Decode(pt, values); err != nil {
		return nil, fmt.Errorf("decode batch: %w", err)
	}
	return values, nil
}

func (e *latticeEngine) Encrypt(pt *rlwe.Plaintext, pk *rlwe.PublicKey) (*rlwe.Ciphertext, error) {
	ct, err := rlwe.NewEncryptor(e.params.Parameters, pk).EncryptNew(pt)
	if err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}
	return ct, nil
}

func (e *latticeEngine) Decrypt(ct *rlwe.Ciphertext, sk *rlwe.SecretKey) (*rlwe.Plaintext, error) {
	return rlwe.NewDecryptor(e.params.Parameters, sk).DecryptNew(ct), nil
}

// NoiseBudget measures the log2 gap between the decrypted (undecoded)
// ciphertext norm and the modulus at the ciphertext's level. The result is
// clamped at zero: a saturated ciphertext has no budget left, not a
// negative one.
func (e *latticeEngine) NoiseBudget(ct *rlwe.Ciphertext, sk *rlwe.SecretKey) int {
	dec := rlwe.NewDecryptor(e.params.Parameters, sk)
	_, _, maxLog2 := rlwe.Norm(ct, dec)
	logQ := e.params.RingQ().ModulusAtLevel[ct.Level()].BitLen()
	budget := logQ - 1 - int(math.Ceil(maxLog2))
	if budget < 0 {
		budget = 0
	}
	return budget
}
