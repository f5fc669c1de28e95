// Package psi implements the receiver side of a two-party private set
// intersection protocol on batched leveled homomorphic encryption.
//
// The receiver encodes its dataset into the slots of a single BFV/BGV
// ciphertext and hands the ciphertext (together with its relinearization
// keys) to the sender. The sender evaluates a blind computation that leaves
// zero in every slot whose element both parties hold and a non-zero value
// everywhere else. The receiver decrypts the sender's reply, applies the
// zero-test per slot and reads off the intersection, along with the
// remaining noise budget of the reply as a correctness diagnostic.
//
// This implementation is built on tuneinsight/lattigo:
//   - he/heint for batched integer encoding and homomorphic arithmetic
//   - core/rlwe for key material, encryption and decryption
package psi

import (
	"math/bits"

	"github.com/tuneinsight/lattigo/v5/he/heint"
)

// Parameters defines the encryption parameter set of a PSI session.
type Parameters struct {
	heint.Parameters
}

// ParametersLiteral is a user-friendly parameter specification.
type ParametersLiteral struct {
	// LogN is log2 of the ring degree; the batch holds 2^LogN slots
	LogN int
	// LogQ are the bit sizes of the ciphertext modulus primes; their sum
	// bounds the noise budget available to the sender's computation
	LogQ []int
	// LogP are the bit sizes of the auxiliary primes used by the
	// relinearization keys
	LogP []int
	// PlaintextModulus is the prime plaintext modulus; it must be congruent
	// to 1 mod 2^(LogN+1) for slot batching to be available
	PlaintextModulus uint64
}

// Standard parameter sets
var (
	// PN13T65537 provides ~128-bit security, 8192 slots and noise headroom
	// for a small sender set. Element values must fit in 16 bits.
	PN13T65537 = ParametersLiteral{
		LogN:             13,
		LogQ:             []int{54, 54, 54},
		LogP:             []int{55},
		PlaintextModulus: 0x10001, // 65537
	}

	// PN12T65537 is a smaller set used for fast tests: 4096 slots, two
	// levels, 16-bit elements.
	PN12T65537 = ParametersLiteral{
		LogN:             12,
		LogQ:             []int{45, 45},
		LogP:             []int{46},
		PlaintextModulus: 0x10001,
	}
)

// NewParametersFromLiteral creates Parameters from a literal specification.
func NewParametersFromLiteral(lit ParametersLiteral) (Parameters, error) {
	params, err := heint.NewParametersFromLiteral(heint.ParametersLiteral{
		LogN:             lit.LogN,
		LogQ:             lit.LogQ,
		LogP:             lit.LogP,
		PlaintextModulus: lit.PlaintextModulus,
	})
	if err != nil {
		return Parameters{}, err
	}
	return Parameters{Parameters: params}, nil
}

// SlotCount returns the number of batch slots a single ciphertext holds.
func (p Parameters) SlotCount() int {
	return p.MaxSlots()
}

// MaxElementBits returns the widest element bit-string the plaintext
// modulus can hold without wrapping.
func (p Parameters) MaxElementBits() int {
	return bits.Len64(p.PlaintextModulus()-1) - 1
}
