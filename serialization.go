package psi

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v5/core/rlwe"
	"github.com/tuneinsight/lattigo/v5/he/heint"
)

// MarshalBinary serializes the ciphertext. The degenerate ciphertext
// serializes to an empty payload, so the sentinel survives the wire.
func (ct Ciphertext) MarshalBinary() ([]byte, error) {
	if ct.Degenerate() {
		return []byte{}, nil
	}
	data, err := ct.Ciphertext.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshal ciphertext: %w", err)
	}
	return data, nil
}

// UnmarshalBinary deserializes a ciphertext; an empty payload restores the
// degenerate sentinel.
func (ct *Ciphertext) UnmarshalBinary(data []byte) error {
	if len(data) == 0 {
		ct.Ciphertext = nil
		return nil
	}
	inner := new(rlwe.Ciphertext)
	if err := inner.UnmarshalBinary(data); err != nil {
		return fmt.Errorf("unmarshal ciphertext: %w", err)
	}
	ct.Ciphertext = inner
	return nil
}

// ParametersFromBytes restores a parameter set serialized with
// Parameters.MarshalBinary.
func ParametersFromBytes(data []byte) (Parameters, error) {
	var params heint.Parameters
	if err := params.UnmarshalBinary(data); err != nil {
		return Parameters{}, fmt.Errorf("unmarshal parameters: %w", err)
	}
	return Parameters{Parameters: params}, nil
}

// PublicKeyFromBytes restores a public key serialized with its
// MarshalBinary.
func PublicKeyFromBytes(data []byte) (*rlwe.PublicKey, error) {
	pk := new(rlwe.PublicKey)
	if err := pk.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("unmarshal public key: %w", err)
	}
	return pk, nil
}

// RelinearizationKeyFromBytes restores a relinearization key serialized
// with its MarshalBinary.
func RelinearizationKeyFromBytes(data []byte) (*rlwe.RelinearizationKey, error) {
	rlk := new(rlwe.RelinearizationKey)
	if err := rlk.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("unmarshal relinearization key: %w", err)
	}
	return rlk, nil
}
