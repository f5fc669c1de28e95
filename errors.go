package psi

import "errors"

// Common errors.
var (
	// ErrCapacityExceeded reports a dataset larger than the slot capacity of
	// a single ciphertext. Encryption aborts rather than truncating.
	ErrCapacityExceeded = errors.New("dataset exceeds ciphertext slot capacity")

	// ErrElementTooWide reports an element bit width the plaintext modulus
	// cannot hold without wrapping.
	ErrElementTooWide = errors.New("element bit width exceeds plaintext capacity")

	// ErrMixedWidth reports a dataset whose elements do not share a single
	// fixed bit width.
	ErrMixedWidth = errors.New("dataset elements have mixed bit widths")

	// ErrNotBinary reports a dataset element containing runes other than
	// '0' and '1'.
	ErrNotBinary = errors.New("dataset element is not a bit-string")

	// ErrSlotMismatch reports a decoded slot vector shorter than the
	// dataset it should cover.
	ErrSlotMismatch = errors.New("decoded slot vector shorter than dataset")
)
