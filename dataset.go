package psi

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Element is one dataset entry: the original bit-string and its integer
// encoding. Both forms travel together so slot index i always refers to the
// same element in either form.
type Element struct {
	Bits  string
	Value uint64
}

// Dataset is an ordered, fixed-width collection of elements. The fixed
// width is enforced at construction: every bit-string must have the length
// of the first one.
type Dataset struct {
	elems    []Element
	bitWidth int
}

// NewDataset builds a dataset from bit-strings, validating that every
// entry is binary and that all entries share one bit width. An empty input
// yields the valid empty dataset.
func NewDataset(bitstrings []string) (*Dataset, error) {
	if len(bitstrings) == 0 {
		return &Dataset{}, nil
	}

	width := len(bitstrings[0])
	if width == 0 || width > 63 {
		return nil, fmt.Errorf("%w: width %d", ErrNotBinary, width)
	}

	elems := make([]Element, 0, len(bitstrings))
	for i, s := range bitstrings {
		if len(s) != width {
			return nil, fmt.Errorf("%w: element %d has width %d, want %d", ErrMixedWidth, i, len(s), width)
		}
		v, err := strconv.ParseUint(s, 2, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: element %d %q", ErrNotBinary, i, s)
		}
		elems = append(elems, Element{Bits: s, Value: v})
	}

	return &Dataset{elems: elems, bitWidth: width}, nil
}

// ReadDataset reads a dataset from r, one bit-string per line. Blank lines
// are skipped.
func ReadDataset(r io.Reader) (*Dataset, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	return NewDataset(lines)
}

// LoadDataset reads a dataset from a file of bit-strings.
func LoadDataset(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return ReadDataset(f)
}

// HashStrings maps arbitrary strings onto a fixed-width dataset by hashing
// each item with BLAKE2b and keeping the low bitWidth bits. Both parties
// must use the same width for the zero-test to be meaningful.
func HashStrings(items []string, bitWidth int) (*Dataset, error) {
	if bitWidth < 1 || bitWidth > 63 {
		return nil, fmt.Errorf("%w: width %d", ErrElementTooWide, bitWidth)
	}
	bitstrings := make([]string, len(items))
	for i, item := range items {
		sum := blake2b.Sum256([]byte(item))
		v := binary.LittleEndian.Uint64(sum[:8]) & (1<<uint(bitWidth) - 1)
		bitstrings[i] = fmt.Sprintf("%0*b", bitWidth, v)
	}
	return NewDataset(bitstrings)
}

// Len returns the number of elements.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.elems)
}

// BitWidth returns the shared bit width of the elements, zero for the
// empty dataset.
func (d *Dataset) BitWidth() int {
	if d == nil {
		return 0
	}
	return d.bitWidth
}

// Element returns the element at index i.
func (d *Dataset) Element(i int) Element {
	return d.elems[i]
}

// Values returns the integer encodings in dataset order. The slice is a
// copy; mutating it does not affect the dataset.
func (d *Dataset) Values() []uint64 {
	values := make([]uint64, d.Len())
	for i, e := range d.elems {
		values[i] = e.Value
	}
	return values
}

// Bits returns the bit-string forms in dataset order.
func (d *Dataset) Bits() []string {
	bits := make([]string, d.Len())
	for i, e := range d.elems {
		bits[i] = e.Bits
	}
	return bits
}
