package psi

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewDataset(t *testing.T) {
	ds, err := NewDataset([]string{"0101", "1111", "0000"})
	require.NoError(t, err)
	require.Equal(t, 3, ds.Len())
	require.Equal(t, 4, ds.BitWidth())
	require.Equal(t, []uint64{5, 15, 0}, ds.Values())
	require.Equal(t, []string{"0101", "1111", "0000"}, ds.Bits())
	require.Equal(t, Element{Bits: "1111", Value: 15}, ds.Element(1))
}

func TestNewDatasetEmpty(t *testing.T) {
	ds, err := NewDataset(nil)
	require.NoError(t, err)
	require.Equal(t, 0, ds.Len())
	require.Equal(t, 0, ds.BitWidth())
}

func TestNewDatasetMixedWidth(t *testing.T) {
	_, err := NewDataset([]string{"0101", "111"})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMixedWidth))
}

func TestNewDatasetNotBinary(t *testing.T) {
	_, err := NewDataset([]string{"0102"})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrNotBinary))

	// 64-bit elements exceed the uint64 encoding headroom.
	_, err = NewDataset([]string{strings.Repeat("1", 64)})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrNotBinary))
}

func TestNewDatasetValuesIsCopy(t *testing.T) {
	ds, err := NewDataset([]string{"01", "10"})
	require.NoError(t, err)

	values := ds.Values()
	values[0] = 99
	require.Equal(t, []uint64{1, 2}, ds.Values())
}

func TestReadDataset(t *testing.T) {
	in := "0101\n\n  1111  \n0000\n"
	ds, err := ReadDataset(strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, []string{"0101", "1111", "0000"}, ds.Bits())
}

func TestHashStrings(t *testing.T) {
	items := []string{"alice@example.com", "bob@example.com", "carol@example.com"}

	ds, err := HashStrings(items, 16)
	require.NoError(t, err)
	require.Equal(t, len(items), ds.Len())
	require.Equal(t, 16, ds.BitWidth())
	for _, v := range ds.Values() {
		require.Less(t, v, uint64(1<<16))
	}

	// Deterministic: hashing the same items again yields the same dataset.
	again, err := HashStrings(items, 16)
	require.NoError(t, err)
	require.Equal(t, ds.Bits(), again.Bits())

	// Different widths map to different datasets of the right width.
	narrow, err := HashStrings(items, 8)
	require.NoError(t, err)
	require.Equal(t, 8, narrow.BitWidth())
}

func TestHashStringsBadWidth(t *testing.T) {
	_, err := HashStrings([]string{"x"}, 0)
	require.Error(t, err)
	_, err = HashStrings([]string{"x"}, 64)
	require.Error(t, err)
}
