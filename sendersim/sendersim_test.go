package sendersim_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blindset/psi"
	"github.com/blindset/psi/sendersim"
)

// newSession uses the depth-3 parameter set: Intersect consumes one
// multiplicative level per extra sender element.
func newSession(t *testing.T, bitstrings []string) *psi.Receiver {
	t.Helper()

	params, err := psi.NewParametersFromLiteral(psi.PN13T65537)
	require.NoError(t, err)

	recv, err := psi.SetupKeys(psi.NewEngine(params))
	require.NoError(t, err)

	dataset, err := psi.NewDataset(bitstrings)
	require.NoError(t, err)
	require.NoError(t, recv.SetDataset(dataset))

	return recv
}

func TestIntersect(t *testing.T) {
	recv := newSession(t, []string{"0000", "0001", "0010"})

	query, err := recv.EncryptDataset()
	require.NoError(t, err)

	// Sender holds {0, 2, 5}; shared elements are 0 and 2.
	sender := sendersim.New(recv.Parameters(), recv.PublicKey(), recv.RelinearizationKey(), []uint64{0, 2, 5})
	reply, err := sender.Intersect(query)
	require.NoError(t, err)
	require.False(t, reply.Degenerate())

	result, err := recv.DecryptAndIntersect(reply)
	require.NoError(t, err)
	require.Equal(t, []string{"0000", "0010"}, result.Intersection)
	require.True(t, result.Reliable())
}

func TestIntersectDisjoint(t *testing.T) {
	recv := newSession(t, []string{"0001", "0011"})

	query, err := recv.EncryptDataset()
	require.NoError(t, err)

	sender := sendersim.New(recv.Parameters(), recv.PublicKey(), recv.RelinearizationKey(), []uint64{7, 9})
	reply, err := sender.Intersect(query)
	require.NoError(t, err)

	result, err := recv.DecryptAndIntersect(reply)
	require.NoError(t, err)
	require.Empty(t, result.Intersection)
}

func TestIntersectEmptySenderSet(t *testing.T) {
	recv := newSession(t, []string{"0000", "0001"})

	query, err := recv.EncryptDataset()
	require.NoError(t, err)

	// The element 0 would match a zero slot left by an inert sender; the
	// constant-one reply keeps it out.
	sender := sendersim.New(recv.Parameters(), recv.PublicKey(), recv.RelinearizationKey(), nil)
	reply, err := sender.Intersect(query)
	require.NoError(t, err)
	require.False(t, reply.Degenerate())

	result, err := recv.DecryptAndIntersect(reply)
	require.NoError(t, err)
	require.Empty(t, result.Intersection)
}

func TestIntersectDegenerateQuery(t *testing.T) {
	params, err := psi.NewParametersFromLiteral(psi.PN12T65537)
	require.NoError(t, err)

	recv, err := psi.SetupKeys(psi.NewEngine(params))
	require.NoError(t, err)

	sender := sendersim.New(recv.Parameters(), recv.PublicKey(), recv.RelinearizationKey(), []uint64{1, 2})
	reply, err := sender.Intersect(psi.Ciphertext{})
	require.NoError(t, err)
	require.True(t, reply.Degenerate())
}

func TestEncryptSlots(t *testing.T) {
	recv := newSession(t, []string{"01", "10", "11"})

	reply, err := sendersim.EncryptSlots(recv.Parameters(), recv.PublicKey(), []uint64{3, 0, 0})
	require.NoError(t, err)

	result, err := recv.DecryptAndIntersect(reply)
	require.NoError(t, err)
	require.Equal(t, []string{"10", "11"}, result.Intersection)
}

func TestEncryptSlotsTooMany(t *testing.T) {
	params, err := psi.NewParametersFromLiteral(psi.PN12T65537)
	require.NoError(t, err)

	recv, err := psi.SetupKeys(psi.NewEngine(params))
	require.NoError(t, err)

	slots := make([]uint64, params.SlotCount()+1)
	_, err = sendersim.EncryptSlots(recv.Parameters(), recv.PublicKey(), slots)
	require.Error(t, err)
}
