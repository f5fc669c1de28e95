package psi_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blindset/psi"
	"github.com/blindset/psi/internal/exchange"
	"github.com/blindset/psi/sendersim"
)

// TestEndToEnd runs one full session through the in-process exchange with
// every protocol message crossing a serialization boundary, the way the
// two binaries exchange them.
func TestEndToEnd(t *testing.T) {
	params, err := psi.NewParametersFromLiteral(psi.PN13T65537)
	require.NoError(t, err)

	recv, err := psi.SetupKeys(psi.NewEngine(params))
	require.NoError(t, err)

	dataset, err := psi.NewDataset([]string{"0000", "0001", "0010", "0111"})
	require.NoError(t, err)
	require.NoError(t, recv.SetDataset(dataset))

	ct, err := recv.EncryptDataset()
	require.NoError(t, err)

	paramsData, err := recv.Parameters().MarshalBinary()
	require.NoError(t, err)
	pkData, err := recv.PublicKey().MarshalBinary()
	require.NoError(t, err)
	rlkData, err := recv.RelinearizationKey().MarshalBinary()
	require.NoError(t, err)
	ctData, err := ct.MarshalBinary()
	require.NoError(t, err)

	exch := exchange.NewMemoryExchange()
	defer exch.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	// Sender worker: {1, 7, 9} against the receiver's {0, 1, 2, 7}.
	senderErr := make(chan error, 1)
	go func() {
		senderErr <- func() error {
			query, err := exch.NextQuery(ctx)
			if err != nil {
				return err
			}
			qParams, err := psi.ParametersFromBytes(query.Params)
			if err != nil {
				return err
			}
			pk, err := psi.PublicKeyFromBytes(query.PublicKey)
			if err != nil {
				return err
			}
			rlk, err := psi.RelinearizationKeyFromBytes(query.RelinKey)
			if err != nil {
				return err
			}
			var batch psi.Ciphertext
			if err := batch.UnmarshalBinary(query.Ciphertext); err != nil {
				return err
			}

			sender := sendersim.New(qParams, pk, rlk, []uint64{1, 7, 9})
			reply, err := sender.Intersect(batch)
			if err != nil {
				return err
			}
			replyData, err := reply.MarshalBinary()
			if err != nil {
				return err
			}
			return exch.PostResponse(ctx, &exchange.Response{
				SessionID:  query.SessionID,
				Ciphertext: replyData,
			})
		}()
	}()

	require.NoError(t, exch.PostQuery(ctx, &exchange.Query{
		SessionID:  "e2e",
		Params:     paramsData,
		PublicKey:  pkData,
		RelinKey:   rlkData,
		Ciphertext: ctData,
	}))

	resp, err := exch.AwaitResponse(ctx, "e2e")
	require.NoError(t, err)
	require.NoError(t, <-senderErr)

	var reply psi.Ciphertext
	require.NoError(t, reply.UnmarshalBinary(resp.Ciphertext))

	result, err := recv.DecryptAndIntersect(reply)
	require.NoError(t, err)
	require.Equal(t, []string{"0001", "0111"}, result.Intersection)
	require.True(t, result.Reliable())
}

// TestEndToEndEmptyDataset checks that an empty receiver dataset flows
// through the wire as the degenerate sentinel and comes back as the empty
// intersection.
func TestEndToEndEmptyDataset(t *testing.T) {
	params, err := psi.NewParametersFromLiteral(psi.PN12T65537)
	require.NoError(t, err)

	recv, err := psi.SetupKeys(psi.NewEngine(params))
	require.NoError(t, err)

	ct, err := recv.EncryptDataset()
	require.NoError(t, err)
	require.True(t, ct.Degenerate())

	ctData, err := ct.MarshalBinary()
	require.NoError(t, err)

	var batch psi.Ciphertext
	require.NoError(t, batch.UnmarshalBinary(ctData))

	sender := sendersim.New(recv.Parameters(), recv.PublicKey(), recv.RelinearizationKey(), []uint64{1, 2})
	reply, err := sender.Intersect(batch)
	require.NoError(t, err)
	require.True(t, reply.Degenerate())

	result, err := recv.DecryptAndIntersect(reply)
	require.NoError(t, err)
	require.Empty(t, result.Intersection)
	require.False(t, result.Reliable())
}
