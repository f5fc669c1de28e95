package exchange

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryExchangeQueryRoundTrip(t *testing.T) {
	exch := NewMemoryExchange()
	defer exch.Close()

	ctx := context.Background()

	require.NoError(t, exch.PostQuery(ctx, &Query{
		SessionID:  "s1",
		Ciphertext: []byte("query-payload"),
	}))

	q, err := exch.NextQuery(ctx)
	require.NoError(t, err)
	require.Equal(t, "s1", q.SessionID)
	require.Equal(t, []byte("query-payload"), q.Ciphertext)
	require.False(t, q.CreatedAt.IsZero())
}

func TestMemoryExchangeResponseBySession(t *testing.T) {
	exch := NewMemoryExchange()
	defer exch.Close()

	ctx := context.Background()

	require.NoError(t, exch.PostResponse(ctx, &Response{SessionID: "a", Ciphertext: []byte("for-a")}))
	require.NoError(t, exch.PostResponse(ctx, &Response{SessionID: "b", Ciphertext: []byte("for-b")}))

	rb, err := exch.AwaitResponse(ctx, "b")
	require.NoError(t, err)
	require.Equal(t, []byte("for-b"), rb.Ciphertext)

	ra, err := exch.AwaitResponse(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, []byte("for-a"), ra.Ciphertext)
}

func TestMemoryExchangeAwaitBeforePost(t *testing.T) {
	exch := NewMemoryExchange()
	defer exch.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan *Response, 1)
	errCh := make(chan error, 1)
	go func() {
		r, err := exch.AwaitResponse(ctx, "s")
		if err != nil {
			errCh <- err
			return
		}
		got <- r
	}()

	require.NoError(t, exch.PostResponse(ctx, &Response{SessionID: "s", Ciphertext: []byte("late")}))

	select {
	case r := <-got:
		require.Equal(t, []byte("late"), r.Ciphertext)
	case err := <-errCh:
		t.Fatalf("await failed: %v", err)
	case <-ctx.Done():
		t.Fatal("await did not complete")
	}
}

func TestMemoryExchangeContextCancel(t *testing.T) {
	exch := NewMemoryExchange()
	defer exch.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := exch.NextQuery(ctx)
	require.ErrorIs(t, err, context.Canceled)

	_, err = exch.AwaitResponse(ctx, "s")
	require.ErrorIs(t, err, context.Canceled)
}

func TestMemoryExchangeCloseUnblocksPoster(t *testing.T) {
	exch := NewMemoryExchange()
	ctx := context.Background()

	// Fill the query buffer so the next post blocks in the send.
	for i := 0; i < cap(exch.queries); i++ {
		require.NoError(t, exch.PostQuery(ctx, &Query{SessionID: "fill"}))
	}

	posted := make(chan error, 1)
	go func() {
		posted <- exch.PostQuery(ctx, &Query{SessionID: "blocked"})
	}()

	// Give the poster time to reach the send before closing.
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, exch.Close())

	select {
	case err := <-posted:
		require.ErrorIs(t, err, ErrClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("poster still blocked after Close")
	}
}

func TestMemoryExchangeClosed(t *testing.T) {
	exch := NewMemoryExchange()
	require.NoError(t, exch.Close())
	require.NoError(t, exch.Close()) // idempotent

	ctx := context.Background()
	require.ErrorIs(t, exch.PostQuery(ctx, &Query{SessionID: "s"}), ErrClosed)
	require.ErrorIs(t, exch.PostResponse(ctx, &Response{SessionID: "s"}), ErrClosed)

	_, err := exch.NextQuery(ctx)
	require.ErrorIs(t, err, ErrClosed)
	_, err = exch.AwaitResponse(ctx, "s")
	require.ErrorIs(t, err, ErrClosed)
}
