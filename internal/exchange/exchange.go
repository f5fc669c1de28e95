// Package exchange moves protocol messages between the receiver and the
// sender. The receiver posts one query per session (its encrypted batch
// plus the public material the sender needs) and blocks on the matching
// response; cancellation and timeouts are the caller's context.
package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrClosed reports use of an exchange after Close.
var ErrClosed = errors.New("exchange closed")

// Query is the receiver's opening message: everything the sender needs to
// run its computation. The secret key never appears here.
type Query struct {
	SessionID  string    `json:"session_id"`
	Params     []byte    `json:"params"`
	PublicKey  []byte    `json:"public_key"`
	RelinKey   []byte    `json:"relin_key"`
	Ciphertext []byte    `json:"ciphertext"`
	CreatedAt  time.Time `json:"created_at"`
}

// Response is the sender's reply, keyed by session.
type Response struct {
	SessionID  string    `json:"session_id"`
	Ciphertext []byte    `json:"ciphertext"`
	CreatedAt  time.Time `json:"created_at"`
}

// Exchange is the transport boundary between the two parties.
type Exchange interface {
	// PostQuery publishes the receiver's query.
	PostQuery(ctx context.Context, q *Query) error
	// NextQuery blocks until a query is available.
	NextQuery(ctx context.Context) (*Query, error)
	// PostResponse publishes the sender's response.
	PostResponse(ctx context.Context, r *Response) error
	// AwaitResponse blocks until the response for the session arrives.
	AwaitResponse(ctx context.Context, sessionID string) (*Response, error)
	// Close releases the transport.
	Close() error
}

// RedisExchange implements Exchange on Redis lists: one shared query list
// per exchange name, one response list per session.
type RedisExchange struct {
	client   *redis.Client
	queryKey string
	respKey  string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisExchange connects to Redis and verifies the connection.
func NewRedisExchange(cfg RedisConfig, name string) (*RedisExchange, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisExchange{
		client:   client,
		queryKey: "psi:queries:" + name,
		respKey:  "psi:response:",
	}, nil
}

func (e *RedisExchange) PostQuery(ctx context.Context, q *Query) error {
	q.CreatedAt = time.Now()

	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("marshal query: %w", err)
	}
	if err := e.client.LPush(ctx, e.queryKey, data).Err(); err != nil {
		return fmt.Errorf("post query: %w", err)
	}
	return nil
}

func (e *RedisExchange) NextQuery(ctx context.Context) (*Query, error) {
	result, err := e.client.BRPop(ctx, 0, e.queryKey).Result()
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("next query: %w", err)
	}
	if len(result) < 2 {
		return nil, fmt.Errorf("next query: malformed BRPOP reply")
	}

	var q Query
	if err := json.Unmarshal([]byte(result[1]), &q); err != nil {
		return nil, fmt.Errorf("unmarshal query: %w", err)
	}
	return &q, nil
}

func (e *RedisExchange) PostResponse(ctx context.Context, r *Response) error {
	r.CreatedAt = time.Now()

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}

	key := e.respKey + r.SessionID
	pipe := e.client.Pipeline()
	pipe.LPush(ctx, key, data)
	pipe.Expire(ctx, key, 24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("post response: %w", err)
	}
	return nil
}

func (e *RedisExchange) AwaitResponse(ctx context.Context, sessionID string) (*Response, error) {
	result, err := e.client.BRPop(ctx, 0, e.respKey+sessionID).Result()
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("await response: %w", err)
	}
	if len(result) < 2 {
		return nil, fmt.Errorf("await response: malformed BRPOP reply")
	}

	var r Response
	if err := json.Unmarshal([]byte(result[1]), &r); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &r, nil
}

func (e *RedisExchange) Close() error {
	return e.client.Close()
}

// MemoryExchange implements Exchange with channels, for tests and
// single-process demos. Closure is signalled through the done channel;
// the message channels themselves are never closed, so a poster blocked
// on a full buffer unblocks with ErrClosed instead of panicking when the
// exchange shuts down under it.
type MemoryExchange struct {
	mu        sync.Mutex
	queries   chan *Query
	responses map[string]chan *Response
	done      chan struct{}
	closed    bool
}

// NewMemoryExchange creates an in-process exchange.
func NewMemoryExchange() *MemoryExchange {
	return &MemoryExchange{
		queries:   make(chan *Query, 16),
		responses: make(map[string]chan *Response),
		done:      make(chan struct{}),
	}
}

func (e *MemoryExchange) PostQuery(ctx context.Context, q *Query) error {
	if e.isClosed() {
		return ErrClosed
	}

	q.CreatedAt = time.Now()
	select {
	case e.queries <- q:
		return nil
	case <-e.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *MemoryExchange) NextQuery(ctx context.Context) (*Query, error) {
	if e.isClosed() {
		return nil, ErrClosed
	}

	select {
	case q := <-e.queries:
		return q, nil
	case <-e.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *MemoryExchange) PostResponse(ctx context.Context, r *Response) error {
	r.CreatedAt = time.Now()
	ch := e.responseChan(r.SessionID)
	if ch == nil {
		return ErrClosed
	}
	select {
	case ch <- r:
		return nil
	case <-e.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *MemoryExchange) AwaitResponse(ctx context.Context, sessionID string) (*Response, error) {
	ch := e.responseChan(sessionID)
	if ch == nil {
		return nil, ErrClosed
	}
	select {
	case r := <-ch:
		return r, nil
	case <-e.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// responseChan returns the per-session channel, creating it on first use
// from either side. Returns nil after Close.
func (e *MemoryExchange) responseChan(sessionID string) chan *Response {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	ch, ok := e.responses[sessionID]
	if !ok {
		ch = make(chan *Response, 1)
		e.responses[sessionID] = ch
	}
	return ch
}

func (e *MemoryExchange) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *MemoryExchange) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	close(e.done)
	return nil
}
