package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pior/redis/resp"
)

// NoTTL stores a key without expiration.
const NoTTL = 0

type Item struct {
	Key   string
	Value []byte
	TTL   time.Duration
	Found bool // indicates whether the key exists
}

type Querier interface {
	Get(ctx context.Context, key string) (Item, error)
	Set(ctx context.Context, item Item) error
	Delete(ctx context.Context, keys ...string) (int64, error)
	Increment(ctx context.Context, key string) (int64, error)
}

// Invoker sends one command and returns its pending request.
// Client and Sharded implement it.
type Invoker interface {
	Invoke(name string, args ...any) *Request
}

var (
	_ Invoker = (*Client)(nil)
	_ Invoker = (*Sharded)(nil)
)

// Commands provides typed helpers over an Invoker.
type Commands struct {
	invoker Invoker
}

var _ Querier = (*Commands)(nil)

func NewCommands(invoker Invoker) *Commands {
	return &Commands{invoker: invoker}
}

func (c *Commands) do(ctx context.Context, name string, args ...any) (resp.Value, error) {
	return c.invoker.Invoke(name, args...).Wait(ctx)
}

// Ping checks that the server answers.
func (c *Commands) Ping(ctx context.Context) error {
	reply, err := c.do(ctx, "PING")
	if err != nil {
		return err
	}
	if text, _ := reply.Text(); text != "PONG" {
		return fmt.Errorf("redis: unexpected PING reply: %s", resp.Format(reply))
	}
	return nil
}

// Get retrieves a key. A missing key is not an error: Found is false.
func (c *Commands) Get(ctx context.Context, key string) (Item, error) {
	reply, err := c.do(ctx, "GET", key)
	if err != nil {
		return Item{}, err
	}

	value, err := reply.Bytes()
	if errors.Is(err, resp.ErrNil) {
		return Item{Key: key, Found: false}, nil
	}
	if err != nil {
		return Item{}, err
	}

	return Item{Key: key, Value: value, Found: true}, nil
}

// Set stores an item, with millisecond precision when TTL is set.
func (c *Commands) Set(ctx context.Context, item Item) error {
	args := []any{item.Key, item.Value}
	if item.TTL > 0 {
		args = append(args, "PX", ttlMillis(item.TTL))
	}

	reply, err := c.do(ctx, "SET", args...)
	if err != nil {
		return err
	}
	if text, _ := reply.Text(); text != "OK" {
		return fmt.Errorf("redis: unexpected SET reply: %s", resp.Format(reply))
	}
	return nil
}

// Delete removes keys and returns how many existed.
func (c *Commands) Delete(ctx context.Context, keys ...string) (int64, error) {
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	return c.integer(ctx, "DEL", args...)
}

func (c *Commands) Increment(ctx context.Context, key string) (int64, error) {
	return c.integer(ctx, "INCR", key)
}

func (c *Commands) IncrementBy(ctx context.Context, key string, delta int64) (int64, error) {
	return c.integer(ctx, "INCRBY", key, delta)
}

// Expire sets a timeout on key, with millisecond precision. It returns false
// when the key doesn't exist. A TTL <= 0 deletes the key.
func (c *Commands) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	n, err := c.integer(ctx, "PEXPIRE", key, ttlMillis(ttl))
	return n == 1, err
}

func (c *Commands) integer(ctx context.Context, name string, args ...any) (int64, error) {
	reply, err := c.do(ctx, name, args...)
	if err != nil {
		return 0, err
	}
	return reply.Int64()
}

// ttlMillis converts a TTL for PX and PEXPIRE. Positive TTLs under a
// millisecond become 1ms instead of 0, which would expire the key at once or
// be rejected.
func ttlMillis(ttl time.Duration) int64 {
	ms := ttl.Milliseconds()
	if ttl > 0 && ms == 0 {
		return 1
	}
	return ms
}
