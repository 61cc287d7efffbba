package redis

import (
	"context"
	"encoding"
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Sharded spreads commands over several clients by key.
//
// The key is the first argument of the command. Commands without arguments
// (PING) go to the first client. Replies stay ordered per client only.
type Sharded struct {
	clients  []*Client
	selector ServerSelector
}

// NewSharded creates a Sharded over clients. A nil selector means
// DefaultServerSelector.
func NewSharded(clients []*Client, selector ServerSelector) (*Sharded, error) {
	if len(clients) == 0 {
		return nil, errors.New("redis: no clients provided")
	}
	if selector == nil {
		selector = DefaultServerSelector
	}
	return &Sharded{clients: clients, selector: selector}, nil
}

// DialSharded connects to every address concurrently. If any dial fails, the
// connections already established are closed.
func DialSharded(ctx context.Context, addrs []string, config Config) (*Sharded, error) {
	if len(addrs) == 0 {
		return nil, errors.New("redis: no servers provided")
	}

	clients := make([]*Client, len(addrs))

	g, ctx := errgroup.WithContext(ctx)
	for i, addr := range addrs {
		g.Go(func() error {
			c, err := Dial(ctx, addr, config)
			if err != nil {
				return fmt.Errorf("dialing %s: %w", addr, err)
			}
			clients[i] = c
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, c := range clients {
			if c != nil {
				_ = c.Close()
			}
		}
		return nil, err
	}

	return NewSharded(clients, nil)
}

func (s *Sharded) Clients() []*Client {
	return s.clients
}

// ClientFor returns the client owning key.
func (s *Sharded) ClientFor(key string) *Client {
	return s.clients[s.selector(key, len(s.clients))]
}

// Invoke sends the command to the client owning its first argument.
func (s *Sharded) Invoke(name string, args ...any) *Request {
	if len(args) == 0 {
		return s.clients[0].Invoke(name)
	}

	key, ok := shardKey(args[0])
	if !ok {
		return s.clients[0].Invoke(name, args...)
	}
	return s.ClientFor(key).Invoke(name, args...)
}

func shardKey(arg any) (string, bool) {
	switch v := arg.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	case encoding.TextMarshaler:
		b, err := v.MarshalText()
		return string(b), err == nil
	case fmt.Stringer:
		return v.String(), true
	default:
		return "", false
	}
}

// IsBusy reports whether any client has pending requests.
func (s *Sharded) IsBusy() bool {
	for _, c := range s.clients {
		if c.IsBusy() {
			return true
		}
	}
	return false
}

func (s *Sharded) End() {
	for _, c := range s.clients {
		c.End()
	}
}

func (s *Sharded) Close() error {
	var err error
	for _, c := range s.clients {
		err = multierr.Append(err, c.Close())
	}
	return err
}

// Shutdown ends every client and waits for them to close, see
// Client.Shutdown.
func (s *Sharded) Shutdown(ctx context.Context) error {
	errs := make([]error, len(s.clients))

	var g errgroup.Group
	for i, c := range s.clients {
		g.Go(func() error {
			errs[i] = c.Shutdown(ctx)
			return nil
		})
	}
	_ = g.Wait()

	return multierr.Combine(errs...)
}
