package redis

import (
	"context"
	"errors"
	"sync"

	"github.com/pior/redis/resp"
)

// ErrNotSettled is returned by Request.Result before the request settled.
var ErrNotSettled = errors.New("redis: request not settled")

// Request is a command awaiting exactly one reply.
//
// It is settled once, by the Client that created it: fulfilled with the reply
// or rejected with an error. Callers observe it through Done, Wait and Result;
// nothing a caller does to a Request affects the outstanding queue.
type Request struct {
	name  string
	ready chan struct{}
	once  sync.Once

	// written once before ready is closed
	reply resp.Value
	err   error

	// onSettle reports the outcome, used by the circuit breaker
	onSettle func(err error)
}

func newRequest(name string) *Request {
	return &Request{
		name:  name,
		ready: make(chan struct{}),
	}
}

func rejectedRequest(name string, err error) *Request {
	r := newRequest(name)
	r.reject(err)
	return r
}

// Command returns the normalized (upper-case) command name.
func (r *Request) Command() string {
	return r.name
}

// Done returns a channel closed once the request is settled.
func (r *Request) Done() <-chan struct{} {
	return r.ready
}

// Settled reports whether the request is fulfilled or rejected.
func (r *Request) Settled() bool {
	select {
	case <-r.ready:
		return true
	default:
		return false
	}
}

// Wait blocks until the request is settled or ctx is done, then returns
// Result. Giving up on ctx doesn't cancel the command: it stays outstanding
// and its reply is consumed in order.
func (r *Request) Wait(ctx context.Context) (resp.Value, error) {
	select {
	case <-r.ready:
		return r.Result()
	case <-ctx.Done():
		return resp.Value{}, ctx.Err()
	}
}

// Result returns the outcome of a settled request without blocking.
//
// A rejected request returns the rejection error. A fulfilled request returns
// its reply, and a *resp.Error when the reply is an error reply.
func (r *Request) Result() (resp.Value, error) {
	if !r.Settled() {
		return resp.Value{}, ErrNotSettled
	}
	if r.err != nil {
		return resp.Value{}, r.err
	}
	return r.reply, r.reply.Err()
}

// Reply returns the raw reply of a fulfilled request, including error replies.
func (r *Request) Reply() (resp.Value, bool) {
	if !r.Settled() || r.err != nil {
		return resp.Value{}, false
	}
	return r.reply, true
}

// Err returns the rejection error, or nil if the request is pending or was
// fulfilled.
func (r *Request) Err() error {
	if !r.Settled() {
		return nil
	}
	return r.err
}

func (r *Request) fulfill(reply resp.Value) bool {
	return r.settle(reply, nil)
}

func (r *Request) reject(err error) bool {
	return r.settle(resp.Value{}, err)
}

// settle returns false when the request was already settled.
func (r *Request) settle(reply resp.Value, err error) bool {
	settled := false
	r.once.Do(func() {
		r.reply = reply
		r.err = err
		close(r.ready)
		settled = true

		if r.onSettle != nil {
			r.onSettle(err)
		}
	})
	return settled
}
