// Package redis is a pipelined client for the Redis protocol (RESP2).
package redis

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/pior/redis/internal"
	"github.com/pior/redis/internal/coarsetime"
	"github.com/pior/redis/resp"
)

// DefaultReadBufferSize is the size of the buffer used by the read loop.
const DefaultReadBufferSize = 16 * 1024

var requestBufferPool = internal.NewBytePool(256, 64*1024)

// Config holds the configuration of a Client. The zero value is usable.
type Config struct {
	// Logger receives lifecycle and protocol error logs.
	// If nil, logs are discarded.
	Logger *zap.Logger

	// Dialer is the net.Dialer used by Dial.
	// If nil, the default net.Dialer is used.
	Dialer *net.Dialer

	// ReadBufferSize is the size of the chunks read from the connection.
	// Zero means DefaultReadBufferSize.
	ReadBufferSize int

	// OnMessage is called for every decoded reply, matched or not.
	OnMessage func(reply resp.Value)

	// OnError is called for decode errors, replies without a request and
	// connection errors, right before the client closes.
	OnError func(err error)

	// OnClose is called exactly once, when the client reaches StateClosed.
	OnClose func()

	// CircuitBreaker gates Invoke when set. See NewCircuitBreaker.
	CircuitBreaker *CircuitBreaker
}

type eventKind uint8

const (
	eventMessage eventKind = iota
	eventError
	eventClose
)

type event struct {
	kind  eventKind
	reply resp.Value
	err   error
}

// Client is a pipelined connection to a Redis server.
//
// Invoke writes a command and returns immediately; replies are matched to
// requests by order only. Every method is safe for concurrent use.
//
// Callbacks from Config run outside of any client lock, one at a time and in
// the order the events happened. They may call back into the client.
type Client struct {
	conn    io.ReadWriteCloser
	logger  *zap.Logger
	breaker *CircuitBreaker

	onMessage func(resp.Value)
	onError   func(error)
	onClose   func()

	// mu guards the queue, the state and the parser.
	mu     sync.Mutex
	state  State
	queue  []*Request
	parser *resp.Parser
	err    error

	// Each queued request takes the next ticket under mu; writes happen in
	// ticket order, so the wire order is the queue order. mu is never held
	// while writing.
	nextTicket uint64
	writeMu    sync.Mutex
	writeCond  *sync.Cond
	writeTurn  uint64 // guarded by writeMu

	done chan struct{}

	eventsMu    sync.Mutex
	events      []event
	dispatching bool

	lastUsed atomic.Int64
	stats    clientStatsCollector
}

// NewClient creates a client over an established connection and starts its
// read loop. The client owns conn from now on.
func NewClient(conn io.ReadWriteCloser, config Config) *Client {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("redis")
	if nc, ok := conn.(net.Conn); ok && nc.RemoteAddr() != nil {
		logger = logger.With(zap.Stringer("addr", nc.RemoteAddr()))
	}

	readBufferSize := config.ReadBufferSize
	if readBufferSize <= 0 {
		readBufferSize = DefaultReadBufferSize
	}

	c := &Client{
		conn:      conn,
		logger:    logger,
		breaker:   config.CircuitBreaker,
		onMessage: config.OnMessage,
		onError:   config.OnError,
		onClose:   config.OnClose,
		state:     StateOpen,
		parser:    resp.NewParser(),
		done:      make(chan struct{}),
	}
	c.writeCond = sync.NewCond(&c.writeMu)
	c.touch()

	go c.readLoop(readBufferSize)

	return c
}

// Dial connects to addr over TCP and returns a client for it.
func Dial(ctx context.Context, addr string, config Config) (*Client, error) {
	dialer := config.Dialer
	if dialer == nil {
		dialer = &net.Dialer{}
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ConnectionError{Op: "dial", Err: err}
	}
	return NewClient(conn, config), nil
}

// Invoke sends a command and returns its pending request.
//
// The name is upper-cased. Invoke never blocks on the reply, only on the
// write. Refused commands come back already rejected:
//   - ErrConnectionClosing after End
//   - ErrConnectionClosed after the client closed
//   - *resp.ArgumentError for an argument that can't be encoded
//   - gobreaker.ErrOpenState or gobreaker.ErrTooManyRequests from the breaker
func (c *Client) Invoke(name string, args ...any) *Request {
	name = strings.ToUpper(name)

	c.mu.Lock()
	err := c.refusalLocked()
	c.mu.Unlock()
	if err != nil {
		return c.refuse(name, err)
	}

	buf := requestBufferPool.Get()
	defer requestBufferPool.Put(buf)

	b, err := resp.AppendRequest(*buf, name, args)
	*buf = b
	if err != nil {
		return c.refuse(name, err)
	}

	c.mu.Lock()

	// the state may have changed while encoding
	if err := c.refusalLocked(); err != nil {
		c.mu.Unlock()
		return c.refuse(name, err)
	}

	req := newRequest(name)
	if c.breaker != nil {
		done, err := c.breaker.Allow()
		if err != nil {
			c.mu.Unlock()
			return c.refuse(name, err)
		}
		req.onSettle = done
	}

	c.queue = append(c.queue, req)
	ticket := c.nextTicket
	c.nextTicket++
	c.stats.recordDispatch()
	c.mu.Unlock()

	err = c.write(ticket, b)
	c.touch()

	if err != nil {
		c.mu.Lock()
		// a failure caused by Close is not reported, req is already rejected
		if c.state != StateClosed {
			c.stats.recordWriteError()
			c.logger.Debug("write failed", zap.String("command", name), zap.Error(err))

			cause := &ConnectionError{Op: "write", Err: err}
			c.emitLocked(event{kind: eventError, err: cause})
			c.closeLocked(cause)
		}
		c.mu.Unlock()

		c.dispatchEvents()
	}
	return req
}

// write sends b once every request queued before it was written.
// Nothing is written once the client is closed.
func (c *Client) write(ticket uint64, b []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	for c.writeTurn != ticket {
		c.writeCond.Wait()
	}
	defer func() {
		c.writeTurn++
		c.writeCond.Broadcast()
	}()

	select {
	case <-c.done:
		return nil
	default:
	}

	_, err := c.conn.Write(b)
	return err
}

func (c *Client) refusalLocked() error {
	switch c.state {
	case StateDraining:
		return ErrConnectionClosing
	case StateClosed:
		return ErrConnectionClosed
	default:
		return nil
	}
}

// Do invokes a command and waits for its reply. A RESP error reply is
// returned as a *resp.Error.
func (c *Client) Do(ctx context.Context, name string, args ...any) (resp.Value, error) {
	return c.Invoke(name, args...).Wait(ctx)
}

func (c *Client) refuse(name string, err error) *Request {
	c.stats.recordReject()
	return rejectedRequest(name, err)
}

// IsBusy reports whether some requests are still waiting for a reply.
func (c *Client) IsBusy() bool {
	return c.Pending() > 0
}

// Pending returns the number of requests waiting for a reply.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// State returns the lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// End stops accepting commands and closes the connection once every pending
// request got its reply.
func (c *Client) End() {
	c.mu.Lock()
	if c.state != StateOpen {
		c.mu.Unlock()
		return
	}

	c.state = StateDraining
	c.logger.Debug("draining", zap.Int("pending", len(c.queue)))
	if len(c.queue) == 0 {
		c.closeLocked(nil)
	}
	c.mu.Unlock()

	c.dispatchEvents()
}

// Close closes the connection now. Pending requests are rejected with
// ErrConnectionClosing. Calling Close again does nothing.
func (c *Client) Close() error {
	c.abort(nil, false)
	return nil
}

// Shutdown ends the client gracefully and waits for it to close.
// When ctx expires first, the client is closed and ctx's error returned.
func (c *Client) Shutdown(ctx context.Context) error {
	c.End()

	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		c.abort(nil, false)
		return ctx.Err()
	}
}

// Done returns a channel closed when the client reaches StateClosed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that closed the client. It is nil while the client is
// open, and after End or Close.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Stats returns a snapshot of the client counters.
func (c *Client) Stats() ClientStats {
	return c.stats.snapshot()
}

// IdleDuration is the time since the last write or read, with the precision
// of the coarse clock.
func (c *Client) IdleDuration() time.Duration {
	return coarsetime.Since(time.Unix(0, c.lastUsed.Load()))
}

func (c *Client) touch() {
	c.lastUsed.Store(coarsetime.Now().UnixNano())
}

func (c *Client) readLoop(bufferSize int) {
	buf := make([]byte, bufferSize)

	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			c.handleData(buf[:n])
		}
		if err != nil {
			c.handleClose(err)
			return
		}
	}
}

// handleData feeds a chunk from the connection and routes the decoded replies.
func (c *Client) handleData(chunk []byte) {
	c.touch()

	c.mu.Lock()
	c.handleDataLocked(chunk)
	c.mu.Unlock()

	c.dispatchEvents()
}

func (c *Client) handleDataLocked(chunk []byte) {
	if c.state == StateClosed {
		return
	}

	if err := c.parser.Feed(chunk); err != nil {
		c.stats.recordProtocolError()
		c.logger.Warn("decode error", zap.Error(err))
		c.emitLocked(event{kind: eventError, err: err})
		c.closeLocked(err)
		return
	}

	for c.parser.HasNext() {
		c.routeReplyLocked(c.parser.Next())
		if c.state == StateClosed {
			return
		}
	}
}

// routeReplyLocked settles the oldest pending request with reply.
func (c *Client) routeReplyLocked(reply resp.Value) {
	c.emitLocked(event{kind: eventMessage, reply: reply})

	if len(c.queue) == 0 {
		c.stats.recordProtocolError()
		err := &DesyncError{Reply: reply}
		c.logger.Warn("reply without request", zap.Error(err))
		c.emitLocked(event{kind: eventError, err: err})
		c.closeLocked(err)
		return
	}

	req := c.queue[0]
	c.queue[0] = nil
	c.queue = c.queue[1:]
	if len(c.queue) == 0 {
		c.queue = nil
	}

	c.stats.recordReply(reply.IsError())
	req.fulfill(reply)

	if c.state == StateDraining && len(c.queue) == 0 {
		c.closeLocked(nil)
	}
}

// handleClose is called once the connection can't be read anymore.
func (c *Client) handleClose(readErr error) {
	if errors.Is(readErr, io.EOF) || errors.Is(readErr, net.ErrClosed) {
		c.abort(&ConnectionError{Op: "read", Err: readErr}, false)
		return
	}
	c.abort(&ConnectionError{Op: "read", Err: readErr}, true)
}

// abort closes the client now. cause is nil when the caller asked for it.
func (c *Client) abort(cause error, report bool) {
	c.mu.Lock()
	if c.state != StateClosed && report {
		c.emitLocked(event{kind: eventError, err: cause})
	}
	c.closeLocked(cause)
	c.mu.Unlock()

	c.dispatchEvents()
}

// closeLocked moves to StateClosed: the connection is closed, pending
// requests are rejected in order and the close event is queued.
// It does nothing when already closed.
func (c *Client) closeLocked(cause error) {
	if c.state == StateClosed {
		return
	}

	from := c.state
	c.state = StateClosed
	c.err = cause

	if err := c.conn.Close(); err != nil {
		c.logger.Debug("closing connection", zap.Error(err))
	}

	if len(c.queue) > 0 {
		rejection := closingError(cause)
		for i, req := range c.queue {
			c.queue[i] = nil
			req.reject(rejection)
			c.stats.recordReject()
		}
		c.queue = nil
	}

	close(c.done)
	c.emitLocked(event{kind: eventClose})

	c.logger.Debug("closed", zap.Stringer("from", from), zap.Error(cause))
}

// emitLocked queues an event. Events are delivered by dispatchEvents, after mu
// is released.
func (c *Client) emitLocked(ev event) {
	switch ev.kind {
	case eventMessage:
		if c.onMessage == nil {
			return
		}
	case eventError:
		if c.onError == nil {
			return
		}
	case eventClose:
		if c.onClose == nil {
			return
		}
	}

	c.eventsMu.Lock()
	c.events = append(c.events, ev)
	c.eventsMu.Unlock()
}

// dispatchEvents runs the queued callbacks. Only one goroutine drains the
// queue at a time; a nested or concurrent call returns immediately and its
// events are delivered by the running drainer.
func (c *Client) dispatchEvents() {
	c.eventsMu.Lock()
	if c.dispatching {
		c.eventsMu.Unlock()
		return
	}
	c.dispatching = true

	for len(c.events) > 0 {
		ev := c.events[0]
		c.events[0] = event{}
		c.events = c.events[1:]
		c.eventsMu.Unlock()

		switch ev.kind {
		case eventMessage:
			c.onMessage(ev.reply)
		case eventError:
			c.onError(ev.err)
		case eventClose:
			c.onClose()
		}

		c.eventsMu.Lock()
	}

	c.events = nil
	c.dispatching = false
	c.eventsMu.Unlock()
}
