package testutils

import (
	"bytes"
	"io"
	"net"
	"sync"
	"time"
)

// StreamMock is a scripted net.Conn for testing.
//
// Reads return the chunks given to Push, one chunk per Read when the buffer is
// large enough. Hangup makes the next Read return io.EOF; Close makes pending
// and later reads fail with net.ErrClosed. Writes are recorded.
type StreamMock struct {
	chunks chan []byte
	hangup chan struct{}
	closed chan struct{}

	hangupOnce sync.Once
	closeOnce  sync.Once

	rest []byte // unread part of the last chunk, only touched by Read

	mu         sync.Mutex
	written    bytes.Buffer
	writes     int
	writeErr   error
	closeCount int
}

// NewStreamMock creates a mock with room for 64 pushed chunks.
func NewStreamMock() *StreamMock {
	return &StreamMock{
		chunks: make(chan []byte, 64),
		hangup: make(chan struct{}),
		closed: make(chan struct{}),
	}
}

// Push queues data to be read by the client, as a single chunk.
func (m *StreamMock) Push(data string) {
	m.chunks <- []byte(data)
}

// Hangup simulates the server closing the connection, after the pushed chunks.
func (m *StreamMock) Hangup() {
	m.hangupOnce.Do(func() { close(m.hangup) })
}

func (m *StreamMock) Read(b []byte) (int, error) {
	if len(m.rest) > 0 {
		n := copy(b, m.rest)
		m.rest = m.rest[n:]
		return n, nil
	}

	select {
	case <-m.closed:
		return 0, net.ErrClosed
	case chunk := <-m.chunks:
		n := copy(b, chunk)
		m.rest = chunk[n:]
		return n, nil
	default:
	}

	select {
	case <-m.closed:
		return 0, net.ErrClosed
	case chunk := <-m.chunks:
		n := copy(b, chunk)
		m.rest = chunk[n:]
		return n, nil
	case <-m.hangup:
		return 0, io.EOF
	}
}

func (m *StreamMock) Write(b []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	select {
	case <-m.closed:
		return 0, net.ErrClosed
	default:
	}
	if m.writeErr != nil {
		return 0, m.writeErr
	}

	m.writes++
	return m.written.Write(b)
}

func (m *StreamMock) Close() error {
	m.mu.Lock()
	m.closeCount++
	m.mu.Unlock()

	m.closeOnce.Do(func() { close(m.closed) })
	return nil
}

// SetWriteError makes every later Write fail with err.
func (m *StreamMock) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// Written returns everything written so far.
func (m *StreamMock) Written() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.written.String()
}

// Writes returns the number of successful Write calls.
func (m *StreamMock) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// CloseCount returns how many times Close was called.
func (m *StreamMock) CloseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCount
}

// IsClosed reports whether Close was called.
func (m *StreamMock) IsClosed() bool {
	select {
	case <-m.closed:
		return true
	default:
		return false
	}
}

func (m *StreamMock) LocalAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0}
}

func (m *StreamMock) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 6379}
}

func (m *StreamMock) SetDeadline(t time.Time) error      { return nil }
func (m *StreamMock) SetReadDeadline(t time.Time) error  { return nil }
func (m *StreamMock) SetWriteDeadline(t time.Time) error { return nil }
