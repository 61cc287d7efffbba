package redis

import (
	"errors"
	"fmt"

	"github.com/pior/redis/resp"
)

var (
	// ErrConnectionClosing rejects requests refused after End, and requests
	// still outstanding when the connection went down.
	ErrConnectionClosing = errors.New("redis: connection closing")

	// ErrConnectionClosed rejects requests invoked after the connection closed.
	ErrConnectionClosed = errors.New("redis: connection closed")

	// ErrProtocolDesync reports a reply that arrived with no outstanding
	// request. Replies are matched by order only, so the connection is unusable.
	ErrProtocolDesync = errors.New("redis: unexpected reply received, no matching request found")
)

// DesyncError carries the reply that had no matching request.
// It matches ErrProtocolDesync with errors.Is.
type DesyncError struct {
	Reply resp.Value
}

func (e *DesyncError) Error() string {
	return ErrProtocolDesync.Error() + ": " + resp.Format(e.Reply)
}

func (e *DesyncError) Unwrap() error {
	return ErrProtocolDesync
}

func (e *DesyncError) ShouldCloseConnection() bool {
	return true
}

// ConnectionError wraps I/O errors from the transport.
// Used to distinguish network issues from protocol errors.
//
// Common causes:
//   - Connection closed by the server (io.EOF)
//   - Connection reset
//   - Write on a broken connection
type ConnectionError struct {
	Op  string // Operation that failed (read, write)
	Err error  // Underlying error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("redis: connection error during %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ShouldCloseConnection returns true - connection errors mean connection is broken
func (e *ConnectionError) ShouldCloseConnection() bool {
	return true
}

// closingError builds the rejection error for outstanding requests.
// It matches ErrConnectionClosing and, when set, the cause.
func closingError(cause error) error {
	if cause == nil {
		return ErrConnectionClosing
	}
	return fmt.Errorf("%w: %w", ErrConnectionClosing, cause)
}
