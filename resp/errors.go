package resp

import (
	"errors"
	"fmt"
	"strings"
)

// Error is the payload of an error reply ("-ERR unknown command").
// It is a regular reply: the stream stays usable.
//
// Connection handling: connection can be REUSED
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Prefix returns the first word of the message, by convention the error code
// (ERR, WRONGTYPE, MOVED...).
func (e *Error) Prefix() string {
	prefix, _, _ := strings.Cut(e.Message, " ")
	return prefix
}

// ShouldCloseConnection returns false - error replies don't corrupt protocol state
func (e *Error) ShouldCloseConnection() bool {
	return false
}

// DecodeError reports inbound bytes that are not valid RESP.
// Indicates either a protocol violation by the peer or a bug in the parser.
//
// Common causes:
//   - Unknown type byte
//   - Header line not terminated by CRLF
//   - Invalid or out of range length
//   - Bulk payload not followed by CRLF
//
// Connection handling: Connection should be CLOSED as state is uncertain
type DecodeError struct {
	Message string
	Err     error // Underlying error, if any
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return "resp: decode error: " + e.Message + ": " + e.Err.Error()
	}
	return "resp: decode error: " + e.Message
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ShouldCloseConnection returns true - decode errors leave the stream desynchronized
func (e *DecodeError) ShouldCloseConnection() bool {
	return true
}

// ArgumentError is returned when a request argument cannot be serialized.
// Nothing has been written when it is returned.
//
// Connection handling: Connection is still valid, request was rejected client-side
type ArgumentError struct {
	Index int // position in the argument list, 0 is the command name
	Value any
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("resp: unsupported argument %d of type %T", e.Index, e.Value)
}

// ShouldCloseConnection returns false - nothing reached the wire
func (e *ArgumentError) ShouldCloseConnection() bool {
	return false
}

// ErrorWithConnectionState is implemented by errors that know whether the
// connection survives them.
type ErrorWithConnectionState interface {
	error
	ShouldCloseConnection() bool
}

// ShouldCloseConnection reports whether err leaves the connection unusable.
//
// Returns false for nil, *Error and *ArgumentError; true for *DecodeError and
// for any error type it doesn't know.
func ShouldCloseConnection(err error) bool {
	if err == nil {
		return false
	}

	var e ErrorWithConnectionState
	if errors.As(err, &e) {
		return e.ShouldCloseConnection()
	}

	// Unknown error type - be conservative and close connection
	return true
}
