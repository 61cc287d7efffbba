package resp

import (
	"errors"
	"strconv"
)

// ErrNil is returned by accessors called on a null bulk string or null array.
var ErrNil = errors.New("resp: nil reply")

// Value represents a decoded reply.
// This is a plain container; fields map directly to protocol elements.
type Value struct {
	// Kind is the RESP type of the value
	Kind Kind

	// Str holds the payload of simple strings, errors and bulk strings
	Str []byte

	// Int holds the payload of integers
	Int int64

	// Array holds the elements of arrays
	Array []Value

	// Null is set for the null bulk string ($-1) and the null array (*-1)
	Null bool
}

// Constructors, mostly useful to build replies in tests and fake servers.

func SimpleString(s string) Value { return Value{Kind: KindSimpleString, Str: []byte(s)} }
func ErrorReply(msg string) Value  { return Value{Kind: KindError, Str: []byte(msg)} }
func Integer(n int64) Value        { return Value{Kind: KindInteger, Int: n} }
func BulkString(b []byte) Value    { return Value{Kind: KindBulkString, Str: b} }
func NullBulkString() Value        { return Value{Kind: KindBulkString, Null: true} }
func NullArray() Value             { return Value{Kind: KindArray, Null: true} }
func ArrayOf(vs ...Value) Value    { return Value{Kind: KindArray, Array: vs} }

// IsNull returns true for the null bulk string and the null array.
func (v Value) IsNull() bool {
	return v.Null
}

// IsError returns true for error replies.
func (v Value) IsError() bool {
	return v.Kind == KindError
}

// Err returns the error reply as an *Error, or nil for any other kind.
func (v Value) Err() error {
	if v.Kind != KindError {
		return nil
	}
	return &Error{Message: string(v.Str)}
}

// Bytes returns the payload of string-like values.
// Integers are formatted in base 10.
func (v Value) Bytes() ([]byte, error) {
	if v.Null {
		return nil, ErrNil
	}
	switch v.Kind {
	case KindSimpleString, KindBulkString:
		return v.Str, nil
	case KindInteger:
		return strconv.AppendInt(nil, v.Int, 10), nil
	case KindError:
		return nil, v.Err()
	default:
		return nil, errors.New("resp: cannot convert " + v.Kind.String() + " to bytes")
	}
}

// Text is like Bytes but returns a string.
func (v Value) Text() (string, error) {
	b, err := v.Bytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Int64 returns the payload of integers, or parses string-like values.
func (v Value) Int64() (int64, error) {
	if v.Null {
		return 0, ErrNil
	}
	switch v.Kind {
	case KindInteger:
		return v.Int, nil
	case KindSimpleString, KindBulkString:
		n, err := strconv.ParseInt(string(v.Str), 10, 64)
		if err != nil {
			return 0, errors.Join(errors.New("resp: failed to parse integer"), err)
		}
		return n, nil
	case KindError:
		return 0, v.Err()
	default:
		return 0, errors.New("resp: cannot convert " + v.Kind.String() + " to integer")
	}
}

// Native converts the value to plain Go types: string, int64, nil, error or
// []any for arrays.
func (v Value) Native() any {
	if v.Null {
		return nil
	}
	switch v.Kind {
	case KindSimpleString, KindBulkString:
		return string(v.Str)
	case KindInteger:
		return v.Int
	case KindError:
		return v.Err()
	case KindArray:
		out := make([]any, len(v.Array))
		for i, e := range v.Array {
			out[i] = e.Native()
		}
		return out
	default:
		return nil
	}
}

// AppendValue serializes v to dst in wire format.
// The client never sends anything but requests; this is what a server writes.
func AppendValue(dst []byte, v Value) []byte {
	switch v.Kind {
	case KindSimpleString, KindError:
		dst = append(dst, byte(v.Kind))
		dst = append(dst, v.Str...)
		return append(dst, CRLF...)
	case KindInteger:
		dst = append(dst, byte(v.Kind))
		dst = strconv.AppendInt(dst, v.Int, 10)
		return append(dst, CRLF...)
	case KindBulkString:
		if v.Null {
			return append(dst, "$-1\r\n"...)
		}
		return appendBulk(dst, v.Str)
	case KindArray:
		if v.Null {
			return append(dst, "*-1\r\n"...)
		}
		dst = appendHeader(dst, KindArray, len(v.Array))
		for _, e := range v.Array {
			dst = AppendValue(dst, e)
		}
		return dst
	default:
		return dst
	}
}
