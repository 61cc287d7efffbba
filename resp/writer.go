package resp

import (
	"bufio"
	"encoding"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/pior/redis/internal"
)

// Typical request is well under 256 bytes; huge one-off payloads stay out of
// the pool.
var bufferPool = internal.NewBytePool(256, 64*1024)

// AppendRequest serializes a command to dst and returns the extended buffer.
// Format: *<n+1>\r\n$<len>\r\n<name>\r\n then one bulk string per argument.
//
// Supported argument types:
//   - string, []byte
//   - signed and unsigned integers (base 10)
//   - float32, float64 (shortest representation, 'inf'/'-inf' for infinities)
//   - bool ("1" or "0")
//   - nil (empty string)
//   - encoding.TextMarshaler, fmt.Stringer
//
// Any other type yields an *ArgumentError and dst is returned unchanged.
func AppendRequest(dst []byte, name string, args []any) ([]byte, error) {
	start := len(dst)

	dst = appendHeader(dst, KindArray, len(args)+1)
	dst = appendBulkString(dst, name)

	var err error
	for i, arg := range args {
		dst, err = appendArg(dst, arg)
		if err != nil {
			return dst[:start], &ArgumentError{Index: i + 1, Value: arg}
		}
	}
	return dst, nil
}

// EncodeRequest is AppendRequest into a fresh buffer.
func EncodeRequest(name string, args ...any) ([]byte, error) {
	return AppendRequest(nil, name, args)
}

// WriteRequest serializes a command and writes it to w in a single Write call.
// The request is fully encoded before anything is written, so an
// *ArgumentError guarantees that w was not touched.
//
// Performance considerations:
//   - Uses a pooled buffer for encoding
//   - Flushes when w is a *bufio.Writer
func WriteRequest(w io.Writer, name string, args ...any) error {
	buf := bufferPool.Get()
	defer bufferPool.Put(buf)

	b, err := AppendRequest(*buf, name, args)
	*buf = b
	if err != nil {
		return err
	}

	if _, err := w.Write(b); err != nil {
		return err
	}

	if bw, ok := w.(*bufio.Writer); ok {
		return bw.Flush()
	}
	return nil
}

func appendHeader(dst []byte, kind Kind, n int) []byte {
	dst = append(dst, byte(kind))
	dst = strconv.AppendInt(dst, int64(n), 10)
	return append(dst, CRLF...)
}

func appendBulk(dst []byte, b []byte) []byte {
	dst = appendHeader(dst, KindBulkString, len(b))
	dst = append(dst, b...)
	return append(dst, CRLF...)
}

func appendBulkString(dst []byte, s string) []byte {
	dst = appendHeader(dst, KindBulkString, len(s))
	dst = append(dst, s...)
	return append(dst, CRLF...)
}

// appendBulkNumber formats a number after reserving its header; numbers are
// short so the payload is built in a small scratch buffer.
func appendBulkNumber(dst []byte, format func([]byte) []byte) []byte {
	var scratch [32]byte
	return appendBulk(dst, format(scratch[:0]))
}

func appendArg(dst []byte, arg any) ([]byte, error) {
	switch v := arg.(type) {
	case nil:
		return appendBulkString(dst, ""), nil
	case string:
		return appendBulkString(dst, v), nil
	case []byte:
		return appendBulk(dst, v), nil
	case int:
		return appendInt(dst, int64(v)), nil
	case int8:
		return appendInt(dst, int64(v)), nil
	case int16:
		return appendInt(dst, int64(v)), nil
	case int32:
		return appendInt(dst, int64(v)), nil
	case int64:
		return appendInt(dst, v), nil
	case uint:
		return appendUint(dst, uint64(v)), nil
	case uint8:
		return appendUint(dst, uint64(v)), nil
	case uint16:
		return appendUint(dst, uint64(v)), nil
	case uint32:
		return appendUint(dst, uint64(v)), nil
	case uint64:
		return appendUint(dst, v), nil
	case float32:
		return appendFloat(dst, float64(v), 32), nil
	case float64:
		return appendFloat(dst, v, 64), nil
	case bool:
		if v {
			return appendBulkString(dst, "1"), nil
		}
		return appendBulkString(dst, "0"), nil
	case encoding.TextMarshaler:
		b, err := v.MarshalText()
		if err != nil {
			return dst, err
		}
		return appendBulk(dst, b), nil
	case fmt.Stringer:
		return appendBulkString(dst, v.String()), nil
	default:
		return dst, fmt.Errorf("unsupported type %T", arg)
	}
}

func appendInt(dst []byte, n int64) []byte {
	return appendBulkNumber(dst, func(b []byte) []byte { return strconv.AppendInt(b, n, 10) })
}

func appendUint(dst []byte, n uint64) []byte {
	return appendBulkNumber(dst, func(b []byte) []byte { return strconv.AppendUint(b, n, 10) })
}

func appendFloat(dst []byte, f float64, bitSize int) []byte {
	return appendBulkNumber(dst, func(b []byte) []byte {
		switch {
		case math.IsInf(f, 1):
			return append(b, "inf"...)
		case math.IsInf(f, -1):
			return append(b, "-inf"...)
		}
		return strconv.AppendFloat(b, f, 'f', -1, bitSize)
	})
}
