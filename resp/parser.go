package resp

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

// errIncomplete signals that more bytes are needed; it never leaves the package.
var errIncomplete = errors.New("resp: incomplete value")

// shrinkThreshold drops the internal buffer once it is drained, so one huge
// reply doesn't pin its memory for the life of the connection.
const shrinkThreshold = 64 * 1024

// Parser decodes replies incrementally.
//
// Feed accepts chunks cut at arbitrary boundaries; complete values become
// available through HasNext/Next in wire order. Elements of a partially
// received array are decoded as they arrive and kept on a stack, so a large
// multi-bulk reply is never decoded twice.
//
// After a DecodeError the parser is failed: every later Feed returns the same
// error. The stream has no way to resynchronize.
type Parser struct {
	buf    []byte
	stack  []frame
	values []Value
	head   int
	err    error
}

// frame is an array whose elements are still arriving.
type frame struct {
	elems     []Value
	remaining int
}

// NewParser creates an empty parser.
func NewParser() *Parser {
	return &Parser{}
}

// Feed appends chunk to the internal buffer and decodes every complete value.
// chunk is copied; the caller may reuse it.
func (p *Parser) Feed(chunk []byte) error {
	if p.err != nil {
		return p.err
	}

	p.buf = append(p.buf, chunk...)

	off := 0
	for off < len(p.buf) {
		v, open, n, err := p.parseItem(p.buf[off:])
		if err == errIncomplete {
			break
		}
		if err != nil {
			p.err = err
			p.buf = nil
			p.stack = nil
			return err
		}
		off += n

		if !open {
			p.complete(v)
		}
	}

	switch {
	case off == len(p.buf) && cap(p.buf) > shrinkThreshold:
		p.buf = nil
	case off > 0:
		rest := copy(p.buf, p.buf[off:])
		p.buf = p.buf[:rest]
	}

	return nil
}

// complete hands a decoded value to the innermost open array, closing every
// array it fills, or queues it when no array is open.
func (p *Parser) complete(v Value) {
	for len(p.stack) > 0 {
		top := &p.stack[len(p.stack)-1]
		top.elems = append(top.elems, v)
		top.remaining--
		if top.remaining > 0 {
			return
		}

		v = Value{Kind: KindArray, Array: top.elems}
		p.stack[len(p.stack)-1] = frame{}
		p.stack = p.stack[:len(p.stack)-1]
	}

	p.values = append(p.values, v)
}

// HasNext reports whether a decoded value is ready.
func (p *Parser) HasNext() bool {
	return p.head < len(p.values)
}

// Next pops the oldest decoded value.
// It returns the zero Value when HasNext is false.
func (p *Parser) Next() Value {
	if p.head >= len(p.values) {
		return Value{}
	}

	v := p.values[p.head]
	p.values[p.head] = Value{}
	p.head++

	if p.head == len(p.values) {
		p.values = p.values[:0]
		p.head = 0
	}
	return v
}

// Buffered returns the number of bytes received but not decoded yet.
func (p *Parser) Buffered() int {
	return len(p.buf)
}

// Err returns the decode error that failed the parser, if any.
func (p *Parser) Err() error {
	return p.err
}

// Reset discards buffered bytes, pending values and the failure state.
func (p *Parser) Reset() {
	p.buf = p.buf[:0]
	p.stack = nil
	clear(p.values)
	p.values = p.values[:0]
	p.head = 0
	p.err = nil
}

// parseItem decodes the value at the start of b and returns the number of
// bytes consumed. A non-empty array header only opens a frame: open is true
// and its elements follow as separate items.
func (p *Parser) parseItem(b []byte) (Value, bool, int, error) {
	line, n, err := readLine(b)
	if err != nil {
		return Value{}, false, 0, err
	}

	if len(line) == 0 {
		return Value{}, false, 0, &DecodeError{Message: "empty header line"}
	}

	kind := Kind(line[0])
	body := line[1:]

	switch kind {
	case KindSimpleString, KindError:
		return Value{Kind: kind, Str: clone(body)}, false, n, nil

	case KindInteger:
		i, err := strconv.ParseInt(string(body), 10, 64)
		if err != nil {
			return Value{}, false, 0, &DecodeError{Message: "invalid integer", Err: err}
		}
		return Value{Kind: kind, Int: i}, false, n, nil

	case KindBulkString:
		size, err := parseLength(body, MaxBulkLength)
		if err != nil {
			return Value{}, false, 0, err
		}
		if size == -1 {
			return NullBulkString(), false, n, nil
		}

		end := n + size
		if len(b) < end+len(CRLF) {
			return Value{}, false, 0, errIncomplete
		}
		if b[end] != '\r' || b[end+1] != '\n' {
			return Value{}, false, 0, &DecodeError{Message: "bulk string not terminated by CRLF"}
		}
		return Value{Kind: kind, Str: clone(b[n:end])}, false, end + len(CRLF), nil

	case KindArray:
		count, err := parseLength(body, MaxArrayLength)
		if err != nil {
			return Value{}, false, 0, err
		}
		switch count {
		case -1:
			return NullArray(), false, n, nil
		case 0:
			return Value{Kind: kind, Array: []Value{}}, false, n, nil
		}

		if len(p.stack) >= MaxDepth {
			return Value{}, false, 0, &DecodeError{Message: "array nesting too deep"}
		}

		// The header alone proves nothing, don't trust it for the allocation
		p.stack = append(p.stack, frame{
			elems:     make([]Value, 0, min(count, 1024)),
			remaining: count,
		})
		return Value{}, true, n, nil

	default:
		return Value{}, false, 0, &DecodeError{Message: fmt.Sprintf("unexpected type byte %q", line[0])}
	}
}

// readLine returns the header line at the start of b without its CRLF, and
// the number of bytes including the CRLF.
func readLine(b []byte) ([]byte, int, error) {
	i := bytes.IndexByte(b, '\n')
	if i < 0 {
		if len(b) > MaxLineLength {
			return nil, 0, &DecodeError{Message: "header line too long"}
		}
		return nil, 0, errIncomplete
	}

	if i == 0 || b[i-1] != '\r' {
		return nil, 0, &DecodeError{Message: "header line not terminated by CRLF"}
	}
	if i-1 > MaxLineLength {
		return nil, 0, &DecodeError{Message: "header line too long"}
	}
	return b[:i-1], i + 1, nil
}

// parseLength parses a bulk or array length; -1 is the null marker.
func parseLength(b []byte, limit int) (int, error) {
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return 0, &DecodeError{Message: "invalid length", Err: err}
	}
	if n < -1 {
		return 0, &DecodeError{Message: "negative length"}
	}
	if n > limit {
		return 0, &DecodeError{Message: "length exceeds limit"}
	}
	return n, nil
}

func clone(b []byte) []byte {
	return append([]byte{}, b...)
}
