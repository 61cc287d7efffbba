package resp

// Kind identifies the RESP type of a value by its leading byte.
type Kind byte

const (
	KindSimpleString Kind = '+'
	KindError        Kind = '-'
	KindInteger      Kind = ':'
	KindBulkString   Kind = '$'
	KindArray        Kind = '*'
)

func (k Kind) String() string {
	switch k {
	case KindSimpleString:
		return "simple-string"
	case KindError:
		return "error"
	case KindInteger:
		return "integer"
	case KindBulkString:
		return "bulk-string"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Protocol delimiters
const (
	// CRLF terminates every header line and bulk payload
	CRLF = "\r\n"
)

// Protocol limits
const (
	// MaxBulkLength matches the default proto-max-bulk-len of redis (512MB).
	MaxBulkLength = 512 * 1024 * 1024

	// MaxArrayLength bounds the element count announced by an array header.
	MaxArrayLength = 1024 * 1024 * 1024

	// MaxLineLength bounds a header line (type byte up to CRLF).
	MaxLineLength = 64 * 1024

	// MaxDepth bounds nested arrays.
	MaxDepth = 512
)
