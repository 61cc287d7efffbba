package resp

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func drain(p *Parser) []Value {
	var out []Value
	for p.HasNext() {
		out = append(out, p.Next())
	}
	return out
}

func TestParserValues(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Value
	}{
		{"simple string", "+OK\r\n", SimpleString("OK")},
		{"error", "-ERR unknown command\r\n", ErrorReply("ERR unknown command")},
		{"integer", ":1000\r\n", Integer(1000)},
		{"negative integer", ":-5\r\n", Integer(-5)},
		{"bulk string", "$5\r\nhello\r\n", BulkString([]byte("hello"))},
		{"empty bulk string", "$0\r\n\r\n", BulkString([]byte{})},
		{"binary bulk string", "$4\r\na\r\nb\r\n", BulkString([]byte("a\r\nb"))},
		{"null bulk string", "$-1\r\n", NullBulkString()},
		{"null array", "*-1\r\n", NullArray()},
		{"empty array", "*0\r\n", Value{Kind: KindArray, Array: []Value{}}},
		{
			"array",
			"*3\r\n$3\r\nfoo\r\n:1\r\n$-1\r\n",
			ArrayOf(BulkString([]byte("foo")), Integer(1), NullBulkString()),
		},
		{
			"nested array",
			"*2\r\n*1\r\n+a\r\n*1\r\n-b\r\n",
			ArrayOf(ArrayOf(SimpleString("a")), ArrayOf(ErrorReply("b"))),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser()
			require.NoError(t, p.Feed([]byte(tt.input)))
			require.True(t, p.HasNext())
			require.Equal(t, tt.expected, p.Next())
			require.False(t, p.HasNext())
			require.Zero(t, p.Buffered())
		})
	}
}

func TestParserSeveralValuesInOneChunk(t *testing.T) {
	p := NewParser()
	require.NoError(t, p.Feed([]byte("+OK\r\n$1\r\nv\r\n:3\r\n")))

	require.Equal(t, []Value{
		SimpleString("OK"),
		BulkString([]byte("v")),
		Integer(3),
	}, drain(p))
}

func TestParserEveryChunkBoundary(t *testing.T) {
	input := "+OK\r\n$5\r\nhello\r\n*2\r\n:1\r\n$-1\r\n-ERR x\r\n"
	expected := []Value{
		SimpleString("OK"),
		BulkString([]byte("hello")),
		ArrayOf(Integer(1), NullBulkString()),
		ErrorReply("ERR x"),
	}

	for split := 0; split <= len(input); split++ {
		p := NewParser()
		require.NoError(t, p.Feed([]byte(input[:split])))
		got := drain(p)
		require.NoError(t, p.Feed([]byte(input[split:])))
		got = append(got, drain(p)...)
		require.Equal(t, expected, got, "split at %d", split)
	}
}

func TestParserByteByByte(t *testing.T) {
	input := "*2\r\n$3\r\nfoo\r\n$3\r\nbar\r\n"

	p := NewParser()
	for i := 0; i < len(input); i++ {
		require.NoError(t, p.Feed([]byte{input[i]}))
		if i < len(input)-1 {
			require.False(t, p.HasNext(), "value complete too early at byte %d", i)
		}
	}

	require.Equal(t, []Value{ArrayOf(BulkString([]byte("foo")), BulkString([]byte("bar")))}, drain(p))
}

func TestParserPartialValueIsBuffered(t *testing.T) {
	p := NewParser()
	require.NoError(t, p.Feed([]byte("+OK\r\n$10\r\nhel")))

	require.Equal(t, []Value{SimpleString("OK")}, drain(p))
	require.Equal(t, len("$10\r\nhel"), p.Buffered())
}

func TestParserPartialArrayIsNotBuffered(t *testing.T) {
	p := NewParser()
	require.NoError(t, p.Feed([]byte("*3\r\n$3\r\nfoo\r\n:1\r\n$3\r\nba")))

	require.False(t, p.HasNext())
	require.Equal(t, len("$3\r\nba"), p.Buffered(), "decoded elements are not kept as bytes")

	require.NoError(t, p.Feed([]byte("r\r\n")))
	require.Equal(t, []Value{
		ArrayOf(BulkString([]byte("foo")), Integer(1), BulkString([]byte("bar"))),
	}, drain(p))
	require.Zero(t, p.Buffered())
}

func TestParserLargeArrayInChunks(t *testing.T) {
	const count = 200_000
	const chunkSize = 16 * 1024

	var sb strings.Builder
	sb.WriteString("*" + strconv.Itoa(count) + "\r\n")
	for range count {
		sb.WriteString("$3\r\nabc\r\n")
	}
	input := []byte(sb.String())

	p := NewParser()
	start := time.Now()
	for off := 0; off < len(input); off += chunkSize {
		require.NoError(t, p.Feed(input[off:min(off+chunkSize, len(input))]))
	}
	elapsed := time.Since(start)

	values := drain(p)
	require.Len(t, values, 1)
	require.Len(t, values[0].Array, count)
	require.Equal(t, "abc", string(values[0].Array[count-1].Str))
	require.Less(t, elapsed, 2*time.Second, "decoding must stay linear in the reply size")
}

func TestParserFeedCopiesChunk(t *testing.T) {
	p := NewParser()
	chunk := []byte("$5\r\nhel")
	require.NoError(t, p.Feed(chunk))
	copy(chunk, "XXXXXXX")
	require.NoError(t, p.Feed([]byte("lo\r\n")))

	require.Equal(t, []Value{BulkString([]byte("hello"))}, drain(p))
}

func TestParserDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unknown type byte", "!oops\r\n"},
		{"missing CR", "+OK\n"},
		{"empty line", "\r\n"},
		{"invalid integer", ":abc\r\n"},
		{"invalid bulk length", "$abc\r\n"},
		{"negative bulk length", "$-2\r\n"},
		{"bulk too large", "$999999999999\r\n"},
		{"bad bulk terminator", "$3\r\nfooXX"},
		{"invalid array length", "*x\r\n"},
		{"negative array length", "*-5\r\n"},
		{"bad element", "*1\r\n?\r\n"},
		{"line too long", "+" + strings.Repeat("a", MaxLineLength+1)},
		{"too deep", strings.Repeat("*1\r\n", MaxDepth+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser()
			err := p.Feed([]byte(tt.input))

			var decodeErr *DecodeError
			require.ErrorAs(t, err, &decodeErr)
			require.True(t, ShouldCloseConnection(err))
		})
	}
}

func TestParserStaysFailed(t *testing.T) {
	p := NewParser()
	err := p.Feed([]byte("!\r\n"))
	require.Error(t, err)

	require.Equal(t, err, p.Feed([]byte("+OK\r\n")))
	require.Equal(t, err, p.Err())
	require.False(t, p.HasNext())

	p.Reset()
	require.NoError(t, p.Feed([]byte("+OK\r\n")))
	require.Equal(t, []Value{SimpleString("OK")}, drain(p))
}

func TestParserNextOnEmpty(t *testing.T) {
	p := NewParser()
	require.False(t, p.HasNext())
	require.Equal(t, Value{}, p.Next())
}

func TestParserRoundTripWithAppendValue(t *testing.T) {
	v := ArrayOf(
		SimpleString("OK"),
		ErrorReply("WRONGTYPE bad"),
		Integer(-7),
		BulkString([]byte("x\r\ny")),
		NullBulkString(),
		NullArray(),
		ArrayOf(),
	)

	p := NewParser()
	require.NoError(t, p.Feed(AppendValue(nil, v)))

	got := p.Next()
	require.Len(t, got.Array, len(v.Array))
	require.Equal(t, v.Array[:6], got.Array[:6])
	require.Empty(t, got.Array[6].Array)
}
