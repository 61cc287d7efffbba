package resp

import (
	"io"
	"strings"
	"testing"
)

func BenchmarkAppendRequest(b *testing.B) {
	buf := make([]byte, 0, 256)
	args := []any{"user:1234", "some value", 3600}

	b.ReportAllocs()
	for b.Loop() {
		buf, _ = AppendRequest(buf[:0], "SET", args)
	}
}

func BenchmarkWriteRequest(b *testing.B) {
	b.ReportAllocs()
	for b.Loop() {
		_ = WriteRequest(io.Discard, "GET", "user:1234")
	}
}

func BenchmarkParserSmallReplies(b *testing.B) {
	chunk := []byte(strings.Repeat("+OK\r\n:1\r\n$5\r\nhello\r\n", 16))
	p := NewParser()

	b.ReportAllocs()
	b.SetBytes(int64(len(chunk)))
	for b.Loop() {
		_ = p.Feed(chunk)
		for p.HasNext() {
			p.Next()
		}
	}
}

func BenchmarkParserLargeBulkInChunks(b *testing.B) {
	payload := AppendValue(nil, BulkString([]byte(strings.Repeat("x", 1<<20))))
	p := NewParser()

	b.ReportAllocs()
	b.SetBytes(int64(len(payload)))
	for b.Loop() {
		for off := 0; off < len(payload); off += 16 * 1024 {
			_ = p.Feed(payload[off:min(off+16*1024, len(payload))])
		}
		for p.HasNext() {
			p.Next()
		}
	}
}
