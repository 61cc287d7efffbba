// Package resp provides a low-level wire protocol implementation for the
// Redis serialization protocol (RESP2).
//
// This package serves as the codec for higher-level clients. It focuses on
// correctness and predictable memory use for serialization and parsing,
// without imposing connection management on callers.
//
// # Core Types
//
//   - Value: a decoded reply (simple string, error, integer, bulk string, array)
//   - Parser: an incremental decoder fed with arbitrary chunks of bytes
//   - Error: the payload of an error reply ("-ERR ...")
//
// # Serialization and Parsing
//
// Requests are always sent as an array of bulk strings:
//
//	buf, err := resp.AppendRequest(nil, "SET", []any{"key", 42})
//	// *3\r\n$3\r\nSET\r\n$3\r\nkey\r\n$2\r\n42\r\n
//
// Replies are decoded incrementally, chunk boundaries do not matter:
//
//	p := resp.NewParser()
//	if err := p.Feed(chunk); err != nil {
//	    // the stream is corrupted, close the connection
//	}
//	for p.HasNext() {
//	    v := p.Next()
//	    ...
//	}
//
// # Error Handling
//
// Error replies are regular values (Value.IsError) and never corrupt the
// stream. DecodeError reports bytes that cannot be parsed; the parser stays
// failed afterwards and the connection must be closed. Use
// ShouldCloseConnection to tell both apart:
//
//	if resp.ShouldCloseConnection(err) {
//	    conn.Close()
//	}
//
// # Thread Safety
//
// Parser is not safe for concurrent use. Serialization helpers are safe for
// concurrent use.
package resp
