package redis

import (
	"context"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pior/redis/internal/testutils"
	"github.com/pior/redis/resp"
)

func newMockClient(t testing.TB, config Config) (*Client, *testutils.StreamMock) {
	t.Helper()
	conn := testutils.NewStreamMock()
	c := NewClient(conn, config)
	t.Cleanup(func() { _ = c.Close() })
	return c, conn
}

func waitCtx(t testing.TB) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func waitClosed(t testing.TB, c *Client) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("client did not close")
	}
}

func requireReply(t testing.TB, req *Request, expected resp.Value) {
	t.Helper()
	reply, err := req.Wait(waitCtx(t))
	require.NoError(t, err)
	require.Equal(t, expected, reply)
}

// eventRecorder collects client callbacks as strings.
type eventRecorder struct {
	mu     sync.Mutex
	events []string
	errs   []error
}

func (r *eventRecorder) config() Config {
	return Config{
		OnMessage: func(reply resp.Value) { r.add("message: " + resp.Format(reply)) },
		OnError: func(err error) {
			r.mu.Lock()
			r.errs = append(r.errs, err)
			r.mu.Unlock()
			r.add("error")
		},
		OnClose: func() { r.add("close") },
	}
}

func (r *eventRecorder) add(ev string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *eventRecorder) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

func (r *eventRecorder) requireEvents(t testing.TB, expected ...string) {
	t.Helper()
	require.EventuallyWithT(t, func(c *assert.CollectT) {
		assert.Equal(c, expected, r.Events())
	}, time.Second, 5*time.Millisecond)
}

func createListener(t testing.TB, handler func(conn net.Conn)) string {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	t.Cleanup(func() {
		listener.Close()
	})

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}

			go func(c net.Conn) {
				defer c.Close()

				if handler != nil {
					handler(c)
				}
			}(conn)
		}
	}()

	return listener.Addr().String()
}

// memoryServer is a tiny in-memory Redis speaking RESP2, for tests.
type memoryServer struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryServer() *memoryServer {
	return &memoryServer{data: map[string]string{}}
}

func (s *memoryServer) serve(conn net.Conn) {
	parser := resp.NewParser()
	buf := make([]byte, 4096)

	for {
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		if err := parser.Feed(buf[:n]); err != nil {
			return
		}

		var out []byte
		for parser.HasNext() {
			out = resp.AppendValue(out, s.execute(parser.Next()))
		}
		if _, err := conn.Write(out); err != nil {
			return
		}
	}
}

func (s *memoryServer) execute(req resp.Value) resp.Value {
	args := make([]string, len(req.Array))
	for i, v := range req.Array {
		args[i] = string(v.Str)
	}
	if len(args) == 0 {
		return resp.ErrorReply("ERR empty command")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch cmd := strings.ToUpper(args[0]); {
	case cmd == "PING" && len(args) == 1:
		return resp.SimpleString("PONG")
	case cmd == "ECHO" && len(args) == 2:
		return resp.BulkString([]byte(args[1]))
	case cmd == "SET" && len(args) >= 3:
		s.data[args[1]] = args[2]
		return resp.SimpleString("OK")
	case cmd == "GET" && len(args) == 2:
		v, ok := s.data[args[1]]
		if !ok {
			return resp.NullBulkString()
		}
		return resp.BulkString([]byte(v))
	case cmd == "DEL":
		n := 0
		for _, k := range args[1:] {
			if _, ok := s.data[k]; ok {
				delete(s.data, k)
				n++
			}
		}
		return resp.Integer(int64(n))
	case (cmd == "INCR" && len(args) == 2) || (cmd == "INCRBY" && len(args) == 3):
		delta := int64(1)
		if cmd == "INCRBY" {
			d, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				return resp.ErrorReply("ERR value is not an integer or out of range")
			}
			delta = d
		}
		var cur int64
		if v, ok := s.data[args[1]]; ok {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return resp.ErrorReply("ERR value is not an integer or out of range")
			}
			cur = n
		}
		cur += delta
		s.data[args[1]] = strconv.FormatInt(cur, 10)
		return resp.Integer(cur)
	case (cmd == "EXPIRE" || cmd == "PEXPIRE") && len(args) == 3:
		if _, ok := s.data[args[1]]; !ok {
			return resp.Integer(0)
		}
		return resp.Integer(1)
	default:
		return resp.ErrorReply("ERR unknown command '" + args[0] + "'")
	}
}
