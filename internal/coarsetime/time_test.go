package coarsetime

import (
	"testing"
	"time"
)

// BenchmarkTimeNow/time-8         	35926340	         32.82 ns/op	       0 B/op	       0 allocs/op
// BenchmarkTimeNow/coarsetime-8   	609668066	         1.950 ns/op	       0 B/op	       0 allocs/op
func BenchmarkTimeNow(b *testing.B) {
	var t time.Time

	b.Run("time", func(b *testing.B) {
		for b.Loop() {
			t = time.Now()
		}
	})

	b.Run("coarsetime", func(b *testing.B) {
		for b.Loop() {
			t = Now()
		}
	})

	_ = t
}

func TestSince(t *testing.T) {
	start := Now()
	if d := Since(start); d < 0 || d > time.Second {
		t.Fatalf("unexpected duration %s", d)
	}
	if d := Since(start.Add(time.Hour)); d != 0 {
		t.Fatalf("future times should give 0, got %s", d)
	}
}
