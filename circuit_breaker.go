package redis

import (
	"errors"
	"time"

	"github.com/pior/redis/resp"
	"github.com/sony/gobreaker/v2"
)

// CircuitBreaker gates Invoke. A request is admitted by Allow and reports its
// outcome when it settles.
type CircuitBreaker = gobreaker.TwoStepCircuitBreaker[resp.Value]

// NewCircuitBreaker returns a breaker for one connection, tripping once at
// least 3 requests were seen and 60% of them failed.
//
// Error replies count as successes: the server answered. Rejections caused by
// the caller (End, Close, invalid arguments) are not counted at all.
func NewCircuitBreaker(name string, maxRequests uint32, interval, timeout time.Duration) *CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: maxRequests,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		IsExcluded: isCallerError,
	}
	return gobreaker.NewTwoStepCircuitBreaker[resp.Value](settings)
}

// isCallerError matches rejections that say nothing about the server health.
func isCallerError(err error) bool {
	if err == ErrConnectionClosing || err == ErrConnectionClosed {
		return true
	}
	var argErr *resp.ArgumentError
	return errors.As(err, &argErr)
}
