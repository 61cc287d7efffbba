package redis

import "sync/atomic"

// ClientStats contains counters about a Client.
// All fields are safe for concurrent access.
//
// For Prometheus integration, see the promexporter package:
//   - Counters: Dispatched, Replies, ErrorReplies, Rejected, ProtocolErrors
//   - Gauge: Pending (taken from Client.Pending)
type ClientStats struct {
	Dispatched     uint64 // Requests queued for the connection
	Replies        uint64 // Replies routed to a request
	ErrorReplies   uint64 // Replies that were RESP errors
	Rejected       uint64 // Requests rejected (refused, invalid argument, breaker, closed)
	ProtocolErrors uint64 // Decode errors and replies without a request
	WriteErrors    uint64 // Failed writes to the connection
}

// clientStatsCollector provides internal methods for updating client stats.
// Not exported - the client updates its own stats.
type clientStatsCollector struct {
	stats ClientStats
}

func (c *clientStatsCollector) recordDispatch() {
	atomic.AddUint64(&c.stats.Dispatched, 1)
}

func (c *clientStatsCollector) recordReply(isError bool) {
	atomic.AddUint64(&c.stats.Replies, 1)
	if isError {
		atomic.AddUint64(&c.stats.ErrorReplies, 1)
	}
}

func (c *clientStatsCollector) recordReject() {
	atomic.AddUint64(&c.stats.Rejected, 1)
}

func (c *clientStatsCollector) recordProtocolError() {
	atomic.AddUint64(&c.stats.ProtocolErrors, 1)
}

func (c *clientStatsCollector) recordWriteError() {
	atomic.AddUint64(&c.stats.WriteErrors, 1)
}

func (c *clientStatsCollector) snapshot() ClientStats {
	return ClientStats{
		Dispatched:     atomic.LoadUint64(&c.stats.Dispatched),
		Replies:        atomic.LoadUint64(&c.stats.Replies),
		ErrorReplies:   atomic.LoadUint64(&c.stats.ErrorReplies),
		Rejected:       atomic.LoadUint64(&c.stats.Rejected),
		ProtocolErrors: atomic.LoadUint64(&c.stats.ProtocolErrors),
		WriteErrors:    atomic.LoadUint64(&c.stats.WriteErrors),
	}
}
