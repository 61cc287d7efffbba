// Package promexporter exposes client counters as Prometheus metrics.
package promexporter

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pior/redis"
)

var (
	requestsDesc = prometheus.NewDesc(
		"redis_client_requests_total",
		"Requests by outcome (dispatched, replied, error_reply, rejected)",
		[]string{"server", "outcome"}, nil,
	)
	protocolErrorsDesc = prometheus.NewDesc(
		"redis_client_protocol_errors_total",
		"Decode errors and replies without a matching request",
		[]string{"server"}, nil,
	)
	writeErrorsDesc = prometheus.NewDesc(
		"redis_client_write_errors_total",
		"Failed writes to the connection",
		[]string{"server"}, nil,
	)
	pendingDesc = prometheus.NewDesc(
		"redis_client_pending_requests",
		"Requests waiting for a reply",
		[]string{"server"}, nil,
	)
	stateDesc = prometheus.NewDesc(
		"redis_client_state",
		"Connection state (0=open, 1=draining, 2=closed)",
		[]string{"server"}, nil,
	)
)

// Collector reads the stats of registered clients at scrape time.
type Collector struct {
	mu      sync.Mutex
	clients map[string]*redis.Client
}

var _ prometheus.Collector = (*Collector)(nil)

func NewCollector() *Collector {
	return &Collector{clients: map[string]*redis.Client{}}
}

// Add registers a client under a server label, replacing any previous one.
func (c *Collector) Add(server string, client *redis.Client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clients[server] = client
}

func (c *Collector) Remove(server string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.clients, server)
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- requestsDesc
	ch <- protocolErrorsDesc
	ch <- writeErrorsDesc
	ch <- pendingDesc
	ch <- stateDesc
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for server, client := range c.clients {
		stats := client.Stats()

		counter := func(desc *prometheus.Desc, v uint64, labels ...string) {
			ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v), labels...)
		}
		counter(requestsDesc, stats.Dispatched, server, "dispatched")
		counter(requestsDesc, stats.Replies, server, "replied")
		counter(requestsDesc, stats.ErrorReplies, server, "error_reply")
		counter(requestsDesc, stats.Rejected, server, "rejected")
		counter(protocolErrorsDesc, stats.ProtocolErrors, server)
		counter(writeErrorsDesc, stats.WriteErrors, server)

		ch <- prometheus.MustNewConstMetric(pendingDesc, prometheus.GaugeValue, float64(client.Pending()), server)
		ch <- prometheus.MustNewConstMetric(stateDesc, prometheus.GaugeValue, float64(client.State()), server)
	}
}

// Exporter serves a registry holding a Collector.
type Exporter struct {
	registry  *prometheus.Registry
	collector *Collector
}

func NewExporter() *Exporter {
	registry := prometheus.NewRegistry()
	collector := NewCollector()
	registry.MustRegister(collector)

	return &Exporter{
		registry:  registry,
		collector: collector,
	}
}

func (e *Exporter) Collector() *Collector {
	return e.collector
}

func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Handler returns the HTTP handler for the /metrics endpoint.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
