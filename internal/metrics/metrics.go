// Package metrics exports driver counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/arloliu/go-espwifi/bus"
	"github.com/arloliu/go-espwifi/link"
	"github.com/arloliu/go-espwifi/nina"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "espwifi"

// NewRegistry creates a registry with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return reg
}

// Handler returns the HTTP handler serving reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Source is what the collector reads on every scrape.
type Source interface {
	Transport() *bus.Transport
	Client() *nina.Client
	Link() *link.StateMachine
}

// Collector reads bus counters, per-command stats and the link state at
// scrape time.
type Collector struct {
	src Source

	busOps       *prometheus.Desc
	busBytes     *prometheus.Desc
	busEvents    *prometheus.Desc
	cmdCalls     *prometheus.Desc
	cmdFailures  *prometheus.Desc
	cmdTimeouts  *prometheus.Desc
	cmdLatency   *prometheus.Desc
	linkState    *prometheus.Desc
	linkAttempts *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a Collector over src.
func NewCollector(src Source) *Collector {
	return &Collector{
		src: src,
		busOps: prometheus.NewDesc(prometheus.BuildFQName(namespace, "bus", "operations_total"),
			"Bus operations by kind.", []string{"op"}, nil),
		busBytes: prometheus.NewDesc(prometheus.BuildFQName(namespace, "bus", "bytes_total"),
			"Bytes transferred on the bus.", []string{"direction"}, nil),
		busEvents: prometheus.NewDesc(prometheus.BuildFQName(namespace, "bus", "events_total"),
			"Ready timeouts, hardware faults and resets.", []string{"event"}, nil),
		cmdCalls: prometheus.NewDesc(prometheus.BuildFQName(namespace, "command", "calls_total"),
			"Commands issued.", []string{"command"}, nil),
		cmdFailures: prometheus.NewDesc(prometheus.BuildFQName(namespace, "command", "failures_total"),
			"Commands that failed.", []string{"command"}, nil),
		cmdTimeouts: prometheus.NewDesc(prometheus.BuildFQName(namespace, "command", "timeouts_total"),
			"Commands that timed out waiting for the ready line.", []string{"command"}, nil),
		cmdLatency: prometheus.NewDesc(prometheus.BuildFQName(namespace, "command", "last_latency_seconds"),
			"Latency of the last call of each command.", []string{"command"}, nil),
		linkState: prometheus.NewDesc(prometheus.BuildFQName(namespace, "link", "state"),
			"1 for the current connection state.", []string{"state"}, nil),
		linkAttempts: prometheus.NewDesc(prometheus.BuildFQName(namespace, "link", "attempts_total"),
			"Successful connect procedures started.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.busOps, c.busBytes, c.busEvents,
		c.cmdCalls, c.cmdFailures, c.cmdTimeouts, c.cmdLatency,
		c.linkState, c.linkAttempts,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	m := c.src.Transport().Metrics()
	counter := func(d *prometheus.Desc, v uint64, label string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), label)
	}

	counter(c.busOps, m.SelectCount.Load(), "select")
	counter(c.busOps, m.ReleaseCount.Load(), "release")
	counter(c.busOps, m.ExchangeCount.Load(), "exchange")
	counter(c.busBytes, m.BytesOut.Load(), "out")
	counter(c.busBytes, m.BytesIn.Load(), "in")
	counter(c.busEvents, m.ReadyTimeoutCount.Load(), "ready_timeout")
	counter(c.busEvents, m.BusFaultCount.Load(), "fault")
	counter(c.busEvents, m.ResetCount.Load(), "reset")

	for cmd, st := range c.src.Client().Stats() {
		name := cmd.String()
		counter(c.cmdCalls, st.Calls, name)
		counter(c.cmdFailures, st.Failures, name)
		counter(c.cmdTimeouts, st.Timeouts, name)
		ch <- prometheus.MustNewConstMetric(c.cmdLatency, prometheus.GaugeValue, st.LastLatency.Seconds(), name)
	}

	sm := c.src.Link()
	cur := sm.State()
	for _, s := range []link.State{link.Idle, link.Connecting, link.Connected, link.ConnectFailed, link.Disconnected} {
		v := 0.0
		if s == cur {
			v = 1
		}
		ch <- prometheus.MustNewConstMetric(c.linkState, prometheus.GaugeValue, v, s.String())
	}

	ch <- prometheus.MustNewConstMetric(c.linkAttempts, prometheus.CounterValue, float64(sm.Attempts()))
}
