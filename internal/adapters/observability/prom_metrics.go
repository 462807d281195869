// Package observability exposes pipeline counters through Prometheus collectors.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vshulcz/Lumectra/internal/ports"
)

const namespace = "lumectra"

// PromObs implements ports.Observability on an injected registerer.
type PromObs struct {
	events       *prometheus.CounterVec
	entries      *prometheus.CounterVec
	samples      *prometheus.CounterVec
	failures     *prometheus.CounterVec
	pushes       prometheus.Counter
	pushFailures prometheus.Counter
	pushedBytes  prometheus.Counter
	pushLatency  prometheus.Histogram
}

var _ ports.Observability = (*PromObs)(nil)

// NewPromObs registers the pipeline collectors on reg. queueLen, when set, backs the queue depth gauge.
func NewPromObs(reg prometheus.Registerer, queueLen func() int) *PromObs {
	p := &PromObs{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_received_total",
			Help:      "Telemetry events received per device.",
		}, []string{"host"}),
		entries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_enqueued_total",
			Help:      "Delivery entries enqueued per device.",
		}, []string{"host"}),
		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_enqueued_total",
			Help:      "Metric samples enqueued per device.",
		}, []string{"host"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "device_reconnects_total",
			Help:      "Device stream failures followed by a reconnect.",
		}, []string{"host"}),
		pushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pushes_total",
			Help:      "Entries delivered to the TSDB.",
		}),
		pushFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_failures_total",
			Help:      "Failed pushes; each drops one entry or fails to open a session.",
		}),
		pushedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pushed_bytes_total",
			Help:      "Exposition text bytes delivered to the TSDB.",
		}),
		pushLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "push_duration_seconds",
			Help:      "Time spent delivering one entry.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
	}
	reg.MustRegister(p.events, p.entries, p.samples, p.failures,
		p.pushes, p.pushFailures, p.pushedBytes, p.pushLatency)

	if queueLen != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_entries",
			Help:      "Entries waiting in the delivery queue.",
		}, func() float64 { return float64(queueLen()) }))
	}
	return p
}

func (p *PromObs) EventReceived(host string) {
	p.events.WithLabelValues(host).Inc()
}

func (p *PromObs) EntryEnqueued(host string, samples int) {
	p.entries.WithLabelValues(host).Inc()
	p.samples.WithLabelValues(host).Add(float64(samples))
}

func (p *PromObs) DeviceFailed(host string) {
	p.failures.WithLabelValues(host).Inc()
}

func (p *PromObs) EntryPushed(bytes int, took time.Duration) {
	p.pushes.Inc()
	p.pushedBytes.Add(float64(bytes))
	p.pushLatency.Observe(took.Seconds())
}

func (p *PromObs) PushFailed() {
	p.pushFailures.Inc()
}
