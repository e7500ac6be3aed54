package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "auction"

// Bid results
const (
	BidAccepted = "accepted"
	BidRejected = "rejected"
)

// AuctionMetrics records sweep, settlement, bid and gateway activity.
// A nil *AuctionMetrics is valid and records nothing.
type AuctionMetrics struct {
	sweepDuration prometheus.Histogram
	sweepDue      prometheus.Counter
	sweepFailures prometheus.Counter
	sweepSkipped  prometheus.Counter
	settlements   *prometheus.CounterVec
	bids          *prometheus.CounterVec
	connections   prometheus.Gauge
}

// New registers the auction metrics on the provided registerer.
func New(reg prometheus.Registerer) *AuctionMetrics {
	if reg == nil {
		return &AuctionMetrics{}
	}
	m := &AuctionMetrics{
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Duration of expiry sweep cycles in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),
		sweepDue: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_due_total",
			Help:      "Auctions found due by the expiry sweep.",
		}),
		sweepFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_failures_total",
			Help:      "Auctions the sweep failed to close.",
		}),
		sweepSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_skipped_total",
			Help:      "Sweep cycles skipped because another worker held the lock.",
		}),
		settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlements_total",
			Help:      "Settlement attempts by outcome.",
		}, []string{"outcome"}),
		bids: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bids_total",
			Help:      "Bid submissions by result.",
		}, []string{"result"}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gateway_connections",
			Help:      "Open realtime gateway connections.",
		}),
	}
	reg.MustRegister(m.sweepDuration, m.sweepDue, m.sweepFailures, m.sweepSkipped, m.settlements, m.bids, m.connections)
	return m
}

// ObserveSweep records one completed sweep cycle.
func (m *AuctionMetrics) ObserveSweep(duration time.Duration, due int) {
	if m == nil || m.sweepDuration == nil {
		return
	}
	m.sweepDuration.Observe(duration.Seconds())
	m.sweepDue.Add(float64(due))
}

func (m *AuctionMetrics) IncSweepFailure() {
	if m == nil || m.sweepFailures == nil {
		return
	}
	m.sweepFailures.Inc()
}

func (m *AuctionMetrics) IncSweepSkipped() {
	if m == nil || m.sweepSkipped == nil {
		return
	}
	m.sweepSkipped.Inc()
}

// IncSettlement counts a settlement by its outcome label.
func (m *AuctionMetrics) IncSettlement(outcome string) {
	if m == nil || m.settlements == nil {
		return
	}
	m.settlements.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncBid counts a bid submission by result.
func (m *AuctionMetrics) IncBid(result string) {
	if m == nil || m.bids == nil {
		return
	}
	m.bids.WithLabelValues(normalizeLabel(result)).Inc()
}

func (m *AuctionMetrics) ConnectionOpened() {
	if m == nil || m.connections == nil {
		return
	}
	m.connections.Inc()
}

func (m *AuctionMetrics) ConnectionClosed() {
	if m == nil || m.connections == nil {
		return
	}
	m.connections.Dec()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
