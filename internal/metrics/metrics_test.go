package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func gatherFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric family %s not found", name)
	return nil
}

func TestAuctionMetrics_Sweep(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveSweep(150*time.Millisecond, 3)
	m.ObserveSweep(50*time.Millisecond, 2)
	m.IncSweepFailure()
	m.IncSweepSkipped()

	require.Equal(t, float64(5), testutil.ToFloat64(m.sweepDue))
	require.Equal(t, float64(1), testutil.ToFloat64(m.sweepFailures))
	require.Equal(t, float64(1), testutil.ToFloat64(m.sweepSkipped))

	hist := gatherFamily(t, reg, "auction_sweep_duration_seconds")
	require.Len(t, hist.GetMetric(), 1)
	require.Equal(t, uint64(2), hist.GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestAuctionMetrics_Labels(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncSettlement("order_created")
	m.IncSettlement("order_created")
	m.IncSettlement("")
	m.IncBid(BidAccepted)
	m.IncBid(BidRejected)
	m.IncBid(BidRejected)

	require.Equal(t, float64(2), testutil.ToFloat64(m.settlements.WithLabelValues("order_created")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.settlements.WithLabelValues("unknown")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.bids.WithLabelValues(BidAccepted)))
	require.Equal(t, float64(2), testutil.ToFloat64(m.bids.WithLabelValues(BidRejected)))
}

func TestAuctionMetrics_Connections(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()

	gauge := gatherFamily(t, reg, "auction_gateway_connections")
	require.Equal(t, dto.MetricType_GAUGE, gauge.GetType())
	require.Equal(t, float64(1), gauge.GetMetric()[0].GetGauge().GetValue())
}

func TestAuctionMetrics_NilSafe(t *testing.T) {
	t.Parallel()

	var m *AuctionMetrics
	require.NotPanics(t, func() {
		m.ObserveSweep(time.Second, 1)
		m.IncSweepFailure()
		m.IncSweepSkipped()
		m.IncSettlement("x")
		m.IncBid(BidAccepted)
		m.ConnectionOpened()
		m.ConnectionClosed()
	})

	unregistered := New(nil)
	require.NotPanics(t, func() { unregistered.IncBid(BidAccepted) })
}
