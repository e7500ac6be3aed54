package gateway

import (
	"auction-engine/internal/events"
	"auction-engine/internal/metrics"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func testClient(bidderID string, buffer int) *Client {
	return newClient(nil, bidderID, buffer)
}

func drain(t *testing.T, c *Client) []envelope {
	t.Helper()
	var out []envelope
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return out
			}
			var env envelope
			require.NoError(t, json.Unmarshal(msg, &env))
			out = append(out, env)
		default:
			return out
		}
	}
}

func TestHub_RoomsAndBidders(t *testing.T) {
	t.Parallel()

	hub := NewHub(nil)
	a := testClient("alice", 8)
	b := testClient("bob", 8)
	b2 := testClient("bob", 8)
	for _, c := range []*Client{a, b, b2} {
		hub.register(c)
	}
	require.Equal(t, 3, hub.Connections())

	hub.join(a, "auction1")
	hub.join(b, "auction1")
	hub.join(b2, "auction2")
	require.Equal(t, 2, hub.RoomSize("auction1"))

	hub.ToRoom("auction1", events.AuctionUpdated, map[string]string{"auction_id": "auction1"})
	require.Len(t, drain(t, a), 1)
	require.Len(t, drain(t, b), 1)
	require.Empty(t, drain(t, b2))

	// private channel reaches every connection of that bidder only
	hub.ToBidder("bob", events.MarketSelectionRequired, events.MarketSelectionPayload{AuctionID: "auction1"})
	require.Empty(t, drain(t, a))
	gotB := drain(t, b)
	require.Len(t, gotB, 1)
	require.Equal(t, events.MarketSelectionRequired, gotB[0].Event)
	require.Len(t, drain(t, b2), 1)

	hub.leave(a, "auction1")
	hub.ToRoom("auction1", events.AuctionUpdated, nil)
	require.Empty(t, drain(t, a))
	require.Len(t, drain(t, b), 1)

	// unknown room is a no-op
	hub.ToRoom("nobody", events.AuctionUpdated, nil)
}

func TestHub_UnregisterCleansUp(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	hub := NewHub(metrics.New(reg))
	c := testClient("alice", 4)
	hub.register(c)
	hub.join(c, "auction1")

	hub.unregister(c)
	hub.unregister(c)

	require.Equal(t, 0, hub.RoomSize("auction1"))
	require.Equal(t, 0, hub.Connections())
	_, ok := <-c.send
	require.False(t, ok, "send queue should be closed")

	// late deliveries to a removed client are ignored
	hub.send(c, events.AuctionSnapshot, nil)
	hub.join(c, "auction1")
	require.Equal(t, 0, hub.RoomSize("auction1"))

	count, err := testutil.GatherAndCount(reg, "auction_gateway_connections")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestHub_DropsSlowConsumer(t *testing.T) {
	t.Parallel()

	hub := NewHub(nil)
	slow := testClient("slow", 1)
	fast := testClient("fast", 8)
	hub.register(slow)
	hub.register(fast)
	hub.join(slow, "auction1")
	hub.join(fast, "auction1")

	hub.ToRoom("auction1", events.AuctionUpdated, 1)
	hub.ToRoom("auction1", events.AuctionUpdated, 2)

	require.Equal(t, 1, hub.RoomSize("auction1"))
	require.Equal(t, 1, hub.Connections())
	require.Len(t, drain(t, fast), 2)

	// the queued frame is still readable before the close
	msgs := drain(t, slow)
	require.Len(t, msgs, 1)
}

func TestHub_Shutdown(t *testing.T) {
	t.Parallel()

	hub := NewHub(nil)
	c1 := testClient("a", 1)
	c2 := testClient("b", 1)
	hub.register(c1)
	hub.register(c2)
	hub.join(c1, "x")

	hub.Shutdown()
	require.Equal(t, 0, hub.Connections())
	require.Equal(t, 0, hub.RoomSize("x"))
}

func TestEncode(t *testing.T) {
	t.Parallel()

	msg, err := encode(events.Error, events.ErrorPayload{Code: CodeBidTooLow, Message: "too low", AuctionID: "a1"})
	require.NoError(t, err)
	require.JSONEq(t, `{"event":"error","data":{"code":"bid_too_low","message":"too low","auction_id":"a1"}}`, string(msg))

	_, err = encode(events.Error, make(chan int))
	require.Error(t, err)
}
