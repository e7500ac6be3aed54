package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestAuction_WinningBid(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		bids       []Bid
		wantFound  bool
		wantBidder string
	}{
		{name: "no_bids", bids: nil, wantFound: false},
		{
			name: "highest_amount_wins",
			bids: []Bid{
				{BidID: "b1", BidderID: "A", Amount: decimal.NewFromInt(100), Timestamp: t0},
				{BidID: "b2", BidderID: "B", Amount: decimal.NewFromInt(200), Timestamp: t0.Add(time.Second)},
			},
			wantFound:  true,
			wantBidder: "B",
		},
		{
			name: "tie_goes_to_earliest_timestamp",
			bids: []Bid{
				{BidID: "b1", BidderID: "late", Amount: decimal.NewFromInt(150), Timestamp: t0.Add(2 * time.Second)},
				{BidID: "b2", BidderID: "early", Amount: decimal.NewFromInt(150), Timestamp: t0.Add(time.Second)},
			},
			wantFound:  true,
			wantBidder: "early",
		},
		{
			name: "tie_with_equal_timestamps_goes_to_first_appended",
			bids: []Bid{
				{BidID: "b1", BidderID: "first", Amount: decimal.NewFromInt(150), Timestamp: t0},
				{BidID: "b2", BidderID: "second", Amount: decimal.NewFromInt(150), Timestamp: t0},
			},
			wantFound:  true,
			wantBidder: "first",
		},
		{
			name: "decimal_precision",
			bids: []Bid{
				{BidID: "b1", BidderID: "A", Amount: decimal.RequireFromString("100.10"), Timestamp: t0},
				{BidID: "b2", BidderID: "B", Amount: decimal.RequireFromString("100.1000001"), Timestamp: t0.Add(time.Second)},
			},
			wantFound:  true,
			wantBidder: "B",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			a := Auction{Bids: tc.bids}
			bid, ok := a.WinningBid()
			require.Equal(t, tc.wantFound, ok)
			if tc.wantFound {
				require.Equal(t, tc.wantBidder, bid.BidderID)
			}
		})
	}
}

func TestAuction_InWindow(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	a := Auction{StartTime: start, EndTime: start.Add(time.Minute)}

	require.False(t, a.InWindow(start.Add(-time.Nanosecond)))
	require.True(t, a.InWindow(start))
	require.True(t, a.InWindow(start.Add(30*time.Second)))
	require.True(t, a.InWindow(start.Add(time.Minute)))
	require.False(t, a.InWindow(start.Add(time.Minute+time.Nanosecond)))
}

func TestAuction_IsDue(t *testing.T) {
	t.Parallel()

	end := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	a := Auction{Status: StatusActive, EndTime: end}
	require.False(t, a.IsDue(end.Add(-time.Second)))
	require.True(t, a.IsDue(end))

	a.Status = StatusCompleted
	require.False(t, a.IsDue(end.Add(time.Hour)))
}

func TestAuction_CloneDoesNotShareBids(t *testing.T) {
	t.Parallel()

	a := Auction{Bids: []Bid{{BidID: "b1"}}}
	c := a.Clone()
	c.Bids[0].BidID = "changed"
	c.Bids = append(c.Bids, Bid{BidID: "b2"})

	require.Equal(t, "b1", a.Bids[0].BidID)
	require.Len(t, a.Bids, 1)
}

func TestAuctionStatus(t *testing.T) {
	t.Parallel()

	require.True(t, StatusActive.IsValid())
	require.True(t, StatusCancelled.IsTerminal())
	require.False(t, StatusActive.IsTerminal())
	require.False(t, AuctionStatus("paused").IsValid())
}
