package gateway

import (
	bidding "auction-engine/internal/biddingService"
	"auction-engine/internal/collaborators"
	"auction-engine/internal/events"
	model "auction-engine/internal/models"
	"auction-engine/internal/repository"
	"auction-engine/internal/settlement"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// heldRepo holds every successful append between persistence and return
type heldRepo struct {
	*repository.MemoryRepo
	persisted chan struct{}
	release   chan struct{}
}

func (r *heldRepo) AppendBid(ctx context.Context, auctionID string, build repository.BidFunc) (model.Auction, error) {
	updated, err := r.MemoryRepo.AppendBid(ctx, auctionID, build)
	if err == nil {
		r.persisted <- struct{}{}
		<-r.release
	}
	return updated, err
}

func roomAuction(t *testing.T, env envelope) model.Auction {
	t.Helper()
	var a model.Auction
	require.NoError(t, json.Unmarshal(env.Data, &a))
	return a
}

func TestHub_DropsStaleAuctionState(t *testing.T) {
	t.Parallel()

	hub := NewHub(nil)
	c := testClient("alice", 16)
	hub.register(c)
	hub.join(c, "auction1")
	hub.join(c, "auction2")

	v := func(id string, version int64, status model.AuctionStatus) model.Auction {
		return model.Auction{AuctionID: id, Version: version, Status: status}
	}

	hub.ToRoom("auction1", events.AuctionUpdated, v("auction1", 3, model.StatusActive))
	hub.ToRoom("auction1", events.AuctionUpdated, v("auction1", 2, model.StatusActive))
	hub.ToRoom("auction1", events.AuctionEnded, events.AuctionEndedPayload{
		AuctionID: "auction1",
		Status:    model.StatusCompleted,
		Auction:   v("auction1", 4, model.StatusCompleted),
	})
	hub.ToRoom("auction1", events.AuctionUpdated, v("auction1", 3, model.StatusActive))
	// other auctions keep their own watermark
	hub.ToRoom("auction2", events.AuctionUpdated, v("auction2", 1, model.StatusActive))
	// unversioned frames are always delivered
	hub.ToRoom("auction1", events.OrderCreated, events.OrderCreatedPayload{AuctionID: "auction1"})

	got := drain(t, c)
	require.Len(t, got, 4)
	require.Equal(t, int64(3), roomAuction(t, got[0]).Version)
	require.Equal(t, events.AuctionEnded, got[1].Event)
	require.Equal(t, "auction2", roomAuction(t, got[2]).AuctionID)
	require.Equal(t, events.OrderCreated, got[3].Event)

	// a stale join snapshot is dropped too
	hub.send(c, events.AuctionSnapshot, v("auction2", 0, model.StatusActive))
	require.Empty(t, drain(t, c))

	// leaving resets the watermark for a later join
	hub.leave(c, "auction1")
	hub.join(c, "auction1")
	hub.send(c, events.AuctionSnapshot, v("auction1", 2, model.StatusActive))
	require.Len(t, drain(t, c), 1)
}

// A bid broadcast that loses the race to a closure must not reach the room
// after auctionEnded.
func TestRoom_ClosureOrderedAfterDelayedBidBroadcast(t *testing.T) {
	t.Parallel()

	repo := &heldRepo{
		MemoryRepo: repository.NewMemoryRepo(),
		persisted:  make(chan struct{}),
		release:    make(chan struct{}),
	}
	hub := NewHub(nil)
	service := bidding.NewBiddingService(repo, bidding.WithBroadcaster(hub))

	users := collaborators.NewUserDirectory()
	users.Put(settlement.User{ID: "alice", MarketIDs: []string{"market-1"}})
	inventory := collaborators.NewInventory()
	inventory.Put(settlement.Item{ID: "crop-1", AvailableQuantity: 5})
	coordinator := settlement.NewCoordinator(repo, users, inventory, collaborators.NewOrderBook(),
		settlement.WithBroadcaster(hub))

	ctx := context.Background()
	now := time.Now().UTC()
	a, err := service.CreateAuction(ctx, bidding.CreateAuctionInput{
		SubjectID:     "crop-1",
		SellerID:      "seller1",
		StartingPrice: decimal.NewFromInt(100),
		StartTime:     now.Add(-time.Minute),
		EndTime:       now.Add(time.Hour),
	})
	require.NoError(t, err)

	watcher := testClient("watcher", 16)
	hub.register(watcher)
	hub.join(watcher, a.AuctionID)

	bidDone := make(chan error, 1)
	go func() {
		_, _, err := service.PlaceBid(ctx, a.AuctionID, "alice", decimal.NewFromInt(150))
		bidDone <- err
	}()

	<-repo.persisted
	outcome, err := coordinator.Settle(ctx, a.AuctionID)
	require.NoError(t, err)
	require.Equal(t, settlement.OutcomeOrderCreated, outcome)

	close(repo.release)
	require.NoError(t, <-bidDone)

	got := drain(t, watcher)
	names := make([]string, len(got))
	for i, env := range got {
		names[i] = env.Event
	}
	require.Equal(t, []string{events.AuctionEnded, events.OrderCreated}, names)

	var ended events.AuctionEndedPayload
	require.NoError(t, json.Unmarshal(got[0].Data, &ended))
	require.Equal(t, model.StatusCompleted, ended.Auction.Status)
	require.Equal(t, "alice", ended.WinnerID)
}
