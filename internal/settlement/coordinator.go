package settlement

import (
	"auction-engine/internal/biddingerrors"
	"auction-engine/internal/events"
	"auction-engine/internal/metrics"
	model "auction-engine/internal/models"
	"auction-engine/internal/repository"
	"auction-engine/utils"
	"context"
	"errors"
	"fmt"
	"time"
)

// Outcome describes how far settlement of one auction got
type Outcome string

const (
	OutcomeAlreadyClosed           Outcome = "already_closed"
	OutcomeNoBids                  Outcome = "no_bids"
	OutcomeLookupFailed            Outcome = "lookup_failed"
	OutcomeNoMarket                Outcome = "no_market"
	OutcomeMarketSelectionRequired Outcome = "market_selection_required"
	OutcomeOrderFailed             Outcome = "order_failed"
	OutcomeOrderCreated            Outcome = "order_created"
)

const defaultCollaboratorTimeout = 5 * time.Second

// Coordinator closes auctions and drives the downstream settlement calls
type Coordinator struct {
	repo        repository.AuctionDB
	users       UserDirectory
	inventory   Inventory
	orders      OrderService
	broadcaster events.Broadcaster
	metrics     *metrics.AuctionMetrics
	timeout     time.Duration
}

// Option configures a Coordinator
type Option func(*Coordinator)

func WithBroadcaster(b events.Broadcaster) Option {
	return func(c *Coordinator) {
		if b != nil {
			c.broadcaster = b
		}
	}
}

func WithMetrics(m *metrics.AuctionMetrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithTimeout bounds every collaborator call
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func NewCoordinator(repo repository.AuctionDB, users UserDirectory, inventory Inventory, orders OrderService, opts ...Option) *Coordinator {
	c := &Coordinator{
		repo:        repo,
		users:       users,
		inventory:   inventory,
		orders:      orders,
		broadcaster: events.Nop{},
		timeout:     defaultCollaboratorTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Settle closes an auction and, when it has a winner, creates the order.
// The status flip happens first so concurrent bids and sweeps observe the
// closed state before any slow collaborator call. Only a failure of that
// flip is returned as an error; collaborator failures are logged and
// reported through the Outcome.
func (c *Coordinator) Settle(ctx context.Context, auctionID string) (Outcome, error) {
	auction, err := c.repo.CompleteAuction(ctx, auctionID)
	if err != nil {
		if errors.Is(err, biddingerrors.ErrAuctionNotActive) {
			c.metrics.IncSettlement(string(OutcomeAlreadyClosed))
			return OutcomeAlreadyClosed, nil
		}
		return "", fmt.Errorf("settlement: failed to close auction %s: %w", auctionID, err)
	}

	outcome := c.settleClosed(ctx, auction)
	c.metrics.IncSettlement(string(outcome))
	return outcome, nil
}

func (c *Coordinator) settleClosed(ctx context.Context, auction model.Auction) Outcome {
	winning, hasWinner := auction.WinningBid()

	ended := events.AuctionEndedPayload{
		AuctionID: auction.AuctionID,
		Status:    auction.Status,
		Auction:   auction,
	}
	if hasWinner {
		ended.WinnerID = winning.BidderID
		amount := winning.Amount
		ended.WinningAmount = &amount
	}
	c.broadcaster.ToRoom(auction.AuctionID, events.AuctionEnded, ended)

	if !hasWinner {
		utils.Info("Auction closed without bids", map[string]any{"auctionID": auction.AuctionID})
		return OutcomeNoBids
	}

	fields := map[string]any{
		"auctionID": auction.AuctionID,
		"winnerID":  winning.BidderID,
		"amount":    winning.Amount.String(),
	}

	user, err := c.lookupUser(ctx, winning.BidderID)
	if err != nil {
		utils.Error("Failed to resolve winner markets", withErr(fields, err))
		return OutcomeLookupFailed
	}

	switch len(user.MarketIDs) {
	case 0:
		utils.Error("Winner has no market to receive the order", fields)
		return OutcomeNoMarket
	case 1:
	default:
		c.broadcaster.ToBidder(winning.BidderID, events.MarketSelectionRequired, events.MarketSelectionPayload{
			AuctionID:  auction.AuctionID,
			SubjectID:  auction.SubjectID,
			MarketIDs:  user.MarketIDs,
			TotalPrice: winning.Amount,
		})
		utils.Info("Winner must select a market", fields)
		return OutcomeMarketSelectionRequired
	}

	marketID := user.MarketIDs[0]
	fields["marketID"] = marketID

	order, err := c.createOrder(ctx, auction, winning, marketID)
	if err != nil {
		utils.Error("Failed to create order for auction", withErr(fields, err))
		return OutcomeOrderFailed
	}

	fields["orderID"] = order.ID
	c.broadcaster.ToRoom(auction.AuctionID, events.OrderCreated, events.OrderCreatedPayload{
		AuctionID: auction.AuctionID,
		OrderID:   order.ID,
		BuyerID:   winning.BidderID,
		MarketID:  marketID,
	})
	utils.Info("Order created for auction", fields)
	return OutcomeOrderCreated
}

func (c *Coordinator) lookupUser(ctx context.Context, userID string) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	user, err := c.users.GetUser(ctx, userID)
	if err != nil {
		return User{}, fmt.Errorf("%w: get user %s: %w", biddingerrors.ErrCollaborator, userID, err)
	}
	return user, nil
}

func (c *Coordinator) createOrder(ctx context.Context, auction model.Auction, winning model.Bid, marketID string) (Order, error) {
	itemCtx, cancelItem := context.WithTimeout(ctx, c.timeout)
	item, err := c.inventory.GetItem(itemCtx, auction.SubjectID)
	cancelItem()
	if err != nil {
		return Order{}, fmt.Errorf("%w: get item %s: %w", biddingerrors.ErrCollaborator, auction.SubjectID, err)
	}

	orderCtx, cancelOrder := context.WithTimeout(ctx, c.timeout)
	defer cancelOrder()

	order, err := c.orders.CreateOrder(orderCtx, OrderRequest{
		MarketID:   marketID,
		Items:      []OrderItem{{ItemID: item.ID, Quantity: item.AvailableQuantity}},
		BuyerID:    winning.BidderID,
		TotalPrice: winning.Amount,
		Status:     OrderStatusProcessing,
		AuctionID:  auction.AuctionID,
	})
	if err != nil {
		return Order{}, fmt.Errorf("%w: create order: %w", biddingerrors.ErrCollaborator, err)
	}
	return order, nil
}

func withErr(fields map[string]any, err error) map[string]any {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["error"] = err.Error()
	return out
}
