package bidding

import (
	"auction-engine/internal/biddingerrors"
	"auction-engine/internal/events"
	"auction-engine/internal/metrics"
	model "auction-engine/internal/models"
	"auction-engine/internal/repository"
	"auction-engine/utils"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Policy decides whether a bid must beat the current highest bid
type Policy string

const (
	// PolicyOpen accepts any bid at or above the starting price while the auction is open
	PolicyOpen Policy = "open"
	// PolicyAscending additionally requires each bid to exceed the current highest bid
	PolicyAscending Policy = "ascending"
)

// BiddingService defines the business logic for the auction lifecycle
type BiddingService struct {
	repo        repository.AuctionDB
	broadcaster events.Broadcaster
	metrics     *metrics.AuctionMetrics
	policy      Policy
	now         func() time.Time
}

// Option configures a BiddingService
type Option func(*BiddingService)

func WithBroadcaster(b events.Broadcaster) Option {
	return func(s *BiddingService) {
		if b != nil {
			s.broadcaster = b
		}
	}
}

func WithMetrics(m *metrics.AuctionMetrics) Option {
	return func(s *BiddingService) { s.metrics = m }
}

func WithPolicy(p Policy) Option {
	return func(s *BiddingService) {
		if p != "" {
			s.policy = p
		}
	}
}

// WithClock overrides the clock used for window checks and bid timestamps
func WithClock(now func() time.Time) Option {
	return func(s *BiddingService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewBiddingService creates a new BiddingService instance
func NewBiddingService(repo repository.AuctionDB, opts ...Option) *BiddingService {
	s := &BiddingService{
		repo:        repo,
		broadcaster: events.Nop{},
		policy:      PolicyOpen,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateAuctionInput carries the seller-supplied fields of a new auction
type CreateAuctionInput struct {
	SubjectID     string
	Description   string
	SellerID      string
	StartingPrice decimal.Decimal
	StartTime     time.Time
	EndTime       time.Time
	Status        model.AuctionStatus
}

// CreateAuction validates and stores a new auction
func (s *BiddingService) CreateAuction(ctx context.Context, in CreateAuctionInput) (model.Auction, error) {
	if strings.TrimSpace(in.SubjectID) == "" || strings.TrimSpace(in.SellerID) == "" {
		return model.Auction{}, fmt.Errorf("service: %w - missing subjectID or sellerID", biddingerrors.ErrInvalidAuction)
	}
	if in.StartTime.IsZero() || in.EndTime.IsZero() {
		return model.Auction{}, fmt.Errorf("service: %w - missing start or end time", biddingerrors.ErrInvalidAuction)
	}

	auction := model.Auction{
		SubjectID:     in.SubjectID,
		Description:   in.Description,
		SellerID:      in.SellerID,
		StartingPrice: in.StartingPrice,
		StartTime:     in.StartTime.UTC(),
		EndTime:       in.EndTime.UTC(),
		Status:        in.Status,
	}
	if err := repository.ValidateNew(auction); err != nil {
		return model.Auction{}, fmt.Errorf("service: %w", err)
	}

	created, err := s.repo.CreateAuction(ctx, auction)
	if err != nil {
		return model.Auction{}, fmt.Errorf("service: failed to create auction for seller %s: %w", in.SellerID, err)
	}
	return created, nil
}

// GetAuction returns one auction with its full bid history
func (s *BiddingService) GetAuction(ctx context.Context, auctionID string) (model.Auction, error) {
	if auctionID == "" {
		return model.Auction{}, fmt.Errorf("service: %w - empty auction ID", biddingerrors.ErrInvalidAuction)
	}

	auction, err := s.repo.GetAuction(ctx, auctionID)
	if err != nil {
		return model.Auction{}, fmt.Errorf("service: failed to get auction %s: %w", auctionID, err)
	}
	return auction, nil
}

// ListActive returns every auction that is still open for bidding
func (s *BiddingService) ListActive(ctx context.Context) ([]model.Auction, error) {
	auctions, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list active auctions: %w", err)
	}
	return auctions, nil
}

// ListByBidder returns all auctions a bidder has placed bids on
func (s *BiddingService) ListByBidder(ctx context.Context, bidderID string) ([]model.Auction, error) {
	if bidderID == "" {
		return nil, fmt.Errorf("service: %w - empty bidder ID", biddingerrors.ErrInvalidBid)
	}

	auctions, err := s.repo.ListByBidder(ctx, bidderID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get auctions for bidder %s: %w", bidderID, err)
	}
	return auctions, nil
}

// ListBySeller returns all auctions created by a seller
func (s *BiddingService) ListBySeller(ctx context.Context, sellerID string) ([]model.Auction, error) {
	if sellerID == "" {
		return nil, fmt.Errorf("service: %w - empty seller ID", biddingerrors.ErrInvalidAuction)
	}

	auctions, err := s.repo.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get auctions for seller %s: %w", sellerID, err)
	}
	return auctions, nil
}

// PlaceBid validates and records a bid. The window, status and price checks
// run inside the ledger's atomic append so a concurrent closure cannot slip
// between validation and persistence.
func (s *BiddingService) PlaceBid(ctx context.Context, auctionID, bidderID string, amount decimal.Decimal) (model.Auction, model.Bid, error) {
	if auctionID == "" || bidderID == "" {
		s.metrics.IncBid(metrics.BidRejected)
		return model.Auction{}, model.Bid{}, fmt.Errorf("service: %w - missing auctionID or bidderID", biddingerrors.ErrInvalidBid)
	}
	if !amount.IsPositive() {
		s.metrics.IncBid(metrics.BidRejected)
		return model.Auction{}, model.Bid{}, fmt.Errorf("service: %w - non-positive bid amount", biddingerrors.ErrInvalidBid)
	}

	var accepted model.Bid
	updated, err := s.repo.AppendBid(ctx, auctionID, func(current model.Auction) (model.Bid, error) {
		now := s.now()
		if err := s.checkBid(current, amount, now); err != nil {
			return model.Bid{}, err
		}
		accepted = model.Bid{
			BidID:     utils.GenerateID(),
			BidderID:  bidderID,
			Amount:    amount,
			Timestamp: now,
		}
		return accepted, nil
	})
	if err != nil {
		s.metrics.IncBid(metrics.BidRejected)
		return model.Auction{}, model.Bid{}, fmt.Errorf("service: failed to place bid on auction %s by bidder %s: %w", auctionID, bidderID, err)
	}

	s.metrics.IncBid(metrics.BidAccepted)
	s.broadcaster.ToRoom(auctionID, events.AuctionUpdated, updated)
	return updated, accepted, nil
}

func (s *BiddingService) checkBid(current model.Auction, amount decimal.Decimal, now time.Time) error {
	if now.Before(current.StartTime) {
		return fmt.Errorf("%w - opens at %s", biddingerrors.ErrAuctionNotStarted, current.StartTime.Format(time.RFC3339))
	}
	if now.After(current.EndTime) {
		return fmt.Errorf("%w - closed at %s", biddingerrors.ErrAuctionEnded, current.EndTime.Format(time.RFC3339))
	}
	if current.Status != model.StatusActive {
		return fmt.Errorf("%w - status is %s", biddingerrors.ErrAuctionNotActive, current.Status)
	}
	if amount.LessThan(current.StartingPrice) {
		return fmt.Errorf("%w - starting price is %s", biddingerrors.ErrBidTooLow, current.StartingPrice.StringFixed(2))
	}
	if s.policy == PolicyAscending {
		if winning, ok := current.WinningBid(); ok && !amount.GreaterThan(winning.Amount) {
			return fmt.Errorf("%w - current highest bid is %s", biddingerrors.ErrBidTooLow, winning.Amount.StringFixed(2))
		}
	}
	return nil
}

// UpdateStatus sets the auction status directly; there is no transition guard
// beyond existence and a known status value.
func (s *BiddingService) UpdateStatus(ctx context.Context, auctionID string, status model.AuctionStatus) (model.Auction, error) {
	if auctionID == "" {
		return model.Auction{}, fmt.Errorf("service: %w - empty auction ID", biddingerrors.ErrInvalidAuction)
	}
	if !status.IsValid() {
		return model.Auction{}, fmt.Errorf("service: %w - %q", biddingerrors.ErrInvalidStatus, status)
	}

	updated, err := s.repo.SetStatus(ctx, auctionID, status)
	if err != nil {
		return model.Auction{}, fmt.Errorf("service: failed to update status of auction %s: %w", auctionID, err)
	}

	s.broadcaster.ToRoom(auctionID, events.AuctionStatusUpdated, updated)
	return updated, nil
}

// DeleteAuction removes an auction in any state
func (s *BiddingService) DeleteAuction(ctx context.Context, auctionID string) error {
	if auctionID == "" {
		return fmt.Errorf("service: %w - empty auction ID", biddingerrors.ErrInvalidAuction)
	}

	if err := s.repo.DeleteAuction(ctx, auctionID); err != nil {
		return fmt.Errorf("service: failed to delete auction %s: %w", auctionID, err)
	}
	return nil
}
