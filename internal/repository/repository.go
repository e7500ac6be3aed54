package repository

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=repository

import (
	"auction-engine/internal/biddingerrors"
	model "auction-engine/internal/models"
	"auction-engine/utils"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// BidFunc runs inside the atomic append against the current auction state.
// It returns the bid to append, or an error to reject it.
type BidFunc func(current model.Auction) (model.Bid, error)

// AuctionDB defines the auction and bid storage interface
type AuctionDB interface {
	CreateAuction(ctx context.Context, auction model.Auction) (model.Auction, error)
	GetAuction(ctx context.Context, auctionID string) (model.Auction, error)
	ListActive(ctx context.Context) ([]model.Auction, error)
	ListDue(ctx context.Context, now time.Time) ([]model.Auction, error)
	ListByBidder(ctx context.Context, bidderID string) ([]model.Auction, error)
	ListBySeller(ctx context.Context, sellerID string) ([]model.Auction, error)
	AppendBid(ctx context.Context, auctionID string, build BidFunc) (model.Auction, error)
	SetStatus(ctx context.Context, auctionID string, status model.AuctionStatus) (model.Auction, error)
	CompleteAuction(ctx context.Context, auctionID string) (model.Auction, error)
	DeleteAuction(ctx context.Context, auctionID string) error
}

// ValidateNew checks the creation invariants shared by every store
func ValidateNew(a model.Auction) error {
	if a.StartingPrice.IsNegative() {
		return fmt.Errorf("%w: starting price must not be negative", biddingerrors.ErrInvalidAuction)
	}
	if !a.EndTime.After(a.StartTime) {
		return fmt.Errorf("%w: end time must be after start time", biddingerrors.ErrInvalidAuction)
	}
	if a.Status != "" && !a.Status.IsValid() {
		return fmt.Errorf("%w: %q", biddingerrors.ErrInvalidStatus, a.Status)
	}
	return nil
}

type auctionEntry struct {
	mu      sync.Mutex
	auction model.Auction
	deleted bool
}

// MemoryRepo is a concurrency-safe in-memory implementation of AuctionDB.
// Writes to one auction serialize on that auction's mutex; different
// auctions do not contend beyond the map lock.
type MemoryRepo struct {
	mu       sync.RWMutex
	auctions map[string]*auctionEntry
	now      func() time.Time
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		auctions: make(map[string]*auctionEntry),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateAuction stores a new auction, defaulting its ID and status
func (r *MemoryRepo) CreateAuction(_ context.Context, auction model.Auction) (model.Auction, error) {
	if err := ValidateNew(auction); err != nil {
		return model.Auction{}, fmt.Errorf("create auction: %w", err)
	}
	if auction.AuctionID == "" {
		auction.AuctionID = utils.GenerateID()
	}
	if auction.Status == "" {
		auction.Status = model.StatusActive
	}
	if auction.Bids == nil {
		auction.Bids = []model.Bid{}
	}
	now := r.now()
	if auction.CreatedAt.IsZero() {
		auction.CreatedAt = now
	}
	auction.UpdatedAt = now
	auction.Version = 1
	auction = auction.Clone()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.auctions[auction.AuctionID]; ok {
		return model.Auction{}, fmt.Errorf("create auction %s: %w", auction.AuctionID, biddingerrors.ErrAuctionExists)
	}
	r.auctions[auction.AuctionID] = &auctionEntry{auction: auction}
	return auction.Clone(), nil
}

// GetAuction returns a snapshot of one auction
func (r *MemoryRepo) GetAuction(_ context.Context, auctionID string) (model.Auction, error) {
	entry, err := r.entry(auctionID)
	if err != nil {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, err)
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.deleted {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	return entry.auction.Clone(), nil
}

// ListActive returns every auction still in the active state
func (r *MemoryRepo) ListActive(_ context.Context) ([]model.Auction, error) {
	return r.filter(func(a model.Auction) bool { return a.Status == model.StatusActive }), nil
}

// ListDue returns active auctions whose end time is at or before now
func (r *MemoryRepo) ListDue(_ context.Context, now time.Time) ([]model.Auction, error) {
	return r.filter(func(a model.Auction) bool { return a.IsDue(now) }), nil
}

// ListByBidder returns every auction holding at least one bid from bidderID
func (r *MemoryRepo) ListByBidder(_ context.Context, bidderID string) ([]model.Auction, error) {
	return r.filter(func(a model.Auction) bool { return a.HasBidFrom(bidderID) }), nil
}

// ListBySeller returns every auction listed by sellerID
func (r *MemoryRepo) ListBySeller(_ context.Context, sellerID string) ([]model.Auction, error) {
	return r.filter(func(a model.Auction) bool { return a.SellerID == sellerID }), nil
}

// AppendBid runs build against the locked auction and appends the bid it returns
func (r *MemoryRepo) AppendBid(_ context.Context, auctionID string, build BidFunc) (model.Auction, error) {
	entry, err := r.entry(auctionID)
	if err != nil {
		return model.Auction{}, fmt.Errorf("append bid to auction %s: %w", auctionID, err)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.deleted {
		return model.Auction{}, fmt.Errorf("append bid to auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	bid, err := build(entry.auction.Clone())
	if err != nil {
		return model.Auction{}, err
	}

	entry.auction.Bids = append(entry.auction.Bids, bid)
	entry.auction.Version++
	entry.auction.UpdatedAt = r.now()
	return entry.auction.Clone(), nil
}

// SetStatus overwrites the status without any transition guard
func (r *MemoryRepo) SetStatus(_ context.Context, auctionID string, status model.AuctionStatus) (model.Auction, error) {
	if !status.IsValid() {
		return model.Auction{}, fmt.Errorf("set status of auction %s: %w: %q", auctionID, biddingerrors.ErrInvalidStatus, status)
	}
	entry, err := r.entry(auctionID)
	if err != nil {
		return model.Auction{}, fmt.Errorf("set status of auction %s: %w", auctionID, err)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.deleted {
		return model.Auction{}, fmt.Errorf("set status of auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	entry.auction.Status = status
	entry.auction.Version++
	entry.auction.UpdatedAt = r.now()
	return entry.auction.Clone(), nil
}

// CompleteAuction flips an active auction to completed and records the winner
// in the same critical section.
func (r *MemoryRepo) CompleteAuction(_ context.Context, auctionID string) (model.Auction, error) {
	entry, err := r.entry(auctionID)
	if err != nil {
		return model.Auction{}, fmt.Errorf("complete auction %s: %w", auctionID, err)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.deleted {
		return model.Auction{}, fmt.Errorf("complete auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	if entry.auction.Status != model.StatusActive {
		return model.Auction{}, fmt.Errorf("complete auction %s (status %s): %w", auctionID, entry.auction.Status, biddingerrors.ErrAuctionNotActive)
	}

	entry.auction.Status = model.StatusCompleted
	if winning, ok := entry.auction.WinningBid(); ok {
		entry.auction.WinnerID = winning.BidderID
	}
	entry.auction.Version++
	entry.auction.UpdatedAt = r.now()
	return entry.auction.Clone(), nil
}

// DeleteAuction removes an auction regardless of its state
func (r *MemoryRepo) DeleteAuction(_ context.Context, auctionID string) error {
	r.mu.Lock()
	entry, ok := r.auctions[auctionID]
	if ok {
		delete(r.auctions, auctionID)
	}
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("delete auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}

	entry.mu.Lock()
	entry.deleted = true
	entry.mu.Unlock()
	return nil
}

func (r *MemoryRepo) entry(auctionID string) (*auctionEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.auctions[auctionID]
	if !ok {
		return nil, biddingerrors.ErrAuctionNotFound
	}
	return entry, nil
}

func (r *MemoryRepo) filter(keep func(model.Auction) bool) []model.Auction {
	r.mu.RLock()
	entries := make([]*auctionEntry, 0, len(r.auctions))
	for _, e := range r.auctions {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	out := make([]model.Auction, 0)
	for _, e := range entries {
		e.mu.Lock()
		if !e.deleted && keep(e.auction) {
			out = append(out, e.auction.Clone())
		}
		e.mu.Unlock()
	}
	sortAuctions(out)
	return out
}

func sortAuctions(auctions []model.Auction) {
	sort.Slice(auctions, func(i, j int) bool {
		if !auctions[i].CreatedAt.Equal(auctions[j].CreatedAt) {
			return auctions[i].CreatedAt.Before(auctions[j].CreatedAt)
		}
		return auctions[i].AuctionID < auctions[j].AuctionID
	})
}
