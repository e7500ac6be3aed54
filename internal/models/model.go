package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuctionStatus is the lifecycle state of an auction
type AuctionStatus string

const (
	StatusActive    AuctionStatus = "active"
	StatusCompleted AuctionStatus = "completed"
	StatusCancelled AuctionStatus = "cancelled"
)

// IsValid reports whether s is a known status
func (s AuctionStatus) IsValid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further bids or closure can happen
func (s AuctionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Auction represents a time-boxed sale of one item
type Auction struct {
	AuctionID     string          `json:"auction_id"`
	SubjectID     string          `json:"subject_id"`
	Description   string          `json:"description"`
	SellerID      string          `json:"seller_id"`
	StartingPrice decimal.Decimal `json:"starting_price"`
	StartTime     time.Time       `json:"start_time"`
	EndTime       time.Time       `json:"end_time"`
	Status        AuctionStatus   `json:"status"`
	Bids          []Bid           `json:"bids"`
	WinnerID      string          `json:"winner_id,omitempty"`
	Version       int64           `json:"version"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// AuctionVersion identifies the stored state a snapshot was taken from.
// Every committed write to the auction increments Version.
func (a Auction) AuctionVersion() (string, int64) {
	return a.AuctionID, a.Version
}

// Bid represents a bidder's offer on an auction
type Bid struct {
	BidID     string          `json:"bid_id"`
	BidderID  string          `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
}

// WinningBid returns the highest bid. Ties go to the earliest timestamp and
// then to the earliest position in the bid sequence.
func (a Auction) WinningBid() (Bid, bool) {
	if len(a.Bids) == 0 {
		return Bid{}, false
	}
	winning := a.Bids[0]
	for _, b := range a.Bids[1:] {
		if b.Amount.GreaterThan(winning.Amount) ||
			(b.Amount.Equal(winning.Amount) && b.Timestamp.Before(winning.Timestamp)) {
			winning = b
		}
	}
	return winning, true
}

// HasBidFrom reports whether bidderID placed at least one bid
func (a Auction) HasBidFrom(bidderID string) bool {
	for _, b := range a.Bids {
		if b.BidderID == bidderID {
			return true
		}
	}
	return false
}

// InWindow reports whether now falls inside [StartTime, EndTime]
func (a Auction) InWindow(now time.Time) bool {
	return !now.Before(a.StartTime) && !now.After(a.EndTime)
}

// IsDue reports whether an active auction has reached its end time
func (a Auction) IsDue(now time.Time) bool {
	return a.Status == StatusActive && !a.EndTime.After(now)
}

// Clone returns a copy that does not share the bid slice
func (a Auction) Clone() Auction {
	c := a
	if a.Bids != nil {
		c.Bids = make([]Bid, len(a.Bids))
		copy(c.Bids, a.Bids)
	}
	return c
}
