package events

//go:generate mockgen -source=events.go -destination=mock_broadcaster.go -package=events

import (
	model "auction-engine/internal/models"

	"github.com/shopspring/decimal"
)

// Outbound event names
const (
	AuctionUpdated          = "auctionUpdated"
	AuctionStatusUpdated    = "auctionStatusUpdated"
	AuctionEnded            = "auctionEnded"
	OrderCreated            = "orderCreated"
	MarketSelectionRequired = "marketSelectionRequired"
	AuctionSnapshot         = "auctionSnapshot"
	Error                   = "error"
)

// Inbound event names
const (
	JoinAuctionRoom  = "joinAuctionRoom"
	LeaveAuctionRoom = "leaveAuctionRoom"
	SubmitBid        = "submitBid"
)

// Broadcaster delivers state-change events to connected clients. Domain
// components depend on this interface; the realtime gateway implements it.
type Broadcaster interface {
	// ToRoom multicasts to every connection subscribed to the auction.
	ToRoom(auctionID, event string, payload any)
	// ToBidder delivers to the private channel of one bidder.
	ToBidder(bidderID, event string, payload any)
}

// Versioned payloads carry the ledger version of the auction state they
// describe. Deliveries drop a versioned payload older than one the
// recipient has already been sent for the same auction.
type Versioned interface {
	AuctionVersion() (auctionID string, version int64)
}

// Nop discards every event.
type Nop struct{}

func (Nop) ToRoom(string, string, any)   {}
func (Nop) ToBidder(string, string, any) {}

// AuctionEndedPayload is sent to the room once an auction is closed
type AuctionEndedPayload struct {
	AuctionID     string              `json:"auction_id"`
	Status        model.AuctionStatus `json:"status"`
	WinnerID      string              `json:"winner_id,omitempty"`
	WinningAmount *decimal.Decimal    `json:"winning_amount,omitempty"`
	Auction       model.Auction       `json:"auction"`
}

func (p AuctionEndedPayload) AuctionVersion() (string, int64) {
	return p.Auction.AuctionVersion()
}

// MarketSelectionPayload asks the winner to pick a destination market
type MarketSelectionPayload struct {
	AuctionID  string          `json:"auction_id"`
	SubjectID  string          `json:"subject_id"`
	MarketIDs  []string        `json:"market_ids"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// OrderCreatedPayload announces the order produced by settlement
type OrderCreatedPayload struct {
	AuctionID string `json:"auction_id"`
	OrderID   string `json:"order_id"`
	BuyerID   string `json:"buyer_id"`
	MarketID  string `json:"market_id"`
}

// ErrorPayload is sent only to the connection that caused the error
type ErrorPayload struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	AuctionID string `json:"auction_id,omitempty"`
}
