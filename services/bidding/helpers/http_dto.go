package helpers

import (
	"time"

	model "auction-engine/internal/models"

	"github.com/shopspring/decimal"
)

// Request/Response DTOs
type CreateAuctionRequest struct {
	SubjectID     string          `json:"subject_id" binding:"required"`
	Description   string          `json:"description"`
	SellerID      string          `json:"seller_id"`
	StartingPrice decimal.Decimal `json:"starting_price"`
	StartTime     time.Time       `json:"start_time"`
	EndTime       time.Time       `json:"end_time"`
	Status        string          `json:"status"`
}

type PlaceBidRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	BidderID string          `json:"bidder_id"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type BidResponse struct {
	BidID     string          `json:"bid_id"`
	AuctionID string          `json:"auction_id"`
	BidderID  string          `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp string          `json:"timestamp"`
}

// AuctionResponse is an auction plus its derived winning bid
type AuctionResponse struct {
	model.Auction
	WinningBid *model.Bid `json:"winning_bid,omitempty"`
}

type CloseResponse struct {
	AuctionID string `json:"auction_id"`
	Outcome   string `json:"outcome"`
}

func NewBidResponse(auctionID string, bid model.Bid) BidResponse {
	return BidResponse{
		BidID:     bid.BidID,
		AuctionID: auctionID,
		BidderID:  bid.BidderID,
		Amount:    bid.Amount,
		Timestamp: bid.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

func NewAuctionResponse(a model.Auction) AuctionResponse {
	if a.Bids == nil {
		a.Bids = []model.Bid{}
	}
	resp := AuctionResponse{Auction: a}
	if winning, ok := a.WinningBid(); ok {
		resp.WinningBid = &winning
	}
	return resp
}

func NewAuctionResponses(auctions []model.Auction) []AuctionResponse {
	out := make([]AuctionResponse, 0, len(auctions))
	for _, a := range auctions {
		out = append(out, NewAuctionResponse(a))
	}
	return out
}
