package gateway

import (
	"auction-engine/internal/biddingerrors"
	"errors"
)

// Reason codes sent in error events
const (
	CodeBadRequest        = "bad_request"
	CodeUnknownEvent      = "unknown_event"
	CodeInvalidBid        = "invalid_bid"
	CodeBidTooLow         = "bid_too_low"
	CodeAuctionNotStarted = "auction_not_started"
	CodeAuctionEnded      = "auction_ended"
	CodeAuctionNotActive  = "auction_not_active"
	CodeNotFound          = "not_found"
	CodeForbidden         = "forbidden"
	CodeInternal          = "internal_error"
)

// errorCode maps domain errors to a reason code and a client-facing message
func errorCode(err error) (string, string) {
	switch {
	case errors.Is(err, biddingerrors.ErrAuctionNotFound):
		return CodeNotFound, "auction not found"
	case errors.Is(err, biddingerrors.ErrBidTooLow):
		return CodeBidTooLow, "bid amount too low"
	case errors.Is(err, biddingerrors.ErrAuctionNotStarted):
		return CodeAuctionNotStarted, "auction has not started"
	case errors.Is(err, biddingerrors.ErrAuctionEnded):
		return CodeAuctionEnded, "auction bidding window has closed"
	case errors.Is(err, biddingerrors.ErrAuctionNotActive):
		return CodeAuctionNotActive, "auction is not active"
	case errors.Is(err, biddingerrors.ErrInvalidBid):
		return CodeInvalidBid, "invalid bid details"
	case errors.Is(err, biddingerrors.ErrForbidden):
		return CodeForbidden, "action not permitted"
	default:
		return CodeInternal, "internal server error"
	}
}
