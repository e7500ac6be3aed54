package biddingerrors

import "errors"

// Repository-level errors
var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrAuctionExists   = errors.New("auction already exists")
)

// business logic errors
var (
	ErrInvalidAuction    = errors.New("invalid auction")
	ErrInvalidBid        = errors.New("invalid bid")
	ErrBidTooLow         = errors.New("bid amount too low")
	ErrAuctionNotStarted = errors.New("auction has not started")
	ErrAuctionEnded      = errors.New("auction bidding window has closed")
	ErrAuctionNotActive  = errors.New("auction is not active")
	ErrInvalidStatus     = errors.New("invalid auction status")
)

// collaborator errors
var (
	ErrUserNotFound = errors.New("user not found")
	ErrItemNotFound = errors.New("item not found")
	ErrCollaborator = errors.New("collaborator call failed")
)

// authorization errors
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("action not permitted")
)
