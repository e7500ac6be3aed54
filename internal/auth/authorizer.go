package auth

import (
	"auction-engine/internal/biddingerrors"
	model "auction-engine/internal/models"
	"fmt"
)

// Authorizer decides who may perform privileged auction actions
type Authorizer struct{}

// CanManage allows admins and the auction's seller to change status or close it
func (Authorizer) CanManage(p Principal, auction model.Auction) error {
	if p.ID == "" {
		return biddingerrors.ErrUnauthenticated
	}
	if p.IsAdmin() || p.ID == auction.SellerID {
		return nil
	}
	return fmt.Errorf("%w: %s does not own auction %s", biddingerrors.ErrForbidden, p.ID, auction.AuctionID)
}

// SellerFor resolves the seller of a new auction: admins may act for any
// seller, everyone else creates auctions as themselves.
func (Authorizer) SellerFor(p Principal, requested string) (string, error) {
	if p.ID == "" {
		return "", biddingerrors.ErrUnauthenticated
	}
	if requested == "" || requested == p.ID {
		return p.ID, nil
	}
	if p.IsAdmin() {
		return requested, nil
	}
	return "", fmt.Errorf("%w: cannot create auctions for %s", biddingerrors.ErrForbidden, requested)
}
