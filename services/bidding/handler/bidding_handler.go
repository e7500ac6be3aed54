package handler

import (
	"context"
	"fmt"
	"net/http"

	"auction-engine/internal/auth"
	bidding "auction-engine/internal/biddingService"
	"auction-engine/internal/biddingerrors"
	model "auction-engine/internal/models"
	"auction-engine/internal/settlement"
	"auction-engine/services/bidding/helpers"
	"auction-engine/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=bidding_handler.go -destination=mock_bidding_handler.go -package=handler

type AuctionServiceInterface interface {
	CreateAuction(ctx context.Context, in bidding.CreateAuctionInput) (model.Auction, error)
	GetAuction(ctx context.Context, auctionID string) (model.Auction, error)
	ListActive(ctx context.Context) ([]model.Auction, error)
	ListByBidder(ctx context.Context, bidderID string) ([]model.Auction, error)
	ListBySeller(ctx context.Context, sellerID string) ([]model.Auction, error)
	PlaceBid(ctx context.Context, auctionID, bidderID string, amount decimal.Decimal) (model.Auction, model.Bid, error)
	UpdateStatus(ctx context.Context, auctionID string, status model.AuctionStatus) (model.Auction, error)
	DeleteAuction(ctx context.Context, auctionID string) error
}

// SettlerInterface closes an auction on demand
type SettlerInterface interface {
	Settle(ctx context.Context, auctionID string) (settlement.Outcome, error)
}

type BiddingHandler struct {
	service    AuctionServiceInterface
	settler    SettlerInterface
	authorizer auth.Authorizer
}

func NewBiddingHandler(service AuctionServiceInterface, settler SettlerInterface) *BiddingHandler {
	return &BiddingHandler{service: service, settler: settler}
}

// CreateAuctionHandler handles POST /auctions
func (h *BiddingHandler) CreateAuctionHandler(c *gin.Context) {
	var req helpers.CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateAuctionHandler", err)
		return
	}

	principal, _ := auth.PrincipalFrom(c)
	sellerID, err := h.authorizer.SellerFor(principal, req.SellerID)
	if err != nil {
		helpers.RespondError(c, "CreateAuctionHandler", err, map[string]any{"seller_id": req.SellerID})
		return
	}

	auction, err := h.service.CreateAuction(c.Request.Context(), bidding.CreateAuctionInput{
		SubjectID:     req.SubjectID,
		Description:   req.Description,
		SellerID:      sellerID,
		StartingPrice: req.StartingPrice,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		Status:        model.AuctionStatus(req.Status),
	})
	if err != nil {
		helpers.RespondError(c, "CreateAuctionHandler", err, map[string]any{
			"seller_id":  sellerID,
			"subject_id": req.SubjectID,
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.NewAuctionResponse(auction), "auction created successfully")
	helpers.LogSuccess("CreateAuctionHandler", "auction created successfully", map[string]any{
		"auction_id": auction.AuctionID,
		"seller_id":  auction.SellerID,
	})
}

// ListActiveAuctionsHandler handles GET /auctions
func (h *BiddingHandler) ListActiveAuctionsHandler(c *gin.Context) {
	auctions, err := h.service.ListActive(c.Request.Context())
	if err != nil {
		helpers.RespondError(c, "ListActiveAuctionsHandler", err, nil)
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewAuctionResponses(auctions), "auctions retrieved successfully")
	helpers.LogSuccess("ListActiveAuctionsHandler", "auctions retrieved successfully", map[string]any{"count": len(auctions)})
}

// GetAuctionHandler handles GET /auctions/:auction_id
func (h *BiddingHandler) GetAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	auction, err := h.service.GetAuction(c.Request.Context(), auctionID)
	if err != nil {
		helpers.RespondError(c, "GetAuctionHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewAuctionResponse(auction), "auction retrieved successfully")
}

// PlaceBidHandler handles POST /auctions/:auction_id/bids
func (h *BiddingHandler) PlaceBidHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", err)
		return
	}

	principal, _ := auth.PrincipalFrom(c)
	bidderID := principal.ID
	if req.BidderID != "" && req.BidderID != principal.ID {
		if !principal.IsAdmin() {
			err := fmt.Errorf("%w: %s cannot bid as %s", biddingerrors.ErrForbidden, principal.ID, req.BidderID)
			helpers.RespondError(c, "PlaceBidHandler", err, map[string]any{"auction_id": auctionID})
			return
		}
		bidderID = req.BidderID
	}

	_, bid, err := h.service.PlaceBid(c.Request.Context(), auctionID, bidderID, req.Amount)
	if err != nil {
		helpers.RespondError(c, "PlaceBidHandler", err, map[string]any{
			"auction_id": auctionID,
			"bidder_id":  bidderID,
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.NewBidResponse(auctionID, bid), "bid recorded successfully")
	helpers.LogSuccess("PlaceBidHandler", "bid recorded successfully", map[string]any{
		"bid_id":     bid.BidID,
		"auction_id": auctionID,
		"bidder_id":  bidderID,
		"amount":     bid.Amount.String(),
	})
}

// UpdateStatusHandler handles PATCH /auctions/:auction_id/status
func (h *BiddingHandler) UpdateStatusHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	var req helpers.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "UpdateStatusHandler", err)
		return
	}

	current, ok := h.authorizeManage(c, "UpdateStatusHandler", auctionID)
	if !ok {
		return
	}

	auction, err := h.setStatus(c, current, model.AuctionStatus(req.Status))
	if err != nil {
		helpers.RespondError(c, "UpdateStatusHandler", err, map[string]any{
			"auction_id": auctionID,
			"status":     req.Status,
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewAuctionResponse(auction), "auction status updated successfully")
	helpers.LogSuccess("UpdateStatusHandler", "auction status updated successfully", map[string]any{
		"auction_id": auctionID,
		"status":     auction.Status,
	})
}

// setStatus completes an active auction through settlement so the winner is
// recorded and the order placed. Every other change is a direct set.
func (h *BiddingHandler) setStatus(c *gin.Context, current model.Auction, status model.AuctionStatus) (model.Auction, error) {
	ctx := c.Request.Context()
	if status != model.StatusCompleted || current.Status != model.StatusActive {
		return h.service.UpdateStatus(ctx, current.AuctionID, status)
	}

	outcome, err := h.settler.Settle(ctx, current.AuctionID)
	if err != nil {
		return model.Auction{}, err
	}
	if outcome == settlement.OutcomeAlreadyClosed {
		// lost a race with another closure or status change
		return h.service.UpdateStatus(ctx, current.AuctionID, status)
	}
	return h.service.GetAuction(ctx, current.AuctionID)
}

// CloseAuctionHandler handles POST /auctions/:auction_id/close
func (h *BiddingHandler) CloseAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	if _, ok := h.authorizeManage(c, "CloseAuctionHandler", auctionID); !ok {
		return
	}

	outcome, err := h.settler.Settle(c.Request.Context(), auctionID)
	if err != nil {
		helpers.RespondError(c, "CloseAuctionHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	message := "auction closed successfully"
	if outcome == settlement.OutcomeAlreadyClosed {
		message = "auction already closed"
	}
	utils.JSONResponse(c, http.StatusOK, helpers.CloseResponse{AuctionID: auctionID, Outcome: string(outcome)}, message)
	helpers.LogSuccess("CloseAuctionHandler", message, map[string]any{
		"auction_id": auctionID,
		"outcome":    outcome,
	})
}

// DeleteAuctionHandler handles DELETE /auctions/:auction_id
func (h *BiddingHandler) DeleteAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	if err := h.service.DeleteAuction(c.Request.Context(), auctionID); err != nil {
		helpers.RespondError(c, "DeleteAuctionHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, gin.H{"auction_id": auctionID}, "auction deleted successfully")
	helpers.LogSuccess("DeleteAuctionHandler", "auction deleted successfully", map[string]any{"auction_id": auctionID})
}

// GetAuctionsByBidderHandler handles GET /bidders/:bidder_id/auctions
func (h *BiddingHandler) GetAuctionsByBidderHandler(c *gin.Context) {
	bidderID := c.Param("bidder_id")
	auctions, err := h.service.ListByBidder(c.Request.Context(), bidderID)
	if err != nil {
		helpers.RespondError(c, "GetAuctionsByBidderHandler", err, map[string]any{"bidder_id": bidderID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewAuctionResponses(auctions), "auctions retrieved successfully")
	helpers.LogSuccess("GetAuctionsByBidderHandler", "auctions retrieved successfully", map[string]any{
		"bidder_id": bidderID,
		"count":     len(auctions),
	})
}

// GetAuctionsBySellerHandler handles GET /sellers/:seller_id/auctions
func (h *BiddingHandler) GetAuctionsBySellerHandler(c *gin.Context) {
	sellerID := c.Param("seller_id")
	auctions, err := h.service.ListBySeller(c.Request.Context(), sellerID)
	if err != nil {
		helpers.RespondError(c, "GetAuctionsBySellerHandler", err, map[string]any{"seller_id": sellerID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewAuctionResponses(auctions), "auctions retrieved successfully")
	helpers.LogSuccess("GetAuctionsBySellerHandler", "auctions retrieved successfully", map[string]any{
		"seller_id": sellerID,
		"count":     len(auctions),
	})
}

// authorizeManage loads the auction and checks the caller may manage it.
// It writes the error response itself and reports whether to continue.
func (h *BiddingHandler) authorizeManage(c *gin.Context, handlerName, auctionID string) (model.Auction, bool) {
	auction, err := h.service.GetAuction(c.Request.Context(), auctionID)
	if err != nil {
		helpers.RespondError(c, handlerName, err, map[string]any{"auction_id": auctionID})
		return model.Auction{}, false
	}

	principal, _ := auth.PrincipalFrom(c)
	if err := h.authorizer.CanManage(principal, auction); err != nil {
		helpers.RespondError(c, handlerName, err, map[string]any{
			"auction_id": auctionID,
			"principal":  principal.ID,
		})
		return model.Auction{}, false
	}
	return auction, true
}
