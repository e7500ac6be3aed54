package server

import (
	"net/http"

	"auction-engine/internal/auth"
	"auction-engine/internal/config"
	handler "auction-engine/services/bidding/handler"
	"auction-engine/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies are the collaborators the HTTP surface is built on
type Dependencies struct {
	Service  handler.AuctionServiceInterface
	Settler  handler.SettlerInterface
	Gateway  http.Handler
	Gatherer prometheus.Gatherer
	JWT      config.JWTConfig
	Ready    func() error
}

// SetupRouter configures all Gin routes for the application
func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging

	biddingHandler := handler.NewBiddingHandler(deps.Service, deps.Settler)
	requireAuth := auth.RequireAuth(deps.JWT)

	router.GET("/healthz", healthHandler(deps.Ready))
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}
	if deps.Gateway != nil {
		router.GET("/ws", gin.WrapH(deps.Gateway))
	}

	auctions := router.Group("/auctions")
	{
		auctions.GET("", biddingHandler.ListActiveAuctionsHandler)
		auctions.GET("/:auction_id", biddingHandler.GetAuctionHandler)
		auctions.POST("", requireAuth, biddingHandler.CreateAuctionHandler)
		auctions.POST("/:auction_id/bids", requireAuth, biddingHandler.PlaceBidHandler)
		auctions.PATCH("/:auction_id/status", requireAuth, biddingHandler.UpdateStatusHandler)
		auctions.POST("/:auction_id/close", requireAuth, biddingHandler.CloseAuctionHandler)
		auctions.DELETE("/:auction_id", requireAuth, auth.RequireRole(auth.RoleAdmin), biddingHandler.DeleteAuctionHandler)
	}

	bidders := router.Group("/bidders")
	{
		bidders.GET("/:bidder_id/auctions", biddingHandler.GetAuctionsByBidderHandler)
	}

	sellers := router.Group("/sellers")
	{
		sellers.GET("/:seller_id/auctions", biddingHandler.GetAuctionsBySellerHandler)
	}

	return router
}

func healthHandler(ready func() error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ready != nil {
			if err := ready(); err != nil {
				utils.JSONError(c, http.StatusServiceUnavailable, err, "not ready")
				return
			}
		}
		utils.JSONResponse(c, http.StatusOK, gin.H{"status": "ok"}, "healthy")
	}
}
