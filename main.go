package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"auction-engine/internal/auth"
	bidding "auction-engine/internal/biddingService"
	"auction-engine/internal/collaborators"
	"auction-engine/internal/config"
	"auction-engine/internal/db"
	"auction-engine/internal/gateway"
	"auction-engine/internal/metrics"
	"auction-engine/internal/redisstore"
	"auction-engine/internal/repository"
	"auction-engine/internal/server"
	"auction-engine/internal/settlement"
	"auction-engine/internal/sweeper"
	"auction-engine/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		utils.Fatal("Failed to load configuration", map[string]any{"error": err.Error()})
	}
	utils.SetLevel(cfg.App.LogLevel)
	if cfg.App.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, ready, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		utils.Fatal("Failed to open auction store", map[string]any{"driver": cfg.Store.Driver, "error": err.Error()})
	}
	defer closeStore()

	lock, closeLock, err := sweepLock(ctx, cfg)
	if err != nil {
		utils.Fatal("Failed to set up sweep lock", map[string]any{"error": err.Error()})
	}
	defer closeLock()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	auctionMetrics := metrics.New(registry)

	hub := gateway.NewHub(auctionMetrics)
	biddingSvc := bidding.NewBiddingService(repo,
		bidding.WithBroadcaster(hub),
		bidding.WithMetrics(auctionMetrics),
		bidding.WithPolicy(bidding.Policy(cfg.Bidding.Policy)),
	)

	users := collaborators.NewUserDirectory()
	inventory := collaborators.NewInventory()
	orders := collaborators.NewOrderBook()
	prepopulateCollaborators(users, inventory)

	coordinator := settlement.NewCoordinator(repo, users, inventory, orders,
		settlement.WithBroadcaster(hub),
		settlement.WithMetrics(auctionMetrics),
		settlement.WithTimeout(cfg.Settlement.CollaboratorTimeout),
	)

	sweep, err := sweeper.New(sweeper.Params{
		Auctions:    repo,
		Settler:     coordinator,
		Lock:        lock,
		Metrics:     auctionMetrics,
		Interval:    cfg.Sweeper.Interval,
		Concurrency: cfg.Sweeper.Concurrency,
	})
	if err != nil {
		utils.Fatal("Failed to build sweeper", map[string]any{"error": err.Error()})
	}

	if cfg.App.IsDev() {
		prepopulateAuctions(ctx, biddingSvc)
		logDevToken(cfg.JWT)
	}

	router := server.SetupRouter(server.Dependencies{
		Service:  biddingSvc,
		Settler:  coordinator,
		Gateway:  gateway.NewServer(hub, biddingSvc, cfg.JWT, cfg.Gateway),
		Gatherer: registry,
		JWT:      cfg.JWT,
		Ready:    ready,
	})
	srv := &http.Server{
		Addr:              cfg.App.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		utils.Info("Starting auction server", map[string]any{
			"addr":   srv.Addr,
			"env":    cfg.App.Env,
			"store":  cfg.Store.Driver,
			"policy": cfg.Bidding.Policy,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := sweep.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		utils.Info("Shutting down auction server", nil)

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		hub.Shutdown()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		utils.Error("Auction server stopped with error", map[string]any{"error": err.Error()})
		return
	}
	utils.Info("Auction server stopped", nil)
}

// openStore builds the configured auction ledger. The returned ready func
// backs the health probe.
func openStore(ctx context.Context, cfg config.StoreConfig) (repository.AuctionDB, func() error, func(), error) {
	if cfg.Driver == config.StoreMemory {
		return repository.NewMemoryRepo(), nil, func() {}, nil
	}

	client, err := db.New(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	repo := repository.NewGormRepo(client.DB())
	if cfg.AutoMigrate {
		if err := repo.Migrate(ctx); err != nil {
			_ = client.Close()
			return nil, nil, nil, err
		}
	}

	ready := func() error {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return client.Ping(pingCtx)
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			utils.Warn("Failed to close auction store", map[string]any{"error": err.Error()})
		}
	}
	return repo, ready, closeFn, nil
}

// sweepLock uses Redis when configured so only one instance sweeps at a time
func sweepLock(ctx context.Context, cfg *config.Config) (sweeper.Lock, func(), error) {
	if !cfg.Redis.Enabled() {
		utils.Info("Redis not configured, using in-process sweep lock", nil)
		return sweeper.NewLocalLock(), func() {}, nil
	}

	client, err := redisstore.New(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	lock, err := sweeper.NewRedisLock(client, cfg.Sweeper.LockKey, cfg.Sweeper.LockTTL)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return lock, func() { _ = client.Close() }, nil
}

// prepopulateCollaborators seeds the in-process user and inventory stand-ins
func prepopulateCollaborators(users *collaborators.UserDirectory, inventory *collaborators.Inventory) {
	for _, u := range []settlement.User{
		{ID: "bidder1", MarketIDs: []string{"market-north"}},
		{ID: "bidder2", MarketIDs: []string{"market-north", "market-south"}},
		{ID: "bidder3"},
	} {
		users.Put(u)
	}
	for _, item := range []settlement.Item{
		{ID: "crop-maize", AvailableQuantity: 40},
		{ID: "crop-wheat", AvailableQuantity: 25},
	} {
		inventory.Put(item)
	}
}

// prepopulateAuctions adds sample auctions for local development
func prepopulateAuctions(ctx context.Context, svc *bidding.BiddingService) {
	now := time.Now().UTC()
	samples := []bidding.CreateAuctionInput{
		{SubjectID: "crop-maize", Description: "40 bags of maize", SellerID: "seller1", StartingPrice: decimal.NewFromInt(100), StartTime: now, EndTime: now.Add(10 * time.Minute)},
		{SubjectID: "crop-wheat", Description: "25 bags of wheat", SellerID: "seller1", StartingPrice: decimal.NewFromInt(200), StartTime: now, EndTime: now.Add(time.Hour)},
	}
	for _, in := range samples {
		a, err := svc.CreateAuction(ctx, in)
		if err != nil {
			utils.Warn("Failed to seed auction", map[string]any{"subjectID": in.SubjectID, "error": err.Error()})
			continue
		}
		utils.Debug("Seeded auction", map[string]any{"auctionID": a.AuctionID, "subjectID": a.SubjectID})
	}
}

func logDevToken(cfg config.JWTConfig) {
	tok, err := auth.MintToken(cfg, time.Now(), auth.Principal{ID: "admin", Role: auth.RoleAdmin})
	if err != nil {
		utils.Warn("Failed to mint dev token", map[string]any{"error": err.Error()})
		return
	}
	utils.Info("Dev admin token", map[string]any{"token": tok})
}
