package sweeper

import (
	"auction-engine/internal/metrics"
	model "auction-engine/internal/models"
	"auction-engine/internal/settlement"
	"auction-engine/utils"
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	defaultInterval    = time.Second
	defaultConcurrency = 4
)

// DueLister finds active auctions whose end time has passed
type DueLister interface {
	ListDue(ctx context.Context, now time.Time) ([]model.Auction, error)
}

// Settler closes one auction and runs its settlement
type Settler interface {
	Settle(ctx context.Context, auctionID string) (settlement.Outcome, error)
}

// Params configure the sweeper.
type Params struct {
	Auctions    DueLister
	Settler     Settler
	Lock        Lock
	Metrics     *metrics.AuctionMetrics
	Interval    time.Duration
	Concurrency int
	Clock       func() time.Time
}

// Sweeper periodically closes auctions whose bidding window has ended.
type Sweeper struct {
	auctions    DueLister
	settler     Settler
	lock        Lock
	metrics     *metrics.AuctionMetrics
	interval    time.Duration
	concurrency int
	now         func() time.Time
}

// New builds a sweeper.
func New(params Params) (*Sweeper, error) {
	if params.Auctions == nil {
		return nil, errors.New("auction lister required")
	}
	if params.Settler == nil {
		return nil, errors.New("settler required")
	}
	lock := params.Lock
	if lock == nil {
		lock = NewLocalLock()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	concurrency := params.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	now := params.Clock
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Sweeper{
		auctions:    params.Auctions,
		settler:     params.Settler,
		lock:        lock,
		metrics:     params.Metrics,
		interval:    interval,
		concurrency: concurrency,
		now:         now,
	}, nil
}

// Run sweeps once immediately and then on every tick until the context is canceled.
func (s *Sweeper) Run(ctx context.Context) error {
	if err := s.RunCycle(ctx); err != nil {
		utils.Error("Sweep cycle failed", map[string]any{"error": err.Error()})
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			utils.Info("Sweeper stopped", nil)
			return ctx.Err()
		case <-ticker.C:
			if err := s.RunCycle(ctx); err != nil {
				utils.Error("Sweep cycle failed", map[string]any{"error": err.Error()})
			}
		}
	}
}

// RunCycle closes every auction that is due now. A cycle is skipped when
// another instance holds the lock. Failures on individual auctions are
// logged and do not stop the remaining ones.
func (s *Sweeper) RunCycle(ctx context.Context) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.metrics.IncSweepSkipped()
		utils.Debug("Another sweeper holds the lock; skipping cycle", nil)
		return nil
	}
	defer func() {
		if relErr := s.lock.Release(context.WithoutCancel(ctx)); relErr != nil {
			utils.Error("Failed to release sweeper lock", map[string]any{"error": relErr.Error()})
		}
	}()

	start := time.Now()
	due, err := s.auctions.ListDue(ctx, s.now())
	if err != nil {
		return fmt.Errorf("list due auctions: %w", err)
	}

	var failures atomic.Int64
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, auction := range due {
		auctionID := auction.AuctionID
		g.Go(func() error {
			outcome, err := s.settler.Settle(ctx, auctionID)
			if err != nil {
				failures.Add(1)
				s.metrics.IncSweepFailure()
				utils.Error("Failed to close due auction", map[string]any{
					"auctionID": auctionID,
					"error":     err.Error(),
				})
				return nil
			}
			utils.Debug("Auction swept", map[string]any{"auctionID": auctionID, "outcome": string(outcome)})
			return nil
		})
	}
	_ = g.Wait()

	duration := time.Since(start)
	s.metrics.ObserveSweep(duration, len(due))
	if len(due) > 0 {
		utils.Info("Sweep cycle complete", map[string]any{
			"due":         len(due),
			"failed":      failures.Load(),
			"duration_ms": duration.Milliseconds(),
		})
	}
	return nil
}
