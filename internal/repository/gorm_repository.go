package repository

import (
	"auction-engine/internal/biddingerrors"
	model "auction-engine/internal/models"
	"auction-engine/utils"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type auctionRecord struct {
	ID            string          `gorm:"primaryKey;size:36"`
	SubjectID     string          `gorm:"size:64;not null"`
	Description   string          `gorm:"type:text"`
	SellerID      string          `gorm:"size:64;not null;index"`
	StartingPrice decimal.Decimal `gorm:"type:numeric;not null"`
	StartTime     time.Time       `gorm:"not null"`
	EndTime       time.Time       `gorm:"not null;index"`
	Status        string          `gorm:"size:16;not null;index"`
	WinnerID      string          `gorm:"size:64"`
	Version       int64           `gorm:"not null;default:1"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (auctionRecord) TableName() string { return "auctions" }

type bidRecord struct {
	ID        string          `gorm:"primaryKey;size:36"`
	AuctionID string          `gorm:"size:36;not null;uniqueIndex:idx_auction_bids_seq,priority:1"`
	Seq       int             `gorm:"not null;uniqueIndex:idx_auction_bids_seq,priority:2"`
	BidderID  string          `gorm:"size:64;not null;index"`
	Amount    decimal.Decimal `gorm:"type:numeric;not null"`
	Timestamp time.Time       `gorm:"not null"`
}

func (bidRecord) TableName() string { return "auction_bids" }

// GormRepo is a relational implementation of AuctionDB. Bid appends and
// closure lock the auction row inside a transaction; status flips are
// conditional updates so a closed auction is never closed twice.
type GormRepo struct {
	db *gorm.DB
}

// NewGormRepo wraps an open gorm connection
func NewGormRepo(db *gorm.DB) *GormRepo {
	return &GormRepo{db: db}
}

// Migrate creates or updates the ledger tables
func (r *GormRepo) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&auctionRecord{}, &bidRecord{}); err != nil {
		return fmt.Errorf("migrate auction tables: %w", err)
	}
	return nil
}

// CreateAuction inserts a new auction, defaulting its ID and status
func (r *GormRepo) CreateAuction(ctx context.Context, auction model.Auction) (model.Auction, error) {
	if err := ValidateNew(auction); err != nil {
		return model.Auction{}, fmt.Errorf("create auction: %w", err)
	}
	if auction.AuctionID == "" {
		auction.AuctionID = utils.GenerateID()
	}
	if auction.Status == "" {
		auction.Status = model.StatusActive
	}

	rec := toAuctionRecord(auction)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&auctionRecord{}).Where("id = ?", rec.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return biddingerrors.ErrAuctionExists
		}
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		for i, b := range auction.Bids {
			br := toBidRecord(rec.ID, i, b)
			if err := tx.Create(&br).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return model.Auction{}, fmt.Errorf("create auction %s: %w", rec.ID, err)
	}
	return r.GetAuction(ctx, rec.ID)
}

// GetAuction loads an auction with its bids in append order
func (r *GormRepo) GetAuction(ctx context.Context, auctionID string) (model.Auction, error) {
	auction, err := loadAuction(r.db.WithContext(ctx), auctionID, false)
	if err != nil {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, err)
	}
	return auction, nil
}

// ListActive returns every auction still in the active state
func (r *GormRepo) ListActive(ctx context.Context) ([]model.Auction, error) {
	return r.list(ctx, "list active auctions", func(q *gorm.DB) *gorm.DB {
		return q.Where("status = ?", string(model.StatusActive))
	})
}

// ListDue returns active auctions whose end time is at or before now
func (r *GormRepo) ListDue(ctx context.Context, now time.Time) ([]model.Auction, error) {
	return r.list(ctx, "list due auctions", func(q *gorm.DB) *gorm.DB {
		return q.Where("status = ? AND end_time <= ?", string(model.StatusActive), now)
	})
}

// ListByBidder returns every auction holding at least one bid from bidderID
func (r *GormRepo) ListByBidder(ctx context.Context, bidderID string) ([]model.Auction, error) {
	return r.list(ctx, "list auctions by bidder", func(q *gorm.DB) *gorm.DB {
		sub := r.db.WithContext(ctx).Model(&bidRecord{}).Select("auction_id").Where("bidder_id = ?", bidderID)
		return q.Where("id IN (?)", sub)
	})
}

// ListBySeller returns every auction listed by sellerID
func (r *GormRepo) ListBySeller(ctx context.Context, sellerID string) ([]model.Auction, error) {
	return r.list(ctx, "list auctions by seller", func(q *gorm.DB) *gorm.DB {
		return q.Where("seller_id = ?", sellerID)
	})
}

// AppendBid locks the auction row, runs build and inserts the bid it returns
func (r *GormRepo) AppendBid(ctx context.Context, auctionID string, build BidFunc) (model.Auction, error) {
	var updated model.Auction
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := loadAuction(tx, auctionID, true)
		if err != nil {
			return err
		}
		bid, err := build(current)
		if err != nil {
			return err
		}

		br := toBidRecord(auctionID, len(current.Bids), bid)
		if err := tx.Create(&br).Error; err != nil {
			return err
		}
		if err := tx.Model(&auctionRecord{}).Where("id = ?", auctionID).Updates(map[string]any{
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now().UTC(),
		}).Error; err != nil {
			return err
		}

		updated, err = loadAuction(tx, auctionID, false)
		return err
	})
	if err != nil {
		return model.Auction{}, fmt.Errorf("append bid to auction %s: %w", auctionID, err)
	}
	return updated, nil
}

// SetStatus overwrites the status without any transition guard
func (r *GormRepo) SetStatus(ctx context.Context, auctionID string, status model.AuctionStatus) (model.Auction, error) {
	if !status.IsValid() {
		return model.Auction{}, fmt.Errorf("set status of auction %s: %w: %q", auctionID, biddingerrors.ErrInvalidStatus, status)
	}
	res := r.db.WithContext(ctx).Model(&auctionRecord{}).Where("id = ?", auctionID).
		Updates(map[string]any{
			"status":     string(status),
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return model.Auction{}, fmt.Errorf("set status of auction %s: %w", auctionID, res.Error)
	}
	if res.RowsAffected == 0 {
		return model.Auction{}, fmt.Errorf("set status of auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	return r.GetAuction(ctx, auctionID)
}

// CompleteAuction flips an active auction to completed and records the winner
func (r *GormRepo) CompleteAuction(ctx context.Context, auctionID string) (model.Auction, error) {
	var completed model.Auction
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := loadAuction(tx, auctionID, true)
		if err != nil {
			return err
		}
		if current.Status != model.StatusActive {
			return fmt.Errorf("status %s: %w", current.Status, biddingerrors.ErrAuctionNotActive)
		}

		winnerID := ""
		if winning, ok := current.WinningBid(); ok {
			winnerID = winning.BidderID
		}
		res := tx.Model(&auctionRecord{}).
			Where("id = ? AND status = ?", auctionID, string(model.StatusActive)).
			Updates(map[string]any{
				"status":     string(model.StatusCompleted),
				"winner_id":  winnerID,
				"version":    gorm.Expr("version + 1"),
				"updated_at": time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return biddingerrors.ErrAuctionNotActive
		}

		completed, err = loadAuction(tx, auctionID, false)
		return err
	})
	if err != nil {
		return model.Auction{}, fmt.Errorf("complete auction %s: %w", auctionID, err)
	}
	return completed, nil
}

// DeleteAuction removes an auction and its bids regardless of state
func (r *GormRepo) DeleteAuction(ctx context.Context, auctionID string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("auction_id = ?", auctionID).Delete(&bidRecord{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", auctionID).Delete(&auctionRecord{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return biddingerrors.ErrAuctionNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete auction %s: %w", auctionID, err)
	}
	return nil
}

func (r *GormRepo) list(ctx context.Context, op string, scope func(*gorm.DB) *gorm.DB) ([]model.Auction, error) {
	var recs []auctionRecord
	q := scope(r.db.WithContext(ctx).Model(&auctionRecord{}))
	if err := q.Order("created_at ASC, id ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(recs) == 0 {
		return []model.Auction{}, nil
	}

	ids := make([]string, len(recs))
	for i, rec := range recs {
		ids[i] = rec.ID
	}
	var bids []bidRecord
	if err := r.db.WithContext(ctx).Where("auction_id IN ?", ids).Order("auction_id, seq ASC").Find(&bids).Error; err != nil {
		return nil, fmt.Errorf("%s: load bids: %w", op, err)
	}
	byAuction := make(map[string][]bidRecord, len(recs))
	for _, b := range bids {
		byAuction[b.AuctionID] = append(byAuction[b.AuctionID], b)
	}

	out := make([]model.Auction, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toModel(rec, byAuction[rec.ID]))
	}
	return out, nil
}

func loadAuction(tx *gorm.DB, auctionID string, forUpdate bool) (model.Auction, error) {
	var rec auctionRecord
	q := tx
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.Where("id = ?", auctionID).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Auction{}, biddingerrors.ErrAuctionNotFound
		}
		return model.Auction{}, err
	}

	var bids []bidRecord
	if err := tx.Where("auction_id = ?", auctionID).Order("seq ASC").Find(&bids).Error; err != nil {
		return model.Auction{}, err
	}
	return toModel(rec, bids), nil
}

func toAuctionRecord(a model.Auction) auctionRecord {
	return auctionRecord{
		ID:            a.AuctionID,
		SubjectID:     a.SubjectID,
		Description:   a.Description,
		SellerID:      a.SellerID,
		StartingPrice: a.StartingPrice,
		StartTime:     a.StartTime.UTC(),
		EndTime:       a.EndTime.UTC(),
		Status:        string(a.Status),
		WinnerID:      a.WinnerID,
		Version:       1,
		CreatedAt:     a.CreatedAt,
	}
}

func toBidRecord(auctionID string, seq int, b model.Bid) bidRecord {
	id := b.BidID
	if id == "" {
		id = utils.GenerateID()
	}
	return bidRecord{
		ID:        id,
		AuctionID: auctionID,
		Seq:       seq,
		BidderID:  b.BidderID,
		Amount:    b.Amount,
		Timestamp: b.Timestamp.UTC(),
	}
}

func toModel(rec auctionRecord, bids []bidRecord) model.Auction {
	a := model.Auction{
		AuctionID:     rec.ID,
		SubjectID:     rec.SubjectID,
		Description:   rec.Description,
		SellerID:      rec.SellerID,
		StartingPrice: rec.StartingPrice,
		StartTime:     rec.StartTime.UTC(),
		EndTime:       rec.EndTime.UTC(),
		Status:        model.AuctionStatus(rec.Status),
		WinnerID:      rec.WinnerID,
		Version:       rec.Version,
		CreatedAt:     rec.CreatedAt.UTC(),
		UpdatedAt:     rec.UpdatedAt.UTC(),
		Bids:          make([]model.Bid, 0, len(bids)),
	}
	for _, b := range bids {
		a.Bids = append(a.Bids, model.Bid{
			BidID:     b.ID,
			BidderID:  b.BidderID,
			Amount:    b.Amount,
			Timestamp: b.Timestamp.UTC(),
		})
	}
	return a
}
