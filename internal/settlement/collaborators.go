package settlement

//go:generate mockgen -source=collaborators.go -destination=mock_collaborators.go -package=settlement

import (
	"context"

	"github.com/shopspring/decimal"
)

// OrderStatusProcessing is the status of every order created by settlement
const OrderStatusProcessing = "processing"

// User is the slice of a user profile settlement needs
type User struct {
	ID        string
	MarketIDs []string
}

// Item is an inventory record for an auctioned subject
type Item struct {
	ID                string
	AvailableQuantity int
}

type OrderItem struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// OrderRequest is what settlement asks the order service to create
type OrderRequest struct {
	MarketID   string          `json:"market_id"`
	Items      []OrderItem     `json:"items"`
	BuyerID    string          `json:"buyer_id"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Status     string          `json:"status"`
	AuctionID  string          `json:"auction_id"`
}

type Order struct {
	ID string `json:"order_id"`
	OrderRequest
}

// UserDirectory resolves the markets a winner can receive goods in
type UserDirectory interface {
	GetUser(ctx context.Context, userID string) (User, error)
}

// Inventory reports the quantity behind an auctioned subject
type Inventory interface {
	GetItem(ctx context.Context, subjectID string) (Item, error)
}

// OrderService creates the order that completes a sale
type OrderService interface {
	CreateOrder(ctx context.Context, req OrderRequest) (Order, error)
}
