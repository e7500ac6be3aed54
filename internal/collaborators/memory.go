// Package collaborators holds in-process stand-ins for the user directory,
// inventory and order services that settlement talks to.
package collaborators

import (
	"auction-engine/internal/biddingerrors"
	"auction-engine/internal/settlement"
	"auction-engine/utils"
	"context"
	"fmt"
	"sync"
)

// UserDirectory is an in-memory settlement.UserDirectory
type UserDirectory struct {
	mu    sync.RWMutex
	users map[string]settlement.User
}

func NewUserDirectory() *UserDirectory {
	return &UserDirectory{users: make(map[string]settlement.User)}
}

// Put adds or replaces a user
func (d *UserDirectory) Put(user settlement.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	user.MarketIDs = append([]string(nil), user.MarketIDs...)
	d.users[user.ID] = user
}

func (d *UserDirectory) GetUser(ctx context.Context, userID string) (settlement.User, error) {
	if err := ctx.Err(); err != nil {
		return settlement.User{}, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()

	user, ok := d.users[userID]
	if !ok {
		return settlement.User{}, fmt.Errorf("user %s: %w", userID, biddingerrors.ErrUserNotFound)
	}
	user.MarketIDs = append([]string(nil), user.MarketIDs...)
	return user, nil
}

// Inventory is an in-memory settlement.Inventory
type Inventory struct {
	mu    sync.RWMutex
	items map[string]settlement.Item
}

func NewInventory() *Inventory {
	return &Inventory{items: make(map[string]settlement.Item)}
}

func (i *Inventory) Put(item settlement.Item) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.items[item.ID] = item
}

func (i *Inventory) GetItem(ctx context.Context, subjectID string) (settlement.Item, error) {
	if err := ctx.Err(); err != nil {
		return settlement.Item{}, err
	}
	i.mu.RLock()
	defer i.mu.RUnlock()

	item, ok := i.items[subjectID]
	if !ok {
		return settlement.Item{}, fmt.Errorf("item %s: %w", subjectID, biddingerrors.ErrItemNotFound)
	}
	return item, nil
}

// OrderBook is an in-memory settlement.OrderService that keeps every order it creates
type OrderBook struct {
	mu     sync.RWMutex
	orders []settlement.Order
}

func NewOrderBook() *OrderBook {
	return &OrderBook{}
}

func (o *OrderBook) CreateOrder(ctx context.Context, req settlement.OrderRequest) (settlement.Order, error) {
	if err := ctx.Err(); err != nil {
		return settlement.Order{}, err
	}
	if req.MarketID == "" || req.BuyerID == "" || len(req.Items) == 0 {
		return settlement.Order{}, fmt.Errorf("%w: incomplete order request", biddingerrors.ErrCollaborator)
	}

	order := settlement.Order{ID: utils.GenerateID(), OrderRequest: req}
	order.Items = append([]settlement.OrderItem(nil), req.Items...)

	o.mu.Lock()
	o.orders = append(o.orders, order)
	o.mu.Unlock()
	return order, nil
}

// Orders returns the orders created so far
func (o *OrderBook) Orders() []settlement.Order {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]settlement.Order, len(o.orders))
	copy(out, o.orders)
	return out
}
