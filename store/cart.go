package store

import (
	"sync"

	"github.com/shopspring/decimal"

	models "storefront/model"
)

// Cart is the in-memory cart of one browser session. All four mutations hold
// the cart lock for their whole duration, so totals never diverge from items.
type Cart struct {
	mu    sync.Mutex
	state models.CartState

	subsMu sync.Mutex
	subs   map[int]func(models.CartState)
	nextID int

	// notifyMu is taken before mu is released, so listeners see snapshots
	// in mutation order.
	notifyMu sync.Mutex
}

func NewCart() *Cart {
	return &Cart{state: emptyState()}
}

func emptyState() models.CartState {
	return models.CartState{Items: []models.CartItem{}}
}

// Add puts quantity units of item in the cart. Quantities below 1 count as 1.
func (c *Cart) Add(item models.ItemDescriptor, quantity int) {
	if quantity < 1 {
		quantity = 1
	}
	c.mutate(func(s *models.CartState) {
		s.TotalQuantity += quantity
		if i := indexOf(s.Items, item.ID); i >= 0 {
			s.Items[i].Quantity += quantity
			s.Items[i].TotalPrice = lineTotal(s.Items[i].Price, s.Items[i].Quantity)
			return
		}
		s.Items = append(s.Items, models.CartItem{
			ID:         item.ID,
			Name:       item.Name,
			Category:   item.Category,
			Image:      item.Image,
			Price:      item.Price,
			Quantity:   quantity,
			TotalPrice: lineTotal(item.Price, quantity),
		})
	})
}

// Remove drops the item with the given id. Unknown ids are ignored.
func (c *Cart) Remove(id int64) {
	c.mutate(func(s *models.CartState) {
		i := indexOf(s.Items, id)
		if i < 0 {
			return
		}
		s.TotalQuantity -= s.Items[i].Quantity
		s.Items = append(s.Items[:i], s.Items[i+1:]...)
	})
}

// SetQuantity replaces an item's quantity. It does nothing when the item is
// absent or quantity is not positive; use Remove to drop an item.
func (c *Cart) SetQuantity(id int64, quantity int) {
	if quantity <= 0 {
		return
	}
	c.mutate(func(s *models.CartState) {
		i := indexOf(s.Items, id)
		if i < 0 {
			return
		}
		s.TotalQuantity += quantity - s.Items[i].Quantity
		s.Items[i].Quantity = quantity
		s.Items[i].TotalPrice = lineTotal(s.Items[i].Price, quantity)
	})
}

func (c *Cart) Clear() {
	c.mutate(func(s *models.CartState) {
		*s = emptyState()
	})
}

// State returns a copy of the current state.
func (c *Cart) State() models.CartState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// Subscribe registers fn to receive the state after every mutation, in the
// order the mutations happened. fn may read the cart but must not mutate it.
// The returned func removes the subscription.
func (c *Cart) Subscribe(fn func(models.CartState)) func() {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	if c.subs == nil {
		c.subs = make(map[int]func(models.CartState))
	}
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	return func() {
		c.subsMu.Lock()
		defer c.subsMu.Unlock()
		delete(c.subs, id)
	}
}

func (c *Cart) mutate(fn func(*models.CartState)) {
	c.mu.Lock()
	fn(&c.state)
	c.state.TotalAmount = totalAmount(c.state.Items)
	snap := c.snapshot()
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	c.mu.Unlock()

	c.subsMu.Lock()
	listeners := make([]func(models.CartState), 0, len(c.subs))
	for _, fn := range c.subs {
		listeners = append(listeners, fn)
	}
	c.subsMu.Unlock()

	for _, fn := range listeners {
		fn(copyState(snap))
	}
}

// snapshot must be called with c.mu held.
func (c *Cart) snapshot() models.CartState {
	return copyState(c.state)
}

func copyState(s models.CartState) models.CartState {
	items := make([]models.CartItem, len(s.Items))
	copy(items, s.Items)
	s.Items = items
	return s
}

func indexOf(items []models.CartItem, id int64) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

func lineTotal(price float64, quantity int) float64 {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(quantity))).InexactFloat64()
}

// totalAmount recomputes the cart total from scratch.
func totalAmount(items []models.CartItem) float64 {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum.InexactFloat64()
}
