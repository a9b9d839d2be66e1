package models

// ItemDescriptor is what a product card hands to the cart. Display fields are
// copied at add time and never re-synced with the catalog.
type ItemDescriptor struct {
	ID       int64   `json:"id" validate:"required"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Image    string  `json:"image"`
	Price    float64 `json:"price" validate:"gte=0"`
}

type CartItem struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	Image      string  `json:"image"`
	Price      float64 `json:"price"`
	Quantity   int     `json:"quantity"`
	TotalPrice float64 `json:"totalPrice"`
}

// CartState is a point-in-time view of a cart. TotalAmount and TotalQuantity
// are derived from Items.
type CartState struct {
	Items         []CartItem `json:"items"`
	TotalQuantity int        `json:"totalQuantity"`
	TotalAmount   float64    `json:"totalAmount"`
}

// Empty reports whether the cart holds no items.
func (s CartState) Empty() bool { return len(s.Items) == 0 }
