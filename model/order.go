package models

import "time"

// Order is an order from the current user's history, as the backend returns it.
type Order struct {
	ID          int64       `json:"id"`
	CreatedAt   time.Time   `json:"createdAt"`
	Status      string      `json:"status"`
	Items       []OrderItem `json:"items"`
	TotalAmount float64     `json:"totalAmount"`
}

type OrderItem struct {
	Product  *Product `json:"product,omitempty"`
	Quantity int      `json:"quantity"`
	Price    float64  `json:"price"`
}
