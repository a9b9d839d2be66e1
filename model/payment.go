package models

// PaymentOrder is the backend's answer to create-order.
type PaymentOrder struct {
	OrderID  string  `json:"orderId"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type CreateOrderRequest struct {
	Amount float64    `json:"amount"`
	Items  []CartItem `json:"items"`
}

// PaymentResult holds the identifiers the payment provider issues on completion.
type PaymentResult struct {
	ProviderOrderID   string `json:"razorpay_order_id" validate:"required"`
	ProviderPaymentID string `json:"razorpay_payment_id" validate:"required"`
	ProviderSignature string `json:"razorpay_signature" validate:"required"`
}

type Verification struct {
	Success bool  `json:"success"`
	OrderID int64 `json:"orderId"`
}

type ShippingDetails struct {
	Address string `json:"address" validate:"required"`
	City    string `json:"city" validate:"required"`
	ZipCode string `json:"zipCode" validate:"required"`
	Phone   string `json:"phone" validate:"required"`
}
