package service

import (
	"context"

	models "storefront/model"
	"storefront/payment"
)

// ServiceInterface is what the HTTP layer needs.
type ServiceInterface interface {
	Cart(sessionID string) models.CartState
	AddToCart(sessionID string, item models.ItemDescriptor, qty int) (models.CartState, error)
	RemoveFromCart(sessionID string, productID int64) models.CartState
	UpdateQuantity(sessionID string, productID int64, qty int) models.CartState
	ClearCart(sessionID string) models.CartState

	Products(ctx context.Context, q models.ProductQuery) (models.ProductPage, error)
	Product(ctx context.Context, id int64) (models.Product, error)
	SubmitReview(ctx context.Context, sessionID string, r models.Review) error

	Login(ctx context.Context, sessionID string, creds models.Credentials) (models.User, error)
	Signup(ctx context.Context, s models.Signup) (models.Outcome, error)
	GoogleLogin(ctx context.Context, sessionID string, g models.GoogleLogin) (models.User, error)
	Logout(sessionID string) (models.Outcome, error)

	Profile(ctx context.Context, sessionID string) (models.User, error)
	UpdateProfile(ctx context.Context, sessionID string, p models.ProfileUpdate) (models.User, error)
	Orders(ctx context.Context, sessionID string) ([]models.Order, error)
	Order(ctx context.Context, sessionID string, orderID int64) (models.Order, error)

	BeginCheckout(ctx context.Context, sessionID string, ship models.ShippingDetails) (payment.Options, error)
	CompletePayment(ctx context.Context, sessionID string, res models.PaymentResult) (models.Outcome, error)
}

// Backend is the subset of the REST client the service calls.
type Backend interface {
	Login(ctx context.Context, creds models.Credentials) (models.AuthResponse, error)
	Signup(ctx context.Context, s models.Signup) error
	GoogleLogin(ctx context.Context, g models.GoogleLogin) (models.AuthResponse, error)
	Me(ctx context.Context, token string) (models.User, error)
	UpdateProfile(ctx context.Context, token string, userID int64, p models.ProfileUpdate) (models.User, error)
	ListProducts(ctx context.Context, q models.ProductQuery) (models.ProductPage, error)
	GetProduct(ctx context.Context, id int64) (models.Product, error)
	CreateOrder(ctx context.Context, token string, req models.CreateOrderRequest) (models.PaymentOrder, error)
	VerifyPayment(ctx context.Context, token string, res models.PaymentResult) (models.Verification, error)
	MyOrders(ctx context.Context, token string) ([]models.Order, error)
	SubmitReview(ctx context.Context, token string, r models.Review) error
}

// Overlay opens payment modals and accepts their completions.
type Overlay interface {
	payment.Overlay
	Complete(ctx context.Context, sessionID string, res models.PaymentResult) (models.Outcome, error)
}
