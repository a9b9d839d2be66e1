package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"storefront/client"
	"storefront/config"
	"storefront/logging"
	"storefront/metrics"
	models "storefront/model"
	"storefront/payment"
	"storefront/store"
)

const (
	msgInvalidCredentials = "Invalid credentials. Please try again."
	msgItemsUnavailable   = "Some items are unavailable."
	msgCheckoutFailed     = "Failed to initiate checkout. Please try again."
	msgOverlayFailed      = "Payment SDK failed to load. Are you online?"
	msgVerifyFailed       = "Payment verification failed. Please contact support."
	msgBackendFailed      = "Something went wrong. Please try again."
	msgSessionExpired     = "Please log in to continue."
)

type Service struct {
	backend  Backend
	carts    *store.CartRegistry
	sessions *store.Sessions
	overlay  Overlay
	pay      config.PaymentConfig

	// sessions with a create-order call in flight
	checkouts sync.Map
}

func NewService(b Backend, carts *store.CartRegistry, sessions *store.Sessions, overlay Overlay, pay config.PaymentConfig) *Service {
	return &Service{backend: b, carts: carts, sessions: sessions, overlay: overlay, pay: pay}
}

// --- cart ---

func (s *Service) Cart(sessionID string) models.CartState {
	c, ok := s.carts.Lookup(sessionID)
	if !ok {
		return models.CartState{Items: []models.CartItem{}}
	}
	return c.State()
}

func (s *Service) AddToCart(sessionID string, item models.ItemDescriptor, qty int) (models.CartState, error) {
	if err := check(item); err != nil {
		return models.CartState{}, err
	}
	c := s.carts.Get(sessionID)
	c.Add(item, qty)
	return c.State(), nil
}

// RemoveFromCart, UpdateQuantity and ClearCart never create a cart: on a
// session without one they are no-ops returning the empty state.

func (s *Service) RemoveFromCart(sessionID string, productID int64) models.CartState {
	if c, ok := s.carts.Lookup(sessionID); ok {
		c.Remove(productID)
	}
	return s.Cart(sessionID)
}

func (s *Service) UpdateQuantity(sessionID string, productID int64, qty int) models.CartState {
	if c, ok := s.carts.Lookup(sessionID); ok {
		c.SetQuantity(productID, qty)
	}
	return s.Cart(sessionID)
}

func (s *Service) ClearCart(sessionID string) models.CartState {
	if c, ok := s.carts.Lookup(sessionID); ok {
		c.Clear()
	}
	return s.Cart(sessionID)
}

// --- catalog ---

func (s *Service) Products(ctx context.Context, q models.ProductQuery) (models.ProductPage, error) {
	if err := check(q); err != nil {
		return models.ProductPage{}, err
	}
	if q.MaxPrice > 0 && q.MinPrice > q.MaxPrice {
		return models.ProductPage{}, fail(KindValidation, "minprice must not exceed maxprice", "", nil)
	}
	page, err := s.backend.ListProducts(ctx, q)
	if err != nil {
		return models.ProductPage{}, s.backendFailure("", err, msgBackendFailed)
	}
	return page, nil
}

func (s *Service) Product(ctx context.Context, id int64) (models.Product, error) {
	p, err := s.backend.GetProduct(ctx, id)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Status == 404 {
			return models.Product{}, fail(KindNotFound, "Product not found", "/shop", err)
		}
		return models.Product{}, s.backendFailure("", err, msgBackendFailed)
	}
	return p, nil
}

func (s *Service) SubmitReview(ctx context.Context, sessionID string, r models.Review) error {
	if err := check(r); err != nil {
		return err
	}
	token, err := s.token(sessionID)
	if err != nil {
		return err
	}
	if err := s.backend.SubmitReview(ctx, token, r); err != nil {
		return s.backendFailure(sessionID, err, msgBackendFailed)
	}
	return nil
}

// --- account ---

func (s *Service) Login(ctx context.Context, sessionID string, creds models.Credentials) (models.User, error) {
	if err := check(creds); err != nil {
		return models.User{}, err
	}
	res, err := s.backend.Login(ctx, creds)
	if err != nil {
		if client.IsBadRequest(err) || client.IsUnauthorized(err) {
			return models.User{}, fail(KindUnauthorized, client.Message(err, msgInvalidCredentials), "", err)
		}
		return models.User{}, s.backendFailure("", err, msgInvalidCredentials)
	}
	return s.saveLogin(sessionID, res)
}

func (s *Service) Signup(ctx context.Context, su models.Signup) (models.Outcome, error) {
	if err := check(su); err != nil {
		return models.Outcome{}, err
	}
	if err := s.backend.Signup(ctx, su); err != nil {
		if client.IsBadRequest(err) {
			return models.Outcome{}, fail(KindBadRequest, client.Message(err, "Signup failed. Please try again."), "", err)
		}
		return models.Outcome{}, s.backendFailure("", err, "Signup failed. Please try again.")
	}
	return models.Outcome{Redirect: "/login"}, nil
}

func (s *Service) GoogleLogin(ctx context.Context, sessionID string, g models.GoogleLogin) (models.User, error) {
	if err := check(g); err != nil {
		return models.User{}, err
	}
	res, err := s.backend.GoogleLogin(ctx, g)
	if err != nil {
		if client.IsBadRequest(err) || client.IsUnauthorized(err) {
			return models.User{}, fail(KindUnauthorized, client.Message(err, "Google sign-in failed."), "", err)
		}
		return models.User{}, s.backendFailure("", err, "Google sign-in failed.")
	}
	return s.saveLogin(sessionID, res)
}

func (s *Service) saveLogin(sessionID string, res models.AuthResponse) (models.User, error) {
	if res.Token == "" {
		return models.User{}, fail(KindUpstream, msgInvalidCredentials, "", errors.New("login response has no token"))
	}
	if err := s.sessions.SaveLogin(sessionID, res.Token, res.User); err != nil {
		return models.User{}, fmt.Errorf("save session: %w", err)
	}
	logging.Info().Str("session", sessionID).Int64("user", res.User.ID).Msg("logged in")
	return res.User, nil
}

func (s *Service) Logout(sessionID string) (models.Outcome, error) {
	if err := s.sessions.Clear(sessionID); err != nil {
		return models.Outcome{}, fmt.Errorf("clear session: %w", err)
	}
	return models.Outcome{Redirect: "/login"}, nil
}

func (s *Service) Profile(ctx context.Context, sessionID string) (models.User, error) {
	token, err := s.token(sessionID)
	if err != nil {
		return models.User{}, err
	}
	u, err := s.backend.Me(ctx, token)
	if err != nil {
		return models.User{}, s.backendFailure(sessionID, err, msgBackendFailed)
	}
	if err := s.sessions.SaveUser(sessionID, u); err != nil {
		return models.User{}, fmt.Errorf("save user: %w", err)
	}
	return u, nil
}

func (s *Service) UpdateProfile(ctx context.Context, sessionID string, p models.ProfileUpdate) (models.User, error) {
	if err := check(p); err != nil {
		return models.User{}, err
	}
	token, err := s.token(sessionID)
	if err != nil {
		return models.User{}, err
	}
	current, err := s.sessions.User(sessionID)
	if err != nil {
		return models.User{}, fmt.Errorf("load user: %w", err)
	}
	if current == nil {
		return models.User{}, fail(KindUnauthorized, msgSessionExpired, "/login", ErrNotAuthenticated)
	}
	u, err := s.backend.UpdateProfile(ctx, token, current.ID, p)
	if err != nil {
		return models.User{}, s.backendFailure(sessionID, err, "Failed to update profile.")
	}
	if err := s.sessions.SaveUser(sessionID, u); err != nil {
		return models.User{}, fmt.Errorf("save user: %w", err)
	}
	return u, nil
}

func (s *Service) Orders(ctx context.Context, sessionID string) ([]models.Order, error) {
	token, err := s.token(sessionID)
	if err != nil {
		return nil, err
	}
	orders, err := s.backend.MyOrders(ctx, token)
	if err != nil {
		return nil, s.backendFailure(sessionID, err, "Failed to load orders.")
	}
	return orders, nil
}

// Order picks one order out of the user's history.
func (s *Service) Order(ctx context.Context, sessionID string, orderID int64) (models.Order, error) {
	orders, err := s.Orders(ctx, sessionID)
	if err != nil {
		return models.Order{}, err
	}
	for _, o := range orders {
		if o.ID == orderID {
			return o, nil
		}
	}
	return models.Order{}, fail(KindNotFound, fmt.Sprintf("Order %d not found", orderID), "", nil)
}

// --- checkout ---

// BeginCheckout creates a payment order for the session's cart and opens the
// payment overlay. The returned options are what the browser needs to show
// the provider's modal.
func (s *Service) BeginCheckout(ctx context.Context, sessionID string, ship models.ShippingDetails) (payment.Options, error) {
	if err := check(ship); err != nil {
		return payment.Options{}, err
	}
	cart, ok := s.carts.Lookup(sessionID)
	if !ok {
		return payment.Options{}, fail(KindBadRequest, "Your cart is empty.", "/shop", nil)
	}
	state := cart.State()
	if state.Empty() {
		return payment.Options{}, fail(KindBadRequest, "Your cart is empty.", "/shop", nil)
	}
	token, err := s.token(sessionID)
	if err != nil {
		return payment.Options{}, err
	}

	if _, busy := s.checkouts.LoadOrStore(sessionID, struct{}{}); busy {
		return payment.Options{}, fail(KindConflict, "Checkout is already in progress.", "", ErrCheckoutInProgress)
	}
	defer s.checkouts.Delete(sessionID)

	order, err := s.backend.CreateOrder(ctx, token, models.CreateOrderRequest{Amount: state.TotalAmount, Items: state.Items})
	if err != nil {
		metrics.CheckoutOutcomes.WithLabelValues("create", "error").Inc()
		if client.IsBadRequest(err) {
			// Stale cart contents are discarded, not retried.
			cart.Clear()
			logging.Warn().Err(err).Str("session", sessionID).Msg("create-order rejected, cart cleared")
			return payment.Options{}, fail(KindBadRequest, client.Message(err, msgItemsUnavailable), "/shop", err)
		}
		return payment.Options{}, s.backendFailure(sessionID, err, msgCheckoutFailed)
	}
	metrics.CheckoutOutcomes.WithLabelValues("create", "ok").Inc()

	opts := payment.Options{
		Key:         s.pay.KeyID,
		Amount:      order.Amount,
		Currency:    order.Currency,
		Name:        s.pay.MerchantName,
		Description: s.pay.Description,
		OrderID:     order.OrderID,
		Prefill:     payment.Prefill{Contact: ship.Phone},
		ThemeColor:  s.pay.ThemeColor,
	}
	if u, _ := s.sessions.User(sessionID); u != nil {
		opts.Prefill.Name = u.Name
		opts.Prefill.Email = u.Email
	}

	if err := s.overlay.Open(ctx, sessionID, opts, s.verifyPayment(sessionID)); err != nil {
		metrics.CheckoutOutcomes.WithLabelValues("open", "error").Inc()
		logging.Error().Err(err).Str("session", sessionID).Msg("payment overlay failed to open")
		return payment.Options{}, fail(KindUnavailable, msgOverlayFailed, "", err)
	}
	logging.Info().Str("session", sessionID).Str("order", order.OrderID).Float64("amount", state.TotalAmount).Msg("checkout started")
	return opts, nil
}

// CompletePayment hands the provider's completion to the pending overlay.
func (s *Service) CompletePayment(ctx context.Context, sessionID string, res models.PaymentResult) (models.Outcome, error) {
	if err := check(res); err != nil {
		return models.Outcome{}, err
	}
	out, err := s.overlay.Complete(ctx, sessionID, res)
	if errors.Is(err, payment.ErrUnknownOrder) {
		return models.Outcome{}, fail(KindNotFound, "No pending payment for this order.", "", err)
	}
	return out, err
}

// verifyPayment is the overlay completion for one session: verify with the
// backend, then clear the cart and send the user to the confirmation page.
func (s *Service) verifyPayment(sessionID string) payment.Completion {
	return func(ctx context.Context, res models.PaymentResult) (models.Outcome, error) {
		token, err := s.sessions.Token(sessionID)
		if err != nil {
			return models.Outcome{}, fmt.Errorf("load token: %w", err)
		}
		v, err := s.backend.VerifyPayment(ctx, token, res)
		if err == nil && !v.Success {
			err = errors.New("backend rejected payment signature")
		}
		if err != nil {
			metrics.CheckoutOutcomes.WithLabelValues("verify", "error").Inc()
			logging.Error().Err(err).Str("session", sessionID).Str("order", res.ProviderOrderID).Msg("payment verification failed")
			return models.Outcome{}, fail(KindUpstream, msgVerifyFailed, "", err)
		}

		metrics.CheckoutOutcomes.WithLabelValues("verify", "ok").Inc()
		if cart, ok := s.carts.Lookup(sessionID); ok {
			cart.Clear()
		}
		logging.Info().Str("session", sessionID).Int64("order", v.OrderID).Msg("payment verified")
		return models.Outcome{
			Redirect: fmt.Sprintf("/payment-success?id=%d", v.OrderID),
			Data:     v,
		}, nil
	}
}

// token returns the session's bearer token, or a Failure sending the user to
// the login page when there is none. An expired token ends the session.
func (s *Service) token(sessionID string) (string, error) {
	tok, err := s.sessions.Token(sessionID)
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}
	if tok == "" {
		return "", fail(KindUnauthorized, msgSessionExpired, "/login", ErrNotAuthenticated)
	}
	ok, err := s.sessions.Authenticated(sessionID)
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}
	if !ok {
		if err := s.sessions.Clear(sessionID); err != nil {
			return "", fmt.Errorf("clear session: %w", err)
		}
		return "", fail(KindUnauthorized, msgSessionExpired, "/login", ErrNotAuthenticated)
	}
	return tok, nil
}

// backendFailure turns a backend error into a Failure. A 401 also ends the
// session when sessionID is set.
func (s *Service) backendFailure(sessionID string, err error, fallback string) error {
	switch {
	case client.IsUnauthorized(err):
		if sessionID != "" {
			if cerr := s.sessions.Clear(sessionID); cerr != nil {
				logging.Error().Err(cerr).Str("session", sessionID).Msg("failed to clear session")
			}
		}
		return fail(KindUnauthorized, msgSessionExpired, "/login", err)
	case client.IsBadRequest(err):
		return fail(KindBadRequest, client.Message(err, fallback), "", err)
	default:
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Status < 500 {
			return fail(KindBadRequest, client.Message(err, fallback), "", err)
		}
		logging.Warn().Err(err).Msg("backend call failed")
		return fail(KindUpstream, fallback, "", err)
	}
}
