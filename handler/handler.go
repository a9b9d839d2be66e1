package handler

import (
	"net/http"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"storefront/logging"
	"storefront/service"
)

// Handler is the HTTP layer that talks to service.Service
type Handler struct {
	svc service.ServiceInterface
}

// NewHandler returns a Handler instance
func NewHandler(s service.ServiceInterface) *Handler {
	return &Handler{svc: s}
}

// RegisterRoutes registers all routes on the provided router. Every route
// below runs inside a browser session (see Sessions).
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.Use(Sessions)

	// Cart
	r.HandleFunc("/cart", h.GetCart).Methods("GET")
	r.HandleFunc("/cart/add", h.AddToCart).Methods("POST")
	r.HandleFunc("/cart/remove", h.RemoveFromCart).Methods("POST")
	r.HandleFunc("/cart/quantity", h.UpdateQuantity).Methods("POST")
	r.HandleFunc("/cart/clear", h.ClearCart).Methods("POST")

	// Checkout
	r.HandleFunc("/checkout/order", h.BeginCheckout).Methods("POST")
	r.HandleFunc("/checkout/verify", h.CompletePayment).Methods("POST")

	// Account
	r.HandleFunc("/auth/login", h.Login).Methods("POST")
	r.HandleFunc("/auth/signup", h.Signup).Methods("POST")
	r.HandleFunc("/auth/google", h.GoogleLogin).Methods("POST")
	r.HandleFunc("/auth/logout", h.Logout).Methods("POST")
	r.HandleFunc("/profile", h.Profile).Methods("GET")
	r.HandleFunc("/profile", h.UpdateProfile).Methods("PUT")
	r.HandleFunc("/profile/orders", h.Orders).Methods("GET")
	r.HandleFunc("/profile/orders/{id:[0-9]+}", h.Order).Methods("GET")

	// Catalog
	r.HandleFunc("/products", h.ListProducts).Methods("GET")
	r.HandleFunc("/products/{id:[0-9]+}", h.GetProduct).Methods("GET")
	r.HandleFunc("/products/{id:[0-9]+}/reviews", h.SubmitReview).Methods("POST")
}

// --- helpers ---
func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func decode(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// writeFailure renders a service error as {"message", "redirect"}. Errors that
// are not Failures are internal and get a generic message.
func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	f, ok := service.AsFailure(err)
	if !ok {
		logging.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Something went wrong. Please try again."})
		return
	}
	code := statusFor(f.Kind)
	if code >= 500 {
		logging.Warn().Err(f).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, code, f.Outcome)
}

func statusFor(k service.Kind) int {
	switch k {
	case service.KindValidation, service.KindBadRequest:
		return http.StatusBadRequest
	case service.KindUnauthorized:
		return http.StatusUnauthorized
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict:
		return http.StatusConflict
	case service.KindUnavailable:
		return http.StatusServiceUnavailable
	case service.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
