package handler

import (
	"net/http"

	models "storefront/model"
)

// --- request shapes ---
type addToCartReq struct {
	Item     models.ItemDescriptor `json:"item"`
	Quantity int                   `json:"quantity,omitempty"` // defaults to 1
}

type cartItemReq struct {
	ID       int64 `json:"id"`
	Quantity int   `json:"quantity,omitempty"` // only for /cart/quantity
}

// GetCart handles GET /cart
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Cart(sessionID(r)))
}

// AddToCart handles POST /cart/add
// body: { "item": {"id": 1, "name": "...", "price": 10}, "quantity": 2 }
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req addToCartReq
	if err := decode(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	state, err := h.svc.AddToCart(sessionID(r), req.Item, req.Quantity)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// RemoveFromCart handles POST /cart/remove
// body: { "id": 1 }
func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	var req cartItemReq
	if err := decode(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	writeJSON(w, http.StatusOK, h.svc.RemoveFromCart(sessionID(r), req.ID))
}

// UpdateQuantity handles POST /cart/quantity
// body: { "id": 1, "quantity": 3 }. Non-positive quantities leave the cart unchanged.
func (h *Handler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req cartItemReq
	if err := decode(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	writeJSON(w, http.StatusOK, h.svc.UpdateQuantity(sessionID(r), req.ID, req.Quantity))
}

// ClearCart handles POST /cart/clear
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.ClearCart(sessionID(r)))
}

// BeginCheckout handles POST /checkout/order
// body: shipping details. The answer is the option set for the payment overlay.
func (h *Handler) BeginCheckout(w http.ResponseWriter, r *http.Request) {
	var ship models.ShippingDetails
	if err := decode(r, &ship); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	opts, err := h.svc.BeginCheckout(r.Context(), sessionID(r), ship)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, opts)
}

// CompletePayment handles POST /checkout/verify
// body: { "razorpay_order_id": "...", "razorpay_payment_id": "...", "razorpay_signature": "..." }
func (h *Handler) CompletePayment(w http.ResponseWriter, r *http.Request) {
	var res models.PaymentResult
	if err := decode(r, &res); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	out, err := h.svc.CompletePayment(r.Context(), sessionID(r), res)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
