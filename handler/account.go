package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	models "storefront/model"
)

// Login handles POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := decode(r, &creds); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	u, err := h.svc.Login(r.Context(), sessionID(r), creds)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.Outcome{Redirect: "/", Data: u})
}

// Signup handles POST /auth/signup
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var su models.Signup
	if err := decode(r, &su); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	out, err := h.svc.Signup(r.Context(), su)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// GoogleLogin handles POST /auth/google
// body: { "credential": "<google id token>" }
func (h *Handler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	var g models.GoogleLogin
	if err := decode(r, &g); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	u, err := h.svc.GoogleLogin(r.Context(), sessionID(r), g)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.Outcome{Redirect: "/", Data: u})
}

// Logout handles POST /auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Logout(sessionID(r))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Profile handles GET /profile
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Profile(r.Context(), sessionID(r))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// UpdateProfile handles PUT /profile
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var p models.ProfileUpdate
	if err := decode(r, &p); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	u, err := h.svc.UpdateProfile(r.Context(), sessionID(r), p)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.Outcome{Message: "Profile updated successfully!", Data: u})
}

// Orders handles GET /profile/orders
func (h *Handler) Orders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.Orders(r.Context(), sessionID(r))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

// Order handles GET /profile/orders/{id}
func (h *Handler) Order(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid order id")
		return
	}
	o, err := h.svc.Order(r.Context(), sessionID(r), id)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
