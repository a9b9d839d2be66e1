package handler

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"

	models "storefront/model"
)

type reviewReq struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// ListProducts handles GET /products?page=&limit=&category=&minPrice=&maxPrice=&search=&sort=
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q, err := parseProductQuery(r.URL.Query())
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	page, err := h.svc.Products(r.Context(), q)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GetProduct handles GET /products/{id}
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid product id")
		return
	}
	p, err := h.svc.Product(r.Context(), id)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// SubmitReview handles POST /products/{id}/reviews
// body: { "rating": 5, "comment": "..." }
func (h *Handler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid product id")
		return
	}
	var req reviewReq
	if err := decode(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	review := models.Review{ProductID: id, Rating: req.Rating, Comment: req.Comment}
	if err := h.svc.SubmitReview(r.Context(), sessionID(r), review); err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.Outcome{Message: "Review submitted"})
}

func parseProductQuery(v url.Values) (models.ProductQuery, error) {
	q := models.ProductQuery{
		Category: v.Get("category"),
		Search:   v.Get("search"),
		Sort:     v.Get("sort"),
	}
	var err error
	if q.Page, err = intParam(v, "page"); err != nil {
		return q, err
	}
	if q.Limit, err = intParam(v, "limit"); err != nil {
		return q, err
	}
	if q.MinPrice, err = floatParam(v, "minPrice"); err != nil {
		return q, err
	}
	if q.MaxPrice, err = floatParam(v, "maxPrice"); err != nil {
		return q, err
	}
	return q, nil
}

func intParam(v url.Values, name string) (int, error) {
	s := v.Get(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return n, nil
}

func floatParam(v url.Values, name string) (float64, error) {
	s := v.Get(name)
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	return f, nil
}
