package models

import (
	"net/url"
	"strconv"
)

type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
	Category    string  `json:"category"`
	Tag         string  `json:"tag,omitempty"`
	Stock       int     `json:"stock,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
}

// ProductQuery holds the catalog listing filters. Zero values are omitted.
type ProductQuery struct {
	Page     int     `json:"page,omitempty" validate:"gte=0"`
	Limit    int     `json:"limit,omitempty" validate:"gte=0,lte=100"`
	Category string  `json:"category,omitempty"`
	MinPrice float64 `json:"minPrice,omitempty" validate:"gte=0"`
	MaxPrice float64 `json:"maxPrice,omitempty" validate:"gte=0"`
	Search   string  `json:"search,omitempty"`
	Sort     string  `json:"sort,omitempty" validate:"omitempty,oneof=newest price_asc price_desc rating"`
}

// Values encodes the query the way the backend expects it on GET /products.
func (q ProductQuery) Values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Category != "" && q.Category != "ALL" {
		v.Set("category", q.Category)
	}
	if q.MinPrice > 0 {
		v.Set("minPrice", strconv.FormatFloat(q.MinPrice, 'f', -1, 64))
	}
	if q.MaxPrice > 0 {
		v.Set("maxPrice", strconv.FormatFloat(q.MaxPrice, 'f', -1, 64))
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	return v
}

type ProductPage struct {
	Products   []Product `json:"products"`
	Page       int       `json:"page"`
	TotalPages int       `json:"totalPages"`
	Total      int       `json:"total"`
}

type Review struct {
	ProductID int64  `json:"productId" validate:"required"`
	Rating    int    `json:"rating" validate:"min=1,max=5"`
	Comment   string `json:"comment" validate:"max=2000"`
}
