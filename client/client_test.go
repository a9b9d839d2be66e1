package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	models "storefront/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api", 5*time.Second)
}

func TestCreateOrderSendsBearerAndBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/payments/create-order" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		var req models.CreateOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Amount != 300 || len(req.Items) != 1 || req.Items[0].Quantity != 3 {
			t.Errorf("unexpected body: %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"orderId":"order_1","amount":30000,"currency":"INR"}`))
	})

	out, err := c.CreateOrder(context.Background(), "tok", models.CreateOrderRequest{
		Amount: 300,
		Items:  []models.CartItem{{ID: 1, Price: 100, Quantity: 3, TotalPrice: 300}},
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if out.OrderID != "order_1" || out.Currency != "INR" || out.Amount != 30000 {
		t.Fatalf("unexpected order: %+v", out)
	}
}

func TestListProductsEncodesFilters(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("category") != "FASHION" || q.Get("minPrice") != "10" || q.Get("sort") != "price_asc" || q.Get("page") != "2" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		if q.Has("search") {
			t.Errorf("empty search should be omitted: %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"products":[{"id":1,"name":"Chair","price":10}],"page":2,"totalPages":3,"total":25}`))
	})

	page, err := c.ListProducts(context.Background(), models.ProductQuery{Page: 2, Category: "FASHION", MinPrice: 10, Sort: "price_asc"})
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	if len(page.Products) != 1 || page.TotalPages != 3 {
		t.Fatalf("unexpected page: %+v", page)
	}
}

func TestAPIErrorClassification(t *testing.T) {
	tests := []struct {
		status       int
		body         string
		badRequest   bool
		unauthorized bool
		server       bool
		message      string
	}{
		{http.StatusBadRequest, `{"error":"Item 3 is out of stock"}`, true, false, false, "Item 3 is out of stock"},
		{http.StatusUnauthorized, `{"message":"token expired"}`, false, true, false, "token expired"},
		{http.StatusBadGateway, `oops`, false, false, true, ""},
	}
	for _, tt := range tests {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			_, _ = w.Write([]byte(tt.body))
		})
		_, err := c.Me(context.Background(), "tok")
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("status %d: expected *APIError, got %v", tt.status, err)
		}
		if IsBadRequest(err) != tt.badRequest || IsUnauthorized(err) != tt.unauthorized || IsServerError(err) != tt.server {
			t.Errorf("status %d: wrong classification", tt.status)
		}
		if got := Message(err, ""); got != tt.message {
			t.Errorf("status %d: Message = %q, want %q", tt.status, got, tt.message)
		}
	}
}

func TestAnonymousCallsSendNoAuthorization(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("unexpected Authorization header")
		}
		if r.URL.Path != "/api/products/9" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id":9,"name":"Lamp","price":45}`))
	})
	p, err := c.GetProduct(context.Background(), 9)
	if err != nil || p.ID != 9 {
		t.Fatalf("GetProduct = %+v, %v", p, err)
	}
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	})
	for i := 0; i < 10; i++ {
		_, _ = c.MyOrders(context.Background(), "tok")
	}
	_, err := c.MyOrders(context.Background(), "tok")
	if err == nil || statusOf(err) != 0 {
		t.Fatalf("expected breaker rejection, got %v", err)
	}
	if calls != 10 {
		t.Fatalf("backend saw %d calls, want 10", calls)
	}
}

func TestRouteLabel(t *testing.T) {
	if got := routeLabel("/users/42"); got != "/users/:id" {
		t.Fatalf("routeLabel = %q", got)
	}
}
