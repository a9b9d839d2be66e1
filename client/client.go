// Package client talks to the storefront REST backend.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"storefront/logging"
	"storefront/metrics"
	models "storefront/model"
)

// Client calls the backend API. Methods taking a token send it as a bearer
// credential; an empty token sends no Authorization header.
type Client struct {
	baseURL string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker[*http.Response]
}

// New returns a client for baseURL (e.g. http://localhost:5000/api).
func New(baseURL string, timeout time.Duration) *Client {
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: timeout})
}

func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	name := "backend-api"
	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		// 4xx answers mean the backend is healthy.
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			return err == nil || (errors.As(err, &apiErr) && apiErr.Status < 500)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc, cb: cb}
}

func (c *Client) Login(ctx context.Context, creds models.Credentials) (models.AuthResponse, error) {
	var out models.AuthResponse
	err := c.do(ctx, http.MethodPost, "/users/login", nil, "", creds, &out)
	return out, err
}

func (c *Client) Signup(ctx context.Context, s models.Signup) error {
	return c.do(ctx, http.MethodPost, "/users/signup", nil, "", s, nil)
}

func (c *Client) GoogleLogin(ctx context.Context, g models.GoogleLogin) (models.AuthResponse, error) {
	var out models.AuthResponse
	err := c.do(ctx, http.MethodPost, "/users/google-login", nil, "", g, &out)
	return out, err
}

func (c *Client) Me(ctx context.Context, token string) (models.User, error) {
	var out models.User
	err := c.do(ctx, http.MethodGet, "/users/me", nil, token, nil, &out)
	return out, err
}

func (c *Client) UpdateProfile(ctx context.Context, token string, userID int64, p models.ProfileUpdate) (models.User, error) {
	var out models.User
	err := c.do(ctx, http.MethodPut, "/users/"+strconv.FormatInt(userID, 10), nil, token, p, &out)
	return out, err
}

func (c *Client) ListProducts(ctx context.Context, q models.ProductQuery) (models.ProductPage, error) {
	var out models.ProductPage
	err := c.do(ctx, http.MethodGet, "/products", q.Values(), "", nil, &out)
	return out, err
}

func (c *Client) GetProduct(ctx context.Context, id int64) (models.Product, error) {
	var out models.Product
	err := c.do(ctx, http.MethodGet, "/products/"+strconv.FormatInt(id, 10), nil, "", nil, &out)
	return out, err
}

func (c *Client) CreateOrder(ctx context.Context, token string, req models.CreateOrderRequest) (models.PaymentOrder, error) {
	var out models.PaymentOrder
	err := c.do(ctx, http.MethodPost, "/payments/create-order", nil, token, req, &out)
	return out, err
}

func (c *Client) VerifyPayment(ctx context.Context, token string, res models.PaymentResult) (models.Verification, error) {
	var out models.Verification
	err := c.do(ctx, http.MethodPost, "/payments/verify", nil, token, res, &out)
	return out, err
}

func (c *Client) MyOrders(ctx context.Context, token string) ([]models.Order, error) {
	var out []models.Order
	err := c.do(ctx, http.MethodGet, "/payments/my-orders", nil, token, nil, &out)
	return out, err
}

func (c *Client) SubmitReview(ctx context.Context, token string, r models.Review) error {
	return c.do(ctx, http.MethodPost, "/reviews", nil, token, r, nil)
}

// do sends one request through the breaker and decodes a JSON answer into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, token string, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		rdr = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.cb.Execute(func() (*http.Response, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 300 {
			defer resp.Body.Close()
			return nil, decodeError(resp)
		}
		return resp, nil
	})
	metrics.BackendRequestDuration.WithLabelValues(method, routeLabel(path), outcome(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		logging.Debug().Err(err).Str("method", method).Str("path", path).Msg("backend request failed")
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		apiErr.Message = payload.Error
		if apiErr.Message == "" {
			apiErr.Message = payload.Message
		}
	}
	return apiErr
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "rejected"
	case statusOf(err) > 0:
		return strconv.Itoa(statusOf(err))
	default:
		return "error"
	}
}

// routeLabel replaces numeric path segments so ids do not become metric labels.
func routeLabel(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if _, err := strconv.ParseInt(p, 10, 64); err == nil {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}
