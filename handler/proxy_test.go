package handler

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
)

func proxyRouter(p *Proxy, rpm int) http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Use(mux.MiddlewareFunc(RateLimit(rpm)))
	p.Register(api)
	return r
}

func TestProxyForwardsRequest(t *testing.T) {
	var got *http.Request
	var gotBody string
	be := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 7}`))
	}))
	defer be.Close()

	h := proxyRouter(NewProxy(be.URL+"/", time.Second), 0)
	req := httptest.NewRequest("POST", "/api/reviews/new?page=2&sort=rating", strings.NewReader(`{ "rating" : 5 }`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer tok")
	req.Header.Set("Cookie", "sid=abc")
	req.Header.Set("X-Custom", "1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got == nil {
		t.Fatal("backend was not called")
	}
	if got.Method != "POST" || got.URL.Path != "/reviews/new" || got.URL.RawQuery != "page=2&sort=rating" {
		t.Fatalf("forwarded to %s %s?%s", got.Method, got.URL.Path, got.URL.RawQuery)
	}
	if got.Header.Get("Authorization") != "Bearer tok" || got.Header.Get("Content-Type") != "application/json" {
		t.Fatalf("allowed headers not forwarded: %v", got.Header)
	}
	if got.Header.Get("Cookie") != "" || got.Header.Get("X-Custom") != "" {
		t.Fatalf("other headers must not be forwarded: %v", got.Header)
	}
	if gotBody != `{"rating":5}` {
		t.Fatalf("body = %q", gotBody)
	}

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Cache-Control") != "no-store, max-age=0" {
		t.Fatalf("Cache-Control = %q", rec.Header().Get("Cache-Control"))
	}
	var out map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil || out["id"] != 7 {
		t.Fatalf("body = %s (%v)", rec.Body.String(), err)
	}
}

func TestProxyWrapsTextAsJSON(t *testing.T) {
	be := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("Cannot GET /api/nope"))
	}))
	defer be.Close()

	rec := httptest.NewRecorder()
	proxyRouter(NewProxy(be.URL, time.Second), 0).ServeHTTP(rec, httptest.NewRequest("GET", "/api/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	var s string
	if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil || s != "Cannot GET /api/nope" {
		t.Fatalf("body = %s (%v)", rec.Body.String(), err)
	}
}

func TestProxyDropsNonJSONBody(t *testing.T) {
	var length int64 = -2
	be := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		length = r.ContentLength
		w.WriteHeader(http.StatusNoContent)
	}))
	defer be.Close()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("PUT", "/api/users/1", strings.NewReader("name=ada"))
	proxyRouter(NewProxy(be.URL, time.Second), 0).ServeHTTP(rec, req)
	if length != 0 {
		t.Fatalf("backend received a body of length %d", length)
	}
}

func TestProxyBodyForwarding(t *testing.T) {
	var gotBody string
	var length int64
	be := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		length = r.ContentLength
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer be.Close()
	h := proxyRouter(NewProxy(be.URL, time.Second), 0)

	tests := []struct {
		body string
		want string
	}{
		{body: `null`, want: ""},
		{body: `false`, want: ""},
		{body: `0`, want: ""},
		{body: ` 0.0 `, want: ""},
		{body: `""`, want: ""},
		{body: `true`, want: "true"},
		{body: `1`, want: "1"},
		{body: `"x"`, want: `"x"`},
		{body: `[]`, want: "[]"},
		{body: `{}`, want: "{}"},
		{body: `{ "a": 1 }`, want: `{"a":1}`},
	}
	for _, tt := range tests {
		gotBody, length = "unset", -2
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/echo", strings.NewReader(tt.body))
		req.Header.Set("Content-Type", "application/json")
		h.ServeHTTP(rec, req)

		if gotBody != tt.want {
			t.Errorf("body %q: backend received %q, want %q", tt.body, gotBody, tt.want)
		}
		if tt.want == "" && length != 0 {
			t.Errorf("body %q: backend saw content length %d", tt.body, length)
		}
	}
}

func TestProxyBackendDown(t *testing.T) {
	be := httptest.NewServer(http.NotFoundHandler())
	url := be.URL
	be.Close()

	rec := httptest.NewRecorder()
	proxyRouter(NewProxy(url, time.Second), 0).ServeHTTP(rec, httptest.NewRequest("GET", "/api/products", nil))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rec.Code)
	}
	var out map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out["error"] != "Connection to backend failed" || out["details"] == "" {
		t.Fatalf("body = %v", out)
	}
}

func TestProxyRateLimit(t *testing.T) {
	be := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer be.Close()

	h := proxyRouter(NewProxy(be.URL, time.Second), 2)
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/products", nil))
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}
}
