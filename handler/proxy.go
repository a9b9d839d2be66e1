package handler

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"storefront/logging"
	"storefront/metrics"
)

// forwardHeaders are the only request headers passed to the backend.
var forwardHeaders = []string{"Content-Type", "Authorization", "Accept"}

// Proxy forwards /api/{path} to the backend and wraps every answer as JSON
// that browsers must not cache.
type Proxy struct {
	base string
	http *http.Client
	log  zerolog.Logger
}

func NewProxy(baseURL string, timeout time.Duration) *Proxy {
	return &Proxy{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
		log:  logging.With().Str("component", "proxy").Logger(),
	}
}

// Register mounts the proxy on r, a router whose prefix is /api.
func (p *Proxy) Register(r *mux.Router) {
	r.Handle("/{path:.*}", p)
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	target := p.base + "/" + mux.Vars(r)["path"]
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	p.log.Info().Str("method", r.Method).Str("url", target).Msg("proxying request")

	var body io.Reader
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		if b := jsonBody(r); b != nil {
			body = bytes.NewReader(b)
		}
	}

	req, err := http.NewRequestWithContext(r.Context(), r.Method, target, body)
	if err != nil {
		p.fail(w, r, err)
		return
	}
	for _, name := range forwardHeaders {
		if v := r.Header.Get(name); v != "" {
			req.Header.Set(name, v)
		}
	}

	resp, err := p.http.Do(req)
	if err != nil {
		p.fail(w, r, err)
		return
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		p.fail(w, r, err)
		return
	}

	var payload interface{}
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		if len(bytes.TrimSpace(raw)) > 0 {
			if !json.Valid(raw) {
				p.fail(w, r, errInvalidJSON)
				return
			}
			payload = json.RawMessage(raw)
		}
	} else {
		payload = string(raw)
	}

	metrics.ProxyRequests.WithLabelValues(r.Method, strconv.Itoa(resp.StatusCode)).Inc()
	w.Header().Set("Cache-Control", "no-store, max-age=0")
	writeJSON(w, resp.StatusCode, payload)
}

func (p *Proxy) fail(w http.ResponseWriter, r *http.Request, err error) {
	p.log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("API proxy error")
	metrics.ProxyRequests.WithLabelValues(r.Method, strconv.Itoa(http.StatusBadGateway)).Inc()
	writeJSON(w, http.StatusBadGateway, map[string]string{
		"error":   "Connection to backend failed",
		"details": err.Error(),
	})
}

var errInvalidJSON = errors.New("backend sent malformed JSON")

// jsonBody returns the request body re-encoded as compact JSON. It returns nil
// when the body is missing or not JSON, and for the falsy scalars null, false,
// 0 and "", which the backend receives as no body at all.
func jsonBody(r *http.Request) []byte {
	raw, err := io.ReadAll(r.Body)
	if err != nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil || falsy(v) {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil
	}
	return buf.Bytes()
}

func falsy(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return true
	case bool:
		return !x
	case float64:
		return x == 0
	case string:
		return x == ""
	}
	return false
}
