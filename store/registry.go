package store

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"storefront/logging"
	"storefront/metrics"
	models "storefront/model"
)

type registryEntry struct {
	cart    *Cart
	touched atomic.Int64 // unix nanos of the last Get or Lookup
}

// CartRegistry owns one Cart per session id. Carts nobody touched for longer
// than the idle timeout are dropped by Sweep.
type CartRegistry struct {
	carts sync.Map // map[string]*registryEntry
	n     atomic.Int64
	now   func() time.Time
}

func NewCartRegistry() *CartRegistry {
	return &CartRegistry{now: time.Now}
}

// Get returns the session's cart, creating an empty one on first use.
func (r *CartRegistry) Get(sessionID string) *Cart {
	if v, ok := r.carts.Load(sessionID); ok {
		return r.touch(v.(*registryEntry))
	}
	fresh := &registryEntry{cart: NewCart()}
	actual, loaded := r.carts.LoadOrStore(sessionID, fresh)
	e := actual.(*registryEntry)
	if !loaded {
		metrics.CartsActive.Set(float64(r.n.Add(1)))
		e.cart.Subscribe(func(s models.CartState) {
			logging.Debug().Str("session", sessionID).Int("lines", len(s.Items)).
				Int("quantity", s.TotalQuantity).Float64("amount", s.TotalAmount).Msg("cart changed")
		})
	}
	return r.touch(e)
}

// Lookup returns the session's cart without creating one.
func (r *CartRegistry) Lookup(sessionID string) (*Cart, bool) {
	v, ok := r.carts.Load(sessionID)
	if !ok {
		return nil, false
	}
	return r.touch(v.(*registryEntry)), true
}

// Drop forgets the session's cart. It reports whether there was one.
func (r *CartRegistry) Drop(sessionID string) bool {
	if _, ok := r.carts.LoadAndDelete(sessionID); !ok {
		return false
	}
	metrics.CartsActive.Set(float64(r.n.Add(-1)))
	return true
}

// Len is the number of carts currently held.
func (r *CartRegistry) Len() int {
	return int(r.n.Load())
}

// Sweep drops every cart idle for longer than idle and returns how many went.
func (r *CartRegistry) Sweep(idle time.Duration) int {
	cutoff := r.now().Add(-idle).UnixNano()
	dropped := 0
	r.carts.Range(func(k, v any) bool {
		e := v.(*registryEntry)
		if e.touched.Load() < cutoff && r.carts.CompareAndDelete(k, v) {
			metrics.CartsActive.Set(float64(r.n.Add(-1)))
			dropped++
		}
		return true
	})
	return dropped
}

// Run sweeps every interval until ctx is done.
func (r *CartRegistry) Run(ctx context.Context, interval, idle time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := r.Sweep(idle); n > 0 {
				logging.Info().Int("dropped", n).Int("held", r.Len()).Msg("idle carts swept")
			}
		}
	}
}

func (r *CartRegistry) touch(e *registryEntry) *Cart {
	e.touched.Store(r.now().UnixNano())
	return e.cart
}
