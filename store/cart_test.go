package store

import (
	"context"
	"math/rand"
	"reflect"
	"sync"
	"testing"
	"time"

	models "storefront/model"
)

func item(id int64, price float64) models.ItemDescriptor {
	return models.ItemDescriptor{ID: id, Name: "p", Category: "FASHION", Image: "img", Price: price}
}

// checkTotals asserts the derived fields match the items.
func checkTotals(t *testing.T, s models.CartState) {
	t.Helper()
	var qty int
	var amount float64
	seen := map[int64]bool{}
	for _, it := range s.Items {
		if seen[it.ID] {
			t.Fatalf("duplicate id %d in %+v", it.ID, s.Items)
		}
		seen[it.ID] = true
		if it.Quantity < 1 {
			t.Fatalf("item %d has quantity %d", it.ID, it.Quantity)
		}
		qty += it.Quantity
		amount += it.Price * float64(it.Quantity)
	}
	if s.TotalQuantity != qty {
		t.Fatalf("TotalQuantity = %d, want %d", s.TotalQuantity, qty)
	}
	if s.TotalAmount != amount {
		t.Fatalf("TotalAmount = %v, want %v", s.TotalAmount, amount)
	}
}

func TestAddAccumulatesSameID(t *testing.T) {
	c := NewCart()
	c.Add(item(1, 100), 2)
	s := c.State()
	if s.TotalQuantity != 2 || s.TotalAmount != 200 {
		t.Fatalf("after first add: %+v", s)
	}

	c.Add(item(1, 100), 1)
	s = c.State()
	if s.TotalQuantity != 3 || s.TotalAmount != 300 {
		t.Fatalf("after second add: %+v", s)
	}
	if len(s.Items) != 1 || s.Items[0].Quantity != 3 || s.Items[0].TotalPrice != 300 {
		t.Fatalf("expected one item with quantity 3, got %+v", s.Items)
	}
}

func TestAddDefaultsQuantityToOne(t *testing.T) {
	c := NewCart()
	c.Add(item(7, 10), 0)
	c.Add(item(8, 10), -4)
	s := c.State()
	if s.TotalQuantity != 2 || s.Items[0].Quantity != 1 || s.Items[1].Quantity != 1 {
		t.Fatalf("unexpected state: %+v", s)
	}
}

func TestAddKeepsFirstPrice(t *testing.T) {
	c := NewCart()
	c.Add(item(1, 100), 1)
	c.Add(item(1, 999), 1)
	s := c.State()
	if s.Items[0].Price != 100 || s.TotalAmount != 200 {
		t.Fatalf("price should stay as first added: %+v", s)
	}
}

func TestRemove(t *testing.T) {
	c := NewCart()
	c.Add(item(1, 50), 1)
	c.Add(item(2, 150), 1)
	c.Remove(1)

	s := c.State()
	if len(s.Items) != 1 || s.Items[0].ID != 2 {
		t.Fatalf("unexpected items: %+v", s.Items)
	}
	if s.TotalQuantity != 1 || s.TotalAmount != 150 {
		t.Fatalf("unexpected totals: %+v", s)
	}
}

func TestRemoveAbsentIsNoop(t *testing.T) {
	c := NewCart()
	c.Add(item(1, 50), 2)
	before := c.State()
	c.Remove(42)
	if after := c.State(); !reflect.DeepEqual(before, after) {
		t.Fatalf("state changed: %+v -> %+v", before, after)
	}
}

func TestSetQuantity(t *testing.T) {
	c := NewCart()
	c.Add(item(1, 20), 1)
	c.SetQuantity(1, 5)
	s := c.State()
	if s.TotalQuantity != 5 || s.TotalAmount != 100 || s.Items[0].TotalPrice != 100 {
		t.Fatalf("unexpected state: %+v", s)
	}
}

func TestSetQuantityIgnored(t *testing.T) {
	tests := []struct {
		name string
		id   int64
		qty  int
	}{
		{"unknown id", 99, 3},
		{"zero", 1, 0},
		{"negative", 1, -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCart()
			c.Add(item(1, 20), 2)
			before := c.State()
			c.SetQuantity(tt.id, tt.qty)
			if after := c.State(); !reflect.DeepEqual(before, after) {
				t.Fatalf("state changed: %+v -> %+v", before, after)
			}
		})
	}
}

func TestClearIsIdempotent(t *testing.T) {
	c := NewCart()
	c.Add(item(1, 20), 2)
	c.Clear()
	c.Clear()
	want := models.CartState{Items: []models.CartItem{}}
	if got := c.State(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestSplitAddEqualsSingleAdd(t *testing.T) {
	a, b := NewCart(), NewCart()
	a.Add(item(3, 12.5), 2)
	a.Add(item(3, 12.5), 5)
	b.Add(item(3, 12.5), 7)
	if !reflect.DeepEqual(a.State(), b.State()) {
		t.Fatalf("%+v != %+v", a.State(), b.State())
	}
}

func TestRandomSequencesKeepTotals(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	prices := []float64{10, 25, 99, 150, 1200}
	c := NewCart()
	for i := 0; i < 2000; i++ {
		id := int64(r.Intn(len(prices)))
		switch r.Intn(4) {
		case 0, 1:
			c.Add(item(id, prices[id]), r.Intn(4))
		case 2:
			c.Remove(id)
		case 3:
			c.SetQuantity(id, r.Intn(6)-1)
		}
		checkTotals(t, c.State())
	}
}

func TestStateIsACopy(t *testing.T) {
	c := NewCart()
	c.Add(item(1, 10), 1)
	s := c.State()
	s.Items[0].Quantity = 50
	if c.State().Items[0].Quantity != 1 {
		t.Fatal("mutating a snapshot leaked into the cart")
	}
}

func TestSubscribeReceivesEveryMutation(t *testing.T) {
	c := NewCart()
	var got []int
	unsubscribe := c.Subscribe(func(s models.CartState) {
		got = append(got, s.TotalQuantity)
	})
	c.Add(item(1, 10), 2)
	c.SetQuantity(1, 4)
	c.Clear()
	unsubscribe()
	c.Add(item(1, 10), 1)

	if !reflect.DeepEqual(got, []int{2, 4, 0}) {
		t.Fatalf("notifications = %v", got)
	}
}

func TestConcurrentAdds(t *testing.T) {
	c := NewCart()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Add(item(int64(i%5), 10), 1)
		}(i)
	}
	wg.Wait()
	s := c.State()
	checkTotals(t, s)
	if s.TotalQuantity != 50 || len(s.Items) != 5 {
		t.Fatalf("unexpected state: %+v", s)
	}
}

func TestConcurrentNotificationsArriveInOrder(t *testing.T) {
	c := NewCart()
	var mu sync.Mutex
	var seen []int
	c.Subscribe(func(s models.CartState) {
		mu.Lock()
		seen = append(seen, s.TotalQuantity)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Add(item(int64(i%7), 3), 1)
		}(i)
	}
	wg.Wait()

	if len(seen) != 200 {
		t.Fatalf("got %d notifications, want 200", len(seen))
	}
	for i, q := range seen {
		if q != i+1 {
			t.Fatalf("notification %d carried quantity %d: %v", i, q, seen)
		}
	}
	if last := seen[len(seen)-1]; last != c.State().TotalQuantity {
		t.Fatalf("last notification %d, state %d", last, c.State().TotalQuantity)
	}
}

func TestSubscriberMayReadCart(t *testing.T) {
	c := NewCart()
	var got models.CartState
	c.Subscribe(func(models.CartState) { got = c.State() })
	c.Add(item(1, 10), 2)
	if got.TotalQuantity != 2 {
		t.Fatalf("State inside subscriber = %+v", got)
	}
}

func TestRegistry(t *testing.T) {
	r := NewCartRegistry()
	a := r.Get("a")
	if r.Get("a") != a {
		t.Fatal("expected the same cart for the same session")
	}
	if r.Get("b") == a {
		t.Fatal("sessions must not share carts")
	}
	if r.Len() != 2 {
		t.Fatalf("Len = %d, want 2", r.Len())
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Get("c")
		}()
	}
	wg.Wait()
	if r.Len() != 3 {
		t.Fatalf("Len after concurrent Get = %d, want 3", r.Len())
	}
}

func TestRegistryLookupDoesNotCreate(t *testing.T) {
	r := NewCartRegistry()
	if _, ok := r.Lookup("nobody"); ok {
		t.Fatal("Lookup found a cart that was never created")
	}
	if r.Len() != 0 {
		t.Fatalf("Lookup created a cart: Len = %d", r.Len())
	}
	c := r.Get("a")
	if got, ok := r.Lookup("a"); !ok || got != c {
		t.Fatal("Lookup should return the existing cart")
	}
}

func TestRegistryDrop(t *testing.T) {
	r := NewCartRegistry()
	r.Get("a").Add(item(1, 10), 1)
	r.Get("b")

	if !r.Drop("a") {
		t.Fatal("Drop should report the existing cart")
	}
	if r.Drop("a") || r.Drop("missing") {
		t.Fatal("Drop of an unknown session should report false")
	}
	if r.Len() != 1 {
		t.Fatalf("Len after drop = %d, want 1", r.Len())
	}
	if _, ok := r.Lookup("a"); ok {
		t.Fatal("dropped cart is still held")
	}
	if s := r.Get("a").State(); !s.Empty() {
		t.Fatalf("a dropped session starts over with an empty cart, got %+v", s)
	}
}

func TestRegistrySweepDropsIdleCarts(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r := NewCartRegistry()
	r.now = func() time.Time { return now }

	r.Get("old")
	r.Get("busy")
	now = now.Add(30 * time.Minute)
	r.Get("busy")
	r.Get("new")
	now = now.Add(45 * time.Minute)

	if n := r.Sweep(time.Hour); n != 1 {
		t.Fatalf("Sweep dropped %d carts, want 1", n)
	}
	if _, ok := r.Lookup("old"); ok {
		t.Fatal("idle cart survived the sweep")
	}
	if r.Len() != 2 {
		t.Fatalf("Len after sweep = %d, want 2", r.Len())
	}

	// Lookup counts as activity.
	now = now.Add(50 * time.Minute)
	r.Lookup("busy")
	now = now.Add(20 * time.Minute)
	if n := r.Sweep(time.Hour); n != 1 {
		t.Fatalf("second Sweep dropped %d carts, want 1", n)
	}
	if _, ok := r.Lookup("busy"); !ok {
		t.Fatal("recently read cart was swept")
	}
}

func TestRegistryRunStopsWithContext(t *testing.T) {
	r := NewCartRegistry()
	r.Get("a")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx, time.Millisecond, 0)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for r.Len() != 0 {
		select {
		case <-deadline:
			t.Fatal("Run never swept the idle cart")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
