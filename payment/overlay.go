// Package payment is the boundary to the third-party checkout overlay. The
// overlay runs in the browser; the server only learns about it through the
// completion the browser posts back.
package payment

import (
	"context"
	"errors"
	"sync"

	"storefront/logging"
	models "storefront/model"
)

var (
	// ErrUnavailable means the overlay cannot be opened, e.g. no provider key.
	ErrUnavailable = errors.New("payment overlay unavailable")
	// ErrUnknownOrder means a completion arrived for no pending overlay.
	ErrUnknownOrder = errors.New("no pending payment for order")
)

type Prefill struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Contact string `json:"contact,omitempty"`
}

// Options are handed to the overlay script as-is.
type Options struct {
	Key         string  `json:"key"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	OrderID     string  `json:"order_id"`
	Prefill     Prefill `json:"prefill"`
	ThemeColor  string  `json:"themeColor,omitempty"`
}

// Completion runs when the provider reports a finished payment. The error is
// non-nil when the payment could not be confirmed.
type Completion func(ctx context.Context, res models.PaymentResult) (models.Outcome, error)

// Overlay opens a payment modal. Open returns once the modal is shown; done
// is called later, or never if the user walks away.
type Overlay interface {
	Open(ctx context.Context, sessionID string, opts Options, done Completion) error
}

type pending struct {
	sessionID string
	done      Completion
}

// BrowserOverlay keeps one pending payment per session until the browser
// posts the provider's completion to Complete.
type BrowserOverlay struct {
	mu        sync.Mutex
	byOrder   map[string]pending
	bySession map[string]string
}

func NewBrowserOverlay() *BrowserOverlay {
	return &BrowserOverlay{
		byOrder:   make(map[string]pending),
		bySession: make(map[string]string),
	}
}

// Open registers the payment. A session's earlier pending payment is dropped:
// opening a new modal means the old one was abandoned.
func (o *BrowserOverlay) Open(_ context.Context, sessionID string, opts Options, done Completion) error {
	if opts.Key == "" || opts.OrderID == "" {
		return ErrUnavailable
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if prev, ok := o.bySession[sessionID]; ok {
		delete(o.byOrder, prev)
		logging.Debug().Str("session", sessionID).Str("order", prev).Msg("superseded pending payment")
	}
	o.byOrder[opts.OrderID] = pending{sessionID: sessionID, done: done}
	o.bySession[sessionID] = opts.OrderID
	return nil
}

// Complete routes a provider completion to the callback registered by Open.
// The pending entry is consumed even if the callback reports a failure.
func (o *BrowserOverlay) Complete(ctx context.Context, sessionID string, res models.PaymentResult) (models.Outcome, error) {
	o.mu.Lock()
	p, ok := o.byOrder[res.ProviderOrderID]
	if !ok || p.sessionID != sessionID {
		o.mu.Unlock()
		return models.Outcome{}, ErrUnknownOrder
	}
	delete(o.byOrder, res.ProviderOrderID)
	delete(o.bySession, sessionID)
	o.mu.Unlock()

	return p.done(ctx, res)
}
