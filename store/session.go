package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"

	models "storefront/model"
)

// Session storage keys.
const (
	TokenKey = "token"
	UserKey  = "user"
)

type SessionEventKind string

const (
	SessionLogin   SessionEventKind = "login"
	SessionProfile SessionEventKind = "profile"
	SessionLogout  SessionEventKind = "logout"
)

// SessionEvent announces a change of a session's token or user record.
type SessionEvent struct {
	SessionID string
	Kind      SessionEventKind
}

// Notifier fans session events out to subscribers.
type Notifier struct {
	mu     sync.RWMutex
	subs   map[int]func(SessionEvent)
	nextID int
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]func(SessionEvent))}
}

// Subscribe registers fn and returns a func that unregisters it.
func (n *Notifier) Subscribe(fn func(SessionEvent)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.nextID
	n.nextID++
	n.subs[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

func (n *Notifier) Publish(ev SessionEvent) {
	n.mu.RLock()
	listeners := make([]func(SessionEvent), 0, len(n.subs))
	for _, fn := range n.subs {
		listeners = append(listeners, fn)
	}
	n.mu.RUnlock()

	for _, fn := range listeners {
		fn(ev)
	}
}

// Sessions stores the auth token and user record of each browser session.
type Sessions struct {
	kv     KV
	events *Notifier
	now    func() time.Time
}

func NewSessions(kv KV, events *Notifier) *Sessions {
	if events == nil {
		events = NewNotifier()
	}
	return &Sessions{kv: kv, events: events, now: time.Now}
}

func (s *Sessions) Events() *Notifier { return s.events }

// Token returns the stored token or "" when the session is anonymous.
func (s *Sessions) Token(sessionID string) (string, error) {
	tok, err := s.kv.Get(sessionID, TokenKey)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return tok, err
}

// User returns the stored user record, or nil when none is stored.
func (s *Sessions) User(sessionID string) (*models.User, error) {
	raw, err := s.kv.Get(sessionID, UserKey)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var u models.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, fmt.Errorf("decode stored user: %w", err)
	}
	return &u, nil
}

// Authenticated reports whether the session holds a usable token. Tokens that
// parse as JWTs are also checked against their exp claim; the signature is
// the backend's business.
func (s *Sessions) Authenticated(sessionID string) (bool, error) {
	tok, err := s.Token(sessionID)
	if err != nil || tok == "" {
		return false, err
	}
	return !tokenExpired(tok, s.now()), nil
}

func tokenExpired(token string, now time.Time) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time)
}

func (s *Sessions) SaveLogin(sessionID, token string, user models.User) error {
	if err := s.kv.Set(sessionID, TokenKey, token); err != nil {
		return err
	}
	if err := s.putUser(sessionID, user); err != nil {
		return err
	}
	s.events.Publish(SessionEvent{SessionID: sessionID, Kind: SessionLogin})
	return nil
}

func (s *Sessions) SaveUser(sessionID string, user models.User) error {
	if err := s.putUser(sessionID, user); err != nil {
		return err
	}
	s.events.Publish(SessionEvent{SessionID: sessionID, Kind: SessionProfile})
	return nil
}

// Clear removes both token and user and announces a logout.
func (s *Sessions) Clear(sessionID string) error {
	if err := s.kv.Delete(sessionID, TokenKey, UserKey); err != nil {
		return err
	}
	s.events.Publish(SessionEvent{SessionID: sessionID, Kind: SessionLogout})
	return nil
}

func (s *Sessions) putUser(sessionID string, user models.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return s.kv.Set(sessionID, UserKey, string(raw))
}
