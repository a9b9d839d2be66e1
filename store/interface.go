package store

import "errors"

// ErrNotFound is returned by KV.Get when the key is not set.
var ErrNotFound = errors.New("not found")

// KV is the session storage backend: string values addressed by session id
// and key.
type KV interface {
	Get(sessionID, key string) (string, error)
	Set(sessionID, key, value string) error
	Delete(sessionID string, keys ...string) error

	Close() error
}
