package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"hash/fnv"
	"sync"

	_ "github.com/lib/pq"
)

//go:embed migrations.sql
var migrationSQL string

// PostgresKV is a KV backed by the session_kv table.
type PostgresKV struct {
	DB *sql.DB

	// striped per-session mutexes so a logout in one goroutine cannot
	// interleave with a login for the same session
	locks [lockStripes]sync.Mutex
}

const lockStripes = 64

func NewPostgresKV(dsn string) (*PostgresKV, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresKV{DB: db}, nil
}

// Migrate creates the session table if it does not exist.
func (s *PostgresKV) Migrate() error {
	_, err := s.DB.Exec(migrationSQL)
	return err
}

func (s *PostgresKV) Close() error { return s.DB.Close() }

func (s *PostgresKV) lockForSession(sessionID string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	m := &s.locks[h.Sum32()%lockStripes]
	m.Lock()
	return m.Unlock
}

func (s *PostgresKV) Get(sessionID, key string) (string, error) {
	var v string
	err := s.DB.QueryRow(`SELECT value FROM session_kv WHERE session_id=$1 AND key=$2`, sessionID, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return v, err
}

func (s *PostgresKV) Set(sessionID, key, value string) error {
	unlock := s.lockForSession(sessionID)
	defer unlock()

	_, err := s.DB.Exec(`
		INSERT INTO session_kv (session_id, key, value) VALUES ($1, $2, $3)
		ON CONFLICT (session_id, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, sessionID, key, value)
	return err
}

// Delete removes the given keys in one transaction.
func (s *PostgresKV) Delete(sessionID string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	unlock := s.lockForSession(sessionID)
	defer unlock()

	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.Prepare(`DELETE FROM session_kv WHERE session_id=$1 AND key=$2`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, k := range keys {
		if _, err := stmt.Exec(sessionID, k); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
