// Package journal keeps the append-only event log of applied account
// events, on the pure-Go SQLite driver so the journal file stays portable
// across builds without cgo.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"posbook/internal/account"

	_ "modernc.org/sqlite"
)

// Store is an append-only journal of account events.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

var _ account.Journal = (*Store)(nil)

// Entry is one journaled event, as read back by Tail.
type Entry struct {
	ID        int64     `json:"id"`
	EventID   string    `json:"event_id"`
	AccountID string    `json:"account_id"`
	Type      string    `json:"type"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("journal: path must not be empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open failed: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: migrate failed: %w", err)
	}
	return &Store{db: db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS event_journal (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_id TEXT NOT NULL,
	account_id TEXT NOT NULL,
	type TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_event_journal_account ON event_journal(account_id, id);
`

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append writes one applied event. Called from the actor loop before the
// event is handled, so the journal orders events exactly as applied.
func (s *Store) Append(rec account.JournalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO event_journal (event_id, account_id, type, payload, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.EventID, rec.AccountID, rec.Type, string(rec.Payload), rec.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("journal: append failed: %w", err)
	}
	return nil
}

// Tail returns up to limit most recent entries for an account, newest first.
func (s *Store) Tail(accountID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(
		`SELECT id, event_id, account_id, type, payload, created_at
		 FROM event_journal WHERE account_id = ? ORDER BY id DESC LIMIT ?`,
		accountID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("journal: tail query failed: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.EventID, &e.AccountID, &e.Type, &e.Payload, &createdAt); err != nil {
			return nil, fmt.Errorf("journal: scan failed: %w", err)
		}
		e.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, e)
	}
	return out, rows.Err()
}
