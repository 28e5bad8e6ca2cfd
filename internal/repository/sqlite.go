// Package repository persists the exchange ledger in SQLite.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kaiyuanwei/chatgate/internal/domain"
)

// Ledger records completed chat exchanges. It is an observability aid: writes
// are best effort and callers must not fail a request on a ledger error.
type Ledger struct {
	db *sql.DB
}

// NewLedger opens (and migrates) the ledger database.
func NewLedger(dsn string) (*Ledger, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid the schema disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	l := &Ledger{db: db}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return l, nil
}

func (l *Ledger) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS exchanges (
			exchange_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			request_id TEXT,
			source TEXT NOT NULL,
			tokens_used INTEGER NOT NULL DEFAULT 0,
			latency_ms INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_exchanges_session ON exchanges(session_id, created_at)`,
	}
	for _, m := range migrations {
		if _, err := l.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// RecordExchange inserts one exchange row.
func (l *Ledger) RecordExchange(ctx context.Context, ex *domain.Exchange) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO exchanges (exchange_id, session_id, request_id, source, tokens_used, latency_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ex.ExchangeID, ex.SessionID, ex.RequestID, string(ex.Source), ex.TokensUsed, ex.LatencyMs, ex.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert exchange: %w", err)
	}
	return nil
}

// ListExchanges returns up to limit exchanges for the session, newest first.
func (l *Ledger) ListExchanges(ctx context.Context, sessionID string, limit int) ([]domain.Exchange, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT exchange_id, session_id, request_id, source, tokens_used, latency_ms, created_at
		 FROM exchanges WHERE session_id = ? ORDER BY created_at DESC LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query exchanges: %w", err)
	}
	defer rows.Close()

	exchanges := make([]domain.Exchange, 0, limit)
	for rows.Next() {
		var ex domain.Exchange
		var source string
		var createdAt time.Time
		if err := rows.Scan(&ex.ExchangeID, &ex.SessionID, &ex.RequestID, &source, &ex.TokensUsed, &ex.LatencyMs, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan exchange: %w", err)
		}
		ex.Source = domain.CompletionSource(source)
		ex.CreatedAt = createdAt
		exchanges = append(exchanges, ex)
	}
	return exchanges, rows.Err()
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}
