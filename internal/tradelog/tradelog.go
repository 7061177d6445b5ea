// Package tradelog persists actionable signals to SQLite.
//
// One row per logged trade idea, append-only. The database runs in WAL
// mode with a single writer connection, which is plenty for a scan that
// logs a handful of rows per pass.
package tradelog

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"trade-assistant/internal/model"
)

// Store is the SQLite-backed trade log.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the trade log database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("tradelog open: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("tradelog schema: %w", err)
	}

	log.Printf("[tradelog] opened database at %s", path)
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS trade_log (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			ts          INTEGER NOT NULL,
			symbol      TEXT    NOT NULL,
			signal      TEXT    NOT NULL,
			entry_price REAL    NOT NULL,
			target      REAL    NOT NULL,
			stop_loss   REAL    NOT NULL,
			live_price  REAL    NOT NULL,
			status      TEXT    NOT NULL,
			notes       TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_trade_log_symbol_ts ON trade_log (symbol, ts);
	`)
	return err
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// Append writes one trade log entry.
func (s *Store) Append(ctx context.Context, e model.TradeLogEntry) error {
	if e.Status == "" {
		e.Status = model.TradeStatusOpen
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trade_log (ts, symbol, signal, entry_price, target, stop_loss, live_price, status, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.Timestamp.Unix(), e.Symbol, string(e.Signal), e.EntryPrice, e.Target, e.StopLoss, e.LivePrice, e.Status, e.Notes)
	if err != nil {
		return fmt.Errorf("tradelog append: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]model.TradeLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, symbol, signal, entry_price, target, stop_loss, live_price, status, notes
		FROM trade_log
		ORDER BY ts DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("tradelog query: %w", err)
	}
	defer rows.Close()

	var entries []model.TradeLogEntry
	for rows.Next() {
		var e model.TradeLogEntry
		var tsUnix int64
		var sig string
		if err := rows.Scan(&tsUnix, &e.Symbol, &sig, &e.EntryPrice, &e.Target, &e.StopLoss, &e.LivePrice, &e.Status, &e.Notes); err != nil {
			return nil, fmt.Errorf("tradelog scan: %w", err)
		}
		e.Timestamp = time.Unix(tsUnix, 0).UTC()
		e.Signal = model.Signal(sig)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountSince returns the number of entries at or after ts. Used by the
// end-of-day summary.
func (s *Store) CountSince(ctx context.Context, ts time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM trade_log WHERE ts >= ?`, ts.Unix(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("tradelog count: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
