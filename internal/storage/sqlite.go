package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"adwatch/internal/model"
	"adwatch/migrations"
)

const timeLayout = time.RFC3339Nano

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Load reads every seen ad into a ledger.
func (s *SQLite) Load(ctx context.Context) (model.Ledger, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT ad_id, first_seen_at FROM seen_ads`)
	if err != nil {
		return nil, &PersistError{Op: "query", Err: err}
	}
	defer func() { _ = rows.Close() }()

	l := model.NewLedger()
	for rows.Next() {
		var id, seen string
		if err := rows.Scan(&id, &seen); err != nil {
			return nil, &PersistError{Op: "scan", Err: err}
		}
		t, err := time.Parse(timeLayout, seen)
		if err != nil {
			return nil, &PersistError{Op: "decode", Err: fmt.Errorf("%w: ad %s: %v", ErrCorrupt, id, err)}
		}
		l[id] = t
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistError{Op: "query", Err: err}
	}
	return l, nil
}

// Save rewrites the seen_ads table with the contents of l in one transaction.
func (s *SQLite) Save(ctx context.Context, l model.Ledger) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &PersistError{Op: "begin", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM seen_ads`); err != nil {
		return &PersistError{Op: "clear", Err: err}
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO seen_ads (ad_id, first_seen_at) VALUES (?, ?)`)
	if err != nil {
		return &PersistError{Op: "prepare", Err: err}
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range l.Entries() {
		if _, err := stmt.ExecContext(ctx, e.ID, e.FirstSeenAt.UTC().Format(timeLayout)); err != nil {
			return &PersistError{Op: "insert", Err: fmt.Errorf("ad %s: %w", e.ID, err)}
		}
	}

	if err := tx.Commit(); err != nil {
		return &PersistError{Op: "commit", Err: err}
	}
	return nil
}
