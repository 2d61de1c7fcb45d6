// Package storage persists the seen-ads ledger.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"adwatch/internal/model"
)

// ErrCorrupt marks a ledger store whose contents could not be decoded.
var ErrCorrupt = errors.New("ledger is corrupt")

// Storage loads and saves the full ledger.
type Storage interface {
	// Load returns the persisted ledger, or an empty one if nothing was saved yet.
	Load(ctx context.Context) (model.Ledger, error)
	// Save atomically replaces the persisted ledger with l.
	Save(ctx context.Context, l model.Ledger) error
	Close() error
}

// PersistError reports a failed ledger read or write.
type PersistError struct {
	Op  string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("ledger %s: %v", e.Op, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// Open returns the storage backend matching path: SQLite for .db and .sqlite
// files, a JSON file otherwise.
func Open(ctx context.Context, path string) (Storage, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return NewSQLite(ctx, path)
	default:
		return NewFile(path), nil
	}
}

// LoadLedger loads the ledger from s. A corrupt store is logged and an empty
// ledger is returned instead. Any other failure, such as a permission error,
// is returned so the caller does not overwrite history it could not read.
func LoadLedger(ctx context.Context, s Storage, log *slog.Logger) (model.Ledger, error) {
	l, err := s.Load(ctx)
	if errors.Is(err, ErrCorrupt) {
		log.Error("load ledger, starting empty", "error", err)
		return model.NewLedger(), nil
	}
	if err != nil {
		return nil, err
	}
	if l == nil {
		return model.NewLedger(), nil
	}
	return l, nil
}
