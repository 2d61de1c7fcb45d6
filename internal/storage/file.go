package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"adwatch/internal/model"
)

// File implements Storage as a JSON object mapping ad IDs to RFC 3339 timestamps.
type File struct {
	path string
}

// NewFile returns a File storage backed by path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Load reads the ledger file. A missing file yields an empty ledger.
func (f *File) Load(_ context.Context) (model.Ledger, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return model.NewLedger(), nil
	}
	if err != nil {
		return nil, &PersistError{Op: "read", Err: err}
	}

	l := model.NewLedger()
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, &PersistError{Op: "decode", Err: fmt.Errorf("%w: %v", ErrCorrupt, err)}
	}
	return l, nil
}

// Save writes the ledger to a temporary file in the same directory and
// renames it over the previous one.
func (f *File) Save(_ context.Context, l model.Ledger) error {
	data, err := json.Marshal(l)
	if err != nil {
		return &PersistError{Op: "encode", Err: err}
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return &PersistError{Op: "create temp", Err: err}
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return &PersistError{Op: "write", Err: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return &PersistError{Op: "sync", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &PersistError{Op: "close", Err: err}
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return &PersistError{Op: "rename", Err: err}
	}
	return nil
}

// Close is a no-op; the file is only open during Load and Save.
func (f *File) Close() error {
	return nil
}
