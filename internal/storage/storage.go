package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Logical keys owned by the tracker.
const (
	KeyEntries      = "entries"
	KeyCurrentEntry = "currentEntry"
	KeyDaySession   = "daySession"
)

// ErrInvalidKey is returned for keys that are empty or contain path separators.
var ErrInvalidKey = errors.New("invalid storage key")

// Store is a synchronous key-value store for serialized state snapshots.
// Get reports ok == false when the key is absent.
type Store interface {
	Put(key string, value []byte) error
	Get(key string) (value []byte, ok bool, err error)
	Remove(key string) error
	Close() error
}

// BaseDir returns the root data directory: $BTT_HOME if set, else ~/.btt.
func BaseDir() (string, error) {
	if dir := os.Getenv("BTT_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".btt"), nil
}

// Open returns the store for the named backend ("file" or "sqlite").
// An empty path selects the default location under base.
func Open(backend, base, path string) (Store, error) {
	switch backend {
	case "", "file":
		if path == "" {
			path = filepath.Join(base, "state")
		}
		return NewFileStore(path), nil
	case "sqlite":
		if path == "" {
			path = filepath.Join(base, "state.db")
		}
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q (want file or sqlite)", backend)
	}
}

func validKey(key string) error {
	if key == "" || key == "." || key == ".." || filepath.Base(key) != key {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
