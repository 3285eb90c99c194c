package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const quarantineLayout = "20060102T150405"

// FileStore keeps one JSON file per key in a directory.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir. The directory is created on first write.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Put atomically writes value under key.
func (s *FileStore) Put(key string, value []byte) error {
	if err := validKey(key); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("storage error creating directories: %w", err)
	}

	// Atomic write: write to temp file then rename.
	path := s.path(key)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, value, 0o600); err != nil {
		return fmt.Errorf("storage error writing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("storage error renaming temp file: %w", err)
	}
	return nil
}

// Get reads the value stored under key.
func (s *FileStore) Get(key string) ([]byte, bool, error) {
	if err := validKey(key); err != nil {
		return nil, false, err
	}
	path := s.path(key)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("storage error reading %s: %w", path, err)
	}
	return data, true, nil
}

// Remove deletes key. Removing an absent key is not an error.
func (s *FileStore) Remove(key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	path := s.path(key)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage error removing %s: %w", path, err)
	}
	return nil
}

// Quarantine moves a value that failed to decode aside as
// <key>.json.corrupt-<timestamp> so the next start does not trip over it
// again. Earlier backups are never overwritten.
func (s *FileStore) Quarantine(key string) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}
	path := s.path(key)
	stamp := path + ".corrupt-" + time.Now().Format(quarantineLayout)
	backupPath := stamp
	for n := 1; ; n++ {
		if _, err := os.Lstat(backupPath); os.IsNotExist(err) {
			break
		}
		backupPath = fmt.Sprintf("%s-%d", stamp, n)
	}
	if err := os.Rename(path, backupPath); err != nil {
		return "", fmt.Errorf("storage error backing up %s: %w", path, err)
	}
	return backupPath, nil
}

func (s *FileStore) Close() error { return nil }
