package storage_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Tiliavir/boat-time-tracker/internal/storage"
)

func TestLockExcludesSecondHolder(t *testing.T) {
	path := storage.LockPath(filepath.Join(t.TempDir(), "home"))

	first, err := storage.AcquireLock(context.Background(), path)
	if err != nil {
		t.Fatalf("first AcquireLock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if _, err := storage.AcquireLock(ctx, path); !errors.Is(err, storage.ErrLocked) {
		t.Fatalf("second AcquireLock err = %v, want ErrLocked", err)
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}

	again, err := storage.AcquireLock(context.Background(), path)
	if err != nil {
		t.Fatalf("AcquireLock after release: %v", err)
	}
	again.Release()
}

func TestLockWaitsForRelease(t *testing.T) {
	path := storage.LockPath(t.TempDir())
	first, err := storage.AcquireLock(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	go func() {
		time.Sleep(100 * time.Millisecond)
		first.Release()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	second, err := storage.AcquireLock(ctx, path)
	if err != nil {
		t.Fatalf("AcquireLock while waiting: %v", err)
	}
	second.Release()
}
