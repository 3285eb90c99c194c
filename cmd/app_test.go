package cmd

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Tiliavir/boat-time-tracker/internal/mirror"
	"github.com/Tiliavir/boat-time-tracker/internal/storage"
	"github.com/Tiliavir/boat-time-tracker/internal/tracker"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{tracker.ErrNoActiveEntry, 1},
		{fmt.Errorf("%w: Båt 1 since 08:00", tracker.ErrEntryActive), 1},
		{&tracker.MirrorError{Kind: mirror.KindDayFinalized, Err: errors.New("offline")}, 1},
		{mirror.ErrNotLoggedIn, 1},
		{fmt.Errorf("%w (/tmp/btt.lock)", storage.ErrLocked), 1},
		{errors.New("persisting entries: disk full"), 2},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestOpenAppSerializesWriters(t *testing.T) {
	t.Setenv("BTT_HOME", t.TempDir())

	first, err := openApp(context.Background(), true)
	if err != nil {
		t.Fatalf("openApp: %v", err)
	}
	if _, err := first.tr.StartEntry("Båt 1"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if _, err := openApp(ctx, true); !errors.Is(err, storage.ErrLocked) {
		t.Fatalf("second writer err = %v, want ErrLocked", err)
	}

	reader, err := openApp(ctx, false)
	if err != nil {
		t.Fatalf("reader blocked by writer: %v", err)
	}
	if _, ok := reader.tr.ActiveEntry(); !ok {
		t.Error("reader should see the entry started by the writer")
	}
	reader.close()

	first.close()
	second, err := openApp(context.Background(), true)
	if err != nil {
		t.Fatalf("openApp after release: %v", err)
	}
	if _, err := second.tr.StartEntry("Båt 2"); !errors.Is(err, tracker.ErrEntryActive) {
		t.Errorf("StartEntry err = %v, want ErrEntryActive", err)
	}
	second.close()
}
