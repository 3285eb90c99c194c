package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestInitWritesLogFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "home")
	l, err := Init(Config{Dir: dir})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if l != Logger {
		t.Error("Init should replace the package logger")
	}
	if l.GetLevel() != log.InfoLevel {
		t.Errorf("level = %v, want info", l.GetLevel())
	}

	With("test").Info("hello", "n", 1)

	data, err := os.ReadFile(filepath.Join(dir, "logs", FileName))
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "hello") || !strings.Contains(out, "component=test") {
		t.Errorf("log output %q missing message or component", out)
	}
}

func TestInitDebugLowersLevel(t *testing.T) {
	l, err := Init(Config{Debug: true, Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if l.GetLevel() != log.DebugLevel {
		t.Errorf("level = %v, want debug", l.GetLevel())
	}
}

func TestInitUnwritableDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(f, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Init(Config{Dir: f}); err == nil {
		t.Error("expected error when dir is a regular file")
	}
}
