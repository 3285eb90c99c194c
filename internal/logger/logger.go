// Package logger sets up the rotating log file shared by all btt commands.
package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileName is the log file inside <dir>/logs.
const FileName = "btt.log"

// Config controls where and how verbosely btt logs.
type Config struct {
	Debug bool
	Dir   string
}

// Logger is the process logger. It discards output until Init is called.
var Logger = log.New(io.Discard)

// Init points Logger at a rotating file under cfg.Dir/logs. Debug mode also
// writes to stderr and lowers the level to debug.
func Init(cfg Config) (*log.Logger, error) {
	dir := filepath.Join(cfg.Dir, "logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	var w io.Writer = &lumberjack.Logger{
		Filename:   filepath.Join(dir, FileName),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	level := log.InfoLevel
	if cfg.Debug {
		w = io.MultiWriter(os.Stderr, w)
		level = log.DebugLevel
	}

	Logger = log.NewWithOptions(w, log.Options{
		ReportCaller:    cfg.Debug,
		ReportTimestamp: true,
		Level:           level,
		Prefix:          "btt",
	})
	return Logger, nil
}

// With returns a child of Logger tagged with a component name.
func With(component string) *log.Logger {
	return Logger.With("component", component)
}
