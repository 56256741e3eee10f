// Package logging wraps charmbracelet/log into the bridge daemon's
// structured logger, with optional daily log-file rotation. Daily
// rotation derives the file name from the current UTC date using
// github.com/lestrrat-go/strftime rather than a hand-rolled
// time.Format call, and reopens the file whenever that name changes.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"
)

// Options configures New.
type Options struct {
	Level string // "debug", "info", "warn", "error"

	// Dir, when non-empty, enables daily-rotating file logging in
	// addition to stderr, using Pattern (strftime) to name each day's
	// file within Dir.
	Dir     string
	Pattern string // defaults to "ble-midi-bridge-%Y-%m-%d.log"
}

// rotatingWriter re-opens its underlying file whenever the formatted
// name for the current time changes, mirroring log_write's "close
// current file if name has changed" check.
type rotatingWriter struct {
	mu      sync.Mutex
	dir     string
	pattern *strftime.Strftime
	name    string
	file    *os.File
}

func newRotatingWriter(dir, pattern string) (*rotatingWriter, error) {
	f, err := strftime.New(pattern)
	if err != nil {
		return nil, fmt.Errorf("logging: bad rotation pattern %q: %w", pattern, err)
	}
	return &rotatingWriter{dir: dir, pattern: f}, nil
}

func (w *rotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	name := w.pattern.FormatString(time.Now().UTC())
	if name != w.name || w.file == nil {
		if w.file != nil {
			w.file.Close()
		}
		f, err := os.OpenFile(w.dir+string(os.PathSeparator)+name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return 0, err
		}
		w.file = f
		w.name = name
	}

	return w.file.Write(p)
}

func (w *rotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	return w.file.Close()
}

// New builds a charmbracelet/log.Logger per opts. When opts.Dir is set,
// log lines are written to both stderr and the rotating file.
func New(opts Options) (*log.Logger, error) {
	level, err := log.ParseLevel(opts.Level)
	if err != nil {
		level = log.InfoLevel
	}

	var logger *log.Logger
	if opts.Dir != "" {
		pattern := opts.Pattern
		if pattern == "" {
			pattern = "ble-midi-bridge-%Y-%m-%d.log"
		}
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("logging: create log dir %s: %w", opts.Dir, err)
		}
		rw, err := newRotatingWriter(opts.Dir, pattern)
		if err != nil {
			return nil, err
		}
		logger = log.New(io.MultiWriter(os.Stderr, rw))
	} else {
		logger = log.New(os.Stderr)
	}

	logger.SetLevel(level)
	logger.SetReportTimestamp(true)
	return logger, nil
}
