package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Rotator implements io.Writer and handles log file rotation based on size.
type Rotator struct {
	Filename   string
	MaxSize    int64 // Bytes
	MaxBackups int
	file       *os.File
	size       int64
	mu         sync.Mutex
}

// Options configures Setup.
type Options struct {
	Level      string
	Format     string // "console" or "json"
	FilePath   string // empty disables the file sink
	MaxSizeMB  int64
	MaxBackups int
	// Console is where human-facing output goes. Defaults to stderr so stdout
	// stays free for the MCP stdio transport.
	Console io.Writer
}

// Setup builds the process logger, writing to the console and, when
// FilePath is set, to a rotating file as JSON. It also installs the result
// as zerolog's global logger.
func Setup(opts Options) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	var consoleWriter io.Writer = console
	if !strings.EqualFold(opts.Format, "json") {
		consoleWriter = zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339}
	}

	writers := []io.Writer{consoleWriter}
	if opts.FilePath != "" {
		rotator := NewRotator(opts.FilePath, opts.MaxSizeMB, opts.MaxBackups)
		if err := rotator.openExistingOrNew(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file, using console only: %v\n", err)
		} else {
			writers = append(writers, rotator)
		}
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()

	zerolog.SetGlobalLevel(level)
	log.Logger = logger
	return logger
}

// NewRotator returns a Rotator; the file is opened on first write.
func NewRotator(filename string, maxSizeMB int64, maxBackups int) *Rotator {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &Rotator{
		Filename:   filename,
		MaxSize:    maxSizeMB * 1024 * 1024,
		MaxBackups: maxBackups,
	}
}

func (r *Rotator) openExistingOrNew() error {
	if dir := filepath.Dir(r.Filename); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	info, err := os.Stat(r.Filename)
	if os.IsNotExist(err) {
		return r.openNew()
	}
	if err != nil {
		return err
	}

	// File exists, open it in append mode
	f, err := os.OpenFile(r.Filename, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	r.file = f
	r.size = info.Size()
	return nil
}

func (r *Rotator) openNew() error {
	f, err := os.OpenFile(r.Filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	r.file = f
	r.size = 0
	return nil
}

// Write satisfies the io.Writer interface. It checks size and rotates if needed.
func (r *Rotator) Write(p []byte) (n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		if err = r.openExistingOrNew(); err != nil {
			return 0, err
		}
	}

	if r.size > 0 && r.size+int64(len(p)) > r.MaxSize {
		if err := r.rotate(); err != nil {
			// Keep writing to whatever is open rather than drop the entry.
			fmt.Fprintf(os.Stderr, "Log rotation failed: %v\n", err)
		}
	}

	n, err = r.file.Write(p)
	r.size += int64(n)
	return n, err
}

// Close closes the current file.
func (r *Rotator) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// rotate closes the current file, shifts backups and opens a new file.
// With MaxBackups 0 the current file is simply truncated.
func (r *Rotator) rotate() error {
	if r.file != nil {
		r.file.Close()
		r.file = nil
	}

	if r.MaxBackups > 0 {
		// log.2 -> log.3, log.1 -> log.2, log -> log.1
		for i := r.MaxBackups - 1; i >= 1; i-- {
			oldPath := fmt.Sprintf("%s.%d", r.Filename, i)
			if _, err := os.Stat(oldPath); os.IsNotExist(err) {
				continue
			}
			if err := os.Rename(oldPath, fmt.Sprintf("%s.%d", r.Filename, i+1)); err != nil {
				return err
			}
		}
		if _, err := os.Stat(r.Filename); err == nil {
			if err := os.Rename(r.Filename, r.Filename+".1"); err != nil {
				return err
			}
		}
	}

	return r.openNew()
}
