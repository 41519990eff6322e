// Package sink implements the append-only text log that collected station data is written to.
package sink

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
)

// ErrClosed is returned by Write once the sink has been closed.
var ErrClosed = errors.New("sink closed")

// Config captures the parameters for the file sink.
type Config struct {
	// Path is the file records are appended to. It is created when missing.
	Path string `mapstructure:"path" yaml:"path"`
	// Sync forces an fsync after every record in addition to the write itself.
	Sync bool `mapstructure:"sync" yaml:"sync"`
}

// FileSink appends one line per record to a single file opened for the
// process lifetime. It is meant for a single writer.
type FileSink struct {
	file    *os.File
	path    string
	sync    bool
	written atomic.Int64
	closed  atomic.Bool
	logger  *zap.Logger
}

// Open opens (or creates) the file at cfg.Path in append mode.
func Open(cfg Config, logger *zap.Logger) (*FileSink, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("sink path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create sink dir %s: %w", dir, err)
		}
	}
	// #nosec G304 -- path comes from operator configuration.
	f, err := os.OpenFile(cfg.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open sink %s: %w", cfg.Path, err)
	}
	logger.Info("data sink opened", zap.String("path", cfg.Path), zap.Bool("sync", cfg.Sync))
	return &FileSink{
		file:   f,
		path:   cfg.Path,
		sync:   cfg.Sync,
		logger: logger,
	}, nil
}

// Write appends line followed by a newline. The record has reached the OS
// (and, with Sync, stable storage) by the time Write returns.
func (s *FileSink) Write(line string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if _, err := s.file.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("append record to %s: %w", s.path, err)
	}
	if s.sync {
		if err := s.file.Sync(); err != nil {
			return fmt.Errorf("sync %s: %w", s.path, err)
		}
	}
	s.written.Add(1)
	return nil
}

// Written reports how many records this sink has appended since Open.
func (s *FileSink) Written() int64 {
	return s.written.Load()
}

// Path returns the file the sink appends to.
func (s *FileSink) Path() string {
	return s.path
}

// Close closes the underlying file. Only the first call has any effect.
func (s *FileSink) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("close sink %s: %w", s.path, err)
	}
	s.logger.Info("data sink closed", zap.String("path", s.path), zap.Int64("records", s.written.Load()))
	return nil
}
