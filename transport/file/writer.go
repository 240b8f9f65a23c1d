// Package file writes exported snapshots as newline-delimited JSON.
//
// Pipeline position:
//
//	format/json → transport/file
//
// LineWriter appends one record per line to any io.Writer; RotatingFile is
// the size-rotated file it usually writes to; Exporter drains poll results
// from the worker pool into both.
package file

import (
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sink interface
// ─────────────────────────────────────────────────────────────────────────────

// Sink delivers one pre-formatted record. Close flushes and releases
// resources.
type Sink interface {
	Send(data []byte) error
	Close() error
}

// ─────────────────────────────────────────────────────────────────────────────
// Config
// ─────────────────────────────────────────────────────────────────────────────

// Config controls LineWriter behaviour.
type Config struct {
	// Writer is the destination. nil defaults to os.Stdout.
	Writer io.Writer

	// Newline appended after each record. Default "\n".
	Newline string

	// OwnsWriter makes Close close Writer when it implements io.Closer.
	OwnsWriter bool
}

// ─────────────────────────────────────────────────────────────────────────────
// LineWriter
// ─────────────────────────────────────────────────────────────────────────────

// LineWriter implements Sink. Each record and its newline go out in a single
// Write so that concurrent senders never interleave. It is safe for
// concurrent use.
type LineWriter struct {
	mu     sync.Mutex
	w      io.Writer
	nl     string
	owns   bool
	logger *zap.Logger
}

// New constructs a LineWriter. A nil logger is replaced by a no-op one.
func New(cfg Config, logger *zap.Logger) *LineWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := cfg.Writer
	if w == nil {
		w = os.Stdout
	}
	nl := cfg.Newline
	if nl == "" {
		nl = "\n"
	}
	return &LineWriter{w: w, nl: nl, owns: cfg.OwnsWriter, logger: logger}
}

// Send writes data followed by the configured newline.
func (t *LineWriter) Send(data []byte) error {
	line := make([]byte, 0, len(data)+len(t.nl))
	line = append(line, data...)
	line = append(line, t.nl...)

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.w.Write(line); err != nil {
		t.logger.Error("transport/file: write failed", zap.Int("bytes", len(line)), zap.Error(err))
		return fmt.Errorf("transport/file: write: %w", err)
	}
	t.logger.Debug("transport/file: wrote record", zap.Int("bytes", len(data)))
	return nil
}

// Close closes the destination when the LineWriter owns it.
func (t *LineWriter) Close() error {
	if !t.owns {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
