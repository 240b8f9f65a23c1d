package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// ─────────────────────────────────────────────────────────────────────────────
// RotateConfig
// ─────────────────────────────────────────────────────────────────────────────

// RotateConfig controls size-based rotation of the export file.
type RotateConfig struct {
	// FilePath is the active file name (required).
	FilePath string

	// MaxBytes triggers rotation before a write would grow the active file
	// past this size. Zero disables rotation.
	MaxBytes int64

	// MaxBackups is the number of rotated files kept as FilePath.1 …
	// FilePath.N. Zero keeps every rotated file.
	MaxBackups int
}

// ─────────────────────────────────────────────────────────────────────────────
// RotatingFile
// ─────────────────────────────────────────────────────────────────────────────

// RotatingFile is an io.WriteCloser that performs size-based rotation:
//
//	snapshots.json   → snapshots.json.1
//	snapshots.json.1 → snapshots.json.2
//	…
//	snapshots.json.N → removed when N > MaxBackups
//
// It is safe for concurrent use.
type RotatingFile struct {
	mu     sync.Mutex
	cfg    RotateConfig
	file   *os.File
	size   int64
	logger *zap.Logger
}

// NewRotatingFile opens (or creates) cfg.FilePath for appending, creating
// parent directories as needed. The caller must call Close when finished.
func NewRotatingFile(cfg RotateConfig, logger *zap.Logger) (*RotatingFile, error) {
	if cfg.FilePath == "" {
		return nil, fmt.Errorf("transport/file: rotate: FilePath is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	dir := filepath.Dir(cfg.FilePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("transport/file: rotate: mkdir %s: %w", dir, err)
	}

	rf := &RotatingFile{cfg: cfg, logger: logger}
	if err := rf.open(); err != nil {
		return nil, err
	}
	return rf, nil
}

// Write implements io.Writer. A single write is never split across files.
func (rf *RotatingFile) Write(p []byte) (int, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.file == nil {
		return 0, os.ErrClosed
	}
	if rf.cfg.MaxBytes > 0 && rf.size > 0 && rf.size+int64(len(p)) > rf.cfg.MaxBytes {
		if err := rf.rotate(); err != nil {
			// Keep writing to whatever is open rather than dropping the record.
			rf.logger.Error("transport/file: rotate failed", zap.Error(err))
			if rf.file == nil {
				return 0, err
			}
		}
	}

	n, err := rf.file.Write(p)
	rf.size += int64(n)
	return n, err
}

// Close closes the active file. Further writes fail with os.ErrClosed.
func (rf *RotatingFile) Close() error {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.file == nil {
		return nil
	}
	err := rf.file.Close()
	rf.file = nil
	return err
}

// ─────────────────────────────────────────────────────────────────────────────
// Internal helpers
// ─────────────────────────────────────────────────────────────────────────────

func (rf *RotatingFile) open() error {
	f, err := os.OpenFile(rf.cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("transport/file: rotate: open %s: %w", rf.cfg.FilePath, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("transport/file: rotate: stat %s: %w", rf.cfg.FilePath, err)
	}
	rf.file = f
	rf.size = info.Size()
	return nil
}

func (rf *RotatingFile) rotate() error {
	if err := rf.file.Close(); err != nil {
		rf.logger.Warn("transport/file: rotate: close error", zap.Error(err))
	}
	rf.file = nil

	base := rf.cfg.FilePath
	top := rf.cfg.MaxBackups
	if top == 0 {
		top = highestBackup(base)
	}
	// Shift every backup up by one; anything past MaxBackups is pruned below.
	for i := top; i >= 1; i-- {
		_ = os.Rename(backupName(base, i), backupName(base, i+1))
	}
	if err := os.Rename(base, backupName(base, 1)); err != nil && !os.IsNotExist(err) {
		rf.logger.Warn("transport/file: rotate: rename error", zap.Error(err))
	}
	if rf.cfg.MaxBackups > 0 {
		for i := rf.cfg.MaxBackups + 1; ; i++ {
			if err := os.Remove(backupName(base, i)); err != nil {
				break
			}
			rf.logger.Debug("transport/file: pruned backup", zap.String("file", backupName(base, i)))
		}
	}

	rf.logger.Info("transport/file: rotated", zap.String("file", base))
	return rf.open()
}

func backupName(base string, n int) string {
	return fmt.Sprintf("%s.%d", base, n)
}

func highestBackup(base string) int {
	n := 0
	for {
		if _, err := os.Stat(backupName(base, n+1)); err != nil {
			return n
		}
		n++
	}
}
