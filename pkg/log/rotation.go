// Log file rotation
//
// Size-based rotation with numbered backups: name.log, name.log.1, name.log.2, ...
// Backup 1 is always the most recent. Rotated files may be gzip compressed.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package log

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// RotatingFileWriter implements io.Writer with automatic file rotation.
type RotatingFileWriter struct {
	mu          sync.Mutex
	filename    string
	maxSize     int64
	maxBackups  int
	compress    bool
	currentSize int64
	file        *os.File
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	// Filename is the path to the log file.
	Filename string

	// MaxSize is the maximum size in megabytes before rotation. Default 10.
	MaxSize int

	// MaxBackups is the number of rotated files to keep. Default 3.
	MaxBackups int

	// Compress gzips rotated files.
	Compress bool

	// maxBytes overrides MaxSize; tests use it to rotate without writing megabytes.
	maxBytes int64
}

// NewRotatingFileWriter opens (or creates) the log file for appending.
func NewRotatingFileWriter(config RotationConfig) (*RotatingFileWriter, error) {
	if config.Filename == "" {
		return nil, fmt.Errorf("log rotation: filename is required")
	}

	maxSize := int64(config.MaxSize) * 1024 * 1024
	if config.MaxSize <= 0 {
		maxSize = 10 * 1024 * 1024
	}
	if config.maxBytes > 0 {
		maxSize = config.maxBytes
	}
	maxBackups := config.MaxBackups
	if maxBackups <= 0 {
		maxBackups = 3
	}

	w := &RotatingFileWriter{
		filename:   config.Filename,
		maxSize:    maxSize,
		maxBackups: maxBackups,
		compress:   config.Compress,
	}
	if err := w.openFile(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *RotatingFileWriter) openFile() error {
	if err := os.MkdirAll(filepath.Dir(w.filename), 0755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(w.filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	w.file = f
	w.currentSize = info.Size()
	return nil
}

// Write implements io.Writer. A write that would exceed the size limit
// rotates first, unless the current file is still empty.
func (w *RotatingFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.currentSize > 0 && w.currentSize+int64(len(p)) > w.maxSize {
		if err := w.rotate(); err != nil {
			return 0, fmt.Errorf("rotate log file: %w", err)
		}
	}
	n, err := w.file.Write(p)
	w.currentSize += int64(n)
	return n, err
}

// backupName returns the path of backup n, with the .gz suffix when compressing.
func (w *RotatingFileWriter) backupName(n int) string {
	name := fmt.Sprintf("%s.%d", w.filename, n)
	if w.compress {
		name += ".gz"
	}
	return name
}

func (w *RotatingFileWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close current file: %w", err)
	}

	os.Remove(w.backupName(w.maxBackups))
	for n := w.maxBackups - 1; n >= 1; n-- {
		if _, err := os.Stat(w.backupName(n)); err == nil {
			os.Rename(w.backupName(n), w.backupName(n+1))
		}
	}

	if w.compress {
		if err := gzipFile(w.filename, w.backupName(1)); err != nil {
			w.openFile()
			return err
		}
		os.Remove(w.filename)
	} else if err := os.Rename(w.filename, w.backupName(1)); err != nil {
		w.openFile()
		return fmt.Errorf("rename log file: %w", err)
	}

	return w.openFile()
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	gz := gzip.NewWriter(out)
	if _, err := io.Copy(gz, in); err != nil {
		gz.Close()
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("compress log file: %w", err)
	}
	if err := gz.Close(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Close closes the current log file.
func (w *RotatingFileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file != nil {
		return w.file.Close()
	}
	return nil
}

// CurrentSize returns the size of the active log file.
func (w *RotatingFileWriter) CurrentSize() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.currentSize
}

// NewFileLogger creates an uncolored logger that writes to a rotating file.
func NewFileLogger(prefix string, config RotationConfig) (*Logger, *RotatingFileWriter, error) {
	writer, err := NewRotatingFileWriter(config)
	if err != nil {
		return nil, nil, err
	}
	logger := New(prefix)
	logger.SetWriter(writer)
	logger.SetColorize(false)
	return logger, writer, nil
}
