// G-code file loading
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package gcodefile opens G-code programs for parsing. On Linux and macOS
// the file is memory-mapped read-only so large programs are paged in as the
// tokenizer walks them; elsewhere it is read into memory.
package gcodefile

import (
	"os"
	"sync"

	"gcode-toolpath/pkg/errors"
	"gcode-toolpath/pkg/log"
)

// File is an open G-code program. Bytes stays valid until Close.
type File struct {
	path   string
	data   []byte
	mapped bool

	closeOnce sync.Once
	closeErr  error
}

// Open loads the program at path.
func Open(path string) (*File, error) {
	logger := log.GetLogger("gcodefile")

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.FileLoadError(path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.FileLoadError(path, err)
	}
	if info.IsDir() {
		return nil, errors.New(errors.ErrFileLoad, "path is a directory").SetFile(path)
	}

	file := &File{path: path}
	if info.Size() == 0 {
		return file, nil
	}

	data, err := mapFile(f, info.Size())
	if err == nil {
		file.data = data
		file.mapped = true
		logger.Debug("mapped %s (%d bytes)", path, len(data))
		return file, nil
	}
	if err != errMapUnsupported {
		logger.WithError(errors.FileMapError(path, err)).Warn("falling back to reading file")
	}

	data, err = readFile(f, info.Size())
	if err != nil {
		return nil, errors.FileLoadError(path, err)
	}
	file.data = data
	return file, nil
}

// Path returns the path the file was opened from.
func (f *File) Path() string { return f.path }

// Bytes returns the file contents. The slice must not be modified.
func (f *File) Bytes() []byte { return f.data }

// Size returns the file length in bytes.
func (f *File) Size() int64 { return int64(len(f.data)) }

// Mapped reports whether the contents are memory-mapped.
func (f *File) Mapped() bool { return f.mapped }

// Close releases the contents. It is safe to call more than once.
func (f *File) Close() error {
	f.closeOnce.Do(func() {
		if f.mapped {
			if err := unmapFile(f.data); err != nil {
				f.closeErr = errors.FileMapError(f.path, err)
			}
		}
		f.data = nil
		f.mapped = false
	})
	return f.closeErr
}

func readFile(f *os.File, size int64) ([]byte, error) {
	data := make([]byte, size)
	n, err := f.ReadAt(data, 0)
	if err != nil && n < len(data) {
		return nil, err
	}
	return data[:n], nil
}
