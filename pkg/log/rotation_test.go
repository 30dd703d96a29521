// Log rotation tests
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package log

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRotatingFileWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "gcode.log")
	w, err := NewRotatingFileWriter(RotationConfig{Filename: path})
	if err != nil {
		t.Fatalf("NewRotatingFileWriter failed: %v", err)
	}
	defer w.Close()

	if _, err := w.Write([]byte("hello\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if w.CurrentSize() != 6 {
		t.Errorf("expected size 6, got %d", w.CurrentSize())
	}
	data, _ := os.ReadFile(path)
	if string(data) != "hello\n" {
		t.Errorf("unexpected file content %q", data)
	}
}

func TestRotatingFileWriterRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gcode.log")
	w, err := NewRotatingFileWriter(RotationConfig{Filename: path, MaxBackups: 2, maxBytes: 10})
	if err != nil {
		t.Fatalf("NewRotatingFileWriter failed: %v", err)
	}
	defer w.Close()

	for _, s := range []string{"first...\n", "second..\n", "third...\n", "fourth..\n"} {
		if _, err := w.Write([]byte(s)); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	check := func(name, want string) {
		t.Helper()
		data, err := os.ReadFile(name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if string(data) != want {
			t.Errorf("%s = %q, want %q", filepath.Base(name), data, want)
		}
	}
	check(path, "fourth..\n")
	check(path+".1", "third...\n")
	check(path+".2", "second..\n")
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Error("expected only two backups to be kept")
	}
}

func TestRotatingFileWriterCompress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gcode.log")
	w, err := NewRotatingFileWriter(RotationConfig{Filename: path, Compress: true, maxBytes: 8})
	if err != nil {
		t.Fatalf("NewRotatingFileWriter failed: %v", err)
	}
	defer w.Close()

	w.Write([]byte("old-data\n"))
	w.Write([]byte("new-data\n"))

	f, err := os.Open(path + ".1.gz")
	if err != nil {
		t.Fatalf("expected compressed backup: %v", err)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip.NewReader failed: %v", err)
	}
	data, _ := io.ReadAll(gz)
	if string(data) != "old-data\n" {
		t.Errorf("unexpected backup content %q", data)
	}
}

func TestRotationConfigEmptyFilename(t *testing.T) {
	if _, err := NewRotatingFileWriter(RotationConfig{}); err == nil {
		t.Error("expected error for empty filename")
	}
}

func TestNewFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gcode.log")
	logger, w, err := NewFileLogger("file", RotationConfig{Filename: path})
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	logger.Info("to file")
	w.Close()

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "file: to file") {
		t.Errorf("expected message in file, got %q", data)
	}
	if strings.Contains(string(data), "\x1b[") {
		t.Error("file output must not contain ANSI colors")
	}
}
