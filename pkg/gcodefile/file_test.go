// G-code file loading tests
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package gcodefile

import (
	"os"
	"path/filepath"
	"testing"

	"gcode-toolpath/pkg/errors"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestOpen(t *testing.T) {
	content := "G1 X1 Y1 E1\nG1 X2 Y2 E2\n"
	path := writeFile(t, "part.gcode", content)

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	if string(f.Bytes()) != content {
		t.Errorf("Bytes() = %q, want %q", f.Bytes(), content)
	}
	if f.Size() != int64(len(content)) {
		t.Errorf("Size() = %d, want %d", f.Size(), len(content))
	}
	if f.Path() != path {
		t.Errorf("Path() = %q", f.Path())
	}
}

func TestOpenEmpty(t *testing.T) {
	f, err := Open(writeFile(t, "empty.gcode", ""))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if f.Size() != 0 || len(f.Bytes()) != 0 || f.Mapped() {
		t.Errorf("expected empty unmapped file, got size %d mapped %v", f.Size(), f.Mapped())
	}
	if err := f.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.gcode"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, errors.ErrFileLoad) {
		t.Errorf("expected ErrFileLoad, got %v", err)
	}
}

func TestOpenDirectory(t *testing.T) {
	_, err := Open(t.TempDir())
	if !errors.Is(err, errors.ErrFileLoad) {
		t.Errorf("expected ErrFileLoad, got %v", err)
	}
}

func TestCloseTwice(t *testing.T) {
	f, err := Open(writeFile(t, "part.gcode", "G28\n"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if f.Bytes() != nil || f.Size() != 0 {
		t.Error("expected contents released after Close")
	}
}
