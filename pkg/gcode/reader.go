// G-code line tokenizer
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package gcode tokenizes G-code programs.
//
// A Reader walks a byte buffer one line at a time. Each line is stripped of
// its trailing comment and split into a command word ("G1", "M104", "T0")
// and single-letter arguments ("X10", "E0.5"). Parsing never fails: lines
// that cannot be understood come back as empty or unknown commands.
package gcode

import (
	"bytes"
	"strconv"
	"strings"
)

// DefaultComment starts a comment that runs to the end of the line.
const DefaultComment = ';'

// Type classifies a command word by its leading letter.
type Type int

const (
	Empty Type = iota
	G
	M
	T
	Unknown
)

func (t Type) String() string {
	switch t {
	case Empty:
		return "empty"
	case G:
		return "move"
	case M:
		return "setting"
	case T:
		return "tool"
	default:
		return "unknown"
	}
}

// Reader is a restartable line tokenizer over a byte buffer.
// It is not safe for concurrent use.
type Reader struct {
	data    []byte
	pos     int
	num     int
	comment byte

	line   string
	cmd    string
	values map[byte]Value
}

// NewReader returns a Reader positioned at the start of data.
func NewReader(data []byte) *Reader {
	r := &Reader{comment: DefaultComment}
	r.SetData(data)
	return r
}

// Data returns the buffer being read.
func (r *Reader) Data() []byte { return r.data }

// SetData replaces the buffer and rewinds to its start.
func (r *Reader) SetData(data []byte) {
	r.data = data
	r.pos = 0
	r.num = 0
	r.line = ""
	r.cmd = ""
	r.values = make(map[byte]Value)
}

// SetComment changes the comment character. It applies to lines read afterwards.
func (r *Reader) SetComment(c byte) { r.comment = c }

// Num returns how many lines have been read.
func (r *Reader) Num() int { return r.num }

// Pos returns the byte offset of the next unread line.
func (r *Reader) Pos() int64 { return int64(r.pos) }

// Size returns the buffer length in bytes.
func (r *Reader) Size() int64 { return int64(len(r.data)) }

// Next reads the next line. It returns false once the buffer is exhausted.
func (r *Reader) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}

	rest := r.data[r.pos:]
	raw := rest
	if i := bytes.IndexByte(rest, '\n'); i >= 0 {
		raw = rest[:i+1]
	}
	r.pos += len(raw)

	if i := bytes.IndexByte(raw, r.comment); i >= 0 {
		raw = raw[:i]
	}
	r.line = string(bytes.TrimSpace(raw))
	r.parseLine()
	r.num++
	return true
}

// parseLine splits the current line on single spaces. The first field is the
// command word; every other non-empty field is a key letter and its value.
// A repeated key keeps the last value.
func (r *Reader) parseLine() {
	r.values = make(map[byte]Value)
	fields := strings.Split(r.line, " ")
	r.cmd = strings.ToUpper(fields[0])

	for _, field := range fields[1:] {
		if field == "" {
			continue
		}
		key := upper(field[0])
		r.values[key] = ParseValue(field[1:])
	}
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}

// Line returns the current line without its comment and surrounding whitespace.
func (r *Reader) Line() string { return r.line }

// Command returns the upper-cased command word of the current line.
func (r *Reader) Command() string { return r.cmd }

// Type classifies the current command.
func (r *Reader) Type() Type {
	if r.cmd == "" {
		return Empty
	}
	switch r.cmd[0] {
	case 'G':
		return G
	case 'M':
		return M
	case 'T':
		return T
	default:
		return Unknown
	}
}

func (r *Reader) IsEmpty() bool { return r.line == "" }
func (r *Reader) IsG() bool     { return r.Type() == G }
func (r *Reader) IsM() bool     { return r.Type() == M }
func (r *Reader) IsT() bool     { return r.Type() == T }

// Code returns the number after the command letter, or 0 if it is not an integer.
func (r *Reader) Code() int {
	if len(r.cmd) < 2 {
		return 0
	}
	code, err := strconv.Atoi(r.cmd[1:])
	if err != nil {
		return 0
	}
	return code
}

// HasValue reports whether the current line carries an argument for key.
// Keys are case-insensitive.
func (r *Reader) HasValue(key byte) bool {
	_, ok := r.values[upper(key)]
	return ok
}

// Value returns the argument for key.
func (r *Reader) Value(key byte) (Value, bool) {
	v, ok := r.values[upper(key)]
	return v, ok
}

// ValueOr returns the argument for key, or def when the line has none.
func (r *Reader) ValueOr(key byte, def Value) Value {
	if v, ok := r.values[upper(key)]; ok {
		return v
	}
	return def
}

// Values returns a copy of the current line's arguments.
func (r *Reader) Values() map[byte]Value {
	out := make(map[byte]Value, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}
