// Unified error handling for the G-code toolpath interpreter
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents the category of error
type ErrorCode string

const (
	// Model access errors
	ErrIndexRange ErrorCode = "INDEX_RANGE"

	// Configuration errors
	ErrConfig ErrorCode = "CONFIG"

	// File errors
	ErrFileLoad ErrorCode = "FILE_LOAD"
	ErrFileMap  ErrorCode = "FILE_MAP"

	// Service errors
	ErrRPCParam  ErrorCode = "RPC_PARAM"
	ErrRPCMethod ErrorCode = "RPC_METHOD"
	ErrParseBusy ErrorCode = "PARSE_BUSY"
)

// HostError is the unified error type for the interpreter and its front ends
type HostError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// File is the G-code or config file involved (if available)
	File string

	// Line is the line number in File (if available)
	Line int

	// Err wraps the underlying error
	Err error

	// Context provides additional context
	Context map[string]interface{}
}

// Error implements the error interface
func (e *HostError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.File != "" {
		if e.Line > 0 {
			msg = fmt.Sprintf("%s (%s:%d)", msg, e.File, e.Line)
		} else {
			msg = fmt.Sprintf("%s (%s)", msg, e.File)
		}
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *HostError) Unwrap() error {
	return e.Err
}

// SetFile sets the source file
func (e *HostError) SetFile(file string) *HostError {
	e.File = file
	return e
}

// SetLine sets the line number
func (e *HostError) SetLine(line int) *HostError {
	e.Line = line
	return e
}

// SetContext adds additional context
func (e *HostError) SetContext(key string, value interface{}) *HostError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Wrap wraps an existing error with additional context
func Wrap(err error, code ErrorCode, message string) *HostError {
	return &HostError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// New creates a new HostError
func New(code ErrorCode, message string) *HostError {
	return &HostError{
		Code:    code,
		Message: message,
	}
}

// Is reports whether err, or any error it wraps, is a HostError with the given code.
func Is(err error, code ErrorCode) bool {
	var he *HostError
	if stderrors.As(err, &he) {
		return he.Code == code
	}
	return false
}

// Model errors

// IndexOutOfRange creates an error for an index outside a model collection
func IndexOutOfRange(collection string, index, count int) *HostError {
	return New(ErrIndexRange, fmt.Sprintf("%s index out of range: %d (count %d)", collection, index, count)).
		SetContext("collection", collection).
		SetContext("index", index).
		SetContext("count", count)
}

// IsIndexOutOfRange reports whether err is an index-out-of-range error
func IsIndexOutOfRange(err error) bool {
	return Is(err, ErrIndexRange)
}

// Config errors

// ConfigError creates an error for a settings file that could not be applied
func ConfigError(path string, err error) *HostError {
	return Wrap(err, ErrConfig, "invalid settings").SetFile(path)
}

// File errors

// FileLoadError creates an error for a G-code file that could not be read
func FileLoadError(path string, err error) *HostError {
	return Wrap(err, ErrFileLoad, "failed to load G-code file").SetFile(path)
}

// FileMapError creates an error for a G-code file that could not be memory-mapped
func FileMapError(path string, err error) *HostError {
	return Wrap(err, ErrFileMap, "failed to map G-code file").SetFile(path)
}

// Service errors

// RPCParamError creates an error for a missing or invalid request parameter
func RPCParamError(method, param, reason string) *HostError {
	return New(ErrRPCParam, fmt.Sprintf("method '%s': parameter '%s' %s", method, param, reason)).
		SetContext("method", method).
		SetContext("param", param)
}

// RPCMethodError creates an error for an unknown request method
func RPCMethodError(method string) *HostError {
	return New(ErrRPCMethod, fmt.Sprintf("method not found: %s", method))
}

// ParseBusyError creates an error for a parse requested while another is running
func ParseBusyError() *HostError {
	return New(ErrParseBusy, "a parse is already in progress")
}
