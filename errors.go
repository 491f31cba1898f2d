package vkreplay

import (
	"errors"
	"fmt"
	"strings"
)

// Error represents a structured replay error with context.
type Error struct {
	Op    string    // Operation that failed (e.g., "parse", "create")
	Tag   string    // Entry tag, empty if not applicable
	Hash  uint64    // Entry hash, 0 if not applicable
	Code  ErrorCode // High-level error category
	Msg   string    // Human-readable message
	Inner error     // Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string

	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.Tag != "" {
		parts = append(parts, fmt.Sprintf("tag=%s", e.Tag))
	}
	if e.Hash != 0 {
		parts = append(parts, fmt.Sprintf("hash=%#x", e.Hash))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}

	if len(parts) > 0 {
		return fmt.Sprintf("vkreplay: %s (%s)", msg, strings.Join(parts, " "))
	}
	return fmt.Sprintf("vkreplay: %s", msg)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is provides errors.Is support, comparing by Code.
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == te.Code
}

// ErrorCode represents a high-level error category.
type ErrorCode string

const (
	ErrCodeBadDatabase        ErrorCode = "bad database header"
	ErrCodeUnsupportedVersion ErrorCode = "unsupported database version"
	ErrCodeChecksumMismatch   ErrorCode = "payload checksum mismatch"
	ErrCodeDanglingDependency ErrorCode = "dependency not found in database"
	ErrCodeParseFailure       ErrorCode = "entry failed to parse"
	ErrCodeCreateFailure      ErrorCode = "entry failed to create"
	ErrCodeApplicationInfo    ErrorCode = "invalid or missing application_info entry"
	ErrCodeControlBlock       ErrorCode = "control block error"
	ErrCodeConfig             ErrorCode = "invalid configuration"
)

// NewError creates a new structured error.
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// NewEntryError creates a new error scoped to a specific database entry.
func NewEntryError(op string, tag string, hash uint64, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Tag: tag, Hash: hash, Code: code, Msg: msg}
}

// WrapError wraps an existing error with replay context.
func WrapError(op string, code ErrorCode, inner error) *Error {
	if inner == nil {
		return nil
	}
	if re, ok := inner.(*Error); ok {
		return &Error{Op: op, Tag: re.Tag, Hash: re.Hash, Code: re.Code, Msg: re.Msg, Inner: re.Inner}
	}
	return &Error{Op: op, Code: code, Msg: inner.Error(), Inner: inner}
}

// IsCode checks whether err (or anything it wraps) is a *Error with the
// given code.
func IsCode(err error, code ErrorCode) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}
