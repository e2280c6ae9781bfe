// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for the frame link.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	ErrChannelClosed     = errors.New("channel is closed")
	ErrProviderClosed    = errors.New("io provider is closed")
	ErrDispatcherClosed  = errors.New("dispatcher is closed")
	ErrNoData            = errors.New("no data to provide")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrResourceExhausted = errors.New("resource exhausted")
	ErrNotSupported      = errors.New("operation not supported")
	ErrNotFound          = errors.New("resource not found")

	// Protocol faults. A connection is not resilient to a malformed peer.
	ErrUnknownFrameType = errors.New("unknown frame type")
	ErrIdentifierInUse  = errors.New("frame identifier already in use")
	ErrFrameTooLarge    = errors.New("frame body exceeds maximum length")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeResourceExhausted
	ErrCodeNotSupported
	ErrCodeNotFound
	ErrCodeProtocol
	ErrCodeTransport
	ErrCodeInternal
)

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

// Unwrap exposes the wrapped sentinel so errors.Is keeps working.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// ProtocolError wraps a protocol sentinel with the offending frame fields.
func ProtocolError(err error, message string) *Error {
	e := NewError(ErrCodeProtocol, message)
	e.Err = err
	return e
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}
