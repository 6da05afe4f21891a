package errors

import (
	"errors"
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryConnection  Category = "connection"
	CategoryProtocol    Category = "protocol"
	CategoryApplication Category = "application"
	CategoryResource    Category = "resource"
	CategoryConfig      Category = "config"
	CategoryCLI         Category = "cli"
)

// Error is a structured error with a code, the peer and operation it
// concerns, and a suggestion for the operator.
type Error struct {
	// Code is a unique error identifier (e.g., "M001").
	Code string

	// Category is the error type (connection, protocol, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Peer is the address or label of the remote end, if any.
	Peer string

	// Op is the operation that failed (e.g., "dial", "accept", "read").
	Op string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is matches another *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code != "" && t.Code == e.Code
}

// WithPeer records the remote end.
func (e *Error) WithPeer(peer string) *Error {
	e.Peer = peer
	return e
}

// WithOp records the failed operation.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *Error) WithDetail(d string) *Error {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *Error) Wrap(err error) *Error {
	e.Wrapped = err
	return e
}

// New creates an Error from a registered error code.
func New(code string) *Error {
	template, ok := registry[code]
	if !ok {
		return &Error{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &Error{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Detail:     template.Detail,
		Suggestion: template.Suggestion,
	}
}

// Newf creates a new Error with a formatted message (no code).
func Newf(category Category, format string, args ...any) *Error {
	return &Error{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in an Error. An *Error anywhere in
// err's chain is returned as-is.
func FromError(err error, code string) *Error {
	if err == nil {
		return nil
	}
	var me *Error
	if errors.As(err, &me) {
		return me
	}
	return New(code).Wrap(err)
}

// CategoryOf returns the category of the first *Error in err's chain, or
// "" if there is none.
func CategoryOf(err error) Category {
	var me *Error
	if errors.As(err, &me) {
		return me.Category
	}
	return ""
}
