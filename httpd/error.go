// Package httpd implements C7 (the HTTP/1.1 codec) and C8 (the
// declarative routing engine) from spec.md §4.7-§4.8. Grounded on
// original_source/src/http/{request,response,chunked,http,server,client}.cpp,
// wired onto the session package via a FramingHandler binding.
/*
 * Copyright (c) 2024, delameta. All rights reserved.
 */
package httpd

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/aufam/delameta-go/cmn/xerr"
)

// Error is http::Error (spec.md §3 "Error": "http::Error{status,
// message}"): any status 100-599 with a human message, convertible to
// a response body by the default error handler.
type Error struct {
	Status  int
	Message string

	// cause, when set, is the stack-annotated error that crossed into
	// this layer (see InternalError); nil for errors built directly
	// via NewError.
	cause error
}

func NewError(status int, format string, a ...any) *Error {
	return &Error{Status: status, Message: fmt.Sprintf(format, a...)}
}

func (e *Error) Error() string { return fmt.Sprintf("%d %s", e.Status, e.Message) }

// Cause returns the stack-annotated error InternalError wrapped, or nil
// if this *Error wasn't built from a lower-layer error.
func (e *Error) Cause() error { return e.cause }

// InternalError wraps a non-HTTP (transport/config) error as a 500,
// matching the reference implementation's http::Error(delameta::Error)
// converting constructor (spec.md §3 "Layers convert upward by mapping
// any non-HTTP error to 500 Internal Server Error": body is "{what}:
// {code}"). errors.Wrap attaches a stack frame to the error that
// crosses this layer boundary, kept on the *Error itself for the
// server's own log line rather than leaked into the response body.
func InternalError(err error) *Error {
	code := xerr.CodeUsage
	if xe, ok := err.(*xerr.Error); ok {
		code = xe.Code
	}
	return &Error{
		Status:  StatusInternalServerError,
		Message: fmt.Sprintf("%s: %d", err.Error(), code),
		cause:   errors.Wrap(err, "internal"),
	}
}

// AsError unwraps err into an *Error, synthesizing a 500 for anything
// else.
func AsError(err error) *Error {
	if e, ok := err.(*Error); ok {
		return e
	}
	return InternalError(err)
}
