// SPDX-License-Identifier: AGPL-3.0-or-later

// Package rpcerr implements the error taxonomy spec §7 calls for
// (InvalidArguments, NotSupported, NotConnected, Transient IO, Fatal IO),
// translated to RPC fault names at the internal/rpc boundary.
package rpcerr

import (
	"fmt"
	"net/http"
)

// Code is one of spec §7's error-taxonomy kinds.
type Code int

const (
	InvalidArguments Code = iota
	NotSupported
	NotConnected
	TransientIO
	FatalIO
)

func (c Code) String() string {
	switch c {
	case InvalidArguments:
		return "InvalidArguments"
	case NotSupported:
		return "NotSupported"
	case NotConnected:
		return "NotConnected"
	case TransientIO:
		return "TransientIO"
	case FatalIO:
		return "FatalIO"
	default:
		return "Unknown"
	}
}

// HTTPStatus maps a taxonomy kind onto the status code internal/rpc writes
// for a failed method call.
func (c Code) HTTPStatus() int {
	switch c {
	case InvalidArguments:
		return http.StatusBadRequest
	case NotSupported:
		return http.StatusNotImplemented
	case NotConnected:
		return http.StatusConflict
	case TransientIO:
		return http.StatusServiceUnavailable
	case FatalIO:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Error is an RPC fault: a taxonomy code plus a human-readable message.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}
