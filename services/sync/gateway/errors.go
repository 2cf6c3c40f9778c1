// Copyright (C) 2025 Tidewater Labs (oss@tidewaterlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package gateway

import (
	"errors"
	"fmt"
)

// Sentinel errors for the gateway package. Callers classify failures with
// errors.Is against these; the concrete *Error carries the detail.
var (
	// ErrUnauthorized indicates no or invalid session credentials.
	// Mutating paths fail fast with this before any network attempt.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound indicates the resource does not exist. Read paths
	// treat this as a valid empty state; write paths treat it as an error.
	ErrNotFound = errors.New("not found")

	// ErrNetworkUnavailable indicates the request never reached the
	// server. Retryable by user action only.
	ErrNetworkUnavailable = errors.New("network unavailable")

	// ErrTimeout indicates the request timed out. Retryable by user
	// action only.
	ErrTimeout = errors.New("request timed out")

	// ErrServerRejected indicates a 4xx/5xx response; the server's
	// message is surfaced verbatim.
	ErrServerRejected = errors.New("server rejected request")

	// ErrCancelled indicates the operation was superseded or its context
	// cancelled. Never surfaced to the UI; logged at most.
	ErrCancelled = errors.New("cancelled")
)

// Class is the failure classification of a gateway error.
type Class string

const (
	ClassUnauthorized       Class = "unauthorized"
	ClassNotFound           Class = "not_found"
	ClassNetworkUnavailable Class = "network_unavailable"
	ClassTimeout            Class = "timeout"
	ClassServerRejected     Class = "server_rejected"
	ClassCancelled          Class = "cancelled"
)

// sentinel maps a class to its errors.Is target.
func (c Class) sentinel() error {
	switch c {
	case ClassUnauthorized:
		return ErrUnauthorized
	case ClassNotFound:
		return ErrNotFound
	case ClassNetworkUnavailable:
		return ErrNetworkUnavailable
	case ClassTimeout:
		return ErrTimeout
	case ClassCancelled:
		return ErrCancelled
	default:
		return ErrServerRejected
	}
}

// Retryable reports whether a user-triggered retry could plausibly
// succeed. There is no automatic retry anywhere in this module.
func (c Class) Retryable() bool {
	return c == ClassTimeout || c == ClassNetworkUnavailable
}

// Error is a classified gateway failure.
type Error struct {
	// Class is the failure category.
	Class Class

	// StatusCode is the HTTP status, 0 when the request never completed.
	StatusCode int

	// Message is the server's error message, verbatim, when one exists.
	Message string

	cause error
}

// NewError builds a classified error wrapping an underlying cause.
func NewError(class Class, status int, message string, cause error) *Error {
	return &Error{Class: class, StatusCode: status, Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("gateway: %s (%s)", e.Message, e.Class)
	}
	if e.cause != nil {
		return fmt.Sprintf("gateway: %s: %v", e.Class, e.cause)
	}
	return fmt.Sprintf("gateway: %s", e.Class)
}

// Unwrap exposes both the class sentinel and the underlying cause so
// errors.Is works against either.
func (e *Error) Unwrap() []error {
	if e.cause == nil {
		return []error{e.Class.sentinel()}
	}
	return []error{e.Class.sentinel(), e.cause}
}

// IsCancelled reports whether err is a superseded or context-cancelled
// operation, which is silent by contract.
func IsCancelled(err error) bool { return errors.Is(err, ErrCancelled) }

// IsNotFound reports whether err is a missing-resource failure.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsUnauthorized reports whether err is a credential failure.
func IsUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }

// ClassOf extracts the failure class, defaulting to ServerRejected for
// unclassified errors.
func ClassOf(err error) Class {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Class
	}
	return ClassServerRejected
}
