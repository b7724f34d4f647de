// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package errors

import (
	"fmt"
	"strings"
)

// Status is a request status code.
type Status uint64

const (
	// OK means the request completed successfully.
	OK Status = 200

	// BadRequest means the request was malformed or invalid.
	BadRequest Status = 400

	// Unauthenticated means a required signature is missing or invalid.
	Unauthenticated Status = 401

	// Unauthorized means the signer is not allowed to perform the request.
	Unauthorized Status = 403

	// NotFound means an account or record does not exist.
	NotFound Status = 404

	// NotAllowed means the operation is not allowed in the current state.
	NotAllowed Status = 405

	// Conflict means the request conflicts with existing state.
	Conflict Status = 409

	// WrongType means an account exists but is not of the expected type or
	// owner.
	WrongType Status = 413

	// IdentityMismatch means a supplied account does not match the address
	// derived for it, or a mint does not match the one on record.
	IdentityMismatch Status = 420

	// AlreadyInitialized means an account that must be created fresh already
	// exists.
	AlreadyInitialized Status = 421

	// InsufficientFunds means a transfer would overdraw its source.
	InsufficientFunds Status = 422

	// AllocationFailure means the payer cannot cover account creation.
	AllocationFailure Status = 423

	// InternalError means something went wrong that should not have.
	InternalError Status = 500

	// UnknownError means the cause of the error is unknown.
	UnknownError Status = 501

	// EncodingError means encoding or decoding failed.
	EncodingError Status = 502

	// NotReady means the service is not ready (for example, closed).
	NotReady Status = 503
)

var statusNames = map[Status]string{
	OK:                 "ok",
	BadRequest:         "badRequest",
	Unauthenticated:    "unauthenticated",
	Unauthorized:       "unauthorized",
	NotFound:           "notFound",
	NotAllowed:         "notAllowed",
	Conflict:           "conflict",
	WrongType:          "wrongType",
	IdentityMismatch:   "identityMismatch",
	AlreadyInitialized: "alreadyInitialized",
	InsufficientFunds:  "insufficientFunds",
	AllocationFailure:  "allocationFailure",
	InternalError:      "internalError",
	UnknownError:       "unknownError",
	EncodingError:      "encodingError",
	NotReady:           "notReady",
}

// String returns the name of the status.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status:%d", s)
}

// StatusByName returns the status with the given name, ignoring case.
func StatusByName(name string) (Status, bool) {
	for s, n := range statusNames {
		if strings.EqualFold(n, name) {
			return s, true
		}
	}
	return 0, false
}

// MarshalText implements [encoding.TextMarshaler].
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (s *Status) UnmarshalText(b []byte) error {
	v, ok := StatusByName(string(b))
	if !ok {
		return fmt.Errorf("%q is not a valid status", b)
	}
	*s = v
	return nil
}

// Error is an error with a status code, an optional cause and an optional
// call stack.
type Error struct {
	Code      Status
	Message   string
	Cause     *Error
	CallStack []*CallSite
}

// CallSite records where an error was created or wrapped.
type CallSite struct {
	FuncName string
	File     string
	Line     int64
}
