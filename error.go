// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package fhevm

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes. Codes are stable and may be surfaced to users.
const (
	CodeNotInitialized int32 = 1001 + iota
	CodeEngineInitialization
	CodeUnsupportedType
	CodeSigningRejected
	CodeSessionNotReady
	CodeDecryptionAuthorization
	CodeDraftSealed
	CodeAdapterNotInitialized
	CodeValueOutOfRange
	CodeInvalidConfig
	CodeEmptyInput
	CodeInputTooLarge
)

var (
	ErrNotInitialized           = &Error{Code: CodeNotInitialized, Message: "fhevm instance not initialized"}
	ErrEngineInitialization     = &Error{Code: CodeEngineInitialization, Message: "encryption engine initialization failed"}
	ErrUnsupportedType          = &Error{Code: CodeUnsupportedType, Message: "unsupported fhevm type"}
	ErrSigningRejected          = &Error{Code: CodeSigningRejected, Message: "signing request rejected"}
	ErrSessionNotReady          = &Error{Code: CodeSessionNotReady, Message: "session not ready"}
	ErrDecryptionAuthorization  = &Error{Code: CodeDecryptionAuthorization, Message: "decryption not authorized"}
	ErrDraftSealed              = &Error{Code: CodeDraftSealed, Message: "encrypted input already sealed"}
	ErrAdapterNotInitialized    = &Error{Code: CodeAdapterNotInitialized, Message: "adapter not initialized"}
	ErrValueOutOfRange          = &Error{Code: CodeValueOutOfRange, Message: "value out of range for type"}
	ErrInvalidConfig            = &Error{Code: CodeInvalidConfig, Message: "invalid configuration"}
	ErrEmptyInput               = &Error{Code: CodeEmptyInput, Message: "encrypted input has no values"}
	ErrInputTooLarge            = &Error{Code: CodeInputTooLarge, Message: "encrypted input too large"}
)

// Error represents an fhevm error
type Error struct {
	Code    int32
	Message string
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

// ErrorCode returns the code of the first *Error found in err's chain, or 0.
func ErrorCode(err error) int32 {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

// IsRetryable reports whether the caller may retry the failed operation
// as-is. The core never retries on its own.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrSigningRejected)
}

// InitFailure classifies why an engine candidate failed to produce an instance.
type InitFailure uint8

const (
	FailureUnknown InitFailure = iota
	FailurePublicKeyFetch
	FailureAllocation
	FailureNetwork
)

func (f InitFailure) String() string {
	switch f {
	case FailurePublicKeyFetch:
		return "public_key_fetch"
	case FailureAllocation:
		return "allocation"
	case FailureNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// Hint returns a human readable remediation for the failure class.
func (f InitFailure) Hint() string {
	switch f {
	case FailurePublicKeyFetch:
		return "check that the gateway URL is correct and reachable"
	case FailureAllocation:
		return "engine components are likely mismatched versions"
	case FailureNetwork:
		return "verify the RPC URL is correct and the network is reachable"
	default:
		return ""
	}
}

// InitAttempt records one candidate's failure during session initialization.
type InitAttempt struct {
	Candidate string
	Failure   InitFailure
	Err       error
}

func (a InitAttempt) String() string {
	s := fmt.Sprintf("%s: %v", a.Candidate, a.Err)
	if hint := a.Failure.Hint(); hint != "" {
		s += " (" + hint + ")"
	}
	return s
}

// EngineInitError aggregates the failures of every engine candidate that was
// tried. It matches ErrEngineInitialization and each underlying cause.
type EngineInitError struct {
	Attempts []InitAttempt
}

func (e *EngineInitError) Error() string {
	if len(e.Attempts) == 0 {
		return ErrEngineInitialization.Message + ": no engine candidates available"
	}
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = a.String()
	}
	return ErrEngineInitialization.Message + ": " + strings.Join(parts, "; ")
}

func (e *EngineInitError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts)+1)
	errs = append(errs, ErrEngineInitialization)
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

// Failure returns the classification of the last attempt.
func (e *EngineInitError) Failure() InitFailure {
	if len(e.Attempts) == 0 {
		return FailureUnknown
	}
	return e.Attempts[len(e.Attempts)-1].Failure
}
