/*
Copyright © 2025 Ian Shuley

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package errors provides the structured error type shared by the bootstrap
// and bridge packages.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code identifies a class of failure
type Code string

const (
	ErrCodeMalformedInput         Code = "MALFORMED_INPUT"
	ErrCodeProviderUnreachable    Code = "PROVIDER_UNREACHABLE"
	ErrCodeProviderTimeout        Code = "PROVIDER_TIMEOUT"
	ErrCodeProviderRejected       Code = "PROVIDER_REJECTED"
	ErrCodeInactiveAccount        Code = "INACTIVE_ACCOUNT"
	ErrCodeSecretStoreCorrupt     Code = "SECRET_STORE_CORRUPT"
	ErrCodeNotFound               Code = "NOT_FOUND"
	ErrCodeInvalidInput           Code = "INVALID_INPUT"
	ErrCodeStorageFailure         Code = "STORAGE_FAILURE"
	ErrCodeAlreadyInitialized     Code = "ALREADY_INITIALIZED"
	ErrCodeAmbiguousProviderState Code = "AMBIGUOUS_PROVIDER_STATE"
)

// StructuredError carries a code, a human message, optional details and an
// optional cause.
type StructuredError struct {
	Code    Code
	Message string
	Details string
	Cause   error
}

func (e *StructuredError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Details != "" {
		b.WriteString(": ")
		b.WriteString(e.Details)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// Is matches any StructuredError with the same code, so sentinel values
// created with New can be used with errors.Is.
func (e *StructuredError) Is(target error) bool {
	var t *StructuredError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// New creates a structured error. Extra details are joined with "; ".
func New(code Code, message string, details ...string) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
		Details: strings.Join(details, "; "),
	}
}

// Wrap creates a structured error around cause
func Wrap(cause error, code Code, message string) *StructuredError {
	return &StructuredError{Code: code, Message: message, Cause: cause}
}

// Newf is New with a formatted message
func Newf(code Code, format string, args ...any) *StructuredError {
	return New(code, fmt.Sprintf(format, args...))
}

// CodeOf returns the code of the first StructuredError in err's chain, or ""
func CodeOf(err error) Code {
	var se *StructuredError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// HasCode reports whether err carries code anywhere in its chain
func HasCode(err error, code Code) bool {
	return errors.Is(err, &StructuredError{Code: code})
}
