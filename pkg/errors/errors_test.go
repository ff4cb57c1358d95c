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

package errors

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestStructuredErrorMessage(t *testing.T) {
	err := NewInvalidInputError("admin_password", "must be at least 12 characters")

	expected := "invalid input for field 'admin_password': must be at least 12 characters"
	if err.Error() != expected {
		t.Errorf("Expected %q, got %q", expected, err.Error())
	}
	if err.Code != ErrCodeInvalidInput {
		t.Errorf("Expected code %s, got %s", ErrCodeInvalidInput, err.Code)
	}
}

func TestWrapKeepsCause(t *testing.T) {
	err := NewStorageFailureError("save", io.ErrShortWrite)

	if !errors.Is(err, io.ErrShortWrite) {
		t.Error("Expected wrapped cause to be reachable with errors.Is")
	}

	expected := "storage operation 'save' failed: short write"
	if err.Error() != expected {
		t.Errorf("Expected %q, got %q", expected, err.Error())
	}
}

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("load: %w", NewCorruptStoreError("/config/secrets.json", io.ErrUnexpectedEOF))

	if !HasCode(err, ErrCodeSecretStoreCorrupt) {
		t.Error("Expected corrupt store code in chain")
	}
	if HasCode(err, ErrCodeNotFound) {
		t.Error("Did not expect not-found code in chain")
	}
	if CodeOf(err) != ErrCodeSecretStoreCorrupt {
		t.Errorf("Expected CodeOf to return %s, got %s", ErrCodeSecretStoreCorrupt, CodeOf(err))
	}
}

func TestCodeOfPlainError(t *testing.T) {
	if code := CodeOf(errors.New("plain")); code != "" {
		t.Errorf("Expected empty code, got %s", code)
	}
}

func TestProviderErrors(t *testing.T) {
	tests := []struct {
		name string
		err  *StructuredError
		code Code
	}{
		{"unreachable", NewProviderUnreachableError("identification", io.EOF), ErrCodeProviderUnreachable},
		{"timeout", NewProviderTimeoutError("password", io.EOF), ErrCodeProviderTimeout},
		{"rejected", NewProviderRejectedError("password stage", 403), ErrCodeProviderRejected},
		{"inactive", NewInactiveAccountError("jdoe"), ErrCodeInactiveAccount},
		{"ambiguous", NewAmbiguousProviderStateError("status 500"), ErrCodeAmbiguousProviderState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, tt.err.Code)
			}
			if tt.err.Error() == "" {
				t.Error("Expected non-empty message")
			}
		})
	}
}
