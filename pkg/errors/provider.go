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

import "fmt"

// Identity provider errors

// NewProviderUnreachableError wraps a transport failure
func NewProviderUnreachableError(operation string, cause error) *StructuredError {
	return Wrap(cause, ErrCodeProviderUnreachable, "identity provider unreachable during "+operation)
}

// NewProviderTimeoutError wraps a deadline failure
func NewProviderTimeoutError(operation string, cause error) *StructuredError {
	return Wrap(cause, ErrCodeProviderTimeout, "identity provider timed out during "+operation)
}

// NewProviderRejectedError reports a non-success answer from a flow stage
func NewProviderRejectedError(stage string, status int) *StructuredError {
	return New(ErrCodeProviderRejected, "identity provider rejected "+stage, fmt.Sprintf("status %d", status))
}

// NewInactiveAccountError reports an account the provider marks inactive or
// does not know
func NewInactiveAccountError(principal string) *StructuredError {
	return New(ErrCodeInactiveAccount, "account is not active", principal)
}

// NewAmbiguousProviderStateError is returned when the provider answers a
// bootstrap probe in a way that does not say whether an admin exists
func NewAmbiguousProviderStateError(details string) *StructuredError {
	return New(ErrCodeAmbiguousProviderState, "identity provider state is ambiguous", details)
}
