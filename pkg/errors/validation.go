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

// Validation-specific errors

// NewInvalidInputError creates an invalid input error
func NewInvalidInputError(field, reason string) *StructuredError {
	return New(ErrCodeInvalidInput, "invalid input for field '"+field+"'", reason)
}

// NewMalformedInputError reports attribute input the bridge cannot act on
func NewMalformedInputError(reason string) *StructuredError {
	return New(ErrCodeMalformedInput, "malformed attribute input", reason)
}
