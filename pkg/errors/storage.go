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

// Storage-specific errors

// NewNotFoundError creates a not found error
func NewNotFoundError(resource, identifier string) *StructuredError {
	return New(ErrCodeNotFound, resource+" not found", "no "+resource+" found with identifier: "+identifier)
}

// NewStorageFailureError creates a storage failure error
func NewStorageFailureError(operation string, cause error) *StructuredError {
	return Wrap(cause, ErrCodeStorageFailure, "storage operation '"+operation+"' failed")
}

// NewCorruptStoreError reports persisted data that can no longer be parsed.
// Callers must treat it as fatal instead of continuing with an empty store.
func NewCorruptStoreError(path string, cause error) *StructuredError {
	e := Wrap(cause, ErrCodeSecretStoreCorrupt, "secret store is corrupt")
	e.Details = path
	return e
}

// NewAlreadyInitializedError is returned when a first-time operation is
// attempted against an installation that has already been initialized
func NewAlreadyInitializedError(what string) *StructuredError {
	return New(ErrCodeAlreadyInitialized, what+" is already initialized")
}
