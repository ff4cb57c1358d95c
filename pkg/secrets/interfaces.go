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

// Package secrets provides the public interfaces for the credential domain.
package secrets

import "context"

// Hasher is the one-way hashing capability the store verifies against
type Hasher interface {
	Hash(secret string) (string, error)
	Verify(secret, encoded string) bool
	NeedsRehash(encoded string) bool
}

// Store is the credential store used by bootstrap and the CLI. It holds
// hashes only.
type Store interface {
	// Store upserts the hash for (service, principal)
	Store(ctx context.Context, service, principal, hash string) error

	// Verify reports whether plaintext matches the stored hash. An absent
	// record is a mismatch, not an error; errors only report storage failures.
	Verify(ctx context.Context, service, principal, plaintext string) (bool, error)

	// Update replaces the hash for (service, principal). Callers re-hash.
	Update(ctx context.Context, service, principal, newHash string) error

	// Get returns the record for (service, principal)
	Get(ctx context.Context, service, principal string) (*HashRecord, error)

	// Keys lists the stored (service, principal) pairs without their hashes
	Keys(ctx context.Context) ([]Key, error)

	// NeedsRehash reports whether the stored hash was produced with weaker
	// parameters than the current hasher
	NeedsRehash(ctx context.Context, service, principal string) (bool, error)
}

// Repository is the durable storage behind a Store. Implementations must
// make each Put atomic: a crash mid-write never leaves a partial record.
type Repository interface {
	// Put persists a record, replacing any record with the same key
	Put(ctx context.Context, record *HashRecord) error

	// Get returns a record or a NOT_FOUND error
	Get(ctx context.Context, key Key) (*HashRecord, error)

	// List returns every record
	List(ctx context.Context) ([]*HashRecord, error)

	// Close releases the underlying storage
	Close() error
}
