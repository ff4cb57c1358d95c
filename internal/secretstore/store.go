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

// Package secretstore implements the durable (service, principal) to hash
// mapping. It never sees or keeps plaintext beyond a Verify call.
package secretstore

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"authbridge/pkg/config"
	"authbridge/pkg/errors"
	"authbridge/pkg/secrets"
)

// Store implements secrets.Store on top of a Repository
type Store struct {
	repo   secrets.Repository
	hasher secrets.Hasher
	mu     sync.Mutex // guards load-mutate-persist
}

// NewStore creates a Store
func NewStore(repo secrets.Repository, hasher secrets.Hasher) *Store {
	return &Store{repo: repo, hasher: hasher}
}

// Open creates the repository selected by backend at path and wraps it in a
// Store
func Open(backend, path string, hasher secrets.Hasher, logger *zap.Logger) (*Store, error) {
	var repo secrets.Repository
	switch backend {
	case config.BackendFile, "":
		repo = NewFileRepository(path, logger)
	case config.BackendBolt:
		bolt, err := OpenBoltRepository(path)
		if err != nil {
			return nil, err
		}
		repo = bolt
	default:
		return nil, errors.NewInvalidInputError("store.backend", fmt.Sprintf("unknown backend %q", backend))
	}
	return NewStore(repo, hasher), nil
}

// Store upserts the hash for (service, principal)
func (s *Store) Store(ctx context.Context, service, principal, hash string) error {
	key := secrets.NewKey(service, principal)
	if err := key.Validate(); err != nil {
		return errors.NewInvalidInputError("key", err.Error())
	}
	if hash == "" {
		return errors.NewInvalidInputError("hash", "cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.repo.Get(ctx, key)
	switch {
	case errors.HasCode(err, errors.ErrCodeNotFound):
		record = secrets.NewHashRecord(key, hash)
	case err != nil:
		return err
	default:
		record.UpdateHash(hash)
	}

	return s.repo.Put(ctx, record)
}

// Update replaces the hash for (service, principal); the write is an upsert
// like Store
func (s *Store) Update(ctx context.Context, service, principal, newHash string) error {
	return s.Store(ctx, service, principal, newHash)
}

// Verify reports whether plaintext matches the stored hash
func (s *Store) Verify(ctx context.Context, service, principal, plaintext string) (bool, error) {
	record, err := s.lookup(ctx, service, principal)
	if err != nil || record == nil {
		return false, err
	}
	return s.hasher.Verify(plaintext, record.Hash), nil
}

// NeedsRehash reports whether the stored hash is weaker than the hasher's
// current parameters. An absent record does not need a rehash.
func (s *Store) NeedsRehash(ctx context.Context, service, principal string) (bool, error) {
	record, err := s.lookup(ctx, service, principal)
	if err != nil || record == nil {
		return false, err
	}
	return s.hasher.NeedsRehash(record.Hash), nil
}

// Get returns the record for (service, principal)
func (s *Store) Get(ctx context.Context, service, principal string) (*secrets.HashRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.Get(ctx, secrets.NewKey(service, principal))
}

// Keys lists the stored keys
func (s *Store) Keys(ctx context.Context) ([]secrets.Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	keys := make([]secrets.Key, 0, len(records))
	for _, record := range records {
		keys = append(keys, record.Key())
	}
	return keys, nil
}

// Close releases the repository
func (s *Store) Close() error {
	return s.repo.Close()
}

// lookup returns nil without error when the record is absent
func (s *Store) lookup(ctx context.Context, service, principal string) (*secrets.HashRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.repo.Get(ctx, secrets.NewKey(service, principal))
	if errors.HasCode(err, errors.ErrCodeNotFound) {
		return nil, nil
	}
	return record, err
}

var _ secrets.Store = (*Store)(nil)
