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

// Package bootstrap sets up service credentials: the hash goes to the secret
// store and, when staging is enabled, the plaintext is held for exactly one
// downstream initializer.
package bootstrap

import (
	"context"
	stderrors "errors"
	"strings"

	"go.uber.org/zap"

	"authbridge/internal/ephemeral"
	"authbridge/pkg/errors"
	"authbridge/pkg/secrets"
)

// ErrNothingStaged is returned by Handoff when no plaintext is waiting for
// the key, either because it was never staged or because it was consumed
var ErrNothingStaged = stderrors.New("no staged secret for this credential")

// Consumer receives a staged plaintext. It must use it immediately and must
// not persist it.
type Consumer func(ctx context.Context, plaintext string) error

// Service orchestrates the hash-then-cache dual write
type Service struct {
	hasher secrets.Hasher
	store  secrets.Store
	cache  *ephemeral.Cache
	stage  bool
	logger *zap.Logger
}

// Option configures a Service
type Option func(*Service)

// WithStaging enables or disables plaintext staging. Hashes are always
// written.
func WithStaging(enabled bool) Option {
	return func(s *Service) {
		s.stage = enabled
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a Service. Staging is enabled by default.
func NewService(hasher secrets.Hasher, store secrets.Store, cache *ephemeral.Cache, opts ...Option) *Service {
	s := &Service{
		hasher: hasher,
		store:  store,
		cache:  cache,
		stage:  true,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StagingEnabled reports whether plaintext is staged on Initialize and Rotate
func (s *Service) StagingEnabled() bool {
	return s.stage
}

// Initialize hashes plaintext, stores the hash and then stages the plaintext.
// The hash is durable before anything is staged, so verification works even
// when staging is disabled or the stage is never consumed.
func (s *Service) Initialize(ctx context.Context, service, principal, plaintext string) error {
	if err := validate(service, principal, plaintext); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(plaintext)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to hash credential")
	}
	if err := s.store.Store(ctx, service, principal, hash); err != nil {
		return err
	}

	staged := s.stageSecret(service, principal, plaintext)
	s.logger.Info("Credential initialized",
		zap.String("service", service),
		zap.String("principal", principal),
		zap.Bool("staged", staged))
	return nil
}

// Rotate replaces the credential. Any stale staged value for the key is
// discarded before the new hash is written.
func (s *Service) Rotate(ctx context.Context, service, principal, newPlaintext string) error {
	if err := validate(service, principal, newPlaintext); err != nil {
		return err
	}

	s.cache.Discard(service, principal)

	hash, err := s.hasher.Hash(newPlaintext)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to hash credential")
	}
	if err := s.store.Update(ctx, service, principal, hash); err != nil {
		return err
	}

	staged := s.stageSecret(service, principal, newPlaintext)
	s.logger.Info("Credential rotated",
		zap.String("service", service),
		zap.String("principal", principal),
		zap.Bool("staged", staged))
	return nil
}

// Verify checks plaintext against the stored hash. After a successful match
// against a hash made with weaker parameters the credential is rehashed; a
// failed rehash is logged and never turns a valid login into a failure.
func (s *Service) Verify(ctx context.Context, service, principal, plaintext string) (bool, error) {
	ok, err := s.store.Verify(ctx, service, principal, plaintext)
	if err != nil || !ok {
		return false, err
	}

	needs, err := s.store.NeedsRehash(ctx, service, principal)
	if err != nil || !needs {
		return true, nil
	}

	hash, err := s.hasher.Hash(plaintext)
	if err == nil {
		err = s.store.Update(ctx, service, principal, hash)
	}
	if err != nil {
		s.logger.Warn("Credential rehash failed",
			zap.String("service", service),
			zap.String("principal", principal),
			zap.Error(err))
		return true, nil
	}

	s.logger.Info("Credential rehashed with current parameters",
		zap.String("service", service),
		zap.String("principal", principal))
	return true, nil
}

// Handoff takes the staged plaintext for (service, principal) and passes it
// to consumer. The slot is cleared before consumer runs, so a failing
// consumer cannot be retried with the same plaintext.
func (s *Service) Handoff(ctx context.Context, service, principal string, consumer Consumer) error {
	plaintext, ok := s.cache.TakeOnce(service, principal)
	if !ok {
		return ErrNothingStaged
	}

	if err := consumer(ctx, plaintext); err != nil {
		s.logger.Error("Credential hand-off failed",
			zap.String("service", service),
			zap.String("principal", principal),
			zap.Error(err))
		return err
	}

	s.logger.Info("Credential handed off",
		zap.String("service", service),
		zap.String("principal", principal))
	return nil
}

func (s *Service) stageSecret(service, principal, plaintext string) bool {
	if !s.stage {
		return false
	}
	s.cache.Set(service, principal, plaintext)
	return true
}

func validate(service, principal, plaintext string) error {
	if strings.TrimSpace(service) == "" {
		return errors.NewInvalidInputError("service", "cannot be empty")
	}
	if strings.TrimSpace(principal) == "" {
		return errors.NewInvalidInputError("principal", "cannot be empty")
	}
	if plaintext == "" {
		return errors.NewInvalidInputError("secret", "cannot be empty")
	}
	return nil
}
