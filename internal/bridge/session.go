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

package bridge

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"authbridge/internal/provider"
	"authbridge/pkg/errors"
)

// Stage is the state of an authentication session
type Stage int

const (
	StageIdentifying Stage = iota
	StageAwaitingPassword
	StageAuthenticated
	StageRejected
)

func (s Stage) String() string {
	switch s {
	case StageIdentifying:
		return "identifying"
	case StageAwaitingPassword:
		return "awaiting_password"
	case StageAuthenticated:
		return "authenticated"
	case StageRejected:
		return "rejected"
	}
	return "unknown"
}

// Terminal reports whether no further transition is possible
func (s Stage) Terminal() bool {
	return s == StageAuthenticated || s == StageRejected
}

// Outcome is the terminal result of a session
type Outcome struct {
	SessionID string
	Principal string
	Stage     Stage
	Groups    []string

	// Err explains a rejection. It is logged, never written to the reply.
	Err error
}

// Session is one request's walk through the provider flow. It is never
// persisted or reused.
type Session struct {
	ID        string
	Principal string
	Stage     Stage

	client *provider.Client
	logger *zap.Logger
}

func newSession(client *provider.Client, principal string, logger *zap.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		ID:        id,
		Principal: principal,
		Stage:     StageIdentifying,
		client:    client,
		logger:    logger.With(zap.String("session_id", id), zap.String("principal", principal)),
	}
}

// Authenticate drives the session to a terminal stage. Every stage gets one
// attempt; any failure ends in StageRejected.
func (s *Session) Authenticate(ctx context.Context, password string) Outcome {
	flow, err := s.client.NewFlow()
	if err != nil {
		return s.reject(err)
	}

	if err := flow.Identify(ctx, s.Principal); err != nil {
		return s.reject(err)
	}
	s.advance(StageAwaitingPassword)

	if err := flow.SubmitPassword(ctx, password); err != nil {
		return s.reject(err)
	}
	s.advance(StageAuthenticated)

	// The password stage passing is not enough: the account must exist and
	// be active.
	user, err := s.client.LookupUser(ctx, s.Principal)
	switch {
	case errors.HasCode(err, errors.ErrCodeNotFound):
		return s.reject(errors.NewInactiveAccountError(s.Principal))
	case err != nil:
		return s.reject(err)
	case !user.IsActive:
		return s.reject(errors.NewInactiveAccountError(s.Principal))
	}

	s.logger.Info("Authentication succeeded", zap.Int("groups", len(user.Groups)))
	return Outcome{
		SessionID: s.ID,
		Principal: s.Principal,
		Stage:     StageAuthenticated,
		Groups:    user.Groups,
	}
}

func (s *Session) advance(to Stage) {
	s.logger.Debug("Session stage changed",
		zap.Stringer("from", s.Stage),
		zap.Stringer("to", to))
	s.Stage = to
}

func (s *Session) reject(err error) Outcome {
	s.logger.Warn("Authentication rejected",
		zap.Stringer("stage", s.Stage),
		zap.String("code", string(errors.CodeOf(err))),
		zap.Error(err))
	s.Stage = StageRejected
	return Outcome{
		SessionID: s.ID,
		Principal: s.Principal,
		Stage:     StageRejected,
		Err:       err,
	}
}
