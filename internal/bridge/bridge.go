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

// Package bridge translates the attribute line protocol spoken by a RADIUS
// server's exec hook into the identity provider's staged HTTP flow.
//
// One Run handles one request: attributes are read from the input until EOF,
// the verdict is written to the output as reply attributes, and the returned
// exit code is the only pass/fail signal.
package bridge

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"authbridge/internal/provider"
	"authbridge/pkg/errors"
)

// Exit codes
const (
	ExitAccept = 0
	ExitReject = 1
)

// DefaultInputTimeout bounds the attribute read
const DefaultInputTimeout = 10 * time.Second

// Bridge handles authentication requests
type Bridge struct {
	client       *provider.Client
	inputTimeout time.Duration
	logger       *zap.Logger
}

// Option configures a Bridge
type Option func(*Bridge)

// WithInputTimeout bounds how long Run waits for the attribute input
func WithInputTimeout(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.inputTimeout = d
		}
	}
}

// WithLogger sets the logger. It must not write to the reply stream.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New creates a Bridge that authenticates against client
func New(client *provider.Client, opts ...Option) *Bridge {
	b := &Bridge{
		client:       client,
		inputTimeout: DefaultInputTimeout,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run handles one request and returns the process exit code. Malformed input
// produces no output and no provider call. Nothing inside Run can crash the
// caller: a panic becomes a rejection, so a fault looks the same as a wrong
// password from outside.
func (b *Bridge) Run(ctx context.Context, in io.Reader, out io.Writer) (code int) {
	replied := false
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic while authenticating", zap.String("panic", fmt.Sprint(r)))
			if !replied {
				_ = WriteReply(out, Outcome{Stage: StageRejected})
			}
			code = ExitReject
		}
	}()

	attrs, err := ReadAttributes(ctx, in, b.inputTimeout)
	if err != nil {
		b.logger.Error("Malformed attribute input", zap.Error(err))
		return ExitReject
	}
	user, password, err := attrs.Credentials()
	if err != nil {
		b.logger.Error("Malformed attribute input",
			zap.String("principal", user),
			zap.Error(err))
		return ExitReject
	}

	outcome := b.Authenticate(ctx, user, password)

	replied = true
	if err := WriteReply(out, outcome); err != nil {
		b.logger.Error("Failed to write reply", zap.Error(err))
		return ExitReject
	}
	if outcome.Stage == StageAuthenticated {
		return ExitAccept
	}
	return ExitReject
}

// Authenticate runs a fresh session for user
func (b *Bridge) Authenticate(ctx context.Context, user, password string) Outcome {
	if user == "" || password == "" {
		return Outcome{Principal: user, Stage: StageRejected, Err: errors.NewMalformedInputError("empty credentials")}
	}
	return newSession(b.client, user, b.logger).Authenticate(ctx, password)
}
