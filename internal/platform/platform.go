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

// Package platform provides service composition for the CLI application.
// It wires the hasher, secret store, staging cache, bootstrap service and
// configuration manager from Settings, and builds the provider client and
// bridge on demand.
package platform

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"authbridge/internal/bootstrap"
	"authbridge/internal/bridge"
	"authbridge/internal/ephemeral"
	"authbridge/internal/hasher"
	"authbridge/internal/provider"
	"authbridge/internal/secretstore"
	"authbridge/internal/sysconfig"
	"authbridge/pkg/config"
)

// Platform represents the complete service composition for the CLI
type Platform struct {
	Settings *config.Settings
	Logger   *zap.Logger

	// Hasher produces every credential hash
	Hasher *hasher.Hasher

	// Store holds credential hashes
	Store *secretstore.Store

	// Cache stages plaintext bootstrap secrets for one consumer each
	Cache *ephemeral.Cache

	// Bootstrap performs the hash-then-stage dual write
	Bootstrap *bootstrap.Service

	// Config persists the assembled system configuration
	Config *sysconfig.Manager
}

// Config holds what New needs
type Config struct {
	Settings *config.Settings
	Logger   *zap.Logger
}

// NewHasher builds the hasher from settings. Parameters below the
// recommended floor are allowed but logged.
func NewHasher(settings *config.Settings, logger *zap.Logger) (*hasher.Hasher, error) {
	params := hasher.Params{
		MemoryKiB:   settings.Hasher.MemoryKiB,
		Time:        settings.Hasher.Time,
		Parallelism: settings.Hasher.Parallelism,
		SaltLength:  settings.Hasher.SaltLength,
		KeyLength:   settings.Hasher.KeyLength,
	}
	h, err := hasher.New(params)
	if err != nil {
		return nil, err
	}
	if params.BelowRecommended() {
		logger.Warn("Hasher parameters are below the recommended minimum",
			zap.Uint32("memory_kib", params.MemoryKiB),
			zap.Uint32("time", params.Time),
			zap.Uint8("parallelism", params.Parallelism))
	}
	return h, nil
}

// New creates a Platform with all services wired together
func New(ctx context.Context, cfg Config) (*Platform, error) {
	if cfg.Settings == nil {
		return nil, fmt.Errorf("settings are required")
	}
	if cfg.Settings.ConfigDir == "" {
		return nil, fmt.Errorf("config directory is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := config.EnsureConfigDirectory(cfg.Settings.SystemConfigPath()); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	h, err := NewHasher(cfg.Settings, logger)
	if err != nil {
		return nil, err
	}

	store, err := secretstore.Open(cfg.Settings.Store.Backend, cfg.Settings.StorePath(), h, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open secret store: %w", err)
	}

	cache := ephemeral.New()
	bootstrapService := bootstrap.NewService(h, store, cache,
		bootstrap.WithStaging(cfg.Settings.Bootstrap.StagePlaintext),
		bootstrap.WithLogger(logger.Named("bootstrap")))

	return &Platform{
		Settings:  cfg.Settings,
		Logger:    logger,
		Hasher:    h,
		Store:     store,
		Cache:     cache,
		Bootstrap: bootstrapService,
		Config:    sysconfig.NewManager(cfg.Settings.ConfigDir, h, logger.Named("sysconfig")),
	}, nil
}

// Provider creates an identity provider client. The token is resolved from
// settings on every call so a token file written after start-up is picked up.
func (p *Platform) Provider() (*provider.Client, error) {
	return NewProviderClient(p.Settings, p.Logger)
}

// NewProviderClient creates an identity provider client from settings
func NewProviderClient(settings *config.Settings, logger *zap.Logger) (*provider.Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	token, err := settings.Provider.ResolveToken()
	if err != nil {
		return nil, err
	}
	return provider.NewClient(provider.Config{
		BaseURL:  settings.Provider.URL,
		Token:    token,
		FlowSlug: settings.Provider.FlowSlug,
		Timeout:  settings.Provider.Timeout,
		Logger:   logger.Named("provider"),
	})
}

// NewBridge creates the authentication bridge. It does not touch the secret
// store, so it is cheap enough to build once per request.
func NewBridge(settings *config.Settings, logger *zap.Logger) (*bridge.Bridge, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := NewProviderClient(settings, logger)
	if err != nil {
		return nil, err
	}
	return bridge.New(client,
		bridge.WithInputTimeout(settings.Bridge.InputTimeout),
		bridge.WithLogger(logger.Named("bridge"))), nil
}

// Close releases the secret store and drops any staged secret that was never
// handed off
func (p *Platform) Close() error {
	p.Cache.Clear()
	return p.Store.Close()
}

// Health checks that the secret store and configuration can be read
func (p *Platform) Health(ctx context.Context) error {
	if _, err := p.Store.Keys(ctx); err != nil {
		return fmt.Errorf("secret store unhealthy: %w", err)
	}
	if _, err := p.Config.Load(); err != nil {
		return fmt.Errorf("system configuration unhealthy: %w", err)
	}
	return nil
}
