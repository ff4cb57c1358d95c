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

package sysconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"authbridge/pkg/config"
	"authbridge/pkg/errors"
	"authbridge/pkg/secrets"
)

// File names inside the config directory
const (
	ConfigFileName      = "system_config.json"
	InitializedFlagName = ".initialized"
	EnvironmentFileName = ".env.runtime"
)

// Manager persists the system configuration in the config directory
type Manager struct {
	dir    string
	hasher secrets.Hasher
	logger *zap.Logger
	now    func() time.Time
	mu     sync.Mutex
}

// NewManager creates a Manager for dir. The hasher is used by UpdateSecret.
func NewManager(dir string, hasher secrets.Hasher, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{dir: dir, hasher: hasher, logger: logger, now: time.Now}
}

// ConfigPath returns the configuration file path
func (m *Manager) ConfigPath() string {
	return filepath.Join(m.dir, ConfigFileName)
}

// EnvironmentPath returns the runtime environment file path
func (m *Manager) EnvironmentPath() string {
	return filepath.Join(m.dir, EnvironmentFileName)
}

func (m *Manager) flagPath() string {
	return filepath.Join(m.dir, InitializedFlagName)
}

// Save writes a freshly built configuration. It refuses to replace a
// configuration that is already initialized; use UpdateSecret for that.
func (m *Manager) Save(cfg *SystemConfiguration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, err := m.load()
	if err != nil {
		return err
	}
	if existing != nil && existing.Initialized() {
		return errors.NewAlreadyInitializedError("system configuration")
	}

	if err := m.write(cfg); err != nil {
		return err
	}
	m.logger.Info("Configuration saved", zap.String("path", m.ConfigPath()))
	return nil
}

// Load reads the configuration. A missing file returns (nil, nil).
func (m *Manager) Load() (*SystemConfiguration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load()
}

// IsInitialized reports whether the initialized marker exists
func (m *Manager) IsInitialized() bool {
	_, err := os.Stat(m.flagPath())
	return err == nil
}

// MarkInitialized creates the initialized marker
func (m *Manager) MarkInitialized() error {
	stamp := []byte(m.now().UTC().Format(time.RFC3339) + "\n")
	if err := config.AtomicWriteFile(m.flagPath(), stamp, config.SecureFileMode); err != nil {
		return errors.NewStorageFailureError("mark initialized", err)
	}
	m.logger.Info("Installation marked initialized")
	return nil
}

// UpdateSecret is the audited path for changing a secret field of an
// initialized configuration. It hashes plaintext, records who changed which
// field and when, and never records the value.
func (m *Manager) UpdateSecret(section, field, plaintext, actor string) (*SystemConfiguration, error) {
	if plaintext == "" {
		return nil, errors.NewInvalidInputError(section+"."+field, "cannot be empty")
	}
	if strings.TrimSpace(actor) == "" {
		return nil, errors.NewInvalidInputError("actor", "cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.load()
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, errors.NewNotFoundError("system configuration", m.ConfigPath())
	}

	hash, err := m.hasher.Hash(plaintext)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to hash secret")
	}

	updated, ok := current.withSecretHash(section, field, hash, actor, m.now().UTC())
	if !ok {
		return nil, errors.NewNotFoundError("secret field", section+"."+field)
	}
	if err := m.write(updated); err != nil {
		return nil, err
	}

	m.logger.Info("Configuration secret updated",
		zap.String("section", section),
		zap.String("field", field),
		zap.String("actor", actor))
	return updated, nil
}

// WriteEnvironmentFile writes the non-secret values collaborators read at
// start-up, plus the identity provider secret key they need verbatim
func (m *Manager) WriteEnvironmentFile(cfg *SystemConfiguration) error {
	if err := config.AtomicWriteFile(m.EnvironmentPath(), []byte(EnvironmentFile(cfg)), config.SecureFileMode); err != nil {
		return errors.NewStorageFailureError("write environment file", err)
	}
	m.logger.Info("Environment file written", zap.String("path", m.EnvironmentPath()))
	return nil
}

// EnvironmentFile renders the runtime environment file
func EnvironmentFile(cfg *SystemConfiguration) string {
	var b strings.Builder
	b.WriteString("# Generated by authbridge init. Passwords live hashed in " + ConfigFileName + ".\n\n")
	writeEnv(&b, "PG_USER", cfg.Database().Username)
	writeEnv(&b, "PG_DB", cfg.Database().Database)
	writeEnv(&b, "ADMIN_EMAIL", cfg.Admin().Email)
	writeEnv(&b, "LDAP_BASE_DN", cfg.Directory().BaseDN)
	writeEnv(&b, "AUTHENTIK_SECRET_KEY", cfg.Security().SecretKey)
	return b.String()
}

func writeEnv(b *strings.Builder, key, value string) {
	b.WriteString(key)
	b.WriteByte('=')
	b.WriteString(value)
	b.WriteByte('\n')
}

func (m *Manager) load() (*SystemConfiguration, error) {
	data, err := os.ReadFile(m.ConfigPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewStorageFailureError("read configuration", err)
	}

	var cfg SystemConfiguration
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.NewCorruptStoreError(m.ConfigPath(), err)
	}
	if cfg.Version() == "" {
		return nil, errors.NewCorruptStoreError(m.ConfigPath(), fmt.Errorf("missing version"))
	}
	return &cfg, nil
}

func (m *Manager) write(cfg *SystemConfiguration) error {
	if err := config.WriteConfigFileSecurely(m.ConfigPath(), cfg); err != nil {
		return errors.NewStorageFailureError("write configuration", err)
	}
	return nil
}
