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

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	toml "github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix is the prefix for environment variables that override config.toml
	EnvPrefix = "AUTHBRIDGE_"

	// SettingsFile is the name of the optional settings file inside the config directory
	SettingsFile = "config.toml"

	BackendFile = "file"
	BackendBolt = "bolt"
)

// Settings holds all runtime configuration
type Settings struct {
	Store     StoreSettings     `koanf:"store"`
	Hasher    HasherSettings    `koanf:"hasher"`
	Provider  ProviderSettings  `koanf:"provider"`
	Bridge    BridgeSettings    `koanf:"bridge"`
	Bootstrap BootstrapSettings `koanf:"bootstrap"`
	Log       LogSettings       `koanf:"log"`

	// ConfigDir is where the settings were resolved from; not read from the file
	ConfigDir string `koanf:"-"`
}

// StoreSettings selects the secret store backend
type StoreSettings struct {
	Backend string `koanf:"backend"` // "file" or "bolt"
	Path    string `koanf:"path"`    // defaults to secrets.json / secrets.db in the config dir
}

// HasherSettings are the Argon2id cost parameters
type HasherSettings struct {
	MemoryKiB   uint32 `koanf:"memory_kib"`
	Time        uint32 `koanf:"time"`
	Parallelism uint8  `koanf:"parallelism"`
	SaltLength  uint32 `koanf:"salt_length"`
	KeyLength   uint32 `koanf:"key_length"`
}

// ProviderSettings describe how to reach the identity provider
type ProviderSettings struct {
	URL       string        `koanf:"url"`
	Token     string        `koanf:"token"`
	TokenFile string        `koanf:"token_file"`
	FlowSlug  string        `koanf:"flow_slug"`
	Timeout   time.Duration `koanf:"timeout"`
}

// BridgeSettings configure the attribute protocol side of the bridge
type BridgeSettings struct {
	InputTimeout time.Duration `koanf:"input_timeout"`
}

// BootstrapSettings configure credential bootstrap
type BootstrapSettings struct {
	// StagePlaintext controls whether initialized secrets are staged for a
	// one-time hand-off to external initializers
	StagePlaintext bool `koanf:"stage_plaintext"`
}

// LogSettings configure the zap logger
type LogSettings struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // "json" or "console"
	Output string `koanf:"output"` // "stderr" or a file path; never stdout
}

// DefaultSettings returns the built-in defaults
func DefaultSettings() *Settings {
	return &Settings{
		Store: StoreSettings{
			Backend: BackendFile,
		},
		Hasher: HasherSettings{
			MemoryKiB:   64 * 1024,
			Time:        3,
			Parallelism: 4,
			SaltLength:  16,
			KeyLength:   32,
		},
		Provider: ProviderSettings{
			URL:      "http://authentik-server:9000",
			FlowSlug: "default-authentication-flow",
			Timeout:  10 * time.Second,
		},
		Bridge: BridgeSettings{
			InputTimeout: 10 * time.Second,
		},
		Bootstrap: BootstrapSettings{
			StagePlaintext: true,
		},
		Log: LogSettings{
			Level:  "info",
			Format: "json",
			Output: "stderr",
		},
	}
}

// LoadSettings loads configuration from defaults, the optional config.toml in
// configDir and AUTHBRIDGE_* environment variables.
// Priority: Environment variables > Config file > Defaults
func LoadSettings(configDir string) (*Settings, error) {
	cfg := DefaultSettings()
	cfg.ConfigDir = configDir

	k := koanf.New(".")

	settingsPath := filepath.Join(configDir, SettingsFile)
	if _, err := os.Stat(settingsPath); err == nil {
		if err := k.Load(file.Provider(settingsPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// AUTHBRIDGE_PROVIDER_TOKEN_FILE -> provider.token_file. Sections are single
	// words so only the first underscore separates section from key.
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		section, key, found := strings.Cut(s, "_")
		if !found {
			return s
		}
		return section + "." + key
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			TagName:          "koanf",
			WeaklyTypedInput: true,
			Result:           cfg,
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the settings for values that cannot work
func (s *Settings) Validate() error {
	switch s.Store.Backend {
	case BackendFile, BackendBolt:
	default:
		return fmt.Errorf("store.backend must be %q or %q, got %q", BackendFile, BackendBolt, s.Store.Backend)
	}

	if s.Provider.Timeout <= 0 {
		return fmt.Errorf("provider.timeout must be positive")
	}
	if s.Bridge.InputTimeout <= 0 {
		return fmt.Errorf("bridge.input_timeout must be positive")
	}
	if s.Provider.FlowSlug == "" {
		return fmt.Errorf("provider.flow_slug is required")
	}

	u, err := url.Parse(s.Provider.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("provider.url must be an absolute URL, got %q", s.Provider.URL)
	}

	if strings.EqualFold(s.Log.Output, "stdout") {
		return fmt.Errorf("log.output cannot be stdout, it carries the attribute protocol")
	}

	return nil
}

// StorePath returns the secret store location, defaulting by backend
func (s *Settings) StorePath() string {
	if s.Store.Path != "" {
		return s.Store.Path
	}
	if s.Store.Backend == BackendBolt {
		return filepath.Join(s.ConfigDir, "secrets.db")
	}
	return filepath.Join(s.ConfigDir, "secrets.json")
}

// SystemConfigPath returns where the assembled system configuration lives
func (s *Settings) SystemConfigPath() string {
	return filepath.Join(s.ConfigDir, "system_config.json")
}

// ResolveToken returns the provider bearer token. An inline token wins over
// the token file written by the external bootstrap flow.
func (p ProviderSettings) ResolveToken() (string, error) {
	if token := strings.TrimSpace(p.Token); token != "" {
		return token, nil
	}
	if p.TokenFile == "" {
		return "", fmt.Errorf("no provider token configured (set provider.token or provider.token_file)")
	}

	data, err := os.ReadFile(p.TokenFile)
	if err != nil {
		return "", fmt.Errorf("failed to read provider token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("provider token file %s is empty", p.TokenFile)
	}
	return token, nil
}
