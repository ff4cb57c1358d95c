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

// Package config provides configuration management for authbridge
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// ConfigDirEnv overrides the configuration directory
	ConfigDirEnv = "AUTHBRIDGE_CONFIG_DIR"

	// ContainerConfigDir is used when it exists, matching the container layout
	// the collaborating services mount
	ContainerConfigDir = "/config"

	SecureFileMode      os.FileMode = 0600
	SecureDirectoryMode os.FileMode = 0700
)

// GetAuthbridgePath returns the path to the per-user ~/.authbridge directory
func GetAuthbridgePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".authbridge"), nil
}

// ConfigDir resolves the configuration directory. Priority: environment
// override, the container directory when present, then ~/.authbridge.
func ConfigDir() (string, error) {
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		return dir, nil
	}

	if info, err := os.Stat(ContainerConfigDir); err == nil && info.IsDir() {
		return ContainerConfigDir, nil
	}

	return GetAuthbridgePath()
}

// EnsureConfigDirectory creates the parent directory of configPath if it doesn't exist
func EnsureConfigDirectory(configPath string) error {
	return os.MkdirAll(filepath.Dir(configPath), SecureDirectoryMode)
}
