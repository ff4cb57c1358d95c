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
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"authbridge/internal/platform"
	"authbridge/internal/sysconfig"
	"authbridge/pkg/config"
	"authbridge/pkg/errors"
)

// configCmd groups the system configuration commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the system configuration.",
	Long: `Inspect the system configuration written by init.

Settings for authbridge itself are read from config.toml in the
configuration directory and may be overridden by environment variables:

  [store]     backend = "file" | "bolt", path
  [hasher]    memory_kib, time, parallelism, salt_length, key_length
  [provider]  url, token, token_file, flow_slug, timeout
  [bridge]    input_timeout
  [bootstrap] stage_plaintext
  [log]       level, format ("json" | "console"), output ("stderr" | path)

Environment: ` + config.EnvPrefix + `PROVIDER_URL, ` + config.EnvPrefix + `PROVIDER_TOKEN_FILE, ...`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the system configuration with key material redacted.",
	Example: `  authbridge config show
  authbridge config show --format json`,
	Args:        cobra.NoArgs,
	Annotations: platformAnnotations(),
	RunE: withPlatform(func(cmd *cobra.Command, args []string, app *platform.Platform) error {
		cfg, err := loadSystemConfig(app)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		return sysconfig.Export(cmd.OutOrStdout(), cfg, format)
	}),
}

var configEnvCmd = &cobra.Command{
	Use:   "env",
	Short: "Print or rewrite the runtime environment file.",
	Long: `Print the environment the collaborating services are started with. With
--write the environment file in the configuration directory is rewritten.`,
	Args:        cobra.NoArgs,
	Annotations: platformAnnotations(),
	RunE: withPlatform(func(cmd *cobra.Command, args []string, app *platform.Platform) error {
		cfg, err := loadSystemConfig(app)
		if err != nil {
			return err
		}
		if write, _ := cmd.Flags().GetBool("write"); write {
			if err := app.Config.WriteEnvironmentFile(cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", app.Config.EnvironmentPath())
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), sysconfig.EnvironmentFile(cfg))
		return nil
	}),
}

func loadSystemConfig(app *platform.Platform) (*sysconfig.SystemConfiguration, error) {
	cfg, err := app.Config.Load()
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, errors.NewNotFoundError("system configuration", app.Config.ConfigPath())
	}
	return cfg, nil
}

func init() {
	configShowCmd.Flags().String("format", sysconfig.FormatYAML, "output format: yaml or json")
	configEnvCmd.Flags().Bool("write", false, "rewrite the environment file instead of printing it")

	configCmd.AddCommand(configShowCmd, configEnvCmd)
	rootCmd.AddCommand(configCmd)
}
