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
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"authbridge/internal/platform"
	"authbridge/pkg/config"
	"authbridge/pkg/logger"
	"authbridge/pkg/version"
)

var (
	configDirFlag string
	logLevelFlag  string
)

// needsPlatform marks commands that open the secret store
const needsPlatform = "platform"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "authbridge",
	Short: "Credential bootstrap and identity provider bridge for a RADIUS stack.",
	Long: `authbridge sets up the credentials of an identity provider deployment and
authenticates RADIUS users against that provider.

Features:
	• Argon2id hashes for every service credential, never plaintext at rest
	• One-time hand-off of bootstrap secrets to service initializers
	• Assembled system configuration with audited secret updates
	• RADIUS exec bridge: attributes on stdin, reply attributes on stdout

Configuration lives in /config when it exists, otherwise ~/.authbridge/.
Settings come from config.toml there and AUTHBRIDGE_* environment variables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// ExitError ends the process with Code. Err, when set, is printed first.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if code := exitCode(rootCmd.ExecuteContext(context.Background())); code != 0 {
		os.Exit(code)
	}
}

// exitCode reports err on stderr and maps it to a process exit code
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil {
			fmt.Fprintln(os.Stderr, "Error:", exitErr.Err)
		}
		return exitErr.Code
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	return 1
}

// loadRuntime resolves settings and builds the logger for cmd
func loadRuntime() (*config.Settings, *zap.Logger, error) {
	dir := configDirFlag
	if dir == "" {
		var err error
		if dir, err = config.ConfigDir(); err != nil {
			return nil, nil, err
		}
	}

	settings, err := config.LoadSettings(dir)
	if err != nil {
		return nil, nil, err
	}
	if logLevelFlag != "" {
		settings.Log.Level = logLevelFlag
	}

	log, err := logger.New(logger.Config{
		Level:  settings.Log.Level,
		Format: settings.Log.Format,
		Output: settings.Log.Output,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return settings, log, nil
}

// initializePlatform opens the platform for commands that need the secret
// store and injects it into the command context
func initializePlatform(cmd *cobra.Command, args []string) error {
	if _, ok := cmd.Annotations[needsPlatform]; !ok {
		return nil
	}

	settings, log, err := loadRuntime()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := platform.New(ctx, platform.Config{Settings: settings, Logger: log})
	if err != nil {
		return fmt.Errorf("failed to create platform: %w", err)
	}

	cmd.SetContext(platform.WithPlatform(ctx, app))
	return nil
}

// withPlatform adapts run into a RunE that receives the injected platform and
// closes it afterwards, dropping any staged secret nobody consumed
func withPlatform(run func(cmd *cobra.Command, args []string, app *platform.Platform) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := platform.FromContext(cmd.Context())
		if err != nil {
			return err
		}
		defer func() {
			_ = app.Logger.Sync()
			if cerr := app.Close(); cerr != nil {
				app.Logger.Warn("Failed to close platform", zap.Error(cerr))
			}
		}()
		return run(cmd, args, app)
	}
}

// platformAnnotations marks a command as needing the platform
func platformAnnotations() map[string]string {
	return map[string]string{needsPlatform: "true"}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDirFlag, "config-dir", "", "configuration directory (overrides "+config.ConfigDirEnv+")")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "log level: debug, info, warn or error")

	rootCmd.Version = version.Short()
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	rootCmd.PersistentPreRunE = initializePlatform
}
