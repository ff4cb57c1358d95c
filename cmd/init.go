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
	"go.uber.org/zap"

	"authbridge/internal/platform"
	"authbridge/internal/sysconfig"
	"authbridge/pkg/crypto"
	"authbridge/pkg/errors"
	"authbridge/pkg/secrets"
)

const defaultPasswordLength = 20

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize service credentials and the system configuration.",
	Long: `Collect the administrator, database, directory and RADIUS credentials,
store their hashes, save the system configuration and write the runtime
environment file.

Plaintext secrets are never written to disk. Each one can be handed once to
an initializer command (--initializer service=command), which receives it on
stdin with AUTHBRIDGE_SERVICE and AUTHBRIDGE_PRINCIPAL set. The admin password
can be copied to the clipboard instead. Anything not handed off is dropped
when the command exits.`,
	Example: `  authbridge init
  authbridge init --admin-email admin@example.com --generate \
    --initializer database='psql-bootstrap' --clipboard`,
	Args:        cobra.NoArgs,
	Annotations: platformAnnotations(),
	RunE:        withPlatform(runInit),
}

// initAnswers holds everything init collects before building
type initAnswers struct {
	adminEmail    string
	adminPassword string
	dbUser        string
	dbPassword    string
	dbName        string
	baseDN        string
	ldapAdmin     string
	ldapReadonly  string
	radiusSecret  string
	radiusClients []string
}

func runInit(cmd *cobra.Command, args []string, app *platform.Platform) error {
	if app.Config.IsInitialized() {
		return errors.NewAlreadyInitializedError("installation")
	}

	initializerFlags, _ := cmd.Flags().GetStringArray("initializer")
	inits, err := parseInitializers(initializerFlags)
	if err != nil {
		return err
	}

	answers, err := collectInitAnswers(cmd)
	if err != nil {
		return err
	}

	var staged []sysconfig.StagedSecret
	cfg, err := sysconfig.NewBuilder(app.Hasher, func(s sysconfig.StagedSecret) {
		staged = append(staged, s)
	}).
		Admin(answers.adminEmail, answers.adminPassword).
		Database(answers.dbUser, answers.dbPassword, answers.dbName).
		Directory(answers.baseDN, answers.ldapAdmin, answers.ldapReadonly).
		Radius(answers.radiusSecret, answers.radiusClients).
		Security().
		Build()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	keys := make([]secrets.Key, 0, len(staged))
	for _, s := range staged {
		if err := app.Bootstrap.Initialize(ctx, s.Service, s.Principal, s.Plaintext); err != nil {
			return fmt.Errorf("failed to bootstrap %s/%s: %w", s.Service, s.Principal, err)
		}
		keys = append(keys, secrets.NewKey(s.Service, s.Principal))
	}
	staged = nil

	if err := app.Config.Save(cfg); err != nil {
		return err
	}
	if err := app.Config.WriteEnvironmentFile(cfg); err != nil {
		return err
	}
	if err := app.Config.MarkInitialized(); err != nil {
		return err
	}
	app.Logger.Info("Installation initialized", zap.Int("credentials", len(keys)))

	if _, err := runInitializers(ctx, app, inits, keys, cmd.ErrOrStderr()); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if useClipboard, _ := cmd.Flags().GetBool("clipboard"); useClipboard {
		adminKey := secrets.NewKey(sysconfig.ServiceIdentityProvider, sysconfig.PrincipalAdmin)
		if err := copyStagedToClipboard(ctx, app, adminKey); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
		} else {
			fmt.Fprintln(out, "📋 Admin password copied to clipboard. It will not be shown again.")
		}
	}

	fmt.Fprintln(out, "✅ Initialized. Stored credentials:")
	for _, key := range keys {
		fmt.Fprintf(out, "   %s\n", key)
	}
	fmt.Fprintf(out, "Configuration: %s\n", app.Config.ConfigPath())
	fmt.Fprintf(out, "Environment:   %s\n", app.Config.EnvironmentPath())
	return nil
}

// collectInitAnswers reads flags and prompts for the rest. With --generate
// every password is generated instead of prompted.
func collectInitAnswers(cmd *cobra.Command) (*initAnswers, error) {
	flags := cmd.Flags()
	generate, _ := flags.GetBool("generate")
	length, _ := flags.GetInt("password-length")
	if length < sysconfig.MinAdminPasswordLength {
		return nil, errors.NewInvalidInputError("password-length",
			fmt.Sprintf("must be at least %d", sysconfig.MinAdminPasswordLength))
	}

	a := &initAnswers{}
	a.adminEmail, _ = flags.GetString("admin-email")
	a.dbUser, _ = flags.GetString("db-user")
	a.dbName, _ = flags.GetString("db-name")
	a.baseDN, _ = flags.GetString("ldap-base-dn")
	a.radiusClients, _ = flags.GetStringSlice("radius-client")

	p := newPrompter(cmd)
	var err error
	if a.adminEmail == "" {
		if a.adminEmail, err = p.Line("Admin email", ""); err != nil {
			return nil, err
		}
	}

	passwords := []struct {
		label string
		dst   *string
	}{
		{"Admin password", &a.adminPassword},
		{"Database password", &a.dbPassword},
		{"LDAP admin password", &a.ldapAdmin},
		{"LDAP readonly password", &a.ldapReadonly},
	}
	for _, pw := range passwords {
		if generate {
			*pw.dst, err = crypto.GeneratePassword(length)
		} else {
			*pw.dst, err = p.ConfirmedSecret(pw.label)
		}
		if err != nil {
			return nil, err
		}
	}

	if !generate {
		if a.radiusSecret, err = p.Secret("RADIUS shared secret (empty to generate)"); err != nil {
			return nil, err
		}
	}
	if a.radiusSecret == "" {
		if a.radiusSecret, err = crypto.GeneratePassword(length); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func init() {
	initCmd.Flags().String("admin-email", "", "identity provider admin email")
	initCmd.Flags().String("db-user", sysconfig.DefaultDatabaseUser, "database user")
	initCmd.Flags().String("db-name", sysconfig.DefaultDatabaseName, "database name")
	initCmd.Flags().String("ldap-base-dn", sysconfig.DefaultDirectoryBaseDN, "directory base DN")
	initCmd.Flags().StringSlice("radius-client", nil, "RADIUS client address (repeatable)")
	initCmd.Flags().Bool("generate", false, "generate every password instead of prompting")
	initCmd.Flags().Int("password-length", defaultPasswordLength, "length of generated passwords")
	initCmd.Flags().Bool("clipboard", false, "copy the admin password to the clipboard")
	initCmd.Flags().StringArray("initializer", nil, "run command with a service's secrets on stdin (service=command, repeatable)")
	rootCmd.AddCommand(initCmd)
}
