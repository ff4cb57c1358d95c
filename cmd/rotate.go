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
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"authbridge/internal/platform"
	"authbridge/pkg/crypto"
	"authbridge/pkg/secrets"
)

var rotateCmd = &cobra.Command{
	Use:   "rotate <service> <principal>",
	Short: "Replace a stored credential.",
	Long: `Hash a new plaintext for service/principal and store it. When the
credential belongs to the system configuration, its hash there is updated too
and the change is recorded in the audit trail.

The new plaintext comes from a no-echo prompt, a stdin line (--stdin) or is
generated (--generate). A generated value is printed once, or copied to the
clipboard with --clipboard, unless an initializer consumes it. Initializers
must name the rotated service and need plaintext staging enabled.`,
	Example: `  authbridge rotate ldap readonly
  authbridge rotate radius shared-secret --generate --clipboard
  authbridge rotate database authentik --generate --initializer database='psql-alter-role'`,
	Args:        cobra.ExactArgs(2),
	Annotations: platformAnnotations(),
	RunE:        withPlatform(runRotate),
}

func runRotate(cmd *cobra.Command, args []string, app *platform.Platform) error {
	service, principal := args[0], args[1]
	if err := validateCredentialArgs(service, principal); err != nil {
		return err
	}
	flags := cmd.Flags()

	initializerFlags, _ := flags.GetStringArray("initializer")
	inits, err := parseInitializers(initializerFlags)
	if err != nil {
		return err
	}

	key := secrets.NewKey(service, principal)
	if err := checkRotateInitializers(app, inits, key); err != nil {
		return err
	}

	generate, _ := flags.GetBool("generate")
	var plaintext string
	if generate {
		length, _ := flags.GetInt("length")
		plaintext, err = crypto.GeneratePassword(length)
	} else {
		plaintext, err = readPlaintext(cmd, "New password")
	}
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if err := app.Bootstrap.Rotate(ctx, service, principal, plaintext); err != nil {
		return err
	}

	if err := updateConfiguredSecret(cmd, app, service, principal, plaintext); err != nil {
		return err
	}

	delivered, err := runInitializers(ctx, app, inits, []secrets.Key{key}, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✅ Rotated %s\n", key)
	if !generate || delivered[key] {
		return nil
	}

	if useClipboard, _ := flags.GetBool("clipboard"); useClipboard {
		if err := clipboardWrite(plaintext); err != nil {
			return fmt.Errorf("failed to copy %s to clipboard: %w", key, err)
		}
		fmt.Fprintln(out, "📋 New value copied to clipboard. It will not be shown again.")
		return nil
	}
	fmt.Fprintf(out, "\n🔑 New value:\n   %s\n", plaintext)
	fmt.Fprintln(out, "\n📋 Store it securely. It will not be shown again!")
	return nil
}

// updateConfiguredSecret keeps the system configuration in step with the
// secret store when the credential is one of its secret fields
func updateConfiguredSecret(cmd *cobra.Command, app *platform.Platform, service, principal, plaintext string) error {
	cfg, err := app.Config.Load()
	if err != nil {
		return err
	}
	if cfg == nil {
		return nil
	}
	cred, ok := cfg.CredentialFor(service, principal)
	if !ok {
		return nil
	}

	actor, _ := cmd.Flags().GetString("actor")
	if actor == "" {
		actor = currentActor()
	}
	if _, err := app.Config.UpdateSecret(cred.Section, cred.Field, plaintext, actor); err != nil {
		return fmt.Errorf("credential rotated but configuration update failed: %w", err)
	}
	app.Logger.Info("Configuration secret updated",
		zap.String("section", cred.Section),
		zap.String("field", cred.Field),
		zap.String("actor", actor))
	return nil
}

// currentActor names whoever runs the command for the audit trail
func currentActor() string {
	for _, env := range []string{"SUDO_USER", "USER", "LOGNAME"} {
		if name := os.Getenv(env); name != "" {
			return name
		}
	}
	return "cli"
}

func init() {
	rotateCmd.Flags().Bool("stdin", false, "read the new plaintext from stdin")
	rotateCmd.Flags().Bool("generate", false, "generate the new plaintext")
	rotateCmd.Flags().Int("length", defaultPasswordLength, "length of a generated plaintext")
	rotateCmd.Flags().Bool("clipboard", false, "copy a generated plaintext to the clipboard instead of printing it")
	rotateCmd.Flags().String("actor", "", "name recorded in the audit trail (defaults to the current user)")
	rotateCmd.Flags().StringArray("initializer", nil, "run command with the new plaintext on stdin (service=command, repeatable)")
	rootCmd.AddCommand(rotateCmd)
}
