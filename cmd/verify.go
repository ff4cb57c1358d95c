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
)

var verifyCmd = &cobra.Command{
	Use:   "verify <service> <principal>",
	Short: "Check a plaintext against a stored credential hash.",
	Long: `Read a plaintext and compare it with the stored hash for service/principal.
Exits 0 on a match and 1 otherwise. A hash made with weaker parameters than
the current ones is replaced after a successful match.`,
	Example: `  authbridge verify ldap admin
  printf '%s\n' "$PW" | authbridge verify database authentik --stdin`,
	Args:        cobra.ExactArgs(2),
	Annotations: platformAnnotations(),
	RunE:        withPlatform(runVerify),
}

func runVerify(cmd *cobra.Command, args []string, app *platform.Platform) error {
	service, principal := args[0], args[1]
	if err := validateCredentialArgs(service, principal); err != nil {
		return err
	}

	plaintext, err := readPlaintext(cmd, "Password")
	if err != nil {
		return err
	}

	ok, err := app.Bootstrap.Verify(cmd.Context(), service, principal, plaintext)
	if err != nil {
		return err
	}
	if !ok {
		return &ExitError{Code: 1, Err: fmt.Errorf("verification failed for %s/%s", service, principal)}
	}

	fmt.Fprintln(cmd.OutOrStdout(), "✅ Match")
	return nil
}

// readPlaintext reads one secret, from a stdin line with --stdin or from a
// no-echo prompt
func readPlaintext(cmd *cobra.Command, label string) (string, error) {
	p := newPrompter(cmd)
	if fromStdin, _ := cmd.Flags().GetBool("stdin"); fromStdin {
		return p.readLine()
	}
	return p.Secret(label)
}

func init() {
	verifyCmd.Flags().Bool("stdin", false, "read the plaintext from stdin")
	rootCmd.AddCommand(verifyCmd)
}
