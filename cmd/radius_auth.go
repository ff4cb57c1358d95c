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
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"authbridge/internal/bridge"
	"authbridge/internal/platform"
)

var radiusAuthCmd = &cobra.Command{
	Use:   "radius-auth",
	Short: "Authenticate one RADIUS request against the identity provider.",
	Long: `Run as the RADIUS server's exec module. Reads Key=Value attributes on
stdin (User-Name and User-Password are required), authenticates through the
identity provider's flow executor and writes reply attributes on stdout.

Exit status 0 accepts the request; anything else rejects it. Logs go to
stderr or the configured log file, never stdout.`,
	Example: `  printf 'User-Name = "jdoe"\nUser-Password = "secret"\n' | authbridge radius-auth`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		settings, log, err := loadRuntime()
		if err != nil {
			_ = bridge.WriteReply(out, bridge.Outcome{Stage: bridge.StageRejected})
			return &ExitError{Code: bridge.ExitReject, Err: err}
		}
		defer func() { _ = log.Sync() }()

		b, err := platform.NewBridge(settings, log)
		if err != nil {
			log.Error("Bridge is not configured", zap.Error(err))
			_ = bridge.WriteReply(out, bridge.Outcome{Stage: bridge.StageRejected})
			return &ExitError{Code: bridge.ExitReject}
		}

		if code := b.Run(cmd.Context(), cmd.InOrStdin(), out); code != bridge.ExitAccept {
			return &ExitError{Code: code}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(radiusAuthCmd)
}
