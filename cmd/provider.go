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

var providerCmd = &cobra.Command{
	Use:   "provider",
	Short: "Talk to the identity provider.",
}

var providerProbeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Report whether the identity provider already has an admin.",
	Long: `Ask the identity provider whether a superuser exists. Only a clear answer
is reported; anything else is an error and the command exits non-zero, so
bootstrap scripts never continue on a guess.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, log, err := loadRuntime()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		client, err := platform.NewProviderClient(settings, log)
		if err != nil {
			return err
		}
		state, err := client.ProbeAdmin(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "admin: %s\n", state)
		return nil
	},
}

func init() {
	providerCmd.AddCommand(providerProbeCmd)
	rootCmd.AddCommand(providerCmd)
}
