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

var statusCmd = &cobra.Command{
	Use:         "status",
	Short:       "Show initialization state and stored credentials.",
	Args:        cobra.NoArgs,
	Annotations: platformAnnotations(),
	RunE: withPlatform(func(cmd *cobra.Command, args []string, app *platform.Platform) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		fmt.Fprintf(out, "Config directory: %s\n", app.Settings.ConfigDir)
		fmt.Fprintf(out, "Secret store:     %s (%s)\n", app.Settings.StorePath(), app.Settings.Store.Backend)
		fmt.Fprintf(out, "Initialized:      %t\n", app.Config.IsInitialized())

		if err := app.Health(ctx); err != nil {
			return err
		}

		keys, err := app.Store.Keys(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Credentials:      %d\n", len(keys))
		for _, key := range keys {
			fmt.Fprintf(out, "   %s\n", key)
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
