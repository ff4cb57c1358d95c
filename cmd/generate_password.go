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

	"authbridge/pkg/crypto"
)

var generatePasswordCmd = &cobra.Command{
	Use:     "generate-password",
	Short:   "Print a random password.",
	Long: `Print a random password. By default it only uses URL-safe characters, so it
can be pasted into connection strings and environment files unquoted. With
--symbols punctuation is mixed in as well.`,
	Example: `  authbridge generate-password --length 32
  authbridge generate-password --symbols`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		length, _ := cmd.Flags().GetInt("length")
		generate := crypto.GeneratePassword
		if symbols, _ := cmd.Flags().GetBool("symbols"); symbols {
			generate = crypto.GenerateSecretValue
		}
		password, err := generate(length)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), password)
		return nil
	},
}

func init() {
	generatePasswordCmd.Flags().IntP("length", "l", 16, "password length")
	generatePasswordCmd.Flags().Bool("symbols", false, "include punctuation")
	rootCmd.AddCommand(generatePasswordCmd)
}
