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
	"strings"
	"unicode"
)

// ValidationConfig controls which rules apply to a command argument
type ValidationConfig struct {
	EntityType          string // "service", "principal", ... for error messages
	MaxLength           int    // 0 means unlimited
	AllowPathTraversal  bool   // Whether path separators and .. are allowed
	AllowShellMetachars bool   // Whether shell metacharacters are allowed
}

// shellMetachars can change the meaning of a value that ends up in an
// initializer's environment or command line
var shellMetachars = []string{"$", "`", ";", "|", "&", ">", "<", "*", "?", "[", "]", "{", "}", "~", "!", "#", "'", `"`}

// ValidateSecureInput checks a credential name given on the command line
func ValidateSecureInput(input string, config ValidationConfig) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("%s cannot be empty", config.EntityType)
	}
	if config.MaxLength > 0 && len(input) > config.MaxLength {
		return fmt.Errorf("%s cannot be longer than %d characters", config.EntityType, config.MaxLength)
	}

	for _, r := range input {
		if unicode.IsControl(r) {
			return fmt.Errorf("%s cannot contain control characters", config.EntityType)
		}
		if unicode.IsSpace(r) {
			return fmt.Errorf("%s cannot contain whitespace", config.EntityType)
		}
	}

	if !config.AllowPathTraversal {
		if strings.Contains(input, "..") || strings.ContainsAny(input, `/\`) {
			return fmt.Errorf("%s cannot contain path separators or path traversal sequences", config.EntityType)
		}
	}

	if !config.AllowShellMetachars {
		for _, char := range shellMetachars {
			if strings.Contains(input, char) {
				return fmt.Errorf("%s cannot contain shell metacharacters (found: %q)", config.EntityType, char)
			}
		}
	}
	return nil
}

// ServiceValidationConfig validates service names
var ServiceValidationConfig = ValidationConfig{
	EntityType: "service",
	MaxLength:  64,
}

// PrincipalValidationConfig validates principals. Directory principals may be
// email addresses, so only the shared rules apply.
var PrincipalValidationConfig = ValidationConfig{
	EntityType: "principal",
	MaxLength:  256,
}

// validateCredentialArgs validates a <service> <principal> argument pair
func validateCredentialArgs(service, principal string) error {
	if err := ValidateSecureInput(service, ServiceValidationConfig); err != nil {
		return err
	}
	return ValidateSecureInput(principal, PrincipalValidationConfig)
}
