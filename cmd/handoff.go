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
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/atotto/clipboard"
	"go.uber.org/zap"

	"authbridge/internal/bootstrap"
	"authbridge/internal/platform"
	"authbridge/pkg/secrets"
)

// clipboardWrite is replaced in tests
var clipboardWrite = clipboard.WriteAll

// initializer is an external command that consumes the staged secrets of one
// service
type initializer struct {
	service string
	command string
}

// parseInitializers parses service=command flag values
func parseInitializers(values []string) ([]initializer, error) {
	inits := make([]initializer, 0, len(values))
	for _, v := range values {
		service, command, ok := strings.Cut(v, "=")
		service, command = strings.TrimSpace(service), strings.TrimSpace(command)
		if !ok || service == "" || command == "" {
			return nil, fmt.Errorf("invalid initializer %q: expected service=command", v)
		}
		if err := ValidateSecureInput(service, ServiceValidationConfig); err != nil {
			return nil, fmt.Errorf("invalid initializer %q: %w", v, err)
		}
		inits = append(inits, initializer{service: service, command: command})
	}
	return inits, nil
}

// runInitializers hands every staged secret of each initializer's service to
// that initializer exactly once. The plaintext goes to the command's stdin and
// the credential is named in AUTHBRIDGE_SERVICE and AUTHBRIDGE_PRINCIPAL.
// It returns the keys whose plaintext was actually delivered.
func runInitializers(ctx context.Context, app *platform.Platform, inits []initializer, keys []secrets.Key, output io.Writer) (map[secrets.Key]bool, error) {
	delivered := make(map[secrets.Key]bool)
	for _, in := range inits {
		matched := false
		for _, key := range keys {
			if key.Service != in.service {
				continue
			}
			matched = true

			err := app.Bootstrap.Handoff(ctx, key.Service, key.Principal, func(ctx context.Context, plaintext string) error {
				c := exec.CommandContext(ctx, "/bin/sh", "-c", in.command)
				c.Env = append(os.Environ(),
					"AUTHBRIDGE_SERVICE="+key.Service,
					"AUTHBRIDGE_PRINCIPAL="+key.Principal)
				c.Stdin = strings.NewReader(plaintext)
				c.Stdout = output
				c.Stderr = output
				return c.Run()
			})
			switch {
			case errors.Is(err, bootstrap.ErrNothingStaged):
				app.Logger.Warn("No staged secret for initializer",
					zap.String("service", key.Service),
					zap.String("principal", key.Principal))
			case err != nil:
				return delivered, fmt.Errorf("initializer for %s failed: %w", key, err)
			default:
				delivered[key] = true
			}
		}
		if !matched {
			app.Logger.Warn("Initializer matches no credential", zap.String("service", in.service))
		}
	}
	return delivered, nil
}

// checkRotateInitializers rejects initializers that could never receive the
// rotated plaintext, before anything is replaced
func checkRotateInitializers(app *platform.Platform, inits []initializer, key secrets.Key) error {
	if len(inits) == 0 {
		return nil
	}
	if !app.Bootstrap.StagingEnabled() {
		return errors.New("initializers need plaintext staging; enable [bootstrap] stage_plaintext")
	}
	for _, in := range inits {
		if in.service != key.Service {
			return fmt.Errorf("initializer for service %q cannot receive %s", in.service, key)
		}
	}
	return nil
}

// copyStagedToClipboard takes one staged secret and puts it on the clipboard
func copyStagedToClipboard(ctx context.Context, app *platform.Platform, key secrets.Key) error {
	err := app.Bootstrap.Handoff(ctx, key.Service, key.Principal, func(_ context.Context, plaintext string) error {
		return clipboardWrite(plaintext)
	})
	if err != nil {
		return fmt.Errorf("failed to copy %s to clipboard: %w", key, err)
	}
	return nil
}
