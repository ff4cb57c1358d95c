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
package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

// TestRadiusAuthExitStatus checks what the RADIUS server's exec module relies
// on: exit 0 with reply attributes to accept, non-zero to reject, and nothing
// but attributes on stdout.
func TestRadiusAuthExitStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch {
		case strings.HasPrefix(r.URL.Path, "/api/v3/flows/executor/"):
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["component"] == "ak-stage-password" && body["password"] != "hunter2hunter2" {
				_, _ = w.Write([]byte(`{"component":"ak-stage-password","response_errors":{"password":[{"string":"Invalid password"}]}}`))
				return
			}
			_, _ = w.Write([]byte(`{"component":"xak-flow-redirect","to":"/"}`))
		case r.URL.Path == "/api/v3/core/users/":
			_, _ = w.Write([]byte(`{"results":[{"username":"jdoe","is_active":true,"groups":["radius-users"]}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	h := NewTestHelper(t, "[provider]\nurl = \""+srv.URL+"\"\ntoken = \"integration-token\"\n")

	tests := []struct {
		name     string
		input    string
		exitCode int
		stdout   string
		network  bool
	}{
		{
			name:     "accept",
			input:    "User-Name = \"jdoe\"\nUser-Password = \"hunter2hunter2\"\n",
			exitCode: 0,
			stdout:   "Reply-Message = \"Welcome jdoe\"\nClass = \"radius-users\"\n",
			network:  true,
		},
		{
			name:     "wrong_password",
			input:    "User-Name = \"jdoe\"\nUser-Password = \"nope\"\n",
			exitCode: 1,
			stdout:   "Reply-Message = \"Authentication failed\"\n",
			network:  true,
		},
		{
			name:     "missing_password",
			input:    "User-Name = \"jdoe\"\n",
			exitCode: 1,
		},
		{
			name:     "empty_input",
			exitCode: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := calls.Load()
			res := h.Run(tt.input, "radius-auth")

			if res.ExitCode != tt.exitCode {
				t.Errorf("exit code = %d, want %d (stderr: %s)", res.ExitCode, tt.exitCode, res.Stderr)
			}
			if res.Stdout != tt.stdout {
				t.Errorf("stdout = %q, want %q", res.Stdout, tt.stdout)
			}
			if made := calls.Load() > before; made != tt.network {
				t.Errorf("provider contacted = %v, want %v", made, tt.network)
			}
			if strings.Contains(res.Stderr, "hunter2hunter2") {
				t.Error("password leaked into logs")
			}
		})
	}
}

// TestRadiusAuthUnreachableProvider rejects instead of hanging or crashing
func TestRadiusAuthUnreachableProvider(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	h := NewTestHelper(t, "[provider]\nurl = \""+url+"\"\ntoken = \"integration-token\"\ntimeout = \"2s\"\n")
	res := h.Run("User-Name=jdoe\nUser-Password=pw\n", "radius-auth")

	if res.ExitCode == 0 {
		t.Fatal("expected a rejection")
	}
	if res.Stdout != "Reply-Message = \"Authentication failed\"\n" {
		t.Errorf("stdout = %q", res.Stdout)
	}
}

// TestBootstrapLifecycle runs init, verify and rotate as separate processes,
// so nothing staged in one process is visible to the next
func TestBootstrapLifecycle(t *testing.T) {
	h := NewTestHelper(t, "")
	capture := filepath.Join(t.TempDir(), "radius.secret")

	h.MustRun("", "init", "--admin-email", "admin@example.com", "--generate",
		"--initializer", "radius=cat > "+capture)

	secret, err := os.ReadFile(capture)
	if err != nil {
		t.Fatalf("initializer did not receive the secret: %v", err)
	}

	h.MustRun(string(secret)+"\n", "verify", "radius", "shared-secret", "--stdin")
	if res := h.Run("not-it\n", "verify", "radius", "shared-secret", "--stdin"); res.ExitCode != 1 {
		t.Errorf("verify with wrong secret exited %d, want 1", res.ExitCode)
	}

	if res := h.Run("", "init", "--admin-email", "admin@example.com", "--generate"); res.ExitCode == 0 {
		t.Error("second init should fail")
	}

	h.MustRun("rotated-secret\n", "rotate", "radius", "shared-secret", "--stdin", "--actor", "integration")
	h.MustRun("rotated-secret\n", "verify", "radius", "shared-secret", "--stdin")

	res := h.MustRun("", "config", "show", "--format", "json")
	if strings.Contains(res.Stdout, "rotated-secret") || strings.Contains(res.Stdout, string(secret)) {
		t.Error("config show printed a plaintext secret")
	}
	if !strings.Contains(res.Stdout, "integration") {
		t.Error("rotation actor missing from audit trail")
	}
}
