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
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// binaryPath is built once by TestMain and shared by every test
var binaryPath string

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "authbridge-integration-")
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create build dir:", err)
		os.Exit(1)
	}

	binaryPath = filepath.Join(dir, "authbridge")
	build := exec.Command("go", "build", "-o", binaryPath, "..")
	if out, err := build.CombinedOutput(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to build authbridge: %v\n%s", err, out)
		os.RemoveAll(dir)
		os.Exit(1)
	}

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

// TestHelper runs the binary in an isolated configuration directory. Every
// test gets its own directory and a clean environment, so tests never share
// a secret store.
type TestHelper struct {
	t         *testing.T
	configDir string
}

// Result is one process run
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// NewTestHelper creates a helper whose settings keep hashing cheap. extra is
// appended to config.toml.
func NewTestHelper(t *testing.T, extra string) *TestHelper {
	t.Helper()

	dir := t.TempDir()
	settings := "[hasher]\nmemory_kib = 64\ntime = 1\nparallelism = 1\n" + extra
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(settings), 0600); err != nil {
		t.Fatalf("failed to write settings: %v", err)
	}
	return &TestHelper{t: t, configDir: dir}
}

// cleanEnv returns a minimal environment pointing at the test directory
func (h *TestHelper) cleanEnv() []string {
	return []string{
		"HOME=" + h.configDir,
		"AUTHBRIDGE_CONFIG_DIR=" + h.configDir,
		"PATH=" + os.Getenv("PATH"),
	}
}

// Run executes the binary with stdin and reports its exit status
func (h *TestHelper) Run(stdin string, args ...string) Result {
	h.t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(binaryPath, args...)
	cmd.Env = h.cleanEnv()
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	res := Result{}
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			h.t.Fatalf("failed to run authbridge %v: %v", args, err)
		}
		res.ExitCode = exitErr.ExitCode()
	}
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	return res
}

// MustRun is Run that fails the test on a non-zero exit
func (h *TestHelper) MustRun(stdin string, args ...string) Result {
	h.t.Helper()
	res := h.Run(stdin, args...)
	if res.ExitCode != 0 {
		h.t.Fatalf("authbridge %v exited %d\nstdout: %s\nstderr: %s", args, res.ExitCode, res.Stdout, res.Stderr)
	}
	return res
}
