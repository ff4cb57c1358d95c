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

package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"authbridge/internal/provider"
)

// fakeProvider mimics the flow executor and the user query endpoint
type fakeProvider struct {
	identifyStatus int
	passwordStatus int
	passwordBody   string
	user           map[string]any // nil means no results
	identifyDelay  time.Duration

	identifyCalls atomic.Int32
	passwordCalls atomic.Int32
	userCalls     atomic.Int32
}

func acceptingProvider() *fakeProvider {
	return &fakeProvider{
		identifyStatus: http.StatusOK,
		passwordStatus: http.StatusOK,
		passwordBody:   `{"component":"xak-flow-redirect","to":"/"}`,
		user: map[string]any{
			"username":  "jdoe",
			"is_active": true,
			"groups":    []any{"users", "vpn-users"},
		},
	}
}

func (f *fakeProvider) totalCalls() int32 {
	return f.identifyCalls.Load() + f.passwordCalls.Load() + f.userCalls.Load()
}

func (f *fakeProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasPrefix(r.URL.Path, "/api/v3/flows/executor/"):
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		switch body["component"] {
		case provider.ComponentIdentification:
			f.identifyCalls.Add(1)
			if f.identifyDelay > 0 {
				select {
				case <-time.After(f.identifyDelay):
				case <-r.Context().Done():
					return
				}
			}
			w.WriteHeader(f.identifyStatus)
			_, _ = w.Write([]byte(`{"component":"ak-stage-password"}`))
		case provider.ComponentPassword:
			f.passwordCalls.Add(1)
			w.WriteHeader(f.passwordStatus)
			_, _ = w.Write([]byte(f.passwordBody))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	case r.URL.Path == "/api/v3/core/users/":
		f.userCalls.Add(1)
		results := []any{}
		if f.user != nil {
			results = append(results, f.user)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"results": results})
	default:
		http.NotFound(w, r)
	}
}

func newBridge(t *testing.T, fp *fakeProvider, timeout time.Duration, logger *zap.Logger) *Bridge {
	t.Helper()
	srv := httptest.NewServer(fp)
	t.Cleanup(srv.Close)

	client, err := provider.NewClient(provider.Config{BaseURL: srv.URL, Token: "token", Timeout: timeout})
	require.NoError(t, err)
	return New(client, WithInputTimeout(time.Second), WithLogger(logger))
}

func run(b *Bridge, input string) (int, string) {
	var out bytes.Buffer
	code := b.Run(context.Background(), strings.NewReader(input), &out)
	return code, out.String()
}

func TestAcceptScenario(t *testing.T) {
	fp := acceptingProvider()
	b := newBridge(t, fp, 2*time.Second, nil)

	code, out := run(b, "User-Name=jdoe\nUser-Password=password123\n")

	assert.Equal(t, ExitAccept, code)
	assert.Equal(t, "Reply-Message = \"Welcome jdoe\"\nClass = \"users,vpn-users\"\n", out)
	assert.Equal(t, int32(1), fp.identifyCalls.Load())
	assert.Equal(t, int32(1), fp.passwordCalls.Load())
	assert.Equal(t, int32(1), fp.userCalls.Load())
}

func TestAcceptWithoutGroupsOmitsClass(t *testing.T) {
	fp := acceptingProvider()
	fp.user = map[string]any{"username": "jdoe"}
	b := newBridge(t, fp, 2*time.Second, nil)

	code, out := run(b, "User-Name=\"jdoe\"\nUser-Password=\"password123\"\n")

	assert.Equal(t, ExitAccept, code)
	assert.Equal(t, "Reply-Message = \"Welcome jdoe\"\n", out)
}

func TestInactiveOverridesSuccessfulFlow(t *testing.T) {
	fp := acceptingProvider()
	fp.user["is_active"] = false
	b := newBridge(t, fp, 2*time.Second, nil)

	code, out := run(b, "User-Name=jdoe\nUser-Password=password123\n")

	assert.NotEqual(t, ExitAccept, code)
	assert.NotContains(t, out, "Class")
	assert.Equal(t, "Reply-Message = \"Authentication failed\"\n", out)
	assert.Equal(t, int32(1), fp.passwordCalls.Load(), "password stage did succeed")
}

func TestMissingUserRecordRejects(t *testing.T) {
	fp := acceptingProvider()
	fp.user = nil
	b := newBridge(t, fp, 2*time.Second, nil)

	code, out := run(b, "User-Name=jdoe\nUser-Password=password123\n")

	assert.Equal(t, ExitReject, code)
	assert.Equal(t, "Reply-Message = \"Authentication failed\"\n", out)
}

func TestMalformedInputMakesNoNetworkCall(t *testing.T) {
	for name, input := range map[string]string{
		"no password":    "User-Name=jdoe\n",
		"no user":        "User-Password=password123\n",
		"empty":          "",
		"empty password": "User-Name=jdoe\nUser-Password=\"\"\n",
	} {
		t.Run(name, func(t *testing.T) {
			fp := acceptingProvider()
			b := newBridge(t, fp, 2*time.Second, nil)

			code, out := run(b, input)

			assert.NotEqual(t, ExitAccept, code)
			assert.Empty(t, out)
			assert.Zero(t, fp.totalCalls())
		})
	}
}

func TestIdentificationTimeoutRejectsWithSingleAttempt(t *testing.T) {
	fp := acceptingProvider()
	fp.identifyDelay = 2 * time.Second
	b := newBridge(t, fp, 100*time.Millisecond, nil)

	start := time.Now()
	code, out := run(b, "User-Name=jdoe\nUser-Password=password123\n")

	assert.NotEqual(t, ExitAccept, code)
	assert.Equal(t, "Reply-Message = \"Authentication failed\"\n", out)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, int32(1), fp.identifyCalls.Load(), "no retries")
	assert.Zero(t, fp.passwordCalls.Load())
	assert.Zero(t, fp.userCalls.Load())
}

func TestStageFailuresReject(t *testing.T) {
	tests := []struct {
		name   string
		modify func(fp *fakeProvider)
	}{
		{"identification 404", func(fp *fakeProvider) { fp.identifyStatus = http.StatusNotFound }},
		{"password 403", func(fp *fakeProvider) { fp.passwordStatus = http.StatusForbidden }},
		{"access denied challenge", func(fp *fakeProvider) { fp.passwordBody = `{"component":"ak-stage-access-denied"}` }},
		{"password errors", func(fp *fakeProvider) {
			fp.passwordBody = `{"component":"ak-stage-password","response_errors":{"password":[{"string":"Invalid password"}]}}`
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp := acceptingProvider()
			tt.modify(fp)
			b := newBridge(t, fp, 2*time.Second, nil)

			code, out := run(b, "User-Name=jdoe\nUser-Password=password123\n")
			assert.Equal(t, ExitReject, code)
			assert.Equal(t, "Reply-Message = \"Authentication failed\"\n", out)
			assert.Zero(t, fp.userCalls.Load(), "profile is only fetched after the password stage passes")
		})
	}
}

func TestUnreachableProviderRejects(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, err := provider.NewClient(provider.Config{BaseURL: url, Timeout: time.Second})
	require.NoError(t, err)

	code, out := run(New(client), "User-Name=jdoe\nUser-Password=password123\n")
	assert.Equal(t, ExitReject, code)
	assert.Equal(t, "Reply-Message = \"Authentication failed\"\n", out)
}

func TestReplyValuesAreEscaped(t *testing.T) {
	fp := acceptingProvider()
	fp.user["groups"] = []any{`we"ird`}
	b := newBridge(t, fp, 2*time.Second, nil)

	code, out := run(b, "User-Name=j\"doe\nUser-Password=password123\n")
	assert.Equal(t, ExitAccept, code)
	assert.Equal(t, "Reply-Message = \"Welcome j\\\"doe\"\nClass = \"we\\\"ird\"\n", out)
}

type panickyWriter struct{}

func (panickyWriter) Write([]byte) (int, error) { panic("stdout exploded") }

func TestPanicBecomesRejection(t *testing.T) {
	b := newBridge(t, acceptingProvider(), 2*time.Second, nil)

	var code int
	assert.NotPanics(t, func() {
		code = b.Run(context.Background(), strings.NewReader("User-Name=jdoe\nUser-Password=password123\n"), panickyWriter{})
	})
	assert.Equal(t, ExitReject, code)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestWriteFailureRejects(t *testing.T) {
	b := newBridge(t, acceptingProvider(), 2*time.Second, nil)
	code := b.Run(context.Background(), strings.NewReader("User-Name=jdoe\nUser-Password=password123\n"), failingWriter{})
	assert.Equal(t, ExitReject, code)
}

func TestLogsCarrySessionButNeverPassword(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	fp := acceptingProvider()
	fp.passwordStatus = http.StatusForbidden
	b := newBridge(t, fp, 2*time.Second, zap.New(core))

	run(b, "User-Name=jdoe\nUser-Password=s3cr3t-value\n")

	require.NotZero(t, logs.Len())
	sawSession := false
	for _, entry := range logs.All() {
		line := entry.Message
		for k, v := range entry.ContextMap() {
			line += fmt.Sprintf(" %s=%v", k, v)
		}
		assert.NotContains(t, line, "s3cr3t-value")
		if _, ok := entry.ContextMap()["session_id"]; ok {
			sawSession = true
			assert.Equal(t, "jdoe", entry.ContextMap()["principal"])
		}
	}
	assert.True(t, sawSession)
}

func TestConcurrentRequestsAreIndependent(t *testing.T) {
	fp := acceptingProvider()
	b := newBridge(t, fp, 2*time.Second, nil)

	const n = 8
	codes := make(chan int, n)
	for i := 0; i < n; i++ {
		go func() {
			code, _ := run(b, "User-Name=jdoe\nUser-Password=password123\n")
			codes <- code
		}()
	}
	for i := 0; i < n; i++ {
		assert.Equal(t, ExitAccept, <-codes)
	}
	assert.Equal(t, int32(n), fp.identifyCalls.Load())
}

func TestStageStrings(t *testing.T) {
	assert.Equal(t, "identifying", StageIdentifying.String())
	assert.Equal(t, "rejected", StageRejected.String())
	assert.True(t, StageAuthenticated.Terminal())
	assert.False(t, StageAwaitingPassword.Terminal())
}
