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

package crypto

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestGenerateSecretValue(t *testing.T) {
	tests := []struct {
		name    string
		length  int
		wantErr bool
	}{
		{"valid length", 32, false},
		{"minimum length", 1, false},
		{"large length", 1000, false},
		{"zero length", 0, true},
		{"negative length", -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := GenerateSecretValue(tt.length)

			if tt.wantErr {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			if len(result) != tt.length {
				t.Errorf("expected length %d, got %d", tt.length, len(result))
			}

			for _, char := range result {
				if !strings.ContainsRune(secretCharset, char) {
					t.Errorf("invalid character %c in generated secret", char)
				}
			}
		})
	}
}

func TestGenerateSecretValue_Randomness(t *testing.T) {
	secrets := make([]string, 10)
	for i := range secrets {
		var err error
		secrets[i], err = GenerateSecretValue(32)
		if err != nil {
			t.Fatalf("failed to generate secret %d: %v", i, err)
		}
	}

	for i := 0; i < len(secrets); i++ {
		for j := i + 1; j < len(secrets); j++ {
			if secrets[i] == secrets[j] {
				t.Errorf("generated duplicate secrets: %q", secrets[i])
			}
		}
	}
}

func TestGenerateSecretValue_Uniform(t *testing.T) {
	const draws = 100000
	value, err := GenerateSecretValue(draws)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Reducing a random byte modulo 77 favors the first 25 characters, giving
	// them about 39% of draws instead of 32%.
	head := secretCharset[:25]
	count := 0
	for _, char := range value {
		if strings.ContainsRune(head, char) {
			count++
		}
	}
	share := float64(count) / draws
	if share > 0.3577 {
		t.Errorf("first 25 characters drawn %.4f of the time, expected about %.4f", share, 25.0/77.0)
	}
}

func TestGenerateURLSafeToken(t *testing.T) {
	token, err := GenerateURLSafeToken(32)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		t.Fatalf("token is not url-safe base64: %v", err)
	}
	if len(raw) != 32 {
		t.Errorf("expected 32 random bytes, got %d", len(raw))
	}

	if _, err := GenerateURLSafeToken(0); err == nil {
		t.Error("expected error for zero byte count")
	}
}

func TestGeneratePassword(t *testing.T) {
	for _, length := range []int{1, 12, 16, 50} {
		password, err := GeneratePassword(length)
		if err != nil {
			t.Fatalf("length %d: unexpected error: %v", length, err)
		}
		if len(password) != length {
			t.Errorf("expected length %d, got %d", length, len(password))
		}
		if strings.ContainsAny(password, "+/=") {
			t.Errorf("password %q is not url-safe", password)
		}
	}
}
