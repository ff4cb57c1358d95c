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

// Package crypto holds random secret generation helpers used by the CLI and
// the configuration assembler.
package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

// secretCharset is A-Z, a-z, 0-9 and URL-safe symbols
const secretCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789!@#$%^&*()-_=+"

// GenerateSecretValue creates a cryptographically secure random secret. Every
// character of secretCharset is equally likely.
func GenerateSecretValue(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive, got %d", length)
	}

	limit := big.NewInt(int64(len(secretCharset)))
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("failed to generate random index: %w", err)
		}
		result[i] = secretCharset[n.Int64()]
	}

	return string(result), nil
}

// GenerateURLSafeToken returns nBytes of randomness encoded as unpadded
// URL-safe base64. The result is roughly 1.3 times nBytes long.
func GenerateURLSafeToken(nBytes int) (string, error) {
	if nBytes <= 0 {
		return "", fmt.Errorf("byte count must be positive, got %d", nBytes)
	}

	raw := make([]byte, nBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// GeneratePassword returns a URL-safe password of exactly length characters
func GeneratePassword(length int) (string, error) {
	token, err := GenerateURLSafeToken(length)
	if err != nil {
		return "", err
	}
	return token[:length], nil
}
