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
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"authbridge/pkg/errors"
)

// Attribute names read from the request
const (
	AttrUserName     = "User-Name"
	AttrUserPassword = "User-Password"
)

const maxAttributeLine = 64 * 1024

// Attributes are the Key=Value pairs of one request. Later keys replace
// earlier ones.
type Attributes map[string]string

// ParseAttributes reads Key=Value lines until EOF. Whitespace around the key
// and value is trimmed and one pair of surrounding double quotes is removed.
// Lines without '=' are ignored.
func ParseAttributes(r io.Reader) (Attributes, error) {
	attrs := make(Attributes)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxAttributeLine)
	for scanner.Scan() {
		key, value, found := strings.Cut(scanner.Text(), "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		attrs[key] = unquote(strings.TrimSpace(value))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.NewMalformedInputError(fmt.Sprintf("failed to read attributes: %v", err))
	}
	return attrs, nil
}

// ReadAttributes is ParseAttributes bounded by timeout and ctx. A read that
// does not finish in time is malformed input; the partial data is dropped.
func ReadAttributes(ctx context.Context, r io.Reader, timeout time.Duration) (Attributes, error) {
	type result struct {
		attrs Attributes
		err   error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- result{nil, errors.NewMalformedInputError(fmt.Sprintf("attribute reader failed: %v", rec))}
			}
		}()
		attrs, err := ParseAttributes(r)
		done <- result{attrs, err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-done:
		return res.attrs, res.err
	case <-timer.C:
		return nil, errors.NewMalformedInputError(fmt.Sprintf("attribute input not complete after %s", timeout))
	case <-ctx.Done():
		return nil, errors.NewMalformedInputError("attribute input cancelled: " + ctx.Err().Error())
	}
}

// Credentials returns the user name and password, or MALFORMED_INPUT when
// either is missing or empty
func (a Attributes) Credentials() (string, string, error) {
	user := a[AttrUserName]
	password := a[AttrUserPassword]

	var missing []string
	if user == "" {
		missing = append(missing, AttrUserName)
	}
	if password == "" {
		missing = append(missing, AttrUserPassword)
	}
	if len(missing) > 0 {
		return "", "", errors.NewMalformedInputError("missing " + strings.Join(missing, " and "))
	}
	return user, password, nil
}

func unquote(v string) string {
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		return v[1 : len(v)-1]
	}
	return v
}
