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
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authbridge/pkg/errors"
)

func TestParseAttributes(t *testing.T) {
	input := strings.Join([]string{
		`User-Name = "jdoe"`,
		`User-Password="pass=word"`,
		`NAS-IP-Address = 10.0.0.1`,
		``,
		`garbage line`,
		`  = orphan`,
		`Calling-Station-Id = ""`,
		`Quoted-Inside = a"b"c`,
	}, "\n")

	attrs, err := ParseAttributes(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, Attributes{
		"User-Name":          "jdoe",
		"User-Password":      "pass=word",
		"NAS-IP-Address":     "10.0.0.1",
		"Calling-Station-Id": "",
		"Quoted-Inside":      `a"b"c`,
	}, attrs)
}

func TestParseAttributesLastValueWins(t *testing.T) {
	attrs, err := ParseAttributes(strings.NewReader("User-Name=first\nUser-Name=second\n"))
	require.NoError(t, err)
	assert.Equal(t, "second", attrs[AttrUserName])
}

func TestParseAttributesWithoutTrailingNewline(t *testing.T) {
	attrs, err := ParseAttributes(strings.NewReader("User-Name=jdoe\nUser-Password=password123"))
	require.NoError(t, err)

	user, password, err := attrs.Credentials()
	require.NoError(t, err)
	assert.Equal(t, "jdoe", user)
	assert.Equal(t, "password123", password)
}

func TestParseAttributesLineTooLong(t *testing.T) {
	_, err := ParseAttributes(strings.NewReader("User-Name=" + strings.Repeat("a", maxAttributeLine+1)))
	assert.True(t, errors.HasCode(err, errors.ErrCodeMalformedInput))
}

func TestCredentialsMissing(t *testing.T) {
	tests := map[string]Attributes{
		"no password":    {AttrUserName: "jdoe"},
		"no user":        {AttrUserPassword: "pw"},
		"empty password": {AttrUserName: "jdoe", AttrUserPassword: ""},
		"empty quoted":   {AttrUserName: "", AttrUserPassword: "pw"},
		"nothing":        {},
	}
	for name, attrs := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := attrs.Credentials()
			assert.True(t, errors.HasCode(err, errors.ErrCodeMalformedInput))
		})
	}
}

func TestReadAttributesTimeout(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	start := time.Now()
	_, err := ReadAttributes(context.Background(), pr, 30*time.Millisecond)
	assert.True(t, errors.HasCode(err, errors.ErrCodeMalformedInput))
	assert.Less(t, time.Since(start), time.Second)
}

func TestReadAttributesCancelled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ReadAttributes(ctx, pr, time.Minute)
	assert.True(t, errors.HasCode(err, errors.ErrCodeMalformedInput))
}

func TestReadAttributesReaderError(t *testing.T) {
	pr, pw := io.Pipe()
	go func() {
		_, _ = pw.Write([]byte("User-Name=jdoe\n"))
		pw.CloseWithError(io.ErrUnexpectedEOF)
	}()

	_, err := ReadAttributes(context.Background(), pr, time.Second)
	assert.True(t, errors.HasCode(err, errors.ErrCodeMalformedInput))
}

type panickyReader struct{}

func (panickyReader) Read([]byte) (int, error) { panic("reader exploded") }

func TestReadAttributesReaderPanic(t *testing.T) {
	_, err := ReadAttributes(context.Background(), panickyReader{}, time.Second)
	assert.True(t, errors.HasCode(err, errors.ErrCodeMalformedInput))
}
