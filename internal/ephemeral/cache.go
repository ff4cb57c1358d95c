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

// Package ephemeral holds plaintext bootstrap secrets in memory until exactly
// one consumer takes them. Nothing here is ever written to disk.
package ephemeral

import (
	"errors"
	"sync"

	"authbridge/pkg/secrets"
)

// ErrNotSerializable is returned by every encoding hook on Cache
var ErrNotSerializable = errors.New("ephemeral secret cache cannot be serialized")

// Cache is a set of single-consumption slots keyed by (service, principal).
// It deliberately has no way to enumerate its contents.
type Cache struct {
	slots sync.Map // secrets.Key -> string
}

// New creates an empty cache
func New() *Cache {
	return &Cache{}
}

// Set stages plaintext for (service, principal), replacing any staged value
func (c *Cache) Set(service, principal, plaintext string) {
	c.slots.Store(secrets.NewKey(service, principal), plaintext)
}

// TakeOnce returns the staged value and clears the slot in one atomic step.
// Concurrent callers for the same key see the value at most once between
// them; everyone else gets ("", false).
func (c *Cache) TakeOnce(service, principal string) (string, bool) {
	v, ok := c.slots.LoadAndDelete(secrets.NewKey(service, principal))
	if !ok {
		return "", false
	}
	return v.(string), true
}

// Discard drops a staged value without reading it
func (c *Cache) Discard(service, principal string) {
	c.slots.Delete(secrets.NewKey(service, principal))
}

// Clear drops every staged value
func (c *Cache) Clear() {
	c.slots.Clear()
}

// MarshalJSON always fails
func (c *Cache) MarshalJSON() ([]byte, error) {
	return nil, ErrNotSerializable
}

// MarshalText always fails
func (c *Cache) MarshalText() ([]byte, error) {
	return nil, ErrNotSerializable
}

// GobEncode always fails
func (c *Cache) GobEncode() ([]byte, error) {
	return nil, ErrNotSerializable
}

func (c *Cache) String() string {
	return "ephemeral.Cache{<redacted>}"
}

// GoString keeps %#v from printing the slots
func (c *Cache) GoString() string {
	return c.String()
}
