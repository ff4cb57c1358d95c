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

package secrets

import (
	"fmt"
	"strings"
	"time"
)

// Key identifies a credential by the service it belongs to and the principal
// that logs in with it
type Key struct {
	Service   string `json:"service"`
	Principal string `json:"principal"`
}

// NewKey builds a Key
func NewKey(service, principal string) Key {
	return Key{Service: service, Principal: principal}
}

// Validate rejects keys that cannot be stored unambiguously
func (k Key) Validate() error {
	if strings.TrimSpace(k.Service) == "" {
		return fmt.Errorf("service cannot be empty")
	}
	if strings.TrimSpace(k.Principal) == "" {
		return fmt.Errorf("principal cannot be empty")
	}
	if strings.ContainsRune(k.Service, 0) || strings.ContainsRune(k.Principal, 0) {
		return fmt.Errorf("service and principal cannot contain null bytes")
	}
	return nil
}

func (k Key) String() string {
	return k.Service + "/" + k.Principal
}

// HashRecord is the persisted one-way hash of a credential. The plaintext is
// never recoverable from it.
type HashRecord struct {
	Service   string    `json:"service"`
	Principal string    `json:"principal"`
	Hash      string    `json:"hash"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewHashRecord creates a record for a freshly initialized credential
func NewHashRecord(key Key, hash string) *HashRecord {
	now := time.Now().UTC()
	return &HashRecord{
		Service:   key.Service,
		Principal: key.Principal,
		Hash:      hash,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Key returns the record's key
func (r *HashRecord) Key() Key {
	return Key{Service: r.Service, Principal: r.Principal}
}

// UpdateHash replaces the hash and bumps UpdatedAt
func (r *HashRecord) UpdateHash(hash string) {
	r.Hash = hash
	r.UpdatedAt = time.Now().UTC()
}
