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

// Package sysconfig assembles, persists and updates the system configuration
// shared by the identity provider, database, directory and RADIUS services.
package sysconfig

import (
	"encoding/json"
	"time"
)

// FormatVersion is written to every saved configuration
const FormatVersion = "1.0"

// Section names, also used in audit entries
const (
	SectionAdmin     = "admin"
	SectionDatabase  = "database"
	SectionDirectory = "ldap"
	SectionRadius    = "radius"
	SectionSecurity  = "security"
)

// AdminSection holds the identity provider administrator
type AdminSection struct {
	Email        string `json:"email" yaml:"email"`
	PasswordHash string `json:"password_hash" yaml:"password_hash"`
}

// DatabaseSection holds the database account used by the identity provider
type DatabaseSection struct {
	Username     string `json:"username" yaml:"username"`
	PasswordHash string `json:"password_hash" yaml:"password_hash"`
	Database     string `json:"database" yaml:"database"`
	Host         string `json:"host" yaml:"host"`
	Port         int    `json:"port" yaml:"port"`
}

// DirectorySection holds the LDAP directory bind accounts
type DirectorySection struct {
	BaseDN               string `json:"base_dn" yaml:"base_dn"`
	AdminPasswordHash    string `json:"admin_password_hash" yaml:"admin_password_hash"`
	ReadonlyPasswordHash string `json:"readonly_password_hash" yaml:"readonly_password_hash"`
	Host                 string `json:"host" yaml:"host"`
	Port                 int    `json:"port" yaml:"port"`
}

// RadiusSection holds the RADIUS shared secret and the allowed clients
type RadiusSection struct {
	SharedSecretHash string   `json:"shared_secret_hash" yaml:"shared_secret_hash"`
	Clients          []string `json:"clients" yaml:"clients"`
}

// SecuritySection holds generated key material that collaborators need
// verbatim. None of it is a login credential.
type SecuritySection struct {
	SecretKey string `json:"authentik_secret_key" yaml:"authentik_secret_key"`
	APIToken  string `json:"api_token" yaml:"api_token"`
}

// AuditEntry records that a secret field changed. It never holds the value.
type AuditEntry struct {
	At      time.Time `json:"at" yaml:"at"`
	Actor   string    `json:"actor" yaml:"actor"`
	Section string    `json:"section" yaml:"section"`
	Field   string    `json:"field" yaml:"field"`
}

type document struct {
	Version     string           `json:"version" yaml:"version"`
	Initialized bool             `json:"initialized" yaml:"initialized"`
	CreatedAt   time.Time        `json:"created_at" yaml:"created_at"`
	Admin       AdminSection     `json:"admin" yaml:"admin"`
	Database    DatabaseSection  `json:"database" yaml:"database"`
	Directory   DirectorySection `json:"ldap" yaml:"ldap"`
	Radius      *RadiusSection   `json:"radius,omitempty" yaml:"radius,omitempty"`
	Security    SecuritySection  `json:"security" yaml:"security"`
	Audit       []AuditEntry     `json:"audit,omitempty" yaml:"audit,omitempty"`
}

// SystemConfiguration is the assembled configuration. It is read-only: values
// come from a Builder or from disk, and secrets change only through
// Manager.UpdateSecret, which produces a new value.
type SystemConfiguration struct {
	doc document
}

func (c *SystemConfiguration) Version() string   { return c.doc.Version }
func (c *SystemConfiguration) Initialized() bool { return c.doc.Initialized }
func (c *SystemConfiguration) CreatedAt() time.Time {
	return c.doc.CreatedAt
}
func (c *SystemConfiguration) Admin() AdminSection         { return c.doc.Admin }
func (c *SystemConfiguration) Database() DatabaseSection   { return c.doc.Database }
func (c *SystemConfiguration) Directory() DirectorySection { return c.doc.Directory }
func (c *SystemConfiguration) Security() SecuritySection   { return c.doc.Security }

// Radius returns the RADIUS section and whether it was configured
func (c *SystemConfiguration) Radius() (RadiusSection, bool) {
	if c.doc.Radius == nil {
		return RadiusSection{}, false
	}
	r := *c.doc.Radius
	r.Clients = append([]string(nil), r.Clients...)
	return r, true
}

// Audit returns a copy of the audit trail
func (c *SystemConfiguration) Audit() []AuditEntry {
	return append([]AuditEntry(nil), c.doc.Audit...)
}

func (c *SystemConfiguration) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.doc)
}

func (c *SystemConfiguration) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &c.doc)
}

// MarshalYAML implements yaml.Marshaler
func (c *SystemConfiguration) MarshalYAML() (any, error) {
	return c.doc, nil
}

// Redacted returns a copy with the security key material masked, for display
func (c *SystemConfiguration) Redacted() *SystemConfiguration {
	out := c.clone()
	if out.doc.Security.SecretKey != "" {
		out.doc.Security.SecretKey = redactedValue
	}
	if out.doc.Security.APIToken != "" {
		out.doc.Security.APIToken = redactedValue
	}
	return out
}

const redactedValue = "<redacted>"

func (c *SystemConfiguration) clone() *SystemConfiguration {
	out := &SystemConfiguration{doc: c.doc}
	if c.doc.Radius != nil {
		r := *c.doc.Radius
		r.Clients = append([]string(nil), r.Clients...)
		out.doc.Radius = &r
	}
	out.doc.Audit = append([]AuditEntry(nil), c.doc.Audit...)
	return out
}

// secretField points at the hash slot for (section, field)
func (d *document) secretField(section, field string) (*string, bool) {
	switch section + "." + field {
	case SectionAdmin + ".password":
		return &d.Admin.PasswordHash, true
	case SectionDatabase + ".password":
		return &d.Database.PasswordHash, true
	case SectionDirectory + ".admin_password":
		return &d.Directory.AdminPasswordHash, true
	case SectionDirectory + ".readonly_password":
		return &d.Directory.ReadonlyPasswordHash, true
	case SectionRadius + ".shared_secret":
		if d.Radius == nil {
			return nil, false
		}
		return &d.Radius.SharedSecretHash, true
	}
	return nil, false
}

// withSecretHash returns a copy with the hash replaced and an audit entry
// appended
func (c *SystemConfiguration) withSecretHash(section, field, hash, actor string, at time.Time) (*SystemConfiguration, bool) {
	out := c.clone()
	slot, ok := out.doc.secretField(section, field)
	if !ok {
		return nil, false
	}
	*slot = hash
	out.doc.Audit = append(out.doc.Audit, AuditEntry{
		At:      at,
		Actor:   actor,
		Section: section,
		Field:   field,
	})
	return out, true
}
