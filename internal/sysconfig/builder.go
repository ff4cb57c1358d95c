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

package sysconfig

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"authbridge/pkg/crypto"
	"authbridge/pkg/errors"
	"authbridge/pkg/secrets"
)

// Defaults for the collaborating services
const (
	DefaultDatabaseHost    = "postgresql"
	DefaultDatabasePort    = 5432
	DefaultDatabaseUser    = "authentik"
	DefaultDatabaseName    = "authentik"
	DefaultDirectoryHost   = "openldap"
	DefaultDirectoryPort   = 389
	DefaultDirectoryBaseDN = "dc=local,dc=auth"
	MinAdminPasswordLength = 12

	secretKeyBytes = 50
	apiTokenBytes  = 32
)

// ErrBuilderConsumed is recorded by any setter called after Build and
// returned by a second Build
var ErrBuilderConsumed = stderrors.New("configuration builder already built")

// StagedSecret is a plaintext handed to the sink. It prints redacted.
type StagedSecret struct {
	Service   string
	Principal string
	Plaintext string
}

func (s StagedSecret) String() string {
	return fmt.Sprintf("StagedSecret{%s/%s <redacted>}", s.Service, s.Principal)
}

// GoString keeps %#v from printing the plaintext
func (s StagedSecret) GoString() string {
	return s.String()
}

// Sink receives each plaintext accepted by a setter. It is the only path by
// which plaintext leaves the builder.
type Sink func(StagedSecret)

// Builder assembles a SystemConfiguration. Setters chain; the first error is
// kept and returned by Build. A Builder can be built once.
type Builder struct {
	hasher secrets.Hasher
	sink   Sink
	draft  *document
	err    error
	now    func() time.Time

	hasAdmin, hasDatabase, hasDirectory bool
}

// NewBuilder creates a Builder. A nil sink discards plaintexts.
func NewBuilder(hasher secrets.Hasher, sink Sink) *Builder {
	if sink == nil {
		sink = func(StagedSecret) {}
	}
	return &Builder{
		hasher: hasher,
		sink:   sink,
		draft:  &document{Version: FormatVersion},
		now:    time.Now,
	}
}

// Admin sets the identity provider administrator
func (b *Builder) Admin(email, password string) *Builder {
	if !b.usable() {
		return b
	}
	if strings.TrimSpace(email) == "" || !strings.Contains(email, "@") {
		return b.fail(errors.NewInvalidInputError("admin_email", "must be an email address"))
	}
	if len(password) < MinAdminPasswordLength {
		return b.fail(errors.NewInvalidInputError("admin_password", fmt.Sprintf("must be at least %d characters", MinAdminPasswordLength)))
	}

	hash, ok := b.hash(ServiceIdentityProvider, PrincipalAdmin, password)
	if !ok {
		return b
	}
	b.draft.Admin = AdminSection{Email: email, PasswordHash: hash}
	b.hasAdmin = true
	return b
}

// Database sets the database account. Empty username or database fall back
// to the defaults.
func (b *Builder) Database(username, password, database string) *Builder {
	if !b.usable() {
		return b
	}
	if username == "" {
		username = DefaultDatabaseUser
	}
	if database == "" {
		database = DefaultDatabaseName
	}
	if password == "" {
		return b.fail(errors.NewInvalidInputError("db_password", "cannot be empty"))
	}

	hash, ok := b.hash(ServiceDatabase, username, password)
	if !ok {
		return b
	}
	b.draft.Database = DatabaseSection{
		Username:     username,
		PasswordHash: hash,
		Database:     database,
		Host:         DefaultDatabaseHost,
		Port:         DefaultDatabasePort,
	}
	b.hasDatabase = true
	return b
}

// Directory sets the LDAP base DN and bind passwords
func (b *Builder) Directory(baseDN, adminPassword, readonlyPassword string) *Builder {
	if !b.usable() {
		return b
	}
	if baseDN == "" {
		baseDN = DefaultDirectoryBaseDN
	}
	if adminPassword == "" {
		return b.fail(errors.NewInvalidInputError("ldap_admin_password", "cannot be empty"))
	}
	if readonlyPassword == "" {
		return b.fail(errors.NewInvalidInputError("ldap_readonly_password", "cannot be empty"))
	}

	adminHash, ok := b.hash(ServiceDirectory, PrincipalAdmin, adminPassword)
	if !ok {
		return b
	}
	readonlyHash, ok := b.hash(ServiceDirectory, PrincipalReadonly, readonlyPassword)
	if !ok {
		return b
	}
	b.draft.Directory = DirectorySection{
		BaseDN:               baseDN,
		AdminPasswordHash:    adminHash,
		ReadonlyPasswordHash: readonlyHash,
		Host:                 DefaultDirectoryHost,
		Port:                 DefaultDirectoryPort,
	}
	b.hasDirectory = true
	return b
}

// Radius sets the shared secret and the allowed client addresses
func (b *Builder) Radius(sharedSecret string, clients []string) *Builder {
	if !b.usable() {
		return b
	}
	if sharedSecret == "" {
		return b.fail(errors.NewInvalidInputError("radius_secret", "cannot be empty"))
	}

	hash, ok := b.hash(ServiceRadius, PrincipalSharedSecret, sharedSecret)
	if !ok {
		return b
	}
	b.draft.Radius = &RadiusSection{
		SharedSecretHash: hash,
		Clients:          append([]string{}, clients...),
	}
	return b
}

// Security generates the identity provider secret key and the API token.
// Build calls it when it was not set explicitly.
func (b *Builder) Security() *Builder {
	if !b.usable() {
		return b
	}
	security, err := generateSecurity()
	if err != nil {
		return b.fail(err)
	}
	b.draft.Security = security
	return b
}

func generateSecurity() (SecuritySection, error) {
	secretKey, err := crypto.GenerateURLSafeToken(secretKeyBytes)
	if err != nil {
		return SecuritySection{}, fmt.Errorf("failed to generate secret key: %w", err)
	}
	apiToken, err := crypto.GenerateURLSafeToken(apiTokenBytes)
	if err != nil {
		return SecuritySection{}, fmt.Errorf("failed to generate api token: %w", err)
	}
	return SecuritySection{SecretKey: secretKey, APIToken: apiToken}, nil
}

// Build validates the draft and returns it marked initialized. The builder
// cannot be used afterwards.
func (b *Builder) Build() (*SystemConfiguration, error) {
	if b.draft == nil {
		return nil, ErrBuilderConsumed
	}
	draft := b.draft
	b.draft = nil

	if b.err != nil {
		err := b.err
		b.err = ErrBuilderConsumed
		return nil, err
	}
	b.err = ErrBuilderConsumed

	var missing []string
	if !b.hasAdmin {
		missing = append(missing, SectionAdmin)
	}
	if !b.hasDatabase {
		missing = append(missing, SectionDatabase)
	}
	if !b.hasDirectory {
		missing = append(missing, SectionDirectory)
	}
	if len(missing) > 0 {
		return nil, errors.NewInvalidInputError("configuration", "missing sections: "+strings.Join(missing, ", "))
	}

	if draft.Security.SecretKey == "" {
		security, err := generateSecurity()
		if err != nil {
			return nil, err
		}
		draft.Security = security
	}

	draft.Initialized = true
	draft.CreatedAt = b.now().UTC()
	return &SystemConfiguration{doc: *draft}, nil
}

// Err returns the first error recorded by a setter
func (b *Builder) Err() error {
	return b.err
}

func (b *Builder) usable() bool {
	if b.draft == nil {
		b.err = ErrBuilderConsumed
		return false
	}
	return b.err == nil
}

func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

func (b *Builder) hash(service, principal, plaintext string) (string, bool) {
	hash, err := b.hasher.Hash(plaintext)
	if err != nil {
		b.fail(fmt.Errorf("failed to hash %s/%s: %w", service, principal, err))
		return "", false
	}
	b.sink(StagedSecret{Service: service, Principal: principal, Plaintext: plaintext})
	return hash, true
}
