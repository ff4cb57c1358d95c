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
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authbridge/internal/hasher/hashertest"
	"authbridge/pkg/errors"
)

const (
	adminPassword    = "Adm1n-Passw0rd!"
	dbPassword       = "db-S3cret-value"
	ldapAdminPass    = "ldap-admin-S3cret"
	ldapReadonlyPass = "ldap-ro-S3cret"
	radiusSecret     = "radius-shared-S3cret"
)

func fullBuild(t *testing.T) (*SystemConfiguration, []StagedSecret) {
	t.Helper()

	var staged []StagedSecret
	cfg, err := NewBuilder(hashertest.New(), func(s StagedSecret) { staged = append(staged, s) }).
		Admin("admin@example.com", adminPassword).
		Database("", dbPassword, "").
		Directory("", ldapAdminPass, ldapReadonlyPass).
		Radius(radiusSecret, []string{"10.0.0.0/24"}).
		Security().
		Build()
	require.NoError(t, err)
	return cfg, staged
}

func TestBuildProducesInitializedConfiguration(t *testing.T) {
	cfg, _ := fullBuild(t)

	assert.True(t, cfg.Initialized())
	assert.Equal(t, FormatVersion, cfg.Version())
	assert.False(t, cfg.CreatedAt().IsZero())

	assert.Equal(t, "admin@example.com", cfg.Admin().Email)
	assert.Equal(t, DatabaseSection{
		Username:     DefaultDatabaseUser,
		PasswordHash: cfg.Database().PasswordHash,
		Database:     DefaultDatabaseName,
		Host:         "postgresql",
		Port:         5432,
	}, cfg.Database())
	assert.Equal(t, "openldap", cfg.Directory().Host)
	assert.Equal(t, 389, cfg.Directory().Port)
	assert.Equal(t, DefaultDirectoryBaseDN, cfg.Directory().BaseDN)

	radius, ok := cfg.Radius()
	require.True(t, ok)
	assert.Equal(t, []string{"10.0.0.0/24"}, radius.Clients)

	assert.NotEmpty(t, cfg.Security().SecretKey)
	assert.NotEmpty(t, cfg.Security().APIToken)
	assert.NotEqual(t, cfg.Security().SecretKey, cfg.Security().APIToken)
}

func TestBuiltConfigurationHashesVerify(t *testing.T) {
	cfg, _ := fullBuild(t)
	h := hashertest.New()

	radius, _ := cfg.Radius()
	assert.True(t, h.Verify(adminPassword, cfg.Admin().PasswordHash))
	assert.True(t, h.Verify(dbPassword, cfg.Database().PasswordHash))
	assert.True(t, h.Verify(ldapAdminPass, cfg.Directory().AdminPasswordHash))
	assert.True(t, h.Verify(ldapReadonlyPass, cfg.Directory().ReadonlyPasswordHash))
	assert.True(t, h.Verify(radiusSecret, radius.SharedSecretHash))
}

func TestSerializedConfigurationHasNoPlaintext(t *testing.T) {
	cfg, _ := fullBuild(t)

	data, err := json.Marshal(cfg)
	require.NoError(t, err)

	var yamlOut strings.Builder
	require.NoError(t, Export(&yamlOut, cfg, FormatYAML))

	for _, plaintext := range []string{adminPassword, dbPassword, ldapAdminPass, ldapReadonlyPass, radiusSecret} {
		assert.NotContains(t, string(data), plaintext)
		assert.NotContains(t, yamlOut.String(), plaintext)
	}
}

func TestSinkReceivesEachPlaintextWithItsKey(t *testing.T) {
	_, staged := fullBuild(t)

	got := map[string]string{}
	for _, s := range staged {
		got[s.Service+"/"+s.Principal] = s.Plaintext
	}
	assert.Equal(t, map[string]string{
		"authentik/admin":      adminPassword,
		"database/authentik":   dbPassword,
		"ldap/admin":           ldapAdminPass,
		"ldap/readonly":        ldapReadonlyPass,
		"radius/shared-secret": radiusSecret,
	}, got)
}

func TestStagedSecretPrintsRedacted(t *testing.T) {
	s := StagedSecret{Service: "db", Principal: "app", Plaintext: "P@ss1234"}
	for _, format := range []string{"%v", "%+v", "%#v", "%s"} {
		assert.NotContains(t, fmt.Sprintf(format, s), "P@ss1234", format)
	}
}

func TestBuilderIsSingleUse(t *testing.T) {
	b := NewBuilder(hashertest.New(), nil).
		Admin("admin@example.com", adminPassword).
		Database("app", dbPassword, "appdb").
		Directory("dc=example,dc=org", ldapAdminPass, ldapReadonlyPass)

	cfg, err := b.Build()
	require.NoError(t, err)

	var staged int
	b.sink = func(StagedSecret) { staged++ }
	b.Admin("other@example.com", "another-long-password")
	assert.ErrorIs(t, b.Err(), ErrBuilderConsumed)
	assert.Zero(t, staged, "setters after Build do nothing")

	_, err = b.Build()
	assert.ErrorIs(t, err, ErrBuilderConsumed)

	assert.Equal(t, "admin@example.com", cfg.Admin().Email, "built value is unaffected")
}

func TestBuildRequiresSections(t *testing.T) {
	_, err := NewBuilder(hashertest.New(), nil).
		Admin("admin@example.com", adminPassword).
		Build()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidInput))
	assert.Contains(t, err.Error(), "database")
	assert.Contains(t, err.Error(), "ldap")
}

func TestBuilderValidation(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *Builder) *Builder
		field string
	}{
		{"short admin password", func(b *Builder) *Builder { return b.Admin("a@b.c", "short") }, "admin_password"},
		{"bad admin email", func(b *Builder) *Builder { return b.Admin("not-an-email", adminPassword) }, "admin_email"},
		{"empty db password", func(b *Builder) *Builder { return b.Database("app", "", "db") }, "db_password"},
		{"empty ldap admin", func(b *Builder) *Builder { return b.Directory("", "", ldapReadonlyPass) }, "ldap_admin_password"},
		{"empty ldap readonly", func(b *Builder) *Builder { return b.Directory("", ldapAdminPass, "") }, "ldap_readonly_password"},
		{"empty radius secret", func(b *Builder) *Builder { return b.Radius("", nil) }, "radius_secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var staged int
			b := tt.build(NewBuilder(hashertest.New(), func(StagedSecret) { staged++ }))

			_, err := b.Build()
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidInput))
			assert.Contains(t, err.Error(), tt.field)
			assert.Zero(t, staged, "rejected input never reaches the sink")
		})
	}
}

func TestFirstErrorWins(t *testing.T) {
	b := NewBuilder(hashertest.New(), nil).
		Admin("a@b.c", "short").
		Database("app", "", "db")

	assert.Contains(t, b.Err().Error(), "admin_password")
}

func TestCredentials(t *testing.T) {
	cfg, _ := fullBuild(t)

	cred, ok := cfg.CredentialFor("database", DefaultDatabaseUser)
	require.True(t, ok)
	assert.Equal(t, Credential{SectionDatabase, "password", ServiceDatabase, DefaultDatabaseUser}, cred)

	cred, ok = cfg.CredentialFor("ldap", "readonly")
	require.True(t, ok)
	assert.Equal(t, "readonly_password", cred.Field)

	_, ok = cfg.CredentialFor("database", "someone-else")
	assert.False(t, ok)

	assert.Len(t, cfg.Credentials(), 5)
}

func TestAccessorsReturnCopies(t *testing.T) {
	cfg, _ := fullBuild(t)

	radius, _ := cfg.Radius()
	radius.Clients[0] = "0.0.0.0/0"

	again, _ := cfg.Radius()
	assert.Equal(t, "10.0.0.0/24", again.Clients[0])
}
