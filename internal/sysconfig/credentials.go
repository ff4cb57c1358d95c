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

// Credential service names used as SecretStore keys
const (
	ServiceIdentityProvider = "authentik"
	ServiceDatabase         = "database"
	ServiceDirectory        = "ldap"
	ServiceRadius           = "radius"

	PrincipalAdmin        = "admin"
	PrincipalReadonly     = "readonly"
	PrincipalSharedSecret = "shared-secret"
)

// Credential ties a secret field of the configuration to the credential key
// it is stored under
type Credential struct {
	Section   string
	Field     string
	Service   string
	Principal string
}

// Credentials lists every secret field present in the configuration
func (c *SystemConfiguration) Credentials() []Credential {
	creds := []Credential{
		{SectionAdmin, "password", ServiceIdentityProvider, PrincipalAdmin},
		{SectionDatabase, "password", ServiceDatabase, c.doc.Database.Username},
		{SectionDirectory, "admin_password", ServiceDirectory, PrincipalAdmin},
		{SectionDirectory, "readonly_password", ServiceDirectory, PrincipalReadonly},
	}
	if c.doc.Radius != nil {
		creds = append(creds, Credential{SectionRadius, "shared_secret", ServiceRadius, PrincipalSharedSecret})
	}
	return creds
}

// CredentialFor finds the secret field stored under (service, principal)
func (c *SystemConfiguration) CredentialFor(service, principal string) (Credential, bool) {
	for _, cred := range c.Credentials() {
		if cred.Service == service && cred.Principal == principal {
			return cred, true
		}
	}
	return Credential{}, false
}
