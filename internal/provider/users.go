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

package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"

	"authbridge/pkg/errors"
)

// User is the profile the bridge needs from the user query endpoint
type User struct {
	Username    string
	Email       string
	Groups      []string
	IsActive    bool
	IsSuperuser bool
	Attributes  map[string]any
}

// LookupUser fetches the first user matching username. No match is a
// NOT_FOUND error.
func (c *Client) LookupUser(ctx context.Context, username string) (*User, error) {
	resp, err := c.do(ctx, c.httpClient(nil), "user query", http.MethodGet, c.usersURL(url.Values{"username": {username}}), nil)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, errors.NewProviderRejectedError("user query", resp.status)
	}
	if !gjson.ValidBytes(resp.body) {
		return nil, errors.NewProviderRejectedError("user query", resp.status)
	}

	record := gjson.GetBytes(resp.body, "results.0")
	if !record.Exists() || !record.IsObject() {
		return nil, errors.NewNotFoundError("user", username)
	}
	return parseUser(record), nil
}

func parseUser(record gjson.Result) *User {
	user := &User{
		Username:    record.Get("username").String(),
		Email:       record.Get("email").String(),
		IsActive:    true,
		IsSuperuser: record.Get("is_superuser").Bool(),
		Groups:      parseGroups(record),
	}
	if active := record.Get("is_active"); active.Exists() && active.Type != gjson.Null {
		user.IsActive = active.Bool()
	}
	if attrs, ok := record.Get("attributes").Value().(map[string]any); ok {
		user.Attributes = attrs
	}
	return user
}

// parseGroups prefers the expanded groups_obj list and falls back to groups,
// whose entries may be plain names or objects with a name
func parseGroups(record gjson.Result) []string {
	var groups []string
	if objs := record.Get("groups_obj"); objs.IsArray() && len(objs.Array()) > 0 {
		for _, g := range objs.Array() {
			if name := g.Get("name").String(); name != "" {
				groups = append(groups, name)
			}
		}
		return groups
	}

	for _, g := range record.Get("groups").Array() {
		var name string
		if g.IsObject() {
			name = g.Get("name").String()
		} else {
			name = g.String()
		}
		if name != "" {
			groups = append(groups, name)
		}
	}
	return groups
}

// AdminState is the result of ProbeAdmin
type AdminState int

const (
	AdminAbsent AdminState = iota
	AdminPresent
)

func (s AdminState) String() string {
	if s == AdminPresent {
		return "present"
	}
	return "absent"
}

// ProbeAdmin reports whether the provider already has a superuser. It only
// answers when the provider says so clearly: 403 means an admin exists and
// the token is not one of theirs, 200 is decided by is_superuser. Any other
// answer is AMBIGUOUS_PROVIDER_STATE and callers must stop.
func (c *Client) ProbeAdmin(ctx context.Context) (AdminState, error) {
	resp, err := c.do(ctx, c.httpClient(nil), "admin probe", http.MethodGet, c.usersURL(nil), nil)
	if err != nil {
		return AdminAbsent, err
	}

	switch resp.status {
	case http.StatusForbidden:
		return AdminPresent, nil
	case http.StatusOK:
	default:
		return AdminAbsent, errors.NewAmbiguousProviderStateError(fmt.Sprintf("admin probe returned status %d", resp.status))
	}

	results := gjson.GetBytes(resp.body, "results")
	if !gjson.ValidBytes(resp.body) || !results.IsArray() {
		return AdminAbsent, errors.NewAmbiguousProviderStateError("admin probe returned an unrecognized body")
	}
	for _, u := range results.Array() {
		if u.Get("is_superuser").Bool() {
			return AdminPresent, nil
		}
	}
	return AdminAbsent, nil
}
