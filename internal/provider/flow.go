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
	"net/http/cookiejar"

	"github.com/tidwall/gjson"

	"authbridge/pkg/errors"
)

// Flow stage components
const (
	ComponentIdentification = "ak-stage-identification"
	ComponentPassword       = "ak-stage-password"
	ComponentAccessDenied   = "ak-stage-access-denied"
)

// Flow is one authentication flow context. Its cookie jar carries the
// provider's flow session from the identification stage to the password
// stage, and is never shared with another flow.
type Flow struct {
	client *Client
	http   *http.Client
}

// NewFlow starts a fresh flow context
func (c *Client) NewFlow() (*Flow, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &Flow{client: c, http: c.httpClient(jar)}, nil
}

// Identify presents the principal. Any non-2xx status is PROVIDER_REJECTED.
func (f *Flow) Identify(ctx context.Context, principal string) error {
	resp, err := f.client.do(ctx, f.http, "identification stage", http.MethodPost, f.client.flowURL(), map[string]string{
		"component": ComponentIdentification,
		"uid_field": principal,
	})
	if err != nil {
		return err
	}
	if !resp.ok() {
		return errors.NewProviderRejectedError("identification stage", resp.status)
	}
	return nil
}

// SubmitPassword presents the password on the same flow context. A 2xx
// answer that is an access-denied challenge or carries response_errors is
// still a rejection.
func (f *Flow) SubmitPassword(ctx context.Context, password string) error {
	resp, err := f.client.do(ctx, f.http, "password stage", http.MethodPost, f.client.flowURL(), map[string]string{
		"component": ComponentPassword,
		"password":  password,
	})
	if err != nil {
		return err
	}
	if !resp.ok() {
		return errors.NewProviderRejectedError("password stage", resp.status)
	}

	if len(resp.body) > 0 && gjson.ValidBytes(resp.body) {
		challenge := gjson.ParseBytes(resp.body)
		if challenge.Get("component").String() == ComponentAccessDenied {
			return errors.NewProviderRejectedError("password stage", resp.status)
		}
		if errs := challenge.Get("response_errors"); errs.Exists() && !isEmpty(errs) {
			return errors.NewProviderRejectedError("password stage", resp.status)
		}
	}
	return nil
}

func isEmpty(r gjson.Result) bool {
	switch {
	case r.Type == gjson.Null:
		return true
	case r.IsObject():
		return len(r.Map()) == 0
	case r.IsArray():
		return len(r.Array()) == 0
	}
	return false
}
