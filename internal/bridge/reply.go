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
	"fmt"
	"io"
	"strings"
)

const (
	replyWelcomeFormat = "Welcome %s"
	replyFailed        = "Authentication failed"
)

var attributeEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", " ", "\r", " ")

// writeAttribute writes one `Name = "value"` line
func writeAttribute(w io.Writer, name, value string) error {
	_, err := fmt.Fprintf(w, "%s = \"%s\"\n", name, attributeEscaper.Replace(value))
	return err
}

// WriteReply writes the reply attributes for a finished session
func WriteReply(w io.Writer, outcome Outcome) error {
	if outcome.Stage != StageAuthenticated {
		return writeAttribute(w, "Reply-Message", replyFailed)
	}

	if err := writeAttribute(w, "Reply-Message", fmt.Sprintf(replyWelcomeFormat, outcome.Principal)); err != nil {
		return err
	}
	if len(outcome.Groups) > 0 {
		return writeAttribute(w, "Class", strings.Join(outcome.Groups, ","))
	}
	return nil
}
