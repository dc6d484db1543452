// Copyright 2023 Versity Software
// This file is licensed under the Apache License, Version 2.0
// (the "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package conform

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// suffixLen is the number of random characters appended to every
// fingerprint. 8 hex chars keep collisions improbable within a run
// and across concurrent runs against the same endpoint.
const suffixLen = 8

// NameValidator checks a generated name against the provider's
// naming rules before it is used.
type NameValidator func(name string) error

// Generator derives run-unique resource names from a test identifier
// and a random suffix. It has no side effects.
type Generator struct {
	prefix   string
	validate NameValidator
}

// NewGenerator returns a Generator producing names of the form
// <prefix>-<testID>-<suffix>. A nil validator defaults to the s3
// bucket naming rules.
func NewGenerator(prefix string, validate NameValidator) *Generator {
	if validate == nil {
		validate = CheckBucketName
	}
	return &Generator{prefix: prefix, validate: validate}
}

// Fingerprint returns a fresh resource name for testID. Two calls
// never return the same name, even for the same testID.
func (g *Generator) Fingerprint(testID string) (string, error) {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:suffixLen]
	name := strings.ToLower(fmt.Sprintf("%v-%v-%v", g.prefix, testID, suffix))
	if err := g.validate(name); err != nil {
		return "", fmt.Errorf("fingerprint %q: %w", name, err)
	}
	return name, nil
}

// CheckBucketName validates name against the general s3 bucket naming
// rules: 3-63 chars, lowercase letters, digits and hyphens, starting
// and ending with a letter or digit.
func CheckBucketName(name string) error {
	if len(name) < 3 || len(name) > 63 {
		return fmt.Errorf("bucket name length must be 3-63 characters, got %v", len(name))
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '.':
			if i == 0 || i == len(name)-1 {
				return fmt.Errorf("bucket name must begin and end with a letter or digit")
			}
		default:
			return fmt.Errorf("bucket name contains invalid character %q", c)
		}
	}
	return nil
}
