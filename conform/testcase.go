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
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/versity/s3conform/s3conf"
)

// Category groups test cases for filtering and reporting.
type Category string

const (
	CategoryBasic       Category = "basic"
	CategoryMultipart   Category = "multipart"
	CategoryVersioning  Category = "versioning"
	CategoryACL         Category = "acl"
	CategoryEncryption  Category = "encryption"
	CategoryLifecycle   Category = "lifecycle"
	CategoryPerformance Category = "performance"
)

// TestCase is an immutable test descriptor. Created at registration
// time and never mutated.
type TestCase struct {
	// ID uniquely identifies the test within the registry.
	ID string
	// Name is the human readable test name shown in the report.
	Name string
	// Category is the test group.
	Category Category
	// Body runs the test against the fixture bucket in e. A nil
	// return means pass; capability gaps collected through e.Probe
	// demote a pass to partially-unsupported.
	Body func(ctx context.Context, e *Exec) error
	// Skip, when set, is consulted before execution. A non-empty
	// return skips the test with that reason.
	Skip func(conf *s3conf.S3Conf) string
}

// CapabilityGap names an optional feature the target rejected and the
// code it rejected it with.
type CapabilityGap struct {
	Feature string `json:"feature"`
	Code    string `json:"code"`
}

// Exec is handed to every test body: the client to talk to the
// target, the fixture namespace owned by this execution, and the
// capability probe with gap collection.
type Exec struct {
	Conf    *s3conf.S3Conf
	Client  *s3.Client
	Fixture *Fixture

	probe *Probe
	mu    sync.Mutex
	gaps  []CapabilityGap
}

// Probe routes an optional-feature call through the capability probe
// and records a gap when the target does not support it.
func (e *Exec) Probe(feature string, expectedOptional bool, op func() (any, error)) CapabilityResult {
	res := e.probe.Do(op, expectedOptional)
	if res.Status == CapabilityNotSupported {
		e.mu.Lock()
		e.gaps = append(e.gaps, CapabilityGap{Feature: feature, Code: res.Code})
		e.mu.Unlock()
	}
	return res
}

// Gaps returns the capability gaps recorded so far.
func (e *Exec) Gaps() []CapabilityGap {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]CapabilityGap(nil), e.gaps...)
}
