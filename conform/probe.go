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
	"errors"

	"github.com/aws/smithy-go"
	"github.com/versity/s3conform/s3err"
)

// CapabilityStatus is the three-way classification of an
// optional-feature call.
type CapabilityStatus int

const (
	// CapabilitySupported means the provider accepted the call.
	CapabilitySupported CapabilityStatus = iota
	// CapabilityNotSupported means the provider rejected the call
	// with a known optional-feature rejection code. Not a failure.
	CapabilityNotSupported
	// CapabilityError means the call failed for any other reason.
	// This is a test failure.
	CapabilityError
)

func (s CapabilityStatus) String() string {
	switch s {
	case CapabilitySupported:
		return "supported"
	case CapabilityNotSupported:
		return "not supported"
	default:
		return "error"
	}
}

// CapabilityResult holds exactly one variant: a value when supported,
// a provider error code when not supported, or a cause when errored.
type CapabilityResult struct {
	Status CapabilityStatus
	Value  any
	Code   string
	Err    error
}

// Probe classifies optional-feature provider calls. The zero value is
// not usable; construct with NewProbe.
type Probe struct {
	optionalCodes map[string]struct{}
}

// DefaultOptionalCodes is the built-in set of provider error codes
// that mean "feature intentionally absent" rather than "feature
// broken".
func DefaultOptionalCodes() []string {
	return []string{
		s3err.GetAPIError(s3err.ErrNotImplemented).Code,
		s3err.GetAPIError(s3err.ErrMethodNotAllowed).Code,
		s3err.GetAPIError(s3err.ErrAclNotSupported).Code,
		s3err.GetAPIError(s3err.ErrInvalidEncryptionAlgorithm).Code,
		s3err.GetAPIError(s3err.ErrInvalidArgument).Code,
		s3err.GetAPIError(s3err.ErrInvalidRequest).Code,
		"XNotImplemented",
	}
}

// NewProbe returns a probe using the given optional-feature rejection
// codes, or DefaultOptionalCodes when none are given.
func NewProbe(codes ...string) *Probe {
	if len(codes) == 0 {
		codes = DefaultOptionalCodes()
	}
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return &Probe{optionalCodes: set}
}

// Do invokes op and classifies the result. AccessDenied counts as an
// optional-feature rejection only when the caller declared the call
// expected-optional, since an unexpected AccessDenied on a mandatory
// path is a genuine failure.
func (p *Probe) Do(op func() (any, error), expectedOptional bool) CapabilityResult {
	val, err := op()
	if err == nil {
		return CapabilityResult{Status: CapabilitySupported, Value: val}
	}

	var ae smithy.APIError
	if errors.As(err, &ae) {
		code := ae.ErrorCode()
		if _, ok := p.optionalCodes[code]; ok {
			return CapabilityResult{Status: CapabilityNotSupported, Code: code}
		}
		if expectedOptional && code == s3err.GetAPIError(s3err.ErrAccessDenied).Code {
			return CapabilityResult{Status: CapabilityNotSupported, Code: code}
		}
	}

	return CapabilityResult{Status: CapabilityError, Err: err}
}
