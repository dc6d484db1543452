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
	"testing"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
)

func apiErr(code string) error {
	return &smithy.GenericAPIError{Code: code, Message: code}
}

func TestProbe_Do(t *testing.T) {
	tests := []struct {
		name             string
		err              error
		expectedOptional bool
		want             CapabilityStatus
		wantCode         string
	}{
		{"success", nil, false, CapabilitySupported, ""},
		{"not implemented", apiErr("NotImplemented"), false, CapabilityNotSupported, "NotImplemented"},
		{"method not allowed", apiErr("MethodNotAllowed"), false, CapabilityNotSupported, "MethodNotAllowed"},
		{"acl not supported", apiErr("AccessControlListNotSupported"), false, CapabilityNotSupported, "AccessControlListNotSupported"},
		{"access denied optional", apiErr("AccessDenied"), true, CapabilityNotSupported, "AccessDenied"},
		{"access denied mandatory", apiErr("AccessDenied"), false, CapabilityError, ""},
		{"no such bucket", apiErr("NoSuchBucket"), false, CapabilityError, ""},
		{"no such bucket optional", apiErr("NoSuchBucket"), true, CapabilityError, ""},
		{"plain error", fmt.Errorf("connection refused"), true, CapabilityError, ""},
	}

	probe := NewProbe()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := probe.Do(func() (any, error) {
				return "ok", tt.err
			}, tt.expectedOptional)

			assert.Equal(t, tt.want, res.Status)
			assert.Equal(t, tt.wantCode, res.Code)
			switch res.Status {
			case CapabilitySupported:
				assert.Equal(t, "ok", res.Value)
				assert.NoError(t, res.Err)
			case CapabilityNotSupported:
				assert.NoError(t, res.Err)
			case CapabilityError:
				assert.Error(t, res.Err)
			}
		})
	}
}

func TestProbe_CustomCodes(t *testing.T) {
	probe := NewProbe("XMadeUpCode")

	res := probe.Do(func() (any, error) {
		return nil, apiErr("XMadeUpCode")
	}, false)
	assert.Equal(t, CapabilityNotSupported, res.Status)

	// default codes no longer apply
	res = probe.Do(func() (any, error) {
		return nil, apiErr("NotImplemented")
	}, false)
	assert.Equal(t, CapabilityError, res.Status)
}

func TestExec_ProbeRecordsGaps(t *testing.T) {
	e := &Exec{probe: NewProbe()}

	e.Probe("feature-a", false, func() (any, error) {
		return nil, apiErr("NotImplemented")
	})
	e.Probe("feature-b", false, func() (any, error) {
		return "ok", nil
	})

	gaps := e.Gaps()
	assert.Len(t, gaps, 1)
	assert.Equal(t, "feature-a", gaps[0].Feature)
	assert.Equal(t, "NotImplemented", gaps[0].Code)
}
