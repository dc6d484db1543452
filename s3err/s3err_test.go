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

package s3err

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
)

func TestGetAPIError(t *testing.T) {
	tests := []struct {
		name     string
		code     ErrorCode
		wantCode string
		wantHTTP int
	}{
		{"access denied", ErrAccessDenied, "AccessDenied", http.StatusForbidden},
		{"no such bucket", ErrNoSuchBucket, "NoSuchBucket", http.StatusNotFound},
		{"no such key", ErrNoSuchKey, "NoSuchKey", http.StatusNotFound},
		{"not implemented", ErrNotImplemented, "NotImplemented", http.StatusNotImplemented},
		{"slow down", ErrSlowDown, "SlowDown", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := GetAPIError(tt.code)
			assert.Equal(t, tt.wantCode, apiErr.Code)
			assert.Equal(t, tt.wantHTTP, apiErr.HTTPStatusCode)
			assert.NotEmpty(t, apiErr.Description)
		})
	}
}

func TestProviderErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"api error", &smithy.GenericAPIError{Code: "SlowDown"}, "SlowDown"},
		{"wrapped api error", fmt.Errorf("op failed: %w", &smithy.GenericAPIError{Code: "NoSuchKey"}), "NoSuchKey"},
		{"plain error", errors.New("connection refused"), ""},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ProviderErrorCode(tt.err))
		})
	}
}
