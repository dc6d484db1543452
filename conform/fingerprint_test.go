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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_Fingerprint(t *testing.T) {
	gen := NewGenerator("s3conform", nil)

	name, err := gen.Fingerprint("001")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(name, "s3conform-001-"), "name %v", name)
	assert.Equal(t, name, strings.ToLower(name))
	assert.Len(t, name, len("s3conform-001-")+suffixLen)
	assert.NoError(t, CheckBucketName(name))
}

func TestGenerator_FingerprintUnique(t *testing.T) {
	const n = 1000
	gen := NewGenerator("s3conform", nil)

	var mu sync.Mutex
	seen := make(map[string]struct{}, n)
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name, err := gen.Fingerprint("042")
			assert.NoError(t, err)
			mu.Lock()
			seen[name] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n, "expected every generated name to be unique")
}

func TestGenerator_FingerprintValidatorRejects(t *testing.T) {
	rejection := fmt.Errorf("name rejected")
	gen := NewGenerator("s3conform", func(string) error { return rejection })

	_, err := gen.Fingerprint("001")
	require.Error(t, err)
	assert.ErrorIs(t, err, rejection)
}

func TestCheckBucketName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "s3conform-001-abcd1234", false},
		{"valid minimal", "abc", false},
		{"valid with dots", "a.b.c", false},
		{"too short", "ab", true},
		{"too long", strings.Repeat("a", 64), true},
		{"uppercase", "Bucket", true},
		{"underscore", "my_bucket", true},
		{"leading hyphen", "-bucket", true},
		{"trailing hyphen", "bucket-", true},
		{"leading dot", ".bucket", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckBucketName(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
