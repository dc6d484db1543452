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

package suite

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/versity/s3conform/conform"
	"github.com/versity/s3conform/s3conf"
)

func TestRegisterAll(t *testing.T) {
	reg := conform.NewRegistry()
	require.NoError(t, RegisterAll(reg))

	ranges := map[conform.Category][2]int{
		conform.CategoryBasic:       {1, 99},
		conform.CategoryMultipart:   {100, 199},
		conform.CategoryVersioning:  {200, 299},
		conform.CategoryACL:         {300, 399},
		conform.CategoryEncryption:  {400, 499},
		conform.CategoryLifecycle:   {500, 599},
		conform.CategoryPerformance: {600, 699},
	}

	all := reg.All()
	require.NotEmpty(t, all)

	perCategory := map[conform.Category]int{}
	for _, tc := range all {
		id, err := strconv.Atoi(tc.ID)
		require.NoError(t, err, "test id %v must be numeric", tc.ID)

		r, ok := ranges[tc.Category]
		require.True(t, ok, "test %v has unknown category %v", tc.ID, tc.Category)
		assert.GreaterOrEqual(t, id, r[0], "test %v id outside %v range", tc.ID, tc.Category)
		assert.LessOrEqual(t, id, r[1], "test %v id outside %v range", tc.ID, tc.Category)

		assert.NotEmpty(t, tc.Name, "test %v must have a name", tc.ID)
		assert.NotNil(t, tc.Body, "test %v must have a body", tc.ID)
		perCategory[tc.Category]++
	}

	for category := range ranges {
		assert.NotZero(t, perCategory[category], "category %v has no tests", category)
	}
}

func TestRegisterAll_Repeatable(t *testing.T) {
	// registering twice into separate registries must yield the same
	// stable ordering
	first := conform.NewRegistry()
	require.NoError(t, RegisterAll(first))
	second := conform.NewRegistry()
	require.NoError(t, RegisterAll(second))

	a, b := first.All(), second.All()
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].ID, b[i].ID)
	}
}

func TestVersioningTests_Skip(t *testing.T) {
	for _, tc := range versioningTests() {
		require.NotNil(t, tc.Skip, "versioning test %v must have a skip check", tc.ID)

		assert.NotEmpty(t, tc.Skip(s3conf.NewS3Conf()),
			"test %v must skip when versioning is off", tc.ID)
		assert.Empty(t, tc.Skip(s3conf.NewS3Conf(s3conf.WithVersioningEnabled())),
			"test %v must run when versioning is on", tc.ID)
	}
}
