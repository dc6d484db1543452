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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopBody(context.Context, *Exec) error { return nil }

func TestRegistry_Register(t *testing.T) {
	reg := NewRegistry()

	require.NoError(t, reg.Register(TestCase{ID: "001", Name: "first", Category: CategoryBasic, Body: noopBody}))
	require.NoError(t, reg.Register(TestCase{ID: "002", Name: "second", Category: CategoryBasic, Body: noopBody}))

	err := reg.Register(TestCase{ID: "001", Name: "dup", Category: CategoryBasic, Body: noopBody})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateTestID)

	// the first registration wins
	all := reg.All()
	require.Len(t, all, 2)
	assert.Equal(t, "first", all[0].Name)
	assert.Equal(t, "second", all[1].Name)
}

func TestRegistry_RegisterInvalid(t *testing.T) {
	reg := NewRegistry()

	assert.Error(t, reg.Register(TestCase{Name: "no id", Body: noopBody}))
	assert.Error(t, reg.Register(TestCase{ID: "001", Name: "no body"}))
	assert.Empty(t, reg.All())
}

func TestRegistry_Select(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(TestCase{ID: "001", Category: CategoryBasic, Body: noopBody}))
	require.NoError(t, reg.Register(TestCase{ID: "100", Category: CategoryMultipart, Body: noopBody}))
	require.NoError(t, reg.Register(TestCase{ID: "101", Category: CategoryMultipart, Body: noopBody}))

	tests := []struct {
		name     string
		category Category
		id       string
		wantIDs  []string
	}{
		{"all", "", "", []string{"001", "100", "101"}},
		{"by category", CategoryMultipart, "", []string{"100", "101"}},
		{"by id", "", "100", []string{"100"}},
		{"category and id", CategoryMultipart, "101", []string{"101"}},
		{"mismatched", CategoryBasic, "100", nil},
		{"unknown category", Category("nope"), "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ids []string
			for _, tc := range reg.Select(tt.category, tt.id) {
				ids = append(ids, tc.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}
