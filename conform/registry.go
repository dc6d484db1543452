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
	"fmt"
	"sync"
)

// ErrDuplicateTestID is returned by Register when a test id is
// already taken. The registry retains the first registration.
var ErrDuplicateTestID = errors.New("duplicate test id")

// Registry holds the registered test cases in registration order.
// Read-only after startup; enumeration order is stable across runs
// for reproducible reporting.
type Registry struct {
	mu    sync.Mutex
	order []TestCase
	ids   map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{ids: map[string]struct{}{}}
}

// Register adds tc to the registry. Fails with ErrDuplicateTestID if
// tc.ID is already registered.
func (r *Registry) Register(tc TestCase) error {
	if tc.ID == "" {
		return fmt.Errorf("test case must have an id")
	}
	if tc.Body == nil {
		return fmt.Errorf("test case %v must have a body", tc.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ids[tc.ID]; ok {
		return fmt.Errorf("%w: %v", ErrDuplicateTestID, tc.ID)
	}
	r.ids[tc.ID] = struct{}{}
	r.order = append(r.order, tc)
	return nil
}

// All returns the registered test cases in registration order.
func (r *Registry) All() []TestCase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]TestCase(nil), r.order...)
}

// Select returns the cases matching the given category and/or id,
// preserving registration order. Empty selectors match everything.
func (r *Registry) Select(category Category, id string) []TestCase {
	var out []TestCase
	for _, tc := range r.All() {
		if category != "" && tc.Category != category {
			continue
		}
		if id != "" && tc.ID != id {
			continue
		}
		out = append(out, tc)
	}
	return out
}
