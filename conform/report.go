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
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Status is the per-test result kind.
type Status string

const (
	StatusPassed Status = "PASSED"
	StatusFailed Status = "FAILED"
	// StatusUnsupported marks a test that completed but recorded
	// capability gaps: partially unsupported, counted as conformance
	// success.
	StatusUnsupported Status = "UNSUPPORTED"
	StatusSkipped     Status = "SKIPPED"
)

// Outcome is the immutable per-test result.
type Outcome struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Category        Category        `json:"category"`
	Status          Status          `json:"status"`
	Reason          string          `json:"reason,omitempty"`
	Gaps            []CapabilityGap `json:"gaps,omitempty"`
	Retries         int             `json:"retries,omitempty"`
	CleanupWarnings []string        `json:"cleanupWarnings,omitempty"`
	Duration        float64         `json:"duration"`
	Timestamp       time.Time       `json:"timestamp"`
}

// Report aggregates all outcomes for one conformance run.
type Report struct {
	RunID      string    `json:"runId"`
	Endpoint   string    `json:"endpoint"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Outcomes   []Outcome `json:"results"`
}

// Counts returns per-category outcome counts.
func (rep *Report) Counts() map[Category]map[Status]int {
	counts := map[Category]map[Status]int{}
	for _, o := range rep.Outcomes {
		if counts[o.Category] == nil {
			counts[o.Category] = map[Status]int{}
		}
		counts[o.Category][o.Status]++
	}
	return counts
}

// Total returns the count of outcomes with the given status across
// all categories.
func (rep *Report) Total(status Status) int {
	n := 0
	for _, o := range rep.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Failed returns every failed outcome with its cause.
func (rep *Report) Failed() []Outcome {
	var out []Outcome
	for _, o := range rep.Outcomes {
		if o.Status == StatusFailed {
			out = append(out, o)
		}
	}
	return out
}

// HasFailures reports whether the run should exit non-zero.
func (rep *Report) HasFailures() bool {
	return rep.Total(StatusFailed) > 0
}

// WriteJSON writes the report as a single machine-parseable artifact.
func (rep *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// Reporter collects outcomes from concurrently running tests and
// finalizes them into a read-only Report.
type Reporter struct {
	mu        sync.Mutex
	report    *Report
	finalized bool
}

// NewReporter starts a new report identified by a fresh run id.
func NewReporter(endpoint string) *Reporter {
	return &Reporter{
		report: &Report{
			RunID:     ulid.Make().String(),
			Endpoint:  endpoint,
			StartedAt: time.Now(),
		},
	}
}

// RunID returns the identifier of the run being reported.
func (r *Reporter) RunID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.report.RunID
}

// Record appends an outcome to the running report. Fails once the
// report has been finalized.
func (r *Reporter) Record(o Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized {
		return fmt.Errorf("report %v is finalized", r.report.RunID)
	}
	r.report.Outcomes = append(r.report.Outcomes, o)
	return nil
}

// Finalize closes the report for reading. Subsequent Record calls
// fail; repeated Finalize calls return the same report.
func (r *Reporter) Finalize() *Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.finalized {
		r.finalized = true
		r.report.FinishedAt = time.Now()
	}
	return r.report
}
