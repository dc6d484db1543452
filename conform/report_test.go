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
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReporter_RecordAndFinalize(t *testing.T) {
	rep := NewReporter("http://localhost:7070")
	assert.NotEmpty(t, rep.RunID())

	outcomes := []Outcome{
		{ID: "001", Category: CategoryBasic, Status: StatusPassed},
		{ID: "002", Category: CategoryBasic, Status: StatusFailed, Reason: "boom"},
		{ID: "100", Category: CategoryMultipart, Status: StatusPassed},
		{ID: "300", Category: CategoryACL, Status: StatusUnsupported},
		{ID: "200", Category: CategoryVersioning, Status: StatusSkipped},
	}
	for _, o := range outcomes {
		require.NoError(t, rep.Record(o))
	}

	report := rep.Finalize()
	assert.False(t, report.FinishedAt.IsZero())

	// totals add up per status across categories
	assert.Equal(t, 2, report.Total(StatusPassed))
	assert.Equal(t, 1, report.Total(StatusFailed))
	assert.Equal(t, 1, report.Total(StatusUnsupported))
	assert.Equal(t, 1, report.Total(StatusSkipped))
	assert.True(t, report.HasFailures())

	counts := report.Counts()
	assert.Equal(t, 1, counts[CategoryBasic][StatusPassed])
	assert.Equal(t, 1, counts[CategoryBasic][StatusFailed])
	assert.Equal(t, 1, counts[CategoryMultipart][StatusPassed])

	sum := 0
	for _, byStatus := range counts {
		for _, n := range byStatus {
			sum += n
		}
	}
	assert.Equal(t, len(outcomes), sum, "per-category counts must sum to the total")

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "002", failed[0].ID)
	assert.Equal(t, "boom", failed[0].Reason)
}

func TestReporter_RecordAfterFinalize(t *testing.T) {
	rep := NewReporter("")
	first := rep.Finalize()

	assert.Error(t, rep.Record(Outcome{ID: "001", Status: StatusPassed}))

	// repeated finalize returns the same report
	assert.Same(t, first, rep.Finalize())
}

func TestReport_WriteJSON(t *testing.T) {
	rep := NewReporter("http://localhost:7070")
	require.NoError(t, rep.Record(Outcome{
		ID:       "001",
		Name:     "basic_put_get_object",
		Category: CategoryBasic,
		Status:   StatusPassed,
		Duration: 1.25,
	}))
	require.NoError(t, rep.Record(Outcome{
		ID:       "310",
		Category: CategoryACL,
		Status:   StatusUnsupported,
		Gaps:     []CapabilityGap{{Feature: "acl:get-bucket-acl", Code: "NotImplemented"}},
	}))
	report := rep.Finalize()

	var buf bytes.Buffer
	require.NoError(t, report.WriteJSON(&buf))

	var decoded Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, report.RunID, decoded.RunID)
	assert.Equal(t, report.Endpoint, decoded.Endpoint)
	require.Len(t, decoded.Outcomes, 2)
	assert.Equal(t, StatusPassed, decoded.Outcomes[0].Status)
	assert.Equal(t, 1.25, decoded.Outcomes[0].Duration)
	require.Len(t, decoded.Outcomes[1].Gaps, 1)
	assert.Equal(t, "NotImplemented", decoded.Outcomes[1].Gaps[0].Code)
}
