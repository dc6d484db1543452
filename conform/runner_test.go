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
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/versity/s3conform/s3conf"
)

func newTestRunner(client StorageClient, cfg RunnerConfig) (*Runner, *Reporter) {
	reporter := NewReporter("http://localhost:7070")
	fixtures := NewFixtureManager(client, NewGenerator("s3conform", nil), time.Second)
	runner := NewRunner(s3conf.NewS3Conf(), nil, fixtures, reporter, NewProbe(), cfg)
	return runner, reporter
}

func TestRunner_RunPass(t *testing.T) {
	client := newFakeClient()
	runner, _ := newTestRunner(client, RunnerConfig{})

	outcome, err := runner.Run(context.Background(), TestCase{
		ID:       "001",
		Name:     "pass",
		Category: CategoryBasic,
		Body:     noopBody,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPassed, outcome.Status)
	assert.Empty(t, outcome.Reason)
	assert.Zero(t, outcome.Retries)
	assert.Contains(t, client.opLog()[len(client.opLog())-1], "delete-bucket")
}

func TestRunner_RunFail(t *testing.T) {
	client := newFakeClient()
	runner, _ := newTestRunner(client, RunnerConfig{})

	outcome, err := runner.Run(context.Background(), TestCase{
		ID:       "001",
		Name:     "fail",
		Category: CategoryBasic,
		Body: func(context.Context, *Exec) error {
			return errors.New("expected 2 objects, instead got 0")
		},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, outcome.Status)
	assert.Equal(t, "expected 2 objects, instead got 0", outcome.Reason)
}

func TestRunner_RunPanic(t *testing.T) {
	client := newFakeClient()
	runner, _ := newTestRunner(client, RunnerConfig{})

	outcome, err := runner.Run(context.Background(), TestCase{
		ID:       "001",
		Name:     "panics",
		Category: CategoryBasic,
		Body: func(context.Context, *Exec) error {
			panic("nil dereference")
		},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, outcome.Status)
	assert.Contains(t, outcome.Reason, "panic")
	// the fixture is still torn down
	assert.Contains(t, client.opLog()[len(client.opLog())-1], "delete-bucket")
}

func TestRunner_RunGaps(t *testing.T) {
	client := newFakeClient()
	runner, _ := newTestRunner(client, RunnerConfig{})

	outcome, err := runner.Run(context.Background(), TestCase{
		ID:       "310",
		Name:     "gaps",
		Category: CategoryACL,
		Body: func(ctx context.Context, e *Exec) error {
			e.Probe("acl:get-bucket-acl", true, func() (any, error) {
				return nil, apiErr("NotImplemented")
			})
			return nil
		},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusUnsupported, outcome.Status)
	require.Len(t, outcome.Gaps, 1)
	assert.Equal(t, "acl:get-bucket-acl", outcome.Gaps[0].Feature)
}

func TestRunner_RunSkip(t *testing.T) {
	client := newFakeClient()
	runner, _ := newTestRunner(client, RunnerConfig{})

	outcome, err := runner.Run(context.Background(), TestCase{
		ID:       "200",
		Name:     "skipped",
		Category: CategoryVersioning,
		Body:     noopBody,
		Skip: func(*s3conf.S3Conf) string {
			return "versioning not enabled for this run"
		},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusSkipped, outcome.Status)
	assert.Equal(t, "versioning not enabled for this run", outcome.Reason)
	assert.Empty(t, client.opLog(), "skipped tests must not touch the provider")
}

func TestRunner_RunTimeout(t *testing.T) {
	client := newFakeClient()
	runner, _ := newTestRunner(client, RunnerConfig{Timeout: 50 * time.Millisecond})

	bodyDone := make(chan struct{})
	start := time.Now()
	outcome, err := runner.Run(context.Background(), TestCase{
		ID:       "001",
		Name:     "hangs",
		Category: CategoryBasic,
		Body: func(ctx context.Context, e *Exec) error {
			defer close(bodyDone)
			<-ctx.Done()
			return ctx.Err()
		},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, outcome.Status)
	assert.Equal(t, "timeout", outcome.Reason)
	assert.Less(t, time.Since(start), 5*time.Second, "the runner must not wait for the hung body")
	// the fixture is still torn down
	assert.Contains(t, client.opLog()[len(client.opLog())-1], "delete-bucket")

	select {
	case <-bodyDone:
	case <-time.After(time.Second):
		t.Fatal("the abandoned body never observed its context cancelation")
	}
}

func TestRunner_RetryTransient(t *testing.T) {
	client := newFakeClient()
	runner, _ := newTestRunner(client, RunnerConfig{})

	var attempts int32
	outcome, err := runner.Run(context.Background(), TestCase{
		ID:       "001",
		Name:     "flaky",
		Category: CategoryBasic,
		Body: func(context.Context, *Exec) error {
			if atomic.AddInt32(&attempts, 1) == 1 {
				return apiErr("SlowDown")
			}
			return nil
		},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPassed, outcome.Status)
	assert.Equal(t, 1, outcome.Retries)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestRunner_NoRetryOnAssertionFailure(t *testing.T) {
	client := newFakeClient()
	runner, _ := newTestRunner(client, RunnerConfig{})

	var attempts int32
	outcome, err := runner.Run(context.Background(), TestCase{
		ID:       "001",
		Name:     "broken",
		Category: CategoryBasic,
		Body: func(context.Context, *Exec) error {
			atomic.AddInt32(&attempts, 1)
			return apiErr("NoSuchKey")
		},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, outcome.Status)
	assert.Zero(t, outcome.Retries)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestRunner_RunEnvironmentError(t *testing.T) {
	client := newFakeClient()
	client.createErr = errors.New("InvalidAccessKeyId")
	runner, _ := newTestRunner(client, RunnerConfig{})

	_, err := runner.Run(context.Background(), TestCase{
		ID:       "001",
		Name:     "env",
		Category: CategoryBasic,
		Body:     noopBody,
	})
	require.Error(t, err)

	var rce *ResourceCreationError
	assert.ErrorAs(t, err, &rce)
}

func TestRunner_RunAll(t *testing.T) {
	client := newFakeClient()
	runner, _ := newTestRunner(client, RunnerConfig{Workers: 2})

	var observed int32
	runner.Observe(func(Outcome) { atomic.AddInt32(&observed, 1) })

	cases := []TestCase{
		{ID: "001", Name: "pass", Category: CategoryBasic, Body: noopBody},
		{ID: "002", Name: "fail", Category: CategoryBasic, Body: func(context.Context, *Exec) error {
			return errors.New("boom")
		}},
		{ID: "200", Name: "skip", Category: CategoryVersioning, Body: noopBody, Skip: func(*s3conf.S3Conf) string {
			return "versioning not enabled for this run"
		}},
	}

	report, err := runner.RunAll(context.Background(), cases)
	require.NoError(t, err)

	assert.Len(t, report.Outcomes, 3)
	assert.Equal(t, 1, report.Total(StatusPassed))
	assert.Equal(t, 1, report.Total(StatusFailed))
	assert.Equal(t, 1, report.Total(StatusSkipped))
	assert.True(t, report.HasFailures())
	assert.Equal(t, int32(3), atomic.LoadInt32(&observed))
}

func TestRunner_RunAllAbortsOnEnvironmentError(t *testing.T) {
	client := newFakeClient()
	client.createErr = errors.New("connection refused")
	runner, _ := newTestRunner(client, RunnerConfig{Workers: 1})

	cases := []TestCase{
		{ID: "001", Name: "a", Category: CategoryBasic, Body: noopBody},
		{ID: "002", Name: "b", Category: CategoryBasic, Body: noopBody},
	}

	report, err := runner.RunAll(context.Background(), cases)
	require.Error(t, err)

	var rce *ResourceCreationError
	assert.ErrorAs(t, err, &rce)
	assert.Empty(t, report.Outcomes, "aborted tests must not be recorded as failures")
}
