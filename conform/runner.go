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
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/davecgh/go-spew/spew"
	"github.com/versity/s3conform/s3conf"
	"github.com/versity/s3conform/s3err"
	"golang.org/x/sync/semaphore"
)

const timeoutReason = "timeout"

// DefaultTransientCodes lists provider error codes treated as
// transient network-class noise worth a single retry.
func DefaultTransientCodes() []string {
	return []string{
		s3err.GetAPIError(s3err.ErrSlowDown).Code,
		s3err.GetAPIError(s3err.ErrServiceUnavailable).Code,
		s3err.GetAPIError(s3err.ErrRequestTimeout).Code,
		s3err.GetAPIError(s3err.ErrInternalError).Code,
	}
}

// RunnerConfig carries the per-run execution policy.
type RunnerConfig struct {
	// Workers is the bounded worker pool size. Defaults to 4.
	Workers int
	// Timeout is the per-test deadline. Defaults to 60s.
	Timeout time.Duration
	// TransientCodes overrides DefaultTransientCodes when non-nil.
	TransientCodes []string
	// Debug dumps full outcomes to stderr.
	Debug bool
}

// Runner executes registered test cases with per-test isolation,
// deadline, transient retry, and guaranteed fixture teardown.
type Runner struct {
	conf      *s3conf.S3Conf
	client    *s3.Client
	fixtures  *FixtureManager
	reporter  *Reporter
	probe     *Probe
	workers   int
	timeout   time.Duration
	transient map[string]struct{}
	debug     bool

	// observers receive every recorded outcome; used to feed metrics
	// and result event sinks without coupling the runner to them.
	observers []func(Outcome)
}

func NewRunner(conf *s3conf.S3Conf, client *s3.Client, fixtures *FixtureManager, reporter *Reporter, probe *Probe, cfg RunnerConfig) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	codes := cfg.TransientCodes
	if codes == nil {
		codes = DefaultTransientCodes()
	}
	transient := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		transient[c] = struct{}{}
	}

	return &Runner{
		conf:      conf,
		client:    client,
		fixtures:  fixtures,
		reporter:  reporter,
		probe:     probe,
		workers:   cfg.Workers,
		timeout:   cfg.Timeout,
		transient: transient,
		debug:     cfg.Debug,
	}
}

// Observe registers fn to be called with every recorded outcome.
// Must be called before RunAll.
func (r *Runner) Observe(fn func(Outcome)) {
	r.observers = append(r.observers, fn)
}

type execResult struct {
	err      error
	envErr   error
	timedOut bool
	gaps     []CapabilityGap
	warnings []string
}

// Run executes one test case and returns its outcome. A non-nil error
// means the environment itself is broken (fixture bucket rejected)
// and the run should abort. No other error escapes.
func (r *Runner) Run(ctx context.Context, tc TestCase) (Outcome, error) {
	start := time.Now()
	outcome := Outcome{
		ID:        tc.ID,
		Name:      tc.Name,
		Category:  tc.Category,
		Timestamp: start,
	}

	if tc.Skip != nil {
		if reason := tc.Skip(r.conf); reason != "" {
			outcome.Status = StatusSkipped
			outcome.Reason = reason
			outcome.Duration = time.Since(start).Seconds()
			return outcome, nil
		}
	}

	res := r.execute(ctx, tc)
	if res.envErr != nil {
		return outcome, res.envErr
	}
	if res.err != nil && !res.timedOut && r.isTransient(res.err) {
		// one retry covers flaky-network noise without masking
		// real defects
		outcome.Retries = 1
		res = r.execute(ctx, tc)
		if res.envErr != nil {
			return outcome, res.envErr
		}
	}

	outcome.CleanupWarnings = res.warnings
	outcome.Gaps = res.gaps
	outcome.Duration = time.Since(start).Seconds()

	switch {
	case res.timedOut:
		outcome.Status = StatusFailed
		outcome.Reason = timeoutReason
	case res.err != nil:
		outcome.Status = StatusFailed
		outcome.Reason = res.err.Error()
	case len(res.gaps) > 0:
		outcome.Status = StatusUnsupported
	default:
		outcome.Status = StatusPassed
	}

	return outcome, nil
}

// execute performs one attempt: fixture begin, deadline-bound body,
// guaranteed fixture end. On deadline the body is left running in the
// background and the attempt returns immediately; the fixture is
// still disposed, its own teardown contexts being independent of the
// test deadline.
func (r *Runner) execute(ctx context.Context, tc TestCase) (res execResult) {
	fx, err := r.fixtures.Begin(ctx, tc.ID)
	if err != nil {
		res.envErr = err
		return res
	}
	defer func() {
		res.warnings = r.fixtures.End(fx)
	}()

	e := &Exec{
		Conf:    r.conf,
		Client:  r.client,
		Fixture: fx,
		probe:   r.probe,
	}

	tctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- runBody(tctx, tc, e)
	}()

	select {
	case err := <-done:
		res.err = err
	case <-tctx.Done():
		res.timedOut = true
	}

	res.gaps = e.Gaps()
	return res
}

// runBody converts a panicking test body into a failure instead of
// taking down the whole run.
func runBody(ctx context.Context, tc TestCase, e *Exec) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("test body panic: %v", p)
		}
	}()
	return tc.Body(ctx, e)
}

func (r *Runner) isTransient(err error) bool {
	if code := s3err.ProviderErrorCode(err); code != "" {
		_, ok := r.transient[code]
		return ok
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return true
	}
	return strings.Contains(err.Error(), "connection reset by peer")
}

// RunAll executes cases on the bounded worker pool, records every
// outcome, and returns the finalized report. A non-nil error means
// the run was aborted by an environment failure; the report then
// covers only the tests that completed before the abort.
func (r *Runner) RunAll(ctx context.Context, cases []TestCase) (*Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := semaphore.NewWeighted(int64(r.workers))
	var wg sync.WaitGroup
	var envOnce sync.Once
	var envErr error

	for _, tc := range cases {
		if ctx.Err() != nil {
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}

		wg.Add(1)
		go func(tc TestCase) {
			defer wg.Done()
			defer sem.Release(1)

			runF("%v %v", tc.ID, tc.Name)
			outcome, err := r.Run(ctx, tc)
			if err != nil {
				envOnce.Do(func() {
					envErr = err
					cancel()
				})
				return
			}

			r.record(outcome)
		}(tc)
	}

	wg.Wait()
	return r.reporter.Finalize(), envErr
}

func (r *Runner) record(o Outcome) {
	if err := r.reporter.Record(o); err != nil {
		fmt.Println("record outcome:", err)
		return
	}

	switch o.Status {
	case StatusPassed:
		passF("%v %v", o.ID, o.Name)
	case StatusFailed:
		failF("%v %v: %v", o.ID, o.Name, o.Reason)
	case StatusUnsupported:
		gapF("%v %v: %v optional feature(s) not supported", o.ID, o.Name, len(o.Gaps))
	case StatusSkipped:
		skipF("%v %v: %v", o.ID, o.Name, o.Reason)
	}

	if r.debug {
		spew.Fdump(debugWriter(), o)
	}

	for _, fn := range r.observers {
		fn(o)
	}
}
