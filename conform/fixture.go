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
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ResourceCreationError is returned by Begin when the provider rejects
// the fixture bucket. This signals an environment problem, not a
// transient fault, so it is never retried.
type ResourceCreationError struct {
	Bucket string
	Err    error
}

func (e *ResourceCreationError) Error() string {
	return fmt.Sprintf("create fixture bucket %v: %v", e.Bucket, e.Err)
}

func (e *ResourceCreationError) Unwrap() error { return e.Err }

type resourceKind int

const (
	resourceObject resourceKind = iota
	resourceUpload
)

type trackedResource struct {
	kind     resourceKind
	key      string
	uploadID string
}

// Fixture is the provider-side namespace owned by a single test
// execution: one bucket plus every object and multipart upload the
// test created in it. All methods are safe for concurrent use since a
// timed-out test body may still be running while teardown proceeds.
type Fixture struct {
	Bucket string

	mu        sync.Mutex
	resources []trackedResource
	warnings  []string
	disposed  bool
}

// TrackObject records an object key for teardown. Tracking the same
// key twice is a no-op, so teardown never double-deletes.
func (fx *Fixture) TrackObject(key string) {
	fx.track(trackedResource{kind: resourceObject, key: key})
}

// TrackUpload records an open multipart upload for teardown.
func (fx *Fixture) TrackUpload(key, uploadID string) {
	fx.track(trackedResource{kind: resourceUpload, key: key, uploadID: uploadID})
}

func (fx *Fixture) track(r trackedResource) {
	fx.mu.Lock()
	defer fx.mu.Unlock()
	if fx.disposed {
		return
	}
	for _, have := range fx.resources {
		if have == r {
			return
		}
	}
	fx.resources = append(fx.resources, r)
}

// Warnings returns the cleanup failures accumulated by End.
func (fx *Fixture) Warnings() []string {
	fx.mu.Lock()
	defer fx.mu.Unlock()
	return append([]string(nil), fx.warnings...)
}

func (fx *Fixture) warnf(format string, a ...any) {
	fx.mu.Lock()
	defer fx.mu.Unlock()
	fx.warnings = append(fx.warnings, fmt.Sprintf(format, a...))
}

// takeResources marks the fixture disposed and returns the tracked
// resources in reverse creation order.
func (fx *Fixture) takeResources() ([]trackedResource, bool) {
	fx.mu.Lock()
	defer fx.mu.Unlock()
	if fx.disposed {
		return nil, false
	}
	fx.disposed = true

	rev := make([]trackedResource, 0, len(fx.resources))
	for i := len(fx.resources) - 1; i >= 0; i-- {
		rev = append(rev, fx.resources[i])
	}
	return rev, true
}

// FixtureManager creates and tears down per-test fixtures.
type FixtureManager struct {
	client    StorageClient
	names     *Generator
	opTimeout time.Duration
}

func NewFixtureManager(client StorageClient, names *Generator, opTimeout time.Duration) *FixtureManager {
	if opTimeout <= 0 {
		opTimeout = 10 * time.Second
	}
	return &FixtureManager{
		client:    client,
		names:     names,
		opTimeout: opTimeout,
	}
}

// Begin generates a bucket fingerprint for testID, creates the bucket,
// and returns a fixture bound to it.
func (m *FixtureManager) Begin(ctx context.Context, testID string) (*Fixture, error) {
	bucket, err := m.names.Fingerprint(testID)
	if err != nil {
		return nil, err
	}

	cctx, cancel := context.WithTimeout(ctx, m.opTimeout)
	_, err = m.client.CreateBucket(cctx, &s3.CreateBucketInput{
		Bucket: &bucket,
	})
	cancel()
	if err != nil {
		return nil, &ResourceCreationError{Bucket: bucket, Err: err}
	}

	return &Fixture{Bucket: bucket}, nil
}

// End tears down everything the fixture tracked, most recently created
// first, then sweeps untracked leftovers and deletes the bucket. Every
// deletion failure is recorded as a warning and never stops the
// remaining deletions. End runs against fresh contexts so teardown
// proceeds even after the test's own deadline fired. Calling End more
// than once per fixture is a no-op.
func (m *FixtureManager) End(fx *Fixture) []string {
	resources, first := fx.takeResources()
	if !first {
		return fx.Warnings()
	}

	for _, r := range resources {
		switch r.kind {
		case resourceObject:
			err := m.deleteObject(fx.Bucket, r.key, nil)
			if err != nil {
				fx.warnf("delete object %v: %v", r.key, err)
			}
		case resourceUpload:
			ctx, cancel := context.WithTimeout(context.Background(), m.opTimeout)
			_, err := m.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
				Bucket:   &fx.Bucket,
				Key:      &r.key,
				UploadId: &r.uploadID,
			})
			cancel()
			if err != nil {
				fx.warnf("abort multipart upload %v (%v): %v", r.key, r.uploadID, err)
			}
		}
	}

	m.sweep(fx)
	m.sweepVersions(fx)

	ctx, cancel := context.WithTimeout(context.Background(), m.opTimeout)
	_, err := m.client.DeleteBucket(ctx, &s3.DeleteBucketInput{
		Bucket: &fx.Bucket,
	})
	cancel()
	if err != nil {
		fx.warnf("delete bucket %v: %v", fx.Bucket, err)
	}

	return fx.Warnings()
}

// sweep removes objects a test created but never tracked so the bucket
// delete below can succeed.
func (m *FixtureManager) sweep(fx *Fixture) {
	in := &s3.ListObjectsV2Input{Bucket: &fx.Bucket}
	for {
		ctx, cancel := context.WithTimeout(context.Background(), m.opTimeout)
		out, err := m.client.ListObjectsV2(ctx, in)
		cancel()
		if err != nil {
			fx.warnf("list leftover objects: %v", err)
			return
		}

		for _, item := range out.Contents {
			err = m.deleteObject(fx.Bucket, *item.Key, nil)
			if err != nil {
				fx.warnf("delete leftover object %v: %v", *item.Key, err)
			}
		}

		if out.IsTruncated != nil && *out.IsTruncated {
			in.ContinuationToken = out.ContinuationToken
		} else {
			return
		}
	}
}

// sweepVersions clears object versions and delete markers from
// versioning-enabled fixtures. Providers without versioning reject the
// listing, which is not worth a warning.
func (m *FixtureManager) sweepVersions(fx *Fixture) {
	ctx, cancel := context.WithTimeout(context.Background(), m.opTimeout)
	out, err := m.client.ListObjectVersions(ctx, &s3.ListObjectVersionsInput{
		Bucket: &fx.Bucket,
	})
	cancel()
	if err != nil {
		return
	}

	for _, v := range out.Versions {
		if err := m.deleteObject(fx.Bucket, *v.Key, v.VersionId); err != nil {
			fx.warnf("delete object version %v (%v): %v", *v.Key, getString(v.VersionId), err)
		}
	}
	for _, dm := range out.DeleteMarkers {
		if err := m.deleteObject(fx.Bucket, *dm.Key, dm.VersionId); err != nil {
			fx.warnf("delete marker %v (%v): %v", *dm.Key, getString(dm.VersionId), err)
		}
	}
}

func (m *FixtureManager) deleteObject(bucket, key string, versionID *string) error {
	ctx, cancel := context.WithTimeout(context.Background(), m.opTimeout)
	defer cancel()
	_, err := m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket:    &bucket,
		Key:       &key,
		VersionId: versionID,
	})
	return err
}

func getString(str *string) string {
	if str == nil {
		return ""
	}
	return *str
}
