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
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient records fixture operations in call order and fails the
// calls it was told to fail.
type fakeClient struct {
	mu  sync.Mutex
	ops []string

	createErr    error
	deleteErrs   map[string]error
	leftovers    []string
	versionsErr  error
	versions     []types.ObjectVersion
	deleteMarks  []types.DeleteMarkerEntry
	deleteBucket error
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		deleteErrs:  map[string]error{},
		versionsErr: errors.New("NotImplemented"),
	}
}

func (f *fakeClient) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, op)
}

func (f *fakeClient) opLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ops...)
}

func (f *fakeClient) CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.record("create " + *in.Bucket)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &s3.CreateBucketOutput{}, nil
}

func (f *fakeClient) DeleteBucket(ctx context.Context, in *s3.DeleteBucketInput, optFns ...func(*s3.Options)) (*s3.DeleteBucketOutput, error) {
	f.record("delete-bucket " + *in.Bucket)
	if f.deleteBucket != nil {
		return nil, f.deleteBucket
	}
	return &s3.DeleteBucketOutput{}, nil
}

func (f *fakeClient) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.record("list")
	f.mu.Lock()
	keys := f.leftovers
	f.leftovers = nil
	f.mu.Unlock()

	out := &s3.ListObjectsV2Output{}
	for _, key := range keys {
		key := key
		out.Contents = append(out.Contents, types.Object{Key: &key})
	}
	return out, nil
}

func (f *fakeClient) ListObjectVersions(ctx context.Context, in *s3.ListObjectVersionsInput, optFns ...func(*s3.Options)) (*s3.ListObjectVersionsOutput, error) {
	f.record("list-versions")
	if f.versionsErr != nil {
		return nil, f.versionsErr
	}
	return &s3.ListObjectVersionsOutput{
		Versions:      f.versions,
		DeleteMarkers: f.deleteMarks,
	}, nil
}

func (f *fakeClient) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.record("delete-object " + *in.Key)
	if err, ok := f.deleteErrs[*in.Key]; ok {
		return nil, err
	}
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeClient) AbortMultipartUpload(ctx context.Context, in *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	f.record(fmt.Sprintf("abort %v %v", *in.Key, *in.UploadId))
	return &s3.AbortMultipartUploadOutput{}, nil
}

func newTestManager(client StorageClient) *FixtureManager {
	return NewFixtureManager(client, NewGenerator("s3conform", nil), time.Second)
}

func TestFixtureManager_Begin(t *testing.T) {
	client := newFakeClient()
	mgr := newTestManager(client)

	fx, err := mgr.Begin(context.Background(), "001")
	require.NoError(t, err)
	assert.Contains(t, fx.Bucket, "s3conform-001-")
	assert.Equal(t, []string{"create " + fx.Bucket}, client.opLog())
}

func TestFixtureManager_BeginCreateFails(t *testing.T) {
	client := newFakeClient()
	client.createErr = errors.New("InvalidAccessKeyId")
	mgr := newTestManager(client)

	_, err := mgr.Begin(context.Background(), "001")
	require.Error(t, err)

	var rce *ResourceCreationError
	require.ErrorAs(t, err, &rce)
	assert.Contains(t, rce.Bucket, "s3conform-001-")
	assert.ErrorIs(t, err, client.createErr)
}

func TestFixtureManager_EndReverseOrder(t *testing.T) {
	client := newFakeClient()
	mgr := newTestManager(client)

	fx, err := mgr.Begin(context.Background(), "001")
	require.NoError(t, err)

	fx.TrackObject("obj-a")
	fx.TrackObject("obj-b")
	fx.TrackUpload("mp-c", "upload-1")

	warnings := mgr.End(fx)
	assert.Empty(t, warnings)

	want := []string{
		"create " + fx.Bucket,
		"abort mp-c upload-1",
		"delete-object obj-b",
		"delete-object obj-a",
		"list",
		"list-versions",
		"delete-bucket " + fx.Bucket,
	}
	if diff := cmp.Diff(want, client.opLog()); diff != "" {
		t.Errorf("teardown order mismatch (-want +got):\n%s", diff)
	}
}

func TestFixture_TrackIdempotent(t *testing.T) {
	client := newFakeClient()
	mgr := newTestManager(client)

	fx, err := mgr.Begin(context.Background(), "001")
	require.NoError(t, err)

	fx.TrackObject("obj-a")
	fx.TrackObject("obj-a")
	fx.TrackUpload("mp-c", "upload-1")
	fx.TrackUpload("mp-c", "upload-1")

	mgr.End(fx)

	deletes := 0
	for _, op := range client.opLog() {
		if op == "delete-object obj-a" || op == "abort mp-c upload-1" {
			deletes++
		}
	}
	assert.Equal(t, 2, deletes, "tracked resources must be deleted exactly once")
}

func TestFixtureManager_EndPartialFailure(t *testing.T) {
	client := newFakeClient()
	client.deleteErrs["obj-b"] = errors.New("InternalError")
	mgr := newTestManager(client)

	fx, err := mgr.Begin(context.Background(), "001")
	require.NoError(t, err)

	fx.TrackObject("obj-a")
	fx.TrackObject("obj-b")

	warnings := mgr.End(fx)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "obj-b")

	// the failure did not stop the remaining deletions
	assert.Contains(t, client.opLog(), "delete-object obj-a")
	assert.Contains(t, client.opLog(), "delete-bucket "+fx.Bucket)
}

func TestFixtureManager_EndSweepsUntracked(t *testing.T) {
	client := newFakeClient()
	client.leftovers = []string{"stray-1", "stray-2"}
	mgr := newTestManager(client)

	fx, err := mgr.Begin(context.Background(), "001")
	require.NoError(t, err)

	warnings := mgr.End(fx)
	assert.Empty(t, warnings)
	assert.Contains(t, client.opLog(), "delete-object stray-1")
	assert.Contains(t, client.opLog(), "delete-object stray-2")
}

func TestFixtureManager_EndOnce(t *testing.T) {
	client := newFakeClient()
	client.deleteErrs["obj-a"] = errors.New("InternalError")
	mgr := newTestManager(client)

	fx, err := mgr.Begin(context.Background(), "001")
	require.NoError(t, err)
	fx.TrackObject("obj-a")

	first := mgr.End(fx)
	opsAfterFirst := len(client.opLog())

	second := mgr.End(fx)
	assert.Equal(t, first, second, "repeated End returns the same warnings")
	assert.Len(t, client.opLog(), opsAfterFirst, "repeated End must not touch the provider")

	// late tracking after disposal is ignored
	fx.TrackObject("late-obj")
	mgr.End(fx)
	assert.Len(t, client.opLog(), opsAfterFirst)
}

func TestFixtureManager_EndSweepsVersions(t *testing.T) {
	client := newFakeClient()
	client.versionsErr = nil
	client.versions = []types.ObjectVersion{
		{Key: strPtr("obj-a"), VersionId: strPtr("v1")},
	}
	client.deleteMarks = []types.DeleteMarkerEntry{
		{Key: strPtr("obj-a"), VersionId: strPtr("v2")},
	}
	mgr := newTestManager(client)

	fx, err := mgr.Begin(context.Background(), "001")
	require.NoError(t, err)

	warnings := mgr.End(fx)
	assert.Empty(t, warnings)

	deletes := 0
	for _, op := range client.opLog() {
		if op == "delete-object obj-a" {
			deletes++
		}
	}
	assert.Equal(t, 2, deletes, "both the version and the delete marker must be removed")
}

func strPtr(s string) *string { return &s }
