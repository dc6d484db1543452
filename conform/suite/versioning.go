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
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/versity/s3conform/conform"
	"github.com/versity/s3conform/s3conf"
	"github.com/versity/s3conform/s3err"
)

func versioningTests() []conform.TestCase {
	skip := func(conf *s3conf.S3Conf) string {
		if !conf.VersioningEnabled() {
			return "versioning not enabled for this run"
		}
		return ""
	}

	return []conform.TestCase{
		{
			ID:       "200",
			Name:     "versioning_enable_bucket",
			Category: conform.CategoryVersioning,
			Body:     versioningEnableBucket,
			Skip:     skip,
		},
		{
			ID:       "201",
			Name:     "versioning_object_versions",
			Category: conform.CategoryVersioning,
			Body:     versioningObjectVersions,
			Skip:     skip,
		},
		{
			ID:       "202",
			Name:     "versioning_delete_marker",
			Category: conform.CategoryVersioning,
			Body:     versioningDeleteMarker,
			Skip:     skip,
		},
	}
}

func enableVersioning(ctx context.Context, client *s3.Client, bucket string) error {
	sctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()
	_, err := client.PutBucketVersioning(sctx, &s3.PutBucketVersioningInput{
		Bucket: &bucket,
		VersioningConfiguration: &types.VersioningConfiguration{
			Status: types.BucketVersioningStatusEnabled,
		},
	})
	return err
}

func versioningEnableBucket(ctx context.Context, e *conform.Exec) error {
	res := e.Probe("bucket-versioning", false, func() (any, error) {
		return nil, enableVersioning(ctx, e.Client, e.Fixture.Bucket)
	})
	switch res.Status {
	case conform.CapabilityError:
		return res.Err
	case conform.CapabilityNotSupported:
		return nil
	}

	sctx, cancel := context.WithTimeout(ctx, shortTimeout)
	out, err := e.Client.GetBucketVersioning(sctx, &s3.GetBucketVersioningInput{
		Bucket: &e.Fixture.Bucket,
	})
	cancel()
	if err != nil {
		return err
	}
	if out.Status != types.BucketVersioningStatusEnabled {
		return fmt.Errorf("expected versioning status %v, instead got %v",
			types.BucketVersioningStatusEnabled, out.Status)
	}

	return nil
}

func versioningObjectVersions(ctx context.Context, e *conform.Exec) error {
	if err := enableVersioning(ctx, e.Client, e.Fixture.Bucket); err != nil {
		return err
	}

	obj := "my-obj"
	firstCsum, _, err := putObjectWithData(ctx, 512, &s3.PutObjectInput{
		Bucket: &e.Fixture.Bucket,
		Key:    &obj,
	}, e.Client)
	if err != nil {
		return err
	}
	secondCsum, _, err := putObjectWithData(ctx, 512, &s3.PutObjectInput{
		Bucket: &e.Fixture.Bucket,
		Key:    &obj,
	}, e.Client)
	if err != nil {
		return err
	}

	sctx, cancel := context.WithTimeout(ctx, shortTimeout)
	out, err := e.Client.ListObjectVersions(sctx, &s3.ListObjectVersionsInput{
		Bucket: &e.Fixture.Bucket,
	})
	cancel()
	if err != nil {
		return err
	}
	if len(out.Versions) != 2 {
		return fmt.Errorf("expected 2 object versions, instead got %v", len(out.Versions))
	}

	// versions are listed newest first
	if out.Versions[0].IsLatest == nil || !*out.Versions[0].IsLatest {
		return fmt.Errorf("expected the first listed version to be the latest")
	}

	// the latest version should match the second upload
	body, err := downloadObject(ctx, e.Client, e.Fixture.Bucket, obj)
	if err != nil {
		return err
	}
	if sha256.Sum256(body) != secondCsum {
		return fmt.Errorf("the latest version data differs from the last uploaded data")
	}

	// the older version is still retrievable by version id
	sctx, cancel = context.WithTimeout(ctx, shortTimeout)
	vout, err := e.Client.GetObject(sctx, &s3.GetObjectInput{
		Bucket:    &e.Fixture.Bucket,
		Key:       &obj,
		VersionId: out.Versions[1].VersionId,
	})
	cancel()
	if err != nil {
		return err
	}
	defer vout.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(vout.Body); err != nil {
		return fmt.Errorf("read version body: %w", err)
	}
	if sha256.Sum256(buf.Bytes()) != firstCsum {
		return fmt.Errorf("the older version data differs from the first uploaded data")
	}

	return nil
}

func versioningDeleteMarker(ctx context.Context, e *conform.Exec) error {
	if err := enableVersioning(ctx, e.Client, e.Fixture.Bucket); err != nil {
		return err
	}

	obj := "my-obj"
	_, _, err := putObjectWithData(ctx, 256, &s3.PutObjectInput{
		Bucket: &e.Fixture.Bucket,
		Key:    &obj,
	}, e.Client)
	if err != nil {
		return err
	}

	// a versionless delete creates a delete marker instead of
	// removing the data
	sctx, cancel := context.WithTimeout(ctx, shortTimeout)
	_, err = e.Client.DeleteObject(sctx, &s3.DeleteObjectInput{
		Bucket: &e.Fixture.Bucket,
		Key:    &obj,
	})
	cancel()
	if err != nil {
		return err
	}

	sctx, cancel = context.WithTimeout(ctx, shortTimeout)
	_, err = e.Client.GetObject(sctx, &s3.GetObjectInput{
		Bucket: &e.Fixture.Bucket,
		Key:    &obj,
	})
	cancel()
	if err := checkSdkApiErr(err, s3err.GetAPIError(s3err.ErrNoSuchKey).Code); err != nil {
		return err
	}

	sctx, cancel = context.WithTimeout(ctx, shortTimeout)
	out, err := e.Client.ListObjectVersions(sctx, &s3.ListObjectVersionsInput{
		Bucket: &e.Fixture.Bucket,
	})
	cancel()
	if err != nil {
		return err
	}
	if len(out.DeleteMarkers) != 1 {
		return fmt.Errorf("expected 1 delete marker, instead got %v", len(out.DeleteMarkers))
	}
	if len(out.Versions) != 1 {
		return fmt.Errorf("expected the data version to survive the delete, instead got %v versions", len(out.Versions))
	}

	return nil
}
