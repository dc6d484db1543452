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
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/minio/crc64nvme"
	"github.com/versity/s3conform/conform"
	"github.com/versity/s3conform/s3err"
)

func basicTests() []conform.TestCase {
	return []conform.TestCase{
		{
			ID:       "001",
			Name:     "basic_put_get_object",
			Category: conform.CategoryBasic,
			Body:     basicPutGetObject,
		},
		{
			ID:       "002",
			Name:     "basic_head_object",
			Category: conform.CategoryBasic,
			Body:     basicHeadObject,
		},
		{
			ID:       "003",
			Name:     "basic_delete_object",
			Category: conform.CategoryBasic,
			Body:     basicDeleteObject,
		},
		{
			ID:       "004",
			Name:     "basic_copy_object",
			Category: conform.CategoryBasic,
			Body:     basicCopyObject,
		},
		{
			ID:       "005",
			Name:     "basic_list_objects_prefix",
			Category: conform.CategoryBasic,
			Body:     basicListObjectsPrefix,
		},
		{
			ID:       "006",
			Name:     "basic_delete_objects_batch",
			Category: conform.CategoryBasic,
			Body:     basicDeleteObjectsBatch,
		},
		{
			ID:       "007",
			Name:     "basic_object_metadata",
			Category: conform.CategoryBasic,
			Body:     basicObjectMetadata,
		},
		{
			ID:       "008",
			Name:     "basic_data_integrity",
			Category: conform.CategoryBasic,
			Body:     basicDataIntegrity,
		},
		{
			ID:       "009",
			Name:     "basic_object_tagging",
			Category: conform.CategoryBasic,
			Body:     basicObjectTagging,
		},
	}
}

func basicPutGetObject(ctx context.Context, e *conform.Exec) error {
	obj := "my-obj"
	csum, _, err := putObjectWithData(ctx, 1024, &s3.PutObjectInput{
		Bucket: &e.Fixture.Bucket,
		Key:    &obj,
	}, e.Client)
	if err != nil {
		return err
	}
	e.Fixture.TrackObject(obj)

	body, err := downloadObject(ctx, e.Client, e.Fixture.Bucket, obj)
	if err != nil {
		return err
	}
	if len(body) != 1024 {
		return fmt.Errorf("expected content length 1024, instead got %v", len(body))
	}
	if sha256.Sum256(body) != csum {
		return fmt.Errorf("the downloaded data differs from the uploaded data")
	}

	return nil
}

func basicHeadObject(ctx context.Context, e *conform.Exec) error {
	obj, dataLen := "my-obj", int64(4096)
	_, _, err := putObjectWithData(ctx, dataLen, &s3.PutObjectInput{
		Bucket: &e.Fixture.Bucket,
		Key:    &obj,
	}, e.Client)
	if err != nil {
		return err
	}
	e.Fixture.TrackObject(obj)

	sctx, cancel := context.WithTimeout(ctx, shortTimeout)
	out, err := e.Client.HeadObject(sctx, &s3.HeadObjectInput{
		Bucket: &e.Fixture.Bucket,
		Key:    &obj,
	})
	cancel()
	if err != nil {
		return err
	}
	if out.ContentLength == nil || *out.ContentLength != dataLen {
		return fmt.Errorf("expected content length %v, instead got %v", dataLen, out.ContentLength)
	}
	if out.ETag == nil || *out.ETag == "" {
		return fmt.Errorf("expected a non empty ETag")
	}

	return nil
}

func basicDeleteObject(ctx context.Context, e *conform.Exec) error {
	obj := "my-obj"
	_, _, err := putObjectWithData(ctx, 128, &s3.PutObjectInput{
		Bucket: &e.Fixture.Bucket,
		Key:    &obj,
	}, e.Client)
	if err != nil {
		return err
	}

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
	return checkSdkApiErr(err, s3err.GetAPIError(s3err.ErrNoSuchKey).Code)
}

func basicCopyObject(ctx context.Context, e *conform.Exec) error {
	src, dst := "my-obj", "my-obj-copy"
	csum, _, err := putObjectWithData(ctx, 2048, &s3.PutObjectInput{
		Bucket: &e.Fixture.Bucket,
		Key:    &src,
	}, e.Client)
	if err != nil {
		return err
	}
	e.Fixture.TrackObject(src)

	sctx, cancel := context.WithTimeout(ctx, shortTimeout)
	_, err = e.Client.CopyObject(sctx, &s3.CopyObjectInput{
		Bucket:     &e.Fixture.Bucket,
		Key:        &dst,
		CopySource: getPtr(fmt.Sprintf("%v/%v", e.Fixture.Bucket, src)),
	})
	cancel()
	if err != nil {
		return err
	}
	e.Fixture.TrackObject(dst)

	body, err := downloadObject(ctx, e.Client, e.Fixture.Bucket, dst)
	if err != nil {
		return err
	}
	if sha256.Sum256(body) != csum {
		return fmt.Errorf("the copied data differs from the source data")
	}

	return nil
}

func basicListObjectsPrefix(ctx context.Context, e *conform.Exec) error {
	objs := []string{"asdf", "foo/bar", "foo/baz", "foo/sub/quxx", "zzyzx"}
	for _, obj := range objs {
		_, _, err := putObjectWithData(ctx, 16, &s3.PutObjectInput{
			Bucket: &e.Fixture.Bucket,
			Key:    getPtr(obj),
		}, e.Client)
		if err != nil {
			return err
		}
		e.Fixture.TrackObject(obj)
	}

	sctx, cancel := context.WithTimeout(ctx, shortTimeout)
	out, err := e.Client.ListObjectsV2(sctx, &s3.ListObjectsV2Input{
		Bucket:    &e.Fixture.Bucket,
		Prefix:    getPtr("foo/"),
		Delimiter: getPtr("/"),
	})
	cancel()
	if err != nil {
		return err
	}
	if len(out.Contents) != 2 {
		return fmt.Errorf("expected 2 objects under the prefix, instead got %v", len(out.Contents))
	}
	if len(out.CommonPrefixes) != 1 || *out.CommonPrefixes[0].Prefix != "foo/sub/" {
		return fmt.Errorf("expected the single common prefix foo/sub/, instead got %v", out.CommonPrefixes)
	}

	return nil
}

func basicDeleteObjectsBatch(ctx context.Context, e *conform.Exec) error {
	objs := []string{"obj-1", "obj-2", "obj-3"}
	delObjs := make([]types.ObjectIdentifier, 0, len(objs))
	for _, obj := range objs {
		_, _, err := putObjectWithData(ctx, 16, &s3.PutObjectInput{
			Bucket: &e.Fixture.Bucket,
			Key:    getPtr(obj),
		}, e.Client)
		if err != nil {
			return err
		}
		delObjs = append(delObjs, types.ObjectIdentifier{Key: getPtr(obj)})
	}

	sctx, cancel := context.WithTimeout(ctx, shortTimeout)
	out, err := e.Client.DeleteObjects(sctx, &s3.DeleteObjectsInput{
		Bucket: &e.Fixture.Bucket,
		Delete: &types.Delete{
			Objects: delObjs,
		},
	})
	cancel()
	if err != nil {
		return err
	}
	if len(out.Errors) != 0 {
		return fmt.Errorf("expected no batch delete errors, instead got %v", out.Errors)
	}

	sctx, cancel = context.WithTimeout(ctx, shortTimeout)
	listed, err := e.Client.ListObjectsV2(sctx, &s3.ListObjectsV2Input{
		Bucket: &e.Fixture.Bucket,
	})
	cancel()
	if err != nil {
		return err
	}
	if len(listed.Contents) != 0 {
		return fmt.Errorf("expected an empty bucket after the batch delete, instead got %v objects", len(listed.Contents))
	}

	return nil
}

func basicObjectMetadata(ctx context.Context, e *conform.Exec) error {
	obj := "my-obj"
	meta := map[string]string{
		"department": "storage",
		"release":    "v1",
	}
	_, _, err := putObjectWithData(ctx, 64, &s3.PutObjectInput{
		Bucket:   &e.Fixture.Bucket,
		Key:      &obj,
		Metadata: meta,
	}, e.Client)
	if err != nil {
		return err
	}
	e.Fixture.TrackObject(obj)

	sctx, cancel := context.WithTimeout(ctx, shortTimeout)
	out, err := e.Client.HeadObject(sctx, &s3.HeadObjectInput{
		Bucket: &e.Fixture.Bucket,
		Key:    &obj,
	})
	cancel()
	if err != nil {
		return err
	}
	for key, want := range meta {
		got, ok := out.Metadata[key]
		if !ok {
			return fmt.Errorf("expected metadata key %v to survive the roundtrip", key)
		}
		if got != want {
			return fmt.Errorf("expected metadata %v to be %v, instead got %v", key, want, got)
		}
	}

	return nil
}

func basicDataIntegrity(ctx context.Context, e *conform.Exec) error {
	obj := "my-obj"
	_, data, err := putObjectWithData(ctx, 1024*1024, &s3.PutObjectInput{
		Bucket: &e.Fixture.Bucket,
		Key:    &obj,
	}, e.Client)
	if err != nil {
		return err
	}
	e.Fixture.TrackObject(obj)

	body, err := downloadObject(ctx, e.Client, e.Fixture.Bucket, obj)
	if err != nil {
		return err
	}
	if crc64nvme.Checksum(body) != crc64nvme.Checksum(data) {
		return fmt.Errorf("the downloaded data checksum differs from the uploaded data checksum")
	}

	return nil
}

func basicObjectTagging(ctx context.Context, e *conform.Exec) error {
	obj := "my-obj"
	_, _, err := putObjectWithData(ctx, 64, &s3.PutObjectInput{
		Bucket: &e.Fixture.Bucket,
		Key:    &obj,
	}, e.Client)
	if err != nil {
		return err
	}
	e.Fixture.TrackObject(obj)

	tags := []types.Tag{
		{Key: getPtr("env"), Value: getPtr("test")},
		{Key: getPtr("team"), Value: getPtr("storage")},
	}
	sctx, cancel := context.WithTimeout(ctx, shortTimeout)
	_, err = e.Client.PutObjectTagging(sctx, &s3.PutObjectTaggingInput{
		Bucket:  &e.Fixture.Bucket,
		Key:     &obj,
		Tagging: &types.Tagging{TagSet: tags},
	})
	cancel()
	if err != nil {
		return err
	}

	sctx, cancel = context.WithTimeout(ctx, shortTimeout)
	out, err := e.Client.GetObjectTagging(sctx, &s3.GetObjectTaggingInput{
		Bucket: &e.Fixture.Bucket,
		Key:    &obj,
	})
	cancel()
	if err != nil {
		return err
	}
	if !areTagsSame(tags, out.TagSet) {
		return fmt.Errorf("expected tags %v, instead got %v", tags, out.TagSet)
	}

	sctx, cancel = context.WithTimeout(ctx, shortTimeout)
	_, err = e.Client.DeleteObjectTagging(sctx, &s3.DeleteObjectTaggingInput{
		Bucket: &e.Fixture.Bucket,
		Key:    &obj,
	})
	cancel()
	if err != nil {
		return err
	}

	sctx, cancel = context.WithTimeout(ctx, shortTimeout)
	out, err = e.Client.GetObjectTagging(sctx, &s3.GetObjectTaggingInput{
		Bucket: &e.Fixture.Bucket,
		Key:    &obj,
	})
	cancel()
	if err != nil {
		return err
	}
	if len(out.TagSet) != 0 {
		return fmt.Errorf("expected an empty tag set after delete, instead got %v", out.TagSet)
	}

	return nil
}

func areTagsSame(tags1, tags2 []types.Tag) bool {
	if len(tags1) != len(tags2) {
		return false
	}

	for _, want := range tags1 {
		found := false
		for _, got := range tags2 {
			if *want.Key == *got.Key && *want.Value == *got.Value {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
