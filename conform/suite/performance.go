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

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/versity/s3conform/conform"
)

const (
	smallObjectCount = 50
	smallObjectSize  = 1024
	largeObjectSize  = 10 * 1024 * 1024
)

func performanceTests() []conform.TestCase {
	return []conform.TestCase{
		{
			ID:       "600",
			Name:     "performance_sequential_small_objects",
			Category: conform.CategoryPerformance,
			Body:     performanceSequentialSmallObjects,
		},
		{
			ID:       "601",
			Name:     "performance_large_transfer",
			Category: conform.CategoryPerformance,
			Body:     performanceLargeTransfer,
		},
	}
}

func performanceSequentialSmallObjects(ctx context.Context, e *conform.Exec) error {
	for i := 0; i < smallObjectCount; i++ {
		obj := fmt.Sprintf("small-%v", i)
		csum, _, err := putObjectWithData(ctx, smallObjectSize, &s3.PutObjectInput{
			Bucket: &e.Fixture.Bucket,
			Key:    &obj,
		}, e.Client)
		if err != nil {
			return fmt.Errorf("put %v: %w", obj, err)
		}
		e.Fixture.TrackObject(obj)

		body, err := downloadObject(ctx, e.Client, e.Fixture.Bucket, obj)
		if err != nil {
			return fmt.Errorf("get %v: %w", obj, err)
		}
		if sha256.Sum256(body) != csum {
			return fmt.Errorf("the downloaded data for %v differs from the uploaded data", obj)
		}
	}

	sctx, cancel := context.WithTimeout(ctx, shortTimeout)
	out, err := e.Client.ListObjectsV2(sctx, &s3.ListObjectsV2Input{
		Bucket: &e.Fixture.Bucket,
	})
	cancel()
	if err != nil {
		return err
	}
	if len(out.Contents) != smallObjectCount {
		return fmt.Errorf("expected %v objects, instead got %v", smallObjectCount, len(out.Contents))
	}

	return nil
}

func performanceLargeTransfer(ctx context.Context, e *conform.Exec) error {
	obj := "large-obj"
	r := NewDataReader(largeObjectSize, 64*1024)

	if err := e.Conf.UploadData(ctx, r, e.Fixture.Bucket, obj); err != nil {
		return fmt.Errorf("upload %v bytes: %w", largeObjectSize, err)
	}
	e.Fixture.TrackObject(obj)

	buf := manager.NewWriteAtBuffer(make([]byte, 0, largeObjectSize))
	n, err := e.Conf.DownloadData(ctx, buf, e.Fixture.Bucket, obj)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	if n != largeObjectSize {
		return fmt.Errorf("expected to download %v bytes, instead got %v", largeObjectSize, n)
	}

	csum := sha256.Sum256(buf.Bytes())
	if !bytes.Equal(csum[:], r.Sum()) {
		return fmt.Errorf("the downloaded data differs from the uploaded data")
	}

	return nil
}
