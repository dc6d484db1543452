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
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/versity/s3conform/conform"
	"github.com/versity/s3conform/s3err"
)

// minimum part size accepted for non-final parts
const partSize = 5 * 1024 * 1024

func multipartTests() []conform.TestCase {
	return []conform.TestCase{
		{
			ID:       "100",
			Name:     "multipart_upload_roundtrip",
			Category: conform.CategoryMultipart,
			Body:     multipartUploadRoundtrip,
		},
		{
			ID:       "101",
			Name:     "multipart_abort_upload",
			Category: conform.CategoryMultipart,
			Body:     multipartAbortUpload,
		},
		{
			ID:       "102",
			Name:     "multipart_list_parts",
			Category: conform.CategoryMultipart,
			Body:     multipartListParts,
		},
		{
			ID:       "103",
			Name:     "multipart_list_uploads",
			Category: conform.CategoryMultipart,
			Body:     multipartListUploads,
		},
	}
}

// uploadParts uploads count parts of partSize random bytes and returns
// the completed part list plus the full payload checksum.
func uploadParts(ctx context.Context, client *s3.Client, bucket, key, uploadID string, count int) ([]types.CompletedPart, [32]byte, error) {
	var (
		parts   []types.CompletedPart
		payload []byte
	)

	for i := 1; i <= count; i++ {
		data := make([]byte, partSize)
		rand.Read(data)
		payload = append(payload, data...)

		sctx, cancel := context.WithTimeout(ctx, shortTimeout)
		out, err := client.UploadPart(sctx, &s3.UploadPartInput{
			Bucket:     &bucket,
			Key:        &key,
			UploadId:   &uploadID,
			PartNumber: getPtr(int32(i)),
			Body:       bytes.NewReader(data),
		})
		cancel()
		if err != nil {
			return nil, [32]byte{}, fmt.Errorf("upload part %v: %w", i, err)
		}

		parts = append(parts, types.CompletedPart{
			ETag:       out.ETag,
			PartNumber: getPtr(int32(i)),
		})
	}

	return parts, sha256.Sum256(payload), nil
}

func multipartUploadRoundtrip(ctx context.Context, e *conform.Exec) error {
	obj := "my-mp"
	mp, err := createMp(ctx, e.Client, e.Fixture.Bucket, obj)
	if err != nil {
		return err
	}
	e.Fixture.TrackUpload(obj, *mp.UploadId)

	parts, csum, err := uploadParts(ctx, e.Client, e.Fixture.Bucket, obj, *mp.UploadId, 2)
	if err != nil {
		return err
	}

	sctx, cancel := context.WithTimeout(ctx, shortTimeout)
	_, err = e.Client.CompleteMultipartUpload(sctx, &s3.CompleteMultipartUploadInput{
		Bucket:   &e.Fixture.Bucket,
		Key:      &obj,
		UploadId: mp.UploadId,
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: parts,
		},
	})
	cancel()
	if err != nil {
		return err
	}
	e.Fixture.TrackObject(obj)

	body, err := downloadObject(ctx, e.Client, e.Fixture.Bucket, obj)
	if err != nil {
		return err
	}
	if len(body) != 2*partSize {
		return fmt.Errorf("expected content length %v, instead got %v", 2*partSize, len(body))
	}
	if sha256.Sum256(body) != csum {
		return fmt.Errorf("the downloaded data differs from the uploaded parts")
	}

	return nil
}

func multipartAbortUpload(ctx context.Context, e *conform.Exec) error {
	obj := "my-mp"
	mp, err := createMp(ctx, e.Client, e.Fixture.Bucket, obj)
	if err != nil {
		return err
	}
	e.Fixture.TrackUpload(obj, *mp.UploadId)

	_, _, err = uploadParts(ctx, e.Client, e.Fixture.Bucket, obj, *mp.UploadId, 1)
	if err != nil {
		return err
	}

	sctx, cancel := context.WithTimeout(ctx, shortTimeout)
	_, err = e.Client.AbortMultipartUpload(sctx, &s3.AbortMultipartUploadInput{
		Bucket:   &e.Fixture.Bucket,
		Key:      &obj,
		UploadId: mp.UploadId,
	})
	cancel()
	if err != nil {
		return err
	}

	sctx, cancel = context.WithTimeout(ctx, shortTimeout)
	_, err = e.Client.ListParts(sctx, &s3.ListPartsInput{
		Bucket:   &e.Fixture.Bucket,
		Key:      &obj,
		UploadId: mp.UploadId,
	})
	cancel()
	return checkSdkApiErr(err, s3err.GetAPIError(s3err.ErrNoSuchUpload).Code)
}

func multipartListParts(ctx context.Context, e *conform.Exec) error {
	obj := "my-mp"
	mp, err := createMp(ctx, e.Client, e.Fixture.Bucket, obj)
	if err != nil {
		return err
	}
	e.Fixture.TrackUpload(obj, *mp.UploadId)

	parts, _, err := uploadParts(ctx, e.Client, e.Fixture.Bucket, obj, *mp.UploadId, 3)
	if err != nil {
		return err
	}

	sctx, cancel := context.WithTimeout(ctx, shortTimeout)
	out, err := e.Client.ListParts(sctx, &s3.ListPartsInput{
		Bucket:   &e.Fixture.Bucket,
		Key:      &obj,
		UploadId: mp.UploadId,
	})
	cancel()
	if err != nil {
		return err
	}
	if len(out.Parts) != len(parts) {
		return fmt.Errorf("expected %v parts, instead got %v", len(parts), len(out.Parts))
	}
	for i, prt := range out.Parts {
		if *prt.PartNumber != *parts[i].PartNumber {
			return fmt.Errorf("expected part number %v, instead got %v", *parts[i].PartNumber, *prt.PartNumber)
		}
		if *prt.ETag != *parts[i].ETag {
			return fmt.Errorf("expected part %v ETag %v, instead got %v", *prt.PartNumber, *parts[i].ETag, *prt.ETag)
		}
	}

	return nil
}

func multipartListUploads(ctx context.Context, e *conform.Exec) error {
	objs := []string{"my-mp-1", "my-mp-2"}
	sort.Strings(objs)

	for _, obj := range objs {
		mp, err := createMp(ctx, e.Client, e.Fixture.Bucket, obj)
		if err != nil {
			return err
		}
		e.Fixture.TrackUpload(obj, *mp.UploadId)
	}

	sctx, cancel := context.WithTimeout(ctx, shortTimeout)
	out, err := e.Client.ListMultipartUploads(sctx, &s3.ListMultipartUploadsInput{
		Bucket: &e.Fixture.Bucket,
	})
	cancel()
	if err != nil {
		return err
	}
	if len(out.Uploads) != len(objs) {
		return fmt.Errorf("expected %v open uploads, instead got %v", len(objs), len(out.Uploads))
	}
	for i, up := range out.Uploads {
		if *up.Key != objs[i] {
			return fmt.Errorf("expected upload key %v, instead got %v", objs[i], *up.Key)
		}
	}

	return nil
}
