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

// Package suite holds the built-in conformance test cases. Test ids
// are numeric and grouped by category: basic 1-99, multipart 100-199,
// versioning 200-299, acl 300-399, encryption 400-499, lifecycle
// 500-599, performance 600-699.
package suite

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/versity/s3conform/conform"
)

const shortTimeout = 10 * time.Second

// RegisterAll registers every built-in test case.
func RegisterAll(reg *conform.Registry) error {
	groups := [][]conform.TestCase{
		basicTests(),
		multipartTests(),
		versioningTests(),
		aclTests(),
		encryptionTests(),
		lifecycleTests(),
		performanceTests(),
	}

	for _, group := range groups {
		for _, tc := range group {
			if err := reg.Register(tc); err != nil {
				return err
			}
		}
	}
	return nil
}

func getPtr[T any](v T) *T {
	return &v
}

// putObjectWithData uploads lgth random bytes per input and returns
// the payload checksum and data for later comparison.
func putObjectWithData(ctx context.Context, lgth int64, input *s3.PutObjectInput, client *s3.Client) (csum [32]byte, data []byte, err error) {
	data = make([]byte, lgth)
	rand.Read(data)
	csum = sha256.Sum256(data)
	input.Body = bytes.NewReader(data)

	sctx, cancel := context.WithTimeout(ctx, shortTimeout)
	_, err = client.PutObject(sctx, input)
	cancel()

	return
}

func createMp(ctx context.Context, s3client *s3.Client, bucket, key string) (*s3.CreateMultipartUploadOutput, error) {
	sctx, cancel := context.WithTimeout(ctx, shortTimeout)
	out, err := s3client.CreateMultipartUpload(sctx, &s3.CreateMultipartUploadInput{
		Bucket: &bucket,
		Key:    &key,
	})
	cancel()
	return out, err
}

func checkSdkApiErr(err error, code string) error {
	if err == nil {
		return fmt.Errorf("expected %v, instead got nil", code)
	}
	var ae smithy.APIError
	if errors.As(err, &ae) {
		if ae.ErrorCode() != code {
			return fmt.Errorf("expected %v, instead got %v", code, ae.ErrorCode())
		}
		return nil
	}
	return err
}

// downloadObject reads the full object body and returns it.
func downloadObject(ctx context.Context, client *s3.Client, bucket, key string) ([]byte, error) {
	sctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()

	out, err := client.GetObject(sctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(out.Body); err != nil {
		return nil, fmt.Errorf("read object body: %w", err)
	}
	return buf.Bytes(), nil
}
