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
	"crypto/md5"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/versity/s3conform/conform"
)

// server side encryption is optional on most non-AWS providers, every
// encryption call goes through the capability probe
func encryptionTests() []conform.TestCase {
	return []conform.TestCase{
		{
			ID:       "400",
			Name:     "encryption_sse_s3",
			Category: conform.CategoryEncryption,
			Body:     encryptionSseS3,
		},
		{
			ID:       "401",
			Name:     "encryption_sse_kms",
			Category: conform.CategoryEncryption,
			Body:     encryptionSseKms,
		},
		{
			ID:       "402",
			Name:     "encryption_sse_c",
			Category: conform.CategoryEncryption,
			Body:     encryptionSseC,
		},
		{
			ID:       "403",
			Name:     "encryption_bucket_default",
			Category: conform.CategoryEncryption,
			Body:     encryptionBucketDefault,
		},
	}
}

func encryptionSseS3(ctx context.Context, e *conform.Exec) error {
	obj := "my-obj"
	data := make([]byte, 1024)
	rand.Read(data)
	csum := sha256.Sum256(data)

	res := e.Probe("sse:AES256", true, func() (any, error) {
		sctx, cancel := context.WithTimeout(ctx, shortTimeout)
		defer cancel()
		return e.Client.PutObject(sctx, &s3.PutObjectInput{
			Bucket:               &e.Fixture.Bucket,
			Key:                  &obj,
			Body:                 bytes.NewReader(data),
			ServerSideEncryption: types.ServerSideEncryptionAes256,
		})
	})
	switch res.Status {
	case conform.CapabilityError:
		return res.Err
	case conform.CapabilityNotSupported:
		return nil
	}
	e.Fixture.TrackObject(obj)

	body, err := downloadObject(ctx, e.Client, e.Fixture.Bucket, obj)
	if err != nil {
		return err
	}
	if sha256.Sum256(body) != csum {
		return fmt.Errorf("the decrypted data differs from the uploaded data")
	}

	return nil
}

func encryptionSseKms(ctx context.Context, e *conform.Exec) error {
	obj := "my-obj"
	data := make([]byte, 1024)
	rand.Read(data)

	res := e.Probe("sse:aws:kms", true, func() (any, error) {
		sctx, cancel := context.WithTimeout(ctx, shortTimeout)
		defer cancel()
		return e.Client.PutObject(sctx, &s3.PutObjectInput{
			Bucket:               &e.Fixture.Bucket,
			Key:                  &obj,
			Body:                 bytes.NewReader(data),
			ServerSideEncryption: types.ServerSideEncryptionAwsKms,
		})
	})
	if res.Status == conform.CapabilityError {
		return res.Err
	}
	if res.Status == conform.CapabilitySupported {
		e.Fixture.TrackObject(obj)
	}

	return nil
}

func encryptionSseC(ctx context.Context, e *conform.Exec) error {
	obj := "my-obj"
	data := make([]byte, 1024)
	rand.Read(data)
	csum := sha256.Sum256(data)

	key := make([]byte, 32)
	rand.Read(key)
	keyB64 := base64.StdEncoding.EncodeToString(key)
	keyMD5 := md5.Sum(key)
	keyMD5B64 := base64.StdEncoding.EncodeToString(keyMD5[:])

	res := e.Probe("sse-c:AES256", true, func() (any, error) {
		sctx, cancel := context.WithTimeout(ctx, shortTimeout)
		defer cancel()
		return e.Client.PutObject(sctx, &s3.PutObjectInput{
			Bucket:               &e.Fixture.Bucket,
			Key:                  &obj,
			Body:                 bytes.NewReader(data),
			SSECustomerAlgorithm: getPtr("AES256"),
			SSECustomerKey:       &keyB64,
			SSECustomerKeyMD5:    &keyMD5B64,
		})
	})
	switch res.Status {
	case conform.CapabilityError:
		return res.Err
	case conform.CapabilityNotSupported:
		return nil
	}
	e.Fixture.TrackObject(obj)

	sctx, cancel := context.WithTimeout(ctx, shortTimeout)
	out, err := e.Client.GetObject(sctx, &s3.GetObjectInput{
		Bucket:               &e.Fixture.Bucket,
		Key:                  &obj,
		SSECustomerAlgorithm: getPtr("AES256"),
		SSECustomerKey:       &keyB64,
		SSECustomerKeyMD5:    &keyMD5B64,
	})
	cancel()
	if err != nil {
		return err
	}
	defer out.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(out.Body); err != nil {
		return fmt.Errorf("read object body: %w", err)
	}
	if sha256.Sum256(buf.Bytes()) != csum {
		return fmt.Errorf("the decrypted data differs from the uploaded data")
	}

	return nil
}

func encryptionBucketDefault(ctx context.Context, e *conform.Exec) error {
	res := e.Probe("sse:bucket-default", true, func() (any, error) {
		sctx, cancel := context.WithTimeout(ctx, shortTimeout)
		defer cancel()
		return e.Client.PutBucketEncryption(sctx, &s3.PutBucketEncryptionInput{
			Bucket: &e.Fixture.Bucket,
			ServerSideEncryptionConfiguration: &types.ServerSideEncryptionConfiguration{
				Rules: []types.ServerSideEncryptionRule{
					{
						ApplyServerSideEncryptionByDefault: &types.ServerSideEncryptionByDefault{
							SSEAlgorithm: types.ServerSideEncryptionAes256,
						},
					},
				},
			},
		})
	})
	switch res.Status {
	case conform.CapabilityError:
		return res.Err
	case conform.CapabilityNotSupported:
		return nil
	}

	sctx, cancel := context.WithTimeout(ctx, shortTimeout)
	out, err := e.Client.GetBucketEncryption(sctx, &s3.GetBucketEncryptionInput{
		Bucket: &e.Fixture.Bucket,
	})
	cancel()
	if err != nil {
		return err
	}
	rules := out.ServerSideEncryptionConfiguration.Rules
	if len(rules) != 1 {
		return fmt.Errorf("expected 1 encryption rule, instead got %v", len(rules))
	}
	algo := rules[0].ApplyServerSideEncryptionByDefault.SSEAlgorithm
	if algo != types.ServerSideEncryptionAes256 {
		return fmt.Errorf("expected default sse algorithm %v, instead got %v",
			types.ServerSideEncryptionAes256, algo)
	}

	return nil
}
