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
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/versity/s3conform/conform"
)

// canned ACLs are optional on most non-AWS providers, every acl call
// goes through the capability probe
func aclTests() []conform.TestCase {
	cannedACLs := []types.BucketCannedACL{
		types.BucketCannedACLPrivate,
		types.BucketCannedACLPublicRead,
		types.BucketCannedACLPublicReadWrite,
		types.BucketCannedACLAuthenticatedRead,
		types.BucketCannedACL("bucket-owner-read"),
		types.BucketCannedACL("bucket-owner-full-control"),
	}

	cases := make([]conform.TestCase, 0, len(cannedACLs)+1)
	for i, acl := range cannedACLs {
		acl := acl
		cases = append(cases, conform.TestCase{
			ID:       fmt.Sprintf("%v", 300+i),
			Name:     fmt.Sprintf("acl_canned_%v", strings.ReplaceAll(string(acl), "-", "_")),
			Category: conform.CategoryACL,
			Body: func(ctx context.Context, e *conform.Exec) error {
				return aclPutCanned(ctx, e, acl)
			},
		})
	}

	cases = append(cases, conform.TestCase{
		ID:       "310",
		Name:     "acl_get_bucket_acl",
		Category: conform.CategoryACL,
		Body:     aclGetBucketACL,
	})

	return cases
}

func aclPutCanned(ctx context.Context, e *conform.Exec, acl types.BucketCannedACL) error {
	res := e.Probe(fmt.Sprintf("acl:%v", acl), true, func() (any, error) {
		sctx, cancel := context.WithTimeout(ctx, shortTimeout)
		defer cancel()
		return e.Client.PutBucketAcl(sctx, &s3.PutBucketAclInput{
			Bucket: &e.Fixture.Bucket,
			ACL:    acl,
		})
	})
	if res.Status == conform.CapabilityError {
		return res.Err
	}
	return nil
}

func aclGetBucketACL(ctx context.Context, e *conform.Exec) error {
	res := e.Probe("acl:get-bucket-acl", true, func() (any, error) {
		sctx, cancel := context.WithTimeout(ctx, shortTimeout)
		defer cancel()
		return e.Client.GetBucketAcl(sctx, &s3.GetBucketAclInput{
			Bucket: &e.Fixture.Bucket,
		})
	})
	switch res.Status {
	case conform.CapabilityError:
		return res.Err
	case conform.CapabilityNotSupported:
		return nil
	}

	out, ok := res.Value.(*s3.GetBucketAclOutput)
	if !ok {
		return fmt.Errorf("unexpected get bucket acl result type %T", res.Value)
	}
	if out.Owner == nil || out.Owner.ID == nil {
		return fmt.Errorf("expected a bucket owner in the acl response")
	}
	if len(out.Grants) == 0 {
		return fmt.Errorf("expected at least one grant in the acl response")
	}

	return nil
}
