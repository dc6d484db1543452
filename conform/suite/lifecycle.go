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

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/versity/s3conform/conform"
	"github.com/versity/s3conform/s3err"
)

// lifecycle configuration is optional on most non-AWS providers, every
// lifecycle call goes through the capability probe
func lifecycleTests() []conform.TestCase {
	return []conform.TestCase{
		{
			ID:       "500",
			Name:     "lifecycle_put_get_configuration",
			Category: conform.CategoryLifecycle,
			Body:     lifecyclePutGetConfiguration,
		},
		{
			ID:       "501",
			Name:     "lifecycle_delete_configuration",
			Category: conform.CategoryLifecycle,
			Body:     lifecycleDeleteConfiguration,
		},
	}
}

func putLifecycle(ctx context.Context, client *s3.Client, bucket, ruleID string) (any, error) {
	sctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()
	return client.PutBucketLifecycleConfiguration(sctx, &s3.PutBucketLifecycleConfigurationInput{
		Bucket: &bucket,
		LifecycleConfiguration: &types.BucketLifecycleConfiguration{
			Rules: []types.LifecycleRule{
				{
					ID:     &ruleID,
					Status: types.ExpirationStatusEnabled,
					Filter: &types.LifecycleRuleFilter{
						Prefix: getPtr("tmp/"),
					},
					Expiration: &types.LifecycleExpiration{
						Days: getPtr(int32(1)),
					},
				},
			},
		},
	})
}

func lifecyclePutGetConfiguration(ctx context.Context, e *conform.Exec) error {
	ruleID := "expire-tmp"
	res := e.Probe("lifecycle:put-configuration", true, func() (any, error) {
		return putLifecycle(ctx, e.Client, e.Fixture.Bucket, ruleID)
	})
	switch res.Status {
	case conform.CapabilityError:
		return res.Err
	case conform.CapabilityNotSupported:
		return nil
	}

	sctx, cancel := context.WithTimeout(ctx, shortTimeout)
	out, err := e.Client.GetBucketLifecycleConfiguration(sctx, &s3.GetBucketLifecycleConfigurationInput{
		Bucket: &e.Fixture.Bucket,
	})
	cancel()
	if err != nil {
		return err
	}
	if len(out.Rules) != 1 {
		return fmt.Errorf("expected 1 lifecycle rule, instead got %v", len(out.Rules))
	}
	rule := out.Rules[0]
	if rule.ID == nil || *rule.ID != ruleID {
		return fmt.Errorf("expected lifecycle rule id %v, instead got %v", ruleID, rule.ID)
	}
	if rule.Status != types.ExpirationStatusEnabled {
		return fmt.Errorf("expected lifecycle rule status %v, instead got %v",
			types.ExpirationStatusEnabled, rule.Status)
	}
	if rule.Expiration == nil || rule.Expiration.Days == nil || *rule.Expiration.Days != 1 {
		return fmt.Errorf("expected the lifecycle expiration of 1 day to survive the roundtrip")
	}

	return nil
}

func lifecycleDeleteConfiguration(ctx context.Context, e *conform.Exec) error {
	res := e.Probe("lifecycle:put-configuration", true, func() (any, error) {
		return putLifecycle(ctx, e.Client, e.Fixture.Bucket, "expire-tmp")
	})
	switch res.Status {
	case conform.CapabilityError:
		return res.Err
	case conform.CapabilityNotSupported:
		return nil
	}

	sctx, cancel := context.WithTimeout(ctx, shortTimeout)
	_, err := e.Client.DeleteBucketLifecycle(sctx, &s3.DeleteBucketLifecycleInput{
		Bucket: &e.Fixture.Bucket,
	})
	cancel()
	if err != nil {
		return err
	}

	sctx, cancel = context.WithTimeout(ctx, shortTimeout)
	_, err = e.Client.GetBucketLifecycleConfiguration(sctx, &s3.GetBucketLifecycleConfigurationInput{
		Bucket: &e.Fixture.Bucket,
	})
	cancel()
	return checkSdkApiErr(err, s3err.GetAPIError(s3err.ErrNoSuchLifecycleConfiguration).Code)
}
