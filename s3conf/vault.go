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

package s3conf

import (
	"context"
	"fmt"
	"time"

	vault "github.com/hashicorp/vault-client-go"
	"github.com/hashicorp/vault-client-go/schema"
)

// VaultConfig describes where to find the target credentials in a
// HashiCorp Vault KV v2 store. CI environments keep the per-endpoint
// access keys there instead of in the pipeline environment.
type VaultConfig struct {
	Endpoint   string
	RootToken  string
	RoleID     string
	RoleSecret string
	MountPath  string
	SecretPath string
}

// LoadVaultCreds authenticates against Vault and reads the "access"
// and "secret" fields from the configured KV v2 secret path.
func LoadVaultCreds(ctx context.Context, cfg VaultConfig) (access, secret string, err error) {
	client, err := vault.New(
		vault.WithAddress(cfg.Endpoint),
		vault.WithRequestTimeout(10*time.Second),
	)
	if err != nil {
		return "", "", fmt.Errorf("init vault client: %w", err)
	}

	reqOpts := []vault.RequestOption{}
	// if mount path is not specified, it defaults to "secret"
	if cfg.MountPath != "" {
		reqOpts = append(reqOpts, vault.WithMountPath(cfg.MountPath))
	}

	switch {
	case cfg.RootToken != "":
		if err := client.SetToken(cfg.RootToken); err != nil {
			return "", "", fmt.Errorf("root token authentication failure: %w", err)
		}
	case cfg.RoleID != "":
		if cfg.RoleSecret == "" {
			return "", "", fmt.Errorf("role id and role secret must both be specified")
		}

		lctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		resp, err := client.Auth.AppRoleLogin(lctx, schema.AppRoleLoginRequest{
			RoleId:   cfg.RoleID,
			SecretId: cfg.RoleSecret,
		})
		cancel()
		if err != nil {
			return "", "", fmt.Errorf("approle authentication failure: %w", err)
		}

		if err := client.SetToken(resp.Auth.ClientToken); err != nil {
			return "", "", fmt.Errorf("approle authentication set token failure: %w", err)
		}
	default:
		return "", "", fmt.Errorf("vault authentication requires either roleid/rolesecret or root token")
	}

	rctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	resp, err := client.Secrets.KvV2Read(rctx, cfg.SecretPath, reqOpts...)
	if err != nil {
		return "", "", fmt.Errorf("read vault secret %q: %w", cfg.SecretPath, err)
	}

	access, _ = resp.Data.Data["access"].(string)
	secret, _ = resp.Data.Data["secret"].(string)
	if access == "" || secret == "" {
		return "", "", fmt.Errorf("vault secret %q missing access/secret fields", cfg.SecretPath)
	}

	return access, secret, nil
}
