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

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"github.com/versity/s3conform/conform"
	"github.com/versity/s3conform/conform/suite"
	"github.com/versity/s3conform/events"
	"github.com/versity/s3conform/metrics"
	"github.com/versity/s3conform/s3conf"
)

var (
	awsID             string
	awsSecret         string
	endpoint          string
	region            string
	filter            string
	testID            string
	output            string
	bucketPrefix      string
	workers           int
	timeoutSec        int
	partSize          int64
	concurrency       int
	hostStyle         bool
	checksumDisable   bool
	versioningEnabled bool
	tlsStatus         bool
	debug             bool

	statsdServers   string
	dogstatsServers string

	kafkaURL, kafkaTopic, kafkaKey        string
	natsURL, natsTopic                    string
	rabbitmqURL, rabbitmqExchange, rmqKey string
	webhookURL                            string
	vaultEndpoint, vaultToken             string
	vaultRoleID, vaultRoleSecret          string
	vaultMountPath, vaultSecretPath       string
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:        "run",
		Usage:       "Run the conformance suite against the target endpoint",
		Description: `Runs the registered conformance tests, prints a per-category summary,
and exits non-zero if any test failed.`,
		Action: runAction,
		Flags:  runFlags(),
	}
}

func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "access",
			Usage:       "aws user access key",
			EnvVars:     []string{"AWS_ACCESS_KEY_ID", "AWS_ACCESS_KEY"},
			Aliases:     []string{"a"},
			Destination: &awsID,
		},
		&cli.StringFlag{
			Name:        "secret",
			Usage:       "aws user secret access key",
			EnvVars:     []string{"AWS_SECRET_ACCESS_KEY", "AWS_SECRET_KEY"},
			Aliases:     []string{"s"},
			Destination: &awsSecret,
		},
		&cli.StringFlag{
			Name:        "endpoint",
			Usage:       "s3 server endpoint",
			Destination: &endpoint,
			Aliases:     []string{"e"},
		},
		&cli.StringFlag{
			Name:        "region",
			Usage:       "s3 server region",
			Value:       "us-east-1",
			Destination: &region,
		},
		&cli.StringFlag{
			Name:        "filter",
			Usage:       "run only tests in the given category (basic, multipart, versioning, acl, encryption, lifecycle, performance)",
			Aliases:     []string{"f"},
			Destination: &filter,
		},
		&cli.StringFlag{
			Name:        "id",
			Usage:       "run only the test with the given id",
			Destination: &testID,
		},
		&cli.IntFlag{
			Name:        "workers",
			Usage:       "number of tests to run concurrently",
			Value:       4,
			Aliases:     []string{"w"},
			Destination: &workers,
		},
		&cli.IntFlag{
			Name:        "timeout",
			Usage:       "per-test timeout in seconds",
			Value:       60,
			Aliases:     []string{"t"},
			Destination: &timeoutSec,
		},
		&cli.StringFlag{
			Name:        "output",
			Usage:       "write the json report to the given file",
			Aliases:     []string{"o"},
			Destination: &output,
		},
		&cli.StringFlag{
			Name:        "bucket-prefix",
			Usage:       "prefix for generated fixture bucket names",
			Value:       "s3conform",
			Destination: &bucketPrefix,
		},
		&cli.Int64Flag{
			Name:        "part-size",
			Usage:       "upload/download size per thread for large transfers",
			Value:       64 * 1024 * 1024,
			Destination: &partSize,
		},
		&cli.IntFlag{
			Name:        "concurrency",
			Usage:       "upload/download threads per object for large transfers",
			Value:       1,
			Destination: &concurrency,
		},
		&cli.BoolFlag{
			Name:        "host-style",
			Usage:       "Use host-style bucket addressing",
			Value:       false,
			Destination: &hostStyle,
		},
		&cli.BoolFlag{
			Name:        "checksum-disable",
			Usage:       "disable sdk payload checksums",
			Destination: &checksumDisable,
		},
		&cli.BoolFlag{
			Name:        "versioning-enabled",
			Usage:       "Run the bucket object versioning tests, if the versioning is enabled",
			Destination: &versioningEnabled,
			Aliases:     []string{"vs"},
		},
		&cli.BoolFlag{
			Name:        "allow-insecure",
			Usage:       "skip tls verification",
			Aliases:     []string{"ai"},
			Destination: &tlsStatus,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug mode",
			Aliases:     []string{"d"},
			Destination: &debug,
		},
		&cli.StringFlag{
			Name:        "metrics-statsd-servers",
			Usage:       "comma separated list of statsd server addresses",
			Destination: &statsdServers,
		},
		&cli.StringFlag{
			Name:        "metrics-dogstats-servers",
			Usage:       "comma separated list of dogstatsd server addresses",
			Destination: &dogstatsServers,
		},
		&cli.StringFlag{
			Name:        "event-kafka-url",
			Usage:       "kafka server url to publish result events",
			EnvVars:     []string{"S3CONFORM_EVENT_KAFKA_URL"},
			Destination: &kafkaURL,
			Aliases:     []string{"eku"},
		},
		&cli.StringFlag{
			Name:        "event-kafka-topic",
			Usage:       "kafka server topic to publish result events",
			EnvVars:     []string{"S3CONFORM_EVENT_KAFKA_TOPIC"},
			Destination: &kafkaTopic,
			Aliases:     []string{"ekt"},
		},
		&cli.StringFlag{
			Name:        "event-kafka-key",
			Usage:       "kafka server event key",
			EnvVars:     []string{"S3CONFORM_EVENT_KAFKA_KEY"},
			Destination: &kafkaKey,
			Aliases:     []string{"ekk"},
		},
		&cli.StringFlag{
			Name:        "event-nats-url",
			Usage:       "nats server url to publish result events",
			EnvVars:     []string{"S3CONFORM_EVENT_NATS_URL"},
			Destination: &natsURL,
			Aliases:     []string{"enu"},
		},
		&cli.StringFlag{
			Name:        "event-nats-topic",
			Usage:       "nats server topic to publish result events",
			EnvVars:     []string{"S3CONFORM_EVENT_NATS_TOPIC"},
			Destination: &natsTopic,
			Aliases:     []string{"ent"},
		},
		&cli.StringFlag{
			Name:        "event-rabbitmq-url",
			Usage:       "rabbitmq server url to publish result events",
			EnvVars:     []string{"S3CONFORM_EVENT_RABBITMQ_URL"},
			Destination: &rabbitmqURL,
			Aliases:     []string{"eru"},
		},
		&cli.StringFlag{
			Name:        "event-rabbitmq-exchange",
			Usage:       "rabbitmq exchange to publish result events",
			EnvVars:     []string{"S3CONFORM_EVENT_RABBITMQ_EXCHANGE"},
			Destination: &rabbitmqExchange,
			Aliases:     []string{"ere"},
		},
		&cli.StringFlag{
			Name:        "event-rabbitmq-routing-key",
			Usage:       "rabbitmq routing key for result events",
			EnvVars:     []string{"S3CONFORM_EVENT_RABBITMQ_ROUTING_KEY"},
			Destination: &rmqKey,
			Aliases:     []string{"erk"},
		},
		&cli.StringFlag{
			Name:        "event-webhook-url",
			Usage:       "webhook url to publish result events",
			EnvVars:     []string{"S3CONFORM_EVENT_WEBHOOK_URL"},
			Destination: &webhookURL,
			Aliases:     []string{"ewu"},
		},
		&cli.StringFlag{
			Name:        "vault-endpoint-url",
			Usage:       "vault server url to read target credentials from",
			EnvVars:     []string{"S3CONFORM_VAULT_ENDPOINT_URL"},
			Destination: &vaultEndpoint,
		},
		&cli.StringFlag{
			Name:        "vault-root-token",
			Usage:       "vault root token",
			EnvVars:     []string{"S3CONFORM_VAULT_ROOT_TOKEN"},
			Destination: &vaultToken,
		},
		&cli.StringFlag{
			Name:        "vault-role-id",
			Usage:       "vault approle role id",
			EnvVars:     []string{"S3CONFORM_VAULT_ROLE_ID"},
			Destination: &vaultRoleID,
		},
		&cli.StringFlag{
			Name:        "vault-role-secret",
			Usage:       "vault approle secret id",
			EnvVars:     []string{"S3CONFORM_VAULT_ROLE_SECRET"},
			Destination: &vaultRoleSecret,
		},
		&cli.StringFlag{
			Name:        "vault-mount-path",
			Usage:       "vault kv v2 mount path",
			Value:       "secret",
			Destination: &vaultMountPath,
		},
		&cli.StringFlag{
			Name:        "vault-secret-path",
			Usage:       "vault kv v2 path holding the access/secret fields",
			Value:       "s3conform",
			Destination: &vaultSecretPath,
		},
	}
}

func runAction(ctx *cli.Context) error {
	if vaultEndpoint != "" {
		access, secret, err := s3conf.LoadVaultCreds(ctx.Context, s3conf.VaultConfig{
			Endpoint:   vaultEndpoint,
			RootToken:  vaultToken,
			RoleID:     vaultRoleID,
			RoleSecret: vaultRoleSecret,
			MountPath:  vaultMountPath,
			SecretPath: vaultSecretPath,
		})
		if err != nil {
			return fmt.Errorf("load credentials from vault: %w", err)
		}
		awsID, awsSecret = access, secret
	}

	opts := []s3conf.Option{
		s3conf.WithAccess(awsID),
		s3conf.WithSecret(awsSecret),
		s3conf.WithRegion(region),
		s3conf.WithEndpoint(endpoint),
		s3conf.WithPartSize(partSize),
		s3conf.WithConcurrency(concurrency),
	}
	if hostStyle {
		opts = append(opts, s3conf.WithHostStyle())
	}
	if checksumDisable {
		opts = append(opts, s3conf.WithDisableChecksum())
	}
	if versioningEnabled {
		opts = append(opts, s3conf.WithVersioningEnabled())
	}
	if tlsStatus {
		opts = append(opts, s3conf.WithTLSInsecure())
	}
	if debug {
		opts = append(opts, s3conf.WithDebug())
	}

	conf := s3conf.NewS3Conf(opts...)
	client := conf.GetClient()

	reg := conform.NewRegistry()
	if err := suite.RegisterAll(reg); err != nil {
		return fmt.Errorf("register test cases: %w", err)
	}

	cases := reg.Select(conform.Category(filter), testID)
	if len(cases) == 0 {
		return fmt.Errorf("no tests match category %q id %q", filter, testID)
	}

	reporter := conform.NewReporter(endpoint)
	probe := conform.NewProbe()
	names := conform.NewGenerator(bucketPrefix, nil)
	fixtures := conform.NewFixtureManager(client, names, 10*time.Second)
	runner := conform.NewRunner(conf, client, fixtures, reporter, probe, conform.RunnerConfig{
		Workers: workers,
		Timeout: time.Duration(timeoutSec) * time.Second,
		Debug:   debug,
	})

	mgr, err := metrics.NewManager(ctx.Context, metrics.Config{
		StatsdServers:   statsdServers,
		DogstatsServers: dogstatsServers,
	})
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer mgr.Close()
	runner.Observe(mgr.Send)

	sender, err := events.InitResultSender(&events.Config{
		KafkaURL:           kafkaURL,
		KafkaTopic:         kafkaTopic,
		KafkaTopicKey:      kafkaKey,
		NatsURL:            natsURL,
		NatsTopic:          natsTopic,
		RabbitmqURL:        rabbitmqURL,
		RabbitmqExchange:   rabbitmqExchange,
		RabbitmqRoutingKey: rmqKey,
		WebhookURL:         webhookURL,
	})
	if err != nil {
		return fmt.Errorf("init result events: %w", err)
	}
	if sender != nil {
		defer sender.Close()
		runner.Observe(func(o conform.Outcome) {
			sender.Send(events.NewResultRecord(reporter.RunID(), endpoint, o))
		})
	}

	report, runErr := runner.RunAll(ctx.Context, cases)

	conform.PrintSummary(report)

	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("create report file: %w", err)
		}
		defer f.Close()
		if err := report.WriteJSON(f); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	if runErr != nil {
		return fmt.Errorf("run aborted: %w", runErr)
	}
	if report.HasFailures() {
		return fmt.Errorf("%v test(s) failed", report.Total(conform.StatusFailed))
	}
	return nil
}
