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

// Package events publishes per-test outcome records to an external
// sink (kafka, nats, rabbitmq, or an http webhook) so CI tooling can
// consume results as they complete instead of polling for the final
// report artifact.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/versity/s3conform/conform"
)

// ResultSender delivers one outcome record per completed test.
type ResultSender interface {
	Send(rec ResultRecord)
	Close() error
}

// ResultRecord is the wire schema published for each test outcome.
type ResultRecord struct {
	RunID     string                  `json:"runId"`
	Endpoint  string                  `json:"endpoint"`
	TestID    string                  `json:"testId"`
	Name      string                  `json:"name"`
	Category  conform.Category        `json:"category"`
	Status    conform.Status          `json:"status"`
	Reason    string                  `json:"reason,omitempty"`
	Gaps      []conform.CapabilityGap `json:"gaps,omitempty"`
	Retries   int                     `json:"retries,omitempty"`
	Duration  float64                 `json:"duration"`
	Timestamp string                  `json:"timestamp"`
}

// NewResultRecord builds the record published for one outcome.
func NewResultRecord(runID, endpoint string, o conform.Outcome) ResultRecord {
	return ResultRecord{
		RunID:     runID,
		Endpoint:  endpoint,
		TestID:    o.ID,
		Name:      o.Name,
		Category:  o.Category,
		Status:    o.Status,
		Reason:    o.Reason,
		Gaps:      o.Gaps,
		Retries:   o.Retries,
		Duration:  o.Duration,
		Timestamp: o.Timestamp.Format(time.RFC3339),
	}
}

// Config selects and configures the result sink. At most one sink is
// active per run.
type Config struct {
	KafkaURL           string
	KafkaTopic         string
	KafkaTopicKey      string
	NatsURL            string
	NatsTopic          string
	RabbitmqURL        string
	RabbitmqExchange   string
	RabbitmqRoutingKey string
	WebhookURL         string
}

// InitResultSender initializes the configured sink, validating it
// with a handshake event. Returns nil when no sink is configured.
func InitResultSender(cfg *Config) (ResultSender, error) {
	switch {
	case cfg.WebhookURL != "":
		fmt.Printf("initializing result events with webhook URL %v\n", cfg.WebhookURL)
		return InitWebhookResultSender(cfg.WebhookURL)
	case cfg.KafkaURL != "":
		fmt.Printf("initializing result events with kafka. URL: %v, topic: %v\n", cfg.KafkaURL, cfg.KafkaTopic)
		return InitKafkaResultSender(cfg.KafkaURL, cfg.KafkaTopic, cfg.KafkaTopicKey)
	case cfg.NatsURL != "":
		fmt.Printf("initializing result events with nats. URL: %v, topic: %v\n", cfg.NatsURL, cfg.NatsTopic)
		return InitNatsResultSender(cfg.NatsURL, cfg.NatsTopic)
	case cfg.RabbitmqURL != "":
		fmt.Printf("initializing result events with rabbitmq. URL: %v, exchange: %v\n", cfg.RabbitmqURL, cfg.RabbitmqExchange)
		return InitRabbitmqResultSender(cfg.RabbitmqURL, cfg.RabbitmqExchange, cfg.RabbitmqRoutingKey)
	default:
		return nil, nil
	}
}

// generateHandshakeEvent is published at sink init to validate the
// configuration before the run starts.
func generateHandshakeEvent() ([]byte, error) {
	msg := map[string]string{
		"Service": "s3conform",
		"Event":   "conform:Handshake",
		"Time":    time.Now().Format(time.RFC3339),
	}

	return json.Marshal(msg)
}
