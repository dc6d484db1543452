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

package events

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nats-io/nats.go"
)

type NatsResultSender struct {
	topic  string
	client *nats.Conn
}

func InitNatsResultSender(url, topic string) (ResultSender, error) {
	if topic == "" {
		return nil, fmt.Errorf("nats message topic should be specified")
	}

	client, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}

	msg, err := generateHandshakeEvent()
	if err != nil {
		return nil, fmt.Errorf("nats generate handshake event: %w", err)
	}

	err = client.Publish(topic, msg)
	if err != nil {
		return nil, fmt.Errorf("nats publish handshake event: %w", err)
	}

	return &NatsResultSender{
		topic:  topic,
		client: client,
	}, nil
}

func (ns *NatsResultSender) Send(rec ResultRecord) {
	msg, err := json.Marshal(rec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal the result record: %v\n", err.Error())
		return
	}

	err = ns.client.Publish(ns.topic, msg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to send nats result event: %v\n", err.Error())
	}
}

func (ns *NatsResultSender) Close() error {
	ns.client.Close()
	return nil
}
