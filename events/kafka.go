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
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/segmentio/kafka-go"
)

type Kafka struct {
	key    string
	writer *kafka.Writer
}

func InitKafkaResultSender(url, topic, key string) (ResultSender, error) {
	if topic == "" {
		return nil, fmt.Errorf("kafka message topic should be specified")
	}

	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      []string{url},
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 5 * time.Millisecond,
	})

	msg, err := generateHandshakeEvent()
	if err != nil {
		return nil, err
	}

	err = w.WriteMessages(context.Background(), kafka.Message{
		Key:   []byte(key),
		Value: msg,
	})
	if err != nil {
		return nil, err
	}

	return &Kafka{
		key:    key,
		writer: w,
	}, nil
}

func (ks *Kafka) Send(rec ResultRecord) {
	msg, err := json.Marshal(rec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal the result record: %v\n", err.Error())
		return
	}

	err = ks.writer.WriteMessages(context.Background(), kafka.Message{
		Key:   []byte(ks.key),
		Value: msg,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to send kafka result event: %v\n", err.Error())
	}
}

func (ks *Kafka) Close() error {
	return ks.writer.Close()
}
