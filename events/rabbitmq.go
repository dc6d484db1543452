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
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitmqResultSender publishes result records to a RabbitMQ
// exchange. If exchange is blank the default (empty string) exchange
// is used.
type RabbitmqResultSender struct {
	exchange   string
	routingKey string
	conn       *amqp.Connection
	channel    *amqp.Channel
}

func InitRabbitmqResultSender(url, exchange, routingKey string) (ResultSender, error) {
	if url == "" {
		return nil, fmt.Errorf("rabbitmq url should be specified")
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq connect: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	msg, err := generateHandshakeEvent()
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq generate handshake event: %w", err)
	}

	pub := amqp.Publishing{
		Timestamp:   time.Now(),
		ContentType: "application/json",
		Body:        msg,
		MessageId:   uuid.NewString(),
	}
	if err := ch.Publish(exchange, routingKey, false, false, pub); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq publish handshake event: %w", err)
	}

	return &RabbitmqResultSender{
		exchange:   exchange,
		routingKey: routingKey,
		conn:       conn,
		channel:    ch,
	}, nil
}

func (rs *RabbitmqResultSender) Send(rec ResultRecord) {
	body, err := json.Marshal(rec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal the result record: %v\n", err.Error())
		return
	}

	msg := amqp.Publishing{
		Timestamp:   time.Now(),
		ContentType: "application/json",
		Body:        body,
		MessageId:   uuid.NewString(),
	}

	if err := rs.channel.Publish(rs.exchange, rs.routingKey, false, false, msg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to send rabbitmq result event: %v\n", err.Error())
	}
}

func (rs *RabbitmqResultSender) Close() error {
	var firstErr error
	if rs.channel != nil {
		if err := rs.channel.Close(); err != nil {
			firstErr = err
		}
	}
	if rs.conn != nil {
		if err := rs.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
