// Copyright 2026 The evm-data-collector Authors
// This file is part of the evm-data-collector library.
//
// The evm-data-collector library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The evm-data-collector library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the evm-data-collector library. If not, see <http://www.gnu.org/licenses/>.

// Package kafka implements the partitioned message bus of the collector: a
// capacity-gated batch producer and a consumer group with idle-timeout
// termination.
package kafka

import (
	"time"

	"github.com/Shopify/sarama"
)

const (
	// MaxMessagesPerPartition caps the topic backlog per partition; the
	// producer stalls while total backlog exceeds this times the partition
	// count.
	MaxMessagesPerPartition = 1000
	// MessagesPerBatch is the sub-batch size of one bus append.
	MessagesPerBatch = 1024

	// CapacityPollInterval is how long the producer sleeps between backlog
	// re-checks while stalled.
	CapacityPollInterval = time.Second
	// StallReportThreshold is the stall duration after which the producer
	// starts reporting.
	StallReportThreshold = 60

	// initialConnectionMaxAttempts bounds the linear-backoff connection
	// loop; Kafka startup time is variable.
	initialConnectionMaxAttempts = 10
	linearBackoffDelay           = 5 * time.Second
)

// Counter is the per-partition backpressure store shared by producers and
// consumers.
type Counter interface {
	IncrBy(partition int32, n int64) error
	Decr(partition int32) error
	Total() (int64, error)
	ArgminPartition() (int32, bool, error)
}

func producerConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Version = sarama.V2_1_0_0
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Idempotent = true
	config.Producer.Return.Successes = true
	config.Producer.Partitioner = sarama.NewManualPartitioner
	config.Net.MaxOpenRequests = 1
	return config
}

func consumerConfig(clientID string) *sarama.Config {
	config := sarama.NewConfig()
	config.Version = sarama.V2_1_0_0
	config.ClientID = clientID
	config.Consumer.Group.Session.Timeout = 6 * time.Second
	config.Consumer.Group.Heartbeat.Interval = 2 * time.Second
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	return config
}
