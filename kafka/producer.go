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

package kafka

import (
	"time"

	"github.com/Shopify/sarama"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/tokenlytics/evm-data-collector/log"
)

// partitionLister is the slice of sarama.Client the producer needs; the
// partition count of a topic can change at runtime.
type partitionLister interface {
	Partitions(topic string) ([]int32, error)
}

// ProducerManager appends transaction-hash messages to the topic. Batches go
// to explicitly chosen partitions: every partition is seeded once in order,
// after which each batch goes to the partition with the smallest backlog.
// Before every send the total backlog is checked against the topic capacity
// and the producer stalls until consumers catch up.
type ProducerManager struct {
	topic    string
	client   sarama.Client
	lister   partitionLister
	producer sarama.SyncProducer
	counter  Counter
	logger   *zap.SugaredLogger

	// iPartition is the seeding cursor; -1 switches to min-backlog mode.
	iPartition int32

	pollInterval time.Duration
}

// NewProducerManager connects to the Kafka cluster with linear backoff and
// returns a producer bound to the topic.
func NewProducerManager(brokers []string, topic string, counter Counter) (*ProducerManager, error) {
	logger := log.NewModuleLogger("kafka")

	var client sarama.Client
	var err error
	for attempt := 1; ; attempt++ {
		client, err = sarama.NewClient(brokers, producerConfig())
		if err == nil {
			break
		}
		if attempt >= initialConnectionMaxAttempts {
			return nil, errors.Wrap(err, "maximum number of initial connection attempts reached")
		}
		logger.Infow("kafka connection failed, retrying",
			"delay", linearBackoffDelay, "attempt", attempt, "err", err)
		time.Sleep(linearBackoffDelay)
	}

	producer, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		client.Close()
		return nil, errors.Wrap(err, "creating sync producer")
	}

	return &ProducerManager{
		topic:        topic,
		client:       client,
		lister:       client,
		producer:     producer,
		counter:      counter,
		logger:       logger,
		pollInterval: CapacityPollInterval,
	}, nil
}

// Close flushes pending batches and disconnects.
func (p *ProducerManager) Close() error {
	if err := p.producer.Close(); err != nil {
		p.client.Close()
		return err
	}
	return p.client.Close()
}

// NumberOfPartitions returns the current partition count of the topic.
func (p *ProducerManager) NumberOfPartitions() (int32, error) {
	partitions, err := p.lister.Partitions(p.topic)
	if err != nil {
		return 0, errors.Wrapf(err, "listing partitions of %s", p.topic)
	}
	return int32(len(partitions)), nil
}

// choosePartition seeds every partition once in order, then always picks the
// partition with the lowest backlog (falling back to 0).
func (p *ProducerManager) choosePartition() (int32, error) {
	if p.iPartition != -1 {
		partition := p.iPartition
		nPartitions, err := p.NumberOfPartitions()
		if err != nil {
			return 0, err
		}
		p.iPartition++
		if p.iPartition >= nPartitions {
			p.iPartition = -1
		}
		return partition, nil
	}
	partition, ok, err := p.counter.ArgminPartition()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return partition, nil
}

// waitForCapacity blocks while the topic backlog exceeds
// MaxMessagesPerPartition per partition. An empty topic proceeds immediately.
func (p *ProducerManager) waitForCapacity() error {
	stallSeconds := 0
	for {
		total, err := p.counter.Total()
		if err != nil {
			return err
		}
		if total == 0 && stallSeconds == 0 {
			return nil
		}
		nPartitions, err := p.NumberOfPartitions()
		if err != nil {
			return err
		}
		if total > int64(MaxMessagesPerPartition)*int64(nPartitions) {
			if stallSeconds > 0 && stallSeconds%StallReportThreshold == 0 {
				p.logger.Warnw("producing stalled", "seconds", stallSeconds, "backlog", total)
			}
			stallSeconds++
			time.Sleep(p.pollInterval)
			continue
		}
		if stallSeconds >= StallReportThreshold {
			p.logger.Infow("continuing producing after stall", "seconds", stallSeconds)
		}
		return nil
	}
}

// SendMessage appends a single message, subject to the capacity gate.
func (p *ProducerManager) SendMessage(msg string) error {
	return p.SendBatch([]string{msg})
}

// SendBatch splits msgs into sub-batches of at most MessagesPerBatch and
// appends each to one chosen partition. A send timeout is logged and
// swallowed: delivery is unknown and consumers dedupe via primary keys.
func (p *ProducerManager) SendBatch(msgs []string) error {
	if len(msgs) == 0 {
		p.logger.Warnw("attempted to send an empty list of messages", "topic", p.topic)
		return nil
	}
	if err := p.waitForCapacity(); err != nil {
		return err
	}

	for start := 0; start < len(msgs); start += MessagesPerBatch {
		end := start + MessagesPerBatch
		if end > len(msgs) {
			end = len(msgs)
		}
		chunk := msgs[start:end]

		partition, err := p.choosePartition()
		if err != nil {
			return err
		}
		batch := make([]*sarama.ProducerMessage, len(chunk))
		for i, msg := range chunk {
			batch[i] = &sarama.ProducerMessage{
				Topic:     p.topic,
				Partition: partition,
				Value:     sarama.StringEncoder(msg),
			}
		}

		if err := p.producer.SendMessages(batch); err != nil {
			if isTimeout(err) {
				// Delivery unknown; at-least-once is acceptable.
				p.logger.Errorw("kafka timeout on batch, delivery unknown",
					"partition", partition, "messages", len(chunk))
				continue
			}
			return errors.Wrapf(err, "sending batch to partition %d", partition)
		}
		if err := p.counter.IncrBy(partition, int64(len(chunk))); err != nil {
			return err
		}
	}
	return nil
}

func isTimeout(err error) bool {
	var producerErrs sarama.ProducerErrors
	if errors.As(err, &producerErrs) {
		for _, pe := range producerErrs {
			if !errors.Is(pe.Err, sarama.ErrRequestTimedOut) {
				return false
			}
		}
		return len(producerErrs) > 0
	}
	return errors.Is(err, sarama.ErrRequestTimedOut)
}
