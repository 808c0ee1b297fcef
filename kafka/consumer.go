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
	"context"
	"fmt"
	"time"

	"github.com/Shopify/sarama"
	"github.com/hashicorp/go-uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tokenlytics/evm-data-collector/log"
)

// ErrPartitionsIdle terminates a consumer that received no message from any
// partition within the idle timeout. Callers treat it as normal termination.
var ErrPartitionsIdle = errors.New("no message received from any partition within the idle timeout")

// ConsumerManager reads messages from the topic as one member of the
// consumer group named after the topic, starting from the earliest offset.
// An idle-timeout supervisor terminates the consumer once the topic stays
// quiet for the configured duration; the timeout is armed only between
// messages, never while the callback runs.
type ConsumerManager struct {
	topic       string
	group       sarama.ConsumerGroup
	counter     Counter
	idleTimeout time.Duration
	logger      *zap.SugaredLogger
}

// NewConsumerManager connects to the Kafka cluster with linear backoff and
// joins the topic's consumer group.
func NewConsumerManager(brokers []string, topic string, counter Counter, idleTimeout time.Duration) (*ConsumerManager, error) {
	logger := log.NewModuleLogger("kafka")

	id, err := uuid.GenerateUUID()
	if err != nil {
		return nil, errors.Wrap(err, "generating client id")
	}
	config := consumerConfig(fmt.Sprintf("%s-%s", topic, id))

	var group sarama.ConsumerGroup
	for attempt := 1; ; attempt++ {
		group, err = sarama.NewConsumerGroup(brokers, topic, config)
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

	return &ConsumerManager{
		topic:       topic,
		group:       group,
		counter:     counter,
		idleTimeout: idleTimeout,
		logger:      logger,
	}, nil
}

// Close leaves the consumer group.
func (c *ConsumerManager) Close() error { return c.group.Close() }

// StartConsuming invokes the callback for every received message until the
// context is cancelled, the callback fails, or the idle timeout elapses with
// no message (ErrPartitionsIdle).
func (c *ConsumerManager) StartConsuming(ctx context.Context, callback func(msg string) error) error {
	arrived := make(chan struct{})
	done := make(chan struct{})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return superviseIdle(gctx, arrived, done, c.idleTimeout)
	})

	handler := &groupHandler{
		counter:  c.counter,
		callback: callback,
		arrived:  arrived,
		done:     done,
		logger:   c.logger,
	}
	g.Go(func() error {
		// Consume returns on every rebalance; re-invoke until cancelled.
		for {
			if err := c.group.Consume(gctx, []string{c.topic}, handler); err != nil {
				if gctx.Err() != nil {
					return nil
				}
				return err
			}
			if gctx.Err() != nil {
				return nil
			}
		}
	})

	return g.Wait()
}

// superviseIdle waits for a message-arrival signal with a timeout, then for
// the matching processing-done signal without one.
func superviseIdle(ctx context.Context, arrived, done <-chan struct{}, timeout time.Duration) error {
	for {
		select {
		case <-arrived:
		case <-time.After(timeout):
			return ErrPartitionsIdle
		case <-ctx.Done():
			return nil
		}
		select {
		case <-done:
		case <-ctx.Done():
			return nil
		}
	}
}

type groupHandler struct {
	counter  Counter
	callback func(string) error
	arrived  chan<- struct{}
	done     chan<- struct{}
	logger   *zap.SugaredLogger
}

func (h *groupHandler) Setup(sess sarama.ConsumerGroupSession) error {
	h.logger.Infow("consumer group session started",
		"member", sess.MemberID(), "claims", sess.Claims())
	return nil
}

func (h *groupHandler) Cleanup(sess sarama.ConsumerGroupSession) error {
	h.logger.Infow("consumer group session cleaned up", "member", sess.MemberID())
	return nil
}

func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		select {
		case h.arrived <- struct{}{}:
		case <-sess.Context().Done():
			return nil
		}
		if err := h.counter.Decr(claim.Partition()); err != nil {
			h.logger.Warnw("failed to decrement partition counter",
				"partition", claim.Partition(), "err", err)
		}
		if err := h.callback(string(message.Value)); err != nil {
			return err
		}
		sess.MarkMessage(message, "")
		select {
		case h.done <- struct{}{}:
		case <-sess.Context().Done():
			return nil
		}
	}
	return nil
}
