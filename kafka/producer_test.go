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
	"sync"
	"testing"
	"time"

	"github.com/Shopify/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCounter struct {
	mu     sync.Mutex
	total  int64
	argmin int32
	seeded bool

	increments map[int32]int64
}

func (f *fakeCounter) IncrBy(partition int32, n int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.increments == nil {
		f.increments = make(map[int32]int64)
	}
	f.increments[partition] += n
	f.total += n
	return nil
}

func (f *fakeCounter) Decr(partition int32) error { return f.IncrBy(partition, -1) }

func (f *fakeCounter) Total() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.total, nil
}

func (f *fakeCounter) setTotal(total int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.total = total
}

func (f *fakeCounter) ArgminPartition() (int32, bool, error) { return f.argmin, f.seeded, nil }

type fakeLister struct {
	n int
}

func (f *fakeLister) Partitions(topic string) ([]int32, error) {
	partitions := make([]int32, f.n)
	for i := range partitions {
		partitions[i] = int32(i)
	}
	return partitions, nil
}

func newTestProducer(counter Counter, nPartitions int) *ProducerManager {
	return &ProducerManager{
		topic:        "eth",
		lister:       &fakeLister{n: nPartitions},
		counter:      counter,
		logger:       zap.NewNop().Sugar(),
		pollInterval: time.Millisecond,
	}
}

func TestChoosePartitionSeedsThenArgmin(t *testing.T) {
	counter := &fakeCounter{argmin: 2, seeded: true}
	p := newTestProducer(counter, 3)

	// First every partition is seeded once, in order.
	for want := int32(0); want < 3; want++ {
		got, err := p.choosePartition()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	// Then the lowest-backlog partition wins.
	got, err := p.choosePartition()
	require.NoError(t, err)
	assert.Equal(t, int32(2), got)
}

func TestChoosePartitionArgminFallback(t *testing.T) {
	counter := &fakeCounter{seeded: false}
	p := newTestProducer(counter, 2)
	p.iPartition = -1

	got, err := p.choosePartition()
	require.NoError(t, err)
	assert.Equal(t, int32(0), got)
}

func TestWaitForCapacityEmptyTopicProceeds(t *testing.T) {
	p := newTestProducer(&fakeCounter{total: 0}, 4)

	done := make(chan error, 1)
	go func() { done <- p.waitForCapacity() }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("waitForCapacity blocked on an empty topic")
	}
}

func TestWaitForCapacityBelowLimitProceeds(t *testing.T) {
	p := newTestProducer(&fakeCounter{total: int64(MaxMessagesPerPartition) * 4}, 4)
	require.NoError(t, p.waitForCapacity())
}

func TestWaitForCapacityStallsUntilDrained(t *testing.T) {
	counter := &fakeCounter{total: int64(MaxMessagesPerPartition)*4 + 1}
	p := newTestProducer(counter, 4)

	done := make(chan error, 1)
	go func() { done <- p.waitForCapacity() }()

	select {
	case <-done:
		t.Fatal("waitForCapacity returned while over capacity")
	case <-time.After(20 * time.Millisecond):
	}

	// Drain the backlog; the gate must open.
	counter.setTotal(100)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("waitForCapacity did not resume after drain")
	}
}

func TestIsTimeout(t *testing.T) {
	timeouts := sarama.ProducerErrors{
		{Err: sarama.ErrRequestTimedOut},
		{Err: sarama.ErrRequestTimedOut},
	}
	assert.True(t, isTimeout(timeouts))

	mixed := sarama.ProducerErrors{
		{Err: sarama.ErrRequestTimedOut},
		{Err: sarama.ErrBrokerNotAvailable},
	}
	assert.False(t, isTimeout(mixed))
	assert.False(t, isTimeout(sarama.ProducerErrors{}))
	assert.True(t, isTimeout(sarama.ErrRequestTimedOut))
}
