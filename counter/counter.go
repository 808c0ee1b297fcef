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

// Package counter tracks the number of unprocessed bus messages per topic
// partition in a Redis sorted set. The counters are the shared backpressure
// signal between the producer and the consumer pool.
package counter

import (
	"strconv"

	"github.com/go-redis/redis/v7"
	"github.com/pkg/errors"
)

// RedisCounter keeps one sorted set keyed "<topic>_n_transactions" mapping
// partition index to message count. All operations are single Redis commands
// and therefore atomic across processes. Scores may go negative transiently
// when a decrement lands before the matching increment.
type RedisCounter struct {
	client *redis.Client
	key    string
}

// New connects to Redis and binds the counter to the topic's sorted set.
func New(redisURL, topic string) (*RedisCounter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing redis url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping().Err(); err != nil {
		return nil, errors.Wrap(err, "connecting to redis")
	}
	return &RedisCounter{client: client, key: topic + "_n_transactions"}, nil
}

// Close releases the Redis connection.
func (r *RedisCounter) Close() error { return r.client.Close() }

// IncrBy adds n to the partition's counter.
func (r *RedisCounter) IncrBy(partition int32, n int64) error {
	return r.client.ZIncrBy(r.key, float64(n), memberName(partition)).Err()
}

// Decr subtracts one from the partition's counter.
func (r *RedisCounter) Decr(partition int32) error {
	return r.IncrBy(partition, -1)
}

// Total returns the sum of all partition counters (the topic backlog).
func (r *RedisCounter) Total() (int64, error) {
	pairs, err := r.client.ZRangeWithScores(r.key, 0, -1).Result()
	if err != nil {
		return 0, errors.Wrap(err, "reading partition counters")
	}
	var total int64
	for _, pair := range pairs {
		total += int64(pair.Score)
	}
	return total, nil
}

// ArgminPartition returns the partition with the lowest counter, or ok=false
// when no partition has been counted yet.
func (r *RedisCounter) ArgminPartition() (int32, bool, error) {
	members, err := r.client.ZRange(r.key, 0, 0).Result()
	if err != nil {
		return 0, false, errors.Wrap(err, "reading lowest partition")
	}
	if len(members) == 0 {
		return 0, false, nil
	}
	partition, err := strconv.ParseInt(members[0], 10, 32)
	if err != nil {
		return 0, false, errors.Wrapf(err, "parsing partition member %q", members[0])
	}
	return int32(partition), true, nil
}

func memberName(partition int32) string {
	return strconv.FormatInt(int64(partition), 10)
}
