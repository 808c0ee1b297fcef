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

// Package config loads and validates the collector configuration file.
package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/tokenlytics/evm-data-collector/models"
)

// ContractConfig describes one smart contract the consumers save data for,
// e.g. USDT, the UniswapV2 factory or a single pair.
type ContractConfig struct {
	// Address of the contract. Compared case-insensitively everywhere.
	Address string `json:"address"`
	// Symbol is a human-readable tag used in logs.
	Symbol string `json:"symbol"`
	// Category decides which ABI and event extractors apply.
	Category models.ContractCategory `json:"category"`
	// Events whitelists the decoded event names persisted for this
	// contract, e.g. ["TransferFungibleEvent", "BurnFungibleEvent"].
	Events []string `json:"events"`
}

// Validate checks the category and every whitelisted event name.
func (c *ContractConfig) Validate() error {
	if c.Address == "" {
		return errors.New("contract config requires an address")
	}
	if _, err := models.ParseContractCategory(string(c.Category)); err != nil {
		return errors.Wrapf(err, "contract %s", c.Address)
	}
	known := models.KnownEventNames()
	for _, name := range c.Events {
		if !known[name] {
			return errors.Errorf("contract %s: %q is not an acceptable event name", c.Address, name)
		}
	}
	return nil
}

// Equal compares by address (case-insensitive), symbol, category and event
// set.
func (c *ContractConfig) Equal(other *ContractConfig) bool {
	if !strings.EqualFold(c.Address, other.Address) ||
		c.Symbol != other.Symbol ||
		c.Category != other.Category ||
		len(c.Events) != len(other.Events) {
		return false
	}
	events := make(map[string]bool, len(c.Events))
	for _, name := range c.Events {
		events[name] = true
	}
	for _, name := range other.Events {
		if !events[name] {
			return false
		}
	}
	return true
}

// DataCollectionConfig is one data collection task. The producer spawns a
// sub-task per entry; consumers merge all entries' contracts into one
// registry.
type DataCollectionConfig struct {
	Mode       models.CollectionMode `json:"mode"`
	StartBlock *uint64               `json:"start_block"`
	EndBlock   *uint64               `json:"end_block"`
	Contracts  []*ContractConfig     `json:"contracts"`
	Topics     []string              `json:"topics"`
}

// Validate enforces the per-mode required fields and the block ordering
// invariant.
func (d *DataCollectionConfig) Validate() error {
	if _, err := models.ParseCollectionMode(string(d.Mode)); err != nil {
		return err
	}
	if d.StartBlock != nil && d.EndBlock != nil && *d.StartBlock > *d.EndBlock {
		return errors.Errorf("start_block (%d) must be equal or smaller than end_block (%d)",
			*d.StartBlock, *d.EndBlock)
	}
	switch d.Mode {
	case models.ModeLogFilter:
		if len(d.Topics) == 0 {
			return errors.New(`"mode": "log_filter" requires "topics" field`)
		}
	case models.ModePartial:
		if len(d.Contracts) == 0 {
			return errors.New(`"mode": "partial" requires "contracts" field`)
		}
	}
	for _, contract := range d.Contracts {
		if err := contract.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Config is the collector configuration file.
type Config struct {
	// NodeURL is the JSON-RPC endpoint of the EVM node.
	NodeURL string `json:"node_url"`
	// DBDSN is the PostgreSQL DSN.
	DBDSN string `json:"db_dsn"`
	// RedisURL locates the partition counter store.
	RedisURL string `json:"redis_url"`
	// KafkaURL is a comma-separated broker list.
	KafkaURL string `json:"kafka_url"`
	// KafkaTopic names the topic; it also prefixes the counter key and all
	// database tables.
	KafkaTopic string `json:"kafka_topic"`

	DataCollection []*DataCollectionConfig `json:"data_collection"`

	// NumberOfConsumerTasks is how many consumer tasks one process runs.
	NumberOfConsumerTasks int `json:"number_of_consumer_tasks"`
	// Web3RequestsTimeout bounds a single RPC call, in seconds.
	Web3RequestsTimeout int `json:"web3_requests_timeout"`
	// Web3RequestsRetryLimit is the retry count of the RPC middleware.
	Web3RequestsRetryLimit int `json:"web3_requests_retry_limit"`
	// Web3RequestsRetryDelay is the fixed delay between retries, in seconds.
	Web3RequestsRetryDelay int `json:"web3_requests_retry_delay"`
	// KafkaEventRetrievalTimeout is the consumer idle timeout, in seconds.
	KafkaEventRetrievalTimeout int `json:"kafka_event_retrieval_timeout"`
}

// Load reads a JSON config file, applies environment overrides and validates
// the result.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config file")
	}
	cfg := new(Config)
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, errors.Wrap(err, "parsing config file")
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Environment variables overriding the corresponding config fields.
const (
	EnvConsumerInstances    = "N_CONSUMER_INSTANCES"
	EnvWeb3Timeout          = "WEB3_REQUESTS_TIMEOUT"
	EnvWeb3RetryLimit       = "WEB3_REQUESTS_RETRY_LIMIT"
	EnvWeb3RetryDelay       = "WEB3_REQUESTS_RETRY_DELAY"
	EnvEventRetrievalTimout = "KAFKA_EVENT_RETRIEVAL_TIMEOUT"
)

func (c *Config) applyEnvOverrides() error {
	overrides := []struct {
		env  string
		dest *int
	}{
		{EnvConsumerInstances, &c.NumberOfConsumerTasks},
		{EnvWeb3Timeout, &c.Web3RequestsTimeout},
		{EnvWeb3RetryLimit, &c.Web3RequestsRetryLimit},
		{EnvWeb3RetryDelay, &c.Web3RequestsRetryDelay},
		{EnvEventRetrievalTimout, &c.KafkaEventRetrievalTimeout},
	}
	for _, o := range overrides {
		v := os.Getenv(o.env)
		if v == "" {
			continue
		}
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "parsing %s", o.env)
		}
		*o.dest = parsed
	}
	return nil
}

// Validate checks required endpoints and every data collection entry.
func (c *Config) Validate() error {
	switch {
	case c.NodeURL == "":
		return errors.New("node_url is required")
	case c.DBDSN == "":
		return errors.New("db_dsn is required")
	case c.RedisURL == "":
		return errors.New("redis_url is required")
	case c.KafkaURL == "":
		return errors.New("kafka_url is required")
	case c.KafkaTopic == "":
		return errors.New("kafka_topic is required")
	case len(c.DataCollection) == 0:
		return errors.New("data_collection requires at least one entry")
	}
	for _, dc := range c.DataCollection {
		if err := dc.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Brokers splits the comma-separated Kafka URL into a broker list.
func (c *Config) Brokers() []string {
	parts := strings.Split(c.KafkaURL, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	return brokers
}

// UniqueContracts returns the union of all data collection entries'
// contracts, deduplicated by ContractConfig equality.
func (c *Config) UniqueContracts() []*ContractConfig {
	var union []*ContractConfig
	for _, dc := range c.DataCollection {
		for _, contract := range dc.Contracts {
			duplicate := false
			for _, existing := range union {
				if existing.Equal(contract) {
					duplicate = true
					break
				}
			}
			if !duplicate {
				union = append(union, contract)
			}
		}
	}
	return union
}
