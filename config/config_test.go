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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenlytics/evm-data-collector/models"
)

const validConfig = `{
	"node_url": "http://localhost:8545",
	"db_dsn": "host=localhost user=collector dbname=collector sslmode=disable",
	"redis_url": "redis://localhost:6379/0",
	"kafka_url": "localhost:9092, localhost:9093",
	"kafka_topic": "eth",
	"number_of_consumer_tasks": 2,
	"web3_requests_timeout": 30,
	"web3_requests_retry_limit": 3,
	"web3_requests_retry_delay": 5,
	"kafka_event_retrieval_timeout": 600,
	"data_collection": [
		{
			"mode": "partial",
			"start_block": 100,
			"end_block": 200,
			"contracts": [
				{
					"address": "0xdAC17F958D2ee523a2206206994597C13D831ec7",
					"symbol": "USDT",
					"category": "erc20",
					"events": ["TransferFungibleEvent", "BurnFungibleEvent"]
				}
			]
		},
		{
			"mode": "full",
			"contracts": [
				{
					"address": "0xDAC17F958D2EE523A2206206994597C13D831EC7",
					"symbol": "USDT",
					"category": "erc20",
					"events": ["BurnFungibleEvent", "TransferFungibleEvent"]
				}
			]
		}
	]
}`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "eth", cfg.KafkaTopic)
	assert.Equal(t, []string{"localhost:9092", "localhost:9093"}, cfg.Brokers())
	require.Len(t, cfg.DataCollection, 2)
	assert.Equal(t, models.ModePartial, cfg.DataCollection[0].Mode)
	require.NotNil(t, cfg.DataCollection[0].StartBlock)
	assert.EqualValues(t, 100, *cfg.DataCollection[0].StartBlock)
	assert.Nil(t, cfg.DataCollection[1].StartBlock)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(EnvConsumerInstances, "8")
	t.Setenv(EnvWeb3Timeout, "7")

	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.NumberOfConsumerTasks)
	assert.Equal(t, 7, cfg.Web3RequestsTimeout)
	assert.Equal(t, 3, cfg.Web3RequestsRetryLimit)
}

func TestUniqueContracts(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	// The same contract appears in both entries with different address
	// casing and event ordering.
	contracts := cfg.UniqueContracts()
	require.Len(t, contracts, 1)
	assert.Equal(t, "USDT", contracts[0].Symbol)
}

func TestDataCollectionValidate(t *testing.T) {
	start, end := uint64(10), uint64(5)

	tests := []struct {
		name string
		cfg  DataCollectionConfig
	}{
		{"start after end", DataCollectionConfig{Mode: models.ModeFull, StartBlock: &start, EndBlock: &end}},
		{"log_filter without topics", DataCollectionConfig{Mode: models.ModeLogFilter}},
		{"partial without contracts", DataCollectionConfig{Mode: models.ModePartial}},
		{"unknown mode", DataCollectionConfig{Mode: "turbo"}},
		{"unknown event name", DataCollectionConfig{
			Mode: models.ModeFull,
			Contracts: []*ContractConfig{{
				Address:  "0xdac17f958d2ee523a2206206994597c13d831ec7",
				Category: models.CategoryERC20,
				Events:   []string{"NoSuchEvent"},
			}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.cfg.Validate())
		})
	}
}
