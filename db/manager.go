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

// Package db persists collected chain data in PostgreSQL. Every insert is
// idempotent via ON CONFLICT DO NOTHING on the table's primary key, so
// re-ingesting a bus message is a no-op. Table names are prefixed by the
// topic.
package db

import (
	"database/sql"
	"math/big"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/tokenlytics/evm-data-collector/log"
	"github.com/tokenlytics/evm-data-collector/models"
)

// Manager owns the PostgreSQL connection and the topic-prefixed table set.
type Manager struct {
	db     *gorm.DB
	topic  string
	logger *zap.SugaredLogger
}

// NewManager connects to PostgreSQL.
func NewManager(dsn, topic string) (*Manager, error) {
	conn, err := gorm.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to postgres")
	}
	conn.LogMode(false)
	logger := log.NewModuleLogger("db")
	logger.Debugw("connected to postgres", "topic", topic)
	return &Manager{
		db:     conn,
		topic:  topic,
		logger: logger,
	}, nil
}

// Close disconnects from PostgreSQL.
func (m *Manager) Close() error { return m.db.Close() }

func (m *Manager) table(suffix string) string { return m.topic + "_" + suffix }

// numeric renders a big integer for a NUMERIC column; nil counts as zero.
func numeric(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// InsertBlock writes one block row, keyed by block number.
func (m *Manager) InsertBlock(block *models.BlockData, blockReward *big.Int) error {
	err := m.db.Exec(
		`INSERT INTO `+m.table("block")+
			` (block_number, block_hash, nonce, difficulty, gas_limit, gas_used, timestamp, miner, parent_hash, block_reward)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (block_number) DO NOTHING`,
		block.Number, block.Hash, block.Nonce, numeric(block.Difficulty),
		block.GasLimit, block.GasUsed, block.Timestamp, block.Miner,
		block.ParentHash, numeric(blockReward),
	).Error
	return errors.Wrapf(err, "inserting block %d", block.Number)
}

// InsertTransaction writes one transaction row, keyed by hash.
func (m *Manager) InsertTransaction(tx *models.TransactionData, gasUsed uint64, transactionFee *big.Int, isTokenTx bool) error {
	var toAddress interface{}
	if tx.To != "" {
		toAddress = tx.To
	}
	err := m.db.Exec(
		`INSERT INTO `+m.table("transaction")+
			` (transaction_hash, block_number, from_address, to_address, value, transaction_fee, gas_price, gas_limit, gas_used, is_token_tx, input_data)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (transaction_hash) DO NOTHING`,
		tx.Hash, tx.BlockNumber, tx.From, toAddress, numeric(tx.Value),
		numeric(transactionFee), numeric(tx.GasPrice), tx.GasLimit, gasUsed,
		isTokenTx, tx.Input,
	).Error
	return errors.Wrapf(err, "inserting transaction %s", tx.Hash)
}

// InsertTransactionLogs writes the receipt logs inside one database
// transaction, keyed by (transaction_hash, log_index).
func (m *Manager) InsertTransactionLogs(logs []*models.TransactionLog) error {
	if len(logs) == 0 {
		return nil
	}
	return m.inTransaction(func(tx *gorm.DB) error {
		for _, lg := range logs {
			err := tx.Exec(
				`INSERT INTO `+m.table("transaction_logs")+
					` (transaction_hash, address, log_index, data, removed, topics)
					 VALUES (?, ?, ?, ?, ?, ?)
					 ON CONFLICT (transaction_hash, log_index) DO NOTHING`,
				lg.TransactionHash, lg.Address, lg.LogIndex, lg.Data,
				lg.Removed, pq.Array(lg.Topics),
			).Error
			if err != nil {
				return errors.Wrapf(err, "inserting log %d of %s", lg.LogIndex, lg.TransactionHash)
			}
		}
		return nil
	})
}

// InsertInternalTransactions writes the trace entries of one transaction
// inside one database transaction.
func (m *Manager) InsertInternalTransactions(txHash string, itxs []*models.InternalTransactionData) error {
	if len(itxs) == 0 {
		return nil
	}
	return m.inTransaction(func(tx *gorm.DB) error {
		for _, itx := range itxs {
			err := tx.Exec(
				`INSERT INTO `+m.table("internal_transaction")+
					` (transaction_hash, from_address, to_address, value, gas_limit, gas_used, input_data, call_type)
					 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				txHash, itx.From, itx.To, numeric(itx.Value), itx.GasLimit,
				itx.GasUsed, itx.Input, itx.CallType,
			).Error
			if err != nil {
				return errors.Wrapf(err, "inserting internal transaction of %s", txHash)
			}
		}
		return nil
	})
}

// InsertNftTransfer writes one decoded NFT transfer, keyed by
// (transaction_hash, log_index).
func (m *Manager) InsertNftTransfer(transfer *models.NftTransfer) error {
	err := m.db.Exec(
		`INSERT INTO `+m.table("nft_transfer")+
			` (transaction_hash, log_index, address, from_address, to_address, token_id)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT (transaction_hash, log_index) DO NOTHING`,
		transfer.TransactionHash, transfer.LogIndex, transfer.Address,
		transfer.From, transfer.To, numeric(transfer.TokenID),
	).Error
	return errors.Wrapf(err, "inserting nft transfer %d of %s", transfer.LogIndex, transfer.TransactionHash)
}

// InsertContractSupplyChange writes the aggregated mint/burn delta of one
// contract within one transaction.
func (m *Manager) InsertContractSupplyChange(address, txHash string, amountChanged *big.Int) error {
	err := m.db.Exec(
		`INSERT INTO `+m.table("contract_supply_change")+
			` (address, transaction_hash, amount_changed)
			 VALUES (?, ?, ?)
			 ON CONFLICT (address, transaction_hash) DO NOTHING`,
		address, txHash, numeric(amountChanged),
	).Error
	return errors.Wrapf(err, "inserting supply change for %s in %s", address, txHash)
}

// InsertPairLiquidityChange writes the aggregated liquidity delta of one pair
// within one transaction.
func (m *Manager) InsertPairLiquidityChange(address, txHash string, amount0, amount1 *big.Int) error {
	err := m.db.Exec(
		`INSERT INTO `+m.table("pair_liquidity_change")+
			` (address, transaction_hash, amount0, amount1)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT (address, transaction_hash) DO NOTHING`,
		address, txHash, numeric(amount0), numeric(amount1),
	).Error
	return errors.Wrapf(err, "inserting liquidity change for %s in %s", address, txHash)
}

// InsertTokenContract writes the contract row and its token metadata inside
// one database transaction.
func (m *Manager) InsertTokenContract(txHash string, token *models.TokenContractData) error {
	return m.inTransaction(func(tx *gorm.DB) error {
		if err := m.insertContract(tx, token.Address, txHash, false); err != nil {
			return err
		}
		err := tx.Exec(
			`INSERT INTO `+m.table("token_contract")+
				` (address, symbol, name, decimals, total_supply, token_category)
				 VALUES (?, ?, ?, ?, ?, ?)
				 ON CONFLICT (address) DO NOTHING`,
			token.Address, token.Symbol, token.Name, token.Decimals,
			numeric(token.TotalSupply), token.Category.String(),
		).Error
		return errors.Wrapf(err, "inserting token contract %s", token.Address)
	})
}

// InsertPairContract writes the contract row and its pair metadata inside one
// database transaction.
func (m *Manager) InsertPairContract(txHash string, pair *models.PairContractData) error {
	return m.inTransaction(func(tx *gorm.DB) error {
		if err := m.insertContract(tx, pair.Address, txHash, true); err != nil {
			return err
		}
		err := tx.Exec(
			`INSERT INTO `+m.table("pair_contract")+
				` (address, token0_address, token1_address, reserve0, reserve1, factory)
				 VALUES (?, ?, ?, ?, ?, ?)
				 ON CONFLICT (address) DO NOTHING`,
			pair.Address, pair.Token0, pair.Token1, numeric(pair.Reserve0),
			numeric(pair.Reserve1), pair.Factory,
		).Error
		return errors.Wrapf(err, "inserting pair contract %s", pair.Address)
	})
}

func (m *Manager) insertContract(tx *gorm.DB, address, txHash string, isPairContract bool) error {
	err := tx.Exec(
		`INSERT INTO `+m.table("contract")+
			` (address, transaction_hash, is_pair_contract)
			 VALUES (?, ?, ?)
			 ON CONFLICT (address) DO NOTHING`,
		address, txHash, isPairContract,
	).Error
	return errors.Wrapf(err, "inserting contract %s", address)
}

// GetBlock returns one persisted block row by number; ok=false when the
// block is not persisted.
func (m *Manager) GetBlock(blockNumber uint64) (*models.BlockData, bool, error) {
	row := m.db.Raw(`SELECT block_number, block_hash, nonce, gas_limit, gas_used, timestamp, miner, parent_hash FROM `+
		m.table("block")+` WHERE block_number = ?`, blockNumber).Row()
	return m.scanBlock(row)
}

// GetBlockByHash returns one persisted block row by hash; ok=false when the
// block is not persisted.
func (m *Manager) GetBlockByHash(blockHash string) (*models.BlockData, bool, error) {
	row := m.db.Raw(`SELECT block_number, block_hash, nonce, gas_limit, gas_used, timestamp, miner, parent_hash FROM `+
		m.table("block")+` WHERE block_hash = ?`, blockHash).Row()
	return m.scanBlock(row)
}

func (m *Manager) scanBlock(row *sql.Row) (*models.BlockData, bool, error) {
	block := new(models.BlockData)
	err := row.Scan(&block.Number, &block.Hash, &block.Nonce, &block.GasLimit,
		&block.GasUsed, &block.Timestamp, &block.Miner, &block.ParentHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "reading block")
	}
	return block, true, nil
}

// GetLatestBlockNumber returns the highest persisted block number; ok=false
// when the block table is empty.
func (m *Manager) GetLatestBlockNumber() (uint64, bool, error) {
	row := m.db.Raw(`SELECT block_number FROM ` + m.table("block") +
		` ORDER BY block_number DESC LIMIT 1`).Row()
	var number uint64
	if err := row.Scan(&number); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, errors.Wrap(err, "reading latest block")
	}
	return number, true, nil
}

// GetBlockTransactionHashes returns the hashes persisted for a block number.
func (m *Manager) GetBlockTransactionHashes(blockNumber uint64) ([]string, error) {
	rows, err := m.db.Raw(`SELECT transaction_hash FROM `+m.table("transaction")+
		` WHERE block_number = ?`, blockNumber).Rows()
	if err != nil {
		return nil, errors.Wrapf(err, "reading transactions of block %d", blockNumber)
	}
	defer rows.Close()
	var hashes []string
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, errors.Wrap(err, "scanning transaction hash")
		}
		hashes = append(hashes, hash)
	}
	return hashes, rows.Err()
}

func (m *Manager) inTransaction(fn func(tx *gorm.DB) error) error {
	tx := m.db.Begin()
	if tx.Error != nil {
		return errors.Wrap(tx.Error, "beginning transaction")
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit().Error, "committing transaction")
}
