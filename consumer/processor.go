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

// Package consumer dequeues transaction-hash messages, runs the
// mode-specific processing state machine and persists the results.
package consumer

import (
	"context"
	"math/big"
	"strings"

	"go.uber.org/zap"

	"github.com/tokenlytics/evm-data-collector/contracts"
	"github.com/tokenlytics/evm-data-collector/models"
)

// Store is the persistence surface the processors need.
type Store interface {
	InsertTransaction(tx *models.TransactionData, gasUsed uint64, transactionFee *big.Int, isTokenTx bool) error
	InsertTransactionLogs(logs []*models.TransactionLog) error
	InsertInternalTransactions(txHash string, itxs []*models.InternalTransactionData) error
	InsertNftTransfer(transfer *models.NftTransfer) error
	InsertContractSupplyChange(address, txHash string, amountChanged *big.Int) error
	InsertPairLiquidityChange(address, txHash string, amount0, amount1 *big.Int) error
	InsertTokenContract(txHash string, token *models.TokenContractData) error
	InsertPairContract(txHash string, pair *models.PairContractData) error
}

// InternalTxSource replays transactions for their trace entries.
type InternalTxSource interface {
	GetInternalTransactions(ctx context.Context, txHash string) ([]*models.InternalTransactionData, error)
}

// Processor decides whether a transaction is persisted and writes every row
// derived from it. Returns whether the transaction was saved.
type Processor interface {
	ProcessTransaction(ctx context.Context, tx *models.TransactionData, receipt *models.TransactionReceiptData) (bool, error)
}

// baseProcessor carries the collaborators and the shared persistence steps.
type baseProcessor struct {
	store    Store
	itxs     InternalTxSource
	caller   contracts.Caller
	registry *contracts.Registry
	decoders map[models.ContractCategory][]contracts.Decoder
	logger   *zap.SugaredLogger
}

// handleTransaction persists the transaction row with its computed fee, the
// receipt logs selected by index inside one database transaction, and the
// internal transactions inside a second one.
func (p *baseProcessor) handleTransaction(ctx context.Context, tx *models.TransactionData, receipt *models.TransactionReceiptData, indicesToSave map[uint]bool) error {
	fee := new(big.Int)
	if tx.GasPrice != nil {
		fee.Mul(tx.GasPrice, new(big.Int).SetUint64(receipt.GasUsed))
	}
	if err := p.store.InsertTransaction(tx, receipt.GasUsed, fee, true); err != nil {
		return err
	}

	var logsToSave []*models.TransactionLog
	for _, lg := range receipt.Logs {
		if indicesToSave[lg.LogIndex] {
			logsToSave = append(logsToSave, lg)
		}
	}
	if err := p.store.InsertTransactionLogs(logsToSave); err != nil {
		return err
	}

	itxs, err := p.itxs.GetInternalTransactions(ctx, tx.Hash)
	if err != nil {
		return err
	}
	return p.store.InsertInternalTransactions(tx.Hash, itxs)
}

// handleTransactionEvents decodes the receipt against one contract handle,
// filters by the address's event whitelist, accumulates supply and pair
// liquidity deltas and returns the log indices worth persisting.
func (p *baseProcessor) handleTransactionEvents(handle *contracts.Handle, category models.ContractCategory, tx *models.TransactionData, receipt *models.TransactionReceiptData) (map[uint]bool, error) {
	allowed, _ := p.registry.AllowedEvents(handle.AddressLower())

	indices := make(map[uint]bool)
	supplyDelta := new(big.Int)
	pair0 := new(big.Int)
	pair1 := new(big.Int)

	for _, event := range contracts.DecodeEvents(p.decoders, category, handle, receipt) {
		if !allowed[event.EventName()] || event.EventAddress() != handle.AddressLower() {
			continue
		}
		indices[event.EventLogIndex()] = true

		switch e := event.(type) {
		case models.MintFungibleEvent:
			supplyDelta.Add(supplyDelta, e.Value)
		case models.BurnFungibleEvent:
			supplyDelta.Sub(supplyDelta, e.Value)
		case models.MintPairEvent:
			pair0.Add(pair0, e.Amount0)
			pair1.Add(pair1, e.Amount1)
		case models.BurnPairEvent:
			pair0.Sub(pair0, e.Amount0)
			pair1.Sub(pair1, e.Amount1)
		case models.SwapPairEvent:
			// A swap moves liquidity like a mint plus a burn with
			// different ratios.
			pair0.Add(pair0, e.In0)
			pair1.Add(pair1, e.In1)
			pair0.Sub(pair0, e.Out0)
			pair1.Sub(pair1, e.Out1)
		case models.TransferNonFungibleEvent:
			transfer := &models.NftTransfer{
				TransactionHash: tx.Hash,
				LogIndex:        e.EventLogIndex(),
				Address:         e.EventAddress(),
				From:            e.Src,
				To:              e.Dst,
				TokenID:         e.TokenID,
			}
			if err := p.store.InsertNftTransfer(transfer); err != nil {
				return nil, err
			}
		}
	}

	if supplyDelta.Sign() != 0 {
		if err := p.store.InsertContractSupplyChange(handle.AddressLower(), tx.Hash, supplyDelta); err != nil {
			return nil, err
		}
	}
	if pair0.Sign() != 0 || pair1.Sign() != 0 {
		if err := p.store.InsertPairLiquidityChange(handle.AddressLower(), tx.Hash, pair0, pair1); err != nil {
			return nil, err
		}
	}
	return indices, nil
}

// handleContractCreation reads token or pair metadata and writes the contract
// rows. An unreadable contract is logged and skipped, never an error.
func (p *baseProcessor) handleContractCreation(ctx context.Context, handle *contracts.Handle, tx *models.TransactionData, category models.ContractCategory) error {
	p.logger.Infow("new contract creation",
		"address", handle.AddressLower(), "category", category, "txHash", tx.Hash)

	switch {
	case category.IsERC():
		token, err := handle.TokenData(ctx, p.caller, category)
		if err != nil {
			p.logger.Warnw("failed to read token contract metadata",
				"address", handle.AddressLower(), "err", err)
			return nil
		}
		return p.store.InsertTokenContract(tx.Hash, token)
	case category.IsUniswapPair():
		pair, err := handle.PairData(ctx, p.caller)
		if err != nil {
			p.logger.Warnw("failed to read pair contract metadata",
				"address", handle.AddressLower(), "err", err)
			return nil
		}
		return p.store.InsertPairContract(tx.Hash, pair)
	}
	return nil
}

// FullProcessor saves every transaction with all of its logs and traces.
type FullProcessor struct {
	baseProcessor
}

func (p *FullProcessor) ProcessTransaction(ctx context.Context, tx *models.TransactionData, receipt *models.TransactionReceiptData) (bool, error) {
	indices := make(map[uint]bool, len(receipt.Logs))
	for _, lg := range receipt.Logs {
		indices[lg.LogIndex] = true
	}
	if err := p.handleTransaction(ctx, tx, receipt, indices); err != nil {
		return false, err
	}
	return true, nil
}

// PartialProcessor saves only transactions touching configured contracts:
// direct interactions, contract creations, or transactions whose receipt logs
// contain whitelisted events of a configured address.
type PartialProcessor struct {
	baseProcessor
}

func (p *PartialProcessor) ProcessTransaction(ctx context.Context, tx *models.TransactionData, receipt *models.TransactionReceiptData) (bool, error) {
	var saveTx bool
	var indices map[uint]bool
	var err error

	switch {
	case tx.To != "":
		saveTx, indices, err = p.processContractInteraction(tx, receipt)
	case receipt.ContractAddress != "":
		saveTx, indices, err = p.processContractCreation(ctx, tx, receipt)
	}
	if err != nil {
		return false, err
	}
	if !saveTx {
		return false, nil
	}
	if err := p.handleTransaction(ctx, tx, receipt, indices); err != nil {
		return false, err
	}
	return true, nil
}

// processContractInteraction covers the direct-interaction case and its
// event-only edge case where only a log address is configured.
func (p *PartialProcessor) processContractInteraction(tx *models.TransactionData, receipt *models.TransactionReceiptData) (bool, map[uint]bool, error) {
	if category, ok := p.registry.CategoryOf(tx.To); ok {
		handle, err := p.registry.Handle(tx.To, category)
		if err != nil {
			return false, nil, err
		}
		indices, err := p.handleTransactionEvents(handle, category, tx, receipt)
		if err != nil {
			return false, nil, err
		}
		return true, indices, nil
	}

	indices := make(map[uint]bool)
	for _, address := range uniqueLogAddresses(receipt.Logs) {
		category, ok := p.registry.CategoryOf(address)
		if !ok {
			continue
		}
		handle, err := p.registry.Handle(address, category)
		if err != nil {
			return false, nil, err
		}
		matched, err := p.handleTransactionEvents(handle, category, tx, receipt)
		if err != nil {
			return false, nil, err
		}
		for index := range matched {
			indices[index] = true
		}
	}
	return len(indices) > 0, indices, nil
}

func (p *PartialProcessor) processContractCreation(ctx context.Context, tx *models.TransactionData, receipt *models.TransactionReceiptData) (bool, map[uint]bool, error) {
	category, ok := p.registry.CategoryOf(receipt.ContractAddress)
	if !ok {
		return false, nil, nil
	}
	handle, err := p.registry.Handle(receipt.ContractAddress, category)
	if err != nil {
		return false, nil, err
	}
	if err := p.handleContractCreation(ctx, handle, tx, category); err != nil {
		return false, nil, err
	}
	indices, err := p.handleTransactionEvents(handle, category, tx, receipt)
	if err != nil {
		return false, nil, err
	}
	return true, indices, nil
}

// LogFilterProcessor is a sink kept for topology parity; it never saves.
type LogFilterProcessor struct {
	baseProcessor
}

func (p *LogFilterProcessor) ProcessTransaction(ctx context.Context, tx *models.TransactionData, receipt *models.TransactionReceiptData) (bool, error) {
	return false, nil
}

func uniqueLogAddresses(logs []*models.TransactionLog) []string {
	seen := make(map[string]bool, len(logs))
	var addresses []string
	for _, lg := range logs {
		address := strings.ToLower(lg.Address)
		if !seen[address] {
			seen[address] = true
			addresses = append(addresses, address)
		}
	}
	return addresses
}
