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

package consumer

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tokenlytics/evm-data-collector/config"
	"github.com/tokenlytics/evm-data-collector/contracts"
	"github.com/tokenlytics/evm-data-collector/models"
)

const (
	addrToken   = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	addrPair    = "0xcccccccccccccccccccccccccccccccccccccccc"
	addrOther   = "0x9999999999999999999999999999999999999999"
	addrCreated = "0x1337133713371337133713371337133713371337"
	addrFrom    = "0xbabababababababababababababababababababa"
	addrDead    = "0x000000000000000000000000000000000000dead"
	testTxHash  = "0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060"
)

type savedSupplyChange struct {
	address string
	amount  *big.Int
}

type savedLiquidityChange struct {
	address          string
	amount0, amount1 *big.Int
}

type fakeStore struct {
	transactions     []*models.TransactionData
	fees             []*big.Int
	logs             []*models.TransactionLog
	internals        []*models.InternalTransactionData
	nftTransfers     []*models.NftTransfer
	supplyChanges    []savedSupplyChange
	liquidityChanges []savedLiquidityChange
	tokenContracts   []*models.TokenContractData
	pairContracts    []*models.PairContractData
}

func (f *fakeStore) InsertTransaction(tx *models.TransactionData, gasUsed uint64, fee *big.Int, isTokenTx bool) error {
	f.transactions = append(f.transactions, tx)
	f.fees = append(f.fees, fee)
	return nil
}

func (f *fakeStore) InsertTransactionLogs(logs []*models.TransactionLog) error {
	f.logs = append(f.logs, logs...)
	return nil
}

func (f *fakeStore) InsertInternalTransactions(txHash string, itxs []*models.InternalTransactionData) error {
	f.internals = append(f.internals, itxs...)
	return nil
}

func (f *fakeStore) InsertNftTransfer(transfer *models.NftTransfer) error {
	f.nftTransfers = append(f.nftTransfers, transfer)
	return nil
}

func (f *fakeStore) InsertContractSupplyChange(address, txHash string, amount *big.Int) error {
	f.supplyChanges = append(f.supplyChanges, savedSupplyChange{address, amount})
	return nil
}

func (f *fakeStore) InsertPairLiquidityChange(address, txHash string, amount0, amount1 *big.Int) error {
	f.liquidityChanges = append(f.liquidityChanges, savedLiquidityChange{address, amount0, amount1})
	return nil
}

func (f *fakeStore) InsertTokenContract(txHash string, token *models.TokenContractData) error {
	f.tokenContracts = append(f.tokenContracts, token)
	return nil
}

func (f *fakeStore) InsertPairContract(txHash string, pair *models.PairContractData) error {
	f.pairContracts = append(f.pairContracts, pair)
	return nil
}

type fakeItxSource struct {
	itxs []*models.InternalTransactionData
}

func (f *fakeItxSource) GetInternalTransactions(ctx context.Context, txHash string) ([]*models.InternalTransactionData, error) {
	return f.itxs, nil
}

func loadTestABI(t *testing.T) *contracts.ContractABI {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("..", "etc", "contract_abi.json"))
	require.NoError(t, err)
	abis, err := contracts.ParseContractABI(raw)
	require.NoError(t, err)
	return abis
}

func testRegistry(t *testing.T) *contracts.Registry {
	t.Helper()
	return contracts.NewRegistry([]*config.ContractConfig{
		{
			Address:  addrToken,
			Symbol:   "TOK",
			Category: models.CategoryERC20,
			Events: []string{
				models.EventNameTransferFungible,
				models.EventNameBurnFungible,
				models.EventNameMintFungible,
			},
		},
		{
			Address:  addrPair,
			Symbol:   "TOK-WETH",
			Category: models.CategoryUniSwapV2Pair,
			Events: []string{
				models.EventNameMintPair,
				models.EventNameBurnPair,
				models.EventNameSwapPair,
			},
		},
	}, loadTestABI(t))
}

func newTestBase(t *testing.T, store *fakeStore, itxs []*models.InternalTransactionData) baseProcessor {
	t.Helper()
	return baseProcessor{
		store:    store,
		itxs:     &fakeItxSource{itxs: itxs},
		registry: testRegistry(t),
		decoders: contracts.NewDecoderTable(),
		logger:   zap.NewNop().Sugar(),
	}
}

func addressTopic(address string) string {
	return common.BytesToHash(common.HexToAddress(address).Bytes()).Hex()
}

func hexWords(vs ...int64) string {
	data := make([]byte, 0, len(vs)*common.HashLength)
	for _, v := range vs {
		data = append(data, common.BigToHash(big.NewInt(v)).Bytes()...)
	}
	return "0x" + common.Bytes2Hex(data)
}

func testTx(to string) *models.TransactionData {
	return &models.TransactionData{
		Hash:     testTxHash,
		From:     addrFrom,
		To:       to,
		GasPrice: big.NewInt(2),
		Value:    big.NewInt(0),
	}
}

func TestFullProcessorSavesEverything(t *testing.T) {
	store := &fakeStore{}
	itxs := []*models.InternalTransactionData{{From: addrFrom, To: addrOther}}
	processor := &FullProcessor{newTestBase(t, store, itxs)}

	receipt := &models.TransactionReceiptData{
		GasUsed: 21000,
		Logs: []*models.TransactionLog{
			{TransactionHash: testTxHash, Address: addrOther, LogIndex: 0},
			{TransactionHash: testTxHash, Address: addrToken, LogIndex: 1},
		},
	}

	saved, err := processor.ProcessTransaction(context.Background(), testTx(addrOther), receipt)
	require.NoError(t, err)
	assert.True(t, saved)

	require.Len(t, store.transactions, 1)
	assert.Equal(t, big.NewInt(42000), store.fees[0])
	assert.Len(t, store.logs, 2)
	assert.Len(t, store.internals, 1)
}

func TestPartialProcessorTransferToDead(t *testing.T) {
	store := &fakeStore{}
	base := newTestBase(t, store, nil)
	processor := &PartialProcessor{base}

	abis := loadTestABI(t)
	receipt := &models.TransactionReceiptData{
		GasUsed: 21000,
		Logs: []*models.TransactionLog{{
			TransactionHash: testTxHash,
			Address:         addrToken,
			LogIndex:        7,
			Data:            hexWords(42),
			Topics: []string{
				abis.ERC20.Events["Transfer"].ID.Hex(),
				addressTopic(addrFrom),
				addressTopic(addrDead),
			},
		}},
	}

	saved, err := processor.ProcessTransaction(context.Background(), testTx(addrToken), receipt)
	require.NoError(t, err)
	assert.True(t, saved)

	require.Len(t, store.logs, 1)
	assert.EqualValues(t, 7, store.logs[0].LogIndex)
	require.Len(t, store.supplyChanges, 1)
	assert.Equal(t, addrToken, store.supplyChanges[0].address)
	assert.Equal(t, big.NewInt(-42), store.supplyChanges[0].amount)
	assert.Empty(t, store.liquidityChanges)
}

func TestPartialProcessorSwapAndBurn(t *testing.T) {
	store := &fakeStore{}
	processor := &PartialProcessor{newTestBase(t, store, nil)}

	abis := loadTestABI(t)
	receipt := &models.TransactionReceiptData{
		GasUsed: 21000,
		Logs: []*models.TransactionLog{
			{
				TransactionHash: testTxHash,
				Address:         addrPair,
				LogIndex:        3,
				Data:            hexWords(1200, 1500, 1000, 900),
				Topics: []string{
					abis.UniSwapV2Pair.Events["Swap"].ID.Hex(),
					addressTopic(addrFrom),
					addressTopic(addrOther),
				},
			},
			{
				TransactionHash: testTxHash,
				Address:         addrPair,
				LogIndex:        5,
				Data:            hexWords(500, 400),
				Topics: []string{
					abis.UniSwapV2Pair.Events["Burn"].ID.Hex(),
					addressTopic(addrFrom),
					addressTopic(addrOther),
				},
			},
		},
	}

	saved, err := processor.ProcessTransaction(context.Background(), testTx(addrPair), receipt)
	require.NoError(t, err)
	assert.True(t, saved)

	assert.Len(t, store.logs, 2)
	require.Len(t, store.liquidityChanges, 1)
	change := store.liquidityChanges[0]
	assert.Equal(t, addrPair, change.address)
	assert.Equal(t, big.NewInt(-300), change.amount0)
	assert.Equal(t, big.NewInt(200), change.amount1)
}

func TestPartialProcessorEventOnly(t *testing.T) {
	store := &fakeStore{}
	processor := &PartialProcessor{newTestBase(t, store, nil)}

	abis := loadTestABI(t)
	receipt := &models.TransactionReceiptData{
		GasUsed: 21000,
		Logs: []*models.TransactionLog{
			{TransactionHash: testTxHash, Address: addrOther, LogIndex: 0},
			{
				TransactionHash: testTxHash,
				Address:         addrToken,
				LogIndex:        1,
				Data:            hexWords(9),
				Topics: []string{
					abis.ERC20.Events["Transfer"].ID.Hex(),
					addressTopic(addrFrom),
					addressTopic(addrOther),
				},
			},
		},
	}

	// to_address is not configured but one log address is.
	saved, err := processor.ProcessTransaction(context.Background(), testTx(addrOther), receipt)
	require.NoError(t, err)
	assert.True(t, saved)

	require.Len(t, store.logs, 1)
	assert.Equal(t, addrToken, store.logs[0].Address)
}

func TestPartialProcessorSkipsUnrelatedTransaction(t *testing.T) {
	store := &fakeStore{}
	processor := &PartialProcessor{newTestBase(t, store, nil)}

	receipt := &models.TransactionReceiptData{
		GasUsed: 21000,
		Logs:    []*models.TransactionLog{{TransactionHash: testTxHash, Address: addrOther, LogIndex: 0}},
	}

	saved, err := processor.ProcessTransaction(context.Background(), testTx(addrOther), receipt)
	require.NoError(t, err)
	assert.False(t, saved)
	assert.Empty(t, store.transactions)
	assert.Empty(t, store.logs)
}

func TestPartialProcessorUnknownContractCreation(t *testing.T) {
	store := &fakeStore{}
	processor := &PartialProcessor{newTestBase(t, store, nil)}

	receipt := &models.TransactionReceiptData{
		GasUsed:         21000,
		ContractAddress: addrCreated,
	}

	saved, err := processor.ProcessTransaction(context.Background(), testTx(""), receipt)
	require.NoError(t, err)
	assert.False(t, saved)
	assert.Empty(t, store.transactions)
	assert.Empty(t, store.tokenContracts)
	assert.Empty(t, store.pairContracts)
}

func TestPartialProcessorNftTransfer(t *testing.T) {
	store := &fakeStore{}
	base := newTestBase(t, store, nil)
	// Reconfigure the token address as an ERC721 collection.
	base.registry = contracts.NewRegistry([]*config.ContractConfig{{
		Address:  addrToken,
		Symbol:   "NFT",
		Category: models.CategoryERC721,
		Events:   []string{models.EventNameTransferNonFungible},
	}}, loadTestABI(t))
	processor := &PartialProcessor{base}

	abis := loadTestABI(t)
	receipt := &models.TransactionReceiptData{
		GasUsed: 21000,
		Logs: []*models.TransactionLog{{
			TransactionHash: testTxHash,
			Address:         addrToken,
			LogIndex:        4,
			Data:            "0x",
			Topics: []string{
				abis.ERC721.Events["Transfer"].ID.Hex(),
				addressTopic(addrFrom),
				addressTopic(addrOther),
				common.BigToHash(big.NewInt(77)).Hex(),
			},
		}},
	}

	saved, err := processor.ProcessTransaction(context.Background(), testTx(addrToken), receipt)
	require.NoError(t, err)
	assert.True(t, saved)

	require.Len(t, store.nftTransfers, 1)
	transfer := store.nftTransfers[0]
	assert.Equal(t, testTxHash, transfer.TransactionHash)
	assert.Equal(t, addrFrom, transfer.From)
	assert.Equal(t, addrOther, transfer.To)
	assert.Equal(t, big.NewInt(77), transfer.TokenID)
}

func TestLogFilterProcessorIsNoOp(t *testing.T) {
	store := &fakeStore{}
	processor := &LogFilterProcessor{newTestBase(t, store, nil)}

	saved, err := processor.ProcessTransaction(context.Background(), testTx(addrToken), &models.TransactionReceiptData{})
	require.NoError(t, err)
	assert.False(t, saved)
	assert.Empty(t, store.transactions)
}
