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

// Package node provides typed accessors over the JSON-RPC API of an
// EVM-compatible node, with retry middleware for transient connection
// failures.
package node

import (
	"context"
	"math/big"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/tokenlytics/evm-data-collector/log"
	"github.com/tokenlytics/evm-data-collector/models"
)

// ErrBlockNotFound is returned when the node has no block for the requested
// number. For an unbounded walk this is the terminal signal at the tip.
var ErrBlockNotFound = errors.New("block not found")

// Client wraps an rpc.Client with per-call timeouts and a fixed-delay retry
// loop for connection-class errors.
type Client struct {
	rpc        *rpc.Client
	timeout    time.Duration
	retryLimit int
	retryDelay time.Duration
	logger     *zap.SugaredLogger
}

// Dial connects to the node RPC endpoint.
func Dial(nodeURL string, timeout time.Duration, retryLimit int, retryDelay time.Duration) (*Client, error) {
	c, err := rpc.Dial(nodeURL)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing node %s", nodeURL)
	}
	if retryLimit < 1 {
		retryLimit = 1
	}
	return &Client{
		rpc:        c,
		timeout:    timeout,
		retryLimit: retryLimit,
		retryDelay: retryDelay,
		logger:     log.NewModuleLogger("node"),
	}, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() { c.rpc.Close() }

// call issues one RPC request, retrying connection-class failures up to the
// retry limit with a fixed delay. Other errors propagate immediately; after
// exhaustion the last error is surfaced.
func (c *Client) call(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	var lastErr error
	for attempt := 0; attempt < c.retryLimit; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := c.rpc.CallContext(callCtx, result, method, args...)
		cancel()
		if err == nil {
			return nil
		}
		if !isConnectionError(err) {
			return err
		}
		lastErr = err
		if attempt < c.retryLimit-1 {
			c.logger.Debugw("request failed, retrying",
				"method", method, "attempt", attempt+1, "delay", c.retryDelay, "err", err)
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	c.logger.Errorw("request failed after exhausting retries",
		"method", method, "retries", c.retryLimit, "err", lastErr)
	return lastErr
}

// isConnectionError classifies timeouts, resets and DNS failures as
// retryable.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

type rpcBlock struct {
	Number       *hexutil.Big   `json:"number"`
	Hash         common.Hash    `json:"hash"`
	Nonce        string         `json:"nonce"`
	Difficulty   *hexutil.Big   `json:"difficulty"`
	GasLimit     hexutil.Uint64 `json:"gasLimit"`
	GasUsed      hexutil.Uint64 `json:"gasUsed"`
	Timestamp    hexutil.Uint64 `json:"timestamp"`
	Miner        common.Address `json:"miner"`
	ParentHash   common.Hash    `json:"parentHash"`
	Transactions []common.Hash  `json:"transactions"`
}

// GetBlockData fetches a block by number with its transaction hash list.
// Returns ErrBlockNotFound once the walk passes the chain tip.
func (c *Client) GetBlockData(ctx context.Context, number uint64) (*models.BlockData, error) {
	var raw *rpcBlock
	if err := c.call(ctx, &raw, "eth_getBlockByNumber", hexutil.Uint64(number).String(), false); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrBlockNotFound
	}
	txs := make([]string, len(raw.Transactions))
	for i, h := range raw.Transactions {
		txs[i] = h.Hex()
	}
	return &models.BlockData{
		Number:       raw.Number.ToInt().Uint64(),
		Hash:         raw.Hash.Hex(),
		Nonce:        raw.Nonce,
		Difficulty:   raw.Difficulty.ToInt(),
		GasLimit:     uint64(raw.GasLimit),
		GasUsed:      uint64(raw.GasUsed),
		Timestamp:    time.Unix(int64(raw.Timestamp), 0).UTC(),
		Miner:        strings.ToLower(raw.Miner.Hex()),
		ParentHash:   raw.ParentHash.Hex(),
		Transactions: txs,
	}, nil
}

// GetLatestBlockNumber returns the chain tip number.
func (c *Client) GetLatestBlockNumber(ctx context.Context) (uint64, error) {
	var result hexutil.Uint64
	if err := c.call(ctx, &result, "eth_blockNumber"); err != nil {
		return 0, err
	}
	return uint64(result), nil
}

type rpcTransaction struct {
	Hash        common.Hash     `json:"hash"`
	BlockNumber *hexutil.Big    `json:"blockNumber"`
	From        common.Address  `json:"from"`
	To          *common.Address `json:"to"`
	Value       *hexutil.Big    `json:"value"`
	GasPrice    *hexutil.Big    `json:"gasPrice"`
	Gas         hexutil.Uint64  `json:"gas"`
	Input       hexutil.Bytes   `json:"input"`
}

// GetTransactionData fetches a transaction by hash.
func (c *Client) GetTransactionData(ctx context.Context, txHash string) (*models.TransactionData, error) {
	var raw *rpcTransaction
	if err := c.call(ctx, &raw, "eth_getTransactionByHash", common.HexToHash(txHash)); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errors.Errorf("transaction %s not found", txHash)
	}
	tx := &models.TransactionData{
		Hash:     raw.Hash.Hex(),
		From:     strings.ToLower(raw.From.Hex()),
		Value:    raw.Value.ToInt(),
		GasPrice: raw.GasPrice.ToInt(),
		GasLimit: uint64(raw.Gas),
		Input:    raw.Input.String(),
	}
	if raw.BlockNumber != nil {
		tx.BlockNumber = raw.BlockNumber.ToInt().Uint64()
	}
	if raw.To != nil {
		tx.To = strings.ToLower(raw.To.Hex())
	}
	return tx, nil
}

type rpcLog struct {
	Address         common.Address `json:"address"`
	Topics          []common.Hash  `json:"topics"`
	Data            hexutil.Bytes  `json:"data"`
	Removed         bool           `json:"removed"`
	LogIndex        hexutil.Uint   `json:"logIndex"`
	TransactionHash common.Hash    `json:"transactionHash"`
}

type rpcReceipt struct {
	GasUsed         hexutil.Uint64  `json:"gasUsed"`
	Logs            []*rpcLog       `json:"logs"`
	Type            string          `json:"type"`
	ContractAddress *common.Address `json:"contractAddress"`
}

// GetTransactionReceiptData fetches a receipt by hash.
func (c *Client) GetTransactionReceiptData(ctx context.Context, txHash string) (*models.TransactionReceiptData, error) {
	var raw *rpcReceipt
	if err := c.call(ctx, &raw, "eth_getTransactionReceipt", common.HexToHash(txHash)); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errors.Errorf("receipt for %s not found", txHash)
	}
	receipt := &models.TransactionReceiptData{
		GasUsed: uint64(raw.GasUsed),
		Type:    raw.Type,
	}
	if raw.ContractAddress != nil {
		receipt.ContractAddress = strings.ToLower(raw.ContractAddress.Hex())
	}
	receipt.Logs = make([]*models.TransactionLog, 0, len(raw.Logs))
	for _, lg := range raw.Logs {
		topics := make([]string, len(lg.Topics))
		for i, t := range lg.Topics {
			topics[i] = t.Hex()
		}
		receipt.Logs = append(receipt.Logs, &models.TransactionLog{
			TransactionHash: lg.TransactionHash.Hex(),
			Address:         strings.ToLower(lg.Address.Hex()),
			LogIndex:        uint(lg.LogIndex),
			Data:            lg.Data.String(),
			Removed:         lg.Removed,
			Topics:          topics,
		})
	}
	return receipt, nil
}

type traceAction struct {
	From     common.Address `json:"from"`
	To       common.Address `json:"to"`
	Value    *hexutil.Big   `json:"value"`
	Gas      *hexutil.Big   `json:"gas"`
	Input    hexutil.Bytes  `json:"input"`
	CallType string         `json:"callType"`
}

type traceResult struct {
	GasUsed *hexutil.Big `json:"gasUsed"`
}

type traceEntry struct {
	Type   string       `json:"type"`
	Action traceAction  `json:"action"`
	Result *traceResult `json:"result"`
}

type replayResult struct {
	Trace []*traceEntry `json:"trace"`
}

// GetInternalTransactions replays a transaction and returns its trace
// entries. The trace reports numeric fields as hex strings.
func (c *Client) GetInternalTransactions(ctx context.Context, txHash string) ([]*models.InternalTransactionData, error) {
	var raw replayResult
	if err := c.call(ctx, &raw, "trace_replayTransaction", common.HexToHash(txHash), []string{"trace"}); err != nil {
		return nil, err
	}
	itxs := make([]*models.InternalTransactionData, 0, len(raw.Trace))
	for _, entry := range raw.Trace {
		itx := &models.InternalTransactionData{
			From:     strings.ToLower(entry.Action.From.Hex()),
			To:       strings.ToLower(entry.Action.To.Hex()),
			Value:    entry.Action.Value.ToInt(),
			Input:    entry.Action.Input.String(),
			CallType: entry.Action.CallType,
		}
		if entry.Action.Gas != nil {
			itx.GasLimit = entry.Action.Gas.ToInt().Uint64()
		}
		if entry.Result != nil && entry.Result.GasUsed != nil {
			itx.GasUsed = entry.Result.GasUsed.ToInt().Uint64()
		}
		itxs = append(itxs, itx)
	}
	return itxs, nil
}

// GetBlockReward sums the reward entries of trace_block for the given block.
func (c *Client) GetBlockReward(ctx context.Context, number uint64) (*big.Int, error) {
	var entries []*traceEntry
	if err := c.call(ctx, &entries, "trace_block", hexutil.Uint64(number).String()); err != nil {
		return nil, err
	}
	reward := new(big.Int)
	for _, entry := range entries {
		if entry.Type == "reward" && entry.Action.Value != nil {
			reward.Add(reward, entry.Action.Value.ToInt())
		}
	}
	return reward, nil
}

// CallContract performs an eth_call of pre-packed calldata against the latest
// state. Used by the contract registry's read methods.
func (c *Client) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	args := map[string]interface{}{
		"to":   to,
		"data": hexutil.Bytes(data),
	}
	var result hexutil.Bytes
	if err := c.call(ctx, &result, "eth_call", args, "latest"); err != nil {
		return nil, err
	}
	return result, nil
}
