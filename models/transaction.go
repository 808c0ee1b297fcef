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

package models

import "math/big"

// TransactionData is the normalized subset of eth_getTransactionByHash.
// An empty To address marks a contract creation.
type TransactionData struct {
	Hash        string
	BlockNumber uint64
	From        string
	To          string
	Value       *big.Int
	GasPrice    *big.Int
	GasLimit    uint64
	Input       string
}

// TransactionLog is one receipt log entry.
type TransactionLog struct {
	TransactionHash string
	Address         string
	LogIndex        uint
	Data            string
	Removed         bool
	Topics          []string
}

// TransactionReceiptData is the normalized subset of
// eth_getTransactionReceipt. An empty ContractAddress means the transaction
// did not deploy a contract.
type TransactionReceiptData struct {
	GasUsed         uint64
	Logs            []*TransactionLog
	Type            string
	ContractAddress string
}

// InternalTransactionData is one trace entry obtained via
// trace_replayTransaction. The trace reports numeric fields as hex strings;
// they are parsed before this struct is built.
type InternalTransactionData struct {
	From     string
	To       string
	Value    *big.Int
	GasLimit uint64
	GasUsed  uint64
	Input    string
	CallType string
}

// NftTransfer is one decoded non-fungible transfer persisted per receipt log.
type NftTransfer struct {
	TransactionHash string
	LogIndex        uint
	Address         string
	From            string
	To              string
	TokenID         *big.Int
}
