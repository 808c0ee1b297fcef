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

import (
	"math/big"
	"time"
)

// BlockData is the normalized subset of a block returned by
// eth_getBlockByNumber that the collector persists.
type BlockData struct {
	Number       uint64
	Hash         string
	Nonce        string
	Difficulty   *big.Int
	GasLimit     uint64
	GasUsed      uint64
	Timestamp    time.Time
	Miner        string
	ParentHash   string
	Transactions []string
}
