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

	"github.com/pkg/errors"
)

// ContractCategory classifies a configured contract.
type ContractCategory string

const (
	CategoryUnknown          ContractCategory = "unknown"
	CategoryERC20            ContractCategory = "erc20"
	CategoryERC721           ContractCategory = "erc721"
	CategoryERC1155          ContractCategory = "erc1155"
	CategoryUniSwapV2Factory ContractCategory = "UniSwapV2Factory"
	CategoryUniSwapV2Pair    ContractCategory = "UniSwapV2Pair"
)

// ParseContractCategory converts the config representation of a category.
func ParseContractCategory(s string) (ContractCategory, error) {
	switch ContractCategory(s) {
	case CategoryUnknown, CategoryERC20, CategoryERC721, CategoryERC1155,
		CategoryUniSwapV2Factory, CategoryUniSwapV2Pair:
		return ContractCategory(s), nil
	}
	return "", errors.Errorf("unknown contract category %q", s)
}

// IsERC reports whether the category is one of the token standards.
func (c ContractCategory) IsERC() bool {
	return c == CategoryERC20 || c == CategoryERC721 || c == CategoryERC1155
}

// IsUniswapPair reports whether the category is a UniswapV2 pair.
func (c ContractCategory) IsUniswapPair() bool {
	return c == CategoryUniSwapV2Pair
}

func (c ContractCategory) String() string { return string(c) }

// TokenContractData carries the read-method metadata of a token contract.
// All fields except the address stay zero for ERC1155 contracts, which expose
// none of them.
type TokenContractData struct {
	Address     string
	Symbol      string
	Name        string
	Decimals    uint8
	TotalSupply *big.Int
	Category    ContractCategory
}

// PairContractData carries the read-method metadata of a UniswapV2 pair.
type PairContractData struct {
	Address  string
	Token0   string
	Token1   string
	Reserve0 *big.Int
	Reserve1 *big.Int
	Factory  string
}
