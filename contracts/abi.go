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

// Package contracts holds the per-address contract registry and the
// ABI-driven decoding of receipt logs into typed events.
package contracts

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/pkg/errors"

	"github.com/tokenlytics/evm-data-collector/models"
)

// ContractABI bundles the parsed ABIs of every supported contract category.
// The source file is a JSON document with one ABI array per category key.
type ContractABI struct {
	ERC20            abi.ABI
	ERC721           abi.ABI
	ERC1155          abi.ABI
	UniSwapV2Factory abi.ABI
	UniSwapV2Pair    abi.ABI
}

// LoadContractABI reads and parses the ABI file.
func LoadContractABI(path string) (*ContractABI, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading abi file")
	}
	return ParseContractABI(raw)
}

// ParseContractABI parses the ABI document.
func ParseContractABI(raw []byte) (*ContractABI, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(err, "parsing abi file")
	}

	parsed := new(ContractABI)
	for key, dest := range map[string]*abi.ABI{
		"erc20":            &parsed.ERC20,
		"erc721":           &parsed.ERC721,
		"erc1155":          &parsed.ERC1155,
		"UniSwapV2Factory": &parsed.UniSwapV2Factory,
		"UniSwapV2Pair":    &parsed.UniSwapV2Pair,
	} {
		entry, ok := doc[key]
		if !ok {
			return nil, errors.Errorf("abi file is missing key %q", key)
		}
		contractAbi, err := abi.JSON(bytes.NewReader(entry))
		if err != nil {
			return nil, errors.Wrapf(err, "parsing %q abi", key)
		}
		*dest = contractAbi
	}
	return parsed, nil
}

// ForCategory returns the ABI attached to a contract category.
func (c *ContractABI) ForCategory(category models.ContractCategory) (*abi.ABI, bool) {
	switch category {
	case models.CategoryERC20:
		return &c.ERC20, true
	case models.CategoryERC721:
		return &c.ERC721, true
	case models.CategoryERC1155:
		return &c.ERC1155, true
	case models.CategoryUniSwapV2Factory:
		return &c.UniSwapV2Factory, true
	case models.CategoryUniSwapV2Pair:
		return &c.UniSwapV2Pair, true
	}
	return nil, false
}
