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

package contracts

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/tokenlytics/evm-data-collector/models"
)

// Caller performs a read-only contract call against the node.
type Caller interface {
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)
}

// Handle is an address plus an ABI view: enough to decode receipt logs and
// to invoke read methods through a Caller. Handles hold no collaborator
// references themselves.
type Handle struct {
	address      common.Address
	addressLower string
	abi          *abi.ABI
}

// NewHandle binds an address to a category ABI.
func NewHandle(address string, contractAbi *abi.ABI) *Handle {
	addr := common.HexToAddress(address)
	return &Handle{
		address:      addr,
		addressLower: strings.ToLower(addr.Hex()),
		abi:          contractAbi,
	}
}

// Address returns the bound contract address.
func (h *Handle) Address() common.Address { return h.address }

// AddressLower returns the lowercased hex form used for comparisons.
func (h *Handle) AddressLower() string { return h.addressLower }

// ABI returns the category ABI attached to this handle.
func (h *Handle) ABI() *abi.ABI { return h.abi }

// callMethod packs a no-argument read method, executes it and unpacks the
// outputs.
func (h *Handle) callMethod(ctx context.Context, caller Caller, method string) ([]interface{}, error) {
	data, err := h.abi.Pack(method)
	if err != nil {
		return nil, errors.Wrapf(err, "packing %s()", method)
	}
	ret, err := caller.CallContract(ctx, h.address, data)
	if err != nil {
		return nil, errors.Wrapf(err, "calling %s() on %s", method, h.addressLower)
	}
	out, err := h.abi.Unpack(method, ret)
	if err != nil {
		return nil, errors.Wrapf(err, "unpacking %s() result", method)
	}
	return out, nil
}

func (h *Handle) callString(ctx context.Context, caller Caller, method string) (string, error) {
	out, err := h.callMethod(ctx, caller, method)
	if err != nil {
		return "", err
	}
	if len(out) != 1 {
		return "", errors.Errorf("%s() returned %d values", method, len(out))
	}
	s, ok := out[0].(string)
	if !ok {
		return "", errors.Errorf("%s() did not return a string", method)
	}
	return s, nil
}

func (h *Handle) callAddress(ctx context.Context, caller Caller, method string) (string, error) {
	out, err := h.callMethod(ctx, caller, method)
	if err != nil {
		return "", err
	}
	if len(out) != 1 {
		return "", errors.Errorf("%s() returned %d values", method, len(out))
	}
	addr, ok := out[0].(common.Address)
	if !ok {
		return "", errors.Errorf("%s() did not return an address", method)
	}
	return strings.ToLower(addr.Hex()), nil
}

// TokenData reads the token metadata of an ERC contract. ERC1155 contracts
// expose none of the fields, so only the address and category are filled in.
func (h *Handle) TokenData(ctx context.Context, caller Caller, category models.ContractCategory) (*models.TokenContractData, error) {
	token := &models.TokenContractData{
		Address:  h.addressLower,
		Category: category,
	}
	if category == models.CategoryERC1155 {
		return token, nil
	}
	if category != models.CategoryERC20 && category != models.CategoryERC721 {
		return nil, errors.Errorf("category %q has no token metadata", category)
	}

	var err error
	if token.Symbol, err = h.callString(ctx, caller, "symbol"); err != nil {
		return nil, err
	}
	if token.Name, err = h.callString(ctx, caller, "name"); err != nil {
		return nil, err
	}
	out, err := h.callMethod(ctx, caller, "decimals")
	if err != nil {
		return nil, err
	}
	decimals, ok := out[0].(uint8)
	if !ok {
		return nil, errors.New("decimals() did not return a uint8")
	}
	token.Decimals = decimals

	out, err = h.callMethod(ctx, caller, "totalSupply")
	if err != nil {
		return nil, err
	}
	supply, ok := out[0].(*big.Int)
	if !ok {
		return nil, errors.New("totalSupply() did not return an integer")
	}
	token.TotalSupply = supply
	return token, nil
}

// PairData reads the metadata of a UniswapV2 pair contract.
func (h *Handle) PairData(ctx context.Context, caller Caller) (*models.PairContractData, error) {
	pair := &models.PairContractData{Address: h.addressLower}

	var err error
	if pair.Token0, err = h.callAddress(ctx, caller, "token0"); err != nil {
		return nil, err
	}
	if pair.Token1, err = h.callAddress(ctx, caller, "token1"); err != nil {
		return nil, err
	}
	if pair.Factory, err = h.callAddress(ctx, caller, "factory"); err != nil {
		return nil, err
	}

	out, err := h.callMethod(ctx, caller, "getReserves")
	if err != nil {
		return nil, err
	}
	if len(out) < 2 {
		return nil, errors.Errorf("getReserves() returned %d values", len(out))
	}
	reserve0, ok0 := out[0].(*big.Int)
	reserve1, ok1 := out[1].(*big.Int)
	if !ok0 || !ok1 {
		return nil, errors.New("getReserves() did not return integers")
	}
	pair.Reserve0 = reserve0
	pair.Reserve1 = reserve1
	return pair, nil
}
