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

// Event names as they appear in the "events" whitelist of a contract config.
const (
	EventNameMintFungible        = "MintFungibleEvent"
	EventNameBurnFungible        = "BurnFungibleEvent"
	EventNameTransferFungible    = "TransferFungibleEvent"
	EventNameMintNonFungible     = "MintNonFungibleEvent"
	EventNameBurnNonFungible     = "BurnNonFungibleEvent"
	EventNameTransferNonFungible = "TransferNonFungibleEvent"
	EventNameMintPair            = "MintPairEvent"
	EventNameBurnPair            = "BurnPairEvent"
	EventNameSwapPair            = "SwapPairEvent"
	EventNamePairCreated         = "PairCreatedEvent"
)

// KnownEventNames lists every event name the decoder can emit. The config
// validator rejects whitelists mentioning anything else.
func KnownEventNames() map[string]bool {
	return map[string]bool{
		EventNameMintFungible:        true,
		EventNameBurnFungible:        true,
		EventNameTransferFungible:    true,
		EventNameMintNonFungible:     true,
		EventNameBurnNonFungible:     true,
		EventNameTransferNonFungible: true,
		EventNameMintPair:            true,
		EventNameBurnPair:            true,
		EventNameSwapPair:            true,
		EventNamePairCreated:         true,
	}
}

// ContractEvent is one typed event decoded from a receipt log.
type ContractEvent interface {
	// EventName returns the discriminator used for whitelist filtering.
	EventName() string
	// EventAddress returns the lowercased address of the emitting contract.
	EventAddress() string
	// EventLogIndex returns the receipt log index the event was decoded from.
	EventLogIndex() uint
}

// EventMeta carries the fields shared by every decoded event.
type EventMeta struct {
	Address  string
	LogIndex uint
}

func (m EventMeta) EventAddress() string { return m.Address }
func (m EventMeta) EventLogIndex() uint  { return m.LogIndex }

// MintFungibleEvent is a fungible token mint (transfer from a dead address,
// or an Issue).
type MintFungibleEvent struct {
	EventMeta
	Account string
	Value   *big.Int
}

func (MintFungibleEvent) EventName() string { return EventNameMintFungible }

// BurnFungibleEvent is a fungible token burn (transfer to a dead address, or
// a Redeem).
type BurnFungibleEvent struct {
	EventMeta
	Account string
	Value   *big.Int
}

func (BurnFungibleEvent) EventName() string { return EventNameBurnFungible }

// TransferFungibleEvent is a fungible token transfer between two addresses.
type TransferFungibleEvent struct {
	EventMeta
	Src   string
	Dst   string
	Value *big.Int
}

func (TransferFungibleEvent) EventName() string { return EventNameTransferFungible }

// MintNonFungibleEvent is an NFT mint.
type MintNonFungibleEvent struct {
	EventMeta
	TokenID *big.Int
}

func (MintNonFungibleEvent) EventName() string { return EventNameMintNonFungible }

// BurnNonFungibleEvent is an NFT burn.
type BurnNonFungibleEvent struct {
	EventMeta
	TokenID *big.Int
}

func (BurnNonFungibleEvent) EventName() string { return EventNameBurnNonFungible }

// TransferNonFungibleEvent is an NFT transfer between two addresses.
type TransferNonFungibleEvent struct {
	EventMeta
	Src     string
	Dst     string
	TokenID *big.Int
}

func (TransferNonFungibleEvent) EventName() string { return EventNameTransferNonFungible }

// MintPairEvent is a UniswapV2 pair liquidity deposit.
type MintPairEvent struct {
	EventMeta
	Sender  string
	Amount0 *big.Int
	Amount1 *big.Int
}

func (MintPairEvent) EventName() string { return EventNameMintPair }

// BurnPairEvent is a UniswapV2 pair liquidity withdrawal.
type BurnPairEvent struct {
	EventMeta
	Src     string
	Dst     string
	Amount0 *big.Int
	Amount1 *big.Int
}

func (BurnPairEvent) EventName() string { return EventNameBurnPair }

// SwapPairEvent is a UniswapV2 pair swap.
type SwapPairEvent struct {
	EventMeta
	Src  string
	Dst  string
	In0  *big.Int
	In1  *big.Int
	Out0 *big.Int
	Out1 *big.Int
}

func (SwapPairEvent) EventName() string { return EventNameSwapPair }

// PairCreatedEvent is the creation of a pair contract by a UniswapV2 factory.
type PairCreatedEvent struct {
	EventMeta
	PairAddress string
	Token0      string
	Token1      string
}

func (PairCreatedEvent) EventName() string { return EventNamePairCreated }
