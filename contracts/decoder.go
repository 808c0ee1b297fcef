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
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/tokenlytics/evm-data-collector/models"
)

// deadAddresses are the mint/burn sentinels: a fungible transfer from one is
// a mint, a transfer to one is a burn.
var deadAddresses = map[string]bool{
	"0x0000000000000000000000000000000000000000": true,
	"0x000000000000000000000000000000000000dead": true,
}

// Decoder extracts zero or more typed events from the receipt logs matching
// the handle's ABI. Malformed or non-matching logs are discarded, never an
// error.
type Decoder func(h *Handle, receipt *models.TransactionReceiptData) []models.ContractEvent

// NewDecoderTable builds the category-to-decoders table used by the
// transaction processors.
func NewDecoderTable() map[models.ContractCategory][]Decoder {
	return map[models.ContractCategory][]Decoder{
		models.CategoryERC20: {
			decodeFungibleTransfers,
			decodeIssues,
			decodeRedeems,
		},
		models.CategoryERC721: {
			decodeNonFungibleTransfers,
		},
		models.CategoryUniSwapV2Factory: {
			decodePairCreated,
		},
		models.CategoryUniSwapV2Pair: {
			decodePairMints,
			decodePairBurns,
			decodePairSwaps,
		},
	}
}

// DecodeEvents runs every decoder registered for the category.
func DecodeEvents(table map[models.ContractCategory][]Decoder, category models.ContractCategory, h *Handle, receipt *models.TransactionReceiptData) []models.ContractEvent {
	var events []models.ContractEvent
	for _, decode := range table[category] {
		events = append(events, decode(h, receipt)...)
	}
	return events
}

// unpackLog decodes one receipt log against a named ABI event. The indexed
// arguments come from the topics, the rest from the data payload. Any
// mismatch (unknown event, wrong topic count, undecodable payload) discards
// the log.
func unpackLog(contractAbi *abi.ABI, name string, lg *models.TransactionLog) (map[string]interface{}, bool) {
	event, ok := contractAbi.Events[name]
	if !ok || len(lg.Topics) == 0 {
		return nil, false
	}
	if common.HexToHash(lg.Topics[0]) != event.ID {
		return nil, false
	}

	indexed := make(abi.Arguments, 0, len(event.Inputs))
	for _, arg := range event.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if len(lg.Topics)-1 != len(indexed) {
		return nil, false
	}

	args := make(map[string]interface{})
	topics := make([]common.Hash, 0, len(lg.Topics)-1)
	for _, t := range lg.Topics[1:] {
		topics = append(topics, common.HexToHash(t))
	}
	if err := abi.ParseTopicsIntoMap(args, indexed, topics); err != nil {
		return nil, false
	}

	var data []byte
	if lg.Data != "" {
		decoded, err := hexutil.Decode(lg.Data)
		if err != nil {
			return nil, false
		}
		data = decoded
	}
	if err := contractAbi.UnpackIntoMap(args, name, data); err != nil {
		return nil, false
	}
	return args, true
}

func addrArg(args map[string]interface{}, key string) (string, bool) {
	addr, ok := args[key].(common.Address)
	if !ok {
		return "", false
	}
	return strings.ToLower(addr.Hex()), true
}

func bigArg(args map[string]interface{}, key string) (*big.Int, bool) {
	value, ok := args[key].(*big.Int)
	return value, ok
}

func meta(lg *models.TransactionLog) models.EventMeta {
	return models.EventMeta{Address: strings.ToLower(lg.Address), LogIndex: lg.LogIndex}
}

// decodeFungibleTransfers turns ERC20 Transfer logs into transfer events,
// plus a mint or burn when one end is a dead address. A transfer between two
// dead addresses yields neither mint nor burn.
func decodeFungibleTransfers(h *Handle, receipt *models.TransactionReceiptData) []models.ContractEvent {
	var events []models.ContractEvent
	for _, lg := range receipt.Logs {
		args, ok := unpackLog(h.ABI(), "Transfer", lg)
		if !ok {
			continue
		}
		src, okSrc := addrArg(args, "from")
		dst, okDst := addrArg(args, "to")
		value, okVal := bigArg(args, "value")
		if !okSrc || !okDst || !okVal {
			continue
		}
		m := meta(lg)
		switch {
		case deadAddresses[src] && deadAddresses[dst]:
		case deadAddresses[dst]:
			events = append(events, models.BurnFungibleEvent{EventMeta: m, Account: src, Value: value})
		case deadAddresses[src]:
			events = append(events, models.MintFungibleEvent{EventMeta: m, Account: dst, Value: value})
		}
		events = append(events, models.TransferFungibleEvent{EventMeta: m, Src: src, Dst: dst, Value: value})
	}
	return events
}

// decodeIssues maps USDT-style Issue(amount) logs to mints.
func decodeIssues(h *Handle, receipt *models.TransactionReceiptData) []models.ContractEvent {
	var events []models.ContractEvent
	for _, lg := range receipt.Logs {
		args, ok := unpackLog(h.ABI(), "Issue", lg)
		if !ok {
			continue
		}
		amount, okAmount := bigArg(args, "amount")
		if !okAmount {
			continue
		}
		events = append(events, models.MintFungibleEvent{EventMeta: meta(lg), Value: amount})
	}
	return events
}

// decodeRedeems maps USDT-style Redeem(amount) logs to burns.
func decodeRedeems(h *Handle, receipt *models.TransactionReceiptData) []models.ContractEvent {
	var events []models.ContractEvent
	for _, lg := range receipt.Logs {
		args, ok := unpackLog(h.ABI(), "Redeem", lg)
		if !ok {
			continue
		}
		amount, okAmount := bigArg(args, "amount")
		if !okAmount {
			continue
		}
		events = append(events, models.BurnFungibleEvent{EventMeta: meta(lg), Value: amount})
	}
	return events
}

// decodeNonFungibleTransfers is the ERC721 analogue of
// decodeFungibleTransfers, carrying a token id instead of a value.
func decodeNonFungibleTransfers(h *Handle, receipt *models.TransactionReceiptData) []models.ContractEvent {
	var events []models.ContractEvent
	for _, lg := range receipt.Logs {
		args, ok := unpackLog(h.ABI(), "Transfer", lg)
		if !ok {
			continue
		}
		src, okSrc := addrArg(args, "from")
		dst, okDst := addrArg(args, "to")
		tokenID, okID := bigArg(args, "tokenId")
		if !okSrc || !okDst || !okID {
			continue
		}
		m := meta(lg)
		switch {
		case deadAddresses[src] && deadAddresses[dst]:
		case deadAddresses[dst]:
			events = append(events, models.BurnNonFungibleEvent{EventMeta: m, TokenID: tokenID})
		case deadAddresses[src]:
			events = append(events, models.MintNonFungibleEvent{EventMeta: m, TokenID: tokenID})
		}
		events = append(events, models.TransferNonFungibleEvent{EventMeta: m, Src: src, Dst: dst, TokenID: tokenID})
	}
	return events
}

// decodePairCreated extracts UniswapV2 factory PairCreated logs.
func decodePairCreated(h *Handle, receipt *models.TransactionReceiptData) []models.ContractEvent {
	var events []models.ContractEvent
	for _, lg := range receipt.Logs {
		args, ok := unpackLog(h.ABI(), "PairCreated", lg)
		if !ok {
			continue
		}
		token0, ok0 := addrArg(args, "token0")
		token1, ok1 := addrArg(args, "token1")
		pair, okPair := addrArg(args, "pair")
		if !ok0 || !ok1 || !okPair {
			continue
		}
		events = append(events, models.PairCreatedEvent{
			EventMeta:   meta(lg),
			PairAddress: pair,
			Token0:      token0,
			Token1:      token1,
		})
	}
	return events
}

// decodePairMints extracts UniswapV2 pair liquidity deposits.
func decodePairMints(h *Handle, receipt *models.TransactionReceiptData) []models.ContractEvent {
	var events []models.ContractEvent
	for _, lg := range receipt.Logs {
		args, ok := unpackLog(h.ABI(), "Mint", lg)
		if !ok {
			continue
		}
		sender, okSender := addrArg(args, "sender")
		amount0, ok0 := bigArg(args, "amount0")
		amount1, ok1 := bigArg(args, "amount1")
		if !okSender || !ok0 || !ok1 {
			continue
		}
		events = append(events, models.MintPairEvent{
			EventMeta: meta(lg),
			Sender:    sender,
			Amount0:   amount0,
			Amount1:   amount1,
		})
	}
	return events
}

// decodePairBurns extracts UniswapV2 pair liquidity withdrawals.
func decodePairBurns(h *Handle, receipt *models.TransactionReceiptData) []models.ContractEvent {
	var events []models.ContractEvent
	for _, lg := range receipt.Logs {
		args, ok := unpackLog(h.ABI(), "Burn", lg)
		if !ok {
			continue
		}
		sender, okSender := addrArg(args, "sender")
		to, okTo := addrArg(args, "to")
		amount0, ok0 := bigArg(args, "amount0")
		amount1, ok1 := bigArg(args, "amount1")
		if !okSender || !okTo || !ok0 || !ok1 {
			continue
		}
		events = append(events, models.BurnPairEvent{
			EventMeta: meta(lg),
			Src:       sender,
			Dst:       to,
			Amount0:   amount0,
			Amount1:   amount1,
		})
	}
	return events
}

// decodePairSwaps extracts UniswapV2 pair swaps.
func decodePairSwaps(h *Handle, receipt *models.TransactionReceiptData) []models.ContractEvent {
	var events []models.ContractEvent
	for _, lg := range receipt.Logs {
		args, ok := unpackLog(h.ABI(), "Swap", lg)
		if !ok {
			continue
		}
		sender, okSender := addrArg(args, "sender")
		to, okTo := addrArg(args, "to")
		in0, okIn0 := bigArg(args, "amount0In")
		in1, okIn1 := bigArg(args, "amount1In")
		out0, okOut0 := bigArg(args, "amount0Out")
		out1, okOut1 := bigArg(args, "amount1Out")
		if !okSender || !okTo || !okIn0 || !okIn1 || !okOut0 || !okOut1 {
			continue
		}
		events = append(events, models.SwapPairEvent{
			EventMeta: meta(lg),
			Src:       sender,
			Dst:       to,
			In0:       in0,
			In1:       in1,
			Out0:      out0,
			Out1:      out1,
		})
	}
	return events
}
