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
	"strings"

	"github.com/pkg/errors"
)

// MessageSeparator joins the collection mode and the transaction hash in a
// bus message.
const MessageSeparator = ":"

const txHashHexLen = 66 // 0x + 64 hex chars

// EncodeMessage builds the "<mode>:<tx_hash>" bus payload.
func EncodeMessage(mode CollectionMode, txHash string) string {
	return string(mode) + MessageSeparator + txHash
}

// DecodeMessage splits a bus payload into its collection mode and transaction
// hash. Any other shape is a decoding error.
func DecodeMessage(msg string) (CollectionMode, string, error) {
	modeStr, txHash, ok := strings.Cut(msg, MessageSeparator)
	if !ok {
		return "", "", errors.Errorf("malformed bus message %q", msg)
	}
	mode, err := ParseCollectionMode(modeStr)
	if err != nil {
		return "", "", err
	}
	if !isTxHash(txHash) {
		return "", "", errors.Errorf("malformed transaction hash %q", txHash)
	}
	return mode, txHash, nil
}

func isTxHash(s string) bool {
	if len(s) != txHashHexLen || !strings.HasPrefix(s, "0x") {
		return false
	}
	for _, c := range s[2:] {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
