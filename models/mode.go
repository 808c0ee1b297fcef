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

import "github.com/pkg/errors"

// CollectionMode selects the producing and consuming policy of a data
// collection task.
type CollectionMode string

const (
	// ModeFull walks every block and persists every transaction in full.
	ModeFull CollectionMode = "full"
	// ModePartial walks every block but persists only transactions related
	// to the configured contracts.
	ModePartial CollectionMode = "partial"
	// ModeLogFilter produces transactions matching configured log topics.
	ModeLogFilter CollectionMode = "log_filter"
	// ModeGetLogs produces transactions via eth_getLogs style filtering.
	ModeGetLogs CollectionMode = "get_logs"
)

// ParseCollectionMode converts the wire representation of a mode.
func ParseCollectionMode(s string) (CollectionMode, error) {
	switch CollectionMode(s) {
	case ModeFull, ModePartial, ModeLogFilter, ModeGetLogs:
		return CollectionMode(s), nil
	}
	return "", errors.Errorf("unknown data collection mode %q", s)
}

func (m CollectionMode) String() string { return string(m) }
