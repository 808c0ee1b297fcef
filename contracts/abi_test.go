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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenlytics/evm-data-collector/models"
)

func TestParseContractABIMissingKey(t *testing.T) {
	_, err := ParseContractABI([]byte(`{"erc20": []}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing key")
}

func TestParseContractABIInvalidJSON(t *testing.T) {
	_, err := ParseContractABI([]byte(`{`))
	assert.Error(t, err)
}

func TestForCategory(t *testing.T) {
	abis := loadTestABI(t)

	for _, category := range []models.ContractCategory{
		models.CategoryERC20, models.CategoryERC721, models.CategoryERC1155,
		models.CategoryUniSwapV2Factory, models.CategoryUniSwapV2Pair,
	} {
		_, ok := abis.ForCategory(category)
		assert.True(t, ok, category)
	}
	_, ok := abis.ForCategory(models.CategoryUnknown)
	assert.False(t, ok)
}
