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

package explorer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenlytics/evm-data-collector/config"
	"github.com/tokenlytics/evm-data-collector/models"
)

type fakeStore struct {
	latest   uint64
	hasRows  bool
	txHashes []string
}

func (f *fakeStore) GetLatestBlockNumber() (uint64, bool, error) {
	return f.latest, f.hasRows, nil
}

func (f *fakeStore) GetBlockTransactionHashes(blockNumber uint64) ([]string, error) {
	return f.txHashes, nil
}

type fakeNode struct {
	txHashes []string
}

func (f *fakeNode) GetBlockData(ctx context.Context, blockNumber uint64) (*models.BlockData, error) {
	return &models.BlockData{Number: blockNumber, Transactions: f.txHashes}, nil
}

func TestBoundsFromConfiguredStartBlock(t *testing.T) {
	start, end := uint64(500), uint64(900)
	r := NewResolver(&fakeStore{latest: 100, hasRows: true}, &fakeNode{})

	bounds, err := r.GetExplorationBounds(context.Background(), &config.DataCollectionConfig{
		Mode:       models.ModeFull,
		StartBlock: &start,
		EndBlock:   &end,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 500, bounds.StartBlock)
	require.NotNil(t, bounds.EndBlock)
	assert.EqualValues(t, 900, *bounds.EndBlock)
}

func TestBoundsFromGenesisWithoutProgress(t *testing.T) {
	r := NewResolver(&fakeStore{hasRows: false}, &fakeNode{})

	bounds, err := r.GetExplorationBounds(context.Background(), &config.DataCollectionConfig{Mode: models.ModeFull})
	require.NoError(t, err)
	assert.EqualValues(t, 0, bounds.StartBlock)
	assert.Nil(t, bounds.EndBlock)
}

func TestBoundsResumeAfterFullyPersistedBlock(t *testing.T) {
	hashes := []string{"0x01", "0x02"}
	r := NewResolver(
		&fakeStore{latest: 120, hasRows: true, txHashes: []string{"0x02", "0x01"}},
		&fakeNode{txHashes: hashes},
	)

	bounds, err := r.GetExplorationBounds(context.Background(), &config.DataCollectionConfig{Mode: models.ModeFull})
	require.NoError(t, err)
	assert.EqualValues(t, 121, bounds.StartBlock)
}

func TestBoundsRepeatPartiallyPersistedBlock(t *testing.T) {
	r := NewResolver(
		&fakeStore{latest: 120, hasRows: true, txHashes: []string{"0x01"}},
		&fakeNode{txHashes: []string{"0x01", "0x02"}},
	)

	bounds, err := r.GetExplorationBounds(context.Background(), &config.DataCollectionConfig{Mode: models.ModeFull})
	require.NoError(t, err)
	assert.EqualValues(t, 120, bounds.StartBlock)
}
