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

// Package explorer resolves the block range a producer run should walk.
package explorer

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/tokenlytics/evm-data-collector/config"
	"github.com/tokenlytics/evm-data-collector/log"
	"github.com/tokenlytics/evm-data-collector/models"
)

// Store is the persisted-progress view the resolver needs.
type Store interface {
	GetLatestBlockNumber() (uint64, bool, error)
	GetBlockTransactionHashes(blockNumber uint64) ([]string, error)
}

// NodeReader fetches block data from the chain.
type NodeReader interface {
	GetBlockData(ctx context.Context, blockNumber uint64) (*models.BlockData, error)
}

// Bounds is the resolved exploration range. A nil EndBlock means the walk is
// unbounded and ends when the node has no further blocks.
type Bounds struct {
	StartBlock uint64
	EndBlock   *uint64
}

// Resolver decides where a producer run starts and stops.
type Resolver struct {
	store  Store
	node   NodeReader
	logger *zap.SugaredLogger
}

// NewResolver builds a bounds resolver over the database and the node.
func NewResolver(store Store, node NodeReader) *Resolver {
	return &Resolver{
		store:  store,
		node:   node,
		logger: log.NewModuleLogger("explorer"),
	}
}

// GetExplorationBounds resolves the block range for this run. An explicit
// start block in the configuration wins; otherwise the run resumes from the
// latest persisted block, repeating it when its transaction set in the
// database does not match the chain's; with no persisted progress the run
// starts at genesis.
func (r *Resolver) GetExplorationBounds(ctx context.Context, cfg *config.DataCollectionConfig) (Bounds, error) {
	bounds := Bounds{EndBlock: cfg.EndBlock}

	if cfg.StartBlock != nil {
		bounds.StartBlock = *cfg.StartBlock
		r.logger.Infow("using configured start block", "startBlock", bounds.StartBlock)
		return bounds, nil
	}

	latest, ok, err := r.store.GetLatestBlockNumber()
	if err != nil {
		return Bounds{}, errors.Wrap(err, "reading latest persisted block")
	}
	if !ok {
		r.logger.Infow("no persisted progress, starting from genesis")
		return bounds, nil
	}

	complete, err := r.blockFullyPersisted(ctx, latest)
	if err != nil {
		return Bounds{}, err
	}
	if complete {
		bounds.StartBlock = latest + 1
	} else {
		bounds.StartBlock = latest
	}
	r.logger.Infow("resuming from persisted progress",
		"latestPersisted", latest, "fullyPersisted", complete, "startBlock", bounds.StartBlock)
	return bounds, nil
}

// blockFullyPersisted compares the persisted transaction hashes of a block
// against the chain's.
func (r *Resolver) blockFullyPersisted(ctx context.Context, blockNumber uint64) (bool, error) {
	persisted, err := r.store.GetBlockTransactionHashes(blockNumber)
	if err != nil {
		return false, errors.Wrapf(err, "reading persisted transactions of block %d", blockNumber)
	}
	block, err := r.node.GetBlockData(ctx, blockNumber)
	if err != nil {
		return false, errors.Wrapf(err, "fetching block %d", blockNumber)
	}
	return sameHashSet(persisted, block.Transactions), nil
}

func sameHashSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
