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

// Package producer walks the chain block by block and enqueues transaction
// hashes on the Kafka topic for the consumers.
package producer

import (
	"context"
	"math/big"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tokenlytics/evm-data-collector/config"
	"github.com/tokenlytics/evm-data-collector/explorer"
	"github.com/tokenlytics/evm-data-collector/log"
	"github.com/tokenlytics/evm-data-collector/models"
)

// ErrNotImplemented marks collection modes the producer cannot serve yet.
var ErrNotImplemented = errors.New("collection mode is not implemented")

// progressInterval is the number of blocks between progress reports.
const progressInterval = 1000

// ewmaAlpha weights recent block-processing times when estimating the
// remaining walk duration.
const ewmaAlpha = 0.2

// ChainSource is the node view the producer needs.
type ChainSource interface {
	GetBlockData(ctx context.Context, blockNumber uint64) (*models.BlockData, error)
	GetLatestBlockNumber(ctx context.Context) (uint64, error)
	GetBlockReward(ctx context.Context, blockNumber uint64) (*big.Int, error)
}

// BlockStore persists the walked blocks.
type BlockStore interface {
	InsertBlock(block *models.BlockData, blockReward *big.Int) error
}

// Bus enqueues encoded transaction messages.
type Bus interface {
	SendBatch(msgs []string) error
}

// Backlog reports the number of queued, unconsumed messages.
type Backlog interface {
	Total() (int64, error)
}

// IsBlockNotFound reports whether the walk ran past the chain head.
type IsBlockNotFound func(err error) bool

// DataProducer walks the resolved block range, persists each block and
// enqueues its transaction hashes tagged with the collection mode.
type DataProducer struct {
	cfg      *config.DataCollectionConfig
	node     ChainSource
	store    BlockStore
	bus      Bus
	backlog  Backlog
	resolver *explorer.Resolver
	notFound IsBlockNotFound
	logger   *zap.SugaredLogger
}

// NewDataProducer wires the producer against the node, the database, the bus
// and the backlog counter.
func NewDataProducer(cfg *config.DataCollectionConfig, node ChainSource, store BlockStore, bus Bus, backlog Backlog, resolver *explorer.Resolver, notFound IsBlockNotFound) *DataProducer {
	return &DataProducer{
		cfg:      cfg,
		node:     node,
		store:    store,
		bus:      bus,
		backlog:  backlog,
		resolver: resolver,
		notFound: notFound,
		logger:   log.NewModuleLogger("producer"),
	}
}

// Run resolves the exploration bounds and walks the range. Running past the
// chain head on an unbounded walk is normal termination.
func (p *DataProducer) Run(ctx context.Context) error {
	switch p.cfg.Mode {
	case models.ModeFull, models.ModePartial:
	case models.ModeLogFilter, models.ModeGetLogs:
		return errors.Wrapf(ErrNotImplemented, "mode %s", p.cfg.Mode)
	default:
		return errors.Errorf("unknown collection mode %q", p.cfg.Mode)
	}

	bounds, err := p.resolver.GetExplorationBounds(ctx, p.cfg)
	if err != nil {
		return err
	}
	p.logger.Infow("starting block walk",
		"mode", p.cfg.Mode, "contracts", contractSymbols(p.cfg),
		"startBlock", bounds.StartBlock, "endBlock", bounds.EndBlock)

	walked, enqueued := 0, 0
	blockTimeEWMA := 0.0
	start := time.Now()
	lastReport := start

	for number := bounds.StartBlock; ; number++ {
		if bounds.EndBlock != nil && number > *bounds.EndBlock {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		blockStart := time.Now()
		sent, err := p.produceBlock(ctx, number)
		if err != nil {
			// The chain has no block at this number; the walk is done
			// whether or not an end block was configured.
			if p.notFound(err) {
				p.logger.Infow("reached the chain head", "blockNumber", number)
				break
			}
			return errors.Wrapf(err, "producing block %d", number)
		}

		walked++
		enqueued += sent
		blockTimeEWMA = ewma(blockTimeEWMA, time.Since(blockStart).Seconds(), walked)

		if walked%progressInterval == 0 {
			p.reportProgress(ctx, number, bounds.EndBlock, walked, enqueued, blockTimeEWMA, lastReport)
			lastReport = time.Now()
		}
	}

	p.logger.Infow("block walk finished",
		"blocks", walked, "transactions", enqueued, "elapsed", time.Since(start))
	return nil
}

// produceBlock persists one block and enqueues its transaction hashes,
// returning how many messages were sent.
func (p *DataProducer) produceBlock(ctx context.Context, number uint64) (int, error) {
	block, err := p.node.GetBlockData(ctx, number)
	if err != nil {
		return 0, err
	}

	var reward *big.Int
	if p.cfg.Mode == models.ModeFull {
		if reward, err = p.node.GetBlockReward(ctx, number); err != nil {
			return 0, err
		}
	}
	if err := p.store.InsertBlock(block, reward); err != nil {
		return 0, err
	}

	if len(block.Transactions) == 0 {
		return 0, nil
	}
	msgs := make([]string, len(block.Transactions))
	for i, hash := range block.Transactions {
		msgs[i] = models.EncodeMessage(p.cfg.Mode, hash)
	}
	if err := p.bus.SendBatch(msgs); err != nil {
		return 0, err
	}
	return len(msgs), nil
}

func (p *DataProducer) reportProgress(ctx context.Context, current uint64, end *uint64, walked, enqueued int, blockTime float64, since time.Time) {
	fields := []interface{}{
		"blockNumber", current,
		"blocksWalked", walked,
		"transactionsEnqueued", enqueued,
		"blocksPerSecond", rate(progressInterval, time.Since(since)),
	}
	if backlog, err := p.backlog.Total(); err == nil {
		fields = append(fields, "backlog", backlog)
	}

	head := uint64(0)
	if end != nil {
		head = *end
	} else if latest, err := p.node.GetLatestBlockNumber(ctx); err == nil {
		head = latest
	}
	if head > current {
		remaining := time.Duration(float64(head-current) * blockTime * float64(time.Second))
		fields = append(fields, "blocksRemaining", head-current, "eta", remaining.Round(time.Second))
	}
	p.logger.Infow("block walk progress", fields...)
}

// StartProducingData runs one producing task per data collection entry and
// gathers their exits; the first failure cancels the rest.
func StartProducingData(ctx context.Context, producers []*DataProducer) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range producers {
		p := p
		g.Go(func() error { return p.Run(gctx) })
	}
	return g.Wait()
}

func contractSymbols(cfg *config.DataCollectionConfig) []string {
	symbols := make([]string, 0, len(cfg.Contracts))
	for _, contract := range cfg.Contracts {
		symbols = append(symbols, contract.Symbol)
	}
	return symbols
}

// ewma folds one observation into the running average; the first observation
// seeds it.
func ewma(current, observation float64, count int) float64 {
	if count == 1 {
		return observation
	}
	return ewmaAlpha*observation + (1-ewmaAlpha)*current
}

func rate(n int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(n) / elapsed.Seconds()
}
