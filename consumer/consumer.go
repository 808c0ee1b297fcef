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

package consumer

import (
	"context"

	"go.uber.org/zap"

	"github.com/tokenlytics/evm-data-collector/contracts"
	"github.com/tokenlytics/evm-data-collector/log"
	"github.com/tokenlytics/evm-data-collector/models"
)

// TxSource is the node view the consumer needs.
type TxSource interface {
	InternalTxSource
	GetTransactionData(ctx context.Context, txHash string) (*models.TransactionData, error)
	GetTransactionReceiptData(ctx context.Context, txHash string) (*models.TransactionReceiptData, error)
}

// MessageSource delivers bus messages to a callback until it fails or the
// source decides to stop.
type MessageSource interface {
	StartConsuming(ctx context.Context, callback func(msg string) error) error
}

// NewProcessors builds the mode-to-processor dispatch table.
func NewProcessors(store Store, node TxSource, caller contracts.Caller, registry *contracts.Registry) map[models.CollectionMode]Processor {
	base := baseProcessor{
		store:    store,
		itxs:     node,
		caller:   caller,
		registry: registry,
		decoders: contracts.NewDecoderTable(),
		logger:   log.NewModuleLogger("processor"),
	}
	return map[models.CollectionMode]Processor{
		models.ModeFull:      &FullProcessor{base},
		models.ModePartial:   &PartialProcessor{base},
		models.ModeLogFilter: &LogFilterProcessor{base},
	}
}

// DataConsumer processes bus messages: it decodes the mode tag, fetches the
// transaction and its receipt and dispatches to the mode's processor.
type DataConsumer struct {
	source     MessageSource
	node       TxSource
	processors map[models.CollectionMode]Processor
	logger     *zap.SugaredLogger

	consumed  int
	processed int
}

// NewDataConsumer wires one consumer over a message source and the processor
// table.
func NewDataConsumer(source MessageSource, node TxSource, processors map[models.CollectionMode]Processor) *DataConsumer {
	return &DataConsumer{
		source:     source,
		node:       node,
		processors: processors,
		logger:     log.NewModuleLogger("consumer"),
	}
}

// Consumed returns how many bus messages this consumer handled.
func (c *DataConsumer) Consumed() int { return c.consumed }

// Processed returns how many transactions were actually persisted.
func (c *DataConsumer) Processed() int { return c.processed }

// Start consumes until the source stops. A processing failure is logged with
// the in-flight transaction hash before it propagates.
func (c *DataConsumer) Start(ctx context.Context) error {
	err := c.source.StartConsuming(ctx, func(msg string) error {
		return c.handleMessage(ctx, msg)
	})
	c.logger.Infow("consumer finished",
		"consumed", c.consumed, "processed", c.processed, "err", err)
	return err
}

func (c *DataConsumer) handleMessage(ctx context.Context, msg string) error {
	mode, txHash, err := models.DecodeMessage(msg)
	if err != nil {
		// An undecodable payload is dropped so one bad message cannot
		// wedge the whole partition.
		c.logger.Warnw("dropping malformed bus message", "msg", msg, "err", err)
		return nil
	}
	c.consumed++

	processor, ok := c.processors[mode]
	if !ok {
		processor = c.processors[models.ModeFull]
	}

	tx, err := c.node.GetTransactionData(ctx, txHash)
	if err != nil {
		c.logger.Errorw("failed to fetch transaction", "txHash", txHash, "err", err)
		return err
	}
	receipt, err := c.node.GetTransactionReceiptData(ctx, txHash)
	if err != nil {
		c.logger.Errorw("failed to fetch receipt", "txHash", txHash, "err", err)
		return err
	}

	saved, err := processor.ProcessTransaction(ctx, tx, receipt)
	if err != nil {
		c.logger.Errorw("failed to process transaction",
			"txHash", txHash, "mode", mode, "err", err)
		return err
	}
	if saved {
		c.processed++
	}
	return nil
}
