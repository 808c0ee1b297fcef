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
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenlytics/evm-data-collector/models"
)

type fakeTxSource struct {
	tx      *models.TransactionData
	receipt *models.TransactionReceiptData
}

func (f *fakeTxSource) GetTransactionData(ctx context.Context, txHash string) (*models.TransactionData, error) {
	return f.tx, nil
}

func (f *fakeTxSource) GetTransactionReceiptData(ctx context.Context, txHash string) (*models.TransactionReceiptData, error) {
	return f.receipt, nil
}

func (f *fakeTxSource) GetInternalTransactions(ctx context.Context, txHash string) ([]*models.InternalTransactionData, error) {
	return nil, nil
}

type fakeMessageSource struct {
	msgs    []string
	exitErr error
}

func (f *fakeMessageSource) StartConsuming(ctx context.Context, callback func(msg string) error) error {
	for _, msg := range f.msgs {
		if err := callback(msg); err != nil {
			return err
		}
	}
	return f.exitErr
}

type recordingProcessor struct {
	calls int
	saved bool
	err   error
}

func (p *recordingProcessor) ProcessTransaction(ctx context.Context, tx *models.TransactionData, receipt *models.TransactionReceiptData) (bool, error) {
	p.calls++
	return p.saved, p.err
}

func newTestConsumer(source MessageSource, processors map[models.CollectionMode]Processor) *DataConsumer {
	node := &fakeTxSource{
		tx:      &models.TransactionData{Hash: testTxHash},
		receipt: &models.TransactionReceiptData{},
	}
	return NewDataConsumer(source, node, processors)
}

func TestDataConsumerCountsConsumedAndProcessed(t *testing.T) {
	full := &recordingProcessor{saved: true}
	partial := &recordingProcessor{saved: false}
	source := &fakeMessageSource{msgs: []string{
		"full:" + testTxHash,
		"partial:" + testTxHash,
		"full:" + testTxHash,
	}}

	c := newTestConsumer(source, map[models.CollectionMode]Processor{
		models.ModeFull:    full,
		models.ModePartial: partial,
	})
	require.NoError(t, c.Start(context.Background()))

	assert.Equal(t, 3, c.Consumed())
	assert.Equal(t, 2, c.Processed())
	assert.Equal(t, 2, full.calls)
	assert.Equal(t, 1, partial.calls)
}

func TestDataConsumerDefaultsToFullMode(t *testing.T) {
	full := &recordingProcessor{saved: true}
	source := &fakeMessageSource{msgs: []string{"get_logs:" + testTxHash}}

	c := newTestConsumer(source, map[models.CollectionMode]Processor{
		models.ModeFull: full,
	})
	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, 1, full.calls)
}

func TestDataConsumerDropsMalformedMessageAndContinues(t *testing.T) {
	full := &recordingProcessor{saved: true}
	source := &fakeMessageSource{msgs: []string{
		"garbage",
		"turbo:" + testTxHash,
		"full:" + testTxHash,
	}}

	c := newTestConsumer(source, map[models.CollectionMode]Processor{
		models.ModeFull: full,
	})
	require.NoError(t, c.Start(context.Background()))

	// The undecodable payloads are dropped; the valid one is processed.
	assert.Equal(t, 1, c.Consumed())
	assert.Equal(t, 1, c.Processed())
	assert.Equal(t, 1, full.calls)
}

func TestDataConsumerProcessorFailure(t *testing.T) {
	boom := errors.New("store unavailable")
	source := &fakeMessageSource{msgs: []string{"full:" + testTxHash}}

	c := newTestConsumer(source, map[models.CollectionMode]Processor{
		models.ModeFull: &recordingProcessor{err: boom},
	})
	err := c.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, boom, errors.Cause(err))
	assert.Equal(t, 0, c.Processed())
}
