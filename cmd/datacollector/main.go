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

// The datacollector command runs one worker of the collection pipeline:
// either the block-walking producer or a pool of transaction consumers.
package main

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli"
	"golang.org/x/sync/errgroup"

	"github.com/tokenlytics/evm-data-collector/config"
	"github.com/tokenlytics/evm-data-collector/consumer"
	"github.com/tokenlytics/evm-data-collector/contracts"
	"github.com/tokenlytics/evm-data-collector/counter"
	"github.com/tokenlytics/evm-data-collector/db"
	"github.com/tokenlytics/evm-data-collector/explorer"
	"github.com/tokenlytics/evm-data-collector/kafka"
	"github.com/tokenlytics/evm-data-collector/log"
	"github.com/tokenlytics/evm-data-collector/node"
	"github.com/tokenlytics/evm-data-collector/producer"
)

const (
	workerTypeProducer = "producer"
	workerTypeConsumer = "consumer"
)

var (
	cfgFlag = cli.StringFlag{
		Name:     "cfg",
		Usage:    "path to the JSON configuration file",
		Required: true,
	}
	abiFileFlag = cli.StringFlag{
		Name:  "abi-file",
		Usage: "path to the contract ABI file",
		Value: "etc/contract_abi.json",
	}
	workerTypeFlag = cli.StringFlag{
		Name:     "worker-type",
		Usage:    "worker to run: producer or consumer",
		Required: true,
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "datacollector"
	app.Usage = "collects EVM chain data through a Kafka pipeline into PostgreSQL"
	app.Flags = []cli.Flag{cfgFlag, abiFileFlag, workerTypeFlag}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		log.NewModuleLogger("main").Errorw("worker failed", "err", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String(cfgFlag.Name))
	if err != nil {
		return err
	}

	switch workerType := c.String(workerTypeFlag.Name); workerType {
	case workerTypeProducer:
		return runProducer(context.Background(), cfg)
	case workerTypeConsumer:
		return runConsumer(context.Background(), cfg, c.String(abiFileFlag.Name))
	default:
		return errors.Errorf("unknown worker type %q", workerType)
	}
}

func dialNode(cfg *config.Config) (*node.Client, error) {
	return node.Dial(cfg.NodeURL,
		time.Duration(cfg.Web3RequestsTimeout)*time.Second,
		cfg.Web3RequestsRetryLimit,
		time.Duration(cfg.Web3RequestsRetryDelay)*time.Second)
}

func runProducer(ctx context.Context, cfg *config.Config) error {
	nodeClient, err := dialNode(cfg)
	if err != nil {
		return err
	}
	defer nodeClient.Close()

	counterStore, err := counter.New(cfg.RedisURL, cfg.KafkaTopic)
	if err != nil {
		return err
	}
	defer counterStore.Close()

	dbManager, err := db.NewManager(cfg.DBDSN, cfg.KafkaTopic)
	if err != nil {
		return err
	}
	defer dbManager.Close()

	bus, err := kafka.NewProducerManager(cfg.Brokers(), cfg.KafkaTopic, counterStore)
	if err != nil {
		return err
	}
	defer bus.Close()

	resolver := explorer.NewResolver(dbManager, nodeClient)
	notFound := func(err error) bool { return errors.Is(err, node.ErrBlockNotFound) }

	producers := make([]*producer.DataProducer, 0, len(cfg.DataCollection))
	for _, dc := range cfg.DataCollection {
		producers = append(producers, producer.NewDataProducer(
			dc, nodeClient, dbManager, bus, counterStore, resolver, notFound))
	}
	return producer.StartProducingData(ctx, producers)
}

func runConsumer(ctx context.Context, cfg *config.Config, abiPath string) error {
	nodeClient, err := dialNode(cfg)
	if err != nil {
		return err
	}
	defer nodeClient.Close()

	counterStore, err := counter.New(cfg.RedisURL, cfg.KafkaTopic)
	if err != nil {
		return err
	}
	defer counterStore.Close()

	dbManager, err := db.NewManager(cfg.DBDSN, cfg.KafkaTopic)
	if err != nil {
		return err
	}
	defer dbManager.Close()

	abis, err := contracts.LoadContractABI(abiPath)
	if err != nil {
		return err
	}
	registry := contracts.NewRegistry(cfg.UniqueContracts(), abis)
	processors := consumer.NewProcessors(dbManager, nodeClient, nodeClient, registry)

	tasks := cfg.NumberOfConsumerTasks
	if tasks < 1 {
		tasks = 1
	}
	idleTimeout := time.Duration(cfg.KafkaEventRetrievalTimeout) * time.Second

	// Each task joins the consumer group as its own member; an idle topic
	// terminates the whole pool cleanly.
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < tasks; i++ {
		g.Go(func() error {
			source, err := kafka.NewConsumerManager(cfg.Brokers(), cfg.KafkaTopic, counterStore, idleTimeout)
			if err != nil {
				return err
			}
			defer source.Close()

			dataConsumer := consumer.NewDataConsumer(source, nodeClient, processors)
			if err := dataConsumer.Start(gctx); err != nil {
				if errors.Is(err, kafka.ErrPartitionsIdle) {
					return nil
				}
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
