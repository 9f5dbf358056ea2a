package main

import (
	"context"

	"inventory-service/config"
	"inventory-service/internal/broker"
	"inventory-service/internal/importer"
	"inventory-service/internal/service"
	"inventory-service/internal/store"
	"inventory-service/internal/util"
)

var publishEvents bool

// app holds what a single command invocation needs
type app struct {
	cfg      *config.Config
	db       *store.Store
	producer *broker.Producer
	ledger   *service.LedgerService
	products *service.ProductService
}

// boot loads config, opens the database and builds the services
func boot(ctx context.Context) (*app, error) {
	cfg := config.Load()

	level := cfg.Server.LogLevel
	if level == "" {
		level = "warn"
	}
	if err := util.InitLogger(cfg.Server.Env, level); err != nil {
		return nil, err
	}

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	a := &app{cfg: cfg, db: db}

	var publisher service.EventPublisher
	if publishEvents {
		a.producer = broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicInventory)
		publisher = broker.NewEventPublisher(a.producer)
	}

	source := importer.NewDummyJSONClient(cfg.Business.ImportURL, cfg.Business.ImportTimeout)
	a.ledger = service.NewLedgerService(db, nil, publisher, cfg.Business.IdempotencyTTL)
	a.products = service.NewProductService(db, source, publisher)
	return a, nil
}

func (a *app) Close() {
	if a.producer != nil {
		a.producer.Close()
	}
	a.db.Close()
	util.SyncLogger()
}
