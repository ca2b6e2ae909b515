package main

import (
	"context"
	"fmt"

	"example.com/timereport/internal/config"
	"example.com/timereport/internal/domain"
	"example.com/timereport/internal/logging"
	"example.com/timereport/internal/persistence/memory"
	"example.com/timereport/internal/persistence/mongo"
	"example.com/timereport/internal/report"
)

// dataSource bundles the person iteration and the grouped-sum query of one backing store.
type dataSource interface {
	report.PersonSource
	domain.CategoryQuery
}

// openSource picks the fixture store when one is configured, MongoDB otherwise.
// The returned close function is never nil.
func openSource(ctx context.Context, cfg config.Config, logger *logging.Logger) (dataSource, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	if cfg.FixturePath != "" {
		store, err := memory.LoadFixture(cfg.FixturePath)
		if err != nil {
			return nil, noop, err
		}
		logger.Info("using fixture store", "path", cfg.FixturePath)
		return store, noop, nil
	}

	client, store, err := mongo.Connect(ctx, mongo.Config{
		URI:                  cfg.MongoURI,
		Database:             cfg.MongoDatabase,
		UsersCollection:      cfg.UsersCollection,
		ActivitiesCollection: cfg.ActivitiesCollection,
		ConnectTimeout:       cfg.MongoConnectTimeout,
	})
	if err != nil {
		return nil, noop, fmt.Errorf("connect mongo: %w", err)
	}
	logger.Info("connected to mongo", "database", cfg.MongoDatabase)
	return store, client.Disconnect, nil
}

func newPipeline(cfg config.Config, source dataSource, logger *logging.Logger) *report.Pipeline {
	return report.NewPipeline(source, domain.NewAggregator(source),
		report.WithLogger(logger),
		report.WithWorkers(cfg.Workers),
		report.WithSkipFailures(cfg.FailurePolicy == config.FailurePolicySkip),
		report.WithIncludeAbsent(cfg.IncludeAbsent),
	)
}
