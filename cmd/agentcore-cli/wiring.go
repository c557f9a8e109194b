package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/gobii-run/agentcore/archive"
	archivemongo "github.com/gobii-run/agentcore/archive/mongo"
	archivemongoclient "github.com/gobii-run/agentcore/archive/mongo/clients/mongo"
	"github.com/gobii-run/agentcore/config"
	"github.com/gobii-run/agentcore/store/postgres"
)

// openPool migrates and connects the Postgres pool every command needs.
// Each command closes the pool itself once its work is done; a longer-lived
// process (the queue worker, not built by this CLI) would instead share one
// pool for its whole lifetime.
func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := postgres.Migrate(cfg.DatabaseURL); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	pool, err := postgres.NewPool(ctx, postgres.Config{DSN: cfg.DatabaseURL})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

// openArchiveStore connects Mongo and wraps it as the archive.Store
// prune_prompt_archives operates on (spec §4.4 "Archival" persists prompt
// bodies in the document store, not the relational one).
func openArchiveStore(ctx context.Context, cfg *config.Config) (archive.Store, func(context.Context) error, error) {
	client, err := mongodriver.Connect(options.Client().ApplyURI(cfg.MongoURL))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}

	mongoClient, err := archivemongoclient.New(archivemongoclient.Options{Client: client, Database: "agentcore"})
	if err != nil {
		return nil, nil, fmt.Errorf("build archive mongo client: %w", err)
	}
	store, err := archivemongo.NewStore(archivemongo.Options{Client: mongoClient})
	if err != nil {
		return nil, nil, fmt.Errorf("build archive store: %w", err)
	}
	return store, client.Disconnect, nil
}
