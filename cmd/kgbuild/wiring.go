package main

import (
	"context"
	"fmt"

	"github.com/rohankatakam/kgbuilder/internal/config"
	"github.com/rohankatakam/kgbuilder/internal/embedding"
	"github.com/rohankatakam/kgbuilder/internal/graph"
	"github.com/rohankatakam/kgbuilder/internal/storage"
)

func loadRegistry(schemaFile string) (*graph.Registry, error) {
	if schemaFile == "" {
		return graph.DefaultRegistry(), nil
	}
	return graph.LoadRegistryYAML(schemaFile)
}

func openStore(c config.StorageConfig) (storage.Store, error) {
	switch c.Type {
	case "sqlite":
		store, err := storage.NewSQLiteStore(c.Path, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "postgres":
		store, err := storage.NewPostgresStore(c.DSN, c.Driver, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage type: %q", c.Type)
	}
}

func openBackend(ctx context.Context, c config.Neo4jConfig, snapshotLabel string) (*graph.Neo4jBackend, error) {
	backend, err := graph.NewNeo4jBackend(ctx, c.URI, c.User, c.Password, c.Database,
		graph.BatchConfigForSize(c.BatchSize), logger)
	if err != nil {
		return nil, err
	}
	return backend.WithTransactionConfig(exportTxConfig(c, snapshotLabel)), nil
}

func exportTxConfig(c config.Neo4jConfig, snapshotLabel string) graph.TransactionConfig {
	tc := graph.ExportTransactionConfig(snapshotLabel)
	if c.TxTimeout > 0 {
		tc = tc.WithTimeout(c.TxTimeout)
	}
	return tc
}

func openCache(ctx context.Context, c config.CacheConfig) (embedding.Cache, error) {
	switch c.Type {
	case "none", "":
		return nil, nil
	case "bolt":
		cache, err := embedding.OpenBoltCache(c.Path)
		if err != nil {
			return nil, err
		}
		return cache, nil
	case "redis":
		cache, err := embedding.NewRedisCache(ctx, c.RedisAddr, c.RedisPassword, c.RedisDB, "", c.TTL)
		if err != nil {
			return nil, err
		}
		return cache, nil
	default:
		return nil, fmt.Errorf("unknown cache type: %q", c.Type)
	}
}

// openEmbedding builds the embedding service; the returned cleanup closes
// the cache
func openEmbedding(ctx context.Context, c *config.Config) (*embedding.Service, func(), error) {
	embedder, err := embedding.NewEmbedder(ctx, embedding.ProviderConfig{
		Provider: embedding.Provider(c.Embedding.Provider),
		Model:    c.Embedding.Model,
		APIKey:   c.Embedding.APIKey,
		BaseURL:  c.Embedding.BaseURL,
		Dim:      c.Embedding.Dim,
	})
	if err != nil {
		return nil, nil, err
	}

	cache, err := openCache(ctx, c.Cache)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if cache != nil {
			cache.Close()
		}
	}

	svc, err := embedding.NewService(embedder, cache, embedding.Options{
		Dim:               c.Embedding.Dim,
		BatchSize:         c.Embedding.BatchSize,
		Concurrency:       c.Embedding.Concurrency,
		RequestsPerSecond: c.Embedding.RequestsPerSecond,
		UseDescription:    c.Embedding.UseDescription,
		ReuseCache:        c.Embedding.ReuseCache,
	}, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return svc, cleanup, nil
}
