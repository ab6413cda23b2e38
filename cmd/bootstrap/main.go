package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"meeting-minutes-api/internal/config"
	"meeting-minutes-api/internal/infrastructure/persistence/postgres"
	"meeting-minutes-api/internal/wire"
	"meeting-minutes-api/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	fmt.Println("Starting schema bootstrap...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	layer, cleanup, err := wire.InitializeBootstrap(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize backends: %v", err)
	}
	defer cleanup()

	if layer.Postgres != nil {
		fmt.Printf("Creating table %q and function %q (dimension %d)...\n",
			cfg.Store.Table, cfg.Vector.Function, cfg.Embedding.Dimension)
		err := layer.Postgres.Bootstrap(ctx, postgres.SchemaOptions{
			Table:     cfg.Store.Table,
			Function:  cfg.Vector.Function,
			Dimension: cfg.Embedding.Dimension,
		})
		if err != nil {
			log.Fatalf("failed to bootstrap postgres: %v", err)
		}
	} else {
		fmt.Printf("Store backend %q manages its own schema, skipping.\n", cfg.Store.Backend)
	}

	if layer.Index != nil {
		fmt.Println("Ensuring milvus collection...")
		if err := layer.Index.EnsureCollection(ctx); err != nil {
			log.Fatalf("failed to ensure milvus collection: %v", err)
		}
	}

	fmt.Println("Bootstrap completed successfully.")
}
