package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/solatis/formkeeper/internal/core/config"
	"github.com/solatis/formkeeper/internal/core/db"
	"github.com/solatis/formkeeper/internal/core/store"
)

// openDatabase ensures the data directory exists and connects.
func openDatabase(ctx context.Context, cfg *config.ServiceConfig) (*sqlx.DB, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, nil
}

// openRepository connects to the configured database and refuses to run
// against a schema with pending migrations.
func openRepository(ctx context.Context, cfg *config.ServiceConfig) (store.Repository, func(), error) {
	database, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	statuses, err := db.MigrateStatus(ctx, database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to check migrations: %w", err)
	}
	var pending []string
	for _, s := range statuses {
		if !s.Applied {
			pending = append(pending, s.ID)
		}
	}
	if len(pending) > 0 {
		database.Close()
		return nil, nil, fmt.Errorf("migrations not applied (%s) - run 'formkeeper migrate up' first", strings.Join(pending, ", "))
	}

	queries, err := db.LoadQueries(database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to load queries: %w", err)
	}
	return store.NewSQL(database, queries), func() { database.Close() }, nil
}
