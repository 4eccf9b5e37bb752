package app

import (
	"context"
	"fmt"

	"mediavault/internal/config"
	"mediavault/internal/database"
	"mediavault/internal/database/migrations"
)

// MigrateCatalog applies pending schema migrations and returns the resulting status.
func MigrateCatalog(cfg *config.Config) (*migrations.Status, error) {
	catalog, err := database.NewCatalogFromConfig(cfg.Catalog)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer catalog.Close()

	if err := catalog.MigrateUp(); err != nil {
		return nil, err
	}
	return catalog.MigrationStatus()
}

// CatalogSchema returns the schema of a migrated catalog.
func CatalogSchema(ctx context.Context, cfg *config.Config) (string, error) {
	catalog, err := openMigratedCatalog(cfg)
	if err != nil {
		return "", err
	}
	defer catalog.Close()

	return catalog.Schema(ctx)
}

// BackupCatalog writes a consistent copy of the catalog to destPath.
func BackupCatalog(ctx context.Context, cfg *config.Config, destPath string) error {
	catalog, err := openMigratedCatalog(cfg)
	if err != nil {
		return err
	}
	defer catalog.Close()

	return catalog.BackupTo(ctx, destPath)
}

func openMigratedCatalog(cfg *config.Config) (*database.SQLiteCatalog, error) {
	catalog, err := database.NewCatalogFromConfig(cfg.Catalog)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	if err := catalog.CheckMigrations(); err != nil {
		catalog.Close()
		return nil, fmt.Errorf("catalog schema out of date (run 'mv catalog migrate'): %w", err)
	}
	return catalog, nil
}
