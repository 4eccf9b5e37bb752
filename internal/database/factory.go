package database

import (
	"fmt"
	"os"
	"path/filepath"

	"mediavault/internal/config"
)

// CatalogFileName is the SQLite file created inside the configured data_dir.
const CatalogFileName = "catalog.db"

// NewCatalogFromConfig opens the catalog selected by cfg.Type.
// A memory catalog is migrated immediately since it starts empty on every run;
// a sqlite catalog is left for the caller to check or migrate.
func NewCatalogFromConfig(cfg config.CatalogConfig) (*SQLiteCatalog, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite catalog")
		}
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return nil, fmt.Errorf("creating data_dir: %w", err)
		}
		return NewSQLiteCatalog(filepath.Join(cfg.DataDir, CatalogFileName))
	case "memory":
		catalog, err := NewSQLiteCatalog(MemoryPath)
		if err != nil {
			return nil, err
		}
		if err := catalog.MigrateUp(); err != nil {
			catalog.Close()
			return nil, fmt.Errorf("migrating memory catalog: %w", err)
		}
		return catalog, nil
	default:
		return nil, fmt.Errorf("unknown catalog type: %s", cfg.Type)
	}
}
