package database

import (
	"os"
	"path/filepath"
	"testing"

	"mediavault/internal/config"
)

func TestNewCatalogFromConfig(t *testing.T) {
	t.Run("memory catalog is migrated", func(t *testing.T) {
		got, err := NewCatalogFromConfig(config.CatalogConfig{Type: "memory"})
		if err != nil {
			t.Fatalf("NewCatalogFromConfig() error = %v", err)
		}
		defer got.Close()

		if err := got.CheckMigrations(); err != nil {
			t.Errorf("CheckMigrations() error = %v", err)
		}
	})

	t.Run("sqlite catalog creates data_dir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "db")
		got, err := NewCatalogFromConfig(config.CatalogConfig{Type: "sqlite", DataDir: dir})
		if err != nil {
			t.Fatalf("NewCatalogFromConfig() error = %v", err)
		}
		defer got.Close()

		if got.Path() != filepath.Join(dir, CatalogFileName) {
			t.Errorf("Path() = %q, want %q", got.Path(), filepath.Join(dir, CatalogFileName))
		}
		if _, err := os.Stat(got.Path()); err != nil {
			t.Errorf("catalog file not created: %v", err)
		}
		if err := got.CheckMigrations(); err == nil {
			t.Error("CheckMigrations() on fresh sqlite catalog expected error, got nil")
		}
	})

	t.Run("sqlite catalog without data_dir", func(t *testing.T) {
		got, err := NewCatalogFromConfig(config.CatalogConfig{Type: "sqlite"})
		if err == nil {
			t.Error("NewCatalogFromConfig() expected error for missing data_dir, got nil")
		}
		if got != nil {
			t.Error("NewCatalogFromConfig() should return nil on error")
			got.Close()
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		got, err := NewCatalogFromConfig(config.CatalogConfig{Type: "postgres"})
		if err == nil {
			t.Error("NewCatalogFromConfig() expected error for unknown type, got nil")
		}
		if got != nil {
			got.Close()
		}
	})
}
