package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"mediavault/internal/database"
	"mediavault/internal/model"
)

// NewTestCatalog creates a new in-memory catalog with migrations applied.
// The catalog is automatically closed when the test completes.
func NewTestCatalog(t *testing.T) *database.SQLiteCatalog {
	t.Helper()
	return openTestCatalog(t, database.MemoryPath)
}

// NewTestFileCatalog creates a migrated catalog backed by a file in a temporary
// directory. Unlike the in-memory catalog it uses a full connection pool, so
// concurrent writers contend on SQLite's lock.
func NewTestFileCatalog(t *testing.T) *database.SQLiteCatalog {
	t.Helper()
	return openTestCatalog(t, filepath.Join(t.TempDir(), "catalog.db"))
}

func openTestCatalog(t *testing.T, path string) *database.SQLiteCatalog {
	t.Helper()

	c, err := database.NewSQLiteCatalog(path)
	if err != nil {
		t.Fatalf("failed to open catalog: %v", err)
	}
	if err := c.MigrateUp(); err != nil {
		c.Close()
		t.Fatalf("failed to migrate catalog: %v", err)
	}

	t.Cleanup(func() {
		c.Close()
	})

	return c
}

// CreateTestUser inserts a user with a dummy credential hash.
func CreateTestUser(t *testing.T, c *database.SQLiteCatalog, name string) *model.User {
	t.Helper()

	u, err := c.CreateUser(context.Background(), name, "test-hash", FixedClock().Now())
	if err != nil {
		t.Fatalf("failed to create user %q: %v", name, err)
	}
	return u
}
