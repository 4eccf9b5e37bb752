package migrations

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestMigrateUp_FreshDatabase(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	tables := []string{"users", "folders", "files", "file_versions", "schema_migrations"}
	for _, table := range tables {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s was not created: %v", table, err)
		}
	}
}

func TestCheckDBMigrationStatus(t *testing.T) {
	t.Run("fresh database needs migration", func(t *testing.T) {
		db := openTestDB(t)

		err := CheckDBMigrationStatus(db)
		if err == nil {
			t.Fatal("CheckDBMigrationStatus() expected error for fresh database, got nil")
		}
		if err.Error() != "catalog has no schema version (needs migration)" {
			t.Errorf("CheckDBMigrationStatus() error = %q, want error about needing migration", err.Error())
		}
	})

	t.Run("ok after migration", func(t *testing.T) {
		db := openTestDB(t)
		if err := MigrateUp(db); err != nil {
			t.Fatalf("MigrateUp() failed: %v", err)
		}

		if err := CheckDBMigrationStatus(db); err != nil {
			t.Errorf("CheckDBMigrationStatus() after migration returned error: %v", err)
		}
	})
}

func TestReadStatus(t *testing.T) {
	db := openTestDB(t)

	before, err := ReadStatus(db)
	if err != nil {
		t.Fatalf("ReadStatus() error = %v", err)
	}
	if before.Current != 0 || before.UpToDate() {
		t.Errorf("ReadStatus() before migration = %+v, want version 0 and not up to date", before)
	}
	if before.Latest < 1 {
		t.Errorf("Latest = %d, want >= 1", before.Latest)
	}

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	after, err := ReadStatus(db)
	if err != nil {
		t.Fatalf("ReadStatus() error = %v", err)
	}
	if !after.UpToDate() {
		t.Errorf("ReadStatus() after migration = %+v, want up to date", after)
	}
}

func TestMigrateUp_Idempotent(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("First MigrateUp() failed: %v", err)
	}
	if err := MigrateUp(db); err != nil {
		t.Errorf("Second MigrateUp() failed: %v (should be idempotent)", err)
	}
	if err := CheckDBMigrationStatus(db); err != nil {
		t.Errorf("CheckDBMigrationStatus() after double migration returned error: %v", err)
	}
}

func TestForeignKeyConstraints(t *testing.T) {
	db := openTestDB(t)
	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	// A folder whose creator does not exist must be rejected.
	_, err := db.Exec(`
		INSERT INTO folders (name, parent_id, creator_id, created_at)
		VALUES ('clips', NULL, 42, datetime('now'))
	`)
	if err == nil {
		t.Error("Expected foreign key constraint violation, but insert succeeded")
	}
}

func TestSchema_SiblingNameUnique(t *testing.T) {
	db := openTestDB(t)
	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	mustExec(t, db, "INSERT INTO users (name, credential_hash, created_at) VALUES ('ana', 'x', datetime('now'))")
	mustExec(t, db, "INSERT INTO folders (name, parent_id, creator_id, created_at) VALUES ('clips', NULL, 1, datetime('now'))")

	// Two root-level folders with the same name collide even though parent_id is NULL.
	_, err := db.Exec("INSERT INTO folders (name, parent_id, creator_id, created_at) VALUES ('clips', NULL, 1, datetime('now'))")
	if err == nil {
		t.Error("Expected unique constraint violation for duplicate root folder, but insert succeeded")
	}

	// The same name under a different parent is fine.
	mustExec(t, db, "INSERT INTO folders (name, parent_id, creator_id, created_at) VALUES ('clips', 1, 1, datetime('now'))")
}

func TestSchema_VersionNumbersUniquePerFile(t *testing.T) {
	db := openTestDB(t)
	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	mustExec(t, db, "INSERT INTO users (name, credential_hash, created_at) VALUES ('ana', 'x', datetime('now'))")
	mustExec(t, db, `INSERT INTO files (original_name, storage_name, size, mime_type, checksum, uploader_id, uploaded_at)
		VALUES ('a.mp4', 'a_1_x.mp4', 3, 'video/mp4', 'c', 1, datetime('now'))`)
	mustExec(t, db, `INSERT INTO file_versions (file_id, version_number, storage_name, size, mime_type, checksum, uploader_id, uploaded_at)
		VALUES (1, 2, 'a_2_x.mp4', 3, 'video/mp4', 'c', 1, datetime('now'))`)

	_, err := db.Exec(`INSERT INTO file_versions (file_id, version_number, storage_name, size, mime_type, checksum, uploader_id, uploaded_at)
		VALUES (1, 2, 'a_3_x.mp4', 3, 'video/mp4', 'c', 1, datetime('now'))`)
	if err == nil {
		t.Error("Expected unique constraint violation for duplicate version number, but insert succeeded")
	}

	// Version 1 belongs to the files row.
	_, err = db.Exec(`INSERT INTO file_versions (file_id, version_number, storage_name, size, mime_type, checksum, uploader_id, uploaded_at)
		VALUES (1, 1, 'a_4_x.mp4', 3, 'video/mp4', 'c', 1, datetime('now'))`)
	if err == nil {
		t.Error("Expected check constraint violation for version 1 row, but insert succeeded")
	}
}

// openTestDB opens an in-memory SQLite database for testing.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=1")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// Every pooled connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	return db
}

func mustExec(t *testing.T, db *sql.DB, query string) {
	t.Helper()
	if _, err := db.Exec(query); err != nil {
		t.Fatalf("Exec(%q) error = %v", query, err)
	}
}
