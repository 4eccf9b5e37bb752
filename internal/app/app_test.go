package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mediavault/internal/config"
	"mediavault/internal/mv"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewConfig(t.TempDir())
	cfg.Catalog = config.CatalogConfig{Type: "memory"}
	cfg.BlobStore = config.BlobStoreConfig{Type: "memory"}
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *MVApp {
	t.Helper()
	a, err := NewMVApp(context.Background(), cfg, Options{Operation: "Test"})
	if err != nil {
		t.Fatalf("NewMVApp() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

// loggedIn returns an app acting as a freshly provisioned user "alice".
func loggedIn(t *testing.T) *MVApp {
	t.Helper()
	ctx := context.Background()
	a := newTestApp(t, testConfig(t))
	if _, err := a.AddUser(ctx, "alice", "correct horse"); err != nil {
		t.Fatalf("AddUser() error = %v", err)
	}
	if _, err := a.Authenticate(ctx, "alice", "correct horse"); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	return a
}

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewMVApp(t *testing.T) {
	ctx := context.Background()

	t.Run("wires a memory library", func(t *testing.T) {
		cfg := testConfig(t)
		a := newTestApp(t, cfg)

		if _, err := os.Stat(filepath.Join(cfg.LogDir, LogFileName)); err != nil {
			t.Errorf("log file not created: %v", err)
		}
		stats, err := a.StorageStats(ctx)
		if err != nil {
			t.Fatalf("StorageStats() error = %v", err)
		}
		if stats.TotalBytes != 0 {
			t.Errorf("TotalBytes = %d, want 0", stats.TotalBytes)
		}
	})

	t.Run("rejects an unmigrated sqlite catalog", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Catalog = config.CatalogConfig{Type: "sqlite", DataDir: filepath.Join(cfg.BaseDir, "db")}

		if _, err := NewMVApp(ctx, cfg, Options{}); err == nil {
			t.Fatal("NewMVApp() expected error for unmigrated catalog")
		}

		if _, err := MigrateCatalog(cfg); err != nil {
			t.Fatalf("MigrateCatalog() error = %v", err)
		}
		a, err := NewMVApp(ctx, cfg, Options{})
		if err != nil {
			t.Fatalf("NewMVApp() after migrate error = %v", err)
		}
		a.Close()
	})

	t.Run("rejects an unknown delete policy", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Library.FolderDeletePolicy = "shred"

		if _, err := NewMVApp(ctx, cfg, Options{}); err == nil {
			t.Error("NewMVApp() expected error for unknown policy")
		}
	})

	t.Run("rejects an empty allow-list", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Ingest.AllowedTypes = nil

		if _, err := NewMVApp(ctx, cfg, Options{}); err == nil {
			t.Error("NewMVApp() expected error for empty allowed_types")
		}
	})
}

func TestMVApp_Users(t *testing.T) {
	ctx := context.Background()

	t.Run("authenticates with the right password only", func(t *testing.T) {
		a := newTestApp(t, testConfig(t))
		if _, err := a.AddUser(ctx, "alice", "correct horse"); err != nil {
			t.Fatalf("AddUser() error = %v", err)
		}

		if _, err := a.Authenticate(ctx, "alice", "wrong password"); !errors.Is(err, ErrBadCredentials) {
			t.Errorf("Authenticate() wrong password error = %v, want ErrBadCredentials", err)
		}
		if _, err := a.Authenticate(ctx, "mallory", "correct horse"); !errors.Is(err, ErrBadCredentials) {
			t.Errorf("Authenticate() unknown user error = %v, want ErrBadCredentials", err)
		}
		user, err := a.Authenticate(ctx, "alice", "correct horse")
		if err != nil {
			t.Fatalf("Authenticate() error = %v", err)
		}
		if user.Name != "alice" {
			t.Errorf("Name = %q, want alice", user.Name)
		}
	})

	t.Run("password change takes effect", func(t *testing.T) {
		a := newTestApp(t, testConfig(t))
		if _, err := a.AddUser(ctx, "alice", "correct horse"); err != nil {
			t.Fatal(err)
		}
		if err := a.ChangePassword(ctx, "alice", "battery staple"); err != nil {
			t.Fatalf("ChangePassword() error = %v", err)
		}

		if _, err := a.Authenticate(ctx, "alice", "correct horse"); !errors.Is(err, ErrBadCredentials) {
			t.Errorf("old password error = %v, want ErrBadCredentials", err)
		}
		if _, err := a.Authenticate(ctx, "alice", "battery staple"); err != nil {
			t.Errorf("new password error = %v", err)
		}
	})

	t.Run("validation", func(t *testing.T) {
		a := newTestApp(t, testConfig(t))

		if _, err := a.AddUser(ctx, "alice", "short"); !errors.Is(err, mv.ErrInvalidInput) {
			t.Errorf("short password error = %v, want ErrInvalidInput", err)
		}
		if _, err := a.AddUser(ctx, "  ", "long enough"); !errors.Is(err, mv.ErrInvalidInput) {
			t.Errorf("blank name error = %v, want ErrInvalidInput", err)
		}
		if _, err := a.AddUser(ctx, "alice", "long enough"); err != nil {
			t.Fatal(err)
		}
		if _, err := a.AddUser(ctx, "alice", "long enough"); !errors.Is(err, mv.ErrConflict) {
			t.Errorf("duplicate name error = %v, want ErrConflict", err)
		}
		if err := a.ChangePassword(ctx, "nobody", "long enough"); !errors.Is(err, mv.ErrNotFound) {
			t.Errorf("unknown user error = %v, want ErrNotFound", err)
		}
	})

	t.Run("mutations require an acting user", func(t *testing.T) {
		a := newTestApp(t, testConfig(t))

		if _, err := a.CreateFolder(ctx, "Media", nil); !errors.Is(err, mv.ErrPermissionDenied) {
			t.Errorf("CreateFolder() error = %v, want ErrPermissionDenied", err)
		}
	})
}

func TestMVApp_Files(t *testing.T) {
	ctx := context.Background()

	t.Run("upload, version and download", func(t *testing.T) {
		a := loggedIn(t)
		dir := t.TempDir()

		folder, err := a.CreateFolder(ctx, "Media", nil)
		if err != nil {
			t.Fatalf("CreateFolder() error = %v", err)
		}
		files, err := a.UploadFiles(ctx, writeSource(t, dir, "clip.mp4", "first cut"), &folder.ID, "", false)
		if err != nil {
			t.Fatalf("UploadFiles() error = %v", err)
		}
		if len(files) != 1 || files[0].OriginalName != "clip.mp4" {
			t.Fatalf("UploadFiles() = %v, want [clip.mp4]", files)
		}

		n, err := a.AddVersion(ctx, files[0].ID, writeSource(t, dir, "clip-v2.mp4", "final cut"), "video/mp4")
		if err != nil {
			t.Fatalf("AddVersion() error = %v", err)
		}
		if n != 2 {
			t.Errorf("AddVersion() = %d, want 2", n)
		}

		var buf bytes.Buffer
		dl, err := a.Download(ctx, files[0].ID, 0, &buf)
		if err != nil {
			t.Fatalf("Download() error = %v", err)
		}
		if buf.String() != "final cut" || dl.Version.VersionNumber != 2 {
			t.Errorf("Download() = v%d %q, want v2 %q", dl.Version.VersionNumber, buf.String(), "final cut")
		}

		path, err := a.FolderPath(ctx, folder.ID)
		if err != nil {
			t.Fatalf("FolderPath() error = %v", err)
		}
		if path != "/Media" {
			t.Errorf("FolderPath() = %q, want /Media", path)
		}
	})

	t.Run("uploads a directory", func(t *testing.T) {
		a := loggedIn(t)
		dir := t.TempDir()
		writeSource(t, dir, "a.mp4", "a")
		writeSource(t, dir, "b.png", "b")
		writeSource(t, dir, ".DS_Store", "junk")
		writeSource(t, dir, "nested/c.mp3", "c")

		files, err := a.UploadFiles(ctx, dir, nil, "", true)
		if err != nil {
			t.Fatalf("UploadFiles() error = %v", err)
		}
		var names []string
		for _, f := range files {
			names = append(names, f.OriginalName)
		}
		if strings.Join(names, ",") != "a.mp4,b.png,c.mp3" {
			t.Errorf("uploaded = %v, want [a.mp4 b.png c.mp3]", names)
		}
	})

	t.Run("stops at the first rejected file", func(t *testing.T) {
		a := loggedIn(t)
		dir := t.TempDir()
		writeSource(t, dir, "a.mp4", "a")
		writeSource(t, dir, "b.txt", "not media")
		writeSource(t, dir, "c.mp4", "c")

		files, err := a.UploadFiles(ctx, dir, nil, "", false)
		if !errors.Is(err, mv.ErrUnsupportedMedia) {
			t.Fatalf("UploadFiles() error = %v, want ErrUnsupportedMedia", err)
		}
		if len(files) != 1 {
			t.Errorf("uploaded %d files before failing, want 1", len(files))
		}
	})

	t.Run("search, list and reconcile", func(t *testing.T) {
		a := loggedIn(t)
		dir := t.TempDir()
		if _, err := a.UploadFiles(ctx, writeSource(t, dir, "Holiday.mp4", "h"), nil, "", false); err != nil {
			t.Fatal(err)
		}

		found, err := a.Search(ctx, "holiday")
		if err != nil || len(found) != 1 {
			t.Errorf("Search() = %d files, %v; want 1", len(found), err)
		}
		all, err := a.ListFiles(ctx, 0, 10)
		if err != nil || len(all) != 1 {
			t.Errorf("ListFiles() = %d files, %v; want 1", len(all), err)
		}
		report, err := a.Reconcile(ctx, false)
		if err != nil {
			t.Fatalf("Reconcile() error = %v", err)
		}
		if len(report.Orphans)+len(report.Missing) != 0 {
			t.Errorf("Reconcile() = %+v, want clean", report)
		}
	})
}

func TestCatalogMaintenance(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Catalog = config.CatalogConfig{Type: "sqlite", DataDir: filepath.Join(cfg.BaseDir, "db")}

	if _, err := CatalogSchema(ctx, cfg); err == nil {
		t.Error("CatalogSchema() expected error before migration")
	}

	status, err := MigrateCatalog(cfg)
	if err != nil {
		t.Fatalf("MigrateCatalog() error = %v", err)
	}
	if !status.UpToDate() {
		t.Errorf("status = %+v, want up to date", status)
	}

	schema, err := CatalogSchema(ctx, cfg)
	if err != nil {
		t.Fatalf("CatalogSchema() error = %v", err)
	}
	if !strings.Contains(schema, "CREATE TABLE file_versions") {
		t.Errorf("schema missing file_versions table:\n%s", schema)
	}

	dest := filepath.Join(t.TempDir(), "backup.db")
	if err := BackupCatalog(ctx, cfg, dest); err != nil {
		t.Fatalf("BackupCatalog() error = %v", err)
	}
	if info, err := os.Stat(dest); err != nil || info.Size() == 0 {
		t.Errorf("backup not written: %v", err)
	}
}
